package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopsched/shopsched/pkg/domain/entities"
	"github.com/shopsched/shopsched/pkg/domain/repositories"
)

// EntryRepository provides in-memory schedule entry storage. All methods
// are safe for concurrent use; returned entries are copies so callers
// cannot mutate the store behind its back.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]entities.ScheduleEntry
}

// NewEntryRepository creates a new in-memory entry repository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		entries: make(map[string]entities.ScheduleEntry),
	}
}

// Verify interface compliance
var _ repositories.EntryRepository = (*EntryRepository)(nil)

// GetEntry returns the entry with the given id.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (*entities.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrEntryNotFound, id)
	}
	out := entry
	return &out, nil
}

// ListEntries returns all entries ordered by start time, then id.
func (r *EntryRepository) ListEntries(ctx context.Context) ([]entities.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.ScheduleEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveEntry inserts a new entry. The entry's version must be its initial
// value; use UpdateEntry for subsequent mutations.
func (r *EntryRepository) SaveEntry(ctx context.Context, entry *entities.ScheduleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("schedule entry already exists: %s", entry.ID)
	}
	r.entries[entry.ID] = *entry
	return nil
}

// UpdateEntry replaces the stored entry if the stored version matches
// expectedVersion, then bumps the version. The caller's entry is updated
// with the new version on success.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry *entities.ScheduleEntry, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[entry.ID]
	if !ok {
		return fmt.Errorf("%w: %s", repositories.ErrEntryNotFound, entry.ID)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: entry %s has version %d, expected %d",
			repositories.ErrVersionMismatch, entry.ID, current.Version, expectedVersion)
	}

	updated := *entry
	updated.Version = expectedVersion + 1
	r.entries[entry.ID] = updated
	entry.Version = updated.Version
	return nil
}

// DeleteEntry removes the entry with the given id.
func (r *EntryRepository) DeleteEntry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", repositories.ErrEntryNotFound, id)
	}
	delete(r.entries, id)
	return nil
}
