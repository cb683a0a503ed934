package repositories

import (
	"context"
	"errors"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// ErrEntryNotFound is returned when a schedule entry id is unknown.
var ErrEntryNotFound = errors.New("schedule entry not found")

// ErrVersionMismatch is returned when a compare-and-swap update loses the
// race against a concurrent mutation of the same entry.
var ErrVersionMismatch = errors.New("schedule entry version mismatch")

// EntryRepository provides access to the authoritative schedule entry
// store. Mutations are single-entry and atomic; Update enforces
// optimistic concurrency via the entry's version field.
type EntryRepository interface {
	GetEntry(ctx context.Context, id string) (*entities.ScheduleEntry, error)
	ListEntries(ctx context.Context) ([]entities.ScheduleEntry, error)
	SaveEntry(ctx context.Context, entry *entities.ScheduleEntry) error

	// UpdateEntry replaces the stored entry if its current version equals
	// expectedVersion, bumping the version on success.
	UpdateEntry(ctx context.Context, entry *entities.ScheduleEntry, expectedVersion int64) error

	DeleteEntry(ctx context.Context, id string) error
}
