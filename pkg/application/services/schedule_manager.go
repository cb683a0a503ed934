package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsched/shopsched/pkg/domain/entities"
	"github.com/shopsched/shopsched/pkg/domain/repositories"
	"github.com/shopsched/shopsched/pkg/scheduler"
)

// EntryPatch describes a partial mutation of a schedule entry. Nil
// fields are left untouched.
type EntryPatch struct {
	// Status requests a lifecycle transition. Transitions to in_progress
	// and completed record the actual timestamp.
	Status *entities.EntryStatus

	// At anchors lifecycle transitions; zero means the current time.
	At time.Time
}

// RescheduleResult reports the outcome of a reschedule attempt. When the
// move collides with existing entries, Committed is false, Conflicts
// explains why, and nothing was mutated.
type RescheduleResult struct {
	Committed bool
	Entry     *entities.ScheduleEntry
	Conflicts []entities.Conflict
}

// ScheduleManager is the mutation layer over a committed schedule:
// lifecycle updates, deletions and conflict-checked reschedules. It
// holds an immutable snapshot of the instances and machines the
// schedule was built from; the entry repository is the single source
// of truth for placements.
type ScheduleManager struct {
	repo      repositories.EntryRepository
	calendar  *scheduler.Calendar
	detector  *scheduler.ConflictDetector
	instances map[string]entities.ProcessInstance
	machines  map[string]entities.Machine
	log       zerolog.Logger
}

// NewScheduleManager creates a manager over the given repository and
// input snapshot.
func NewScheduleManager(
	repo repositories.EntryRepository,
	calendar *scheduler.Calendar,
	instances []entities.ProcessInstance,
	machines []entities.Machine,
	logger zerolog.Logger,
) *ScheduleManager {
	if calendar == nil {
		calendar = scheduler.NewCalendar()
	}
	instByID := make(map[string]entities.ProcessInstance, len(instances))
	for _, inst := range instances {
		instByID[inst.ID] = inst
	}
	machByID := make(map[string]entities.Machine, len(machines))
	for _, m := range machines {
		machByID[m.ID] = m
	}
	return &ScheduleManager{
		repo:      repo,
		calendar:  calendar,
		detector:  scheduler.NewConflictDetector(),
		instances: instByID,
		machines:  machByID,
		log:       logger,
	}
}

// Entries returns the current schedule ordered by start time.
func (m *ScheduleManager) Entries(ctx context.Context) ([]entities.ScheduleEntry, error) {
	return m.repo.ListEntries(ctx)
}

// UpdateEntry applies a patch to one entry. The write is version-checked
// against the state read at the start of the call, so a concurrent
// mutation surfaces as ErrVersionMismatch instead of a lost update.
func (m *ScheduleManager) UpdateEntry(ctx context.Context, id string, patch EntryPatch) (*entities.ScheduleEntry, error) {
	entry, err := m.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	readVersion := entry.Version

	if patch.Status != nil {
		at := patch.At
		if at.IsZero() {
			at = time.Now()
		}
		if err := applyStatus(entry, *patch.Status, at); err != nil {
			return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
		}
	}

	if err := m.repo.UpdateEntry(ctx, entry, readVersion); err != nil {
		return nil, err
	}
	m.log.Debug().Str("entry", id).Str("status", entry.Status.String()).Msg("entry updated")
	return entry, nil
}

// DeleteEntry removes an entry from the schedule.
func (m *ScheduleManager) DeleteEntry(ctx context.Context, id string) error {
	if err := m.repo.DeleteEntry(ctx, id); err != nil {
		return err
	}
	m.log.Debug().Str("entry", id).Msg("entry deleted")
	return nil
}

// RescheduleEntry moves an entry to a new start time and optionally a
// new machine. The end time is recomputed from the process instance
// duration on the target machine's calendar. The move is checked
// against every other occupying entry first; on any conflict nothing
// is committed and the conflicts are returned for the caller to act on.
func (m *ScheduleManager) RescheduleEntry(ctx context.Context, id string, newStart time.Time, newMachineID string) (*RescheduleResult, error) {
	entry, err := m.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	readVersion := entry.Version

	if entry.Status != entities.StatusScheduled && entry.Status != entities.StatusDelayed {
		return nil, fmt.Errorf("%w: entry %s in status %s cannot be rescheduled",
			scheduler.ErrInvalidInput, id, entry.Status)
	}

	inst, ok := m.instances[entry.ProcessInstanceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown process instance %s", scheduler.ErrInvalidInput, entry.ProcessInstanceID)
	}

	machineID := entry.MachineID
	if newMachineID != "" {
		machineID = newMachineID
	}
	machine, ok := m.machines[machineID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown machine %s", scheduler.ErrInvalidInput, machineID)
	}
	if newMachineID != "" && !machine.HasCapabilities(inst.RequiredCapabilities) {
		return nil, fmt.Errorf("%w: machine %s lacks capabilities %v",
			scheduler.ErrInvalidInput, machineID, inst.RequiredCapabilities)
	}

	slot, err := m.calendar.NextAvailableSlot(&machine, newStart, inst.Duration())
	if err != nil {
		return nil, err
	}

	// A delayed entry goes back to scheduled on a successful move; the
	// conflict check below must also see it as occupying machine time.
	moved := *entry
	moved.MachineID = machineID
	moved.StartTime = slot.Start
	moved.EndTime = slot.End
	moved.Status = entities.StatusScheduled

	others, err := m.repo.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	remaining := others[:0]
	for _, other := range others {
		if other.ID != id {
			remaining = append(remaining, other)
		}
	}

	conflicts := m.detector.DetectIncremental(remaining, moved)
	if len(conflicts) > 0 {
		m.log.Info().Str("entry", id).Int("conflicts", len(conflicts)).Msg("reschedule rejected")
		return &RescheduleResult{Committed: false, Conflicts: conflicts}, nil
	}

	if err := m.repo.UpdateEntry(ctx, &moved, readVersion); err != nil {
		return nil, err
	}
	m.log.Info().
		Str("entry", id).
		Str("machine", moved.MachineID).
		Time("start", moved.StartTime).
		Msg("entry rescheduled")
	return &RescheduleResult{Committed: true, Entry: &moved}, nil
}

// applyStatus performs one lifecycle transition on the entry.
func applyStatus(entry *entities.ScheduleEntry, status entities.EntryStatus, at time.Time) error {
	switch status {
	case entities.StatusInProgress:
		return entry.MarkStarted(at)
	case entities.StatusCompleted:
		return entry.MarkCompleted(at)
	case entities.StatusDelayed:
		if entry.Status != entities.StatusScheduled {
			return fmt.Errorf("entry %s cannot be delayed from status %s", entry.ID, entry.Status)
		}
		entry.Status = entities.StatusDelayed
		return nil
	case entities.StatusCancelled:
		if entry.Status == entities.StatusCompleted {
			return fmt.Errorf("entry %s is already completed", entry.ID)
		}
		entry.Status = entities.StatusCancelled
		return nil
	case entities.StatusScheduled:
		return fmt.Errorf("entry %s cannot transition back to scheduled", entry.ID)
	default:
		return fmt.Errorf("unknown status %d", status)
	}
}
