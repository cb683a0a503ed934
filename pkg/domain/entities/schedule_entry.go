package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the lifecycle status of a schedule entry
type EntryStatus int

const (
	StatusScheduled EntryStatus = iota
	StatusInProgress
	StatusCompleted
	StatusDelayed
	StatusCancelled
)

// String method for EntryStatus enum
func (s EntryStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusDelayed:
		return "delayed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string name.
func (s EntryStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseEntryStatus converts a string status name to an EntryStatus.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch s {
	case "scheduled":
		return StatusScheduled, nil
	case "in_progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "delayed":
		return StatusDelayed, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return StatusScheduled, fmt.Errorf("unknown entry status %q", s)
	}
}

// ScheduleEntry represents a committed placement: one process instance on
// one machine for one time interval. Version supports compare-and-swap
// updates at the persistence boundary.
type ScheduleEntry struct {
	ID                string
	MachineID         string
	ProcessInstanceID string
	OrderID           string
	StartTime         time.Time
	EndTime           time.Time
	Status            EntryStatus
	ActualStartTime   *time.Time
	ActualEndTime     *time.Time
	Version           int64
}

// NewScheduleEntry creates a validated ScheduleEntry with a fresh id
// and status scheduled.
func NewScheduleEntry(machineID, processInstanceID, orderID string, start, end time.Time) (*ScheduleEntry, error) {
	if machineID == "" {
		return nil, fmt.Errorf("machine id cannot be empty")
	}
	if processInstanceID == "" {
		return nil, fmt.Errorf("process instance id cannot be empty")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("entry end %v must be after start %v", end, start)
	}
	return &ScheduleEntry{
		ID:                uuid.New().String(),
		MachineID:         machineID,
		ProcessInstanceID: processInstanceID,
		OrderID:           orderID,
		StartTime:         start,
		EndTime:           end,
		Status:            StatusScheduled,
		Version:           1,
	}, nil
}

// Occupies reports whether the entry claims machine time. Completed,
// delayed and cancelled entries do not participate in overlap checks.
func (e *ScheduleEntry) Occupies() bool {
	return e.Status == StatusScheduled || e.Status == StatusInProgress
}

// Overlaps reports whether two entries claim the same machine at the
// same time. Intervals are half-open, so back-to-back entries do not
// overlap.
func (e *ScheduleEntry) Overlaps(other *ScheduleEntry) bool {
	if e.MachineID != other.MachineID {
		return false
	}
	return e.StartTime.Before(other.EndTime) && other.StartTime.Before(e.EndTime)
}

// MarkStarted transitions the entry to in_progress and records the
// actual start for drift tracking.
func (e *ScheduleEntry) MarkStarted(at time.Time) error {
	if e.Status != StatusScheduled && e.Status != StatusDelayed {
		return fmt.Errorf("entry %s cannot start from status %s", e.ID, e.Status)
	}
	e.Status = StatusInProgress
	e.ActualStartTime = &at
	return nil
}

// MarkCompleted transitions the entry to completed and records the
// actual end.
func (e *ScheduleEntry) MarkCompleted(at time.Time) error {
	if e.Status != StatusInProgress {
		return fmt.Errorf("entry %s cannot complete from status %s", e.ID, e.Status)
	}
	e.Status = StatusCompleted
	e.ActualEndTime = &at
	return nil
}

// Drift returns how far the actual start ran behind the plan. Zero when
// the entry has not started or started early.
func (e *ScheduleEntry) Drift() time.Duration {
	if e.ActualStartTime == nil {
		return 0
	}
	d := e.ActualStartTime.Sub(e.StartTime)
	if d < 0 {
		return 0
	}
	return d
}
