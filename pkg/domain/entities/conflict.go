package entities

import (
	"encoding/json"
	"time"
)

// ConflictType represents the kind of scheduling rule violation detected
type ConflictType int

const (
	ConflictDoubleBooking ConflictType = iota
	ConflictDependencyViolation
	ConflictCapacityExceeded
	ConflictTimeout
)

// String method for ConflictType enum
func (c ConflictType) String() string {
	switch c {
	case ConflictDoubleBooking:
		return "machine_double_booking"
	case ConflictDependencyViolation:
		return "dependency_violation"
	case ConflictCapacityExceeded:
		return "capacity_exceeded"
	case ConflictTimeout:
		return "scheduling_timeout"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the conflict type as its string name.
func (c ConflictType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ConflictSeverity represents how serious a detected conflict is
type ConflictSeverity int

const (
	SeverityWarning ConflictSeverity = iota
	SeverityError
	SeverityCritical
)

// String method for ConflictSeverity enum
func (s ConflictSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its string name.
func (s ConflictSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Resolution represents a suggested fix for a conflict, e.g. shifting
// the later of two overlapping entries.
type Resolution struct {
	ProposedStart time.Time
	MachineID     string
	Note          string
}

// Conflict represents a detected scheduling violation. Conflicts are a
// derived, recomputable view over a snapshot of entries and are never
// authoritative state.
type Conflict struct {
	Type                ConflictType
	Severity            ConflictSeverity
	Description         string
	AffectedEntries     []string
	SuggestedResolution *Resolution
}
