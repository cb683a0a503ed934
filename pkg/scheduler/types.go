package scheduler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// Metrics summarizes one scheduling run.
type Metrics struct {
	ScheduledCount int
	FailedCount    int
	ConflictCount  int

	// AverageUtilization is busy working minutes over available working
	// minutes across all machines within the scheduled horizon, as a
	// fraction in [0, 1].
	AverageUtilization decimal.Decimal

	// MachineUtilization breaks utilization down per machine id.
	MachineUtilization map[string]decimal.Decimal

	SchedulingDuration time.Duration
}

// ScheduleResult is the output of one scheduling run: the placed
// entries, every detected or recorded conflict, and run metrics.
// Success is false when a run-level failure (cycle, invalid input,
// timeout) occurred; per-instance placement failures alone leave
// Success true with capacity conflicts in the list.
type ScheduleResult struct {
	Success   bool
	Entries   []entities.ScheduleEntry
	Conflicts []entities.Conflict
	Metrics   Metrics
}

// ValidationResult is the outcome of a pre-commit schedule validation.
// Errors are rule violations (overlaps, dependency order); warnings flag
// questionable but permitted placements such as out-of-hours work.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}
