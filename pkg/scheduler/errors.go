package scheduler

import "errors"

// Run-level and per-instance failure modes of the scheduling engine.
var (
	// ErrNoCapacity signals that no feasible slot exists for an instance
	// within the search horizon. Reported per instance; never aborts a run.
	ErrNoCapacity = errors.New("no capacity within scheduling horizon")

	// ErrCyclicDependency signals a cycle in the process instance
	// dependency graph. Ordering is undefined, so the run aborts with
	// zero placements.
	ErrCyclicDependency = errors.New("cyclic dependency between process instances")

	// ErrSchedulingTimeout signals that the wall-clock budget for one run
	// was exceeded. The partial result placed so far is still returned.
	ErrSchedulingTimeout = errors.New("scheduling wall-clock budget exceeded")

	// ErrInvalidInput signals malformed input rejected before any
	// placement attempt.
	ErrInvalidInput = errors.New("invalid scheduling input")
)
