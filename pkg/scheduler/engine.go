package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// defaultMaxPlacementAttempts bounds how often a single machine is
// re-probed past conflicting entries before giving up on it.
const defaultMaxPlacementAttempts = 256

// Scheduler is the engine contract: order process instances by
// dependency and priority, place each on the best available machine and
// time slot, and report entries, conflicts and metrics.
type Scheduler interface {
	Schedule(ctx context.Context, instances []entities.ProcessInstance, machines []entities.Machine) (*ScheduleResult, error)
}

// Options configures an Engine. Zero values select sensible defaults:
// greedy strategy, Monday-Friday calendar, default priority weights,
// unlimited budget.
type Options struct {
	Strategy SlotStrategy
	Weights  PriorityWeights
	Calendar *Calendar

	// Buffer is inserted between an existing entry and a shifted
	// placement when resolving around conflicts.
	Buffer time.Duration

	// Budget bounds the wall-clock time of one run; zero means no bound.
	Budget time.Duration

	// Now anchors "today" for due-date urgency and earliest placement.
	// Zero means the current time, set once at the start of each run.
	Now time.Time

	Logger zerolog.Logger

	// MaxPlacementAttempts bounds per-machine conflict re-probing.
	MaxPlacementAttempts int
}

// Engine implements Scheduler as a deterministic heuristic: topological
// tiers, priority ordering within a tier, earliest feasible slot per
// candidate machine, and a pluggable strategy for choosing among
// feasible candidates. The engine holds no shared mutable state; inputs
// are treated as an immutable snapshot and never mutated.
type Engine struct {
	calendar    *Calendar
	detector    *ConflictDetector
	matcher     *MachineMatcher
	priority    *PriorityEngine
	strategy    SlotStrategy
	budget      time.Duration
	now         time.Time
	maxAttempts int
	log         zerolog.Logger
}

// Verify interface compliance
var _ Scheduler = (*Engine)(nil)

// New creates an engine from options, filling in defaults.
func New(opts Options) *Engine {
	cal := opts.Calendar
	if cal == nil {
		cal = NewCalendar()
	}
	strategy := opts.Strategy
	if strategy == nil {
		strategy = GreedyStrategy{}
	}
	weights := opts.Weights
	if weights == (PriorityWeights{}) {
		weights = DefaultPriorityWeights()
	}
	attempts := opts.MaxPlacementAttempts
	if attempts <= 0 {
		attempts = defaultMaxPlacementAttempts
	}
	return &Engine{
		calendar:    cal,
		detector:    &ConflictDetector{Buffer: opts.Buffer},
		matcher:     NewMachineMatcher(),
		priority:    NewPriorityEngine(weights),
		strategy:    strategy,
		budget:      opts.Budget,
		now:         opts.Now,
		maxAttempts: attempts,
		log:         opts.Logger,
	}
}

// Schedule places the given process instances on the given machines.
// Per-instance placement failures become capacity conflicts and do not
// stop the run; cyclic dependencies, invalid input and budget exhaustion
// are run-level failures returning Success=false alongside the error.
func (e *Engine) Schedule(ctx context.Context, instances []entities.ProcessInstance, machines []entities.Machine) (*ScheduleResult, error) {
	started := time.Now()
	now := e.now
	if now.IsZero() {
		now = started
	}

	result := &ScheduleResult{Success: true}

	if err := validateInputs(instances, machines); err != nil {
		result.Success = false
		result.Metrics.SchedulingDuration = time.Since(started)
		return result, err
	}

	graph, err := NewDependencyGraph(instances)
	if err != nil {
		result.Success = false
		result.Metrics.SchedulingDuration = time.Since(started)
		return result, err
	}
	tiers, err := graph.Tiers()
	if err != nil {
		// Ordering is undefined on a cycle: abort with zero placements.
		result.Success = false
		result.Metrics.SchedulingDuration = time.Since(started)
		return result, err
	}
	dependentCounts := graph.DependentCounts()

	run := &placementRun{
		engine:     e,
		machines:   machines,
		placed:     make([]entities.ScheduleEntry, 0, len(instances)),
		completion: make(map[string]time.Time, len(instances)),
		failed:     make(map[string]bool),
		busy:       make(map[string]time.Duration),
		lastCaps:   make(map[string][]string),
	}

	var runErr error
tiers:
	for _, tier := range tiers {
		ranked := e.priority.RankInstances(tier, graph, dependentCounts, now)
		for _, id := range ranked {
			if e.budget > 0 && time.Since(started) > e.budget {
				result.Success = false
				result.Conflicts = append(result.Conflicts, entities.Conflict{
					Type:        entities.ConflictTimeout,
					Severity:    entities.SeverityCritical,
					Description: fmt.Sprintf("scheduling budget %v exceeded; %d instances placed before abort", e.budget, len(run.placed)),
				})
				runErr = fmt.Errorf("%w: budget %v", ErrSchedulingTimeout, e.budget)
				break tiers
			}
			if err := ctx.Err(); err != nil {
				result.Success = false
				runErr = err
				break tiers
			}

			inst, _ := graph.Instance(id)
			if conflict, failed := run.place(inst, now); failed {
				result.Conflicts = append(result.Conflicts, conflict)
				result.Metrics.FailedCount++
				e.log.Debug().
					Str("instance", inst.ID).
					Str("reason", conflict.Description).
					Msg("placement failed")
			}
		}
	}

	result.Entries = run.placed
	result.Metrics.ScheduledCount = len(run.placed)

	// Final consistency pass over everything placed. Any conflict here
	// indicates an ordering bug upstream and is surfaced, not hidden.
	finalConflicts := e.detector.DetectConflicts(run.placed)
	finalConflicts = append(finalConflicts, e.detector.DetectDependencyConflicts(run.placed, instances)...)
	if len(finalConflicts) > 0 {
		result.Success = false
		result.Conflicts = append(result.Conflicts, finalConflicts...)
		e.log.Error().Int("conflicts", len(finalConflicts)).Msg("consistency check found conflicts in placed schedule")
	}

	result.Metrics.ConflictCount = len(result.Conflicts)
	e.computeUtilization(&result.Metrics, run.placed, machines)
	result.Metrics.SchedulingDuration = time.Since(started)

	e.log.Info().
		Str("strategy", e.strategy.Name()).
		Int("instances", len(instances)).
		Int("scheduled", result.Metrics.ScheduledCount).
		Int("failed", result.Metrics.FailedCount).
		Int("conflicts", result.Metrics.ConflictCount).
		Dur("duration", result.Metrics.SchedulingDuration).
		Msg("scheduling run complete")

	return result, runErr
}

// placementRun carries the per-run working state of one Schedule call.
type placementRun struct {
	engine     *Engine
	machines   []entities.Machine
	placed     []entities.ScheduleEntry
	completion map[string]time.Time
	failed     map[string]bool
	busy       map[string]time.Duration
	lastCaps   map[string][]string
}

// place attempts to put one instance on the best feasible machine/slot.
// It returns the conflict to report and true when placement failed.
func (r *placementRun) place(inst *entities.ProcessInstance, now time.Time) (entities.Conflict, bool) {
	// An instance is ready only once every dependency is placed.
	earliest := now
	for _, depID := range inst.Dependencies {
		if r.failed[depID] {
			r.failed[inst.ID] = true
			return entities.Conflict{
				Type:     entities.ConflictCapacityExceeded,
				Severity: entities.SeverityError,
				Description: fmt.Sprintf("instance %s cannot be scheduled: dependency %s was not placed",
					inst.ID, depID),
			}, true
		}
		if end, ok := r.completion[depID]; ok && end.After(earliest) {
			earliest = end
		}
	}

	candidates := r.engine.matcher.CandidateMachines(inst, r.machines)
	if len(candidates) == 0 {
		r.failed[inst.ID] = true
		return entities.Conflict{
			Type:     entities.ConflictCapacityExceeded,
			Severity: entities.SeverityError,
			Description: fmt.Sprintf("instance %s cannot be scheduled: no active machine of type %s with capabilities %v",
				inst.ID, inst.MachineType, inst.RequiredCapabilities),
		}, true
	}

	var feasible []SlotCandidate
	for _, machine := range candidates {
		slot, ok := r.earliestConflictFreeSlot(machine, inst, earliest)
		if !ok {
			continue
		}
		feasible = append(feasible, SlotCandidate{
			Machine:          machine,
			Slot:             slot,
			Instance:         inst,
			BusyThisRun:      r.busy[machine.ID],
			LastCapabilities: r.lastCaps[machine.ID],
		})
		if !r.engine.strategy.Exhaustive() {
			break
		}
	}

	if len(feasible) == 0 {
		r.failed[inst.ID] = true
		return entities.Conflict{
			Type:     entities.ConflictCapacityExceeded,
			Severity: entities.SeverityError,
			Description: fmt.Sprintf("instance %s cannot be scheduled: no conflict-free slot on %d candidate machines within the horizon",
				inst.ID, len(candidates)),
		}, true
	}

	chosen := feasible[r.engine.strategy.Choose(feasible)]
	entry, err := entities.NewScheduleEntry(chosen.Machine.ID, inst.ID, inst.OrderID, chosen.Slot.Start, chosen.Slot.End)
	if err != nil {
		r.failed[inst.ID] = true
		return entities.Conflict{
			Type:        entities.ConflictCapacityExceeded,
			Severity:    entities.SeverityCritical,
			Description: fmt.Sprintf("instance %s: %v", inst.ID, err),
		}, true
	}

	r.placed = append(r.placed, *entry)
	r.completion[inst.ID] = entry.EndTime
	r.busy[chosen.Machine.ID] += inst.Duration()
	r.lastCaps[chosen.Machine.ID] = inst.RequiredCapabilities
	return entities.Conflict{}, false
}

// earliestConflictFreeSlot probes the machine for the earliest slot that
// the calendar allows and no already-placed entry overlaps, advancing
// past conflicting entries up to the attempt bound.
func (r *placementRun) earliestConflictFreeSlot(machine *entities.Machine, inst *entities.ProcessInstance, earliest time.Time) (Slot, bool) {
	duration := inst.Duration()
	tryFrom := earliest

	for attempt := 0; attempt < r.engine.maxAttempts; attempt++ {
		slot, err := r.engine.calendar.NextAvailableSlot(machine, tryFrom, duration)
		if err != nil {
			return Slot{}, false
		}

		candidate := entities.ScheduleEntry{
			ID:                "candidate-" + inst.ID,
			MachineID:         machine.ID,
			ProcessInstanceID: inst.ID,
			StartTime:         slot.Start,
			EndTime:           slot.End,
			Status:            entities.StatusScheduled,
		}
		if len(r.engine.detector.DetectIncremental(r.placed, candidate)) == 0 {
			return slot, true
		}

		// Advance past the latest entry the slot collided with.
		next := tryFrom
		for i := range r.placed {
			p := &r.placed[i]
			if p.MachineID == machine.ID && p.Overlaps(&candidate) && p.EndTime.After(next) {
				next = p.EndTime
			}
		}
		next = next.Add(r.engine.detector.Buffer)
		if !next.After(tryFrom) {
			next = tryFrom.Add(time.Minute)
		}
		tryFrom = next
	}

	return Slot{}, false
}

// validateInputs rejects malformed instances and machines before any
// placement is attempted.
func validateInputs(instances []entities.ProcessInstance, machines []entities.Machine) error {
	for i := range instances {
		if err := instances[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	for i := range machines {
		if err := machines[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

// computeUtilization fills per-machine and average utilization: busy
// working minutes over available working minutes across the whole
// working days spanned by the schedule.
func (e *Engine) computeUtilization(m *Metrics, entries []entities.ScheduleEntry, machines []entities.Machine) {
	m.MachineUtilization = make(map[string]decimal.Decimal, len(machines))
	m.AverageUtilization = decimal.Zero
	if len(entries) == 0 {
		return
	}

	minStart, maxEnd := entries[0].StartTime, entries[0].EndTime
	for i := range entries {
		if entries[i].StartTime.Before(minStart) {
			minStart = entries[i].StartTime
		}
		if entries[i].EndTime.After(maxEnd) {
			maxEnd = entries[i].EndTime
		}
	}
	// Expand to whole calendar days so a partially used day counts its
	// full working band as available.
	horizonStart := time.Date(minStart.Year(), minStart.Month(), minStart.Day(), 0, 0, 0, 0, minStart.Location())
	horizonEnd := time.Date(maxEnd.Year(), maxEnd.Month(), maxEnd.Day(), 0, 0, 0, 0, maxEnd.Location()).AddDate(0, 0, 1)

	busyByMachine := make(map[string]int)
	for i := range entries {
		en := &entries[i]
		machine := machineByID(machines, en.MachineID)
		if machine == nil {
			continue
		}
		busyByMachine[en.MachineID] += e.calendar.WorkingMinutes(machine, en.StartTime, en.EndTime)
	}

	totalBusy, totalAvailable := 0, 0
	for i := range machines {
		machine := &machines[i]
		available := e.calendar.WorkingMinutes(machine, horizonStart, horizonEnd)
		if available <= 0 {
			continue
		}
		busy := busyByMachine[machine.ID]
		totalBusy += busy
		totalAvailable += available
		m.MachineUtilization[machine.ID] = decimal.NewFromInt(int64(busy)).
			Div(decimal.NewFromInt(int64(available))).Round(4)
	}
	if totalAvailable > 0 {
		m.AverageUtilization = decimal.NewFromInt(int64(totalBusy)).
			Div(decimal.NewFromInt(int64(totalAvailable))).Round(4)
	}
}

func machineByID(machines []entities.Machine, id string) *entities.Machine {
	for i := range machines {
		if machines[i].ID == id {
			return &machines[i]
		}
	}
	return nil
}
