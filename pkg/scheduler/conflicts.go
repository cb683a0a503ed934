package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// ConflictDetector finds overlapping machine usage and dependency-order
// violations in a snapshot of schedule entries. Detection is a pure
// function of its inputs: running it twice over the same snapshot yields
// the same conflicts.
type ConflictDetector struct {
	// Buffer is added to a suggested new start when proposing to shift
	// the later of two overlapping entries.
	Buffer time.Duration
}

// NewConflictDetector creates a detector with no resolution buffer.
func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// DetectConflicts finds all pairs of overlapping entries on the same
// machine. Entries are grouped by machine and sorted by start time;
// since intervals are well-formed, comparing each entry to its
// neighbours in sorted order finds every overlap. Only entries that
// still occupy machine time participate.
func (d *ConflictDetector) DetectConflicts(entries []entities.ScheduleEntry) []entities.Conflict {
	byMachine := make(map[string][]*entities.ScheduleEntry)
	for i := range entries {
		e := &entries[i]
		if !e.Occupies() {
			continue
		}
		byMachine[e.MachineID] = append(byMachine[e.MachineID], e)
	}

	machineIDs := make([]string, 0, len(byMachine))
	for id := range byMachine {
		machineIDs = append(machineIDs, id)
	}
	sort.Strings(machineIDs)

	var conflicts []entities.Conflict
	for _, machineID := range machineIDs {
		group := byMachine[machineID]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].StartTime.Equal(group[j].StartTime) {
				return group[i].StartTime.Before(group[j].StartTime)
			}
			return group[i].ID < group[j].ID
		})

		for i := 0; i < len(group)-1; i++ {
			// An entry can overlap several successors; scan forward until
			// the starts clear its end.
			for j := i + 1; j < len(group); j++ {
				if !group[j].StartTime.Before(group[i].EndTime) {
					break
				}
				conflicts = append(conflicts, d.doubleBooking(group[i], group[j]))
			}
		}
	}

	return conflicts
}

// DetectIncremental checks a candidate entry against existing entries
// before it is committed. The candidate itself is not required to be in
// the existing set.
func (d *ConflictDetector) DetectIncremental(existing []entities.ScheduleEntry, candidate entities.ScheduleEntry) []entities.Conflict {
	if !candidate.Occupies() {
		return nil
	}

	var conflicts []entities.Conflict
	for i := range existing {
		e := &existing[i]
		if e.ID == candidate.ID || !e.Occupies() {
			continue
		}
		if e.Overlaps(&candidate) {
			first, second := e, &candidate
			if candidate.StartTime.Before(e.StartTime) {
				first, second = &candidate, e
			}
			conflicts = append(conflicts, d.doubleBooking(first, second))
		}
	}
	return conflicts
}

// DetectDependencyConflicts confirms that every entry starts at or after
// the latest end among the entries of its instance's dependencies.
func (d *ConflictDetector) DetectDependencyConflicts(entries []entities.ScheduleEntry, instances []entities.ProcessInstance) []entities.Conflict {
	instanceByID := make(map[string]*entities.ProcessInstance, len(instances))
	for i := range instances {
		instanceByID[instances[i].ID] = &instances[i]
	}

	entriesByInstance := make(map[string][]*entities.ScheduleEntry)
	for i := range entries {
		e := &entries[i]
		entriesByInstance[e.ProcessInstanceID] = append(entriesByInstance[e.ProcessInstanceID], e)
	}

	var conflicts []entities.Conflict
	for i := range entries {
		e := &entries[i]
		inst, ok := instanceByID[e.ProcessInstanceID]
		if !ok {
			continue
		}
		for _, depID := range inst.Dependencies {
			for _, depEntry := range entriesByInstance[depID] {
				if depEntry.EndTime.After(e.StartTime) {
					conflicts = append(conflicts, entities.Conflict{
						Type:     entities.ConflictDependencyViolation,
						Severity: entities.SeverityError,
						Description: fmt.Sprintf(
							"entry %s for instance %s starts %v before dependency %s completes at %v",
							e.ID, e.ProcessInstanceID, e.StartTime, depID, depEntry.EndTime),
						AffectedEntries: []string{e.ID, depEntry.ID},
						SuggestedResolution: &entities.Resolution{
							ProposedStart: depEntry.EndTime.Add(d.Buffer),
							MachineID:     e.MachineID,
							Note:          fmt.Sprintf("shift start past completion of dependency %s", depID),
						},
					})
				}
			}
		}
	}

	return conflicts
}

// doubleBooking builds the conflict for two overlapping entries, with a
// suggested resolution of shifting the later entry past the earlier one.
func (d *ConflictDetector) doubleBooking(first, second *entities.ScheduleEntry) entities.Conflict {
	return entities.Conflict{
		Type:     entities.ConflictDoubleBooking,
		Severity: entities.SeverityError,
		Description: fmt.Sprintf(
			"machine %s double-booked: entry %s (%v-%v) overlaps entry %s (%v-%v)",
			first.MachineID,
			first.ID, first.StartTime, first.EndTime,
			second.ID, second.StartTime, second.EndTime),
		AffectedEntries: []string{first.ID, second.ID},
		SuggestedResolution: &entities.Resolution{
			ProposedStart: first.EndTime.Add(d.Buffer),
			MachineID:     first.MachineID,
			Note:          "shift the later entry to start after the earlier one",
		},
	}
}
