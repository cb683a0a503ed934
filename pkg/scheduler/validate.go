package scheduler

import (
	"fmt"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// ValidateSchedule checks a snapshot of entries before commit. Overlaps
// and dependency-order violations are errors. Placements that touch
// off-hours or weekend time, or brush a maintenance window, are warnings
// only, since multi-day work legitimately spans nights.
func (e *Engine) ValidateSchedule(entries []entities.ScheduleEntry, instances []entities.ProcessInstance, machines []entities.Machine) ValidationResult {
	result := ValidationResult{IsValid: true}

	for _, c := range e.detector.DetectConflicts(entries) {
		result.Errors = append(result.Errors, c.Description)
	}
	for _, c := range e.detector.DetectDependencyConflicts(entries, instances) {
		result.Errors = append(result.Errors, c.Description)
	}

	for i := range entries {
		en := &entries[i]
		if !en.Occupies() {
			continue
		}
		machine := machineByID(machines, en.MachineID)
		if machine == nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry %s references unknown machine %s", en.ID, en.MachineID))
			continue
		}

		if !e.calendar.IsWorkingTime(machine, en.StartTime) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("entry %s starts outside working hours at %v", en.ID, en.StartTime))
		}
		// Effective working time inside the interval must cover the
		// placement; a shortfall means off-hours or weekend work.
		segments := e.calendar.WorkingSegments(machine, en.StartTime, en.EndTime)
		if len(segments) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("entry %s lies entirely outside working time (%v-%v)", en.ID, en.StartTime, en.EndTime))
		}
		if e.calendar.HasMaintenanceConflict(machine, en.StartTime, en.EndTime) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("entry %s interval overlaps a maintenance window on machine %s", en.ID, machine.ID))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
