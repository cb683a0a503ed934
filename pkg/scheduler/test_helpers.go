package scheduler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// Shared builders for scheduler tests. Working hours default to
// 08:00-17:00 Monday-Friday; 2025-03-10 is a Monday.

var testMonday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func testMachine(id string, machineType string) entities.Machine {
	return entities.Machine{
		ID:           id,
		Name:         "Machine " + id,
		Type:         machineType,
		IsActive:     true,
		HourlyRate:   decimal.NewFromInt(80),
		WorkingHours: entities.WorkingHours{StartHour: 8, EndHour: 17},
	}
}

func testInstance(id string, machineType string, minutes int, deps ...string) entities.ProcessInstance {
	return entities.ProcessInstance{
		ID:               id,
		DisplayName:      "Op " + id,
		OrderID:          "ORD-" + id,
		MachineType:      machineType,
		CycleTimeMinutes: minutes,
		Quantity:         1,
		Dependencies:     deps,
	}
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func testEntry(id, machineID, instID string, start, end time.Time) entities.ScheduleEntry {
	return entities.ScheduleEntry{
		ID:                id,
		MachineID:         machineID,
		ProcessInstanceID: instID,
		StartTime:         start,
		EndTime:           end,
		Status:            entities.StatusScheduled,
		Version:           1,
	}
}
