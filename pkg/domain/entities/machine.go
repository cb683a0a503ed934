package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WorkingHours represents the daily availability band of a machine,
// expressed as whole hours of the local day (e.g. 8 to 17).
type WorkingHours struct {
	StartHour int
	EndHour   int
}

// Minutes returns the length of the daily band in minutes.
func (w WorkingHours) Minutes() int {
	return (w.EndHour - w.StartHour) * 60
}

// MaintenanceWindow represents an ad hoc unavailability block for a machine
type MaintenanceWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the window intersects the half-open
// interval [start, end).
func (m MaintenanceWindow) Overlaps(start, end time.Time) bool {
	return m.Start.Before(end) && start.Before(m.End)
}

// Machine represents a physical resource work can be placed on.
// Machines are maintained by fleet management and are read-only to the
// scheduler within one run.
type Machine struct {
	ID                 string
	Name               string
	Type               string
	IsActive           bool
	Capabilities       []string
	HourlyRate         decimal.Decimal
	CurrentWorkload    int
	WorkingHours       WorkingHours
	MaintenanceWindows []MaintenanceWindow
	AvailableFrom      time.Time
}

// HasCapabilities reports whether the machine supports every required
// capability tag.
func (m *Machine) HasCapabilities(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range m.Capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Validate checks the machine for fields the scheduler cannot work without.
func (m *Machine) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("machine id cannot be empty")
	}
	if m.Type == "" {
		return fmt.Errorf("machine %s: type cannot be empty", m.ID)
	}
	w := m.WorkingHours
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("machine %s: invalid working hours %d-%d", m.ID, w.StartHour, w.EndHour)
	}
	if m.HourlyRate.IsNegative() {
		return fmt.Errorf("machine %s: hourly rate cannot be negative", m.ID)
	}
	for _, win := range m.MaintenanceWindows {
		if !win.Start.Before(win.End) {
			return fmt.Errorf("machine %s: maintenance window end %v must be after start %v",
				m.ID, win.End, win.Start)
		}
	}
	return nil
}
