package entities

import (
	"fmt"
	"time"
)

// PriorityTier represents the customer priority tier of a process instance
type PriorityTier int

const (
	TierNormal PriorityTier = iota
	TierHigh
	TierUrgent
	TierCritical
)

// String method for PriorityTier enum
func (p PriorityTier) String() string {
	switch p {
	case TierNormal:
		return "normal"
	case TierHigh:
		return "high"
	case TierUrgent:
		return "urgent"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParsePriorityTier converts a string tier name to a PriorityTier.
// An empty string maps to TierNormal.
func ParsePriorityTier(s string) (PriorityTier, error) {
	switch s {
	case "", "normal":
		return TierNormal, nil
	case "high":
		return TierHigh, nil
	case "urgent":
		return TierUrgent, nil
	case "critical":
		return TierCritical, nil
	default:
		return TierNormal, fmt.Errorf("unknown priority tier %q", s)
	}
}

// ProcessInstance represents one schedulable unit of manufacturing work,
// e.g. a turning or milling operation on a specific part lot. It is
// read-only to the scheduler: placement results live in ScheduleEntry.
type ProcessInstance struct {
	ID                   string
	DisplayName          string
	OrderID              string
	MachineType          string
	RequiredCapabilities []string
	SetupTimeMinutes     int
	CycleTimeMinutes     int
	Quantity             int
	Dependencies         []string
	DueDate              *time.Time
	CustomerPriority     PriorityTier
}

// Duration returns the total machine time the instance needs:
// fixed setup plus per-unit cycle time.
func (p *ProcessInstance) Duration() time.Duration {
	total := p.SetupTimeMinutes + p.CycleTimeMinutes*p.Quantity
	return time.Duration(total) * time.Minute
}

// Validate checks the instance for fields the scheduler cannot work without.
func (p *ProcessInstance) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("process instance id cannot be empty")
	}
	if p.MachineType == "" {
		return fmt.Errorf("process instance %s: machine type cannot be empty", p.ID)
	}
	if p.SetupTimeMinutes < 0 {
		return fmt.Errorf("process instance %s: setup time must be >= 0, got %d", p.ID, p.SetupTimeMinutes)
	}
	if p.CycleTimeMinutes < 0 {
		return fmt.Errorf("process instance %s: cycle time must be >= 0, got %d", p.ID, p.CycleTimeMinutes)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("process instance %s: quantity must be positive, got %d", p.ID, p.Quantity)
	}
	if p.Duration() <= 0 {
		return fmt.Errorf("process instance %s: total duration must be positive", p.ID)
	}
	for _, dep := range p.Dependencies {
		if dep == p.ID {
			return fmt.Errorf("process instance %s depends on itself", p.ID)
		}
	}
	return nil
}
