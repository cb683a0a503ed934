package scheduler

import (
	"sort"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// MachineMatcher filters and ranks machines for a process instance.
type MachineMatcher struct{}

// NewMachineMatcher creates a machine matcher.
func NewMachineMatcher() *MachineMatcher {
	return &MachineMatcher{}
}

// CandidateMachines returns the machines able to run the instance,
// ordered best-first: active machines of the right type carrying every
// required capability, ranked by ascending current workload (load
// balancing), then ascending hourly rate, then id for determinism. An
// empty result means the instance cannot be scheduled and must be
// reported as a placement failure.
func (mm *MachineMatcher) CandidateMachines(inst *entities.ProcessInstance, machines []entities.Machine) []*entities.Machine {
	var candidates []*entities.Machine
	for i := range machines {
		m := &machines[i]
		if !m.IsActive {
			continue
		}
		if m.Type != inst.MachineType {
			continue
		}
		if !m.HasCapabilities(inst.RequiredCapabilities) {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CurrentWorkload != candidates[j].CurrentWorkload {
			return candidates[i].CurrentWorkload < candidates[j].CurrentWorkload
		}
		if !candidates[i].HourlyRate.Equal(candidates[j].HourlyRate) {
			return candidates[i].HourlyRate.LessThan(candidates[j].HourlyRate)
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates
}
