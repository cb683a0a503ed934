package scheduler

import (
	"sort"
	"time"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// PriorityWeights tunes the contribution of each scoring component to an
// instance's final priority.
type PriorityWeights struct {
	Tier         float64
	DueDate      float64
	CriticalPath float64
}

// DefaultPriorityWeights returns the standard weighting: tier and
// due-date urgency dominate, critical-path position breaks congestion.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		Tier:         1.0,
		DueDate:      1.0,
		CriticalPath: 0.5,
	}
}

// PriorityEngine computes scheduling priorities for process instances.
// Higher scores are scheduled first.
type PriorityEngine struct {
	weights PriorityWeights
}

// NewPriorityEngine creates a priority engine with the given weights.
func NewPriorityEngine(weights PriorityWeights) *PriorityEngine {
	return &PriorityEngine{weights: weights}
}

// tierScore maps a customer priority tier to its base score.
func tierScore(tier entities.PriorityTier) float64 {
	switch tier {
	case entities.TierCritical:
		return 100
	case entities.TierUrgent:
		return 75
	case entities.TierHigh:
		return 50
	default:
		return 25
	}
}

// urgencyScore contributes max(0, 100 - daysUntilDue), clipped to
// [0, 100]. Overdue instances score the full 100.
func urgencyScore(dueDate *time.Time, now time.Time) float64 {
	if dueDate == nil {
		return 0
	}
	daysUntilDue := dueDate.Sub(now).Hours() / 24
	score := 100 - daysUntilDue
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ComputePriority scores one instance from its customer tier, due-date
// urgency and critical-path weight (the number of other instances that
// transitively depend on it).
func (p *PriorityEngine) ComputePriority(inst *entities.ProcessInstance, dependentCount int, now time.Time) float64 {
	score := p.weights.Tier * tierScore(inst.CustomerPriority)
	score += p.weights.DueDate * urgencyScore(inst.DueDate, now)
	score += p.weights.CriticalPath * 10 * float64(dependentCount)
	return score
}

// RankInstances orders the given instance ids by descending priority.
// Ties break by earliest due date, then by input order, so the ranking
// is stable and deterministic.
func (p *PriorityEngine) RankInstances(ids []string, graph *DependencyGraph, dependentCounts map[string]int, now time.Time) []string {
	ranked := append([]string{}, ids...)
	scores := make(map[string]float64, len(ranked))
	for _, id := range ranked {
		inst, ok := graph.Instance(id)
		if !ok {
			continue
		}
		scores[id] = p.ComputePriority(inst, dependentCounts[id], now)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		a, _ := graph.Instance(ranked[i])
		b, _ := graph.Instance(ranked[j])
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return graph.InputOrder(ranked[i]) < graph.InputOrder(ranked[j])
	})

	return ranked
}
