package scheduler

import (
	"fmt"
	"time"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// SlotCandidate is one feasible (machine, slot) combination for an
// instance, carrying the per-run context a strategy may score on.
type SlotCandidate struct {
	Machine  *entities.Machine
	Slot     Slot
	Instance *entities.ProcessInstance

	// BusyThisRun is the machine time already placed on the machine
	// during the current run.
	BusyThisRun time.Duration

	// LastCapabilities are the required capabilities of the instance most
	// recently placed on the machine this run, for setup-similarity
	// scoring.
	LastCapabilities []string
}

// SlotStrategy decides which feasible candidate an instance is placed
// on. Strategies make the simple and enhanced scheduler variants
// configuration rather than separate implementations.
type SlotStrategy interface {
	Name() string

	// Exhaustive reports whether the engine should gather every feasible
	// candidate before choosing. Non-exhaustive strategies receive the
	// first conflict-free candidate only.
	Exhaustive() bool

	// Choose returns the index of the winning candidate. Candidates is
	// never empty and preserves matcher order.
	Choose(candidates []SlotCandidate) int
}

// GreedyStrategy accepts the first conflict-free slot on the best-ranked
// machine: a fast single-pass scheduler.
type GreedyStrategy struct{}

// Name implements SlotStrategy.
func (GreedyStrategy) Name() string { return "greedy" }

// Exhaustive implements SlotStrategy.
func (GreedyStrategy) Exhaustive() bool { return false }

// Choose implements SlotStrategy.
func (GreedyStrategy) Choose(candidates []SlotCandidate) int { return 0 }

// EnhancedWeights tunes the multi-objective candidate scoring of the
// enhanced strategy.
type EnhancedWeights struct {
	UtilizationBalance float64
	SetupSimilarity    float64
	DueDateSlack       float64
}

// DefaultEnhancedWeights returns the standard enhanced scoring weights.
func DefaultEnhancedWeights() EnhancedWeights {
	return EnhancedWeights{
		UtilizationBalance: 1.0,
		SetupSimilarity:    0.5,
		DueDateSlack:       1.0,
	}
}

// EnhancedStrategy re-scores every feasible candidate by a weighted
// combination of utilization balance, setup-time similarity and due-date
// slack. Same contract as greedy, better tie-breaking.
type EnhancedStrategy struct {
	Weights EnhancedWeights
}

// NewEnhancedStrategy creates an enhanced strategy with default weights.
func NewEnhancedStrategy() *EnhancedStrategy {
	return &EnhancedStrategy{Weights: DefaultEnhancedWeights()}
}

// Name implements SlotStrategy.
func (s *EnhancedStrategy) Name() string { return "enhanced" }

// Exhaustive implements SlotStrategy.
func (s *EnhancedStrategy) Exhaustive() bool { return true }

// Choose implements SlotStrategy.
func (s *EnhancedStrategy) Choose(candidates []SlotCandidate) int {
	best := 0
	bestScore := s.score(candidates[0])
	for i := 1; i < len(candidates); i++ {
		score := s.score(candidates[i])
		if score > bestScore {
			best, bestScore = i, score
			continue
		}
		if score == bestScore && s.tieBreak(candidates[i], candidates[best]) {
			best = i
		}
	}
	return best
}

// score computes the weighted multi-objective score of one candidate.
func (s *EnhancedStrategy) score(c SlotCandidate) float64 {
	// Utilization balance: prefer the machine with the least work placed
	// this run, one point per idle-preferred hour.
	score := -s.Weights.UtilizationBalance * c.BusyThisRun.Hours()

	// Setup similarity: prefer a machine already set up for a similar
	// process, scored by required-capability overlap.
	score += s.Weights.SetupSimilarity * 10 * capabilityOverlap(c.Instance.RequiredCapabilities, c.LastCapabilities)

	// Due-date slack: prefer slots finishing comfortably before the due
	// date; finishing late is penalized per day of lateness.
	if c.Instance.DueDate != nil {
		slackDays := c.Instance.DueDate.Sub(c.Slot.End).Hours() / 24
		if slackDays < 0 {
			score += s.Weights.DueDateSlack * 10 * slackDays
		} else {
			capped := slackDays
			if capped > 10 {
				capped = 10
			}
			score += s.Weights.DueDateSlack * capped
		}
	}

	return score
}

// tieBreak prefers the earlier slot, then the lexically smaller machine
// id, keeping the choice deterministic.
func (s *EnhancedStrategy) tieBreak(a, b SlotCandidate) bool {
	if !a.Slot.Start.Equal(b.Slot.Start) {
		return a.Slot.Start.Before(b.Slot.Start)
	}
	return a.Machine.ID < b.Machine.ID
}

// capabilityOverlap returns the fraction of required capabilities shared
// with the machine's last setup, in [0, 1].
func capabilityOverlap(required, last []string) float64 {
	if len(required) == 0 || len(last) == 0 {
		return 0
	}
	lastSet := make(map[string]bool, len(last))
	for _, c := range last {
		lastSet[c] = true
	}
	shared := 0
	for _, c := range required {
		if lastSet[c] {
			shared++
		}
	}
	return float64(shared) / float64(len(required))
}

// StrategyByName resolves a strategy name from configuration.
func StrategyByName(name string) (SlotStrategy, error) {
	switch name {
	case "", "greedy":
		return GreedyStrategy{}, nil
	case "enhanced":
		return NewEnhancedStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, name)
	}
}
