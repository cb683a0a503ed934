package scheduler

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

func TestMachineMatcher_Filtering(t *testing.T) {
	mm := NewMachineMatcher()

	turning := testMachine("M1", "turning")
	milling := testMachine("M2", "milling")
	inactive := testMachine("M3", "turning")
	inactive.IsActive = false
	capable := testMachine("M4", "turning")
	capable.Capabilities = []string{"live-tooling", "bar-feed"}

	machines := []entities.Machine{turning, milling, inactive, capable}

	inst := testInstance("PI", "turning", 60)
	got := mm.CandidateMachines(&inst, machines)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	inst.RequiredCapabilities = []string{"live-tooling"}
	got = mm.CandidateMachines(&inst, machines)
	if len(got) != 1 || got[0].ID != "M4" {
		t.Fatalf("expected only M4, got %v", got)
	}

	inst.RequiredCapabilities = []string{"live-tooling", "y-axis"}
	if got = mm.CandidateMachines(&inst, machines); len(got) != 0 {
		t.Fatalf("expected no candidates for unsupported capability, got %v", got)
	}
}

func TestMachineMatcher_Ranking(t *testing.T) {
	mm := NewMachineMatcher()

	busy := testMachine("M1", "turning")
	busy.CurrentWorkload = 5
	idle := testMachine("M2", "turning")
	idle.CurrentWorkload = 0
	idleCheap := testMachine("M3", "turning")
	idleCheap.CurrentWorkload = 0
	idleCheap.HourlyRate = decimal.NewFromInt(40)

	inst := testInstance("PI", "turning", 60)
	got := mm.CandidateMachines(&inst, []entities.Machine{busy, idle, idleCheap})
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}

	// Least workload first, cheaper rate breaks the tie, busy machine last.
	want := []string{"M3", "M2", "M1"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestMachineMatcher_DeterministicOnFullTie(t *testing.T) {
	mm := NewMachineMatcher()

	a := testMachine("MB", "turning")
	b := testMachine("MA", "turning")

	inst := testInstance("PI", "turning", 60)
	got := mm.CandidateMachines(&inst, []entities.Machine{a, b})
	if got[0].ID != "MA" || got[1].ID != "MB" {
		t.Errorf("expected id tie-break MA before MB, got %s, %s", got[0].ID, got[1].ID)
	}
}
