package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

func newTestEngine(opts Options) *Engine {
	if opts.Now.IsZero() {
		opts.Now = at(testMonday, 8, 0)
	}
	return New(opts)
}

func TestEngine_Schedule_ThreeIndependentInstancesOneMachine(t *testing.T) {
	engine := newTestEngine(Options{})

	instances := []entities.ProcessInstance{
		testInstance("A", "turning", 60),
		testInstance("B", "turning", 60),
		testInstance("C", "turning", 60),
	}
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, conflicts: %v", result.Conflicts)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(result.Entries))
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected zero conflicts, got %v", result.Conflicts)
	}

	// Sequential placement: 08:00-09:00, 09:00-10:00, 10:00-11:00.
	for i, e := range result.Entries {
		wantStart := at(testMonday, 8+i, 0)
		wantEnd := at(testMonday, 9+i, 0)
		if !e.StartTime.Equal(wantStart) || !e.EndTime.Equal(wantEnd) {
			t.Errorf("entry %d: expected %v-%v, got %v-%v", i, wantStart, wantEnd, e.StartTime, e.EndTime)
		}
	}

	// 180 busy minutes against a 540-minute working day.
	want := decimal.NewFromInt(180).Div(decimal.NewFromInt(540)).Round(4)
	if !result.Metrics.AverageUtilization.Equal(want) {
		t.Errorf("expected utilization %s, got %s", want, result.Metrics.AverageUtilization)
	}
	if result.Metrics.ScheduledCount != 3 {
		t.Errorf("expected scheduled count 3, got %d", result.Metrics.ScheduledCount)
	}
}

func TestEngine_Schedule_DependencyOrdering(t *testing.T) {
	engine := newTestEngine(Options{})

	// B depends on A. A occupies M1 09:00-11:00 (forced by availableFrom);
	// B has a free machine from 08:00 but must wait for A.
	instances := []entities.ProcessInstance{
		testInstance("A", "turning", 120),
		testInstance("B", "milling", 60, "A"),
	}
	lathe := testMachine("M1", "turning")
	lathe.AvailableFrom = at(testMonday, 9, 0)
	mill := testMachine("M2", "milling")
	machines := []entities.Machine{lathe, mill}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}

	var entryA, entryB *entities.ScheduleEntry
	for i := range result.Entries {
		switch result.Entries[i].ProcessInstanceID {
		case "A":
			entryA = &result.Entries[i]
		case "B":
			entryB = &result.Entries[i]
		}
	}
	if entryA == nil || entryB == nil {
		t.Fatal("missing entries for A or B")
	}
	if !entryA.EndTime.Equal(at(testMonday, 11, 0)) {
		t.Errorf("expected A to end 11:00, got %v", entryA.EndTime)
	}
	if entryB.StartTime.Before(entryA.EndTime) {
		t.Errorf("B starts %v before dependency A completes %v", entryB.StartTime, entryA.EndTime)
	}
}

func TestEngine_Schedule_CyclicDependencyFailsFast(t *testing.T) {
	engine := newTestEngine(Options{})

	instances := []entities.ProcessInstance{
		testInstance("A", "turning", 60, "B"),
		testInstance("B", "turning", 60, "A"),
	}
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if result.Success {
		t.Error("expected success=false")
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected zero placements on cycle, got %d", len(result.Entries))
	}
}

func TestEngine_Schedule_ImpossibleCapabilityFailsOnlyThatInstance(t *testing.T) {
	engine := newTestEngine(Options{})

	impossible := testInstance("X", "turning", 60)
	impossible.RequiredCapabilities = []string{"magic"}
	instances := []entities.ProcessInstance{
		impossible,
		testInstance("A", "turning", 60),
		testInstance("B", "turning", 60),
	}
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 placed entries, got %d", len(result.Entries))
	}
	if result.Metrics.FailedCount != 1 {
		t.Errorf("expected 1 failed instance, got %d", result.Metrics.FailedCount)
	}

	found := false
	for _, c := range result.Conflicts {
		if c.Type == entities.ConflictCapacityExceeded {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a capacity-exceeded conflict, got %v", result.Conflicts)
	}
}

func TestEngine_Schedule_FailedDependencyPropagates(t *testing.T) {
	engine := newTestEngine(Options{})

	impossible := testInstance("A", "grinding", 60)
	dependent := testInstance("B", "turning", 60, "A")
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), []entities.ProcessInstance{impossible, dependent}, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no placements, got %d", len(result.Entries))
	}
	if result.Metrics.FailedCount != 2 {
		t.Errorf("expected both instances failed, got %d", result.Metrics.FailedCount)
	}
}

func TestEngine_Schedule_NoSameMachineOverlapEver(t *testing.T) {
	engine := newTestEngine(Options{})

	// Enough load to force multi-day spills and repeated conflict
	// re-probing on two machines.
	var instances []entities.ProcessInstance
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for i, n := range names {
		inst := testInstance(n, "turning", 150+i*30)
		if i >= 4 {
			inst.Dependencies = []string{names[i-4]}
		}
		instances = append(instances, inst)
	}
	machines := []entities.Machine{testMachine("M1", "turning"), testMachine("M2", "turning")}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(result.Entries) != len(instances) {
		t.Fatalf("expected all %d placed, got %d (conflicts: %v)", len(instances), len(result.Entries), result.Conflicts)
	}

	for i := range result.Entries {
		for j := i + 1; j < len(result.Entries); j++ {
			if result.Entries[i].MachineID != result.Entries[j].MachineID {
				continue
			}
			if result.Entries[i].Overlaps(&result.Entries[j]) {
				t.Errorf("entries %s and %s overlap on machine %s",
					result.Entries[i].ID, result.Entries[j].ID, result.Entries[i].MachineID)
			}
		}
	}
}

func TestEngine_Schedule_PriorityOrderWithinTier(t *testing.T) {
	engine := newTestEngine(Options{})

	normal := testInstance("N", "turning", 60)
	critical := testInstance("C", "turning", 60)
	critical.CustomerPriority = entities.TierCritical

	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), []entities.ProcessInstance{normal, critical}, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	var entryC, entryN *entities.ScheduleEntry
	for i := range result.Entries {
		switch result.Entries[i].ProcessInstanceID {
		case "C":
			entryC = &result.Entries[i]
		case "N":
			entryN = &result.Entries[i]
		}
	}
	if entryC == nil || entryN == nil {
		t.Fatal("missing entries")
	}
	if !entryC.StartTime.Before(entryN.StartTime) {
		t.Errorf("critical instance must be placed first: C at %v, N at %v", entryC.StartTime, entryN.StartTime)
	}
}

func TestEngine_Schedule_BudgetExceeded(t *testing.T) {
	engine := newTestEngine(Options{Budget: time.Nanosecond})

	instances := []entities.ProcessInstance{
		testInstance("A", "turning", 60),
		testInstance("B", "turning", 60),
	}
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), instances, machines)
	if !errors.Is(err, ErrSchedulingTimeout) {
		t.Fatalf("expected ErrSchedulingTimeout, got %v", err)
	}
	if result.Success {
		t.Error("expected success=false on timeout")
	}

	found := false
	for _, c := range result.Conflicts {
		if c.Type == entities.ConflictTimeout {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a timeout conflict, got %v", result.Conflicts)
	}
}

func TestEngine_Schedule_InvalidInputRejectedBeforePlacement(t *testing.T) {
	engine := newTestEngine(Options{})

	bad := testInstance("A", "turning", 60)
	bad.Quantity = 0
	machines := []entities.Machine{testMachine("M1", "turning")}

	result, err := engine.Schedule(context.Background(), []entities.ProcessInstance{bad}, machines)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if result.Success || len(result.Entries) != 0 {
		t.Errorf("expected empty failed result, got %+v", result)
	}
}

func TestEngine_Schedule_DoesNotMutateInputs(t *testing.T) {
	engine := newTestEngine(Options{})

	instances := []entities.ProcessInstance{testInstance("A", "turning", 60)}
	machines := []entities.Machine{testMachine("M1", "turning")}
	workloadBefore := machines[0].CurrentWorkload
	depsBefore := len(instances[0].Dependencies)

	if _, err := engine.Schedule(context.Background(), instances, machines); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if machines[0].CurrentWorkload != workloadBefore {
		t.Error("engine mutated machine workload")
	}
	if len(instances[0].Dependencies) != depsBefore {
		t.Error("engine mutated instance dependencies")
	}
}

func TestEngine_Schedule_SetupAndCycleTimes(t *testing.T) {
	engine := newTestEngine(Options{})

	inst := testInstance("A", "turning", 0)
	inst.SetupTimeMinutes = 30
	inst.CycleTimeMinutes = 15
	inst.Quantity = 6 // 30 + 90 = 120 minutes

	machines := []entities.Machine{testMachine("M1", "turning")}
	result, err := engine.Schedule(context.Background(), []entities.ProcessInstance{inst}, machines)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if got := e.EndTime.Sub(e.StartTime); got != 2*time.Hour {
		t.Errorf("expected 2h placement, got %v", got)
	}
}
