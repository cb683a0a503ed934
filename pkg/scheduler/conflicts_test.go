package scheduler

import (
	"testing"
	"time"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

func TestConflictDetector_DetectConflicts_Overlap(t *testing.T) {
	d := NewConflictDetector()

	entries := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E2", "M1", "PI2", at(testMonday, 9, 0), at(testMonday, 11, 0)),
		testEntry("E3", "M2", "PI3", at(testMonday, 9, 0), at(testMonday, 11, 0)),
	}

	conflicts := d.DetectConflicts(entries)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Type != entities.ConflictDoubleBooking {
		t.Errorf("expected double-booking conflict, got %s", c.Type)
	}
	if len(c.AffectedEntries) != 2 || c.AffectedEntries[0] != "E1" || c.AffectedEntries[1] != "E2" {
		t.Errorf("expected affected entries [E1 E2], got %v", c.AffectedEntries)
	}
	if c.SuggestedResolution == nil {
		t.Fatal("expected a suggested resolution")
	}
	if !c.SuggestedResolution.ProposedStart.Equal(at(testMonday, 10, 0)) {
		t.Errorf("expected proposed start 10:00 (earlier entry end), got %v", c.SuggestedResolution.ProposedStart)
	}
}

func TestConflictDetector_DetectConflicts_BackToBackIsClean(t *testing.T) {
	d := NewConflictDetector()

	entries := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E2", "M1", "PI2", at(testMonday, 10, 0), at(testMonday, 12, 0)),
	}

	if conflicts := d.DetectConflicts(entries); len(conflicts) != 0 {
		t.Errorf("expected no conflicts for back-to-back entries, got %v", conflicts)
	}
}

func TestConflictDetector_DetectConflicts_MultipleOverlapsOneEntry(t *testing.T) {
	d := NewConflictDetector()

	// E1 spans the day and collides with both later entries.
	entries := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 16, 0)),
		testEntry("E2", "M1", "PI2", at(testMonday, 9, 0), at(testMonday, 10, 0)),
		testEntry("E3", "M1", "PI3", at(testMonday, 11, 0), at(testMonday, 12, 0)),
	}

	conflicts := d.DetectConflicts(entries)
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d: %v", len(conflicts), conflicts)
	}
}

func TestConflictDetector_DetectConflicts_IgnoresNonOccupyingEntries(t *testing.T) {
	d := NewConflictDetector()

	cancelled := testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 12, 0))
	cancelled.Status = entities.StatusCancelled
	completed := testEntry("E2", "M1", "PI2", at(testMonday, 8, 0), at(testMonday, 12, 0))
	completed.Status = entities.StatusCompleted

	entries := []entities.ScheduleEntry{
		cancelled,
		completed,
		testEntry("E3", "M1", "PI3", at(testMonday, 9, 0), at(testMonday, 11, 0)),
	}

	if conflicts := d.DetectConflicts(entries); len(conflicts) != 0 {
		t.Errorf("cancelled/completed entries must not conflict, got %v", conflicts)
	}
}

func TestConflictDetector_DetectConflicts_Idempotent(t *testing.T) {
	d := NewConflictDetector()

	entries := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E2", "M1", "PI2", at(testMonday, 9, 0), at(testMonday, 11, 0)),
		testEntry("E3", "M2", "PI3", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E4", "M2", "PI4", at(testMonday, 9, 30), at(testMonday, 10, 30)),
	}

	first := d.DetectConflicts(entries)
	second := d.DetectConflicts(entries)
	if len(first) != len(second) {
		t.Fatalf("conflict count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Description != second[i].Description {
			t.Errorf("conflict %d changed between runs: %q vs %q", i, first[i].Description, second[i].Description)
		}
	}
}

func TestConflictDetector_DetectIncremental(t *testing.T) {
	d := NewConflictDetector()

	existing := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E2", "M2", "PI2", at(testMonday, 8, 0), at(testMonday, 10, 0)),
	}

	clean := testEntry("E3", "M1", "PI3", at(testMonday, 10, 0), at(testMonday, 12, 0))
	if conflicts := d.DetectIncremental(existing, clean); len(conflicts) != 0 {
		t.Errorf("expected clean candidate, got %v", conflicts)
	}

	colliding := testEntry("E4", "M1", "PI4", at(testMonday, 9, 0), at(testMonday, 11, 0))
	conflicts := d.DetectIncremental(existing, colliding)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	found := false
	for _, id := range conflicts[0].AffectedEntries {
		if id == "E1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E1 among affected entries, got %v", conflicts[0].AffectedEntries)
	}
}

func TestConflictDetector_Buffer(t *testing.T) {
	d := &ConflictDetector{Buffer: 15 * time.Minute}

	entries := []entities.ScheduleEntry{
		testEntry("E1", "M1", "PI1", at(testMonday, 8, 0), at(testMonday, 10, 0)),
		testEntry("E2", "M1", "PI2", at(testMonday, 9, 0), at(testMonday, 11, 0)),
	}

	conflicts := d.DetectConflicts(entries)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	want := at(testMonday, 10, 15)
	if !conflicts[0].SuggestedResolution.ProposedStart.Equal(want) {
		t.Errorf("expected proposed start %v with buffer, got %v",
			want, conflicts[0].SuggestedResolution.ProposedStart)
	}
}

func TestConflictDetector_DetectDependencyConflicts(t *testing.T) {
	d := NewConflictDetector()

	instances := []entities.ProcessInstance{
		testInstance("A", "turning", 120),
		testInstance("B", "turning", 60, "A"),
	}

	entries := []entities.ScheduleEntry{
		testEntry("EA", "M1", "A", at(testMonday, 9, 0), at(testMonday, 11, 0)),
		testEntry("EB", "M2", "B", at(testMonday, 10, 0), at(testMonday, 11, 0)),
	}

	conflicts := d.DetectDependencyConflicts(entries, instances)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 dependency conflict, got %d: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Type != entities.ConflictDependencyViolation {
		t.Errorf("expected dependency violation, got %s", c.Type)
	}
	if c.SuggestedResolution == nil || !c.SuggestedResolution.ProposedStart.Equal(at(testMonday, 11, 0)) {
		t.Errorf("expected proposed start at dependency completion 11:00, got %+v", c.SuggestedResolution)
	}

	// Shifting B past A's completion clears the conflict.
	entries[1].StartTime = at(testMonday, 11, 0)
	entries[1].EndTime = at(testMonday, 12, 0)
	if conflicts := d.DetectDependencyConflicts(entries, instances); len(conflicts) != 0 {
		t.Errorf("expected no conflicts after shift, got %v", conflicts)
	}
}
