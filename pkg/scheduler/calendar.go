package scheduler

import (
	"fmt"
	"time"

	"github.com/shopsched/shopsched/pkg/domain/entities"
)

// DefaultHorizonDays bounds the forward search for a feasible slot.
const DefaultHorizonDays = 180

// Slot represents a half-open machine time interval [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// Duration returns the raw calendar length of the slot.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Calendar is the single source of truth for machine working time. Every
// component that needs to know whether an instant is workable (slot
// placement, validation, utilization metrics) asks the calendar rather
// than re-deriving weekend or working-hours logic.
type Calendar struct {
	// WorkingDays holds the weekdays work may be placed on.
	WorkingDays map[time.Weekday]bool
	// HorizonDays bounds how far ahead NextAvailableSlot searches.
	HorizonDays int
}

// NewCalendar creates a calendar with a Monday-Friday working week and
// the default search horizon.
func NewCalendar() *Calendar {
	return &Calendar{
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		HorizonDays: DefaultHorizonDays,
	}
}

// band returns the working-hours band of the day containing t for the
// given machine.
func (c *Calendar) band(m *entities.Machine, t time.Time) (time.Time, time.Time) {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	start := midnight.Add(time.Duration(m.WorkingHours.StartHour) * time.Hour)
	end := midnight.Add(time.Duration(m.WorkingHours.EndHour) * time.Hour)
	return start, end
}

// nextDayStart returns the band start of the calendar day after t.
func (c *Calendar) nextDayStart(m *entities.Machine, t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	return next.Add(time.Duration(m.WorkingHours.StartHour) * time.Hour)
}

// IsWorkingTime reports whether t falls on a working day inside the
// machine's working-hours band.
func (c *Calendar) IsWorkingTime(m *entities.Machine, t time.Time) bool {
	if !c.WorkingDays[t.Weekday()] {
		return false
	}
	bandStart, bandEnd := c.band(m, t)
	return !t.Before(bandStart) && t.Before(bandEnd)
}

// nextWorkingInstant clips t forward to the next instant within working
// time, skipping non-working days and off-hours.
func (c *Calendar) nextWorkingInstant(m *entities.Machine, t time.Time) time.Time {
	for i := 0; i <= c.HorizonDays; i++ {
		if !c.WorkingDays[t.Weekday()] {
			t = c.nextDayStart(m, t)
			continue
		}
		bandStart, bandEnd := c.band(m, t)
		if t.Before(bandStart) {
			return bandStart
		}
		if !t.Before(bandEnd) {
			t = c.nextDayStart(m, t)
			continue
		}
		return t
	}
	return t
}

// windowContaining returns the maintenance window covering t, if any.
func windowContaining(m *entities.Machine, t time.Time) (entities.MaintenanceWindow, bool) {
	for _, w := range m.MaintenanceWindows {
		if !t.Before(w.Start) && t.Before(w.End) {
			return w, true
		}
	}
	return entities.MaintenanceWindow{}, false
}

// nextWindowStart returns the earliest maintenance window starting in
// [t, limit), if any.
func nextWindowStart(m *entities.Machine, t, limit time.Time) (entities.MaintenanceWindow, bool) {
	var best entities.MaintenanceWindow
	found := false
	for _, w := range m.MaintenanceWindows {
		if w.Start.Before(t) || !w.Start.Before(limit) {
			continue
		}
		if !found || w.Start.Before(best.Start) {
			best = w
			found = true
		}
	}
	return best, found
}

// NextAvailableSlot returns the earliest feasible slot of the given
// duration on the machine, starting no earlier than earliest. The walk
// is minute-granular and deterministic: the same inputs always yield the
// same slot. A block either completes within one contiguous maintenance-
// free stretch of a working day or runs to the end of the day's band and
// spills onto following working days. Returns ErrNoCapacity when no slot
// exists within the horizon.
func (c *Calendar) NextAvailableSlot(m *entities.Machine, earliest time.Time, duration time.Duration) (Slot, error) {
	if duration <= 0 {
		return Slot{}, fmt.Errorf("%w: slot duration must be positive, got %v", ErrInvalidInput, duration)
	}

	cursor := earliest
	if m.AvailableFrom.After(cursor) {
		cursor = m.AvailableFrom
	}
	cursor = cursor.Truncate(time.Minute)
	deadline := cursor.AddDate(0, 0, c.HorizonDays)

	for cursor.Before(deadline) {
		cursor = c.nextWorkingInstant(m, cursor)
		if !cursor.Before(deadline) {
			break
		}
		if w, ok := windowContaining(m, cursor); ok {
			cursor = w.End
			continue
		}

		_, bandEnd := c.band(m, cursor)
		gapEnd := bandEnd
		if w, ok := nextWindowStart(m, cursor, bandEnd); ok {
			gapEnd = w.Start
		}

		avail := gapEnd.Sub(cursor)
		if avail <= 0 {
			cursor = gapEnd
			continue
		}
		if duration <= avail {
			return Slot{Start: cursor, End: cursor.Add(duration)}, nil
		}
		if gapEnd.Equal(bandEnd) {
			// The day's tail is free: start here and spill onto the
			// following working days.
			return c.accumulate(m, cursor, duration, deadline)
		}
		// The gap is cut short by maintenance and too small for the
		// block; resume the search after the window.
		cursor = gapEnd
	}

	return Slot{}, fmt.Errorf("%w: machine %s, %v needed from %v",
		ErrNoCapacity, m.ID, duration, earliest)
}

// accumulate consumes working time day by day starting at from, pausing
// at band ends and maintenance windows, until the required duration is
// exhausted.
func (c *Calendar) accumulate(m *entities.Machine, from time.Time, duration time.Duration, deadline time.Time) (Slot, error) {
	slotStart := from
	remaining := duration
	cursor := from

	for cursor.Before(deadline) {
		cursor = c.nextWorkingInstant(m, cursor)
		if w, ok := windowContaining(m, cursor); ok {
			cursor = w.End
			continue
		}

		_, bandEnd := c.band(m, cursor)
		gapEnd := bandEnd
		if w, ok := nextWindowStart(m, cursor, bandEnd); ok {
			gapEnd = w.Start
		}

		avail := gapEnd.Sub(cursor)
		if avail <= 0 {
			cursor = gapEnd
			continue
		}
		if remaining <= avail {
			return Slot{Start: slotStart, End: cursor.Add(remaining)}, nil
		}
		remaining -= avail
		cursor = gapEnd
	}

	return Slot{}, fmt.Errorf("%w: machine %s, %v needed from %v",
		ErrNoCapacity, m.ID, duration, slotStart)
}

// HasMaintenanceConflict reports whether the raw interval [start, end)
// intersects any maintenance window of the machine.
func (c *Calendar) HasMaintenanceConflict(m *entities.Machine, start, end time.Time) bool {
	for _, w := range m.MaintenanceWindows {
		if w.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// WorkingSegments returns the maintenance-free working-time segments of
// the machine within [start, end), in chronological order. Used for
// utilization accounting and out-of-hours validation.
func (c *Calendar) WorkingSegments(m *entities.Machine, start, end time.Time) []Slot {
	var segments []Slot
	cursor := start
	guard := 0

	for cursor.Before(end) && guard <= c.HorizonDays*4 {
		guard++
		cursor = c.nextWorkingInstant(m, cursor)
		if !cursor.Before(end) {
			break
		}
		if w, ok := windowContaining(m, cursor); ok {
			cursor = w.End
			continue
		}
		_, bandEnd := c.band(m, cursor)
		segEnd := bandEnd
		if w, ok := nextWindowStart(m, cursor, bandEnd); ok {
			segEnd = w.Start
		}
		if segEnd.After(end) {
			segEnd = end
		}
		if segEnd.After(cursor) {
			segments = append(segments, Slot{Start: cursor, End: segEnd})
		}
		cursor = segEnd
		if w, ok := windowContaining(m, cursor); ok {
			cursor = w.End
		}
	}

	return segments
}

// WorkingMinutes returns the total maintenance-free working minutes of
// the machine within [start, end).
func (c *Calendar) WorkingMinutes(m *entities.Machine, start, end time.Time) int {
	total := time.Duration(0)
	for _, seg := range c.WorkingSegments(m, start, end) {
		total += seg.Duration()
	}
	return int(total / time.Minute)
}
