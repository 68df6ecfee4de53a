package domain

import "time"

// Slot is a candidate appointment start time within a professional's
// working window. Slots are derived on demand and never persisted.
type Slot struct {
	Start     time.Time
	Available bool
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Half-open on both sides, so back-to-back bookings do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// WorkingWindow is a professional's daily working hours plus the step at
// which candidate slots are generated. Open and Close are offsets from
// midnight.
type WorkingWindow struct {
	Open  time.Duration
	Close time.Duration
	Step  time.Duration
}

// DefaultWorkingWindow is 08:00-20:00 with 30-minute slots.
var DefaultWorkingWindow = WorkingWindow{
	Open:  8 * time.Hour,
	Close: 20 * time.Hour,
	Step:  30 * time.Minute,
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildDaySlots enumerates candidate start times across the window for the
// given date, stepping by win.Step and stopping once the service would run
// past closing time. A candidate is unavailable when it is already in the
// past (today only) or when its interval overlaps any busy interval.
func BuildDaySlots(win WorkingWindow, date time.Time, serviceDuration time.Duration, busy []Interval, now time.Time) []Slot {
	day := DateOf(date)
	today := day.Equal(DateOf(now))

	var slots []Slot
	for offset := win.Open; offset+serviceDuration <= win.Close; offset += win.Step {
		start := day.Add(offset)
		end := start.Add(serviceDuration)

		available := true
		if today && start.Before(now) {
			available = false
		}
		if available {
			for _, b := range busy {
				if Overlaps(start, end, b.Start, b.End) {
					available = false
					break
				}
			}
		}

		slots = append(slots, Slot{Start: start, Available: available})
	}
	return slots
}
