// Package schedule derives bounded meeting slots from normalized busy
// time and a working-hours policy. Everything here is pure computation;
// no network, no clock reads.
package schedule

import (
	"fmt"
	"time"

	"github.com/friday-assist/friday/internal/interval"
)

// minutesPerDay bounds working-hours minute offsets.
const minutesPerDay = 24 * 60

// WorkingHours is the per-weekday availability policy. Start and End
// are minutes from midnight within the same calendar day; windows
// spanning midnight are rejected configuration, not wrapped.
type WorkingHours struct {
	StartMinute int
	EndMinute   int
	Days        map[time.Weekday]bool
}

// Validate rejects empty or midnight-spanning windows.
func (wh WorkingHours) Validate() error {
	if wh.StartMinute < 0 || wh.EndMinute > minutesPerDay {
		return fmt.Errorf("working hours out of range: %d-%d", wh.StartMinute, wh.EndMinute)
	}
	if wh.StartMinute >= wh.EndMinute {
		return fmt.Errorf("working hours start (%d) must precede end (%d) within the same day; windows spanning midnight are unsupported", wh.StartMinute, wh.EndMinute)
	}
	return nil
}

// Active reports whether the given weekday is a working day.
func (wh WorkingHours) Active(day time.Weekday) bool {
	return wh.Days[day]
}

// dayWindow builds the working window for the calendar day containing t.
func (wh WorkingHours) dayWindow(t time.Time) interval.Interval {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return interval.Interval{
		Start: midnight.Add(time.Duration(wh.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(wh.EndMinute) * time.Minute),
	}
}

// FreeSlots computes the available meeting windows between from and to.
//
// For each active weekday in the range the day's working window is built
// as a single interval, each overlapping busy interval is expanded by
// the symmetric buffer, the expanded intervals are subtracted from the
// window, and gaps shorter than minDuration are dropped. Slots never
// cross a day boundary. A day fully covered by busy time yields no
// slots. Identical inputs always yield identical output.
func FreeSlots(busy interval.BusySet, wh WorkingHours, from, to time.Time, minDuration, buffer time.Duration) ([]interval.Interval, error) {
	if err := wh.Validate(); err != nil {
		return nil, err
	}
	if minDuration <= 0 {
		return nil, fmt.Errorf("minimum slot duration must be positive, got %s", minDuration)
	}
	if buffer < 0 {
		return nil, fmt.Errorf("buffer must not be negative, got %s", buffer)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("range start %s is not before end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	var slots []interval.Interval
	for day := from; day.Before(to); day = nextDay(day) {
		if !wh.Active(day.Weekday()) {
			continue
		}

		window := wh.dayWindow(day)
		// Clamp the day window to the queried range.
		if window.Start.Before(from) {
			window.Start = from
		}
		if window.End.After(to) {
			window.End = to
		}
		if !window.Start.Before(window.End) {
			continue
		}

		slots = append(slots, dayGaps(busy, window, minDuration, buffer)...)
	}

	return slots, nil
}

// dayGaps subtracts the buffer-expanded busy intervals from one day
// window and keeps the gaps long enough for the requested minimum.
// A window with k overlapping busy intervals yields at most k+1 gaps.
func dayGaps(busy interval.BusySet, window interval.Interval, minDuration, buffer time.Duration) []interval.Interval {
	var gaps []interval.Interval
	cursor := window.Start

	for _, iv := range busy.Overlapping(window) {
		expandedStart := iv.Start.Add(-buffer)
		expandedEnd := iv.End.Add(buffer)

		gapEnd := expandedStart
		if gapEnd.After(window.End) {
			gapEnd = window.End
		}
		if gapEnd.Sub(cursor) >= minDuration {
			gaps = append(gaps, interval.Interval{Start: cursor, End: gapEnd})
		}
		// Clamped so an expansion reaching behind the cursor never
		// produces a negative-length gap.
		if expandedEnd.After(cursor) {
			cursor = expandedEnd
		}
	}

	if window.End.Sub(cursor) >= minDuration {
		gaps = append(gaps, interval.Interval{Start: cursor, End: window.End})
	}
	return gaps
}

// nextDay advances to midnight of the following calendar day.
func nextDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
