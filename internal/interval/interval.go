// Package interval provides the time interval algebra the assistant is
// built on: validated intervals, raw busy-record parsing, and the
// canonical non-overlapping busy set.
package interval

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). Construct with New
// so the start < end invariant holds everywhere an Interval travels.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an Interval, rejecting zero and negative length ranges.
func New(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("interval start %s is not before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// abuts reports whether the intervals touch without overlapping.
func (iv Interval) abuts(other Interval) bool {
	return iv.End.Equal(other.Start) || other.End.Equal(iv.Start)
}

func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339) + " - " + iv.End.Format(time.RFC3339)
}

// Record is one raw busy-time report from the calendar service, exactly
// as it came off the wire. Timestamps are RFC 3339 strings and may be
// malformed or inverted; Normalize decides what survives.
type Record struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BusySet is the canonical form of reported busy time: ascending by
// start, pairwise non-overlapping and non-adjacent. Immutable once
// built; build one per fetch and share it read-only.
type BusySet struct {
	intervals []Interval
}

// Intervals returns a copy of the set's intervals in ascending order.
func (s BusySet) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// Len returns the number of intervals in the set.
func (s BusySet) Len() int {
	return len(s.intervals)
}

// Empty reports whether the set contains no busy time at all, meaning
// the entire window is free.
func (s BusySet) Empty() bool {
	return len(s.intervals) == 0
}

// Overlapping returns the intervals of the set that overlap window, in
// ascending order.
func (s BusySet) Overlapping(window Interval) []Interval {
	var out []Interval
	for _, iv := range s.intervals {
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out
}

// Normalize parses raw busy records into a canonical BusySet in the
// given zone. Records that fail to parse or whose end is not after
// their start are skipped, not fatal; the skip count is returned so the
// caller can report it. The result is independent of input order, and
// normalizing an already-normalized set returns it unchanged.
func Normalize(records []Record, loc *time.Location) (BusySet, int) {
	if loc == nil {
		loc = time.UTC
	}

	skipped := 0
	parsed := make([]Interval, 0, len(records))
	for _, rec := range records {
		start, err := time.Parse(time.RFC3339, rec.Start)
		if err != nil {
			skipped++
			continue
		}
		end, err := time.Parse(time.RFC3339, rec.End)
		if err != nil {
			skipped++
			continue
		}
		iv, err := New(start.In(loc), end.In(loc))
		if err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, iv)
	}

	return FromIntervals(parsed), skipped
}

// FromIntervals builds a BusySet from already-validated intervals,
// sorting and merging any pair that overlaps or touches until no
// further merges apply.
func FromIntervals(intervals []Interval) BusySet {
	if len(intervals) == 0 {
		return BusySet{}
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if last.Overlaps(iv) || last.abuts(iv) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	return BusySet{intervals: merged}
}
