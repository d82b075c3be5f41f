package interval

import (
	"testing"
	"time"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		t.Fatalf("bad start %q: %v", start, err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		t.Fatalf("bad end %q: %v", end, err)
	}
	iv, err := New(s, e)
	if err != nil {
		t.Fatalf("failed to build interval: %v", err)
	}
	return iv
}

func TestNewRejectsInvertedAndZeroLength(t *testing.T) {
	at := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)

	if _, err := New(at, at); err == nil {
		t.Error("expected zero-length interval to be rejected")
	}
	if _, err := New(at.Add(time.Hour), at); err == nil {
		t.Error("expected inverted interval to be rejected")
	}
	if _, err := New(at, at.Add(time.Minute)); err != nil {
		t.Errorf("expected valid interval, got error: %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	a := mustInterval(t, "2026-06-02T09:00:00Z", "2026-06-02T10:00:00Z")
	b := mustInterval(t, "2026-06-02T09:30:00Z", "2026-06-02T11:00:00Z")
	c := mustInterval(t, "2026-06-02T10:00:00Z", "2026-06-02T11:00:00Z")

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("expected a and b to overlap")
	}
	// Half-open: touching intervals do not overlap.
	if a.Overlaps(c) {
		t.Error("expected touching intervals not to overlap")
	}
}

func TestNormalizeMergesOverlappingAndAdjacent(t *testing.T) {
	// Scenario from the free/busy engine: two reports that touch at
	// 10:00 collapse into a single spanning interval.
	records := []Record{
		{Start: "2026-06-02T09:00:00Z", End: "2026-06-02T10:00:00Z"},
		{Start: "2026-06-02T10:00:00Z", End: "2026-06-02T11:30:00Z"},
	}

	set, skipped := Normalize(records, time.UTC)
	if skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", skipped)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 merged interval, got %d", set.Len())
	}

	got := set.Intervals()[0]
	want := mustInterval(t, "2026-06-02T09:00:00Z", "2026-06-02T11:30:00Z")
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNormalizeSkipsMalformedRecords(t *testing.T) {
	records := []Record{
		{Start: "not-a-timestamp", End: "2026-06-02T10:00:00Z"},
		{Start: "2026-06-02T09:00:00Z", End: "also bad"},
		{Start: "2026-06-02T12:00:00Z", End: "2026-06-02T11:00:00Z"}, // inverted
		{Start: "2026-06-02T14:00:00Z", End: "2026-06-02T14:00:00Z"}, // zero length
		{Start: "2026-06-02T15:00:00Z", End: "2026-06-02T16:00:00Z"}, // fine
	}

	set, skipped := Normalize(records, time.UTC)
	if skipped != 4 {
		t.Errorf("expected 4 skipped records, got %d", skipped)
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 surviving interval, got %d", set.Len())
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	set, skipped := Normalize(nil, time.UTC)
	if skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", skipped)
	}
	if !set.Empty() {
		t.Error("expected empty set for empty input")
	}
}

func TestNormalizeOrderIndependent(t *testing.T) {
	records := []Record{
		{Start: "2026-06-02T13:00:00Z", End: "2026-06-02T15:45:00Z"},
		{Start: "2026-06-02T09:00:00Z", End: "2026-06-02T10:30:00Z"},
		{Start: "2026-06-02T10:00:00Z", End: "2026-06-02T11:00:00Z"},
	}
	reversed := []Record{records[2], records[1], records[0]}

	a, _ := Normalize(records, time.UTC)
	b, _ := Normalize(reversed, time.UTC)

	if a.Len() != b.Len() {
		t.Fatalf("permuted input produced different set sizes: %d vs %d", a.Len(), b.Len())
	}
	ai, bi := a.Intervals(), b.Intervals()
	for i := range ai {
		if !ai[i].Start.Equal(bi[i].Start) || !ai[i].End.Equal(bi[i].End) {
			t.Errorf("interval %d differs: %s vs %s", i, ai[i], bi[i])
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	records := []Record{
		{Start: "2026-06-02T09:00:00Z", End: "2026-06-02T10:30:00Z"},
		{Start: "2026-06-02T10:00:00Z", End: "2026-06-02T12:00:00Z"},
		{Start: "2026-06-02T14:00:00Z", End: "2026-06-02T15:00:00Z"},
	}

	once, _ := Normalize(records, time.UTC)
	twice := FromIntervals(once.Intervals())

	if once.Len() != twice.Len() {
		t.Fatalf("renormalizing changed set size: %d vs %d", once.Len(), twice.Len())
	}
	oi, ti := once.Intervals(), twice.Intervals()
	for i := range oi {
		if oi[i] != ti[i] {
			t.Errorf("interval %d changed on renormalization: %s vs %s", i, oi[i], ti[i])
		}
	}
}

func TestNormalizeConvertsToCanonicalZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	records := []Record{
		{Start: "2026-06-02T03:30:00Z", End: "2026-06-02T05:00:00Z"},
	}

	set, _ := Normalize(records, loc)
	got := set.Intervals()[0]
	if got.Start.Location() != loc {
		t.Errorf("expected canonical zone %v, got %v", loc, got.Start.Location())
	}
	if got.Start.Hour() != 9 {
		t.Errorf("expected 09:00 IST, got %02d:%02d", got.Start.Hour(), got.Start.Minute())
	}
}

func TestOverlapping(t *testing.T) {
	set, _ := Normalize([]Record{
		{Start: "2026-06-02T09:00:00Z", End: "2026-06-02T10:00:00Z"},
		{Start: "2026-06-03T09:00:00Z", End: "2026-06-03T10:00:00Z"},
	}, time.UTC)

	day := mustInterval(t, "2026-06-02T00:00:00Z", "2026-06-03T00:00:00Z")
	within := set.Overlapping(day)
	if len(within) != 1 {
		t.Fatalf("expected 1 interval overlapping the day window, got %d", len(within))
	}
	if within[0].Start.Day() != 2 {
		t.Errorf("expected the June 2 interval, got %s", within[0])
	}
}
