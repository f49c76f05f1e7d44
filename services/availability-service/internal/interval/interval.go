// Package interval implements set operations on half-open [Start, End) time intervals.
package interval

import (
	"slices"
	"time"
)

// Interval is [Start, End). OriginalStart, when set, is the start of the
// schedule window it came from; slot stepping anchors on it. Unclipped, when
// set, is where the free time really began before Clip cut it at a range
// boundary.
type Interval struct {
	Start         time.Time
	End           time.Time
	OriginalStart time.Time
	Unclipped     time.Time
}

// Anchor is OriginalStart, or Start when the interval was never clipped.
func (iv Interval) Anchor() time.Time {
	if iv.OriginalStart.IsZero() {
		return iv.Start
	}
	return iv.OriginalStart
}

// FreeStart is Unclipped, or Start when the interval was not clipped.
func (iv Interval) FreeStart() time.Time {
	if iv.Unclipped.IsZero() {
		return iv.Start
	}
	return iv.Unclipped
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Empty() bool {
	return !iv.Start.Before(iv.End)
}

// Overlaps is the half-open overlap test: adjacent intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clip restricts iv to [lo, hi) and records the pre-clip start. The second
// result is false when nothing is left.
func Clip(iv Interval, lo, hi time.Time) (Interval, bool) {
	out := Interval{Start: iv.Start, End: iv.End, OriginalStart: iv.Anchor(), Unclipped: iv.Unclipped}
	if out.Start.Before(lo) {
		out.Unclipped = iv.FreeStart()
		out.Start = lo
	}
	if out.End.After(hi) {
		out.End = hi
	}
	return out, !out.Empty()
}

// Merge sorts by start and combines overlapping or touching intervals. The
// earliest OriginalStart of the combined inputs is kept. The input slice is
// not modified.
func Merge(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})

	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start.After(cur.End) {
			out = append(out, cur)
			cur = next
			continue
		}
		if next.End.After(cur.End) {
			cur.End = next.End
		}
		cur.OriginalStart = earliest(cur.OriginalStart, next.OriginalStart)
		if next.Start.Equal(cur.Start) && next.FreeStart().Before(cur.FreeStart()) {
			cur.Unclipped = next.FreeStart()
		}
	}
	return append(out, cur)
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}

// Subtract removes removed from every interval, splitting where needed.
// Remainders keep their interval's OriginalStart. A right remainder starts at
// real unavailability, so it is no longer considered clipped.
func Subtract(in []Interval, removed Interval) []Interval {
	out := make([]Interval, 0, len(in)+1)
	for _, iv := range in {
		if !Overlaps(iv, removed) {
			out = append(out, iv)
			continue
		}
		if removed.Start.After(iv.Start) {
			out = append(out, Interval{Start: iv.Start, End: removed.Start, OriginalStart: iv.OriginalStart, Unclipped: iv.Unclipped})
		}
		if removed.End.Before(iv.End) {
			out = append(out, Interval{Start: removed.End, End: iv.End, OriginalStart: iv.OriginalStart})
		}
	}
	return out
}

// Measure is the total duration covered by the union of in.
func Measure(in []Interval) time.Duration {
	var total time.Duration
	for _, iv := range Merge(in) {
		total += iv.Duration()
	}
	return total
}
