package availability

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/interval"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

// Slot is a bookable start. Start and End are booker-local "HH:MM".
type Slot struct {
	Start        string    `json:"start"`
	End          string    `json:"end"`
	StartInstant time.Time `json:"start_instant"`
}

type SlotParams struct {
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
	MinNotice    time.Duration
	BookerLoc    *time.Location
	Date         tzconv.Date
	Now          time.Time
}

// GenerateSlots walks each window in steps of duration+buffers, anchored on
// the window's schedule start so slots line up with the host's schedule even
// when the window was cut at the booker's midnight. A slot starts inside the
// window, and its pre-buffer stays within the free time the window came from:
// across a clip point it may reach back past Start, after a booking it may
// not. Slots not on Date in the booker's zone, or earlier than
// Now+MinNotice, are skipped.
func GenerateSlots(windows []interval.Interval, p SlotParams) []Slot {
	if p.Duration <= 0 || p.BufferBefore < 0 || p.BufferAfter < 0 || p.BookerLoc == nil {
		return nil
	}
	block := p.Duration + p.BufferBefore + p.BufferAfter
	earliest := p.Now.Add(p.MinNotice)

	var out []Slot
	for _, w := range windows {
		first := w.FreeStart().Add(p.BufferBefore)
		if first.Before(w.Start) {
			first = w.Start
		}
		cursor := w.Anchor().Add(p.BufferBefore)
		if lead := first.Sub(cursor); lead > 0 {
			cursor = cursor.Add((lead + block - 1) / block * block)
		}
		for ; !cursor.Add(p.Duration + p.BufferAfter).After(w.End); cursor = cursor.Add(block) {
			if tzconv.DateOf(cursor, p.BookerLoc) != p.Date {
				continue
			}
			if cursor.Before(earliest) {
				continue
			}
			out = append(out, Slot{
				Start:        tzconv.FormatInstant(cursor, p.BookerLoc),
				End:          tzconv.FormatInstant(cursor.Add(p.Duration), p.BookerLoc),
				StartInstant: cursor.UTC(),
			})
		}
	}
	slices.SortFunc(out, func(a, b Slot) int { return a.StartInstant.Compare(b.StartInstant) })
	return out
}

// FilterNotice drops slots starting before earliest. Used on cached slot lists.
func FilterNotice(slots []Slot, earliest time.Time) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !s.StartInstant.Before(earliest) {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether start is one of the generated slot starts.
func Contains(slots []Slot, start time.Time) bool {
	for _, s := range slots {
		if s.StartInstant.Equal(start) {
			return true
		}
	}
	return false
}
