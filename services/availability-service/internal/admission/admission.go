// Package admission decides whether a proposed booking may be written.
package admission

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/interval"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

// Proposal is a booking that has not been stored yet.
type Proposal struct {
	Start        time.Time
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
	MinNotice    time.Duration
}

func ProposalFor(et model.EventType, start time.Time) Proposal {
	return Proposal{
		Start:        start,
		Duration:     et.Duration(),
		BufferBefore: et.BufferBefore(),
		BufferAfter:  et.BufferAfter(),
		MinNotice:    et.MinNotice(),
	}
}

// Window is the proposal's reserved span including buffers.
func (p Proposal) Window() interval.Interval {
	return interval.Interval{
		Start: p.Start.Add(-p.BufferBefore),
		End:   p.Start.Add(p.Duration + p.BufferAfter),
	}
}

// Window is an existing booking's reserved span including its own buffers.
func Window(b model.Booking) interval.Interval {
	start, end := b.Blocked()
	return interval.Interval{Start: start, End: end}
}

// Check rejects proposals inside the notice period and proposals whose
// buffered window overlaps any confirmed booking's buffered window.
func Check(p Proposal, existing []model.Booking, now time.Time) error {
	if p.Start.Sub(now) < p.MinNotice {
		return apperr.NoticeViolation(p.MinNotice)
	}
	proposed := p.Window()
	for _, b := range existing {
		if b.Status != model.BookingConfirmed {
			continue
		}
		if interval.Overlaps(proposed, Window(b)) {
			return apperr.SlotConflict(b.ID)
		}
	}
	return nil
}
