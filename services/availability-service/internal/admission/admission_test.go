package admission

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func clock(h, m int) time.Time { return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func booking(id string, sh, sm, eh, em, before, after int) model.Booking {
	return model.Booking{
		ID:                  id,
		StartAt:             clock(sh, sm),
		EndAt:               clock(eh, em),
		Status:              model.BookingConfirmed,
		BufferBeforeMinutes: before,
		BufferAfterMinutes:  after,
	}
}

func TestNoticeViolation(t *testing.T) {
	p := Proposal{Start: clock(10, 0), Duration: 30 * time.Minute, MinNotice: 2 * time.Hour}
	err := Check(p, nil, clock(8, 30))
	if !errors.Is(err, apperr.ErrNoticeViolation) {
		t.Fatalf("expected notice violation, got %v", err)
	}
	if d, _ := apperr.NoticeOf(err); d != 2*time.Hour {
		t.Fatalf("expected required notice 2h, got %s", d)
	}
	if err := Check(p, nil, clock(8, 0)); err != nil {
		t.Fatalf("exactly min notice ahead should pass, got %v", err)
	}
}

func TestConflictUsesExistingBuffers(t *testing.T) {
	existing := []model.Booking{booking("b-1", 12, 0, 12, 30, 15, 15)}

	// 12:30 + 15m buffer blocks until 12:45
	err := Check(Proposal{Start: clock(12, 30), Duration: 30 * time.Minute}, existing, monday)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.ErrSlotConflict || ae.ConflictID != "b-1" {
		t.Fatalf("expected conflict with b-1, got %v", err)
	}
	if err := Check(Proposal{Start: clock(12, 45), Duration: 30 * time.Minute}, existing, monday); err != nil {
		t.Fatalf("12:45 should be free, got %v", err)
	}
	if err := Check(Proposal{Start: clock(11, 15), Duration: 30 * time.Minute}, existing, monday); err != nil {
		t.Fatalf("11:15-11:45 touches the buffer only, got %v", err)
	}
}

func TestConflictUsesProposalBuffers(t *testing.T) {
	existing := []model.Booking{booking("b-1", 12, 0, 12, 30, 0, 0)}
	p := Proposal{Start: clock(12, 40), Duration: 30 * time.Minute, BufferBefore: 15 * time.Minute}
	if err := Check(p, existing, monday); !errors.Is(err, apperr.ErrSlotConflict) {
		t.Fatalf("proposal's own buffer should collide, got %v", err)
	}
}

func TestCancelledBookingsIgnored(t *testing.T) {
	b := booking("b-1", 12, 0, 12, 30, 0, 0)
	b.Status = model.BookingCancelled
	if err := Check(Proposal{Start: clock(12, 0), Duration: 30 * time.Minute}, []model.Booking{b}, monday); err != nil {
		t.Fatalf("cancelled booking must not block, got %v", err)
	}
}
