package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/admission"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
	"go.opentelemetry.io/otel/attribute"
)

// Buffers and notice are capped at one day, so any booking that can
// conflict with a proposal lies within this distance of it.
const admissionLookaround = 24 * time.Hour

type CreateBookingRequest struct {
	HostID         string    `json:"host_id" validate:"required,uuid"`
	EventTypeID    string    `json:"event_type_id" validate:"required,uuid"`
	GuestName      string    `json:"guest_name" validate:"required,max=200"`
	GuestEmail     string    `json:"guest_email" validate:"required,email"`
	StartInstant   time.Time `json:"start_instant" validate:"required"`
	BookerTimezone string    `json:"booker_timezone"`
}

// CreateBooking admits a booking for an exact start instant. Of two
// concurrent requests whose buffered windows overlap, at most one succeeds;
// the other gets a slot conflict.
func (e *Engine) CreateBooking(ctx context.Context, req CreateBookingRequest) (b model.Booking, err error) {
	ctx, span := e.startSpan(ctx, "engine.CreateBooking",
		attribute.String("host.id", req.HostID),
		attribute.String("event_type.id", req.EventTypeID))
	defer func() {
		otelx.RecordError(span, err)
		span.End()
	}()

	req.HostID = strings.TrimSpace(req.HostID)
	req.EventTypeID = strings.TrimSpace(req.EventTypeID)
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	req.BookerTimezone = strings.TrimSpace(req.BookerTimezone)
	if req.BookerTimezone == "" {
		req.BookerTimezone = "UTC"
	}
	if err := validateStruct(req); err != nil {
		return b, err
	}
	bookerLoc, err := e.zones.Load(req.BookerTimezone)
	if err != nil {
		return b, err
	}
	start := req.StartInstant.UTC()

	ctx, cancel := e.storageContext(ctx)
	defer cancel()

	host, et, hostLoc, err := e.loadEventType(ctx, req.HostID, req.EventTypeID)
	if err != nil {
		return b, err
	}
	proposal := admission.ProposalFor(et, start)
	if err := admission.Check(proposal, nil, e.now()); err != nil {
		return b, err
	}

	if e.enforceSlot {
		if err := e.requireScheduledSlot(ctx, host, et, hostLoc, bookerLoc, start); err != nil {
			return b, err
		}
	}

	b = model.Booking{
		HostID:              host.ID,
		EventTypeID:         et.ID,
		GuestName:           req.GuestName,
		GuestEmail:          req.GuestEmail,
		Date:                tzconv.DateOf(start, time.UTC),
		StartAt:             start,
		EndAt:               start.Add(et.Duration()),
		Status:              model.BookingConfirmed,
		BookerTimezone:      bookerLoc.String(),
		BufferBeforeMinutes: et.BufferBeforeMinutes,
		BufferAfterMinutes:  et.BufferAfterMinutes,
	}

	lockDate := tzconv.DateOf(start, hostLoc)
	err = e.store.WithAdmissionLock(ctx, host.ID, lockDate, func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.ConfirmedBookings(ctx, host.ID, start.Add(-admissionLookaround), b.EndAt.Add(admissionLookaround))
		if err != nil {
			return err
		}
		if err := admission.Check(proposal, existing, e.now()); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		payload, err := json.Marshal(outbox.BookingCreated{
			BookingID:      b.ID,
			HostID:         b.HostID,
			EventTypeID:    b.EventTypeID,
			GuestName:      b.GuestName,
			GuestEmail:     b.GuestEmail,
			StartAt:        b.StartAt,
			EndAt:          b.EndAt,
			BookerTimezone: b.BookerTimezone,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, outbox.Event{
			AggregateType: "booking",
			AggregateID:   b.ID,
			EventType:     outbox.TopicBookingCreated,
			Payload:       payload,
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrConflict):
		return model.Booking{}, apperr.SlotConflict("")
	default:
		return model.Booking{}, apperr.Storage("create booking", err)
	}

	span.SetAttributes(attribute.String("booking.id", b.ID))
	e.invalidate(ctx, host.ID)
	return b, nil
}

// requireScheduledSlot checks start against the host's slot grid for the
// booker's day. Existing bookings are ignored here; admission reports those
// as conflicts.
func (e *Engine) requireScheduledSlot(ctx context.Context, host model.Host, et model.EventType, hostLoc, bookerLoc *time.Location, start time.Time) error {
	date := tzconv.DateOf(start, bookerLoc)
	slots, err := e.computeSlots(ctx, host, et, hostLoc, bookerLoc, date, e.now(), false)
	if err != nil {
		return err
	}
	if !availability.Contains(slots, start) {
		return apperr.Validation("start_instant", "slot not available")
	}
	return nil
}

func (e *Engine) invalidate(ctx context.Context, hostID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateHost(ctx, hostID); err != nil {
		e.logger.Warn("availability cache invalidation failed", "host_id", hostID, "err", err)
	}
}
