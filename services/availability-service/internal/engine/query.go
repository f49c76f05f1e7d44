package engine

import (
	"context"
	"strings"
	"time"

	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type AvailabilityQuery struct {
	HostID         string `json:"host_id" validate:"required,uuid"`
	EventTypeID    string `json:"event_type_id" validate:"required,uuid"`
	Date           string `json:"date" validate:"required"`
	BookerTimezone string `json:"timezone" validate:"required"`
}

type AvailabilityResult struct {
	Date  tzconv.Date
	Slots []availability.Slot
}

// QueryAvailability lists the bookable slots of an event type on one of the
// booker's calendar days.
func (e *Engine) QueryAvailability(ctx context.Context, q AvailabilityQuery) (res AvailabilityResult, err error) {
	ctx, span := e.startSpan(ctx, "engine.QueryAvailability",
		attribute.String("host.id", q.HostID),
		attribute.String("event_type.id", q.EventTypeID),
		attribute.String("date", q.Date))
	defer func() {
		otelx.RecordError(span, err)
		span.End()
	}()

	q.HostID = strings.TrimSpace(q.HostID)
	q.EventTypeID = strings.TrimSpace(q.EventTypeID)
	q.Date = strings.TrimSpace(q.Date)
	q.BookerTimezone = strings.TrimSpace(q.BookerTimezone)
	if err := validateStruct(q); err != nil {
		return res, err
	}
	date, err := tzconv.ParseDate(q.Date)
	if err != nil {
		return res, err
	}
	bookerLoc, err := e.zones.Load(q.BookerTimezone)
	if err != nil {
		return res, err
	}
	res.Date = date

	ctx, cancel := e.storageContext(ctx)
	defer cancel()

	host, et, hostLoc, err := e.loadEventType(ctx, q.HostID, q.EventTypeID)
	if err != nil {
		return res, err
	}

	now := e.now()
	if date.Before(tzconv.DateOf(now, bookerLoc)) {
		res.Slots = []availability.Slot{}
		return res, nil
	}

	key := cache.SlotsKey{HostID: host.ID, EventTypeID: et.ID, Date: date, Timezone: bookerLoc.String()}
	gen, cached, hit := e.cachedSlots(ctx, key)
	if hit {
		res.Slots = nonNil(availability.FilterNotice(cached, now.Add(et.MinNotice())))
		return res, nil
	}

	slots, err := e.computeSlots(ctx, host, et, hostLoc, bookerLoc, date, now, true)
	if err != nil {
		return res, err
	}
	if e.cache != nil && gen >= 0 {
		if err := e.cache.StoreSlots(ctx, key, gen, slots); err != nil {
			e.logger.Warn("availability cache store failed", "host_id", host.ID, "err", err)
		}
	}
	res.Slots = nonNil(slots)
	return res, nil
}

func nonNil(slots []availability.Slot) []availability.Slot {
	if slots == nil {
		return []availability.Slot{}
	}
	return slots
}

// cachedSlots returns gen -1 when the cache is absent or unreachable.
func (e *Engine) cachedSlots(ctx context.Context, key cache.SlotsKey) (int64, []availability.Slot, bool) {
	if e.cache == nil {
		return -1, nil, false
	}
	gen, err := e.cache.Generation(ctx, key.HostID)
	if err != nil {
		e.logger.Warn("availability cache unavailable", "host_id", key.HostID, "err", err)
		return -1, nil, false
	}
	slots, hit, err := e.cache.Slots(ctx, key, gen)
	if err != nil {
		e.logger.Warn("availability cache read failed", "host_id", key.HostID, "err", err)
		return gen, nil, false
	}
	return gen, slots, hit
}

// computeSlots runs the window builder and slot generator for one booker day.
// withBookings=false yields the schedule's slot grid ignoring existing bookings.
func (e *Engine) computeSlots(ctx context.Context, host model.Host, et model.EventType, hostLoc, bookerLoc *time.Location,
	date tzconv.Date, now time.Time, withBookings bool) ([]availability.Slot, error) {
	searchStart, searchEnd := tzconv.DayBoundsUTC(date, bookerLoc)
	hostDate := availability.HostDay(searchStart, searchEnd, hostLoc)

	in := availability.WindowInput{
		SearchStart: searchStart,
		SearchEnd:   searchEnd,
		HostDate:    hostDate,
		HostLoc:     hostLoc,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Rules, err = e.store.WeeklyRules(gctx, host.ID, hostDate.Weekday())
		return err
	})
	g.Go(func() error {
		var err error
		in.Overrides, err = e.store.DateOverrides(gctx, host.ID, hostDate)
		return err
	})
	if withBookings {
		g.Go(func() error {
			var err error
			// a slot at the booker's midnight may reach back by its pre-buffer
			in.Bookings, err = e.store.ConfirmedBookings(gctx, host.ID, searchStart.Add(-et.BufferBefore()), searchEnd)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Storage("load schedule", err)
	}

	windows, err := availability.BuildWindows(in)
	if err != nil {
		return nil, err
	}
	return availability.GenerateSlots(windows, availability.SlotParams{
		Duration:     et.Duration(),
		BufferBefore: et.BufferBefore(),
		BufferAfter:  et.BufferAfter(),
		MinNotice:    et.MinNotice(),
		BookerLoc:    bookerLoc,
		Date:         date,
		Now:          now,
	}), nil
}
