// Package storage holds the persistence collaborators of the availability engine.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when an insert loses to a concurrent writer.
	ErrConflict = errors.New("storage: conflict")
)

// Reader is what availability queries need.
type Reader interface {
	GetHost(ctx context.Context, hostID string) (model.Host, error)
	GetEventType(ctx context.Context, hostID, eventTypeID string) (model.EventType, error)
	WeeklyRules(ctx context.Context, hostID string, weekday time.Weekday) ([]model.WeeklyRule, error)
	DateOverrides(ctx context.Context, hostID string, date tzconv.Date) ([]model.DateOverride, error)
	// ConfirmedBookings returns confirmed bookings whose buffered span
	// overlaps [from, to).
	ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error)
}

// Tx is the view of storage inside an admission critical section.
type Tx interface {
	ConfirmedBookings(ctx context.Context, hostID string, from, to time.Time) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// Admitter serialises booking writes per host and civil date.
// fn's writes commit only when fn returns nil.
type Admitter interface {
	WithAdmissionLock(ctx context.Context, hostID string, date tzconv.Date, fn func(ctx context.Context, tx Tx) error) error
}

// Catalog covers the host-side management operations.
type Catalog interface {
	UpsertHost(ctx context.Context, h model.Host) error
	CreateEventType(ctx context.Context, et *model.EventType) error
	ListEventTypes(ctx context.Context, hostID string, activeOnly bool) ([]model.EventType, error)
	ListWeeklyRules(ctx context.Context, hostID string) ([]model.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, hostID string, rules []model.WeeklyRule) error
	ListDateOverrides(ctx context.Context, hostID string, from tzconv.Date) ([]model.DateOverride, error)
	AddDateOverride(ctx context.Context, o *model.DateOverride) error
	// ListBookings lists bookings of the host, optionally restricted to a UTC date.
	ListBookings(ctx context.Context, hostID string, date *tzconv.Date) ([]model.Booking, error)
}

type Store interface {
	Reader
	Admitter
	Catalog
}
