package model

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

type Host struct {
	ID       string
	Name     string
	Timezone string
}

// WeeklyRule is recurring availability in the host's timezone.
type WeeklyRule struct {
	ID        string
	HostID    string
	Weekday   time.Weekday
	StartTime string
	EndTime   string
}

// DateOverride replaces all weekly rules for Date when present.
type DateOverride struct {
	ID          string
	HostID      string
	Date        tzconv.Date
	StartTime   string
	EndTime     string
	IsAvailable bool
}

type EventType struct {
	ID                  string
	HostID              string
	Title               string
	Description         string
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	MinNoticeMinutes    int
	IsActive            bool
	CreatedAt           time.Time
}

func (e EventType) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

func (e EventType) BufferBefore() time.Duration {
	return time.Duration(e.BufferBeforeMinutes) * time.Minute
}

func (e EventType) BufferAfter() time.Duration {
	return time.Duration(e.BufferAfterMinutes) * time.Minute
}

func (e EventType) MinNotice() time.Duration {
	return time.Duration(e.MinNoticeMinutes) * time.Minute
}

// Booking buffers are the event type's buffers at the time it was admitted.
type Booking struct {
	ID                  string
	HostID              string
	EventTypeID         string
	GuestName           string
	GuestEmail          string
	Date                tzconv.Date
	StartAt             time.Time
	EndAt               time.Time
	Status              string
	BookerTimezone      string
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	CreatedAt           time.Time
}

// Blocked is the span the booking reserves including its buffers.
func (b Booking) Blocked() (time.Time, time.Time) {
	return b.StartAt.Add(-time.Duration(b.BufferBeforeMinutes) * time.Minute),
		b.EndAt.Add(time.Duration(b.BufferAfterMinutes) * time.Minute)
}
