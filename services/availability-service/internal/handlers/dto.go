package handlers

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

type bookingResponse struct {
	ID             string    `json:"id"`
	HostID         string    `json:"host_id"`
	EventTypeID    string    `json:"event_type_id"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	Date           string    `json:"date"`
	StartInstant   time.Time `json:"start_instant"`
	EndInstant     time.Time `json:"end_instant"`
	Status         string    `json:"status"`
	BookerTimezone string    `json:"booker_timezone"`
	CreatedAt      time.Time `json:"created_at"`
}

func toBooking(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:             b.ID,
		HostID:         b.HostID,
		EventTypeID:    b.EventTypeID,
		GuestName:      b.GuestName,
		GuestEmail:     b.GuestEmail,
		Date:           b.Date.String(),
		StartInstant:   b.StartAt,
		EndInstant:     b.EndAt,
		Status:         b.Status,
		BookerTimezone: b.BookerTimezone,
		CreatedAt:      b.CreatedAt,
	}
}

type eventTypeResponse struct {
	ID                  string    `json:"id"`
	HostID              string    `json:"host_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	DurationMinutes     int       `json:"duration_minutes"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	MinNoticeMinutes    int       `json:"min_notice_minutes"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}

func toEventType(et model.EventType) eventTypeResponse {
	return eventTypeResponse{
		ID:                  et.ID,
		HostID:              et.HostID,
		Title:               et.Title,
		Description:         et.Description,
		DurationMinutes:     et.DurationMinutes,
		BufferBeforeMinutes: et.BufferBeforeMinutes,
		BufferAfterMinutes:  et.BufferAfterMinutes,
		MinNoticeMinutes:    et.MinNoticeMinutes,
		IsActive:            et.IsActive,
		CreatedAt:           et.CreatedAt,
	}
}

func toEventTypes(in []model.EventType) []eventTypeResponse {
	out := make([]eventTypeResponse, 0, len(in))
	for _, et := range in {
		out = append(out, toEventType(et))
	}
	return out
}

type ruleResponse struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toRules(in []model.WeeklyRule) []ruleResponse {
	out := make([]ruleResponse, 0, len(in))
	for _, r := range in {
		out = append(out, ruleResponse{ID: r.ID, DayOfWeek: int(r.Weekday), StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return out
}

type overrideResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

func toOverride(o model.DateOverride) overrideResponse {
	return overrideResponse{ID: o.ID, Date: o.Date.String(), StartTime: o.StartTime, EndTime: o.EndTime, IsAvailable: o.IsAvailable}
}

func toOverrides(in []model.DateOverride) []overrideResponse {
	out := make([]overrideResponse, 0, len(in))
	for _, o := range in {
		out = append(out, toOverride(o))
	}
	return out
}
