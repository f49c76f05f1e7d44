package engine

import (
	"context"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

type HostProfile struct {
	Name     string `json:"name" validate:"max=200"`
	Timezone string `json:"timezone" validate:"required"`
}

// UpsertHost creates or updates the host's profile. Changing the timezone
// shifts every rule, so cached availability is dropped.
func (e *Engine) UpsertHost(ctx context.Context, hostID string, p HostProfile) (model.Host, error) {
	if err := checkHostID(hostID); err != nil {
		return model.Host{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Timezone = strings.TrimSpace(p.Timezone)
	if err := validateStruct(p); err != nil {
		return model.Host{}, err
	}
	loc, err := e.zones.Load(p.Timezone)
	if err != nil {
		return model.Host{}, err
	}
	h := model.Host{ID: hostID, Name: p.Name, Timezone: loc.String()}

	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	if err := e.store.UpsertHost(ctx, h); err != nil {
		return model.Host{}, apperr.Storage("upsert host", err)
	}
	e.invalidate(ctx, hostID)
	return h, nil
}

type EventTypeInput struct {
	Title               string `json:"title" validate:"required,max=200"`
	Description         string `json:"description" validate:"max=2000"`
	DurationMinutes     int    `json:"duration_minutes" validate:"min=1,max=1440"`
	BufferBeforeMinutes int    `json:"buffer_before_minutes" validate:"min=0,max=1440"`
	BufferAfterMinutes  int    `json:"buffer_after_minutes" validate:"min=0,max=1440"`
	MinNoticeMinutes    int    `json:"min_notice_minutes" validate:"min=0,max=1440"`
	// IsActive defaults to true.
	IsActive *bool `json:"is_active"`
}

func (e *Engine) CreateEventType(ctx context.Context, hostID string, in EventTypeInput) (model.EventType, error) {
	if err := checkHostID(hostID); err != nil {
		return model.EventType{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return model.EventType{}, err
	}
	et := model.EventType{
		HostID:              hostID,
		Title:               in.Title,
		Description:         in.Description,
		DurationMinutes:     in.DurationMinutes,
		BufferBeforeMinutes: in.BufferBeforeMinutes,
		BufferAfterMinutes:  in.BufferAfterMinutes,
		MinNoticeMinutes:    in.MinNoticeMinutes,
		IsActive:            in.IsActive == nil || *in.IsActive,
	}

	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	if err := e.store.CreateEventType(ctx, &et); err != nil {
		return model.EventType{}, apperr.Storage("create event type", notFoundAs(err, "host", hostID))
	}
	return et, nil
}

func (e *Engine) ListEventTypes(ctx context.Context, hostID string, activeOnly bool) ([]model.EventType, error) {
	if err := checkHostID(hostID); err != nil {
		return nil, err
	}
	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	types, err := e.store.ListEventTypes(ctx, hostID, activeOnly)
	if err != nil {
		return nil, apperr.Storage("list event types", err)
	}
	return types, nil
}

type RuleInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type rulesInput struct {
	Rules []RuleInput `json:"rules" validate:"max=100,dive"`
}

// ReplaceWeeklyRules swaps the host's whole weekly schedule.
func (e *Engine) ReplaceWeeklyRules(ctx context.Context, hostID string, in []RuleInput) ([]model.WeeklyRule, error) {
	if err := checkHostID(hostID); err != nil {
		return nil, err
	}
	if err := validateStruct(rulesInput{Rules: in}); err != nil {
		return nil, err
	}
	rules := make([]model.WeeklyRule, 0, len(in))
	for _, r := range in {
		start, end, err := clockRange(r.StartTime, r.EndTime)
		if err != nil {
			return nil, err
		}
		rules = append(rules, model.WeeklyRule{
			HostID:    hostID,
			Weekday:   time.Weekday(r.DayOfWeek),
			StartTime: start,
			EndTime:   end,
		})
	}

	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	if err := e.store.ReplaceWeeklyRules(ctx, hostID, rules); err != nil {
		return nil, apperr.Storage("replace weekly rules", notFoundAs(err, "host", hostID))
	}
	e.invalidate(ctx, hostID)
	return rules, nil
}

type OverrideInput struct {
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// AddDateOverride records an exception for one host date. Available
// overrides need a time range; unavailable ones block the whole day.
func (e *Engine) AddDateOverride(ctx context.Context, hostID string, in OverrideInput) (model.DateOverride, error) {
	if err := checkHostID(hostID); err != nil {
		return model.DateOverride{}, err
	}
	if err := validateStruct(in); err != nil {
		return model.DateOverride{}, err
	}
	date, err := tzconv.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return model.DateOverride{}, err
	}
	o := model.DateOverride{HostID: hostID, Date: date, IsAvailable: in.IsAvailable}
	if in.IsAvailable {
		if o.StartTime, o.EndTime, err = clockRange(in.StartTime, in.EndTime); err != nil {
			return model.DateOverride{}, err
		}
	}

	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	if err := e.store.AddDateOverride(ctx, &o); err != nil {
		return model.DateOverride{}, apperr.Storage("add date override", notFoundAs(err, "host", hostID))
	}
	e.invalidate(ctx, hostID)
	return o, nil
}

type Schedule struct {
	Host      model.Host
	Weekly    []model.WeeklyRule
	Overrides []model.DateOverride
}

// Schedule returns the weekly rules and the overrides from the host's today on.
func (e *Engine) Schedule(ctx context.Context, hostID string) (Schedule, error) {
	if err := checkHostID(hostID); err != nil {
		return Schedule{}, err
	}
	ctx, cancel := e.storageContext(ctx)
	defer cancel()

	host, err := e.store.GetHost(ctx, hostID)
	if err != nil {
		return Schedule{}, apperr.Storage("get host", notFoundAs(err, "host", hostID))
	}
	loc, err := e.zones.Load(host.Timezone)
	if err != nil {
		return Schedule{}, err
	}
	weekly, err := e.store.ListWeeklyRules(ctx, hostID)
	if err != nil {
		return Schedule{}, apperr.Storage("list weekly rules", err)
	}
	overrides, err := e.store.ListDateOverrides(ctx, hostID, tzconv.DateOf(e.now(), loc))
	if err != nil {
		return Schedule{}, apperr.Storage("list date overrides", err)
	}
	return Schedule{Host: host, Weekly: weekly, Overrides: overrides}, nil
}

// ListBookings lists the host's bookings, optionally for one UTC date.
func (e *Engine) ListBookings(ctx context.Context, hostID, date string) ([]model.Booking, error) {
	if err := checkHostID(hostID); err != nil {
		return nil, err
	}
	var filter *tzconv.Date
	if date = strings.TrimSpace(date); date != "" {
		d, err := tzconv.ParseDate(date)
		if err != nil {
			return nil, err
		}
		filter = &d
	}
	ctx, cancel := e.storageContext(ctx)
	defer cancel()
	bookings, err := e.store.ListBookings(ctx, hostID, filter)
	if err != nil {
		return nil, apperr.Storage("list bookings", err)
	}
	return bookings, nil
}

// InvalidateHost drops cached availability for the host, e.g. after a
// cancellation handled elsewhere.
func (e *Engine) InvalidateHost(ctx context.Context, hostID string) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.InvalidateHost(ctx, hostID)
}

// clockRange normalises a start/end pair to "HH:MM" and requires end > start.
func clockRange(start, end string) (string, string, error) {
	s, err := tzconv.ParseClock(strings.TrimSpace(start))
	if err != nil {
		return "", "", err
	}
	en, err := tzconv.ParseClock(strings.TrimSpace(end))
	if err != nil {
		return "", "", err
	}
	if en <= s {
		return "", "", apperr.Validation("end_time", "must be after start_time")
	}
	return tzconv.FormatClock(s), tzconv.FormatClock(en), nil
}
