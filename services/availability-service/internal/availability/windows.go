// Package availability turns a host's schedule into bookable slots for one booker day.
package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/admission"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/interval"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

// HostDay picks the single host civil date whose rules govern the booker's
// day: the one containing the midpoint of [searchStart, searchEnd).
func HostDay(searchStart, searchEnd time.Time, hostLoc *time.Location) tzconv.Date {
	mid := searchStart.Add(searchEnd.Sub(searchStart) / 2)
	return tzconv.DateOf(mid, hostLoc)
}

// WindowInput is everything BuildWindows needs for one booker day.
type WindowInput struct {
	SearchStart time.Time
	SearchEnd   time.Time
	HostDate    tzconv.Date
	HostLoc     *time.Location
	Rules       []model.WeeklyRule
	Overrides   []model.DateOverride
	Bookings    []model.Booking
}

// BuildWindows returns the host's free time inside [SearchStart, SearchEnd).
// Overrides for HostDate replace the weekly rules entirely. Confirmed bookings
// are removed together with their buffers. Bookings are subtracted before the
// windows are clipped, so a clipped window remembers where its free time
// really began.
func BuildWindows(in WindowInput) ([]interval.Interval, error) {
	raw, err := rawWindows(in)
	if err != nil || len(raw) == 0 {
		return nil, err
	}

	free := interval.Merge(raw)
	for _, b := range in.Bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		free = interval.Subtract(free, admission.Window(b))
		if len(free) == 0 {
			return nil, nil
		}
	}

	windows := make([]interval.Interval, 0, len(free))
	for _, w := range free {
		if c, ok := interval.Clip(w, in.SearchStart, in.SearchEnd); ok {
			windows = append(windows, c)
		}
	}
	if len(windows) == 0 {
		return nil, nil
	}
	return windows, nil
}

func rawWindows(in WindowInput) ([]interval.Interval, error) {
	var overrides []model.DateOverride
	for _, o := range in.Overrides {
		if o.Date == in.HostDate {
			overrides = append(overrides, o)
		}
	}

	var out []interval.Interval
	if len(overrides) > 0 {
		for _, o := range overrides {
			if !o.IsAvailable {
				continue
			}
			w, err := civilWindow(in.HostDate, o.StartTime, o.EndTime, in.HostLoc)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	}

	weekday := in.HostDate.Weekday()
	for _, r := range in.Rules {
		if r.Weekday != weekday {
			continue
		}
		w, err := civilWindow(in.HostDate, r.StartTime, r.EndTime, in.HostLoc)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func civilWindow(date tzconv.Date, startClock, endClock string, loc *time.Location) (interval.Interval, error) {
	start, err := tzconv.CivilToInstant(date, startClock, loc)
	if err != nil {
		return interval.Interval{}, err
	}
	end, err := tzconv.CivilToInstant(date, endClock, loc)
	if err != nil {
		return interval.Interval{}, err
	}
	if !start.Before(end) {
		return interval.Interval{}, apperr.Validation("end_time", "window %s-%s on %s ends before it starts", startClock, endClock, date)
	}
	return interval.Interval{Start: start, End: end, OriginalStart: start}, nil
}
