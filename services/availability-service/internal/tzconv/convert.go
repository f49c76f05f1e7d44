// Package tzconv converts between civil wall-clock time in named zones and absolute instants.
package tzconv

import (
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
)

// EndOfDay is the minute value of "24:00".
const EndOfDay = 24 * 60

// ParseClock parses "HH:MM" (or "HH:MM:SS" with zero seconds, as Postgres
// renders time columns) into minutes after midnight. "24:00" is accepted.
func ParseClock(s string) (int, error) {
	v := strings.TrimSpace(s)
	if len(v) == 8 && strings.HasSuffix(v, ":00") {
		v = v[:5]
	}
	if len(v) != 5 || v[2] != ':' {
		return 0, apperr.InvalidTimeFormat(s)
	}
	h, errH := strconv.Atoi(v[:2])
	m, errM := strconv.Atoi(v[3:])
	if errH != nil || errM != nil || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, apperr.InvalidTimeFormat(s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM"; EndOfDay is "24:00".
func FormatClock(minutes int) string {
	if minutes == EndOfDay {
		return "24:00"
	}
	return time.Date(2000, 1, 1, 0, minutes, 0, 0, time.UTC).Format("15:04")
}

// CivilToInstant resolves the wall-clock time clock on date in loc.
//
// The wall time is first read as if it were UTC, then corrected by the zone
// offset in effect at that nominal instant. A second pass recomputes the
// offset at the corrected instant, which settles the cases where the first
// estimate landed on the other side of a DST transition.
func CivilToInstant(date Date, clock string, loc *time.Location) (time.Time, error) {
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return civilMinutesToInstant(date, minutes, loc), nil
}

func civilMinutesToInstant(date Date, minutes int, loc *time.Location) time.Time {
	nominal := date.midnight().Add(time.Duration(minutes) * time.Minute)
	utc := nominal.Add(-offsetAt(nominal, loc))
	utc = nominal.Add(-offsetAt(utc, loc))
	return utc
}

func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, off := t.In(loc).Zone()
	return time.Duration(off) * time.Second
}

// DayBoundsUTC returns [start, end) of the civil day date in loc.
func DayBoundsUTC(date Date, loc *time.Location) (time.Time, time.Time) {
	return civilMinutesToInstant(date, 0, loc), civilMinutesToInstant(date.AddDays(1), 0, loc)
}

// FormatInstant renders t as 24-hour "HH:MM" on loc's wall clock.
func FormatInstant(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}
