// Package calendar converts between absolute instants and a user's civil
// calendar in their configured time zone, and computes recurrence occurrence
// dates. Everything here is pure; no state, no storage.
package calendar

import (
	"fmt"
	"time"
)

// CivilParts is the wall-clock reading of an instant in a given zone.
type CivilParts struct {
	Year        int
	Month       time.Month
	Day         int
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// LoadZone resolves an IANA time-zone identifier. An empty name means UTC.
// Invalid identifiers fail here, at configuration time, so the conversion
// functions below never have an error path.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

// CivilPartsOf returns the wall-clock parts of t as observed in loc.
func CivilPartsOf(t time.Time, loc *time.Location) CivilParts {
	local := t.In(loc)
	return CivilParts{
		Year:        local.Year(),
		Month:       local.Month(),
		Day:         local.Day(),
		Hour:        local.Hour(),
		Minute:      local.Minute(),
		Second:      local.Second(),
		Millisecond: local.Nanosecond() / int(time.Millisecond),
	}
}

// StartOfDay returns the instant of 00:00:00.000 local time on t's civil day.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the instant of 23:59:59.999 local time on t's civil day.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

// DayStamp returns a comparable YYYY-MM-DD key for t's civil day in loc.
// Lexicographic ordering of stamps equals calendar ordering of days.
func DayStamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Date builds a civil calendar date, represented as midnight UTC. Rule start
// dates, end dates, and occurrence cursors all use this representation; they
// are calendar days, not instants, and only become instants when a generated
// transaction is dated via StartOfDay in the user's zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateStamp returns the YYYY-MM-DD key of a civil date built with Date.
func DateStamp(d time.Time) string {
	return d.UTC().Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD key back into a civil date.
func ParseDate(stamp string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", stamp, err)
	}
	return d, nil
}
