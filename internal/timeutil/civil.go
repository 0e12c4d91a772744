// Package timeutil resolves civil-calendar boundaries in the fixed billing
// timezone. Instants are never shifted to "convert" timezones; every civil
// field comes from formatting the instant through a time.Location.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultTimezone is the billing timezone used when none is configured.
const DefaultTimezone = "Asia/Karachi"

// CivilDate is a calendar date as perceived in a timezone.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// String returns the date in YYYY-MM-DD form.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LoadLocation resolves an IANA timezone name, falling back to the default
// billing timezone on empty input.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

// CivilDateOf returns the civil date of an instant in loc.
func CivilDateOf(t time.Time, loc *time.Location) CivilDate {
	y, m, d := t.In(loc).Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// Today returns the current civil date in loc.
func Today(loc *time.Location) CivilDate {
	return CivilDateOf(time.Now(), loc)
}

// SameCivilDay reports whether two instants fall on the same civil day in loc.
func SameCivilDay(a, b time.Time, loc *time.Location) bool {
	return CivilDateOf(a, loc) == CivilDateOf(b, loc)
}

// SameCivilMonth reports whether the instant falls within the given civil
// year and month in loc.
func SameCivilMonth(t time.Time, year int, month time.Month, loc *time.Location) bool {
	y, m, _ := t.In(loc).Date()
	return y == year && m == month
}

// MonthBounds returns the half-open instant range [start, end) covering the
// civil month in loc. The bounds are exact instants, so UTC-stored timestamps
// can be range-filtered without any civil conversion in SQL.
func MonthBounds(year int, month time.Month, loc *time.Location) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// DayBounds returns the half-open instant range [start, end) covering the
// civil day in loc.
func DayBounds(d CivilDate, loc *time.Location) (start, end time.Time) {
	start = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}

// ParseCivilDate parses a YYYY-MM-DD string.
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}, nil
}
