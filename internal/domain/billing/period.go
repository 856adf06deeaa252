package billing

import (
	"strings"
	"time"
)

const (
	periodLayout = "2006-01"
	dayLayout    = "2006-01-02"
)

// Period identifies a billing month, formatted YYYY-MM
type Period string

// ParsePeriod validates and normalizes a YYYY-MM string
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(periodLayout, s)
	if err != nil || t.Format(periodLayout) != s {
		return "", ErrInvalidPeriod
	}
	return Period(s), nil
}

// PeriodOf returns the period containing t in t's location
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

// String returns the string representation of Period
func (p Period) String() string {
	return string(p)
}

// Day is a calendar day, formatted YYYY-MM-DD
type Day string

// ParseDay validates and normalizes a YYYY-MM-DD string
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dayLayout, s)
	if err != nil || t.Format(dayLayout) != s {
		return "", ErrInvalidDay
	}
	return Day(s), nil
}

// DayOf returns the calendar day of t in loc
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

// String returns the string representation of Day
func (d Day) String() string {
	return string(d)
}

// Window returns the half-open UTC interval [start, end) covering d in loc.
// A Day that does not parse yields a zero window.
func (d Day) Window(loc *time.Location) DayWindow {
	t, err := time.ParseInLocation(dayLayout, string(d), loc)
	if err != nil {
		return DayWindow{Day: d}
	}
	next := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
	return DayWindow{Day: d, Start: t.UTC(), End: next.UTC()}
}

// DayWindow is a calendar day expressed as UTC instants
type DayWindow struct {
	Day   Day
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
