package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component. The YYYY-MM-DD form
// orders lexicographically the same way it orders chronologically.
type Date string

// Weekday is an ISO weekday, 1=Monday .. 7=Sunday.
type Weekday int

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", WrapError(ErrCodeInvalid, ErrInvalidDate.Message, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Valid reports whether d is a well-formed calendar day.
func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

func (d Date) String() string { return string(d) }

// Time returns midnight UTC of d. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts d by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the ISO weekday of d.
func (d Date) Weekday() Weekday {
	return ISOWeekday(d.Time().Weekday())
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d > other }

// ISOWeekday converts a Go weekday (Sunday=0) to ISO numbering (Sunday=7).
func ISOWeekday(w time.Weekday) Weekday {
	if w == time.Sunday {
		return 7
	}
	return Weekday(w)
}

// Valid reports whether w is within 1..7.
func (w Weekday) Valid() bool {
	return w >= 1 && w <= 7
}

// Today returns the calendar day of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}
