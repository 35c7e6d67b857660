package core

import (
	"errors"
	"fmt"
	"time"
)

// Date is a calendar date in YYYY-MM-DD form. Dates are compared
// lexicographically, which for this layout matches chronological order, so a
// Date can be used directly as an ordering key without parsing. Callers must
// never pass locale-formatted dates.
type Date string

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format(dateLayout))
}

// ParseDate validates s as a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(s), nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return Date(time.Now().UTC().Format(dateLayout))
}

func (d Date) Validate() error {
	_, err := ParseDate(string(d))
	return err
}

// Before reports whether d sorts strictly before other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d sorts strictly after other.
func (d Date) After(other Date) bool { return d > other }

// AddDays returns the date n days after d (n may be negative). The zero Date
// is returned when d does not parse.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return ""
	}
	return Date(t.AddDate(0, 0, n).Format(dateLayout))
}

// DaysBetween returns the number of whole days from one date to another,
// negative when to precedes from. Invalid dates yield 0.
func DaysBetween(from, to Date) int {
	ft, err := time.Parse(dateLayout, string(from))
	if err != nil {
		return 0
	}
	tt, err := time.Parse(dateLayout, string(to))
	if err != nil {
		return 0
	}
	return int(tt.Sub(ft).Hours() / 24)
}
