// Package dates holds calendar-day helpers. A day is represented as the
// time.Time of its midnight in UTC.
package dates

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Day truncates t to the UTC midnight of its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day according to clock.
func Today(clock Clock) time.Time {
	return Day(clock.Now())
}

func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

func AddMonths(day time.Time, n int) time.Time {
	return day.AddDate(0, n, 0)
}

// DaysBetween counts the calendar days from a to b; negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func Format(day time.Time) string {
	return day.Format(Layout)
}

// FormatAll formats each day with Layout.
func FormatAll(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = Format(d)
	}
	return out
}
