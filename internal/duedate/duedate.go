// Package duedate derives rent due dates from a lease entry date and the
// number of months already paid.
package duedate

import (
	"strings"
	"time"

	"rent-reminder/internal/apperr"
)

const (
	ISOLayout     = "2006-01-02"
	DisplayLayout = "02/01/2006"
)

// Parse reads an entry date written as YYYY-MM-DD, DD/MM/YYYY or an RFC 3339
// timestamp. The result is midnight UTC of that calendar day.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range []string{ISOLayout, DisplayLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return Day(t), nil
	}
	return time.Time{}, apperr.InvalidDate(value)
}

// Next returns entry advanced by months calendar months. The day of month is
// kept unless the target month is shorter, in which case it is clamped to the
// last day of that month. Negative months count as zero.
func Next(entry time.Time, months int) time.Time {
	if months < 0 {
		months = 0
	}
	y, m, d := entry.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := time.Month(total%12 + 1)
	if last := DaysIn(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// NextFromString parses entry and applies Next.
func NextFromString(entry string, months int) (time.Time, error) {
	start, err := Parse(entry)
	if err != nil {
		return time.Time{}, err
	}
	return Next(start, months), nil
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last calendar day of t's month.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, DaysIn(y, m), 0, 0, 0, 0, time.UTC)
}

// Day drops the clock part of t, keeping the calendar day as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func FormatISO(t time.Time) string { return t.Format(ISOLayout) }

func FormatDisplay(t time.Time) string { return t.Format(DisplayLayout) }
