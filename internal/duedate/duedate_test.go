package duedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-reminder/internal/apperr"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	cases := []struct {
		name   string
		entry  time.Time
		months int
		want   time.Time
	}{
		{"zero months", date(2024, time.March, 15), 0, date(2024, time.March, 15)},
		{"same day", date(2099, time.January, 1), 2, date(2099, time.March, 1)},
		{"clamp to february leap", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamp to february", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"no drift after clamp", date(2023, time.January, 31), 2, date(2023, time.March, 31)},
		{"thirty day month", date(2023, time.May, 31), 1, date(2023, time.June, 30)},
		{"year rollover", date(2023, time.November, 30), 3, date(2024, time.February, 29)},
		{"many years", date(2020, time.February, 29), 48, date(2024, time.February, 29)},
		{"negative is zero", date(2023, time.May, 5), -3, date(2023, time.May, 5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Next(tc.entry, tc.months))
		})
	}
}

func TestNextKeepsDayAndMonthOffset(t *testing.T) {
	for day := 1; day <= 31; day++ {
		for m := time.January; m <= time.December; m++ {
			if day > DaysIn(2023, m) {
				continue
			}
			entry := date(2023, m, day)
			for months := 0; months <= 30; months++ {
				got := Next(entry, months)
				offset := (got.Year()-entry.Year())*12 + int(got.Month()) - int(entry.Month())
				require.Equal(t, months, offset, "entry %s + %d", entry, months)
				if got.Day() != day {
					require.Equal(t, DaysIn(got.Year(), got.Month()), got.Day(), "only clamping may change the day")
					require.Less(t, got.Day(), day)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2099-01-01")
	require.NoError(t, err)
	require.Equal(t, date(2099, time.January, 1), got)

	got, err = Parse("15/08/2024")
	require.NoError(t, err)
	require.Equal(t, date(2024, time.August, 15), got)

	got, err = Parse("2024-08-15T22:30:00Z")
	require.NoError(t, err)
	require.Equal(t, date(2024, time.August, 15), got)

	for _, bad := range []string{"", "tomorrow", "2024-13-01", "31/02/2024"} {
		_, err := Parse(bad)
		require.Error(t, err, bad)
		require.True(t, apperr.Is(err, apperr.KindValidation))
	}
}

func TestNextFromString(t *testing.T) {
	got, err := NextFromString("31/01/2023", 1)
	require.NoError(t, err)
	require.Equal(t, "2023-02-28", FormatISO(got))
	require.Equal(t, "28/02/2023", FormatDisplay(got))

	_, err = NextFromString("not a date", 1)
	require.Error(t, err)
}

func TestEndOfMonthAndDaysBetween(t *testing.T) {
	require.Equal(t, date(2024, time.February, 29), EndOfMonth(date(2024, time.February, 3)))
	require.Equal(t, 7, DaysBetween(date(2024, time.February, 22), date(2024, time.February, 29)))
	require.Equal(t, -1, DaysBetween(date(2024, time.March, 1), date(2024, time.February, 29)))
}
