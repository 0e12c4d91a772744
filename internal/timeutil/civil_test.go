package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func karachi(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadLocation("Asia/Karachi")
	require.NoError(t, err)
	return loc
}

func TestCivilDateOf(t *testing.T) {
	loc := karachi(t)

	t.Run("UTC evening is next civil day in Karachi", func(t *testing.T) {
		// 2024-03-31 20:30 UTC = 2024-04-01 01:30 PKT (+05:00)
		instant := time.Date(2024, 3, 31, 20, 30, 0, 0, time.UTC)
		d := CivilDateOf(instant, loc)
		assert.Equal(t, CivilDate{Year: 2024, Month: time.April, Day: 1}, d)
	})

	t.Run("UTC morning stays same civil day", func(t *testing.T) {
		instant := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
		d := CivilDateOf(instant, loc)
		assert.Equal(t, CivilDate{Year: 2024, Month: time.March, Day: 31}, d)
	})
}

func TestSameCivilDay(t *testing.T) {
	loc := karachi(t)
	// Both instants are 2024-01-15 UTC, but the second is already the 16th in Karachi.
	a := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)
	assert.False(t, SameCivilDay(a, b, loc))
	assert.True(t, SameCivilDay(a, a.Add(2*time.Hour), loc))
}

func TestSameCivilMonth(t *testing.T) {
	loc := karachi(t)

	t.Run("last civil day 23:59 local is included", func(t *testing.T) {
		instant := time.Date(2024, 1, 31, 23, 59, 0, 0, loc)
		assert.True(t, SameCivilMonth(instant, 2024, time.January, loc))
	})

	t.Run("first civil day 00:01 local of next month is excluded", func(t *testing.T) {
		// Same UTC day as the previous case (Jan 31 UTC), but Feb 1 in Karachi.
		instant := time.Date(2024, 2, 1, 0, 1, 0, 0, loc)
		assert.Equal(t, 31, instant.UTC().Day())
		assert.False(t, SameCivilMonth(instant, 2024, time.January, loc))
		assert.True(t, SameCivilMonth(instant, 2024, time.February, loc))
	})
}

func TestMonthBounds(t *testing.T) {
	loc := karachi(t)
	start, end := MonthBounds(2024, time.January, loc)

	// Karachi is UTC+5 year-round, so the month starts 19:00 UTC the prior day.
	assert.Equal(t, time.Date(2023, 12, 31, 19, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2024, 1, 31, 19, 0, 0, 0, time.UTC), end.UTC())

	lastMinute := time.Date(2024, 1, 31, 23, 59, 0, 0, loc)
	firstMinuteNext := time.Date(2024, 2, 1, 0, 1, 0, 0, loc)
	assert.True(t, !lastMinute.Before(start) && lastMinute.Before(end))
	assert.False(t, firstMinuteNext.Before(end))
}

func TestDayBounds(t *testing.T) {
	loc := karachi(t)
	start, end := DayBounds(CivilDate{Year: 2024, Month: time.June, Day: 10}, loc)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, time.Date(2024, 6, 9, 19, 0, 0, 0, time.UTC), start.UTC())
}

func TestParseCivilDate(t *testing.T) {
	d, err := ParseCivilDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, CivilDate{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseCivilDate("29-02-2024")
	assert.Error(t, err)
}
