package calendar_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantline/internal/calendar"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	d, err := calendar.ParseDate(" 2025-10-12 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-12", calendar.FormatDate(d))

	for _, bad := range []string{"", "2025-13-01", "10/12/2025", "2025-02-30"} {
		_, err := calendar.ParseDate(bad)
		assert.True(t, errors.Is(err, calendar.ErrInvalidDate), "input %q", bad)
	}
}

func TestNewRejectsMalformed(t *testing.T) {
	_, err := calendar.New("2025-01-01", "not-a-date")
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
}

func TestDefaultHolidays(t *testing.T) {
	cal := calendar.Default()
	assert.True(t, cal.IsHoliday(mustDate(t, "2025-09-01")))
	assert.True(t, cal.IsHoliday(mustDate(t, "2025-12-25")))
	assert.False(t, cal.IsHoliday(mustDate(t, "2025-09-02")))
	// unmaintained year: no holidays, no error
	assert.False(t, cal.IsHoliday(mustDate(t, "2031-12-25")))
}

func TestWithAddsHolidays(t *testing.T) {
	base := calendar.Default()
	ext, err := base.With("2027-01-01")
	require.NoError(t, err)
	assert.True(t, ext.IsHoliday(mustDate(t, "2027-01-01")))
	assert.False(t, base.IsHoliday(mustDate(t, "2027-01-01")))
	assert.Len(t, ext.Dates(), len(base.Dates())+1)
}

func TestDateOfUsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	late := time.Date(2025, 10, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, "2025-10-10", calendar.FormatDate(calendar.DateOf(late)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 2, calendar.DaysBetween(mustDate(t, "2025-10-10"), mustDate(t, "2025-10-12")))
	assert.Equal(t, -2, calendar.DaysBetween(mustDate(t, "2025-10-10"), mustDate(t, "2025-10-08")))
	// across the US DST change
	assert.Equal(t, 7, calendar.DaysBetween(mustDate(t, "2025-11-01"), mustDate(t, "2025-11-08")))
}
