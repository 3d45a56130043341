package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()

	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "09:00:00"},
		{in: "23:59:59", want: "23:59:59"},
		{in: "00:00", want: "00:00:00"},
		{in: "1:05", want: "01:05:00"},
		{in: "24:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		v, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v.String())
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	ten := mustTime(t, "10:00")
	eleven := mustTime(t, "11:00")
	noon := mustTime(t, "12:00")
	halfTen := mustTime(t, "10:30")

	assert.True(t, Overlaps(ten, eleven, halfTen, noon))
	assert.True(t, Overlaps(ten, noon, halfTen, eleven))

	// Touching endpoints never conflict.
	assert.False(t, Overlaps(ten, eleven, eleven, noon))
	assert.False(t, Overlaps(eleven, noon, ten, eleven))
}

func testRestaurant(t *testing.T) *Restaurant {
	t.Helper()

	return &Restaurant{
		ID:   1,
		Name: "Bistro A",
		Hours: OpeningHours{
			MonToThu: Window{Open: mustTime(t, "09:00"), Close: mustTime(t, "23:59:59")},
			// Friday service runs into Saturday morning.
			Friday:   Window{Open: mustTime(t, "09:00"), Close: mustTime(t, "01:00")},
			Saturday: Window{Open: mustTime(t, "09:00"), Close: mustTime(t, "23:00")},
			Sunday:   Window{Open: mustTime(t, "11:00"), Close: mustTime(t, "22:00")},
		},
	}
}

func TestIsWithinOpeningHoursSameDay(t *testing.T) {
	r := testRestaurant(t)
	tuesday := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, r.IsWithinOpeningHours(tuesday, mustTime(t, "09:00"), mustTime(t, "23:59:59")))
	assert.True(t, r.IsWithinOpeningHours(tuesday, mustTime(t, "12:00"), mustTime(t, "13:00")))
	assert.False(t, r.IsWithinOpeningHours(tuesday, mustTime(t, "08:00"), mustTime(t, "10:00")))

	sunday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.False(t, r.IsWithinOpeningHours(sunday, mustTime(t, "10:00"), mustTime(t, "12:00")))
	assert.False(t, r.IsWithinOpeningHours(sunday, mustTime(t, "21:00"), mustTime(t, "22:30")))
	assert.True(t, r.IsWithinOpeningHours(sunday, mustTime(t, "11:00"), mustTime(t, "22:00")))
}

func TestIsWithinOpeningHoursOvernight(t *testing.T) {
	r := testRestaurant(t)
	friday := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	saturday := friday.AddDate(0, 0, 1)

	// Late Friday slot sits inside the overnight window.
	assert.True(t, r.IsWithinOpeningHours(friday, mustTime(t, "23:00"), mustTime(t, "23:59:59")))

	// Saturday early morning is the tail of Friday's service.
	assert.True(t, r.IsWithinOpeningHours(saturday, mustTime(t, "00:00"), mustTime(t, "00:45")))

	// Past the spill-over close and before Saturday opening.
	assert.False(t, r.IsWithinOpeningHours(saturday, mustTime(t, "02:00"), mustTime(t, "03:00")))

	// Before Friday opening is rejected even with the overnight window.
	assert.False(t, r.IsWithinOpeningHours(friday, mustTime(t, "08:00"), mustTime(t, "09:30")))
}

func TestOpeningWindowForWeekdayGroups(t *testing.T) {
	r := testRestaurant(t)

	for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday} {
		assert.Equal(t, r.Hours.MonToThu, r.OpeningWindowFor(day), day.String())
	}

	assert.Equal(t, r.Hours.Friday, r.OpeningWindowFor(time.Friday))
	assert.Equal(t, r.Hours.Saturday, r.OpeningWindowFor(time.Saturday))
	assert.Equal(t, r.Hours.Sunday, r.OpeningWindowFor(time.Sunday))
}
