package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(t *testing.T, target BookingTarget, start, end string) SlotRequest {
	t.Helper()

	return SlotRequest{
		RestaurantID: 1,
		Target:       target,
		Date:         time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Start:        mustTime(t, start),
		End:          mustTime(t, end),
	}
}

func roomReservation(t *testing.T, id, roomID int64, status ReservationStatus, start, end string) Reservation {
	t.Helper()

	return Reservation{
		ID:           id,
		RestaurantID: 1,
		RoomID:       &roomID,
		Date:         time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Start:        mustTime(t, start),
		End:          mustTime(t, end),
		Status:       status,
	}
}

func TestBookingConflictSameRoom(t *testing.T) {
	existing := []Reservation{
		roomReservation(t, 1, 7, ReservationPending, "10:00", "11:00"),
	}

	err := slot(t, RoomTarget(7), "10:00", "11:00").CheckBookingConflict(existing, 0)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// Touching intervals coexist.
	assert.NoError(t, slot(t, RoomTarget(7), "11:00", "12:00").CheckBookingConflict(existing, 0))

	// Another room is free.
	assert.NoError(t, slot(t, RoomTarget(8), "10:00", "11:00").CheckBookingConflict(existing, 0))

	// A cancelled booking frees the slot.
	cancelled := []Reservation{
		roomReservation(t, 1, 7, ReservationCancelled, "10:00", "11:00"),
	}
	assert.NoError(t, slot(t, RoomTarget(7), "10:00", "11:00").CheckBookingConflict(cancelled, 0))

	// Re-validation excludes the reservation itself.
	assert.NoError(t, slot(t, RoomTarget(7), "10:00", "11:00").CheckBookingConflict(existing, 1))
}

func TestBookingConflictFullVenue(t *testing.T) {
	existing := []Reservation{
		roomReservation(t, 1, 7, ReservationConfirmed, "10:00", "11:00"),
	}

	// Whole-venue request cannot coexist with a room booking on an
	// overlapping slot.
	err := slot(t, WholeVenueTarget(), "10:30", "11:30").CheckBookingConflict(existing, 0)
	require.Error(t, err)
	assert.EqualError(t, err, "room already booked on overlapping slot")

	assert.NoError(t, slot(t, WholeVenueTarget(), "11:00", "12:00").CheckBookingConflict(existing, 0))

	full := []Reservation{{
		ID:             2,
		RestaurantID:   1,
		FullRestaurant: true,
		Start:          mustTime(t, "18:00"),
		End:            mustTime(t, "22:00"),
		Status:         ReservationConfirmed,
	}}

	// The venue taken entirely blocks both modalities.
	assert.Error(t, slot(t, WholeVenueTarget(), "19:00", "20:00").CheckBookingConflict(full, 0))
	assert.Error(t, slot(t, RoomTarget(7), "19:00", "20:00").CheckBookingConflict(full, 0))
	assert.NoError(t, slot(t, RoomTarget(7), "22:00", "23:00").CheckBookingConflict(full, 0))
}

func blockingEvent(t *testing.T, roomID *int64, status EventStatus, start, end string) Evenement {
	t.Helper()

	return Evenement{
		ID:           5,
		RestaurantID: 1,
		RoomID:       roomID,
		Title:        "Conference",
		IsBlocking:   true,
		Status:       status,
		Start:        mustTime(t, start),
		End:          mustTime(t, end),
	}
}

func TestBlockingEventConflict(t *testing.T) {
	roomA := int64(7)

	venueWide := []Evenement{blockingEvent(t, nil, EventPublished, "10:00", "12:00")}

	// An event with no room blocks every overlapping request.
	assert.Error(t, slot(t, RoomTarget(7), "11:00", "13:00").CheckBlockingEventConflict(venueWide))
	assert.Error(t, slot(t, RoomTarget(8), "11:00", "13:00").CheckBlockingEventConflict(venueWide))
	assert.Error(t, slot(t, WholeVenueTarget(), "11:00", "13:00").CheckBlockingEventConflict(venueWide))
	assert.NoError(t, slot(t, RoomTarget(7), "12:00", "13:00").CheckBlockingEventConflict(venueWide))

	scoped := []Evenement{blockingEvent(t, &roomA, EventFull, "10:00", "12:00")}

	// Scoped to room A: blocks A and the whole venue, not room B.
	assert.Error(t, slot(t, RoomTarget(7), "11:00", "13:00").CheckBlockingEventConflict(scoped))
	assert.NoError(t, slot(t, RoomTarget(8), "11:00", "13:00").CheckBlockingEventConflict(scoped))
	assert.Error(t, slot(t, WholeVenueTarget(), "11:00", "13:00").CheckBlockingEventConflict(scoped))

	// Draft or cancelled events never block, nor do non-blocking ones.
	draft := []Evenement{blockingEvent(t, nil, EventDraft, "10:00", "12:00")}
	assert.NoError(t, slot(t, RoomTarget(7), "11:00", "13:00").CheckBlockingEventConflict(draft))

	plain := venueWide
	plain[0].IsBlocking = false
	assert.NoError(t, slot(t, RoomTarget(7), "11:00", "13:00").CheckBlockingEventConflict(plain))
}

func TestCheckClosures(t *testing.T) {
	closed := []RestaurantClosure{{
		RestaurantID: 1,
		Date:         time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Reason:       "works",
	}}

	assert.Error(t, slot(t, RoomTarget(7), "12:00", "13:00").CheckClosures(closed))

	open := slot(t, RoomTarget(7), "12:00", "13:00")
	open.Date = time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, open.CheckClosures(closed))
}

// Bistro A end-to-end: a confirmed room booking rejects a later
// whole-venue request on an overlapping slot.
func TestBistroScenario(t *testing.T) {
	bistro := testRestaurant(t)
	salon := int64(1)
	tuesday := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	first := SlotRequest{
		RestaurantID: bistro.ID,
		Target:       RoomTarget(salon),
		Date:         tuesday,
		Start:        mustTime(t, "12:00"),
		End:          mustTime(t, "13:00"),
	}

	require.True(t, bistro.IsWithinOpeningHours(tuesday, first.Start, first.End))
	require.NoError(t, first.CheckBookingConflict(nil, 0))

	confirmed := roomReservation(t, 10, salon, ReservationConfirmed, "12:00", "13:00")

	second := SlotRequest{
		RestaurantID: bistro.ID,
		Target:       WholeVenueTarget(),
		Date:         tuesday,
		Start:        mustTime(t, "12:30"),
		End:          mustTime(t, "13:30"),
	}

	err := second.CheckBookingConflict([]Reservation{confirmed}, 0)
	require.Error(t, err)
	assert.EqualError(t, err, "room already booked on overlapping slot")

	later := second
	later.Start = mustTime(t, "13:00")
	later.End = mustTime(t, "14:00")
	assert.NoError(t, later.CheckBookingConflict([]Reservation{confirmed}, 0))
}
