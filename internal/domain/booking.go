package domain

import "time"

// SlotRequest is a candidate claim on a venue: a target, a date and a
// half-open time interval. The conflict predicates below operate on
// in-memory candidate sets loaded for the same (restaurant, date), so they
// stay independent of the storage engine.
type SlotRequest struct {
	RestaurantID int64
	Target       BookingTarget
	Date         time.Time
	Start        TimeOfDay
	End          TimeOfDay
}

// CheckBlockingEventConflict vetoes the request if a published or full
// blocking event overlaps it. An event scoped to a room only blocks
// requests for that room; an event with no room, and any blocking event
// faced with a whole-venue request, blocks everything.
func (req SlotRequest) CheckBlockingEventConflict(events []Evenement) error {
	for i := range events {
		ev := &events[i]

		if !ev.IsBlocking {
			continue
		}
		if ev.Status != EventPublished && ev.Status != EventFull {
			continue
		}
		if !Overlaps(req.Start, req.End, ev.Start, ev.End) {
			continue
		}
		if ev.RoomID != nil && req.Target.IsRoom() && *ev.RoomID != req.Target.RoomID {
			continue
		}

		return Invalidf("slot unavailable: blocking event %q on this time window", ev.Title)
	}

	return nil
}

// CheckBookingConflict vetoes the request against the other reservations on
// the same restaurant and date. Cancelled reservations never conflict, and
// excludeID skips the reservation being re-validated. A whole-venue request
// cannot coexist with any overlapping booking; a room request is vetoed by
// an overlapping whole-venue reservation or by another booking of the same
// room.
func (req SlotRequest) CheckBookingConflict(others []Reservation, excludeID int64) error {
	for i := range others {
		o := &others[i]

		if o.ID == excludeID || o.Status == ReservationCancelled {
			continue
		}
		if !Overlaps(req.Start, req.End, o.Start, o.End) {
			continue
		}

		if req.Target.IsWholeVenue() {
			if o.RoomID != nil {
				return Invalid("room already booked on overlapping slot")
			}
			if o.FullRestaurant {
				return Invalid("restaurant already reserved entirely on this slot")
			}
			continue
		}

		if o.FullRestaurant {
			return Invalid("restaurant already reserved entirely on this slot")
		}
		if req.Target.IsRoom() && o.RoomID != nil && *o.RoomID == req.Target.RoomID {
			return Invalid("room already booked on this slot")
		}
	}

	return nil
}

// CheckClosures vetoes the request if the restaurant is exceptionally
// closed on the requested date.
func (req SlotRequest) CheckClosures(closures []RestaurantClosure) error {
	y, m, d := req.Date.Date()

	for i := range closures {
		cy, cm, cd := closures[i].Date.Date()
		if cy == y && cm == m && cd == d {
			return Invalid("restaurant closed on this date")
		}
	}

	return nil
}
