package domain

import (
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventFull      EventStatus = "FULL"
	EventCancelled EventStatus = "CANCELLED"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRevoked  InviteStatus = "REVOKED"
	InviteDeclined InviteStatus = "DECLINED"
)

type EventType string

const (
	EventAnniversaire EventType = "ANNIVERSAIRE"
	EventConference   EventType = "CONFERENCE"
	EventSeminaire    EventType = "SEMINAIRE"
	EventAnimation    EventType = "ANIMATION"
	EventAutre        EventType = "AUTRE"
)

// Restaurant is a bookable venue made of rooms. The owner reference is weak:
// account data lives in the accounts service, only the ID is kept here.
type Restaurant struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	City       string       `json:"city"`
	PostalCode string       `json:"postal_code"`
	Capacity   int          `json:"capacity"`
	Amenities  Amenities    `json:"amenities"`
	Hours      OpeningHours `json:"hours"`
	OwnerID    *int64       `json:"owner_id,omitempty"`
}

// Amenities are informational service flags, never enforced by the
// scheduling engine.
type Amenities struct {
	Wifi          bool    `json:"wifi"`
	Printer       bool    `json:"printer"`
	MemberTrays   bool    `json:"member_trays"`
	DeliveryTrays bool    `json:"delivery_trays"`
	Animations    bool    `json:"animations"`
	AnimationDay  *string `json:"animation_day,omitempty"`
}

type Room struct {
	ID           int64  `json:"id"`
	RestaurantID int64  `json:"restaurant_id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
}

type Reservation struct {
	ID             int64             `json:"id"`
	CustomerID     int64             `json:"customer_id"`
	RestaurantID   int64             `json:"restaurant_id"`
	RoomID         *int64            `json:"room_id,omitempty"`
	FullRestaurant bool              `json:"full_restaurant"`
	PartySize      int               `json:"party_size"`
	Date           time.Time         `json:"date"`
	Start          TimeOfDay         `json:"start_time"`
	End            TimeOfDay         `json:"end_time"`
	Status         ReservationStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Target reports the reservation's booking target as a tagged variant,
// collapsing the room/full_restaurant column pair.
func (r *Reservation) Target() BookingTarget {
	switch {
	case r.FullRestaurant:
		return WholeVenueTarget()
	case r.RoomID != nil:
		return RoomTarget(*r.RoomID)
	default:
		return UnassignedTarget()
	}
}

// Evenement is a venue event. A nil RoomID scopes it to the whole venue.
// RRule is opaque recurrence metadata, never expanded by this engine.
type Evenement struct {
	ID           int64       `json:"id"`
	RestaurantID int64       `json:"restaurant_id"`
	RoomID       *int64      `json:"room_id,omitempty"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Type         EventType   `json:"type"`
	Date         time.Time   `json:"date"`
	Start        TimeOfDay   `json:"start_time"`
	End          TimeOfDay   `json:"end_time"`
	Capacity     *int        `json:"capacity,omitempty"`
	IsPublic     bool        `json:"is_public"`
	IsBlocking   bool        `json:"is_blocking"`
	Status       EventStatus `json:"status"`
	RRule        *string     `json:"rrule,omitempty"`

	RequiresSupplierConfirmation bool `json:"requires_supplier_confirmation"`
	SupplierDeadlineDays         int  `json:"supplier_deadline_days"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	FullAt      *time.Time `json:"full_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EvenementRegistration struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EventInvite targets exactly one of a known user, an email or a phone,
// resolved at creation time.
type EventInvite struct {
	ID            int64        `json:"id"`
	EventID       int64        `json:"event_id"`
	InvitedUserID *int64       `json:"invited_user_id,omitempty"`
	Email         *string      `json:"email,omitempty"`
	Phone         *string      `json:"phone,omitempty"`
	Token         string       `json:"token"`
	Status        InviteStatus `json:"status"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type RestaurantClosure struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomAvailability is one row of the per-date availability dashboard.
type RoomAvailability struct {
	Room         Room          `json:"room"`
	Reservations []Reservation `json:"reservations"`
}

type AvailabilityDashboard struct {
	RestaurantID int64              `json:"restaurant_id"`
	Restaurant   string             `json:"restaurant"`
	Date         time.Time          `json:"date"`
	Rooms        []RoomAvailability `json:"rooms"`
	Events       []Evenement        `json:"events"`
}

type RoomStats struct {
	Room      string `json:"room"`
	Total     int64  `json:"total"`
	Confirmed int64  `json:"confirmed"`
	Pending   int64  `json:"pending"`
	Cancelled int64  `json:"cancelled"`
}

type RestaurantStats struct {
	Restaurant string      `json:"restaurant"`
	Total      int64       `json:"total_reservations"`
	Confirmed  int64       `json:"confirmed"`
	Pending    int64       `json:"pending"`
	Cancelled  int64       `json:"cancelled"`
	Rooms      []RoomStats `json:"rooms"`
}
