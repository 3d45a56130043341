package httpgin

import (
	"time"

	"github.com/vegnbio/restobook/internal/domain"
)

type RestaurantRequest struct {
	Name       string              `json:"name" binding:"required"`
	Address    string              `json:"address"`
	City       string              `json:"city"`
	PostalCode string              `json:"postal_code"`
	Capacity   int                 `json:"capacity" binding:"required,gt=0"`
	Amenities  domain.Amenities    `json:"amenities"`
	Hours      domain.OpeningHours `json:"hours" binding:"required"`
}

type RoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

type ClosureRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason"`
}

// targetFields is the room/full-venue pair shared by reservation payloads.
// Exactly one of room_id and full_restaurant may be set.
type targetFields struct {
	RoomID         *int64 `json:"room_id"`
	FullRestaurant bool   `json:"full_restaurant"`
}

func (t targetFields) target() (domain.BookingTarget, error) {
	switch {
	case t.RoomID != nil && t.FullRestaurant:
		return domain.BookingTarget{}, domain.Invalid("choose either a room or the whole restaurant, not both")
	case t.FullRestaurant:
		return domain.WholeVenueTarget(), nil
	case t.RoomID != nil:
		return domain.RoomTarget(*t.RoomID), nil
	default:
		return domain.BookingTarget{}, domain.Invalid("a room or the whole restaurant must be chosen")
	}
}

// Time-of-day fields are pointers: midnight encodes as zero, which the
// required binding would otherwise mistake for an absent field.
type CreateReservationRequest struct {
	targetFields
	CustomerEmail string            `json:"customer_email"`
	PartySize     int               `json:"party_size" binding:"required,gt=0"`
	Date          string            `json:"date" binding:"required"`
	StartTime     *domain.TimeOfDay `json:"start_time" binding:"required"`
	EndTime       *domain.TimeOfDay `json:"end_time" binding:"required"`
}

type UpdateReservationRequest struct {
	targetFields
	PartySize int               `json:"party_size" binding:"required,gt=0"`
	Date      string            `json:"date" binding:"required"`
	StartTime *domain.TimeOfDay `json:"start_time" binding:"required"`
	EndTime   *domain.TimeOfDay `json:"end_time" binding:"required"`
}

type AssignRequest struct {
	targetFields
}

type ModerateRequest struct {
	Status string `json:"status" binding:"required"`
}

type EventRequest struct {
	RestaurantID int64             `json:"restaurant_id" binding:"required"`
	RoomID       *int64            `json:"room_id"`
	Title        string            `json:"title" binding:"required"`
	Description  string            `json:"description"`
	Type         string            `json:"type"`
	Date         string            `json:"date" binding:"required"`
	StartTime    *domain.TimeOfDay `json:"start_time" binding:"required"`
	EndTime      *domain.TimeOfDay `json:"end_time" binding:"required"`
	Capacity     *int              `json:"capacity"`
	IsPublic     *bool             `json:"is_public"`
	IsBlocking   bool              `json:"is_blocking"`
	RRule        *string           `json:"rrule"`

	RequiresSupplierConfirmation bool `json:"requires_supplier_confirmation"`
	SupplierDeadlineDays         int  `json:"supplier_deadline_days"`
}

type InviteeRequest struct {
	UserID    *int64     `json:"user_id"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type BulkInviteRequest struct {
	Invitees []InviteeRequest `json:"invitees" binding:"required,min=1,dive"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
