package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"
)

// DefaultInviteTTL is applied when an invite is created without an explicit
// expiry.
const DefaultInviteTTL = 14 * 24 * time.Hour

// NewInviteToken returns a random URL-safe token. 32 bytes of entropy make
// collisions negligible; uniqueness is still enforced by the store.
func NewInviteToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// SupplierDeadline is the cutoff after which a supplier-confirmed event no
// longer accepts invites: event date minus the configured number of days,
// at 23:59:59 local. Nil when the event needs no supplier confirmation.
func (e *Evenement) SupplierDeadline() *time.Time {
	if !e.RequiresSupplierConfirmation {
		return nil
	}

	y, m, d := e.Date.Date()
	t := time.Date(y, m, d, 23, 59, 59, 0, e.Date.Location()).
		AddDate(0, 0, -e.SupplierDeadlineDays)

	return &t
}

// IsValid reports whether the invite can still be acted on: it must be
// pending, unexpired, and the event's supplier deadline (if any) must not
// have passed.
func (i *EventInvite) IsValid(event *Evenement, now time.Time) bool {
	if i.Status != InvitePending {
		return false
	}

	if i.ExpiresAt != nil && i.ExpiresAt.Before(now) {
		return false
	}

	if dl := event.SupplierDeadline(); dl != nil && now.After(*dl) {
		return false
	}

	return true
}

// AddressedTo reports whether the acting user is the invite's addressee,
// either by user reference or by case-insensitive email match.
func (i *EventInvite) AddressedTo(id ActingIdentity) bool {
	if i.InvitedUserID != nil && *i.InvitedUserID == id.UserID {
		return true
	}

	if i.Email != nil && id.Email != "" && strings.EqualFold(*i.Email, id.Email) {
		return true
	}

	return false
}
