package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteToken(t *testing.T) {
	a := NewInviteToken()
	b := NewInviteToken()

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes, base64url without padding
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestSupplierDeadline(t *testing.T) {
	ev := &Evenement{
		Date:                         time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		RequiresSupplierConfirmation: true,
		SupplierDeadlineDays:         14,
	}

	dl := ev.SupplierDeadline()
	require.NotNil(t, dl)
	assert.Equal(t, time.Date(2025, 6, 6, 23, 59, 59, 0, time.UTC), *dl)

	ev.RequiresSupplierConfirmation = false
	assert.Nil(t, ev.SupplierDeadline())
}

func TestInviteIsValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)

	ev := &Evenement{Date: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name   string
		invite EventInvite
		event  Evenement
		want   bool
	}{
		{
			name:   "pending_unexpired",
			invite: EventInvite{Status: InvitePending, ExpiresAt: &future},
			event:  *ev,
			want:   true,
		},
		{
			name:   "no_expiry",
			invite: EventInvite{Status: InvitePending},
			event:  *ev,
			want:   true,
		},
		{
			name:   "expired",
			invite: EventInvite{Status: InvitePending, ExpiresAt: &past},
			event:  *ev,
			want:   false,
		},
		{
			name:   "already_accepted",
			invite: EventInvite{Status: InviteAccepted, ExpiresAt: &future},
			event:  *ev,
			want:   false,
		},
		{
			name:   "revoked",
			invite: EventInvite{Status: InviteRevoked},
			event:  *ev,
			want:   false,
		},
		{
			name:   "supplier_deadline_passed",
			invite: EventInvite{Status: InvitePending, ExpiresAt: &future},
			event: Evenement{
				// Deadline lands on 2025-05-21, before now.
				Date:                         time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
				RequiresSupplierConfirmation: true,
				SupplierDeadlineDays:         14,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invite.IsValid(&tt.event, now))
		})
	}
}

func TestInviteAddressedTo(t *testing.T) {
	uid := int64(42)
	email := "Guest@Example.com"

	byUser := EventInvite{InvitedUserID: &uid}
	byEmail := EventInvite{Email: &email}

	assert.True(t, byUser.AddressedTo(ActingIdentity{UserID: 42}))
	assert.False(t, byUser.AddressedTo(ActingIdentity{UserID: 7}))

	assert.True(t, byEmail.AddressedTo(ActingIdentity{UserID: 7, Email: "guest@example.com"}))
	assert.False(t, byEmail.AddressedTo(ActingIdentity{UserID: 7, Email: "other@example.com"}))
	assert.False(t, byEmail.AddressedTo(ActingIdentity{UserID: 7}))
}

func TestActingIdentityOwns(t *testing.T) {
	op := ActingIdentity{UserID: 1, Role: RoleRestaurateur, OwnedRestaurantIDs: []int64{3, 9}}
	client := ActingIdentity{UserID: 2, Role: RoleClient}
	admin := ActingIdentity{UserID: 3, Role: RoleAdmin}

	assert.True(t, op.Owns(3))
	assert.False(t, op.Owns(4))
	assert.False(t, client.Owns(3))
	assert.True(t, admin.Owns(3))
}
