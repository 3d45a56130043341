package domain

import "slices"

type Role string

const (
	RoleClient       Role = "CLIENT"
	RoleRestaurateur Role = "RESTAURATEUR"
	RoleAdmin        Role = "ADMIN"
)

// ActingIdentity carries everything the engine needs to know about the
// caller: identity, role and the restaurants they own. It is built by the
// transport layer from the token issued by the accounts service; permission
// checks are pure functions over this value.
type ActingIdentity struct {
	UserID             int64
	Email              string
	Role               Role
	OwnedRestaurantIDs []int64
}

func (a ActingIdentity) IsOperator() bool {
	return a.Role == RoleRestaurateur
}

func (a ActingIdentity) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the caller operates the given restaurant. Admins
// pass every ownership check.
func (a ActingIdentity) Owns(restaurantID int64) bool {
	if a.IsAdmin() {
		return true
	}

	return a.IsOperator() && slices.Contains(a.OwnedRestaurantIDs, restaurantID)
}
