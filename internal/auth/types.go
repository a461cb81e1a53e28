package auth

import "errors"

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer may only read.
	RoleViewer Role = "viewer"

	// RoleOperator runs stoves: lighting and loading items.
	RoleOperator Role = "operator"

	// RoleAdmin also changes the world: placing and removing stoves and
	// setting blocks.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrNoSecret     = errors.New("auth: signing secret not configured")
)
