package domain

import "github.com/google/uuid"

// Principal is the authenticated caller passed explicitly into every operation.
type Principal struct {
	ClientID uuid.UUID
	Username string
	Role     Role
}

// IsAdmin returns true if the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether the principal is the given owner.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return p.ClientID != uuid.Nil && p.ClientID == ownerID
}

// SystemPrincipal is used by scheduled jobs that act with admin rights.
func SystemPrincipal() Principal {
	return Principal{Username: "system", Role: RoleAdmin}
}
