package domain

import (
	"slices"
	"time"
)

// Role names carried in access tokens and credential records.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
	RoleUser  = "USER"
)

// Identity is the verified payload of an access token. It lives for the duration of a
// single request and is never persisted.
type Identity struct {
	Subject   string
	Roles     []string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasAnyRole reports whether the identity carries at least one of the given roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if slices.Contains(i.Roles, role) {
			return true
		}
	}
	return false
}
