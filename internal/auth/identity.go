package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of principal roles. Query scoping and booking
// eligibility dispatch on this type instead of raw strings.
type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleProfessional, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the authenticated principal attached to each request by the
// JWT middleware. UserID is the canonical external identifier; profile rows
// (patients, professionals) are resolved from it per operation.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}
