package auth

import (
	"fmt"
	"time"
)

// Role enumerates the two authorization roles carried in token claims.
type Role string

const (
	// RoleCenterAdmin administers the visit center: agencies, slot
	// categories, user records. Never bound to an agency.
	RoleCenterAdmin Role = "admin"
	// RoleAgencyManager books time slots on behalf of exactly one agency.
	RoleAgencyManager Role = "agency_manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCenterAdmin || r == RoleAgencyManager
}

// User is an identity record. The token subsystem reads it but never
// mutates it.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	AgencyID     *int64    `json:"agency_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidateRoleAgency enforces the write-time invariant mirrored by the
// users table CHECK constraint: admins carry no agency reference,
// managers must carry one.
func (u *User) ValidateRoleAgency() error {
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, u.Role)
	}
	if u.Role == RoleCenterAdmin && u.AgencyID != nil {
		return fmt.Errorf("%w: admin must not reference an agency", ErrInvalidInput)
	}
	if u.Role == RoleAgencyManager && u.AgencyID == nil {
		return fmt.Errorf("%w: agency manager requires an agency", ErrInvalidInput)
	}
	return nil
}

// RefreshToken is a persisted refresh-token record. Only the hash of the
// raw value is ever stored.
type RefreshToken struct {
	ID        string
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}
