package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Profile represents a registered user. A profile is created at registration,
// paired 1:1 with the credentials record, and is never deleted.
type Profile struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Bio          string    `db:"bio"`
	Phone        string    `db:"phone"`
	Gender       string    `db:"gender"`
	Role         Role      `db:"role"`
	Points       int       `db:"points"`
	AvatarURL    *string   `db:"avatar_url"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IsAdmin checks whether the profile holds the administrator role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfilePatch describes a partial self-service profile update.
// Nil fields are left untouched.
type ProfilePatch struct {
	Name      *string
	Bio       *string
	Phone     *string
	Gender    *string
	AvatarURL *string
}
