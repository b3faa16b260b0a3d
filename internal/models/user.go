package models

import "time"

// Role is the access level carried in the session token.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin is true for admin and super_admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is the account shape returned by /me and /admin/users.
type User struct {
	ID           int64     `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Role         Role      `bson:"role" json:"role"`
	Avatar       string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	GoogleSub    string    `bson:"googleSub,omitempty" json:"-"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	Onboarded    bool      `bson:"onboarded" json:"onboarded"`
	Interests    []string  `bson:"interests,omitempty" json:"interests,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}
