// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a user's access level. Roles form a closed set and are always
// compared by exact membership, never by name matching.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
	RoleStaff     Role = "STAFF"
	RoleDev       Role = "DEV"
)

// ParseRole normalizes a stored role string to a known Role.
// Unknown values degrade to RoleUser.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleModerator, RoleAdmin, RoleStaff, RoleDev:
		return Role(s)
	default:
		return RoleUser
	}
}

// Elevated reports whether the role is anything above a regular user.
// Elevated users cannot open support requests of their own.
func (r Role) Elevated() bool {
	switch r {
	case RoleModerator, RoleAdmin, RoleStaff, RoleDev:
		return true
	}
	return false
}

// CanModerate reports whether the role may be assigned to support sessions
// and perform moderation actions.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// User represents a user account in the UFit application.
// Karma is derived from votes received across the user's forum posts and is
// overwritten on every recomputation; it is never authoritative on its own.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      Role           `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	Karma     int            `gorm:"not null;default:0" json:"karma"`
	Bio       string         `json:"bio"`
	Avatar    string         `json:"avatar"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Posts     []Post         `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}
