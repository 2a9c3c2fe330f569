package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User owns cards by id only; the card set is looked up, never embedded.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null"`
	Role         Role   `gorm:"default:'USER'"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  *time.Time
}

// Principal is the acting identity of a request.
type Principal struct {
	UserID uint
	Roles  []Role
}

// IsAdmin reports whether the principal bypasses ownership checks.
func (p Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// PrincipalOf builds the principal for a stored user.
func PrincipalOf(u *User) Principal {
	return Principal{UserID: u.ID, Roles: []Role{u.Role}}
}
