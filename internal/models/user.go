package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleProjectManager Role = "Project Manager"
	RoleUser           Role = "User"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleProjectManager || r == RoleUser
}

type User struct {
	ID        string    `gorm:"type:varchar(64);primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"type:varchar(32);not null;default:'User'" json:"role"`
	Avatar    string    `gorm:"type:text" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsProjectManager reports whether the user holds the Project Manager role.
func (u User) IsProjectManager() bool {
	return u.Role == RoleProjectManager
}

// ParseRole accepts a role by its display name or its URL slug
// ("project-manager", "user"), case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project manager", "project-manager", "project_manager", "pm":
		return RoleProjectManager, true
	case "user":
		return RoleUser, true
	default:
		return "", false
	}
}
