package model

import (
	"fmt"
	"time"
)

// Role is a user's permission tier.
type Role string

const (
	RoleUser     Role = "user"
	RoleTeamLead Role = "team_lead"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a stored role string. Unknown values are rejected
// rather than passed through.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleTeamLead, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsAdmin reports whether the role is admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// IsTeamLeadOrAbove reports whether the role is team_lead or admin.
func (r Role) IsTeamLeadOrAbove() bool {
	return r == RoleTeamLead || r == RoleAdmin
}

// Status is a user account state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// User represents a registered platform member. The personal number is the
// natural key used at login; it is stored upper-cased.
type User struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	PersonalNumber string     `json:"personal_number" gorm:"uniqueIndex;size:64;not null"`
	DisplayName    string     `json:"display_name" gorm:"size:255;not null"`
	Role           Role       `json:"role" gorm:"size:50;not null;default:'user'"`
	TeamID         *uint      `json:"team_id" gorm:"index"`
	Status         Status     `json:"status" gorm:"size:50;not null;default:'active';index"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
}
