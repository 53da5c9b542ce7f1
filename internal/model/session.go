package model

import "time"

// Session is a server-side login session keyed by an opaque high-entropy
// token. Role, display name and team are a snapshot taken at login; they
// are not re-synced if the user record changes later. The staleness window
// is bounded by the session TTL.
type Session struct {
	Token          string    `json:"-" gorm:"primaryKey;size:128"`
	UserID         uint      `json:"user_id" gorm:"not null;index"`
	PersonalNumber string    `json:"personal_number" gorm:"size:64;not null"`
	DisplayName    string    `json:"display_name" gorm:"size:255"`
	Role           Role      `json:"role" gorm:"size:50"`
	TeamID         *uint     `json:"team_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index"`
	LastActivity   time.Time `json:"last_activity"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
