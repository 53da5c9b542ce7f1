package model

import "time"

// APIKey is one named encrypted secret per user. The plaintext value is
// never stored; EncryptedValue and EncryptionIV must be persisted together.
type APIKey struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_api_keys_user_name"`
	KeyName        string    `json:"key_name" gorm:"size:255;not null;uniqueIndex:idx_api_keys_user_name"`
	EncryptedValue string    `json:"-" gorm:"type:text;not null"`
	EncryptionIV   string    `json:"-" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
