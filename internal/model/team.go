package model

import "time"

// Team groups users. Deleting a team detaches its members (team_id set to
// NULL) rather than deleting them.
type Team struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:255;not null"`
	Description string    `json:"description" gorm:"size:1024"`
	CreatedAt   time.Time `json:"created_at"`
}
