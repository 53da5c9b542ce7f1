package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Visibility is the read-access scope of a block.
type Visibility string

const (
	// VisibilityPersonal restricts access to the owner.
	VisibilityPersonal Visibility = "personal"
	// VisibilityTeam grants read access to the shared teams and the
	// owner's own team.
	VisibilityTeam Visibility = "team"
	// VisibilityPublic grants read access to every user.
	VisibilityPublic Visibility = "public"
)

// ParseVisibility validates a stored visibility string.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPersonal, VisibilityTeam, VisibilityPublic:
		return Visibility(s), nil
	}
	return "", fmt.Errorf("unknown visibility %q", s)
}

// Block is a user-authored analysis block definition. BlockData is an opaque
// payload owned entirely by the caller. Ownership is fixed at creation; only
// the owner may mutate or delete a block.
type Block struct {
	ID              uint                      `json:"id" gorm:"primaryKey"`
	BlockID         string                    `json:"block_id" gorm:"size:255;not null;index"`
	OwnerID         uint                      `json:"owner_id" gorm:"not null;index"`
	Name            string                    `json:"name" gorm:"size:255;not null"`
	Category        string                    `json:"category" gorm:"size:255;index"`
	BlockData       datatypes.JSON            `json:"block_data"`
	Visibility      Visibility                `json:"visibility" gorm:"size:50;not null;default:'personal';index"`
	SharedWithTeams datatypes.JSONSlice[uint] `json:"shared_with_teams"`
	CreatedAt       time.Time                 `json:"created_at"`
}

// SharedWith reports whether the block is explicitly shared with a team.
func (b *Block) SharedWith(teamID uint) bool {
	for _, id := range b.SharedWithTeams {
		if id == teamID {
			return true
		}
	}
	return false
}
