package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"archinsight/internal/backup"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

// CreateBlockInput describes a new analysis block. Data is an opaque JSON
// payload owned entirely by the caller.
type CreateBlockInput struct {
	OwnerID     uint
	Name        string
	Data        json.RawMessage
	Category    string
	Visibility  model.Visibility
	SharedTeams []uint
	BlockID     string
}

// UpdateBlockInput is a sparse block update; nil fields are left untouched.
type UpdateBlockInput struct {
	Name        *string
	Category    *string
	Data        json.RawMessage
	Visibility  *model.Visibility
	SharedTeams *[]uint
}

// BlockService is the block registry and its access control.
type BlockService interface {
	Create(ctx context.Context, in CreateBlockInput) (*model.Block, error)
	GetByOwner(ctx context.Context, ownerID uint, category string, visibility model.Visibility) ([]model.Block, error)
	GetByID(ctx context.Context, id uint) (*model.Block, error)
	GetByNaturalID(ctx context.Context, blockID string, ownerID *uint) (*model.Block, error)
	// Update applies the change iff callerID owns the block. An ownership
	// mismatch returns false without touching the record.
	Update(ctx context.Context, id, callerID uint, in UpdateBlockInput) (bool, error)
	Delete(ctx context.Context, id, callerID uint) (bool, error)
	// ListAccessible unions owned, public and team-shared blocks,
	// de-duplicated by block identity.
	ListAccessible(ctx context.Context, userID uint, teamID *uint) ([]model.Block, error)
	ShareWithTeam(ctx context.Context, id, callerID, teamID uint) (bool, error)
	// UnshareFromTeam removes the grant; dropping the last shared team
	// demotes visibility from team to personal.
	UnshareFromTeam(ctx context.Context, id, callerID, teamID uint) (bool, error)
	SetPublic(ctx context.Context, id, callerID uint) (bool, error)
	SetPrivate(ctx context.Context, id, callerID uint) (bool, error)
	CanAccess(ctx context.Context, id, userID uint, teamID *uint) (bool, error)
	Categories(ctx context.Context, ownerID *uint) ([]string, error)
}

type blockService struct {
	blocks   repository.BlockRepository
	users    repository.UserRepository
	notifier *backup.Notifier
	log      zerolog.Logger
}

var _ BlockService = (*blockService)(nil)

// NewBlockService builds the registry over the block and user repositories.
// The notifier receives a best-effort snapshot request after every
// successful mutation.
func NewBlockService(blocks repository.BlockRepository, users repository.UserRepository, notifier *backup.Notifier, log zerolog.Logger) BlockService {
	return &blockService{blocks: blocks, users: users, notifier: notifier, log: log}
}

// GenerateBlockID derives a natural id from the block name: Unicode letters,
// digits and underscores are kept, whitespace runs become single
// underscores, the result is lower-cased and an 8-hex-char random suffix is
// appended for practical uniqueness.
func GenerateBlockID(name string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSpace {
				b.WriteByte('_')
				pendingSpace = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}

	u := uuid.New()
	suffix := hex.EncodeToString(u[:])[:8]
	if b.Len() == 0 {
		return suffix
	}
	return b.String() + "_" + suffix
}

func (s *blockService) Create(ctx context.Context, in CreateBlockInput) (*model.Block, error) {
	blockID := in.BlockID
	if blockID == "" {
		blockID = GenerateBlockID(in.Name)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPersonal
	}
	shared := in.SharedTeams
	// A team scope without any shared team is equivalent to personal;
	// normalize on write so the combination never dangles.
	if visibility == model.VisibilityTeam && len(shared) == 0 {
		visibility = model.VisibilityPersonal
	}

	block := &model.Block{
		BlockID:         blockID,
		OwnerID:         in.OwnerID,
		Name:            in.Name,
		Category:        in.Category,
		BlockData:       annotateBlockData(in.Data, blockID, in.Name),
		Visibility:      visibility,
		SharedWithTeams: datatypes.NewJSONSlice(shared),
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, err
	}

	s.notifier.NotifyBlocks()
	return block, nil
}

// annotateBlockData stamps registry metadata into an object payload.
// Non-object payloads pass through untouched.
func annotateBlockData(data json.RawMessage, blockID, name string) datatypes.JSON {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return datatypes.JSON(data)
	}

	obj["id"] = blockID
	obj["name"] = name
	obj["created_at"] = time.Now().Format(time.RFC3339)
	obj["created_by"] = "user"

	annotated, err := json.Marshal(obj)
	if err != nil {
		return datatypes.JSON(data)
	}
	return datatypes.JSON(annotated)
}

func (s *blockService) GetByOwner(ctx context.Context, ownerID uint, category string, visibility model.Visibility) ([]model.Block, error) {
	return s.blocks.ListByOwner(ctx, ownerID, category, visibility)
}

func (s *blockService) GetByID(ctx context.Context, id uint) (*model.Block, error) {
	return s.blocks.FindByID(ctx, id)
}

func (s *blockService) GetByNaturalID(ctx context.Context, blockID string, ownerID *uint) (*model.Block, error) {
	return s.blocks.FindByBlockID(ctx, blockID, ownerID)
}

// owned loads the block and gates on ownership. Mismatch and not-found both
// resolve to nil: the precondition failed, there is nothing to raise.
func (s *blockService) owned(ctx context.Context, id, callerID uint) (*model.Block, error) {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if block == nil || block.OwnerID != callerID {
		return nil, nil
	}
	return block, nil
}

func (s *blockService) Update(ctx context.Context, id, callerID uint, in UpdateBlockInput) (bool, error) {
	existing, err := s.owned(ctx, id, callerID)
	if err != nil || existing == nil {
		return false, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Data != nil {
		fields["block_data"] = datatypes.JSON(in.Data)
	}

	visibility := existing.Visibility
	if in.Visibility != nil {
		visibility = *in.Visibility
	}
	shared := []uint(existing.SharedWithTeams)
	if in.SharedTeams != nil {
		shared = *in.SharedTeams
	}
	if in.Visibility != nil || in.SharedTeams != nil {
		if visibility == model.VisibilityTeam && len(shared) == 0 {
			visibility = model.VisibilityPersonal
		}
		fields["visibility"] = visibility
		fields["shared_with_teams"] = datatypes.NewJSONSlice(shared)
	}

	if len(fields) == 0 {
		return false, nil
	}
	if err := s.blocks.Update(ctx, id, fields); err != nil {
		return false, err
	}

	s.notifier.NotifyBlocks()
	return true, nil
}

func (s *blockService) Delete(ctx context.Context, id, callerID uint) (bool, error) {
	existing, err := s.owned(ctx, id, callerID)
	if err != nil || existing == nil {
		return false, err
	}

	if err := s.blocks.Delete(ctx, id); err != nil {
		return false, err
	}

	s.notifier.NotifyBlocks()
	return true, nil
}

func (s *blockService) ListAccessible(ctx context.Context, userID uint, teamID *uint) ([]model.Block, error) {
	owned, err := s.blocks.ListByOwner(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}

	public, err := s.blocks.ListPublicExcluding(ctx, userID)
	if err != nil {
		return nil, err
	}

	var teamShared []model.Block
	if teamID != nil {
		rows, err := s.blocks.ListTeamVisibleExcluding(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			// Two independent grant paths: an explicit share with the
			// requester's team, or the owner belonging to that team.
			if row.SharedWith(*teamID) || (row.OwnerTeamID != nil && *row.OwnerTeamID == *teamID) {
				teamShared = append(teamShared, row.Block)
			}
		}
	}

	seen := map[uint]bool{}
	var result []model.Block
	for _, group := range [][]model.Block{owned, public, teamShared} {
		for _, block := range group {
			if !seen[block.ID] {
				seen[block.ID] = true
				result = append(result, block)
			}
		}
	}
	return result, nil
}

func (s *blockService) ShareWithTeam(ctx context.Context, id, callerID, teamID uint) (bool, error) {
	existing, err := s.owned(ctx, id, callerID)
	if err != nil || existing == nil {
		return false, err
	}

	shared := []uint(existing.SharedWithTeams)
	if !existing.SharedWith(teamID) {
		shared = append(shared, teamID)
	}

	visibility := model.VisibilityTeam
	return s.Update(ctx, id, callerID, UpdateBlockInput{
		Visibility:  &visibility,
		SharedTeams: &shared,
	})
}

func (s *blockService) UnshareFromTeam(ctx context.Context, id, callerID, teamID uint) (bool, error) {
	existing, err := s.owned(ctx, id, callerID)
	if err != nil || existing == nil {
		return false, err
	}

	shared := make([]uint, 0, len(existing.SharedWithTeams))
	for _, t := range existing.SharedWithTeams {
		if t != teamID {
			shared = append(shared, t)
		}
	}

	visibility := model.VisibilityTeam
	if len(shared) == 0 {
		visibility = model.VisibilityPersonal
	}
	return s.Update(ctx, id, callerID, UpdateBlockInput{
		Visibility:  &visibility,
		SharedTeams: &shared,
	})
}

func (s *blockService) SetPublic(ctx context.Context, id, callerID uint) (bool, error) {
	visibility := model.VisibilityPublic
	return s.Update(ctx, id, callerID, UpdateBlockInput{Visibility: &visibility})
}

func (s *blockService) SetPrivate(ctx context.Context, id, callerID uint) (bool, error) {
	visibility := model.VisibilityPersonal
	empty := []uint{}
	return s.Update(ctx, id, callerID, UpdateBlockInput{
		Visibility:  &visibility,
		SharedTeams: &empty,
	})
}

// CanAccess evaluates the access precedence: owner, then public, then team
// grants, then personal (owner only).
func (s *blockService) CanAccess(ctx context.Context, id, userID uint, teamID *uint) (bool, error) {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if block == nil {
		return false, nil
	}

	if block.OwnerID == userID {
		return true, nil
	}

	switch block.Visibility {
	case model.VisibilityPublic:
		return true, nil
	case model.VisibilityTeam:
		if teamID == nil {
			return false, nil
		}
		if block.SharedWith(*teamID) {
			return true, nil
		}
		owner, err := s.users.FindByID(ctx, block.OwnerID)
		if err != nil {
			return false, err
		}
		return owner != nil && owner.TeamID != nil && *owner.TeamID == *teamID, nil
	default:
		return false, nil
	}
}

func (s *blockService) Categories(ctx context.Context, ownerID *uint) ([]string, error) {
	return s.blocks.Categories(ctx, ownerID)
}
