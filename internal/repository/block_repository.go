package repository

import (
	"context"

	"gorm.io/gorm"

	"archinsight/internal/model"
)

// BlockWithOwnerTeam joins the owner's team onto the block for team-scope
// access evaluation.
type BlockWithOwnerTeam struct {
	model.Block
	OwnerTeamID *uint `json:"owner_team_id"`
}

// BlockRepository defines persistence operations for analysis blocks.
type BlockRepository interface {
	Create(ctx context.Context, block *model.Block) error
	FindByID(ctx context.Context, id uint) (*model.Block, error)
	FindByBlockID(ctx context.Context, blockID string, ownerID *uint) (*model.Block, error)
	ListByOwner(ctx context.Context, ownerID uint, category string, visibility model.Visibility) ([]model.Block, error)
	// ListPublicExcluding returns public blocks owned by anyone but userID.
	ListPublicExcluding(ctx context.Context, userID uint) ([]model.Block, error)
	// ListTeamVisibleExcluding returns team-visibility blocks owned by
	// anyone but userID, each carrying the owner's team id.
	ListTeamVisibleExcluding(ctx context.Context, userID uint) ([]BlockWithOwnerTeam, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	Categories(ctx context.Context, ownerID *uint) ([]string, error)
	// ListAll dumps every block, used for backup snapshots.
	ListAll(ctx context.Context) ([]model.Block, error)
	Count(ctx context.Context) (int64, error)
	CountPublic(ctx context.Context) (int64, error)
}

type blockRepository struct {
	db *gorm.DB
}

var _ BlockRepository = (*blockRepository)(nil)

// NewBlockRepository builds a GORM-backed repository.
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Create(ctx context.Context, block *model.Block) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *blockRepository) FindByID(ctx context.Context, id uint) (*model.Block, error) {
	var block model.Block
	err := r.db.WithContext(ctx).First(&block, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *blockRepository) FindByBlockID(ctx context.Context, blockID string, ownerID *uint) (*model.Block, error) {
	q := r.db.WithContext(ctx).Where("block_id = ?", blockID)
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}

	var block model.Block
	err := q.First(&block).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *blockRepository) ListByOwner(ctx context.Context, ownerID uint, category string, visibility model.Visibility) ([]model.Block, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if visibility != "" {
		q = q.Where("visibility = ?", visibility)
	}

	var blocks []model.Block
	if err := q.Order("created_at DESC").Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepository) ListPublicExcluding(ctx context.Context, userID uint) ([]model.Block, error) {
	var blocks []model.Block
	err := r.db.WithContext(ctx).
		Where("visibility = ? AND owner_id != ?", model.VisibilityPublic, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepository) ListAll(ctx context.Context) ([]model.Block, error) {
	var blocks []model.Block
	if err := r.db.WithContext(ctx).Order("id").Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepository) ListTeamVisibleExcluding(ctx context.Context, userID uint) ([]BlockWithOwnerTeam, error) {
	var rows []BlockWithOwnerTeam
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Select("blocks.*, users.team_id AS owner_team_id").
		Joins("LEFT JOIN users ON blocks.owner_id = users.id").
		Where("blocks.visibility = ? AND blocks.owner_id != ?", model.VisibilityTeam, userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// blockUpdateFields is the tolerant-update allowlist for blocks.
var blockUpdateFields = map[string]bool{
	"name":              true,
	"category":          true,
	"block_data":        true,
	"visibility":        true,
	"shared_with_teams": true,
}

func (r *blockRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	updates := map[string]interface{}{}
	for k, v := range fields {
		if blockUpdateFields[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Model(&model.Block{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *blockRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Block{}, id).Error
}

func (r *blockRepository) Categories(ctx context.Context, ownerID *uint) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&model.Block{}).
		Distinct("category").
		Where("category != ''")
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}

	var categories []string
	if err := q.Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *blockRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).Count(&count).Error
	return count, err
}

func (r *blockRepository) CountPublic(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("visibility = ?", model.VisibilityPublic).
		Count(&count).Error
	return count, err
}
