package repository

import (
	"context"

	"gorm.io/gorm"

	errs "archinsight/internal/errors"
	"archinsight/internal/model"
)

// TeamRepository defines persistence operations for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id uint) (*model.Team, error)
	List(ctx context.Context) ([]model.Team, error)
	Members(ctx context.Context, teamID uint) ([]model.User, error)
	// DeleteCascade detaches all members (team_id set to NULL) and removes
	// the team inside one transaction.
	DeleteCascade(ctx context.Context, teamID uint) error
	Count(ctx context.Context) (int64, error)
}

type teamRepository struct {
	db *gorm.DB
}

var _ TeamRepository = (*teamRepository)(nil)

// NewTeamRepository builds a GORM-backed repository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

// Create inserts the team after an explicit duplicate-name pre-check.
func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Team{}).
		Where("name = ?", team.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errs.ErrTeamExists
	}

	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepository) FindByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).First(&team, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) Members(ctx context.Context, teamID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("display_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *teamRepository) DeleteCascade(ctx context.Context, teamID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).
			Where("team_id = ?", teamID).
			UpdateColumn("team_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Team{}, teamID).Error
	})
}

func (r *teamRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Team{}).Count(&count).Error
	return count, err
}
