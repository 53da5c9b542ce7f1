package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	errs "archinsight/internal/errors"
	"archinsight/internal/model"
)

// NormalizePersonalNumber trims and upper-cases a personal number so login
// and lookups are case-insensitive.
func NormalizePersonalNumber(pn string) string {
	return strings.ToUpper(strings.TrimSpace(pn))
}

// UserFilter narrows List results. Zero values mean "no filter".
type UserFilter struct {
	Role   model.Role
	Status model.Status
	TeamID *uint
}

// UserWithTeam is an admin projection joining the team name onto the user.
type UserWithTeam struct {
	model.User
	TeamName string `json:"team_name"`
}

// UserRepository defines persistence operations for the identity store.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByPersonalNumber(ctx context.Context, personalNumber string) (*model.User, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	TouchLastLogin(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	ListWithTeamNames(ctx context.Context, includeInactive bool, search string) ([]UserWithTeam, error)
	RecentLogins(ctx context.Context, limit int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.Status) (int64, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*userRepository)(nil)

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user after an explicit duplicate pre-check so callers
// receive a clean failure signal instead of a storage-layer error.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.PersonalNumber = NormalizePersonalNumber(user.PersonalNumber)
	if user.DisplayName == "" {
		user.DisplayName = user.PersonalNumber
	}

	existing, err := r.FindByPersonalNumber(ctx, user.PersonalNumber)
	if err != nil {
		return err
	}
	if existing != nil {
		return errs.ErrUserExists
	}

	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByPersonalNumber(ctx context.Context, personalNumber string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("personal_number = ?", NormalizePersonalNumber(personalNumber)).
		First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// userUpdateFields is the tolerant-update allowlist. Unknown keys are
// silently dropped, not errors.
var userUpdateFields = map[string]bool{
	"display_name": true,
	"role":         true,
	"team_id":      true,
	"status":       true,
}

func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	updates := map[string]interface{}{}
	for k, v := range fields {
		if userUpdateFields[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return errs.ErrNothingToUpdate
	}

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", time.Now()).Error
}

// Delete removes the user and their stored API keys. There is no soft
// delete; callers needing retention must snapshot first.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.APIKey{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TeamID != nil {
		q = q.Where("team_id = ?", *filter.TeamID)
	}

	var users []model.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListWithTeamNames(ctx context.Context, includeInactive bool, search string) ([]UserWithTeam, error) {
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Select("users.*, teams.name AS team_name").
		Joins("LEFT JOIN teams ON users.team_id = teams.id")

	if !includeInactive {
		q = q.Where("users.status = ?", model.StatusActive)
	}
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("users.personal_number LIKE ? OR users.display_name LIKE ?", pattern, pattern)
	}

	var rows []UserWithTeam
	if err := q.Order("users.created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userRepository) RecentLogins(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("last_login IS NOT NULL").
		Order("last_login DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}
