package repository

import (
	"context"

	"gorm.io/gorm"

	"archinsight/internal/model"
)

// APIKeyRepository defines persistence operations for encrypted secrets.
type APIKeyRepository interface {
	// Upsert writes ciphertext and IV for (userID, keyName), overwriting
	// any existing row.
	Upsert(ctx context.Context, userID uint, keyName, encryptedValue, iv string) error
	Find(ctx context.Context, userID uint, keyName string) (*model.APIKey, error)
	// ListNames returns key metadata only. The projection never selects the
	// ciphertext column, so decrypted or encrypted values cannot leak
	// through a listing.
	ListNames(ctx context.Context, userID uint) ([]model.APIKey, error)
	Delete(ctx context.Context, userID uint, keyName string) error
	Exists(ctx context.Context, userID uint, keyName string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type apiKeyRepository struct {
	db *gorm.DB
}

var _ APIKeyRepository = (*apiKeyRepository)(nil)

// NewAPIKeyRepository builds a GORM-backed repository.
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Upsert(ctx context.Context, userID uint, keyName, encryptedValue, iv string) error {
	var existing model.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND key_name = ?", userID, keyName).
		First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(&model.APIKey{
			UserID:         userID,
			KeyName:        keyName,
			EncryptedValue: encryptedValue,
			EncryptionIV:   iv,
		}).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("user_id = ? AND key_name = ?", userID, keyName).
		Updates(map[string]interface{}{
			"encrypted_value": encryptedValue,
			"encryption_iv":   iv,
		}).Error
}

func (r *apiKeyRepository) Find(ctx context.Context, userID uint, keyName string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND key_name = ?", userID, keyName).
		First(&key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) ListNames(ctx context.Context, userID uint) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Select("id", "user_id", "key_name", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("key_name ASC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *apiKeyRepository) Delete(ctx context.Context, userID uint, keyName string) error {
	return r.db.WithContext(ctx).
		Delete(&model.APIKey{}, "user_id = ? AND key_name = ?", userID, keyName).Error
}

func (r *apiKeyRepository) Exists(ctx context.Context, userID uint, keyName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("user_id = ? AND key_name = ?", userID, keyName).
		Count(&count).Error
	return count > 0, err
}

func (r *apiKeyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.APIKey{}).Count(&count).Error
	return count, err
}
