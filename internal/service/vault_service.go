package service

import (
	"context"

	"github.com/rs/zerolog"

	"archinsight/internal/model"
	"archinsight/internal/repository"
	"archinsight/internal/security"
)

// VaultService stores per-user named secrets, encrypted at rest.
type VaultService interface {
	// Save upserts the secret under (userID, keyName).
	Save(ctx context.Context, userID uint, keyName, value string) error
	// Get decrypts and returns the secret. Any failure, including corrupt
	// ciphertext, degrades to ("", false) rather than faulting the caller.
	Get(ctx context.Context, userID uint, keyName string) (string, bool)
	// GetForSession resolves the user from an authenticated session.
	GetForSession(ctx context.Context, session *model.Session, keyName string) (string, bool)
	// ListNames returns key metadata only, never decrypted values.
	ListNames(ctx context.Context, userID uint) ([]model.APIKey, error)
	Delete(ctx context.Context, userID uint, keyName string) error
	HasKey(ctx context.Context, userID uint, keyName string) (bool, error)
}

type vaultService struct {
	keys   repository.APIKeyRepository
	cipher *security.Cipher
	log    zerolog.Logger
}

var _ VaultService = (*vaultService)(nil)

// NewVaultService builds the vault over the key repository and cipher.
func NewVaultService(keys repository.APIKeyRepository, cipher *security.Cipher, log zerolog.Logger) VaultService {
	return &vaultService{keys: keys, cipher: cipher, log: log}
}

func (s *vaultService) Save(ctx context.Context, userID uint, keyName, value string) error {
	ciphertext, iv, err := s.cipher.Encrypt(value)
	if err != nil {
		return err
	}
	return s.keys.Upsert(ctx, userID, keyName, ciphertext, iv)
}

func (s *vaultService) Get(ctx context.Context, userID uint, keyName string) (string, bool) {
	key, err := s.keys.Find(ctx, userID, keyName)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Str("key_name", keyName).Msg("api key lookup failed")
		return "", false
	}
	if key == nil {
		return "", false
	}

	value, ok := s.cipher.Decrypt(key.EncryptedValue, key.EncryptionIV)
	if !ok {
		s.log.Warn().Uint("user_id", userID).Str("key_name", keyName).Msg("stored api key could not be decrypted")
		return "", false
	}
	return value, true
}

func (s *vaultService) GetForSession(ctx context.Context, session *model.Session, keyName string) (string, bool) {
	if session == nil {
		return "", false
	}
	return s.Get(ctx, session.UserID, keyName)
}

func (s *vaultService) ListNames(ctx context.Context, userID uint) ([]model.APIKey, error) {
	return s.keys.ListNames(ctx, userID)
}

func (s *vaultService) Delete(ctx context.Context, userID uint, keyName string) error {
	return s.keys.Delete(ctx, userID, keyName)
}

func (s *vaultService) HasKey(ctx context.Context, userID uint, keyName string) (bool, error) {
	return s.keys.Exists(ctx, userID, keyName)
}
