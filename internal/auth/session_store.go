package auth

import (
	"context"
	"time"

	"gorm.io/gorm"

	"archinsight/internal/model"
)

// SessionStore defines server-side session persistence keyed by opaque token.
type SessionStore interface {
	// Create opens a session for the user, capturing a snapshot of the
	// display name, role and team at login time.
	Create(ctx context.Context, user *model.User) (string, error)
	// Get returns the session or nil when absent or expired. Reading a
	// valid session refreshes last_activity but never expires_at; an
	// expired row is deleted as a side effect (lazy eviction).
	Get(ctx context.Context, token string) (*model.Session, error)
	// Update applies a sparse field set to the session. Only display_name,
	// role and team_id are recognised; unknown fields are ignored.
	Update(ctx context.Context, token string, fields map[string]interface{}) error
	// Delete removes the session, reporting whether a row existed.
	Delete(ctx context.Context, token string) (bool, error)
	// Extend resets expires_at to now+ttl. This is the only sanctioned way
	// to slide the expiry window.
	Extend(ctx context.Context, token string, ttl time.Duration) error
	// SweepExpired removes all expired sessions and returns the count.
	SweepExpired(ctx context.Context) (int64, error)
	// CountActive returns the number of unexpired sessions.
	CountActive(ctx context.Context) (int64, error)
}

type sessionStore struct {
	db         *gorm.DB
	ttl        time.Duration
	tokenBytes int
}

var _ SessionStore = (*sessionStore)(nil)

// NewSessionStore builds a GORM-backed session store. ttl and tokenBytes
// come from configuration; zero values fall back to 24h and
// DefaultTokenBytes.
func NewSessionStore(db *gorm.DB, ttl time.Duration, tokenBytes int) SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tokenBytes <= 0 {
		tokenBytes = DefaultTokenBytes
	}
	return &sessionStore{db: db, ttl: ttl, tokenBytes: tokenBytes}
}

func (s *sessionStore) Create(ctx context.Context, user *model.User) (string, error) {
	token, err := GenerateToken(s.tokenBytes)
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := &model.Session{
		Token:          token,
		UserID:         user.ID,
		PersonalNumber: user.PersonalNumber,
		DisplayName:    user.DisplayName,
		Role:           user.Role,
		TeamID:         user.TeamID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
		LastActivity:   now,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", err
	}
	return token, nil
}

func (s *sessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	var session model.Session
	err := s.db.WithContext(ctx).First(&session, "token = ?", token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if session.Expired(now) {
		// Lazy eviction: an expired session disappears on first read.
		_, _ = s.Delete(ctx, token)
		return nil, nil
	}

	// Single-column update keeps the write atomic at the row level.
	if err := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("token = ?", token).
		UpdateColumn("last_activity", now).Error; err != nil {
		return nil, err
	}
	session.LastActivity = now
	return &session, nil
}

// sessionUpdateFields are the only session columns Update may touch.
var sessionUpdateFields = map[string]bool{
	"display_name": true,
	"role":         true,
	"team_id":      true,
}

func (s *sessionStore) Update(ctx context.Context, token string, fields map[string]interface{}) error {
	updates := map[string]interface{}{}
	for k, v := range fields {
		if sessionUpdateFields[k] {
			updates[k] = v
		}
	}
	updates["last_activity"] = time.Now()

	return s.db.WithContext(ctx).Model(&model.Session{}).
		Where("token = ?", token).
		UpdateColumns(updates).Error
}

func (s *sessionStore) Delete(ctx context.Context, token string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.Session{}, "token = ?", token)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *sessionStore) Extend(ctx context.Context, token string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	return s.db.WithContext(ctx).Model(&model.Session{}).
		Where("token = ?", token).
		UpdateColumn("expires_at", time.Now().Add(ttl)).Error
}

func (s *sessionStore) SweepExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.Session{})
	return res.RowsAffected, res.Error
}

func (s *sessionStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("expires_at >= ?", time.Now()).
		Count(&count).Error
	return count, err
}
