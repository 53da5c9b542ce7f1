package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"archinsight/internal/auth"
	errs "archinsight/internal/errors"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

// LoginResult carries the session token, the resolved user and a
// display-ready message.
type LoginResult struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

// AuthService handles login, logout and session resolution.
type AuthService interface {
	// Login resolves a personal number to an active user and opens a
	// session. With autoCreate a missing user is registered first with
	// default role and active status; that path must be opted into per
	// call site, never globally.
	Login(ctx context.Context, personalNumber string, autoCreate bool) (*LoginResult, error)
	// Logout deletes the session. Returns false when no session existed.
	Logout(ctx context.Context, token string) (bool, error)
	// Authenticate resolves a token to its session, or nil when the token
	// is unknown or expired.
	Authenticate(ctx context.Context, token string) (*model.Session, error)
	// CurrentUser loads the fresh user record behind a session token.
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

type authService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	log      zerolog.Logger
}

var _ AuthService = (*authService)(nil)

// NewAuthService creates the authentication facade over the identity store
// and the session store.
func NewAuthService(users repository.UserRepository, sessions auth.SessionStore, log zerolog.Logger) AuthService {
	return &authService{users: users, sessions: sessions, log: log}
}

func (s *authService) Login(ctx context.Context, personalNumber string, autoCreate bool) (*LoginResult, error) {
	normalized := repository.NormalizePersonalNumber(personalNumber)
	if normalized == "" {
		return nil, errs.ErrEmptyPersonalNumber
	}

	user, err := s.users.FindByPersonalNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if user == nil {
		if !autoCreate {
			return nil, errs.ErrUnknownPersonalNumber
		}
		created := &model.User{
			PersonalNumber: normalized,
			Role:           model.RoleUser,
			Status:         model.StatusActive,
		}
		if err := s.users.Create(ctx, created); err != nil {
			return nil, err
		}
		user = created
	}

	if user.Status != model.StatusActive {
		return nil, errs.ErrAccountDisabled
	}

	token, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	// last_login lives on the user record, independent of session
	// timestamps. A failed touch does not invalidate the login.
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to update last_login")
	}

	return &LoginResult{
		Token:   token,
		User:    user,
		Message: fmt.Sprintf("Welcome, %s!", user.DisplayName),
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.sessions.Delete(ctx, token)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	return s.sessions.Get(ctx, token)
}

func (s *authService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	session, err := s.Authenticate(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}
	return s.users.FindByID(ctx, session.UserID)
}
