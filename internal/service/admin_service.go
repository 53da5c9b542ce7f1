package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"archinsight/internal/auth"
	"archinsight/internal/backup"
	"archinsight/internal/cache"
	errs "archinsight/internal/errors"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// TeamAssignment is the tri-state team parameter for user updates:
// keep the current team, clear it, or assign a specific one. The three
// shapes stay distinct instead of collapsing into a nullable id.
type TeamAssignment struct {
	set bool
	id  *uint
}

// KeepTeam leaves the user's team untouched.
func KeepTeam() TeamAssignment { return TeamAssignment{} }

// ClearTeam detaches the user from any team.
func ClearTeam() TeamAssignment { return TeamAssignment{set: true} }

// AssignTeam moves the user to the given team.
func AssignTeam(id uint) TeamAssignment { return TeamAssignment{set: true, id: &id} }

// UpdateUserInput is a sparse admin update; nil fields are left untouched.
// Unknown role or status strings are ignored, matching the tolerant-update
// contract.
type UpdateUserInput struct {
	DisplayName *string
	Role        *string
	Team        TeamAssignment
	Status      *string
}

// SystemStats aggregates operator-facing counters.
type SystemStats struct {
	Users struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
		Admins int64 `json:"admins"`
	} `json:"users"`
	Teams struct {
		Total int64 `json:"total"`
	} `json:"teams"`
	Blocks struct {
		Total  int64 `json:"total"`
		Public int64 `json:"public"`
	} `json:"blocks"`
	Sessions struct {
		Active int64 `json:"active"`
	} `json:"sessions"`
	APIKeys struct {
		Total int64 `json:"total"`
	} `json:"api_keys"`
}

// TeamWithMemberCount is the admin team listing row.
type TeamWithMemberCount struct {
	model.Team
	MemberCount int `json:"member_count"`
}

// AdminService aggregates operator tooling over the identity store, block
// registry and session store. Role enforcement is the caller's job, composed
// through the auth guards; the facade itself does not re-check.
type AdminService interface {
	SystemStats(ctx context.Context) (*SystemStats, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context, includeInactive bool, search string) ([]repository.UserWithTeam, error)
	CreateUser(ctx context.Context, personalNumber, displayName, role string, teamID *uint) (string, error)
	UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (string, error)
	DeleteUser(ctx context.Context, id uint) (string, error)
	ListTeams(ctx context.Context) ([]TeamWithMemberCount, error)
	CreateTeam(ctx context.Context, name, description string) (string, error)
	DeleteTeam(ctx context.Context, id uint) (string, error)
	// CleanupSystem sweeps expired sessions.
	CleanupSystem(ctx context.Context) (string, error)
	RecentLogins(ctx context.Context, limit int) ([]model.User, error)
}

type adminService struct {
	users    repository.UserRepository
	teams    repository.TeamRepository
	blocks   repository.BlockRepository
	keys     repository.APIKeyRepository
	sessions auth.SessionStore
	cache    *cache.Client
	notifier *backup.Notifier
	log      zerolog.Logger
}

var _ AdminService = (*adminService)(nil)

// NewAdminService wires the admin facade.
func NewAdminService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	blocks repository.BlockRepository,
	keys repository.APIKeyRepository,
	sessions auth.SessionStore,
	cacheClient *cache.Client,
	notifier *backup.Notifier,
	log zerolog.Logger,
) AdminService {
	return &adminService{
		users:    users,
		teams:    teams,
		blocks:   blocks,
		keys:     keys,
		sessions: sessions,
		cache:    cacheClient,
		notifier: notifier,
		log:      log,
	}
}

func (s *adminService) SystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	var err error

	if stats.Users.Total, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Users.Active, err = s.users.CountByStatus(ctx, model.StatusActive); err != nil {
		return nil, err
	}
	if stats.Users.Admins, err = s.users.CountByRole(ctx, model.RoleAdmin); err != nil {
		return nil, err
	}
	if stats.Teams.Total, err = s.teams.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Blocks.Total, err = s.blocks.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Blocks.Public, err = s.blocks.CountPublic(ctx); err != nil {
		return nil, err
	}
	if stats.Sessions.Active, err = s.sessions.CountActive(ctx); err != nil {
		return nil, err
	}
	if stats.APIKeys.Total, err = s.keys.Count(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *adminService) userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// GetUser is a read-through cached lookup.
func (s *adminService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.userCacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.ErrUserNotFound
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.userCacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *adminService) ListUsers(ctx context.Context, includeInactive bool, search string) ([]repository.UserWithTeam, error) {
	return s.users.ListWithTeamNames(ctx, includeInactive, search)
}

func (s *adminService) CreateUser(ctx context.Context, personalNumber, displayName, role string, teamID *uint) (string, error) {
	normalized := repository.NormalizePersonalNumber(personalNumber)
	if normalized == "" {
		return "", errs.ErrEmptyPersonalNumber
	}

	parsedRole, err := model.ParseRole(role)
	if err != nil {
		parsedRole = model.RoleUser
	}

	user := &model.User{
		PersonalNumber: normalized,
		DisplayName:    displayName,
		Role:           parsedRole,
		TeamID:         teamID,
		Status:         model.StatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	s.notifier.NotifyUsers()
	return fmt.Sprintf("User %q created.", normalized), nil
}

func (s *adminService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (string, error) {
	fields := map[string]interface{}{}

	if in.DisplayName != nil {
		fields["display_name"] = *in.DisplayName
	}
	if in.Role != nil {
		if role, err := model.ParseRole(*in.Role); err == nil {
			fields["role"] = role
		}
	}
	if in.Team.set {
		if in.Team.id != nil {
			fields["team_id"] = *in.Team.id
		} else {
			fields["team_id"] = nil
		}
	}
	if in.Status != nil {
		if status, err := model.ParseStatus(*in.Status); err == nil {
			fields["status"] = status
		}
	}

	if len(fields) == 0 {
		return "", errs.ErrNothingToUpdate
	}
	if err := s.users.Update(ctx, id, fields); err != nil {
		return "", err
	}

	_ = s.cache.Delete(ctx, s.userCacheKey(id))
	s.notifier.NotifyUsers()
	return "User updated.", nil
}

func (s *adminService) DeleteUser(ctx context.Context, id uint) (string, error) {
	if err := s.users.Delete(ctx, id); err != nil {
		return "", err
	}

	_ = s.cache.Delete(ctx, s.userCacheKey(id))
	s.notifier.NotifyUsers()
	return "User deleted.", nil
}

func (s *adminService) ListTeams(ctx context.Context) ([]TeamWithMemberCount, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]TeamWithMemberCount, 0, len(teams))
	for _, team := range teams {
		members, err := s.teams.Members(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, TeamWithMemberCount{Team: team, MemberCount: len(members)})
	}
	return result, nil
}

func (s *adminService) CreateTeam(ctx context.Context, name, description string) (string, error) {
	if name == "" {
		return "", errs.ErrEmptyTeamName
	}

	team := &model.Team{Name: name, Description: description}
	if err := s.teams.Create(ctx, team); err != nil {
		return "", err
	}

	s.notifier.NotifyTeams()
	return fmt.Sprintf("Team %q created.", name), nil
}

// DeleteTeam detaches members and removes the team. Member rows survive
// with a NULL team_id.
func (s *adminService) DeleteTeam(ctx context.Context, id uint) (string, error) {
	if err := s.teams.DeleteCascade(ctx, id); err != nil {
		return "", err
	}

	// Members changed too, so both datasets are snapshotted.
	s.notifier.NotifyTeams()
	s.notifier.NotifyUsers()
	return "Team deleted.", nil
}

func (s *adminService) CleanupSystem(ctx context.Context) (string, error) {
	count, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("System cleanup complete, %d expired sessions removed.", count), nil
}

func (s *adminService) RecentLogins(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.users.RecentLogins(ctx, limit)
}
