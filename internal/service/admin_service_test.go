package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"archinsight/internal/auth"
	errs "archinsight/internal/errors"
	"archinsight/internal/logger"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

type adminFixture struct {
	db       *gorm.DB
	svc      AdminService
	users    repository.UserRepository
	teams    repository.TeamRepository
	sessions auth.SessionStore
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	db := newTestDB(t)

	users := repository.NewUserRepository(db)
	teams := repository.NewTeamRepository(db)
	blocks := repository.NewBlockRepository(db)
	keys := repository.NewAPIKeyRepository(db)
	sessions := auth.NewSessionStore(db, time.Hour, 32)

	svc := NewAdminService(users, teams, blocks, keys, sessions, nil, nil, logger.Get())
	return &adminFixture{db: db, svc: svc, users: users, teams: teams, sessions: sessions}
}

func TestAdminService_CreateUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	msg, err := f.svc.CreateUser(ctx, "ab1234", "Alice", "team_lead", nil)
	require.NoError(t, err)
	assert.Contains(t, msg, `"AB1234"`)

	user, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, model.RoleTeamLead, user.Role)
	assert.Equal(t, model.StatusActive, user.Status)

	// Unknown roles degrade to the default role.
	_, err = f.svc.CreateUser(ctx, "cd5678", "Bob", "emperor", nil)
	require.NoError(t, err)
	user, err = f.users.FindByPersonalNumber(ctx, "CD5678")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, user.Role)

	_, err = f.svc.CreateUser(ctx, "AB1234", "Duplicate", "user", nil)
	assert.ErrorIs(t, err, errs.ErrUserExists)

	_, err = f.svc.CreateUser(ctx, "   ", "Blank", "user", nil)
	assert.ErrorIs(t, err, errs.ErrEmptyPersonalNumber)
}

func TestAdminService_UpdateUserTeamAssignment(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTeam(ctx, "Planning", "")
	require.NoError(t, err)
	teams, err := f.teams.List(ctx)
	require.NoError(t, err)
	teamID := teams[0].ID

	_, err = f.svc.CreateUser(ctx, "AB1234", "Alice", "user", &teamID)
	require.NoError(t, err)
	user, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)

	// KeepTeam leaves the assignment alone.
	name := "Alice Renamed"
	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{DisplayName: &name, Team: KeepTeam()})
	require.NoError(t, err)
	got, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, teamID, *got.TeamID)
	assert.Equal(t, "Alice Renamed", got.DisplayName)

	// ClearTeam nulls it.
	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{Team: ClearTeam()})
	require.NoError(t, err)
	got, err = f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TeamID)

	// AssignTeam sets it again.
	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{Team: AssignTeam(teamID)})
	require.NoError(t, err)
	got, err = f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TeamID)
	assert.Equal(t, teamID, *got.TeamID)
}

func TestAdminService_UpdateUserTolerance(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, "AB1234", "Alice", "user", nil)
	require.NoError(t, err)
	user, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)

	// An unknown role is skipped; with nothing left the update is rejected.
	badRole := "emperor"
	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &badRole})
	assert.ErrorIs(t, err, errs.ErrNothingToUpdate)

	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{})
	assert.ErrorIs(t, err, errs.ErrNothingToUpdate)

	// A valid status change alongside an invalid role still applies.
	suspended := "suspended"
	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &badRole, Status: &suspended})
	require.NoError(t, err)
	got, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, got.Status)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestAdminService_GetUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, "AB1234", "Alice", "user", nil)
	require.NoError(t, err)
	created, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)

	user, err := f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)

	_, err = f.svc.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestAdminService_DeleteTeamDetachesMembers(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTeam(ctx, "Planning", "city planning work")
	require.NoError(t, err)
	teams, err := f.teams.List(ctx)
	require.NoError(t, err)
	teamID := teams[0].ID

	_, err = f.svc.CreateUser(ctx, "AB1234", "Alice", "user", &teamID)
	require.NoError(t, err)

	_, err = f.svc.DeleteTeam(ctx, teamID)
	require.NoError(t, err)

	user, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Nil(t, user.TeamID)

	teams, err = f.teams.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestAdminService_CreateTeamValidation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTeam(ctx, "", "")
	assert.ErrorIs(t, err, errs.ErrEmptyTeamName)

	_, err = f.svc.CreateTeam(ctx, "Planning", "")
	require.NoError(t, err)
	_, err = f.svc.CreateTeam(ctx, "Planning", "")
	assert.ErrorIs(t, err, errs.ErrTeamExists)
}

func TestAdminService_ListTeamsWithMemberCounts(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTeam(ctx, "Planning", "")
	require.NoError(t, err)
	teams, err := f.teams.List(ctx)
	require.NoError(t, err)
	teamID := teams[0].ID

	_, err = f.svc.CreateUser(ctx, "AB1234", "Alice", "user", &teamID)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "CD5678", "Bob", "user", &teamID)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "EF9999", "Caro", "user", nil)
	require.NoError(t, err)

	listed, err := f.svc.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Planning", listed[0].Name)
	assert.Equal(t, 2, listed[0].MemberCount)
}

func TestAdminService_SystemStatsAndCleanup(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTeam(ctx, "Planning", "")
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "AB1234", "Alice", "admin", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "CD5678", "Bob", "user", nil)
	require.NoError(t, err)

	admin, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)
	_, err = f.sessions.Create(ctx, admin)
	require.NoError(t, err)
	stale, err := f.sessions.Create(ctx, admin)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Extend(ctx, stale, -time.Minute))

	stats, err := f.svc.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Users.Total)
	assert.Equal(t, int64(2), stats.Users.Active)
	assert.Equal(t, int64(1), stats.Users.Admins)
	assert.Equal(t, int64(1), stats.Teams.Total)
	assert.Equal(t, int64(1), stats.Sessions.Active)

	msg, err := f.svc.CleanupSystem(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg, "1 expired sessions removed")

	msg, err = f.svc.CleanupSystem(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg, "0 expired sessions removed")
}

func TestAdminService_RecentLogins(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, "AB1234", "Alice", "user", nil)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "CD5678", "Bob", "user", nil)
	require.NoError(t, err)

	alice, err := f.users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)
	require.NoError(t, f.users.TouchLastLogin(ctx, alice.ID))

	// Users who never logged in are excluded.
	recent, err := f.svc.RecentLogins(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "AB1234", recent[0].PersonalNumber)
}
