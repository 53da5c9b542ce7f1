package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	errs "archinsight/internal/errors"
	"archinsight/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Block{},
		&model.APIKey{},
	))
	return db
}

func TestNormalizePersonalNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ab1234", "AB1234"},
		{"  ab1234  ", "AB1234"},
		{"AB1234", "AB1234"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePersonalNumber(tt.input))
	}
}

func TestUserRepository_CreateDefaultsAndDuplicates(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{PersonalNumber: "ab1234", Role: model.RoleUser, Status: model.StatusActive}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "AB1234", user.PersonalNumber)
	assert.Equal(t, "AB1234", user.DisplayName)

	// Case-insensitive duplicate.
	err := repo.Create(ctx, &model.User{PersonalNumber: "AB1234"})
	assert.ErrorIs(t, err, errs.ErrUserExists)
}

func TestUserRepository_FindByPersonalNumberNormalizes(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{PersonalNumber: "AB1234"}))

	user, err := repo.FindByPersonalNumber(ctx, "  ab1234 ")
	require.NoError(t, err)
	require.NotNil(t, user)

	user, err = repo.FindByPersonalNumber(ctx, "ZZ9999")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRepository_UpdateAllowlist(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{PersonalNumber: "AB1234"}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Update(ctx, user.ID, map[string]interface{}{
		"display_name":    "Alice",
		"personal_number": "HACKED",
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "AB1234", got.PersonalNumber)

	// An update that filters down to nothing is rejected.
	err = repo.Update(ctx, user.ID, map[string]interface{}{"personal_number": "HACKED"})
	assert.ErrorIs(t, err, errs.ErrNothingToUpdate)
}

func TestUserRepository_DeleteRemovesAPIKeys(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	keys := NewAPIKeyRepository(db)
	ctx := context.Background()

	user := &model.User{PersonalNumber: "AB1234"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, keys.Upsert(ctx, user.ID, "openai", "cipher", "iv"))

	require.NoError(t, users.Delete(ctx, user.ID))

	got, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := keys.Exists(ctx, user.ID, "openai")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_ListWithTeamNames(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	teams := NewTeamRepository(db)
	ctx := context.Background()

	team := &model.Team{Name: "Planning"}
	require.NoError(t, teams.Create(ctx, team))

	require.NoError(t, users.Create(ctx, &model.User{PersonalNumber: "AB1234", DisplayName: "Alice", TeamID: &team.ID, Status: model.StatusActive}))
	require.NoError(t, users.Create(ctx, &model.User{PersonalNumber: "CD5678", DisplayName: "Bob", Status: model.StatusActive}))
	require.NoError(t, users.Create(ctx, &model.User{PersonalNumber: "EF9999", DisplayName: "Former", Status: model.StatusInactive}))

	rows, err := users.ListWithTeamNames(ctx, false, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byNumber := map[string]UserWithTeam{}
	for _, row := range rows {
		byNumber[row.PersonalNumber] = row
	}
	assert.Equal(t, "Planning", byNumber["AB1234"].TeamName)
	assert.Empty(t, byNumber["CD5678"].TeamName)

	rows, err = users.ListWithTeamNames(ctx, true, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = users.ListWithTeamNames(ctx, true, "ali")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AB1234", rows[0].PersonalNumber)
}

func TestTeamRepository_DuplicateName(t *testing.T) {
	repo := NewTeamRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Team{Name: "Planning"}))
	err := repo.Create(ctx, &model.Team{Name: "Planning"})
	assert.ErrorIs(t, err, errs.ErrTeamExists)
}

func TestTeamRepository_DeleteCascade(t *testing.T) {
	db := newTestDB(t)
	teams := NewTeamRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	team := &model.Team{Name: "Planning"}
	require.NoError(t, teams.Create(ctx, team))
	require.NoError(t, users.Create(ctx, &model.User{PersonalNumber: "AB1234", TeamID: &team.ID}))

	members, err := teams.Members(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, teams.DeleteCascade(ctx, team.ID))

	got, err := teams.FindByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	user, err := users.FindByPersonalNumber(ctx, "AB1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Nil(t, user.TeamID)
}
