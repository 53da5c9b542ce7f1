package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	errs "archinsight/internal/errors"
	"archinsight/internal/logger"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByPersonalNumber(ctx context.Context, personalNumber string) (*model.User, error) {
	args := m.Called(ctx, personalNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) ListWithTeamNames(ctx context.Context, includeInactive bool, search string) ([]repository.UserWithTeam, error) {
	args := m.Called(ctx, includeInactive, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserWithTeam), args.Error(1)
}

func (m *MockUserRepository) RecentLogins(ctx context.Context, limit int) ([]model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, user *model.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, token string, fields map[string]interface{}) error {
	args := m.Called(ctx, token, fields)
	return args.Error(0)
}

func (m *MockSessionStore) Delete(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) Extend(ctx context.Context, token string, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionStore) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestAuthService_Login(t *testing.T) {
	activeUser := &model.User{
		ID:             1,
		PersonalNumber: "AB1234",
		DisplayName:    "Test User",
		Role:           model.RoleUser,
		Status:         model.StatusActive,
	}

	tests := []struct {
		name           string
		personalNumber string
		autoCreate     bool
		setupMock      func(*MockUserRepository, *MockSessionStore)
		expectedError  error
		expectedToken  string
	}{
		{
			name:           "successful login",
			personalNumber: "AB1234",
			setupMock: func(mRepo *MockUserRepository, mStore *MockSessionStore) {
				mRepo.On("FindByPersonalNumber", mock.Anything, "AB1234").Return(activeUser, nil)
				mStore.On("Create", mock.Anything, activeUser).Return("session-token", nil)
				mRepo.On("TouchLastLogin", mock.Anything, uint(1)).Return(nil)
			},
			expectedToken: "session-token",
		},
		{
			name:           "personal number is normalized before lookup",
			personalNumber: "  ab1234  ",
			setupMock: func(mRepo *MockUserRepository, mStore *MockSessionStore) {
				mRepo.On("FindByPersonalNumber", mock.Anything, "AB1234").Return(activeUser, nil)
				mStore.On("Create", mock.Anything, activeUser).Return("session-token", nil)
				mRepo.On("TouchLastLogin", mock.Anything, uint(1)).Return(nil)
			},
			expectedToken: "session-token",
		},
		{
			name:           "empty personal number",
			personalNumber: "   ",
			setupMock:      func(mRepo *MockUserRepository, mStore *MockSessionStore) {},
			expectedError:  errs.ErrEmptyPersonalNumber,
		},
		{
			name:           "unknown personal number without auto-create",
			personalNumber: "ZZ9999",
			setupMock: func(mRepo *MockUserRepository, mStore *MockSessionStore) {
				mRepo.On("FindByPersonalNumber", mock.Anything, "ZZ9999").Return(nil, nil)
			},
			expectedError: errs.ErrUnknownPersonalNumber,
		},
		{
			name:           "unknown personal number with auto-create",
			personalNumber: "ZZ9999",
			autoCreate:     true,
			setupMock: func(mRepo *MockUserRepository, mStore *MockSessionStore) {
				mRepo.On("FindByPersonalNumber", mock.Anything, "ZZ9999").Return(nil, nil)
				mRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Run(func(args mock.Arguments) {
					u := args.Get(1).(*model.User)
					u.ID = 42
					u.DisplayName = u.PersonalNumber
				}).Return(nil)
				mStore.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return("fresh-token", nil)
				mRepo.On("TouchLastLogin", mock.Anything, uint(42)).Return(nil)
			},
			expectedToken: "fresh-token",
		},
		{
			name:           "disabled account",
			personalNumber: "AB1234",
			setupMock: func(mRepo *MockUserRepository, mStore *MockSessionStore) {
				mRepo.On("FindByPersonalNumber", mock.Anything, "AB1234").Return(&model.User{
					ID:             2,
					PersonalNumber: "AB1234",
					Status:         model.StatusInactive,
				}, nil)
			},
			expectedError: errs.ErrAccountDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockStore := new(MockSessionStore)
			tt.setupMock(mockRepo, mockStore)

			service := NewAuthService(mockRepo, mockStore, logger.Get())
			result, err := service.Login(context.Background(), tt.personalNumber, tt.autoCreate)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				assert.Equal(t, tt.expectedToken, result.Token)
				assert.Contains(t, result.Message, "Welcome")
			}

			mockRepo.AssertExpectations(t)
			mockStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginSurvivesLastLoginFailure(t *testing.T) {
	user := &model.User{ID: 1, PersonalNumber: "AB1234", DisplayName: "Test User", Status: model.StatusActive}

	mockRepo := new(MockUserRepository)
	mockStore := new(MockSessionStore)
	mockRepo.On("FindByPersonalNumber", mock.Anything, "AB1234").Return(user, nil)
	mockStore.On("Create", mock.Anything, user).Return("token", nil)
	mockRepo.On("TouchLastLogin", mock.Anything, uint(1)).Return(assert.AnError)

	service := NewAuthService(mockRepo, mockStore, logger.Get())
	result, err := service.Login(context.Background(), "AB1234", false)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "token", result.Token)
}

func TestAuthService_Logout(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockStore := new(MockSessionStore)
	mockStore.On("Delete", mock.Anything, "token").Return(true, nil)

	service := NewAuthService(mockRepo, mockStore, logger.Get())

	existed, err := service.Logout(context.Background(), "token")
	assert.NoError(t, err)
	assert.True(t, existed)

	// Empty token never reaches the store.
	existed, err = service.Logout(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, existed)

	mockStore.AssertExpectations(t)
}

func TestAuthService_Authenticate(t *testing.T) {
	session := &model.Session{Token: "token", UserID: 1}

	mockRepo := new(MockUserRepository)
	mockStore := new(MockSessionStore)
	mockStore.On("Get", mock.Anything, "token").Return(session, nil)

	service := NewAuthService(mockRepo, mockStore, logger.Get())

	got, err := service.Authenticate(context.Background(), "token")
	assert.NoError(t, err)
	assert.Equal(t, session, got)

	got, err = service.Authenticate(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuthService_CurrentUser(t *testing.T) {
	session := &model.Session{Token: "token", UserID: 1}
	user := &model.User{ID: 1, PersonalNumber: "AB1234"}

	mockRepo := new(MockUserRepository)
	mockStore := new(MockSessionStore)
	mockStore.On("Get", mock.Anything, "token").Return(session, nil)
	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(user, nil)

	service := NewAuthService(mockRepo, mockStore, logger.Get())

	got, err := service.CurrentUser(context.Background(), "token")
	assert.NoError(t, err)
	assert.Equal(t, user, got)

	mockRepo.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}
