package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archinsight/internal/model"
	"archinsight/internal/service"
)

// stubAuthService resolves a single known token.
type stubAuthService struct {
	token   string
	session *model.Session
}

var _ service.AuthService = (*stubAuthService)(nil)

func (s *stubAuthService) Login(ctx context.Context, personalNumber string, autoCreate bool) (*service.LoginResult, error) {
	return nil, nil
}

func (s *stubAuthService) Logout(ctx context.Context, token string) (bool, error) {
	return false, nil
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == s.token {
		return s.session, nil
	}
	return nil, nil
}

func (s *stubAuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	return nil, nil
}

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := handler
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	err := h(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestSessionMiddleware(t *testing.T) {
	session := &model.Session{Token: "valid-token", UserID: 1, Role: model.RoleUser}
	svc := &stubAuthService{token: "valid-token", session: session}
	mw := []echo.MiddlewareFunc{Session(svc)}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer token", "Bearer valid-token", http.StatusOK},
		{"case-insensitive scheme", "bearer valid-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, mw, tt.authHeader, okHandler)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestSessionMiddlewareInjectsContext(t *testing.T) {
	session := &model.Session{Token: "valid-token", UserID: 7}
	svc := &stubAuthService{token: "valid-token", session: session}

	rec := doRequest(t, []echo.MiddlewareFunc{Session(svc)}, "Bearer valid-token", func(c echo.Context) error {
		got := CurrentSession(c)
		require.NotNil(t, got)
		assert.Equal(t, uint(7), got.UserID)
		assert.Equal(t, "valid-token", CurrentToken(c))
		return c.NoContent(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		wantStatus int
	}{
		{"admin passes", model.RoleAdmin, http.StatusOK},
		{"team lead is forbidden", model.RoleTeamLead, http.StatusForbidden},
		{"user is forbidden", model.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &model.Session{Token: "valid-token", UserID: 1, Role: tt.role}
			svc := &stubAuthService{token: "valid-token", session: session}
			mw := []echo.MiddlewareFunc{Session(svc), RequireAdmin()}

			rec := doRequest(t, mw, "Bearer valid-token", okHandler)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireTeamLead(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		wantStatus int
	}{
		{"admin passes", model.RoleAdmin, http.StatusOK},
		{"team lead passes", model.RoleTeamLead, http.StatusOK},
		{"user is forbidden", model.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &model.Session{Token: "valid-token", UserID: 1, Role: tt.role}
			svc := &stubAuthService{token: "valid-token", session: session}
			mw := []echo.MiddlewareFunc{Session(svc), RequireTeamLead()}

			rec := doRequest(t, mw, "Bearer valid-token", okHandler)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireGuardWithoutSession(t *testing.T) {
	rec := doRequest(t, []echo.MiddlewareFunc{RequireAdmin()}, "", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
