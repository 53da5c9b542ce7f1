package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"archinsight/internal/auth"
	"archinsight/internal/model"
	"archinsight/internal/service"
)

const (
	// SessionKey is the echo context key holding the resolved *model.Session.
	SessionKey = "session"
	// TokenKey is the echo context key holding the raw session token.
	TokenKey = "session_token"
)

// Session resolves the bearer token to a server-side session and injects it
// into the request context. An unknown or expired token is rejected with
// 401; the stale token never reaches a handler.
func Session(authSvc service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}

			session, err := authSvc.Authenticate(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session lookup failed")
			}
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
			}

			c.Set(SessionKey, session)
			c.Set(TokenKey, token)
			return next(c)
		}
	}
}

// RequireAdmin gates a route group on the admin role.
func RequireAdmin() echo.MiddlewareFunc {
	return requireGuard(auth.RequireAdmin)
}

// RequireTeamLead gates a route group on team_lead or admin.
func RequireTeamLead() echo.MiddlewareFunc {
	return requireGuard(auth.RequireTeamLead)
}

func requireGuard(guard func(*model.Session) auth.GuardResult) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := guard(CurrentSession(c))
			switch result.Decision {
			case auth.Authorized:
				return next(c)
			case auth.Forbidden:
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
		}
	}
}

// CurrentSession returns the session injected by Session, or nil.
func CurrentSession(c echo.Context) *model.Session {
	session, _ := c.Get(SessionKey).(*model.Session)
	return session
}

// CurrentToken returns the raw token injected by Session.
func CurrentToken(c echo.Context) string {
	token, _ := c.Get(TokenKey).(string)
	return token
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
