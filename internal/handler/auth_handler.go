package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	errs "archinsight/internal/errors"
	"archinsight/internal/middleware"
	"archinsight/internal/service"
)

// AuthHandler bundles authentication endpoints.
type AuthHandler struct {
	svc service.AuthService
}

// NewAuthHandler creates a handler layer.
func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	PersonalNumber string `json:"personal_number" validate:"required"`
	AutoCreate     bool   `json:"auto_create"`
}

// Login godoc
// @Summary Log in with a personal number
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login payload"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Login(c.Request().Context(), req.PersonalNumber, req.AutoCreate)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// Logout godoc
// @Summary Log out the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ok, err := h.svc.Logout(c.Request().Context(), middleware.CurrentToken(c))
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": ok})
}

// Me godoc
// @Summary Current session identity
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Session
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentSession(c))
}
