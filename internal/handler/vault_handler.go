package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	errs "archinsight/internal/errors"
	"archinsight/internal/middleware"
	"archinsight/internal/service"
)

// VaultHandler bundles API key endpoints. All routes operate on the
// session's own user; there is no cross-user secret access.
type VaultHandler struct {
	svc service.VaultService
}

// NewVaultHandler creates a handler layer.
func NewVaultHandler(svc service.VaultService) *VaultHandler {
	return &VaultHandler{svc: svc}
}

// SaveKeyRequest carries the plaintext secret to store.
type SaveKeyRequest struct {
	Value string `json:"value" validate:"required"`
}

// Save godoc
// @Summary Store a named API key for the caller
// @Tags apikeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Key name"
// @Param key body SaveKeyRequest true "Secret value"
// @Success 200 {object} map[string]bool
// @Router /apikeys/{name} [put]
func (h *VaultHandler) Save(c echo.Context) error {
	var req SaveKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session := middleware.CurrentSession(c)
	if err := h.svc.Save(c.Request().Context(), session.UserID, c.Param("name"), req.Value); err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Get godoc
// @Summary Retrieve a named API key for the caller
// @Tags apikeys
// @Produce json
// @Security BearerAuth
// @Param name path string true "Key name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /apikeys/{name} [get]
func (h *VaultHandler) Get(c echo.Context) error {
	session := middleware.CurrentSession(c)
	value, ok := h.svc.GetForSession(c.Request().Context(), session, c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, errs.ErrorResponse{Error: "api key not found", Code: "KEY_NOT_FOUND"})
	}
	return c.JSON(http.StatusOK, echo.Map{"value": value})
}

// List godoc
// @Summary List the caller's API key names
// @Tags apikeys
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.APIKey
// @Router /apikeys [get]
func (h *VaultHandler) List(c echo.Context) error {
	session := middleware.CurrentSession(c)
	keys, err := h.svc.ListNames(c.Request().Context(), session.UserID)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, keys)
}

// Delete godoc
// @Summary Delete a named API key for the caller
// @Tags apikeys
// @Produce json
// @Security BearerAuth
// @Param name path string true "Key name"
// @Success 200 {object} map[string]bool
// @Router /apikeys/{name} [delete]
func (h *VaultHandler) Delete(c echo.Context) error {
	session := middleware.CurrentSession(c)
	if err := h.svc.Delete(c.Request().Context(), session.UserID, c.Param("name")); err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
