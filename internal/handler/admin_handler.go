package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	errs "archinsight/internal/errors"
	"archinsight/internal/service"
)

// AdminHandler exposes operator tooling. Every route is mounted behind the
// admin guard, so handlers do not re-check roles.
type AdminHandler struct {
	svc service.AdminService
}

// NewAdminHandler creates a handler layer.
func NewAdminHandler(svc service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// CreateUserRequest registers a user ahead of their first login.
type CreateUserRequest struct {
	PersonalNumber string `json:"personal_number" validate:"required"`
	DisplayName    string `json:"display_name"`
	Role           string `json:"role"`
	TeamID         *uint  `json:"team_id"`
}

// UpdateUserRequest is a sparse update. team_id distinguishes three cases:
// absent keeps the current team, null clears it, a number assigns it.
type UpdateUserRequest struct {
	DisplayName *string          `json:"display_name"`
	Role        *string          `json:"role"`
	TeamID      *json.RawMessage `json:"team_id"`
	Status      *string          `json:"status"`
}

// CreateTeamRequest names a new team.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Stats godoc
// @Summary System counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.SystemStats
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.svc.SystemStats(c.Request().Context())
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers godoc
// @Summary List users with team names
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "Include non-active accounts"
// @Param search query string false "Substring match on personal number or display name"
// @Success 200 {array} repository.UserWithTeam
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	users, err := h.svc.ListUsers(c.Request().Context(), includeInactive, c.QueryParam("search"))
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Fetch one user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Register a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body CreateUserRequest true "User"
// @Success 201 {object} map[string]string
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.svc.CreateUser(c.Request().Context(), req.PersonalNumber, req.DisplayName, req.Role, req.TeamID)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}

// UpdateUser godoc
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param user body UpdateUserRequest true "Fields to change"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [patch]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := service.UpdateUserInput{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Status:      req.Status,
		Team:        service.KeepTeam(),
	}
	if req.TeamID != nil {
		var teamID *uint
		if err := json.Unmarshal(*req.TeamID, &teamID); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "team_id must be a number or null")
		}
		if teamID == nil {
			in.Team = service.ClearTeam()
		} else {
			in.Team = service.AssignTeam(*teamID)
		}
	}

	msg, err := h.svc.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// DeleteUser godoc
// @Summary Delete a user and their API keys
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	msg, err := h.svc.DeleteUser(c.Request().Context(), id)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// ListTeams godoc
// @Summary List teams with member counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.TeamWithMemberCount
// @Router /admin/teams [get]
func (h *AdminHandler) ListTeams(c echo.Context) error {
	teams, err := h.svc.ListTeams(c.Request().Context())
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, teams)
}

// CreateTeam godoc
// @Summary Create a team
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team body CreateTeamRequest true "Team"
// @Success 201 {object} map[string]string
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/teams [post]
func (h *AdminHandler) CreateTeam(c echo.Context) error {
	var req CreateTeamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.svc.CreateTeam(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}

// DeleteTeam godoc
// @Summary Delete a team, unassigning its members
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/teams/{id} [delete]
func (h *AdminHandler) DeleteTeam(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid team id")
	}
	msg, err := h.svc.DeleteTeam(c.Request().Context(), uint(id))
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// Cleanup godoc
// @Summary Remove expired sessions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /admin/cleanup [post]
func (h *AdminHandler) Cleanup(c echo.Context) error {
	msg, err := h.svc.CleanupSystem(c.Request().Context())
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// RecentLogins godoc
// @Summary Most recently seen users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Row limit, default 10"
// @Success 200 {array} model.User
// @Router /admin/recent-logins [get]
func (h *AdminHandler) RecentLogins(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.svc.RecentLogins(c.Request().Context(), limit)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, users)
}

func userID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return uint(id), nil
}
