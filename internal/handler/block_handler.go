package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	errs "archinsight/internal/errors"
	"archinsight/internal/middleware"
	"archinsight/internal/model"
	"archinsight/internal/service"
)

// BlockHandler bundles block registry endpoints. Every route runs behind the
// session middleware, so a session is always present.
type BlockHandler struct {
	svc service.BlockService
}

// NewBlockHandler creates a handler layer.
func NewBlockHandler(svc service.BlockService) *BlockHandler {
	return &BlockHandler{svc: svc}
}

// CreateBlockRequest is the block creation payload.
type CreateBlockRequest struct {
	Name        string          `json:"name" validate:"required"`
	Category    string          `json:"category"`
	Data        json.RawMessage `json:"block_data"`
	Visibility  string          `json:"visibility"`
	SharedTeams []uint          `json:"shared_with_teams"`
	BlockID     string          `json:"block_id"`
}

// UpdateBlockRequest is a sparse block update payload.
type UpdateBlockRequest struct {
	Name        *string         `json:"name"`
	Category    *string         `json:"category"`
	Data        json.RawMessage `json:"block_data"`
	Visibility  *string         `json:"visibility"`
	SharedTeams *[]uint         `json:"shared_with_teams"`
}

// Create godoc
// @Summary Create an analysis block
// @Tags blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param block body CreateBlockRequest true "Block payload"
// @Success 201 {object} model.Block
// @Failure 400 {object} errors.ErrorResponse
// @Router /blocks [post]
func (h *BlockHandler) Create(c echo.Context) error {
	var req CreateBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	visibility := model.VisibilityPersonal
	if req.Visibility != "" {
		parsed, err := model.ParseVisibility(req.Visibility)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		visibility = parsed
	}

	session := middleware.CurrentSession(c)
	block, err := h.svc.Create(c.Request().Context(), service.CreateBlockInput{
		OwnerID:     session.UserID,
		Name:        req.Name,
		Data:        req.Data,
		Category:    req.Category,
		Visibility:  visibility,
		SharedTeams: req.SharedTeams,
		BlockID:     req.BlockID,
	})
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, block)
}

// ListOwn godoc
// @Summary List the caller's own blocks
// @Tags blocks
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category filter"
// @Param visibility query string false "Visibility filter"
// @Success 200 {array} model.Block
// @Router /blocks [get]
func (h *BlockHandler) ListOwn(c echo.Context) error {
	session := middleware.CurrentSession(c)

	var visibility model.Visibility
	if v := c.QueryParam("visibility"); v != "" {
		parsed, err := model.ParseVisibility(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		visibility = parsed
	}

	blocks, err := h.svc.GetByOwner(c.Request().Context(), session.UserID, c.QueryParam("category"), visibility)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, blocks)
}

// ListAccessible godoc
// @Summary List all blocks the caller may read
// @Tags blocks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Block
// @Router /blocks/accessible [get]
func (h *BlockHandler) ListAccessible(c echo.Context) error {
	session := middleware.CurrentSession(c)
	blocks, err := h.svc.ListAccessible(c.Request().Context(), session.UserID, session.TeamID)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, blocks)
}

// Get godoc
// @Summary Get a block by id
// @Tags blocks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Success 200 {object} model.Block
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /blocks/{id} [get]
func (h *BlockHandler) Get(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}
	session := middleware.CurrentSession(c)

	allowed, err := h.svc.CanAccess(c.Request().Context(), id, session.UserID, session.TeamID)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if !allowed {
		httpErr := errs.MapErrorToHTTP(errs.ErrBlockNotFound)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	block, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil || block == nil {
		httpErr := errs.MapErrorToHTTP(errs.ErrBlockNotFound)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, block)
}

// Update godoc
// @Summary Update an owned block
// @Tags blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Param block body UpdateBlockRequest true "Sparse update"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} errors.ErrorResponse
// @Router /blocks/{id} [put]
func (h *BlockHandler) Update(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}

	var req UpdateBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := service.UpdateBlockInput{
		Name:        req.Name,
		Category:    req.Category,
		Data:        req.Data,
		SharedTeams: req.SharedTeams,
	}
	if req.Visibility != nil {
		parsed, err := model.ParseVisibility(*req.Visibility)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		in.Visibility = &parsed
	}

	session := middleware.CurrentSession(c)
	ok, err := h.svc.Update(c.Request().Context(), id, session.UserID, in)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if !ok {
		httpErr := errs.MapErrorToHTTP(errs.ErrNotOwner)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Delete godoc
// @Summary Delete an owned block
// @Tags blocks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} errors.ErrorResponse
// @Router /blocks/{id} [delete]
func (h *BlockHandler) Delete(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}

	session := middleware.CurrentSession(c)
	ok, err := h.svc.Delete(c.Request().Context(), id, session.UserID)
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if !ok {
		httpErr := errs.MapErrorToHTTP(errs.ErrNotOwner)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ShareRequest names the team to share with.
type ShareRequest struct {
	TeamID uint `json:"team_id" validate:"required"`
}

// Share godoc
// @Summary Share an owned block with a team
// @Tags blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Param share body ShareRequest true "Team to share with"
// @Success 200 {object} map[string]bool
// @Router /blocks/{id}/share [post]
func (h *BlockHandler) Share(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}

	var req ShareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session := middleware.CurrentSession(c)
	ok, err := h.svc.ShareWithTeam(c.Request().Context(), id, session.UserID, req.TeamID)
	return shareResponse(c, ok, err)
}

// Unshare godoc
// @Summary Remove a team share from an owned block
// @Tags blocks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]bool
// @Router /blocks/{id}/share/{teamID} [delete]
func (h *BlockHandler) Unshare(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}
	teamID, err := strconv.ParseUint(c.Param("teamID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid team id")
	}

	session := middleware.CurrentSession(c)
	ok, err := h.svc.UnshareFromTeam(c.Request().Context(), id, session.UserID, uint(teamID))
	return shareResponse(c, ok, err)
}

// VisibilityRequest switches a block between public and personal.
type VisibilityRequest struct {
	Public bool `json:"public"`
}

// SetVisibility godoc
// @Summary Make an owned block public or personal
// @Tags blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Block ID"
// @Param visibility body VisibilityRequest true "Target visibility"
// @Success 200 {object} map[string]bool
// @Router /blocks/{id}/visibility [post]
func (h *BlockHandler) SetVisibility(c echo.Context) error {
	id, err := blockID(c)
	if err != nil {
		return err
	}

	var req VisibilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session := middleware.CurrentSession(c)
	var ok bool
	if req.Public {
		ok, err = h.svc.SetPublic(c.Request().Context(), id, session.UserID)
	} else {
		ok, err = h.svc.SetPrivate(c.Request().Context(), id, session.UserID)
	}
	return shareResponse(c, ok, err)
}

func shareResponse(c echo.Context, ok bool, err error) error {
	if err != nil {
		httpErr := errs.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if !ok {
		httpErr := errs.MapErrorToHTTP(errs.ErrNotOwner)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func blockID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid block id")
	}
	return uint(id), nil
}
