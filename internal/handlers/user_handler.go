package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kpi-service/internal/services"
)

// UserHandler serves the user directory and org-unit endpoints. Mutating
// routes are mounted behind the ADMIN role middleware.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type userRequest struct {
	Email     string     `json:"email" binding:"required"`
	Name      string     `json:"name" binding:"required"`
	Role      string     `json:"role" binding:"required"`
	ManagerID *uuid.UUID `json:"managerId"`
	OrgUnitID *uuid.UUID `json:"orgUnitId"`
	IsActive  *bool      `json:"isActive"`
}

func (r userRequest) toInput() services.UserInput {
	return services.UserInput{
		Email:     r.Email,
		Name:      r.Name,
		Role:      r.Role,
		ManagerID: r.ManagerID,
		OrgUnitID: r.OrgUnitID,
		IsActive:  r.IsActive,
	}
}

// CreateUser godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body userRequest true "User fields"
// @Success 201 {object} Response
// @Router /api/v1/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User created", user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, total, err := h.users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", PagedData{Items: users, Total: total})
}

// GetUser godoc
// @Summary Get one user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} Response
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

// UpdateUser godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body userRequest true "User fields"
// @Success 200 {object} Response
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User updated", user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} Response
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "User deleted")
}

// GetTeam godoc
// @Summary List the caller's active direct reports
// @Tags users
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/users/team [get]
func (h *UserHandler) GetTeam(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	team, err := h.users.ListTeam(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", team)
}

// --- Org units ---

type orgUnitRequest struct {
	Name     string     `json:"name" binding:"required"`
	ParentID *uuid.UUID `json:"parentId"`
}

// CreateOrgUnit godoc
// @Summary Create an org unit
// @Tags org-units
// @Accept json
// @Produce json
// @Param request body orgUnitRequest true "Org unit fields"
// @Success 201 {object} Response
// @Router /api/v1/org-units [post]
func (h *UserHandler) CreateOrgUnit(c *gin.Context) {
	var req orgUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	unit, err := h.users.CreateOrgUnit(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Org unit created", unit)
}

// ListOrgUnits godoc
// @Summary List org units
// @Tags org-units
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/org-units [get]
func (h *UserHandler) ListOrgUnits(c *gin.Context) {
	units, err := h.users.ListOrgUnits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", units)
}

// GetOrgUnit godoc
// @Summary Get one org unit with its active members
// @Tags org-units
// @Produce json
// @Param id path string true "Org unit ID"
// @Success 200 {object} Response
// @Router /api/v1/org-units/{id} [get]
func (h *UserHandler) GetOrgUnit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	unit, err := h.users.GetOrgUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	members, err := h.users.ListUsersByOrgUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"orgUnit": unit, "members": members})
}

// UpdateOrgUnit godoc
// @Summary Update an org unit
// @Tags org-units
// @Accept json
// @Produce json
// @Param id path string true "Org unit ID"
// @Param request body orgUnitRequest true "Org unit fields"
// @Success 200 {object} Response
// @Router /api/v1/org-units/{id} [put]
func (h *UserHandler) UpdateOrgUnit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req orgUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	unit, err := h.users.UpdateOrgUnit(c.Request.Context(), id, req.Name, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Org unit updated", unit)
}

// DeleteOrgUnit godoc
// @Summary Delete an org unit
// @Tags org-units
// @Produce json
// @Param id path string true "Org unit ID"
// @Success 200 {object} Response
// @Router /api/v1/org-units/{id} [delete]
func (h *UserHandler) DeleteOrgUnit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteOrgUnit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Org unit deleted")
}
