package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kpi-service/internal/services"
)

// AdminHandler serves the admin proxy endpoints. Routes are mounted behind
// the ADMIN role middleware, and the service re-verifies the role before
// every operation.
type AdminHandler struct {
	admin *services.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type returnToStaffRequest struct {
	EntityType string    `json:"entityType" binding:"required"`
	EntityID   uuid.UUID `json:"entityId" binding:"required"`
	Reason     string    `json:"reason" binding:"required"`
}

// ReturnToStaff godoc
// @Summary Return an in-review entity to its owner
// @Tags admin
// @Accept json
// @Produce json
// @Param request body returnToStaffRequest true "Entity and reason"
// @Success 200 {object} Response
// @Router /api/v1/admin/return-to-staff [post]
func (h *AdminHandler) ReturnToStaff(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req returnToStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.admin.ReturnToStaff(c.Request.Context(), actor, strings.ToUpper(req.EntityType), req.EntityID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Entity returned to staff")
}

// DecideAsApprover godoc
// @Summary Decide a pending approval on behalf of its approver
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param request body decisionRequest true "APPROVE or REJECT with optional comment"
// @Success 200 {object} Response
// @Router /api/v1/admin/approvals/{id}/decide [post]
func (h *AdminHandler) DecideAsApprover(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	approval, err := h.admin.DecideAsApprover(c.Request.Context(), actor, id, strings.ToUpper(req.Decision), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Decision recorded by proxy", approval)
}

type reassignRequest struct {
	NewApproverID uuid.UUID `json:"newApproverId" binding:"required"`
	Reason        string    `json:"reason"`
}

// ReassignApprover godoc
// @Summary Move a pending approval to a different approver
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param request body reassignRequest true "New approver"
// @Success 200 {object} Response
// @Router /api/v1/admin/approvals/{id}/reassign [post]
func (h *AdminHandler) ReassignApprover(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	approval, err := h.admin.ReassignApprover(c.Request.Context(), actor, id, req.NewApproverID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Approval reassigned", approval)
}

type changeRequestRequest struct {
	EntityType string                 `json:"entityType" binding:"required"`
	EntityID   uuid.UUID              `json:"entityId" binding:"required"`
	Reason     string                 `json:"reason" binding:"required"`
	After      map[string]interface{} `json:"after"`
}

// IssueChangeRequest godoc
// @Summary Ask an entity's owner to revise specific fields
// @Tags admin
// @Accept json
// @Produce json
// @Param request body changeRequestRequest true "Entity, reason and requested values"
// @Success 201 {object} Response
// @Router /api/v1/admin/change-requests [post]
func (h *AdminHandler) IssueChangeRequest(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req changeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cr, err := h.admin.IssueChangeRequest(c.Request.Context(), actor, strings.ToUpper(req.EntityType), req.EntityID, req.Reason, req.After)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Change request issued", cr)
}

// ListProxyActions godoc
// @Summary List the admin proxy audit trail
// @Tags admin
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/admin/proxy-actions [get]
func (h *AdminHandler) ListProxyActions(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	actions, total, err := h.admin.ListProxyActions(c.Request.Context(), actor, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", PagedData{Items: actions, Total: total})
}

type resolveChangeRequestRequest struct {
	Comment string `json:"comment"`
	Cancel  bool   `json:"cancel"`
}

// ResolveChangeRequest godoc
// @Summary Resolve or withdraw a change request
// @Tags change-requests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param request body resolveChangeRequestRequest true "Resolution"
// @Success 200 {object} Response
// @Router /api/v1/change-requests/{id}/resolve [post]
func (h *AdminHandler) ResolveChangeRequest(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req resolveChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cr, err := h.admin.ResolveChangeRequest(c.Request.Context(), actor, id, req.Comment, req.Cancel)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Change request resolved", cr)
}

// ListMyChangeRequests godoc
// @Summary List change requests addressed to the caller
// @Tags change-requests
// @Produce json
// @Param open_only query bool false "Only open requests"
// @Success 200 {object} Response
// @Router /api/v1/change-requests [get]
func (h *AdminHandler) ListMyChangeRequests(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	openOnly := c.Query("open_only") == "true"
	crs, err := h.admin.ListChangeRequests(c.Request.Context(), actor, openOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", crs)
}
