package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kpi-service/internal/services"
)

// ApprovalHandler serves the approver-facing endpoints.
type ApprovalHandler struct {
	workflow *services.WorkflowService
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(workflow *services.WorkflowService) *ApprovalHandler {
	return &ApprovalHandler{workflow: workflow}
}

// ListPending godoc
// @Summary List the caller's pending approvals
// @Tags approvals
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	approvals, total, err := h.workflow.ListPendingApprovals(c.Request.Context(), actor, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", PagedData{Items: approvals, Total: total})
}

// ListForEntity godoc
// @Summary List the approval history of one entity
// @Tags approvals
// @Produce json
// @Param entity_type path string true "KPI or ACTUAL"
// @Param entity_id path string true "Entity ID"
// @Success 200 {object} Response
// @Router /api/v1/approvals/{entity_type}/{entity_id} [get]
func (h *ApprovalHandler) ListForEntity(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	entityType := strings.ToUpper(c.Param("entity_type"))
	entityID, ok := pathUUID(c, "entity_id")
	if !ok {
		return
	}

	approvals, err := h.workflow.GetEntityApprovals(c.Request.Context(), entityType, entityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", approvals)
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

// Decide godoc
// @Summary Approve or reject a pending approval
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param request body decisionRequest true "APPROVE or REJECT with optional comment"
// @Success 200 {object} Response
// @Router /api/v1/approvals/{id}/decide [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
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

	approval, err := h.workflow.ProcessApproval(c.Request.Context(), id, actor, strings.ToUpper(req.Decision), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Decision recorded", approval)
}

type delegateRequest struct {
	NewApproverID uuid.UUID `json:"newApproverId" binding:"required"`
	Reason        string    `json:"reason"`
}

// Delegate godoc
// @Summary Delegate a pending approval to another user
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param request body delegateRequest true "New approver"
// @Success 200 {object} Response
// @Router /api/v1/approvals/{id}/delegate [post]
func (h *ApprovalHandler) Delegate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req delegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	approval, err := h.workflow.DelegateApproval(c.Request.Context(), id, actor, req.NewApproverID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Approval delegated", approval)
}
