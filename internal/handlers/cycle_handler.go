package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kpi-service/internal/models"
	"kpi-service/internal/services"
)

// CycleHandler serves cycle lifecycle endpoints. Mutating routes are mounted
// behind the ADMIN role middleware.
type CycleHandler struct {
	cycles *services.CycleService
}

// NewCycleHandler creates a new CycleHandler
func NewCycleHandler(cycles *services.CycleService) *CycleHandler {
	return &CycleHandler{cycles: cycles}
}

type cycleRequest struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	StartDate   time.Time             `json:"startDate" binding:"required"`
	EndDate     time.Time             `json:"endDate" binding:"required"`
	Settings    *models.CycleSettings `json:"settings"`
}

func (r cycleRequest) toInput() services.CycleInput {
	return services.CycleInput{
		Name:        r.Name,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Settings:    r.Settings,
	}
}

// CreateCycle godoc
// @Summary Create a draft cycle
// @Tags cycles
// @Accept json
// @Produce json
// @Param request body cycleRequest true "Cycle fields"
// @Success 201 {object} Response
// @Router /api/v1/cycles [post]
func (h *CycleHandler) CreateCycle(c *gin.Context) {
	var req cycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cycle, err := h.cycles.CreateCycle(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Cycle created", cycle)
}

// ListCycles godoc
// @Summary List all cycles
// @Tags cycles
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/cycles [get]
func (h *CycleHandler) ListCycles(c *gin.Context) {
	cycles, err := h.cycles.ListCycles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", cycles)
}

// GetActiveCycle godoc
// @Summary Get the currently active cycle
// @Tags cycles
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/cycles/active [get]
func (h *CycleHandler) GetActiveCycle(c *gin.Context) {
	cycle, err := h.cycles.GetActiveCycle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", cycle)
}

// GetCycle godoc
// @Summary Get one cycle
// @Tags cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id} [get]
func (h *CycleHandler) GetCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	cycle, err := h.cycles.GetCycle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", cycle)
}

// UpdateCycle godoc
// @Summary Update a draft cycle
// @Tags cycles
// @Accept json
// @Produce json
// @Param id path string true "Cycle ID"
// @Param request body cycleRequest true "Cycle fields"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id} [put]
func (h *CycleHandler) UpdateCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req cycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cycle, err := h.cycles.UpdateCycle(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cycle updated", cycle)
}

// ActivateCycle godoc
// @Summary Activate a draft cycle
// @Tags cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id}/activate [post]
func (h *CycleHandler) ActivateCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	cycle, err := h.cycles.ActivateCycle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cycle activated", cycle)
}

type launchRequest struct {
	TemplateID    *uuid.UUID  `json:"templateId"`
	TargetUserIDs []uuid.UUID `json:"targetUserIds"`
}

// LaunchCycle godoc
// @Summary Launch an active cycle to its audience
// @Tags cycles
// @Accept json
// @Produce json
// @Param id path string true "Cycle ID"
// @Param request body launchRequest true "Template and audience"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id}/launch [post]
func (h *CycleHandler) LaunchCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cycle, err := h.cycles.LaunchCycle(c.Request.Context(), id, req.TemplateID, req.TargetUserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cycle launched", cycle)
}

// CloseCycle godoc
// @Summary Close an active cycle
// @Tags cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id}/close [post]
func (h *CycleHandler) CloseCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	cycle, err := h.cycles.CloseCycle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cycle closed", cycle)
}

// ArchiveCycle godoc
// @Summary Archive a closed cycle
// @Tags cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} Response
// @Router /api/v1/cycles/{id}/archive [post]
func (h *CycleHandler) ArchiveCycle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	cycle, err := h.cycles.ArchiveCycle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cycle archived", cycle)
}
