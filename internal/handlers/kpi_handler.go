package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kpi-service/internal/repository"
	"kpi-service/internal/services"
)

// KpiHandler serves KPI definition and actual endpoints.
type KpiHandler struct {
	kpis     *services.KpiService
	workflow *services.WorkflowService
}

// NewKpiHandler creates a new KpiHandler
func NewKpiHandler(kpis *services.KpiService, workflow *services.WorkflowService) *KpiHandler {
	return &KpiHandler{kpis: kpis, workflow: workflow}
}

type kpiRequest struct {
	CycleID     uuid.UUID `json:"cycleId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Type        string    `json:"type" binding:"required"`
	TargetValue float64   `json:"targetValue"`
	Unit        string    `json:"unit"`
	Weight      int       `json:"weight" binding:"required"`
}

func (r kpiRequest) toInput() services.KpiInput {
	return services.KpiInput{
		CycleID:     r.CycleID,
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		TargetValue: r.TargetValue,
		Unit:        r.Unit,
		Weight:      r.Weight,
	}
}

// CreateKpi godoc
// @Summary Create a draft KPI
// @Tags kpis
// @Accept json
// @Produce json
// @Param request body kpiRequest true "KPI fields"
// @Success 201 {object} Response
// @Router /api/v1/kpis [post]
func (h *KpiHandler) CreateKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req kpiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	kpi, err := h.kpis.CreateKpi(c.Request.Context(), actor, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "KPI created", kpi)
}

// ListKpis godoc
// @Summary List KPIs
// @Tags kpis
// @Produce json
// @Param owner_id query string false "Owner filter"
// @Param cycle_id query string false "Cycle filter"
// @Param status query string false "Status filter"
// @Success 200 {object} Response
// @Router /api/v1/kpis [get]
func (h *KpiHandler) ListKpis(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	limit, offset := pagination(c)
	filter := repository.KpiFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid owner_id parameter")
			return
		}
		filter.OwnerID = &id
	}
	if raw := c.Query("cycle_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid cycle_id parameter")
			return
		}
		filter.CycleID = &id
	}

	kpis, total, err := h.kpis.ListKpis(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", PagedData{Items: kpis, Total: total})
}

// GetKpi godoc
// @Summary Get one KPI
// @Tags kpis
// @Produce json
// @Param id path string true "KPI ID"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id} [get]
func (h *KpiHandler) GetKpi(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	kpi, err := h.kpis.GetKpi(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", kpi)
}

// UpdateKpi godoc
// @Summary Update an editable KPI
// @Tags kpis
// @Accept json
// @Produce json
// @Param id path string true "KPI ID"
// @Param request body kpiRequest true "KPI fields"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id} [put]
func (h *KpiHandler) UpdateKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req kpiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	kpi, err := h.kpis.UpdateKpi(c.Request.Context(), id, actor, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "KPI updated", kpi)
}

// DeleteKpi godoc
// @Summary Delete an editable KPI
// @Tags kpis
// @Produce json
// @Param id path string true "KPI ID"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id} [delete]
func (h *KpiHandler) DeleteKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.kpis.DeleteKpi(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "KPI deleted")
}

// SubmitKpi godoc
// @Summary Submit a KPI into the approval chain
// @Tags kpis
// @Produce json
// @Param id path string true "KPI ID"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id}/submit [post]
func (h *KpiHandler) SubmitKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	kpi, err := h.workflow.SubmitKPI(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "KPI submitted for approval", kpi)
}

// ShelveKpi godoc
// @Summary Shelve a draft KPI so it stops counting toward the weight sum
// @Tags kpis
// @Produce json
// @Param id path string true "KPI ID"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id}/shelve [post]
func (h *KpiHandler) ShelveKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	kpi, err := h.kpis.ShelveKpi(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "KPI shelved", kpi)
}

// UnshelveKpi godoc
// @Summary Return a shelved KPI to draft
// @Tags kpis
// @Produce json
// @Param id path string true "KPI ID"
// @Success 200 {object} Response
// @Router /api/v1/kpis/{id}/unshelve [post]
func (h *KpiHandler) UnshelveKpi(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	kpi, err := h.kpis.UnshelveKpi(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "KPI returned to draft", kpi)
}

type fromTemplateRequest struct {
	TemplateID uuid.UUID `json:"templateId" binding:"required"`
	CycleID    uuid.UUID `json:"cycleId" binding:"required"`
}

// CreateFromTemplate godoc
// @Summary Instantiate draft KPIs from a template
// @Tags kpis
// @Accept json
// @Produce json
// @Param request body fromTemplateRequest true "Template and cycle"
// @Success 201 {object} Response
// @Router /api/v1/kpis/from-template [post]
func (h *KpiHandler) CreateFromTemplate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req fromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	kpis, err := h.kpis.CreateKpisFromTemplate(c.Request.Context(), actor, req.TemplateID, req.CycleID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "KPIs created from template", kpis)
}

// GetScorecard godoc
// @Summary Get a user's scorecard for a cycle
// @Tags kpis
// @Produce json
// @Param cycle_id query string true "Cycle ID"
// @Param user_id query string false "User (defaults to caller)"
// @Success 200 {object} Response
// @Router /api/v1/scorecard [get]
func (h *KpiHandler) GetScorecard(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	cycleID, err := uuid.Parse(c.Query("cycle_id"))
	if err != nil {
		badRequest(c, "Invalid cycle_id parameter")
		return
	}

	ownerID := actor
	if raw := c.Query("user_id"); raw != "" {
		ownerID, err = uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid user_id parameter")
			return
		}
	}

	card, err := h.kpis.GetScorecard(c.Request.Context(), ownerID, cycleID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", card)
}

// --- Actuals ---

type actualRequest struct {
	KpiID       uuid.UUID `json:"kpiId" binding:"required"`
	ActualValue float64   `json:"actualValue"`
	SelfComment string    `json:"selfComment"`
}

// CreateActual godoc
// @Summary Record a draft actual for a locked KPI
// @Tags actuals
// @Accept json
// @Produce json
// @Param request body actualRequest true "Actual fields"
// @Success 201 {object} Response
// @Router /api/v1/actuals [post]
func (h *KpiHandler) CreateActual(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req actualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actual, err := h.kpis.CreateActual(c.Request.Context(), actor, services.ActualInput{
		KpiID:       req.KpiID,
		ActualValue: req.ActualValue,
		SelfComment: req.SelfComment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Actual recorded", actual)
}

// GetActual godoc
// @Summary Get one actual
// @Tags actuals
// @Produce json
// @Param id path string true "Actual ID"
// @Success 200 {object} Response
// @Router /api/v1/actuals/{id} [get]
func (h *KpiHandler) GetActual(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	actual, err := h.kpis.GetActual(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", actual)
}

type updateActualRequest struct {
	ActualValue float64 `json:"actualValue"`
	SelfComment string  `json:"selfComment"`
}

// UpdateActual godoc
// @Summary Update a draft actual
// @Tags actuals
// @Accept json
// @Produce json
// @Param id path string true "Actual ID"
// @Param request body updateActualRequest true "Actual fields"
// @Success 200 {object} Response
// @Router /api/v1/actuals/{id} [put]
func (h *KpiHandler) UpdateActual(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actual, err := h.kpis.UpdateActual(c.Request.Context(), id, actor, req.ActualValue, req.SelfComment)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Actual updated", actual)
}

// SubmitActual godoc
// @Summary Submit an actual into the approval chain
// @Tags actuals
// @Produce json
// @Param id path string true "Actual ID"
// @Success 200 {object} Response
// @Router /api/v1/actuals/{id}/submit [post]
func (h *KpiHandler) SubmitActual(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	actual, err := h.workflow.SubmitActual(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Actual submitted for approval", actual)
}
