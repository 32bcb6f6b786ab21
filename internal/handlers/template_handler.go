package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kpi-service/internal/models"
	"kpi-service/internal/services"
)

// TemplateHandler serves KPI template endpoints. Mutating routes are mounted
// behind the ADMIN role middleware.
type TemplateHandler struct {
	templates *services.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type templateRequest struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	Items       []models.TemplateItem `json:"items" binding:"required"`
	IsActive    *bool                 `json:"isActive"`
}

func (r templateRequest) toInput() services.TemplateInput {
	return services.TemplateInput{
		Name:        r.Name,
		Description: r.Description,
		Items:       r.Items,
		IsActive:    r.IsActive,
	}
}

// CreateTemplate godoc
// @Summary Create a KPI template
// @Tags templates
// @Accept json
// @Produce json
// @Param request body templateRequest true "Template fields"
// @Success 201 {object} Response
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	template, err := h.templates.CreateTemplate(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Template created", template)
}

// ListTemplates godoc
// @Summary List KPI templates
// @Tags templates
// @Produce json
// @Param active_only query bool false "Only active templates"
// @Success 200 {object} Response
// @Router /api/v1/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	templates, err := h.templates.ListTemplates(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", templates)
}

// GetTemplate godoc
// @Summary Get one template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	template, err := h.templates.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", template)
}

// UpdateTemplate godoc
// @Summary Update a template
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body templateRequest true "Template fields"
// @Success 200 {object} Response
// @Router /api/v1/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	template, err := h.templates.UpdateTemplate(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Template updated", template)
}

// DeleteTemplate godoc
// @Summary Delete a template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.templates.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Template deleted")
}
