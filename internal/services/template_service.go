package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// TemplateInput carries the admin-editable fields of a KPI template.
type TemplateInput struct {
	Name        string
	Description string
	Items       []models.TemplateItem
	IsActive    *bool
}

// TemplateService manages reusable KPI templates.
type TemplateService struct {
	templateRepo repository.TemplateRepositoryInterface
	logger       *logrus.Entry
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo repository.TemplateRepositoryInterface, logger *logrus.Logger) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		logger:       logger.WithField("component", "template_service"),
	}
}

func validateTemplateInput(in TemplateInput) error {
	var reasons []string
	if in.Name == "" {
		reasons = append(reasons, "name is required")
	}
	if len(in.Items) == 0 {
		reasons = append(reasons, "at least one item is required")
	}
	for i, item := range in.Items {
		if item.Title == "" {
			reasons = append(reasons, fmt.Sprintf("item %d: title is required", i+1))
		}
		switch item.Type {
		case models.KpiTypeQuantHigherBetter, models.KpiTypeQuantLowerBetter,
			models.KpiTypeBoolean, models.KpiTypeMilestone:
		default:
			reasons = append(reasons, fmt.Sprintf("item %d: unknown KPI type %q", i+1, item.Type))
		}
		if item.SuggestedWeight <= 0 {
			reasons = append(reasons, fmt.Sprintf("item %d: suggested weight must be positive", i+1))
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// CreateTemplate creates a template from validated items.
func (s *TemplateService) CreateTemplate(ctx context.Context, in TemplateInput) (*models.KpiTemplate, error) {
	if err := validateTemplateInput(in); err != nil {
		return nil, err
	}

	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, err
	}

	template := &models.KpiTemplate{
		Name:        in.Name,
		Description: in.Description,
		Items:       datatypes.JSON(items),
		IsActive:    true,
	}
	if err := s.templateRepo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}

	s.logger.WithField("templateId", template.ID).Info("Template created")
	return template, nil
}

// GetTemplate retrieves one template.
func (s *TemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.KpiTemplate, error) {
	template, err := s.templateRepo.GetTemplateByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	return template, err
}

// ListTemplates retrieves templates, optionally only active ones.
func (s *TemplateService) ListTemplates(ctx context.Context, activeOnly bool) ([]models.KpiTemplate, error) {
	return s.templateRepo.ListTemplates(ctx, activeOnly)
}

// UpdateTemplate saves edits to a template. Existing KPIs created from it
// are unaffected; templates are copied at instantiation time.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateInput) (*models.KpiTemplate, error) {
	template, err := s.templateRepo.GetTemplateByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if err := validateTemplateInput(in); err != nil {
		return nil, err
	}

	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, err
	}

	template.Name = in.Name
	template.Description = in.Description
	template.Items = datatypes.JSON(items)
	if in.IsActive != nil {
		template.IsActive = *in.IsActive
	}

	if err := s.templateRepo.UpdateTemplate(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// DeleteTemplate soft-deletes a template.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	err := s.templateRepo.DeleteTemplate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}
