package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// TemplateRepositoryInterface abstracts KPI template persistence.
type TemplateRepositoryInterface interface {
	CreateTemplate(ctx context.Context, template *models.KpiTemplate) error
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.KpiTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]models.KpiTemplate, error)
	UpdateTemplate(ctx context.Context, template *models.KpiTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
}

// TemplateRepository handles database operations for KPI templates
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)

// CreateTemplate creates a new KPI template
func (r *TemplateRepository) CreateTemplate(ctx context.Context, template *models.KpiTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// GetTemplateByID retrieves a template by ID
func (r *TemplateRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.KpiTemplate, error) {
	var template models.KpiTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// ListTemplates retrieves templates, optionally only active ones
func (r *TemplateRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]models.KpiTemplate, error) {
	var templates []models.KpiTemplate
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = true")
	}
	err := query.Order("name ASC").Find(&templates).Error
	return templates, err
}

// UpdateTemplate saves changes to a template
func (r *TemplateRepository) UpdateTemplate(ctx context.Context, template *models.KpiTemplate) error {
	result := r.db.WithContext(ctx).
		Model(template).
		Select("name", "description", "items", "is_active", "updated_at").
		Updates(template)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate soft-deletes a template
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.KpiTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
