package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// KpiFilter narrows KPI listings.
type KpiFilter struct {
	OwnerID *uuid.UUID
	CycleID *uuid.UUID
	Status  string
	Limit   int
	Offset  int
}

// KpiRepositoryInterface abstracts KPI and actual persistence.
type KpiRepositoryInterface interface {
	CreateKpi(ctx context.Context, kpi *models.KpiDefinition) error
	GetKpiByID(ctx context.Context, id uuid.UUID) (*models.KpiDefinition, error)
	UpdateKpi(ctx context.Context, kpi *models.KpiDefinition) error
	UpdateKpiStatus(ctx context.Context, kpi *models.KpiDefinition, newStatus string, extra map[string]interface{}) error
	ListKpisByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiDefinition, error)
	ListKpis(ctx context.Context, filter KpiFilter) ([]models.KpiDefinition, int64, error)
	DeleteKpi(ctx context.Context, id uuid.UUID) error

	CreateActual(ctx context.Context, actual *models.KpiActual) error
	GetActualByID(ctx context.Context, id uuid.UUID) (*models.KpiActual, error)
	GetActualByKpi(ctx context.Context, kpiID uuid.UUID) (*models.KpiActual, error)
	UpdateActual(ctx context.Context, actual *models.KpiActual) error
	UpdateActualStatus(ctx context.Context, actual *models.KpiActual, newStatus string, extra map[string]interface{}) error
	ListActualsByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiActual, error)
}

// KpiRepository handles database operations for KPI definitions and actuals
type KpiRepository struct {
	db *gorm.DB
}

// NewKpiRepository creates a new KpiRepository
func NewKpiRepository(db *gorm.DB) *KpiRepository {
	return &KpiRepository{db: db}
}

var _ KpiRepositoryInterface = (*KpiRepository)(nil)

// --- KPI definition methods ---

// CreateKpi creates a new KPI definition
func (r *KpiRepository) CreateKpi(ctx context.Context, kpi *models.KpiDefinition) error {
	return r.db.WithContext(ctx).Create(kpi).Error
}

// GetKpiByID retrieves a KPI definition by ID
func (r *KpiRepository) GetKpiByID(ctx context.Context, id uuid.UUID) (*models.KpiDefinition, error) {
	var kpi models.KpiDefinition
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&kpi).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &kpi, nil
}

// UpdateKpi saves owner edits to a draft KPI. Status transitions go through
// UpdateKpiStatus instead.
func (r *KpiRepository) UpdateKpi(ctx context.Context, kpi *models.KpiDefinition) error {
	result := r.db.WithContext(ctx).
		Model(kpi).
		Select("title", "description", "type", "target_value", "unit", "weight", "org_unit_id", "updated_at").
		Updates(kpi)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateKpiStatus transitions a KPI's status with optimistic locking. The
// extra map carries transition stamps (submitted_at, rejection_reason, ...).
func (r *KpiRepository) UpdateKpiStatus(ctx context.Context, kpi *models.KpiDefinition, newStatus string, extra map[string]interface{}) error {
	oldVersion := kpi.Version

	updates := map[string]interface{}{
		"status":     newStatus,
		"version":    oldVersion + 1,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(kpi).
		Where("id = ? AND version = ?", kpi.ID, oldVersion).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	kpi.Status = newStatus
	kpi.Version = oldVersion + 1
	return nil
}

// ListKpisByOwnerAndCycle retrieves all of a user's KPIs within one cycle.
// Used for the weight-sum check on submit.
func (r *KpiRepository) ListKpisByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiDefinition, error) {
	var kpis []models.KpiDefinition
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND cycle_id = ?", ownerID, cycleID).
		Order("created_at ASC").
		Find(&kpis).Error
	return kpis, err
}

// ListKpis retrieves KPI definitions matching the filter
func (r *KpiRepository) ListKpis(ctx context.Context, filter KpiFilter) ([]models.KpiDefinition, int64, error) {
	var kpis []models.KpiDefinition
	var total int64

	query := r.db.WithContext(ctx).Model(&models.KpiDefinition{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CycleID != nil {
		query = query.Where("cycle_id = ?", *filter.CycleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&kpis).Error

	return kpis, total, err
}

// DeleteKpi soft-deletes a KPI definition
func (r *KpiRepository) DeleteKpi(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.KpiDefinition{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Actual methods ---

// CreateActual creates a new actual row
func (r *KpiRepository) CreateActual(ctx context.Context, actual *models.KpiActual) error {
	return r.db.WithContext(ctx).Create(actual).Error
}

// GetActualByID retrieves an actual by ID
func (r *KpiRepository) GetActualByID(ctx context.Context, id uuid.UUID) (*models.KpiActual, error) {
	var actual models.KpiActual
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&actual).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &actual, nil
}

// GetActualByKpi retrieves the actual belonging to a KPI, if recorded
func (r *KpiRepository) GetActualByKpi(ctx context.Context, kpiID uuid.UUID) (*models.KpiActual, error) {
	var actual models.KpiActual
	err := r.db.WithContext(ctx).
		Where("kpi_id = ?", kpiID).
		First(&actual).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &actual, nil
}

// UpdateActual saves owner edits to a draft actual
func (r *KpiRepository) UpdateActual(ctx context.Context, actual *models.KpiActual) error {
	result := r.db.WithContext(ctx).
		Model(actual).
		Select("actual_value", "self_comment", "updated_at").
		Updates(actual)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateActualStatus transitions an actual's status with optimistic locking
func (r *KpiRepository) UpdateActualStatus(ctx context.Context, actual *models.KpiActual, newStatus string, extra map[string]interface{}) error {
	oldVersion := actual.Version

	updates := map[string]interface{}{
		"status":     newStatus,
		"version":    oldVersion + 1,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(actual).
		Where("id = ? AND version = ?", actual.ID, oldVersion).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	actual.Status = newStatus
	actual.Version = oldVersion + 1
	return nil
}

// ListActualsByOwnerAndCycle retrieves a user's actuals within one cycle
func (r *KpiRepository) ListActualsByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiActual, error) {
	var actuals []models.KpiActual
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND cycle_id = ?", ownerID, cycleID).
		Order("created_at ASC").
		Find(&actuals).Error
	return actuals, err
}
