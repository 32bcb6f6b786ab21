package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// CycleRepositoryInterface abstracts cycle persistence.
type CycleRepositoryInterface interface {
	CreateCycle(ctx context.Context, cycle *models.Cycle) error
	GetCycleByID(ctx context.Context, id uuid.UUID) (*models.Cycle, error)
	GetActiveCycle(ctx context.Context) (*models.Cycle, error)
	ListCycles(ctx context.Context) ([]models.Cycle, error)
	UpdateCycle(ctx context.Context, cycle *models.Cycle) error
	UpdateCycleStatus(ctx context.Context, cycle *models.Cycle, newStatus string, extra map[string]interface{}) error
}

// CycleRepository handles database operations for cycles
type CycleRepository struct {
	db *gorm.DB
}

// NewCycleRepository creates a new CycleRepository
func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

var _ CycleRepositoryInterface = (*CycleRepository)(nil)

// CreateCycle creates a new cycle
func (r *CycleRepository) CreateCycle(ctx context.Context, cycle *models.Cycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

// GetCycleByID retrieves a cycle by ID
func (r *CycleRepository) GetCycleByID(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	var cycle models.Cycle
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

// GetActiveCycle retrieves the single ACTIVE cycle, if any
func (r *CycleRepository) GetActiveCycle(ctx context.Context) (*models.Cycle, error) {
	var cycle models.Cycle
	err := r.db.WithContext(ctx).
		Where("status = ?", models.CycleActive).
		Order("start_date DESC").
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

// ListCycles retrieves all cycles, newest first
func (r *CycleRepository) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	var cycles []models.Cycle
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&cycles).Error
	return cycles, err
}

// UpdateCycle saves changes to a draft cycle's descriptive fields
func (r *CycleRepository) UpdateCycle(ctx context.Context, cycle *models.Cycle) error {
	result := r.db.WithContext(ctx).
		Model(cycle).
		Select("name", "description", "start_date", "end_date", "settings", "updated_at").
		Updates(cycle)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCycleStatus transitions a cycle's status with optimistic locking
func (r *CycleRepository) UpdateCycleStatus(ctx context.Context, cycle *models.Cycle, newStatus string, extra map[string]interface{}) error {
	oldVersion := cycle.Version

	updates := map[string]interface{}{
		"status":     newStatus,
		"version":    oldVersion + 1,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(cycle).
		Where("id = ? AND version = ?", cycle.ID, oldVersion).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	cycle.Status = newStatus
	cycle.Version = oldVersion + 1
	return nil
}
