package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// ChangeRequestRepositoryInterface abstracts change-request and proxy-action
// persistence for the admin layer.
type ChangeRequestRepositoryInterface interface {
	CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error
	GetChangeRequestByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error)
	ListChangeRequestsByOwner(ctx context.Context, ownerID uuid.UUID, openOnly bool) ([]models.ChangeRequest, error)
	ResolveChangeRequest(ctx context.Context, cr *models.ChangeRequest, newStatus string, resolvedBy uuid.UUID, comment string) error

	CreateProxyAction(ctx context.Context, action *models.ProxyAction) error
	ListProxyActions(ctx context.Context, limit, offset int) ([]models.ProxyAction, int64, error)
}

// ChangeRequestRepository handles database operations for change requests
// and the admin proxy audit trail
type ChangeRequestRepository struct {
	db *gorm.DB
}

// NewChangeRequestRepository creates a new ChangeRequestRepository
func NewChangeRequestRepository(db *gorm.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

var _ ChangeRequestRepositoryInterface = (*ChangeRequestRepository)(nil)

// CreateChangeRequest creates a new change request
func (r *ChangeRequestRepository) CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(cr).Error
}

// GetChangeRequestByID retrieves a change request by ID
func (r *ChangeRequestRepository) GetChangeRequestByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	var cr models.ChangeRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cr, nil
}

// ListChangeRequestsByOwner retrieves change requests addressed to an owner
func (r *ChangeRequestRepository) ListChangeRequestsByOwner(ctx context.Context, ownerID uuid.UUID, openOnly bool) ([]models.ChangeRequest, error) {
	var crs []models.ChangeRequest
	query := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID)
	if openOnly {
		query = query.Where("status = ?", models.ChangeRequestOpen)
	}
	err := query.Order("created_at DESC").Find(&crs).Error
	return crs, err
}

// ResolveChangeRequest closes an OPEN change request with a conditional
// update so a request cannot be resolved twice.
func (r *ChangeRequestRepository) ResolveChangeRequest(ctx context.Context, cr *models.ChangeRequest, newStatus string, resolvedBy uuid.UUID, comment string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).Model(cr).
		Where("id = ? AND status = ?", cr.ID, models.ChangeRequestOpen).
		Updates(map[string]interface{}{
			"status":             newStatus,
			"resolution_comment": comment,
			"resolved_by":        resolvedBy,
			"resolved_at":        now,
			"updated_at":         now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	cr.Status = newStatus
	cr.ResolutionComment = comment
	cr.ResolvedBy = &resolvedBy
	cr.ResolvedAt = &now
	return nil
}

// CreateProxyAction appends an admin proxy audit row
func (r *ChangeRequestRepository) CreateProxyAction(ctx context.Context, action *models.ProxyAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// ListProxyActions retrieves the admin audit trail, newest first
func (r *ChangeRequestRepository) ListProxyActions(ctx context.Context, limit, offset int) ([]models.ProxyAction, int64, error) {
	var actions []models.ProxyAction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ProxyAction{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&actions).Error
	return actions, total, err
}
