package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// ApprovalRepositoryInterface abstracts approval persistence for the
// workflow engine and the escalation job.
type ApprovalRepositoryInterface interface {
	CreateApproval(ctx context.Context, approval *models.Approval) error
	GetApprovalByID(ctx context.Context, id uuid.UUID) (*models.Approval, error)
	GetPendingApproval(ctx context.Context, entityType string, entityID uuid.UUID, level int) (*models.Approval, error)
	ListApprovalsForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.Approval, error)
	ListPendingByApprover(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]models.Approval, int64, error)
	DecideApproval(ctx context.Context, approval *models.Approval, newStatus, comment string) error
	CancelPendingApprovals(ctx context.Context, entityType string, entityID uuid.UUID, exceptID *uuid.UUID) (int64, error)
	ReassignApproval(ctx context.Context, approval *models.Approval, newApproverID uuid.UUID) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Approval, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// ApprovalRepository handles database operations for approval rows
type ApprovalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates a new ApprovalRepository
func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

var _ ApprovalRepositoryInterface = (*ApprovalRepository)(nil)

// CreateApproval creates a new approval row
func (r *ApprovalRepository) CreateApproval(ctx context.Context, approval *models.Approval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

// GetApprovalByID retrieves an approval by ID
func (r *ApprovalRepository) GetApprovalByID(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &approval, nil
}

// GetPendingApproval retrieves the single PENDING approval for an entity at
// the given level, if any.
func (r *ApprovalRepository) GetPendingApproval(ctx context.Context, entityType string, entityID uuid.UUID, level int) (*models.Approval, error) {
	var approval models.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND level = ? AND status = ?",
			entityType, entityID, level, models.ApprovalPending).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &approval, nil
}

// ListApprovalsForEntity retrieves all approvals for an entity ordered by
// level, oldest first within a level.
func (r *ApprovalRepository) ListApprovalsForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.Approval, error) {
	var approvals []models.Approval
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("level ASC, created_at ASC").
		Find(&approvals).Error
	return approvals, err
}

// ListPendingByApprover retrieves all PENDING approvals addressed to an
// approver, newest first.
func (r *ApprovalRepository) ListPendingByApprover(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]models.Approval, int64, error) {
	var approvals []models.Approval
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Approval{}).
		Where("approver_id = ? AND status = ?", approverID, models.ApprovalPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&approvals).Error

	return approvals, total, err
}

// DecideApproval flips a PENDING approval to a decided status with a
// conditional update. Losing the race returns ErrVersionConflict so a second
// decision can never double-process the row.
func (r *ApprovalRepository) DecideApproval(ctx context.Context, approval *models.Approval, newStatus, comment string) error {
	oldVersion := approval.Version
	now := time.Now()

	result := r.db.WithContext(ctx).Model(approval).
		Where("id = ? AND status = ? AND version = ?", approval.ID, models.ApprovalPending, oldVersion).
		Updates(map[string]interface{}{
			"status":           newStatus,
			"decision_comment": comment,
			"decided_at":       now,
			"version":          oldVersion + 1,
			"updated_at":       now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	approval.Status = newStatus
	approval.DecisionComment = comment
	approval.DecidedAt = &now
	approval.Version = oldVersion + 1
	return nil
}

// CancelPendingApprovals cancels every PENDING approval for an entity,
// optionally excluding one row (the one just decided).
func (r *ApprovalRepository) CancelPendingApprovals(ctx context.Context, entityType string, entityID uuid.UUID, exceptID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Approval{}).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, models.ApprovalPending)

	if exceptID != nil {
		query = query.Where("id <> ?", *exceptID)
	}

	result := query.Updates(map[string]interface{}{
		"status":     models.ApprovalCancelled,
		"updated_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// ReassignApproval moves a PENDING approval to a new approver, preserving
// level and status and recording delegation metadata.
func (r *ApprovalRepository) ReassignApproval(ctx context.Context, approval *models.Approval, newApproverID uuid.UUID) error {
	oldVersion := approval.Version
	oldApprover := approval.ApproverID
	now := time.Now()

	result := r.db.WithContext(ctx).Model(approval).
		Where("id = ? AND status = ? AND version = ?", approval.ID, models.ApprovalPending, oldVersion).
		Updates(map[string]interface{}{
			"approver_id":    newApproverID,
			"delegated_from": oldApprover,
			"delegated_at":   now,
			"version":        oldVersion + 1,
			"updated_at":     now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	approval.ApproverID = newApproverID
	approval.DelegatedFrom = &oldApprover
	approval.DelegatedAt = &now
	approval.Version = oldVersion + 1
	return nil
}

// ListPendingOlderThan retrieves PENDING approvals created before the cutoff,
// used by the escalation sweep.
func (r *ApprovalRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Approval, error) {
	var approvals []models.Approval
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.ApprovalPending, cutoff).
		Order("created_at ASC").
		Find(&approvals).Error
	return approvals, err
}

// MarkReminderSent stamps the reminder timestamp at most once. Returns false
// when another sweep already stamped the row.
func (r *ApprovalRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Approval{}).
		Where("id = ? AND status = ? AND reminder_sent_at IS NULL", id, models.ApprovalPending).
		Updates(map[string]interface{}{
			"reminder_sent_at": at,
			"updated_at":       at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkEscalated stamps the escalation timestamp at most once.
func (r *ApprovalRepository) MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Approval{}).
		Where("id = ? AND status = ? AND escalated_at IS NULL", id, models.ApprovalPending).
		Updates(map[string]interface{}{
			"escalated_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected > 0, result.Error
}
