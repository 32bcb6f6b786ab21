package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the aggregate an approval row belongs to.
const (
	EntityTypeKPI           = "KPI"
	EntityTypeActual        = "ACTUAL"
	EntityTypeChangeRequest = "CHANGE_REQUEST"
)

// Approval levels. The chain has exactly two sequential approvers: the
// owner's line manager, then that manager's own manager.
const (
	LevelLineManager = 1
	LevelManager     = 2
)

// Approval status constants
const (
	ApprovalPending   = "PENDING"
	ApprovalApproved  = "APPROVED"
	ApprovalRejected  = "REJECTED"
	ApprovalCancelled = "CANCELLED"
)

// Decision constants accepted by ProcessApproval
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// Approval is one row per (entity, level) approval step. At most one PENDING
// approval exists per (entity, level); a level-2 row is only created after
// level 1 is APPROVED.
type Approval struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EntityType string    `gorm:"type:varchar(20);not null;index:idx_approvals_entity" json:"entityType"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_approvals_entity" json:"entityId"`
	Level      int       `gorm:"not null" json:"level"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;index" json:"approverId"`
	Status     string    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Version    int       `gorm:"not null;default:1" json:"version"`

	DecisionComment string     `gorm:"type:text" json:"decisionComment,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`

	// Delegation metadata; set when a pending approval is reassigned
	DelegatedFrom *uuid.UUID `gorm:"type:uuid" json:"delegatedFrom,omitempty"`
	DelegatedAt   *time.Time `json:"delegatedAt,omitempty"`

	// Escalation sweep stamps; written at most once each
	ReminderSentAt *time.Time `json:"reminderSentAt,omitempty"`
	EscalatedAt    *time.Time `json:"escalatedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for Approval
func (Approval) TableName() string {
	return "approvals"
}

// IsPending reports whether the approval still awaits a decision.
func (a *Approval) IsPending() bool {
	return a.Status == ApprovalPending
}
