package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChangeRequest status constants
const (
	ChangeRequestOpen      = "OPEN"
	ChangeRequestResolved  = "RESOLVED"
	ChangeRequestCancelled = "CANCELLED"
)

// ChangeRequest is an admin-initiated request for the entity owner to revise
// specific fields. Before/After hold JSON snapshots of the affected fields.
type ChangeRequest struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EntityType  string         `gorm:"type:varchar(20);not null;index:idx_change_requests_entity" json:"entityType"`
	EntityID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_change_requests_entity" json:"entityId"`
	RequestedBy uuid.UUID      `gorm:"type:uuid;not null;index" json:"requestedBy"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"ownerId"`
	Reason      string         `gorm:"type:text;not null" json:"reason"`
	Before      datatypes.JSON `gorm:"type:jsonb" json:"before,omitempty"`
	After       datatypes.JSON `gorm:"type:jsonb" json:"after,omitempty"`

	Status            string     `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	ResolutionComment string     `gorm:"type:text" json:"resolutionComment,omitempty"`
	ResolvedBy        *uuid.UUID `gorm:"type:uuid" json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for ChangeRequest
func (ChangeRequest) TableName() string {
	return "change_requests"
}

// ProxyAction kinds
const (
	ProxyActionReturnToStaff    = "RETURN_TO_STAFF"
	ProxyActionApproveAsManager = "APPROVE_AS_MANAGER"
	ProxyActionRejectAsManager  = "REJECT_AS_MANAGER"
	ProxyActionReassignApprover = "REASSIGN_APPROVER"
	ProxyActionChangeRequest    = "ISSUE_CHANGE_REQUEST"
)

// ProxyAction is the audit trail for administrators acting on behalf of an
// approver, kept separate from workflow notifications.
type ProxyAction struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AdminID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"adminId"`
	Action       string         `gorm:"type:varchar(40);not null;index" json:"action"`
	EntityType   string         `gorm:"type:varchar(20);not null" json:"entityType"`
	EntityID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"entityId"`
	TargetUserID *uuid.UUID     `gorm:"type:uuid" json:"targetUserId,omitempty"`
	Detail       datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for ProxyAction
func (ProxyAction) TableName() string {
	return "proxy_actions"
}
