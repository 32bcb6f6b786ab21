package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KpiType classifies how a KPI's achievement is computed.
const (
	KpiTypeQuantHigherBetter = "QUANT_HIGHER_BETTER"
	KpiTypeQuantLowerBetter  = "QUANT_LOWER_BETTER"
	KpiTypeBoolean           = "BOOLEAN"
	KpiTypeMilestone         = "MILESTONE"
)

// KPI status constants. Rejection returns the KPI to DRAFT with
// RejectionReason stamped; REJECTED marks KPIs the owner has explicitly
// shelved and is a valid submit-from state.
const (
	KpiStatusDraft          = "DRAFT"
	KpiStatusWaitingLineMgr = "WAITING_LINE_MGR"
	KpiStatusWaitingManager = "WAITING_MANAGER"
	KpiStatusApproved       = "APPROVED"
	KpiStatusLockedGoals    = "LOCKED_GOALS"
	KpiStatusRejected       = "REJECTED"
)

// KpiDefinition is a performance goal owned by one user within one cycle.
// Weight is the percentage contribution toward the owner's total; the sum of
// weights across the owner's countable KPIs in a cycle must equal the
// cycle's weight-sum target before submission succeeds.
type KpiDefinition struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"ownerId"`
	OrgUnitID   *uuid.UUID `gorm:"type:uuid;index" json:"orgUnitId,omitempty"`
	CycleID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"cycleId"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Type        string     `gorm:"type:varchar(30);not null" json:"type"`
	TargetValue float64    `json:"targetValue"`
	Unit        string     `gorm:"type:varchar(50)" json:"unit,omitempty"`
	Weight      int        `gorm:"not null;default:0" json:"weight"`

	Status          string `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	RejectionReason string `gorm:"type:text" json:"rejectionReason,omitempty"`
	Version         int    `gorm:"not null;default:1" json:"version"`

	// Per-transition audit stamps
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for KpiDefinition
func (KpiDefinition) TableName() string {
	return "kpi_definitions"
}

// IsEditable reports whether the owner may still mutate the definition.
func (k *KpiDefinition) IsEditable() bool {
	return k.Status == KpiStatusDraft || k.Status == KpiStatusRejected
}

// CountsTowardWeight reports whether the KPI participates in the owner's
// weight sum for its cycle. Shelved (REJECTED) KPIs do not.
func (k *KpiDefinition) CountsTowardWeight() bool {
	return k.Status != KpiStatusRejected
}
