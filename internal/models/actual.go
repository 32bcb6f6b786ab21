package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actual status constants, mirroring the KPI state machine.
const (
	ActualStatusDraft          = "ACTUAL_DRAFT"
	ActualStatusWaitingLineMgr = "ACTUAL_WAITING_LINE_MGR"
	ActualStatusWaitingManager = "ACTUAL_WAITING_MANAGER"
	ActualStatusApproved       = "ACTUAL_APPROVED"
	ActualStatusLocked         = "ACTUAL_LOCKED"
)

// KpiActual is the realized value for a KPI after goals are locked. It can
// only be created and submitted while the parent KPI is LOCKED_GOALS.
type KpiActual struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	KpiID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"kpiId"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	CycleID     uuid.UUID `gorm:"type:uuid;not null;index" json:"cycleId"`
	ActualValue float64   `json:"actualValue"`
	SelfComment string    `gorm:"type:text" json:"selfComment,omitempty"`

	// Derived on submit from the parent KPI's type and target
	AchievementPct float64 `json:"achievementPct"`
	Score          int     `json:"score"`

	Status          string `gorm:"type:varchar(30);not null;default:'ACTUAL_DRAFT';index" json:"status"`
	RejectionReason string `gorm:"type:text" json:"rejectionReason,omitempty"`
	Version         int    `gorm:"not null;default:1" json:"version"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for KpiActual
func (KpiActual) TableName() string {
	return "kpi_actuals"
}

// IsEditable reports whether the owner may still mutate the actual.
func (a *KpiActual) IsEditable() bool {
	return a.Status == ActualStatusDraft
}

// ComputeAchievement derives the achievement percentage and integer score
// for an actual value against its KPI definition. Percentages are capped at
// 150 so a single runaway KPI cannot dominate a scorecard.
func ComputeAchievement(kpi *KpiDefinition, actualValue float64) (pct float64, score int) {
	switch kpi.Type {
	case KpiTypeQuantHigherBetter:
		if kpi.TargetValue != 0 {
			pct = actualValue / kpi.TargetValue * 100
		}
	case KpiTypeQuantLowerBetter:
		if actualValue != 0 {
			pct = kpi.TargetValue / actualValue * 100
		} else if kpi.TargetValue == 0 {
			pct = 100
		} else {
			pct = 150
		}
	case KpiTypeBoolean:
		if actualValue >= 1 {
			pct = 100
		}
	case KpiTypeMilestone:
		pct = actualValue
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 150 {
		pct = 150
	}
	pct = math.Round(pct*100) / 100

	switch {
	case pct >= 100:
		score = 5
	case pct >= 80:
		score = 4
	case pct >= 60:
		score = 3
	case pct >= 40:
		score = 2
	default:
		score = 1
	}
	return pct, score
}
