package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cycle status constants
const (
	CycleDraft    = "DRAFT"
	CycleActive   = "ACTIVE"
	CycleClosed   = "CLOSED"
	CycleArchived = "ARCHIVED"
)

// Cycle is a time-boxed performance period. At most one cycle may be ACTIVE
// at a time; GetActiveCycle is the default "current cycle" lookup.
type Cycle struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	StartDate   time.Time      `gorm:"not null" json:"startDate"`
	EndDate     time.Time      `gorm:"not null" json:"endDate"`
	Status      string         `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Settings    datatypes.JSON `gorm:"type:jsonb" json:"settings,omitempty"`
	Version     int            `gorm:"not null;default:1" json:"version"`

	// Fan-out bookkeeping set by LaunchCycle
	LaunchedAt    *time.Time     `json:"launchedAt,omitempty"`
	TemplateID    *uuid.UUID     `gorm:"type:uuid" json:"templateId,omitempty"`
	TargetUserIDs pq.StringArray `gorm:"type:uuid[]" json:"targetUserIds,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for Cycle
func (Cycle) TableName() string {
	return "cycles"
}

// CycleSettings are per-cycle rules stored in the Settings JSONB column.
type CycleSettings struct {
	WeightSumTarget int  `json:"weight_sum_target"`
	RequireEvidence bool `json:"require_evidence"`
	MinKpisPerUser  int  `json:"min_kpis_per_user"`
	MaxKpisPerUser  int  `json:"max_kpis_per_user"`
}

// DefaultCycleSettings returns the settings applied when a cycle has none.
func DefaultCycleSettings() CycleSettings {
	return CycleSettings{
		WeightSumTarget: 100,
		MinKpisPerUser:  1,
		MaxKpisPerUser:  10,
	}
}

// EffectiveSettings parses the cycle's Settings column, falling back to the
// defaults when the column is empty or unparseable. Zero-valued limits are
// backfilled so a partial settings object never disables a rule.
func (c *Cycle) EffectiveSettings() CycleSettings {
	settings := DefaultCycleSettings()
	if len(c.Settings) == 0 {
		return settings
	}

	var stored CycleSettings
	if err := json.Unmarshal(c.Settings, &stored); err != nil {
		return settings
	}

	if stored.WeightSumTarget > 0 {
		settings.WeightSumTarget = stored.WeightSumTarget
	}
	if stored.MinKpisPerUser > 0 {
		settings.MinKpisPerUser = stored.MinKpisPerUser
	}
	if stored.MaxKpisPerUser > 0 {
		settings.MaxKpisPerUser = stored.MaxKpisPerUser
	}
	settings.RequireEvidence = stored.RequireEvidence
	return settings
}
