package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KpiTemplate is a reusable set of suggested KPI items, referenced by cycle
// fan-out and by draft-from-template creation.
type KpiTemplate struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Items       datatypes.JSON `gorm:"type:jsonb;not null" json:"items"`
	IsActive    bool           `gorm:"default:true" json:"isActive"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for KpiTemplate
func (KpiTemplate) TableName() string {
	return "kpi_templates"
}

// TemplateItem is one suggested KPI inside a template's Items column.
type TemplateItem struct {
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Type            string  `json:"type"`
	Unit            string  `json:"unit,omitempty"`
	SuggestedWeight int     `json:"suggested_weight"`
	SuggestedTarget float64 `json:"suggested_target,omitempty"`
}
