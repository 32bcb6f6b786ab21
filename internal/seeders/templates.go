package seeders

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kpi-service/internal/models"
)

// SeedTemplates upserts the built-in KPI templates by name so reruns are
// idempotent and local edits to descriptions survive.
func SeedTemplates(db *gorm.DB, logger *logrus.Logger) error {
	templates := []struct {
		name        string
		description string
		items       []models.TemplateItem
	}{
		{
			name:        "Engineering Individual",
			description: "Baseline goals for individual contributors in engineering",
			items: []models.TemplateItem{
				{Title: "Delivery throughput", Description: "Completed story points per quarter", Type: models.KpiTypeQuantHigherBetter, Unit: "points", SuggestedWeight: 40, SuggestedTarget: 60},
				{Title: "Production incidents caused", Description: "Sev-2 or worse incidents traced to own changes", Type: models.KpiTypeQuantLowerBetter, Unit: "incidents", SuggestedWeight: 30, SuggestedTarget: 1},
				{Title: "Quarterly learning goal", Description: "Complete one agreed certification or course", Type: models.KpiTypeBoolean, SuggestedWeight: 30},
			},
		},
		{
			name:        "Sales Individual",
			description: "Baseline goals for account executives",
			items: []models.TemplateItem{
				{Title: "Quarterly revenue", Type: models.KpiTypeQuantHigherBetter, Unit: "USD", SuggestedWeight: 50, SuggestedTarget: 250000},
				{Title: "New accounts opened", Type: models.KpiTypeQuantHigherBetter, Unit: "accounts", SuggestedWeight: 30, SuggestedTarget: 5},
				{Title: "CRM hygiene", Description: "Pipeline kept current through the quarter", Type: models.KpiTypeMilestone, SuggestedWeight: 20, SuggestedTarget: 100},
			},
		},
		{
			name:        "People Manager",
			description: "Baseline goals for line managers",
			items: []models.TemplateItem{
				{Title: "Team goal completion", Description: "Share of direct reports with fully approved KPIs", Type: models.KpiTypeQuantHigherBetter, Unit: "%", SuggestedWeight: 40, SuggestedTarget: 100},
				{Title: "Review turnaround", Description: "Approvals decided within the SLA", Type: models.KpiTypeQuantHigherBetter, Unit: "%", SuggestedWeight: 30, SuggestedTarget: 95},
				{Title: "Attrition in team", Type: models.KpiTypeQuantLowerBetter, Unit: "people", SuggestedWeight: 30, SuggestedTarget: 1},
			},
		},
	}

	for _, t := range templates {
		items, err := json.Marshal(t.items)
		if err != nil {
			return err
		}

		template := models.KpiTemplate{
			Name:        t.name,
			Description: t.description,
			Items:       datatypes.JSON(items),
			IsActive:    true,
		}

		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "is_active", "updated_at"}),
		}).Create(&template).Error
		if err != nil {
			return err
		}
	}

	logger.WithField("count", len(templates)).Info("KPI templates seeded")
	return nil
}
