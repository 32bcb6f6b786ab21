package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// KpiInput carries the owner-editable fields of a KPI definition.
type KpiInput struct {
	CycleID     uuid.UUID
	Title       string
	Description string
	Type        string
	TargetValue float64
	Unit        string
	Weight      int
}

// ActualInput carries the owner-editable fields of an actual.
type ActualInput struct {
	KpiID       uuid.UUID
	ActualValue float64
	SelfComment string
}

// ScorecardEntry pairs a KPI with its actual, if recorded.
type ScorecardEntry struct {
	Kpi    models.KpiDefinition `json:"kpi"`
	Actual *models.KpiActual    `json:"actual,omitempty"`
}

// Scorecard is a user's full picture for one cycle: every KPI, its actual,
// and the weight-blended total across locked actuals.
type Scorecard struct {
	OwnerID       uuid.UUID        `json:"ownerId"`
	CycleID       uuid.UUID        `json:"cycleId"`
	Entries       []ScorecardEntry `json:"entries"`
	WeightedScore float64          `json:"weightedScore"`
}

// KpiService owns the CRUD side of KPI definitions and actuals. Submission
// and decisions live in WorkflowService; this service only touches entities
// while they are still editable.
type KpiService struct {
	kpiRepo      repository.KpiRepositoryInterface
	cycleRepo    repository.CycleRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	templateRepo repository.TemplateRepositoryInterface
	logger       *logrus.Entry
}

// NewKpiService creates a new KpiService
func NewKpiService(
	kpiRepo repository.KpiRepositoryInterface,
	cycleRepo repository.CycleRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	templateRepo repository.TemplateRepositoryInterface,
	logger *logrus.Logger,
) *KpiService {
	return &KpiService{
		kpiRepo:      kpiRepo,
		cycleRepo:    cycleRepo,
		userRepo:     userRepo,
		templateRepo: templateRepo,
		logger:       logger.WithField("component", "kpi_service"),
	}
}

// CreateKpi creates a DRAFT KPI for the owner in an active cycle.
func (s *KpiService) CreateKpi(ctx context.Context, ownerID uuid.UUID, in KpiInput) (*models.KpiDefinition, error) {
	if err := validateKpiInput(in); err != nil {
		return nil, err
	}

	cycle, err := s.cycleRepo.GetCycleByID(ctx, in.CycleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleActive {
		return nil, ErrCycleNotActive
	}

	owner, err := s.userRepo.GetUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	kpi := &models.KpiDefinition{
		OwnerID:     owner.ID,
		OrgUnitID:   owner.OrgUnitID,
		CycleID:     cycle.ID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		TargetValue: in.TargetValue,
		Unit:        in.Unit,
		Weight:      in.Weight,
		Status:      models.KpiStatusDraft,
	}
	if err := s.kpiRepo.CreateKpi(ctx, kpi); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"kpiId":   kpi.ID,
		"ownerId": ownerID,
		"cycleId": cycle.ID,
	}).Info("KPI created")
	return kpi, nil
}

func validateKpiInput(in KpiInput) error {
	var reasons []string
	if in.Title == "" {
		reasons = append(reasons, "title is required")
	}
	switch in.Type {
	case models.KpiTypeQuantHigherBetter, models.KpiTypeQuantLowerBetter,
		models.KpiTypeBoolean, models.KpiTypeMilestone:
	default:
		reasons = append(reasons, fmt.Sprintf("unknown KPI type %q", in.Type))
	}
	if in.Weight <= 0 {
		reasons = append(reasons, "weight must be positive")
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// GetKpi retrieves one KPI definition.
func (s *KpiService) GetKpi(ctx context.Context, id uuid.UUID) (*models.KpiDefinition, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrKpiNotFound
	}
	return kpi, err
}

// ListKpis retrieves KPI definitions matching the filter.
func (s *KpiService) ListKpis(ctx context.Context, filter repository.KpiFilter) ([]models.KpiDefinition, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.kpiRepo.ListKpis(ctx, filter)
}

// UpdateKpi saves owner edits while the KPI is still editable. Status stays
// untouched; a resubmit goes through the workflow service.
func (s *KpiService) UpdateKpi(ctx context.Context, id, actorID uuid.UUID, in KpiInput) (*models.KpiDefinition, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKpiNotFound
		}
		return nil, err
	}
	if kpi.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	if !kpi.IsEditable() {
		return nil, ErrNotEditable
	}
	if err := validateKpiInput(in); err != nil {
		return nil, err
	}

	kpi.Title = in.Title
	kpi.Description = in.Description
	kpi.Type = in.Type
	kpi.TargetValue = in.TargetValue
	kpi.Unit = in.Unit
	kpi.Weight = in.Weight

	if err := s.kpiRepo.UpdateKpi(ctx, kpi); err != nil {
		return nil, err
	}
	return kpi, nil
}

// DeleteKpi removes an editable KPI owned by the caller.
func (s *KpiService) DeleteKpi(ctx context.Context, id, actorID uuid.UUID) error {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrKpiNotFound
		}
		return err
	}
	if kpi.OwnerID != actorID {
		return ErrNotOwner
	}
	if !kpi.IsEditable() {
		return ErrNotEditable
	}
	return s.kpiRepo.DeleteKpi(ctx, id)
}

// ShelveKpi marks a draft KPI as REJECTED so it no longer counts toward the
// owner's weight sum without losing its history. A shelved KPI can be edited
// and resubmitted later.
func (s *KpiService) ShelveKpi(ctx context.Context, id, actorID uuid.UUID) (*models.KpiDefinition, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKpiNotFound
		}
		return nil, err
	}
	if kpi.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	if kpi.Status != models.KpiStatusDraft {
		return nil, ErrNotEditable
	}

	if err := s.kpiRepo.UpdateKpiStatus(ctx, kpi, models.KpiStatusRejected, nil); err != nil {
		return nil, err
	}
	return kpi, nil
}

// UnshelveKpi returns a shelved KPI to DRAFT.
func (s *KpiService) UnshelveKpi(ctx context.Context, id, actorID uuid.UUID) (*models.KpiDefinition, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKpiNotFound
		}
		return nil, err
	}
	if kpi.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	if kpi.Status != models.KpiStatusRejected {
		return nil, ErrNotEditable
	}

	if err := s.kpiRepo.UpdateKpiStatus(ctx, kpi, models.KpiStatusDraft, nil); err != nil {
		return nil, err
	}
	return kpi, nil
}

// CreateKpisFromTemplate instantiates draft KPIs for the owner from every
// item of a template. Suggested weights and targets are starting points the
// owner can still edit before submitting.
func (s *KpiService) CreateKpisFromTemplate(ctx context.Context, ownerID, templateID, cycleID uuid.UUID) ([]models.KpiDefinition, error) {
	template, err := s.templateRepo.GetTemplateByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if !template.IsActive {
		return nil, &ValidationError{Reasons: []string{"template is not active"}}
	}

	var items []models.TemplateItem
	if err := json.Unmarshal(template.Items, &items); err != nil {
		return nil, fmt.Errorf("template %s has malformed items: %w", templateID, err)
	}
	if len(items) == 0 {
		return nil, &ValidationError{Reasons: []string{"template has no items"}}
	}

	created := make([]models.KpiDefinition, 0, len(items))
	for _, item := range items {
		kpi, err := s.CreateKpi(ctx, ownerID, KpiInput{
			CycleID:     cycleID,
			Title:       item.Title,
			Description: item.Description,
			Type:        item.Type,
			TargetValue: item.SuggestedTarget,
			Unit:        item.Unit,
			Weight:      item.SuggestedWeight,
		})
		if err != nil {
			return created, err
		}
		created = append(created, *kpi)
	}
	return created, nil
}

// --- Actuals ---

// CreateActual records a draft actual for a locked KPI. At most one actual
// exists per KPI; the unique index backs this up at the database level.
func (s *KpiService) CreateActual(ctx context.Context, ownerID uuid.UUID, in ActualInput) (*models.KpiActual, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, in.KpiID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKpiNotFound
		}
		return nil, err
	}
	if kpi.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if kpi.Status != models.KpiStatusLockedGoals {
		return nil, ErrGoalsNotLocked
	}

	if _, err := s.kpiRepo.GetActualByKpi(ctx, in.KpiID); err == nil {
		return nil, &ValidationError{Reasons: []string{"an actual is already recorded for this KPI"}}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	actual := &models.KpiActual{
		KpiID:       kpi.ID,
		OwnerID:     ownerID,
		CycleID:     kpi.CycleID,
		ActualValue: in.ActualValue,
		SelfComment: in.SelfComment,
		Status:      models.ActualStatusDraft,
	}
	if err := s.kpiRepo.CreateActual(ctx, actual); err != nil {
		return nil, err
	}
	return actual, nil
}

// GetActual retrieves one actual.
func (s *KpiService) GetActual(ctx context.Context, id uuid.UUID) (*models.KpiActual, error) {
	actual, err := s.kpiRepo.GetActualByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrActualNotFound
	}
	return actual, err
}

// UpdateActual saves owner edits to a draft actual.
func (s *KpiService) UpdateActual(ctx context.Context, id, actorID uuid.UUID, value float64, selfComment string) (*models.KpiActual, error) {
	actual, err := s.kpiRepo.GetActualByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActualNotFound
		}
		return nil, err
	}
	if actual.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	if !actual.IsEditable() {
		return nil, ErrNotEditable
	}

	actual.ActualValue = value
	actual.SelfComment = selfComment
	if err := s.kpiRepo.UpdateActual(ctx, actual); err != nil {
		return nil, err
	}
	return actual, nil
}

// GetScorecard assembles a user's KPIs and actuals for one cycle and blends
// the weighted score across locked actuals. Shelved KPIs are excluded.
func (s *KpiService) GetScorecard(ctx context.Context, ownerID, cycleID uuid.UUID) (*Scorecard, error) {
	kpis, err := s.kpiRepo.ListKpisByOwnerAndCycle(ctx, ownerID, cycleID)
	if err != nil {
		return nil, err
	}
	actuals, err := s.kpiRepo.ListActualsByOwnerAndCycle(ctx, ownerID, cycleID)
	if err != nil {
		return nil, err
	}

	byKpi := make(map[uuid.UUID]*models.KpiActual, len(actuals))
	for i := range actuals {
		byKpi[actuals[i].KpiID] = &actuals[i]
	}

	card := &Scorecard{OwnerID: ownerID, CycleID: cycleID}
	weightedSum := 0.0
	weightTotal := 0

	for i := range kpis {
		kpi := kpis[i]
		if !kpi.CountsTowardWeight() {
			continue
		}
		entry := ScorecardEntry{Kpi: kpi}
		if actual, ok := byKpi[kpi.ID]; ok {
			entry.Actual = actual
			if actual.Status == models.ActualStatusLocked {
				weightedSum += float64(kpi.Weight) * actual.AchievementPct
				weightTotal += kpi.Weight
			}
		}
		card.Entries = append(card.Entries, entry)
	}

	if weightTotal > 0 {
		card.WeightedScore = math.Round(weightedSum/float64(weightTotal)*100) / 100
	}
	return card, nil
}
