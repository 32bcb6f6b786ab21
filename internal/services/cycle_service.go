package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"kpi-service/internal/cache"
	"kpi-service/internal/events"
	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// CycleInput carries the admin-editable fields of a cycle.
type CycleInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Settings    *models.CycleSettings
}

// CycleService manages the cycle lifecycle DRAFT -> ACTIVE -> CLOSED ->
// ARCHIVED and the launch fan-out. The single-ACTIVE invariant is enforced
// here before every activation.
type CycleService struct {
	cycleRepo  repository.CycleRepositoryInterface
	userRepo   repository.UserRepositoryInterface
	kpis       *KpiService
	cycleCache *cache.CycleCache
	notifier   Notifier
	publisher  *events.Publisher
	logger     *logrus.Entry
}

// NewCycleService creates a new CycleService
func NewCycleService(
	cycleRepo repository.CycleRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	kpis *KpiService,
	cycleCache *cache.CycleCache,
	notifier Notifier,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *CycleService {
	return &CycleService{
		cycleRepo:  cycleRepo,
		userRepo:   userRepo,
		kpis:       kpis,
		cycleCache: cycleCache,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logger.WithField("component", "cycle_service"),
	}
}

// CreateCycle creates a DRAFT cycle.
func (s *CycleService) CreateCycle(ctx context.Context, in CycleInput) (*models.Cycle, error) {
	var reasons []string
	if in.Name == "" {
		reasons = append(reasons, "name is required")
	}
	if !in.EndDate.After(in.StartDate) {
		reasons = append(reasons, "end date must be after start date")
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	cycle := &models.Cycle{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      models.CycleDraft,
	}
	if in.Settings != nil {
		data, err := json.Marshal(in.Settings)
		if err != nil {
			return nil, err
		}
		cycle.Settings = datatypes.JSON(data)
	}

	if err := s.cycleRepo.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}
	s.logger.WithField("cycleId", cycle.ID).Info("Cycle created")
	return cycle, nil
}

// GetCycle retrieves one cycle.
func (s *CycleService) GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCycleNotFound
	}
	return cycle, err
}

// ListCycles retrieves all cycles, newest first.
func (s *CycleService) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	return s.cycleRepo.ListCycles(ctx)
}

// GetActiveCycle returns the single ACTIVE cycle, trying the Redis cache
// first and falling back to the database on a miss.
func (s *CycleService) GetActiveCycle(ctx context.Context) (*models.Cycle, error) {
	if cached, err := s.cycleCache.GetActive(ctx); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.WithError(err).Warn("Active-cycle cache read failed")
	}

	cycle, err := s.cycleRepo.GetActiveCycle(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}

	if err := s.cycleCache.SetActive(ctx, cycle); err != nil {
		s.logger.WithError(err).Warn("Active-cycle cache write failed")
	}
	return cycle, nil
}

// UpdateCycle saves edits to a DRAFT cycle.
func (s *CycleService) UpdateCycle(ctx context.Context, id uuid.UUID, in CycleInput) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleDraft {
		return nil, ErrInvalidTransition
	}

	cycle.Name = in.Name
	cycle.Description = in.Description
	cycle.StartDate = in.StartDate
	cycle.EndDate = in.EndDate
	if in.Settings != nil {
		data, err := json.Marshal(in.Settings)
		if err != nil {
			return nil, err
		}
		cycle.Settings = datatypes.JSON(data)
	}

	if err := s.cycleRepo.UpdateCycle(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// ActivateCycle moves a DRAFT cycle to ACTIVE. Fails when any other cycle is
// already ACTIVE; the conditional status update closes the race between two
// concurrent activations of the same cycle.
func (s *CycleService) ActivateCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleDraft {
		return nil, ErrInvalidTransition
	}

	if existing, err := s.cycleRepo.GetActiveCycle(ctx); err == nil && existing.ID != id {
		return nil, ErrCycleConflict
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := s.cycleRepo.UpdateCycleStatus(ctx, cycle, models.CycleActive, nil); err != nil {
		return nil, err
	}

	if err := s.cycleCache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Active-cycle cache invalidation failed")
	}

	event := events.NewWorkflowEvent(events.SubjectCycleActivated)
	event.EntityID = cycle.ID.String()
	event.Status = cycle.Status
	s.publisher.Publish(events.SubjectCycleActivated, event)

	s.logger.WithField("cycleId", cycle.ID).Info("Cycle activated")
	return cycle, nil
}

// LaunchCycle fans the active cycle out to its audience: each target user
// gets a CYCLE_OPENED notification and, when a template is given, a set of
// draft KPIs instantiated from it. A cycle can only be launched once.
func (s *CycleService) LaunchCycle(ctx context.Context, id uuid.UUID, templateID *uuid.UUID, targetUserIDs []uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleActive {
		return nil, ErrCycleNotActive
	}
	if cycle.LaunchedAt != nil {
		return nil, &ValidationError{Reasons: []string{"cycle has already been launched"}}
	}

	targets, err := s.resolveAudience(ctx, targetUserIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, &ValidationError{Reasons: []string{"no active target users to launch to"}}
	}

	now := time.Now()
	ids := make(pq.StringArray, 0, len(targets))
	for i := range targets {
		ids = append(ids, targets[i].ID.String())
	}

	extra := map[string]interface{}{
		"launched_at":     now,
		"target_user_ids": ids,
	}
	if templateID != nil {
		extra["template_id"] = *templateID
	}
	if err := s.cycleRepo.UpdateCycleStatus(ctx, cycle, models.CycleActive, extra); err != nil {
		return nil, err
	}
	cycle.LaunchedAt = &now
	cycle.TemplateID = templateID
	cycle.TargetUserIDs = ids

	for i := range targets {
		user := targets[i]

		if templateID != nil {
			if _, err := s.kpis.CreateKpisFromTemplate(ctx, user.ID, *templateID, cycle.ID); err != nil {
				s.logger.WithFields(logrus.Fields{
					"cycleId": cycle.ID,
					"userId":  user.ID,
				}).WithError(err).Warn("Template fan-out failed for user")
			}
		}

		if s.notifier != nil {
			err := s.notifier.Dispatch(ctx, user.ID, models.NotifCycleOpened,
				"Cycle "+cycle.Name+" is open; set your KPIs and submit them for approval",
				map[string]interface{}{"cycleId": cycle.ID.String()})
			if err != nil {
				s.logger.WithField("userId", user.ID).WithError(err).Warn("Cycle-opened notification failed")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"cycleId": cycle.ID,
		"targets": len(targets),
	}).Info("Cycle launched")
	return cycle, nil
}

// resolveAudience turns an explicit ID list into users, or defaults to every
// active user when the list is empty.
func (s *CycleService) resolveAudience(ctx context.Context, targetUserIDs []uuid.UUID) ([]models.User, error) {
	if len(targetUserIDs) > 0 {
		users, err := s.userRepo.ListUsersByIDs(ctx, targetUserIDs)
		if err != nil {
			return nil, err
		}
		active := users[:0]
		for _, u := range users {
			if u.IsActive {
				active = append(active, u)
			}
		}
		return active, nil
	}

	users, _, err := s.userRepo.ListUsers(ctx, 10000, 0)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}

// CloseCycle moves an ACTIVE cycle to CLOSED and notifies the launch
// audience.
func (s *CycleService) CloseCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleActive {
		return nil, ErrInvalidTransition
	}

	if err := s.cycleRepo.UpdateCycleStatus(ctx, cycle, models.CycleClosed, nil); err != nil {
		return nil, err
	}

	if err := s.cycleCache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Active-cycle cache invalidation failed")
	}

	if s.notifier != nil {
		for _, raw := range cycle.TargetUserIDs {
			userID, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			if err := s.notifier.Dispatch(ctx, userID, models.NotifCycleClosed,
				"Cycle "+cycle.Name+" has been closed",
				map[string]interface{}{"cycleId": cycle.ID.String()}); err != nil {
				s.logger.WithField("userId", userID).WithError(err).Warn("Cycle-closed notification failed")
			}
		}
	}

	event := events.NewWorkflowEvent(events.SubjectCycleClosed)
	event.EntityID = cycle.ID.String()
	event.Status = cycle.Status
	s.publisher.Publish(events.SubjectCycleClosed, event)

	s.logger.WithField("cycleId", cycle.ID).Info("Cycle closed")
	return cycle, nil
}

// ArchiveCycle moves a CLOSED cycle to ARCHIVED.
func (s *CycleService) ArchiveCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycleRepo.GetCycleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleClosed {
		return nil, ErrInvalidTransition
	}

	if err := s.cycleRepo.UpdateCycleStatus(ctx, cycle, models.CycleArchived, nil); err != nil {
		return nil, err
	}
	return cycle, nil
}
