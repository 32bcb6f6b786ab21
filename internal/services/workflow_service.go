package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kpi-service/internal/events"
	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// WorkflowService drives the two-level approval state machine for KPI
// definitions and actuals. Both entity kinds share the same chain: level 1 is
// the owner's line manager, level 2 is that approver's own manager. All
// status flips are conditional updates, so a lost race surfaces as
// ErrAlreadyDecided instead of a double transition.
type WorkflowService struct {
	kpiRepo      repository.KpiRepositoryInterface
	approvalRepo repository.ApprovalRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	cycleRepo    repository.CycleRepositoryInterface
	notifier     Notifier
	publisher    *events.Publisher
	logger       *logrus.Entry
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	kpiRepo repository.KpiRepositoryInterface,
	approvalRepo repository.ApprovalRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	cycleRepo repository.CycleRepositoryInterface,
	notifier Notifier,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *WorkflowService {
	return &WorkflowService{
		kpiRepo:      kpiRepo,
		approvalRepo: approvalRepo,
		userRepo:     userRepo,
		cycleRepo:    cycleRepo,
		notifier:     notifier,
		publisher:    publisher,
		logger:       logger.WithField("component", "workflow_service"),
	}
}

// entityRef bundles a workflow entity with its parent KPI so the decision
// path can treat KPIs and actuals uniformly. For a KPI, kpi is the entity
// itself; for an actual, kpi is the parent definition.
type entityRef struct {
	entityType string
	kpi        *models.KpiDefinition
	actual     *models.KpiActual
}

func (e *entityRef) ownerID() uuid.UUID {
	if e.entityType == models.EntityTypeActual {
		return e.actual.OwnerID
	}
	return e.kpi.OwnerID
}

func (e *entityRef) title() string {
	return e.kpi.Title
}

func (e *entityRef) id() uuid.UUID {
	if e.entityType == models.EntityTypeActual {
		return e.actual.ID
	}
	return e.kpi.ID
}

func (s *WorkflowService) loadEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*entityRef, error) {
	switch entityType {
	case models.EntityTypeKPI:
		kpi, err := s.kpiRepo.GetKpiByID(ctx, entityID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrKpiNotFound
			}
			return nil, err
		}
		return &entityRef{entityType: entityType, kpi: kpi}, nil

	case models.EntityTypeActual:
		actual, err := s.kpiRepo.GetActualByID(ctx, entityID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrActualNotFound
			}
			return nil, err
		}
		kpi, err := s.kpiRepo.GetKpiByID(ctx, actual.KpiID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrKpiNotFound
			}
			return nil, err
		}
		return &entityRef{entityType: entityType, kpi: kpi, actual: actual}, nil
	}
	return nil, &ValidationError{Reasons: []string{fmt.Sprintf("unknown entity type %q", entityType)}}
}

// resolveApprover returns the manager of the given user as the next approver.
// An absent, inactive or soft-deleted manager means the chain is broken and
// the submit or level-1 approval must fail before any state changes.
func (s *WorkflowService) resolveApprover(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.ManagerID == nil {
		return nil, ErrNoApprover
	}

	manager, err := s.userRepo.GetUserByID(ctx, *user.ManagerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoApprover
		}
		return nil, err
	}
	if !manager.IsActive {
		return nil, ErrNoApprover
	}
	return manager, nil
}

// SubmitKPI moves a DRAFT or shelved KPI into the approval chain. Every
// precondition is checked before the first write: cycle active, field rules,
// the owner's weight sum for the cycle, and a resolvable level-1 approver.
func (s *WorkflowService) SubmitKPI(ctx context.Context, kpiID, actorID uuid.UUID) (*models.KpiDefinition, error) {
	kpi, err := s.kpiRepo.GetKpiByID(ctx, kpiID)
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
		return nil, ErrNotSubmittable
	}

	cycle, err := s.cycleRepo.GetCycleByID(ctx, kpi.CycleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleActive {
		return nil, ErrCycleNotActive
	}

	if err := s.validateKpiForSubmit(ctx, kpi, cycle); err != nil {
		return nil, err
	}

	approver, err := s.resolveApprover(ctx, kpi.OwnerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.kpiRepo.UpdateKpiStatus(ctx, kpi, models.KpiStatusWaitingLineMgr, map[string]interface{}{
		"submitted_at":     now,
		"rejection_reason": "",
	})
	if err != nil {
		return nil, err
	}
	kpi.SubmittedAt = &now
	kpi.RejectionReason = ""

	approval := &models.Approval{
		EntityType: models.EntityTypeKPI,
		EntityID:   kpi.ID,
		Level:      models.LevelLineManager,
		ApproverID: approver.ID,
		Status:     models.ApprovalPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, approval); err != nil {
		return nil, err
	}

	s.notify(ctx, approver.ID, models.NotifApprovalPending,
		fmt.Sprintf("KPI %q is waiting for your level-1 approval", kpi.Title),
		map[string]interface{}{
			"entityType": models.EntityTypeKPI,
			"entityId":   kpi.ID.String(),
			"approvalId": approval.ID.String(),
			"level":      models.LevelLineManager,
		})

	event := events.NewWorkflowEvent("kpi.submitted")
	event.EntityType = models.EntityTypeKPI
	event.EntityID = kpi.ID.String()
	event.OwnerID = kpi.OwnerID.String()
	event.ActorID = actorID.String()
	event.Status = kpi.Status
	s.publisher.Publish(events.SubjectKpiSubmitted, event)

	s.logger.WithFields(logrus.Fields{
		"kpiId":      kpi.ID,
		"ownerId":    kpi.OwnerID,
		"approverId": approver.ID,
	}).Info("KPI submitted for approval")

	return kpi, nil
}

// validateKpiForSubmit collects every violated field and weight rule into a
// single ValidationError so the owner sees the full list at once.
func (s *WorkflowService) validateKpiForSubmit(ctx context.Context, kpi *models.KpiDefinition, cycle *models.Cycle) error {
	settings := cycle.EffectiveSettings()
	var reasons []string

	if kpi.Title == "" {
		reasons = append(reasons, "title is required")
	}
	switch kpi.Type {
	case models.KpiTypeQuantHigherBetter, models.KpiTypeQuantLowerBetter:
		if kpi.TargetValue <= 0 {
			reasons = append(reasons, "quantitative KPIs require a positive target value")
		}
	case models.KpiTypeBoolean, models.KpiTypeMilestone:
	default:
		reasons = append(reasons, fmt.Sprintf("unknown KPI type %q", kpi.Type))
	}
	if kpi.Weight <= 0 || kpi.Weight > settings.WeightSumTarget {
		reasons = append(reasons, fmt.Sprintf("weight must be between 1 and %d", settings.WeightSumTarget))
	}

	siblings, err := s.kpiRepo.ListKpisByOwnerAndCycle(ctx, kpi.OwnerID, kpi.CycleID)
	if err != nil {
		return err
	}

	weightSum := 0
	countable := 0
	for i := range siblings {
		// The KPI being submitted always counts, even while still shelved;
		// other shelved siblings stay out of the sum.
		if siblings[i].ID != kpi.ID && !siblings[i].CountsTowardWeight() {
			continue
		}
		countable++
		weightSum += siblings[i].Weight
	}

	if weightSum != settings.WeightSumTarget {
		reasons = append(reasons, fmt.Sprintf("weights across the cycle sum to %d, expected %d", weightSum, settings.WeightSumTarget))
	}
	if countable < settings.MinKpisPerUser {
		reasons = append(reasons, fmt.Sprintf("at least %d KPIs are required for this cycle", settings.MinKpisPerUser))
	}
	if countable > settings.MaxKpisPerUser {
		reasons = append(reasons, fmt.Sprintf("at most %d KPIs are allowed for this cycle", settings.MaxKpisPerUser))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// SubmitActual moves a draft actual into the approval chain. The parent KPI
// must have locked goals, and the achievement percentage and score are
// derived here so an owner cannot submit arbitrary values for them.
func (s *WorkflowService) SubmitActual(ctx context.Context, actualID, actorID uuid.UUID) (*models.KpiActual, error) {
	actual, err := s.kpiRepo.GetActualByID(ctx, actualID)
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
		return nil, ErrNotSubmittable
	}

	kpi, err := s.kpiRepo.GetKpiByID(ctx, actual.KpiID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKpiNotFound
		}
		return nil, err
	}
	if kpi.Status != models.KpiStatusLockedGoals {
		return nil, ErrGoalsNotLocked
	}

	cycle, err := s.cycleRepo.GetCycleByID(ctx, actual.CycleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != models.CycleActive {
		return nil, ErrCycleNotActive
	}

	var reasons []string
	if actual.ActualValue < 0 {
		reasons = append(reasons, "actual value cannot be negative")
	}
	if cycle.EffectiveSettings().RequireEvidence && actual.SelfComment == "" {
		reasons = append(reasons, "this cycle requires a self comment as evidence")
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	approver, err := s.resolveApprover(ctx, actual.OwnerID)
	if err != nil {
		return nil, err
	}

	pct, score := models.ComputeAchievement(kpi, actual.ActualValue)

	now := time.Now()
	err = s.kpiRepo.UpdateActualStatus(ctx, actual, models.ActualStatusWaitingLineMgr, map[string]interface{}{
		"submitted_at":     now,
		"achievement_pct":  pct,
		"score":            score,
		"rejection_reason": "",
	})
	if err != nil {
		return nil, err
	}
	actual.SubmittedAt = &now
	actual.AchievementPct = pct
	actual.Score = score
	actual.RejectionReason = ""

	approval := &models.Approval{
		EntityType: models.EntityTypeActual,
		EntityID:   actual.ID,
		Level:      models.LevelLineManager,
		ApproverID: approver.ID,
		Status:     models.ApprovalPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, approval); err != nil {
		return nil, err
	}

	s.notify(ctx, approver.ID, models.NotifApprovalPending,
		fmt.Sprintf("Actual result for KPI %q is waiting for your level-1 approval", kpi.Title),
		map[string]interface{}{
			"entityType": models.EntityTypeActual,
			"entityId":   actual.ID.String(),
			"approvalId": approval.ID.String(),
			"level":      models.LevelLineManager,
		})

	event := events.NewWorkflowEvent("actual.submitted")
	event.EntityType = models.EntityTypeActual
	event.EntityID = actual.ID.String()
	event.OwnerID = actual.OwnerID.String()
	event.ActorID = actorID.String()
	event.Status = actual.Status
	s.publisher.Publish(events.SubjectActualSubmitted, event)

	return actual, nil
}

// ProcessApproval records an APPROVE or REJECT decision by the designated
// approver. Rejection at either level cancels the remaining chain and
// returns the entity to its draft state with the reason stamped; approving
// level 2 finalizes the entity and locks it in the same call.
func (s *WorkflowService) ProcessApproval(ctx context.Context, approvalID, actorID uuid.UUID, decision, comment string) (*models.Approval, error) {
	approval, err := s.approvalRepo.GetApprovalByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	if !approval.IsPending() {
		return nil, ErrAlreadyDecided
	}
	if approval.ApproverID != actorID {
		return nil, ErrNotYourApproval
	}

	switch decision {
	case models.DecisionApprove:
	case models.DecisionReject:
		if comment == "" {
			return nil, &ValidationError{Reasons: []string{"a comment is required when rejecting"}}
		}
	default:
		return nil, ErrInvalidDecision
	}

	return s.applyDecision(ctx, approval, actorID, decision, comment)
}

// applyDecision performs the shared decision path used by ProcessApproval
// and the admin proxy. The caller has already verified authorization.
func (s *WorkflowService) applyDecision(ctx context.Context, approval *models.Approval, actorID uuid.UUID, decision, comment string) (*models.Approval, error) {
	ref, err := s.loadEntity(ctx, approval.EntityType, approval.EntityID)
	if err != nil {
		return nil, err
	}

	// Resolve the level-2 approver before flipping anything so a broken
	// manager chain leaves the level-1 approval untouched.
	var nextApprover *models.User
	if decision == models.DecisionApprove && approval.Level == models.LevelLineManager {
		nextApprover, err = s.resolveApprover(ctx, approval.ApproverID)
		if err != nil {
			return nil, err
		}
	}

	newStatus := models.ApprovalApproved
	if decision == models.DecisionReject {
		newStatus = models.ApprovalRejected
	}
	if err := s.approvalRepo.DecideApproval(ctx, approval, newStatus, comment); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	if decision == models.DecisionReject {
		if err := s.handleRejection(ctx, approval, ref, actorID, comment); err != nil {
			return nil, err
		}
		return approval, nil
	}

	if approval.Level == models.LevelLineManager {
		if err := s.advanceToManager(ctx, approval, ref, actorID, nextApprover); err != nil {
			return nil, err
		}
		return approval, nil
	}

	if err := s.finalizeEntity(ctx, approval, ref, actorID); err != nil {
		return nil, err
	}
	return approval, nil
}

// handleRejection cancels the rest of the chain and returns the entity to
// its draft state with the reason stamped.
func (s *WorkflowService) handleRejection(ctx context.Context, approval *models.Approval, ref *entityRef, actorID uuid.UUID, comment string) error {
	if _, err := s.approvalRepo.CancelPendingApprovals(ctx, approval.EntityType, approval.EntityID, &approval.ID); err != nil {
		return err
	}

	if err := s.returnEntityToDraft(ctx, ref, comment); err != nil {
		return err
	}

	notifType := models.NotifKpiRejected
	subject := events.SubjectKpiRejected
	if ref.entityType == models.EntityTypeActual {
		notifType = models.NotifActualRejected
		subject = events.SubjectActualRejected
	}

	s.notify(ctx, ref.ownerID(), notifType,
		fmt.Sprintf("%q was rejected at level %d: %s", ref.title(), approval.Level, comment),
		map[string]interface{}{
			"entityType": ref.entityType,
			"entityId":   ref.id().String(),
			"level":      approval.Level,
		})

	event := events.NewWorkflowEvent(subject)
	event.EntityType = ref.entityType
	event.EntityID = ref.id().String()
	event.OwnerID = ref.ownerID().String()
	event.ActorID = actorID.String()
	event.Level = approval.Level
	event.Comment = comment
	s.publisher.Publish(subject, event)

	return nil
}

// returnEntityToDraft moves a KPI or actual back to its editable draft state.
// Shared by rejection and the admin return-to-staff proxy action.
func (s *WorkflowService) returnEntityToDraft(ctx context.Context, ref *entityRef, reason string) error {
	extra := map[string]interface{}{"rejection_reason": reason}

	if ref.entityType == models.EntityTypeActual {
		if err := s.kpiRepo.UpdateActualStatus(ctx, ref.actual, models.ActualStatusDraft, extra); err != nil {
			return err
		}
		ref.actual.RejectionReason = reason
		return nil
	}

	if err := s.kpiRepo.UpdateKpiStatus(ctx, ref.kpi, models.KpiStatusDraft, extra); err != nil {
		return err
	}
	ref.kpi.RejectionReason = reason
	return nil
}

// advanceToManager opens the level-2 step after a level-1 approval.
func (s *WorkflowService) advanceToManager(ctx context.Context, approval *models.Approval, ref *entityRef, actorID uuid.UUID, nextApprover *models.User) error {
	waiting := models.KpiStatusWaitingManager
	subject := events.SubjectKpiApproved
	if ref.entityType == models.EntityTypeActual {
		waiting = models.ActualStatusWaitingManager
		subject = events.SubjectActualApproved
	}

	if ref.entityType == models.EntityTypeActual {
		if err := s.kpiRepo.UpdateActualStatus(ctx, ref.actual, waiting, nil); err != nil {
			return err
		}
	} else {
		if err := s.kpiRepo.UpdateKpiStatus(ctx, ref.kpi, waiting, nil); err != nil {
			return err
		}
	}

	next := &models.Approval{
		EntityType: approval.EntityType,
		EntityID:   approval.EntityID,
		Level:      models.LevelManager,
		ApproverID: nextApprover.ID,
		Status:     models.ApprovalPending,
	}
	if err := s.approvalRepo.CreateApproval(ctx, next); err != nil {
		return err
	}

	s.notify(ctx, nextApprover.ID, models.NotifApprovalPending,
		fmt.Sprintf("%q passed level 1 and is waiting for your level-2 approval", ref.title()),
		map[string]interface{}{
			"entityType": ref.entityType,
			"entityId":   ref.id().String(),
			"approvalId": next.ID.String(),
			"level":      models.LevelManager,
		})

	event := events.NewWorkflowEvent(subject)
	event.EntityType = ref.entityType
	event.EntityID = ref.id().String()
	event.OwnerID = ref.ownerID().String()
	event.ActorID = actorID.String()
	event.Level = models.LevelLineManager
	s.publisher.Publish(subject, event)

	return nil
}

// finalizeEntity handles a level-2 approval: the entity becomes APPROVED and
// is locked synchronously in the same call, so there is no window where an
// approved entity is still mutable.
func (s *WorkflowService) finalizeEntity(ctx context.Context, approval *models.Approval, ref *entityRef, actorID uuid.UUID) error {
	now := time.Now()

	if ref.entityType == models.EntityTypeActual {
		if err := s.kpiRepo.UpdateActualStatus(ctx, ref.actual, models.ActualStatusApproved, map[string]interface{}{"approved_at": now}); err != nil {
			return err
		}
		if err := s.kpiRepo.UpdateActualStatus(ctx, ref.actual, models.ActualStatusLocked, map[string]interface{}{"locked_at": now}); err != nil {
			return err
		}
		ref.actual.ApprovedAt = &now
		ref.actual.LockedAt = &now

		s.notify(ctx, ref.ownerID(), models.NotifActualApproved,
			fmt.Sprintf("Actual result for %q was fully approved with a score of %d", ref.title(), ref.actual.Score),
			map[string]interface{}{
				"entityType": ref.entityType,
				"entityId":   ref.id().String(),
			})

		event := events.NewWorkflowEvent(events.SubjectActualLocked)
		event.EntityType = ref.entityType
		event.EntityID = ref.id().String()
		event.OwnerID = ref.ownerID().String()
		event.ActorID = actorID.String()
		event.Status = ref.actual.Status
		event.Level = models.LevelManager
		s.publisher.Publish(events.SubjectActualLocked, event)
		return nil
	}

	if err := s.kpiRepo.UpdateKpiStatus(ctx, ref.kpi, models.KpiStatusApproved, map[string]interface{}{"approved_at": now}); err != nil {
		return err
	}
	if err := s.kpiRepo.UpdateKpiStatus(ctx, ref.kpi, models.KpiStatusLockedGoals, map[string]interface{}{"locked_at": now}); err != nil {
		return err
	}
	ref.kpi.ApprovedAt = &now
	ref.kpi.LockedAt = &now

	s.notify(ctx, ref.ownerID(), models.NotifKpiLocked,
		fmt.Sprintf("KPI %q was fully approved and its goals are now locked", ref.title()),
		map[string]interface{}{
			"entityType": ref.entityType,
			"entityId":   ref.id().String(),
		})

	event := events.NewWorkflowEvent(events.SubjectKpiLocked)
	event.EntityType = ref.entityType
	event.EntityID = ref.id().String()
	event.OwnerID = ref.ownerID().String()
	event.ActorID = actorID.String()
	event.Status = ref.kpi.Status
	event.Level = models.LevelManager
	s.publisher.Publish(events.SubjectKpiLocked, event)
	return nil
}

// DelegateApproval lets the current approver hand a pending step to another
// active user. The step keeps its level and entity; only the addressee and
// delegation metadata change.
func (s *WorkflowService) DelegateApproval(ctx context.Context, approvalID, actorID, newApproverID uuid.UUID, reason string) (*models.Approval, error) {
	approval, err := s.approvalRepo.GetApprovalByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	if !approval.IsPending() {
		return nil, ErrAlreadyDecided
	}
	if approval.ApproverID != actorID {
		return nil, ErrNotYourApproval
	}
	if newApproverID == actorID {
		return nil, &ValidationError{Reasons: []string{"cannot delegate an approval to yourself"}}
	}

	if err := s.reassign(ctx, approval, newApproverID, reason, models.NotifApprovalDelegated); err != nil {
		return nil, err
	}
	return approval, nil
}

// reassign moves a pending approval to a new approver and notifies them.
// Used by delegation and the admin reassignment proxy.
func (s *WorkflowService) reassign(ctx context.Context, approval *models.Approval, newApproverID uuid.UUID, reason, notifType string) error {
	newApprover, err := s.userRepo.GetUserByID(ctx, newApproverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !newApprover.IsActive {
		return &ValidationError{Reasons: []string{"target approver is not active"}}
	}

	if err := s.approvalRepo.ReassignApproval(ctx, approval, newApproverID); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrAlreadyDecided
		}
		return err
	}

	ref, err := s.loadEntity(ctx, approval.EntityType, approval.EntityID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("A level-%d approval for %q was handed to you", approval.Level, ref.title())
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	s.notify(ctx, newApproverID, notifType, message, map[string]interface{}{
		"entityType": approval.EntityType,
		"entityId":   approval.EntityID.String(),
		"approvalId": approval.ID.String(),
		"level":      approval.Level,
	})

	event := events.NewWorkflowEvent(events.SubjectApprovalDelegated)
	event.EntityType = approval.EntityType
	event.EntityID = approval.EntityID.String()
	event.ActorID = newApproverID.String()
	event.Level = approval.Level
	event.Comment = reason
	s.publisher.Publish(events.SubjectApprovalDelegated, event)

	return nil
}

// ListPendingApprovals returns the approver's open inbox.
func (s *WorkflowService) ListPendingApprovals(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]models.Approval, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.approvalRepo.ListPendingByApprover(ctx, approverID, limit, offset)
}

// GetEntityApprovals returns the full approval history for one entity,
// ordered by level.
func (s *WorkflowService) GetEntityApprovals(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.Approval, error) {
	if entityType != models.EntityTypeKPI && entityType != models.EntityTypeActual {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("unknown entity type %q", entityType)}}
	}
	return s.approvalRepo.ListApprovalsForEntity(ctx, entityType, entityID)
}

// notify dispatches a notification and logs failures without interrupting
// the workflow. Notifications are advisory; losing one must never roll back
// a state transition.
func (s *WorkflowService) notify(ctx context.Context, userID uuid.UUID, notifType, message string, metadata map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, userID, notifType, message, metadata); err != nil {
		s.logger.WithFields(logrus.Fields{
			"userId": userID,
			"type":   notifType,
		}).WithError(err).Warn("Failed to dispatch notification")
	}
}
