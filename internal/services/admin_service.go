package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"kpi-service/internal/events"
	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// AdminService hosts privileged proxy operations an administrator performs
// on behalf of approvers or owners. Every operation verifies the ADMIN role
// itself and records a ProxyAction audit row, so the trail survives even if
// a route is ever exposed without the role middleware.
type AdminService struct {
	workflow  *WorkflowService
	crRepo    repository.ChangeRequestRepositoryInterface
	userRepo  repository.UserRepositoryInterface
	notifier  Notifier
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewAdminService creates a new AdminService
func NewAdminService(
	workflow *WorkflowService,
	crRepo repository.ChangeRequestRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	notifier Notifier,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *AdminService {
	return &AdminService{
		workflow:  workflow,
		crRepo:    crRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.WithField("component", "admin_service"),
	}
}

func (s *AdminService) requireAdmin(ctx context.Context, adminID uuid.UUID) (*models.User, error) {
	admin, err := s.userRepo.GetUserByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdminOnly
		}
		return nil, err
	}
	if admin.Role != models.RoleAdmin || !admin.IsActive {
		return nil, ErrAdminOnly
	}
	return admin, nil
}

// recordProxyAction appends an audit row for an admin operation. Auditing is
// mandatory; a failed audit write fails the whole operation.
func (s *AdminService) recordProxyAction(ctx context.Context, adminID uuid.UUID, action, entityType string, entityID uuid.UUID, targetUserID *uuid.UUID, detail map[string]interface{}) error {
	row := &models.ProxyAction{
		AdminID:      adminID,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		TargetUserID: targetUserID,
	}
	if len(detail) > 0 {
		data, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		row.Detail = datatypes.JSON(data)
	}
	return s.crRepo.CreateProxyAction(ctx, row)
}

// ReturnToStaff pulls an in-review entity out of the approval chain and back
// to its owner's draft state, cancelling every pending approval.
func (s *AdminService) ReturnToStaff(ctx context.Context, adminID uuid.UUID, entityType string, entityID uuid.UUID, reason string) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if reason == "" {
		return &ValidationError{Reasons: []string{"a reason is required to return a submission"}}
	}

	ref, err := s.workflow.loadEntity(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	if !s.inReview(ref) {
		return &ValidationError{Reasons: []string{"entity is not in review"}}
	}

	if _, err := s.workflow.approvalRepo.CancelPendingApprovals(ctx, entityType, entityID, nil); err != nil {
		return err
	}
	if err := s.workflow.returnEntityToDraft(ctx, ref, reason); err != nil {
		return err
	}

	s.workflow.notify(ctx, ref.ownerID(), models.NotifReturnedToStaff,
		fmt.Sprintf("%q was returned to you by an administrator: %s", ref.title(), reason),
		map[string]interface{}{
			"entityType": entityType,
			"entityId":   entityID.String(),
		})

	ownerID := ref.ownerID()
	if err := s.recordProxyAction(ctx, adminID, models.ProxyActionReturnToStaff, entityType, entityID, &ownerID,
		map[string]interface{}{"reason": reason}); err != nil {
		return err
	}

	event := events.NewWorkflowEvent(events.SubjectReturnedToStaff)
	event.EntityType = entityType
	event.EntityID = entityID.String()
	event.OwnerID = ownerID.String()
	event.ActorID = adminID.String()
	event.Comment = reason
	s.publisher.Publish(events.SubjectReturnedToStaff, event)

	s.logger.WithFields(logrus.Fields{
		"adminId":  adminID,
		"entityId": entityID,
	}).Info("Entity returned to staff")
	return nil
}

func (s *AdminService) inReview(ref *entityRef) bool {
	if ref.entityType == models.EntityTypeActual {
		return ref.actual.Status == models.ActualStatusWaitingLineMgr ||
			ref.actual.Status == models.ActualStatusWaitingManager
	}
	return ref.kpi.Status == models.KpiStatusWaitingLineMgr ||
		ref.kpi.Status == models.KpiStatusWaitingManager
}

// DecideAsApprover records a decision on a pending approval in place of its
// designated approver. The decision flows through the same path as a normal
// one, so chain advancement, locking and rejection behave identically.
func (s *AdminService) DecideAsApprover(ctx context.Context, adminID, approvalID uuid.UUID, decision, comment string) (*models.Approval, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	approval, err := s.workflow.approvalRepo.GetApprovalByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	if !approval.IsPending() {
		return nil, ErrAlreadyDecided
	}

	action := models.ProxyActionApproveAsManager
	switch decision {
	case models.DecisionApprove:
	case models.DecisionReject:
		action = models.ProxyActionRejectAsManager
		if comment == "" {
			return nil, &ValidationError{Reasons: []string{"a comment is required when rejecting"}}
		}
	default:
		return nil, ErrInvalidDecision
	}

	approverID := approval.ApproverID
	decided, err := s.workflow.applyDecision(ctx, approval, adminID, decision, comment)
	if err != nil {
		return nil, err
	}

	if err := s.recordProxyAction(ctx, adminID, action, approval.EntityType, approval.EntityID, &approverID,
		map[string]interface{}{
			"approvalId": approvalID.String(),
			"level":      approval.Level,
			"comment":    comment,
		}); err != nil {
		return nil, err
	}
	return decided, nil
}

// ReassignApprover moves a pending approval to a different approver without
// the current approver's consent.
func (s *AdminService) ReassignApprover(ctx context.Context, adminID, approvalID, newApproverID uuid.UUID, reason string) (*models.Approval, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	approval, err := s.workflow.approvalRepo.GetApprovalByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApprovalNotFound
		}
		return nil, err
	}
	if !approval.IsPending() {
		return nil, ErrAlreadyDecided
	}
	if newApproverID == approval.ApproverID {
		return nil, &ValidationError{Reasons: []string{"approval is already assigned to this approver"}}
	}

	if err := s.workflow.reassign(ctx, approval, newApproverID, reason, models.NotifApprovalDelegated); err != nil {
		return nil, err
	}

	if err := s.recordProxyAction(ctx, adminID, models.ProxyActionReassignApprover, approval.EntityType, approval.EntityID, &newApproverID,
		map[string]interface{}{
			"approvalId": approvalID.String(),
			"level":      approval.Level,
			"reason":     reason,
		}); err != nil {
		return nil, err
	}
	return approval, nil
}

// IssueChangeRequest asks an entity's owner to revise specific fields. An
// in-review entity is pulled out of the approval chain back to draft, like
// ReturnToStaff; the request carries a snapshot of the fields as they are
// now plus the values the admin wants.
func (s *AdminService) IssueChangeRequest(ctx context.Context, adminID uuid.UUID, entityType string, entityID uuid.UUID, reason string, after map[string]interface{}) (*models.ChangeRequest, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, &ValidationError{Reasons: []string{"a reason is required"}}
	}

	ref, err := s.workflow.loadEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	var snapshot interface{} = ref.kpi
	if ref.entityType == models.EntityTypeActual {
		snapshot = ref.actual
	}
	before, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	if s.inReview(ref) {
		if _, err := s.workflow.approvalRepo.CancelPendingApprovals(ctx, entityType, entityID, nil); err != nil {
			return nil, err
		}
		if err := s.workflow.returnEntityToDraft(ctx, ref, reason); err != nil {
			return nil, err
		}
	}

	cr := &models.ChangeRequest{
		EntityType:  entityType,
		EntityID:    entityID,
		RequestedBy: adminID,
		OwnerID:     ref.ownerID(),
		Reason:      reason,
		Before:      datatypes.JSON(before),
		Status:      models.ChangeRequestOpen,
	}
	if len(after) > 0 {
		data, err := json.Marshal(after)
		if err != nil {
			return nil, err
		}
		cr.After = datatypes.JSON(data)
	}
	if err := s.crRepo.CreateChangeRequest(ctx, cr); err != nil {
		return nil, err
	}

	s.workflow.notify(ctx, cr.OwnerID, models.NotifChangeRequested,
		fmt.Sprintf("An administrator requested changes on %q: %s", ref.title(), reason),
		map[string]interface{}{
			"entityType":      entityType,
			"entityId":        entityID.String(),
			"changeRequestId": cr.ID.String(),
		})

	if err := s.recordProxyAction(ctx, adminID, models.ProxyActionChangeRequest, entityType, entityID, &cr.OwnerID,
		map[string]interface{}{
			"changeRequestId": cr.ID.String(),
			"reason":          reason,
		}); err != nil {
		return nil, err
	}

	event := events.NewWorkflowEvent(events.SubjectChangeRequested)
	event.EntityType = entityType
	event.EntityID = entityID.String()
	event.OwnerID = cr.OwnerID.String()
	event.ActorID = adminID.String()
	event.Comment = reason
	s.publisher.Publish(events.SubjectChangeRequested, event)

	return cr, nil
}

// ResolveChangeRequest closes an open change request. The entity owner
// resolves it after revising; only an admin may withdraw it.
func (s *AdminService) ResolveChangeRequest(ctx context.Context, actorID, changeRequestID uuid.UUID, comment string, cancel bool) (*models.ChangeRequest, error) {
	cr, err := s.crRepo.GetChangeRequestByID(ctx, changeRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChangeRequestNotFound
		}
		return nil, err
	}

	if actorID != cr.OwnerID || cancel {
		if _, err := s.requireAdmin(ctx, actorID); err != nil {
			return nil, err
		}
	}

	newStatus := models.ChangeRequestResolved
	if cancel {
		newStatus = models.ChangeRequestCancelled
	}
	if err := s.crRepo.ResolveChangeRequest(ctx, cr, newStatus, actorID, comment); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}
	return cr, nil
}

// ListChangeRequests returns an owner's change requests.
func (s *AdminService) ListChangeRequests(ctx context.Context, ownerID uuid.UUID, openOnly bool) ([]models.ChangeRequest, error) {
	return s.crRepo.ListChangeRequestsByOwner(ctx, ownerID, openOnly)
}

// ListProxyActions returns the admin audit trail, newest first.
func (s *AdminService) ListProxyActions(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]models.ProxyAction, int64, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.crRepo.ListProxyActions(ctx, limit, offset)
}
