package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kpi-service/internal/events"
	"kpi-service/internal/models"
	"kpi-service/internal/repository"
	"kpi-service/internal/services"
)

// EscalationJob periodically sweeps pending approvals against two SLAs: a
// reminder to the approver after the first threshold and an escalation to
// the approver's manager after the second. Each stamp is written with a
// conditional update, so overlapping sweeps (or multiple instances) never
// produce duplicate notifications.
type EscalationJob struct {
	approvalRepo repository.ApprovalRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	notifier     services.Notifier
	publisher    *events.Publisher
	logger       *logrus.Entry

	interval      time.Duration
	remindAfter   time.Duration
	escalateAfter time.Duration

	stopCh chan struct{}
}

// NewEscalationJob creates a new EscalationJob
func NewEscalationJob(
	approvalRepo repository.ApprovalRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	notifier services.Notifier,
	publisher *events.Publisher,
	logger *logrus.Logger,
	interval, remindAfter, escalateAfter time.Duration,
) *EscalationJob {
	return &EscalationJob{
		approvalRepo:  approvalRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		publisher:     publisher,
		logger:        logger.WithField("component", "escalation_job"),
		interval:      interval,
		remindAfter:   remindAfter,
		escalateAfter: escalateAfter,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (j *EscalationJob) Start() {
	j.logger.WithFields(logrus.Fields{
		"interval":      j.interval,
		"remindAfter":   j.remindAfter,
		"escalateAfter": j.escalateAfter,
	}).Info("Starting escalation job")

	go j.run()
}

// Stop signals the sweep loop to exit.
func (j *EscalationJob) Stop() {
	close(j.stopCh)
}

func (j *EscalationJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep(context.Background())
		case <-j.stopCh:
			j.logger.Info("Escalation job stopped")
			return
		}
	}
}

// Sweep runs one pass over overdue pending approvals. Exported so an admin
// endpoint or test can trigger it directly.
func (j *EscalationJob) Sweep(ctx context.Context) {
	now := time.Now()

	overdue, err := j.approvalRepo.ListPendingOlderThan(ctx, now.Add(-j.remindAfter))
	if err != nil {
		j.logger.WithError(err).Error("Failed to list overdue approvals")
		return
	}

	reminders, escalations := 0, 0
	for i := range overdue {
		approval := &overdue[i]
		age := now.Sub(approval.CreatedAt)

		if age >= j.escalateAfter && approval.EscalatedAt == nil {
			if j.escalate(ctx, approval, now) {
				escalations++
			}
			continue
		}
		if approval.ReminderSentAt == nil {
			if j.remind(ctx, approval, now) {
				reminders++
			}
		}
	}

	if reminders > 0 || escalations > 0 {
		j.logger.WithFields(logrus.Fields{
			"reminders":   reminders,
			"escalations": escalations,
		}).Info("Escalation sweep completed")
	}
}

func (j *EscalationJob) remind(ctx context.Context, approval *models.Approval, now time.Time) bool {
	stamped, err := j.approvalRepo.MarkReminderSent(ctx, approval.ID, now)
	if err != nil {
		j.logger.WithField("approvalId", approval.ID).WithError(err).Error("Failed to stamp reminder")
		return false
	}
	if !stamped {
		return false
	}

	days := int(now.Sub(approval.CreatedAt).Hours() / 24)
	err = j.notifier.Dispatch(ctx, approval.ApproverID, models.NotifApprovalReminder,
		fmt.Sprintf("A level-%d approval has been waiting for you for %d days", approval.Level, days),
		map[string]interface{}{
			"approvalId": approval.ID.String(),
			"entityType": approval.EntityType,
			"entityId":   approval.EntityID.String(),
		})
	if err != nil {
		j.logger.WithField("approvalId", approval.ID).WithError(err).Warn("Failed to dispatch reminder")
	}
	return true
}

// escalate notifies the overdue approver's own manager. When the approver
// has no manager the escalation falls back to the approver, so the overdue
// state is never silently dropped.
func (j *EscalationJob) escalate(ctx context.Context, approval *models.Approval, now time.Time) bool {
	stamped, err := j.approvalRepo.MarkEscalated(ctx, approval.ID, now)
	if err != nil {
		j.logger.WithField("approvalId", approval.ID).WithError(err).Error("Failed to stamp escalation")
		return false
	}
	if !stamped {
		return false
	}

	recipient := approval.ApproverID
	if approver, err := j.userRepo.GetUserByID(ctx, approval.ApproverID); err == nil && approver.ManagerID != nil {
		recipient = *approver.ManagerID
	} else {
		j.logger.WithFields(logrus.Fields{
			"approvalId": approval.ID,
			"approverId": approval.ApproverID,
		}).Warn("Overdue approver has no manager, escalating to the approver directly")
	}

	days := int(now.Sub(approval.CreatedAt).Hours() / 24)
	err = j.notifier.Dispatch(ctx, recipient, models.NotifApprovalOverdue,
		fmt.Sprintf("A level-%d approval in your team has been pending for %d days", approval.Level, days),
		map[string]interface{}{
			"approvalId": approval.ID.String(),
			"approverId": approval.ApproverID.String(),
			"entityType": approval.EntityType,
			"entityId":   approval.EntityID.String(),
		})
	if err != nil {
		j.logger.WithField("approvalId", approval.ID).WithError(err).Warn("Failed to dispatch escalation")
	}

	event := events.NewWorkflowEvent(events.SubjectApprovalEscalated)
	event.EntityType = approval.EntityType
	event.EntityID = approval.EntityID.String()
	event.ActorID = approval.ApproverID.String()
	event.Level = approval.Level
	j.publisher.Publish(events.SubjectApprovalEscalated, event)

	return true
}
