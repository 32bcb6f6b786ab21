package jobs

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

type approvalRepoStub struct {
	repository.ApprovalRepositoryInterface

	overdue      []models.Approval
	reminderOK   bool
	escalateOK   bool
	remindedIDs  []uuid.UUID
	escalatedIDs []uuid.UUID
}

func (s *approvalRepoStub) ListPendingOlderThan(_ context.Context, _ time.Time) ([]models.Approval, error) {
	return s.overdue, nil
}

func (s *approvalRepoStub) MarkReminderSent(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	s.remindedIDs = append(s.remindedIDs, id)
	return s.reminderOK, nil
}

func (s *approvalRepoStub) MarkEscalated(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	s.escalatedIDs = append(s.escalatedIDs, id)
	return s.escalateOK, nil
}

type userRepoStub struct {
	repository.UserRepositoryInterface

	users map[uuid.UUID]*models.User
}

func (s *userRepoStub) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type dispatched struct {
	userID    uuid.UUID
	notifType string
}

type notifierRecorder struct {
	sent []dispatched
}

func (r *notifierRecorder) Dispatch(_ context.Context, userID uuid.UUID, notifType, _ string, _ map[string]interface{}) error {
	r.sent = append(r.sent, dispatched{userID: userID, notifType: notifType})
	return nil
}

func newTestJob(approvals *approvalRepoStub, users *userRepoStub, recorder *notifierRecorder) *EscalationJob {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEscalationJob(approvals, users, recorder, nil, logger,
		time.Hour, 72*time.Hour, 144*time.Hour)
}

func pendingApprovalAgedBy(age time.Duration, approverID uuid.UUID) models.Approval {
	return models.Approval{
		ID:         uuid.New(),
		EntityType: models.EntityTypeKPI,
		EntityID:   uuid.New(),
		Level:      models.LevelLineManager,
		ApproverID: approverID,
		Status:     models.ApprovalPending,
		CreatedAt:  time.Now().Add(-age),
	}
}

func TestSweep_SendsReminderToApprover(t *testing.T) {
	approverID := uuid.New()
	approvals := &approvalRepoStub{
		overdue:    []models.Approval{pendingApprovalAgedBy(80*time.Hour, approverID)},
		reminderOK: true,
	}
	recorder := &notifierRecorder{}
	job := newTestJob(approvals, &userRepoStub{}, recorder)

	job.Sweep(context.Background())

	require.Len(t, recorder.sent, 1)
	assert.Equal(t, approverID, recorder.sent[0].userID)
	assert.Equal(t, models.NotifApprovalReminder, recorder.sent[0].notifType)
	assert.Len(t, approvals.escalatedIDs, 0)
}

func TestSweep_ReminderStampLostRaceSkipsNotification(t *testing.T) {
	approvals := &approvalRepoStub{
		overdue:    []models.Approval{pendingApprovalAgedBy(80*time.Hour, uuid.New())},
		reminderOK: false,
	}
	recorder := &notifierRecorder{}
	job := newTestJob(approvals, &userRepoStub{}, recorder)

	job.Sweep(context.Background())

	assert.Len(t, approvals.remindedIDs, 1)
	assert.Len(t, recorder.sent, 0)
}

func TestSweep_AlreadyRemindedApprovalUntouched(t *testing.T) {
	reminded := pendingApprovalAgedBy(80*time.Hour, uuid.New())
	sentAt := time.Now().Add(-2 * time.Hour)
	reminded.ReminderSentAt = &sentAt

	approvals := &approvalRepoStub{overdue: []models.Approval{reminded}}
	recorder := &notifierRecorder{}
	job := newTestJob(approvals, &userRepoStub{}, recorder)

	job.Sweep(context.Background())

	assert.Len(t, approvals.remindedIDs, 0)
	assert.Len(t, recorder.sent, 0)
}

func TestSweep_EscalatesToApproverManager(t *testing.T) {
	managerID := uuid.New()
	approver := &models.User{ID: uuid.New(), ManagerID: &managerID, IsActive: true}

	approvals := &approvalRepoStub{
		overdue:    []models.Approval{pendingApprovalAgedBy(150*time.Hour, approver.ID)},
		escalateOK: true,
	}
	users := &userRepoStub{users: map[uuid.UUID]*models.User{approver.ID: approver}}
	recorder := &notifierRecorder{}
	job := newTestJob(approvals, users, recorder)

	job.Sweep(context.Background())

	require.Len(t, recorder.sent, 1)
	assert.Equal(t, managerID, recorder.sent[0].userID)
	assert.Equal(t, models.NotifApprovalOverdue, recorder.sent[0].notifType)
	assert.Len(t, approvals.remindedIDs, 0)
}

func TestSweep_EscalationFallsBackToApproverWithoutManager(t *testing.T) {
	approver := &models.User{ID: uuid.New(), IsActive: true}

	approvals := &approvalRepoStub{
		overdue:    []models.Approval{pendingApprovalAgedBy(150*time.Hour, approver.ID)},
		escalateOK: true,
	}
	users := &userRepoStub{users: map[uuid.UUID]*models.User{approver.ID: approver}}
	recorder := &notifierRecorder{}
	logger, hook := logrustest.NewNullLogger()
	job := NewEscalationJob(approvals, users, recorder, nil, logger,
		time.Hour, 72*time.Hour, 144*time.Hour)

	job.Sweep(context.Background())

	require.Len(t, recorder.sent, 1)
	assert.Equal(t, approver.ID, recorder.sent[0].userID)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["approverId"] == approver.ID {
			warned = true
		}
	}
	assert.True(t, warned, "broken manager chain should be logged")
}

func TestSweep_EscalationStampedOnce(t *testing.T) {
	escalated := pendingApprovalAgedBy(150*time.Hour, uuid.New())
	at := time.Now().Add(-time.Hour)
	escalated.EscalatedAt = &at

	approvals := &approvalRepoStub{overdue: []models.Approval{escalated}}
	recorder := &notifierRecorder{}
	job := newTestJob(approvals, &userRepoStub{}, recorder)

	job.Sweep(context.Background())

	assert.Len(t, approvals.escalatedIDs, 0)
	assert.Len(t, recorder.sent, 0)
}
