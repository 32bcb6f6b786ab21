package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// The mocks mirror the repository contracts, including the in-memory
// mutations the real implementations perform on successful conditional
// updates, so the services' post-update reads behave as in production.

type MockKpiRepository struct {
	mock.Mock
}

func (m *MockKpiRepository) CreateKpi(ctx context.Context, kpi *models.KpiDefinition) error {
	args := m.Called(ctx, kpi)
	if args.Error(0) == nil && kpi.ID == uuid.Nil {
		kpi.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockKpiRepository) GetKpiByID(ctx context.Context, id uuid.UUID) (*models.KpiDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KpiDefinition), args.Error(1)
}

func (m *MockKpiRepository) UpdateKpi(ctx context.Context, kpi *models.KpiDefinition) error {
	args := m.Called(ctx, kpi)
	return args.Error(0)
}

func (m *MockKpiRepository) UpdateKpiStatus(ctx context.Context, kpi *models.KpiDefinition, newStatus string, extra map[string]interface{}) error {
	args := m.Called(ctx, kpi, newStatus, extra)
	if args.Error(0) == nil {
		kpi.Status = newStatus
		kpi.Version++
	}
	return args.Error(0)
}

func (m *MockKpiRepository) ListKpisByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiDefinition, error) {
	args := m.Called(ctx, ownerID, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.KpiDefinition), args.Error(1)
}

func (m *MockKpiRepository) ListKpis(ctx context.Context, filter repository.KpiFilter) ([]models.KpiDefinition, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.KpiDefinition), args.Get(1).(int64), args.Error(2)
}

func (m *MockKpiRepository) DeleteKpi(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKpiRepository) CreateActual(ctx context.Context, actual *models.KpiActual) error {
	args := m.Called(ctx, actual)
	if args.Error(0) == nil && actual.ID == uuid.Nil {
		actual.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockKpiRepository) GetActualByID(ctx context.Context, id uuid.UUID) (*models.KpiActual, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KpiActual), args.Error(1)
}

func (m *MockKpiRepository) GetActualByKpi(ctx context.Context, kpiID uuid.UUID) (*models.KpiActual, error) {
	args := m.Called(ctx, kpiID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KpiActual), args.Error(1)
}

func (m *MockKpiRepository) UpdateActual(ctx context.Context, actual *models.KpiActual) error {
	args := m.Called(ctx, actual)
	return args.Error(0)
}

func (m *MockKpiRepository) UpdateActualStatus(ctx context.Context, actual *models.KpiActual, newStatus string, extra map[string]interface{}) error {
	args := m.Called(ctx, actual, newStatus, extra)
	if args.Error(0) == nil {
		actual.Status = newStatus
		actual.Version++
	}
	return args.Error(0)
}

func (m *MockKpiRepository) ListActualsByOwnerAndCycle(ctx context.Context, ownerID, cycleID uuid.UUID) ([]models.KpiActual, error) {
	args := m.Called(ctx, ownerID, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.KpiActual), args.Error(1)
}

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) CreateApproval(ctx context.Context, approval *models.Approval) error {
	args := m.Called(ctx, approval)
	if args.Error(0) == nil && approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockApprovalRepository) GetApprovalByID(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) GetPendingApproval(ctx context.Context, entityType string, entityID uuid.UUID, level int) (*models.Approval, error) {
	args := m.Called(ctx, entityType, entityID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) ListApprovalsForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.Approval, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) ListPendingByApprover(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]models.Approval, int64, error) {
	args := m.Called(ctx, approverID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Approval), args.Get(1).(int64), args.Error(2)
}

func (m *MockApprovalRepository) DecideApproval(ctx context.Context, approval *models.Approval, newStatus, comment string) error {
	args := m.Called(ctx, approval, newStatus, comment)
	if args.Error(0) == nil {
		now := time.Now()
		approval.Status = newStatus
		approval.DecisionComment = comment
		approval.DecidedAt = &now
		approval.Version++
	}
	return args.Error(0)
}

func (m *MockApprovalRepository) CancelPendingApprovals(ctx context.Context, entityType string, entityID uuid.UUID, exceptID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, entityType, entityID, exceptID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockApprovalRepository) ReassignApproval(ctx context.Context, approval *models.Approval, newApproverID uuid.UUID) error {
	args := m.Called(ctx, approval, newApproverID)
	if args.Error(0) == nil {
		old := approval.ApproverID
		now := time.Now()
		approval.ApproverID = newApproverID
		approval.DelegatedFrom = &old
		approval.DelegatedAt = &now
		approval.Version++
	}
	return args.Error(0)
}

func (m *MockApprovalRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Approval, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockApprovalRepository) MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) ListUsersByOrgUnit(ctx context.Context, orgUnitID uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, orgUnitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) CreateOrgUnit(ctx context.Context, unit *models.OrgUnit) error {
	args := m.Called(ctx, unit)
	if args.Error(0) == nil && unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetOrgUnitByID(ctx context.Context, id uuid.UUID) (*models.OrgUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgUnit), args.Error(1)
}

func (m *MockUserRepository) UpdateOrgUnit(ctx context.Context, unit *models.OrgUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteOrgUnit(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ListOrgUnits(ctx context.Context) ([]models.OrgUnit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrgUnit), args.Error(1)
}

type MockCycleRepository struct {
	mock.Mock
}

func (m *MockCycleRepository) CreateCycle(ctx context.Context, cycle *models.Cycle) error {
	args := m.Called(ctx, cycle)
	if args.Error(0) == nil && cycle.ID == uuid.Nil {
		cycle.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCycleRepository) GetCycleByID(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cycle), args.Error(1)
}

func (m *MockCycleRepository) GetActiveCycle(ctx context.Context) (*models.Cycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cycle), args.Error(1)
}

func (m *MockCycleRepository) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cycle), args.Error(1)
}

func (m *MockCycleRepository) UpdateCycle(ctx context.Context, cycle *models.Cycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

func (m *MockCycleRepository) UpdateCycleStatus(ctx context.Context, cycle *models.Cycle, newStatus string, extra map[string]interface{}) error {
	args := m.Called(ctx, cycle, newStatus, extra)
	if args.Error(0) == nil {
		cycle.Status = newStatus
		cycle.Version++
	}
	return args.Error(0)
}

type MockChangeRequestRepository struct {
	mock.Mock
}

func (m *MockChangeRequestRepository) CreateChangeRequest(ctx context.Context, cr *models.ChangeRequest) error {
	args := m.Called(ctx, cr)
	if args.Error(0) == nil && cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockChangeRequestRepository) GetChangeRequestByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeRequest), args.Error(1)
}

func (m *MockChangeRequestRepository) ListChangeRequestsByOwner(ctx context.Context, ownerID uuid.UUID, openOnly bool) ([]models.ChangeRequest, error) {
	args := m.Called(ctx, ownerID, openOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangeRequest), args.Error(1)
}

func (m *MockChangeRequestRepository) ResolveChangeRequest(ctx context.Context, cr *models.ChangeRequest, newStatus string, resolvedBy uuid.UUID, comment string) error {
	args := m.Called(ctx, cr, newStatus, resolvedBy, comment)
	if args.Error(0) == nil {
		now := time.Now()
		cr.Status = newStatus
		cr.ResolutionComment = comment
		cr.ResolvedBy = &resolvedBy
		cr.ResolvedAt = &now
	}
	return args.Error(0)
}

func (m *MockChangeRequestRepository) CreateProxyAction(ctx context.Context, action *models.ProxyAction) error {
	args := m.Called(ctx, action)
	if args.Error(0) == nil && action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockChangeRequestRepository) ListProxyActions(ctx context.Context, limit, offset int) ([]models.ProxyAction, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ProxyAction), args.Get(1).(int64), args.Error(2)
}

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) CreateTemplate(ctx context.Context, template *models.KpiTemplate) error {
	args := m.Called(ctx, template)
	if args.Error(0) == nil && template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockTemplateRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.KpiTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KpiTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]models.KpiTemplate, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.KpiTemplate), args.Error(1)
}

func (m *MockTemplateRepository) UpdateTemplate(ctx context.Context, template *models.KpiTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNotifier captures dispatched notifications for assertion.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(ctx context.Context, userID uuid.UUID, notifType, message string, metadata map[string]interface{}) error {
	args := m.Called(ctx, userID, notifType, message, metadata)
	return args.Error(0)
}
