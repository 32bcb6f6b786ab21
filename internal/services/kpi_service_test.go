package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

type kpiFixture struct {
	svc       *KpiService
	kpiRepo   *MockKpiRepository
	cycleRepo *MockCycleRepository
	userRepo  *MockUserRepository
	tmplRepo  *MockTemplateRepository
}

func newKpiFixture() *kpiFixture {
	f := &kpiFixture{
		kpiRepo:   new(MockKpiRepository),
		cycleRepo: new(MockCycleRepository),
		userRepo:  new(MockUserRepository),
		tmplRepo:  new(MockTemplateRepository),
	}
	f.svc = NewKpiService(f.kpiRepo, f.cycleRepo, f.userRepo, f.tmplRepo, testLogger())
	return f
}

func validKpiInput(cycleID uuid.UUID) KpiInput {
	return KpiInput{
		CycleID:     cycleID,
		Title:       "Reduce churn",
		Type:        models.KpiTypeQuantLowerBetter,
		TargetValue: 5,
		Unit:        "%",
		Weight:      100,
	}
}

func TestCreateKpi_StampsOwnerOrgUnit(t *testing.T) {
	f := newKpiFixture()
	orgUnitID := uuid.New()
	owner := &models.User{ID: uuid.New(), Name: "Owner", Role: models.RoleStaff, OrgUnitID: &orgUnitID, IsActive: true}
	cycle := &models.Cycle{ID: uuid.New(), Status: models.CycleActive}

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.userRepo.On("GetUserByID", mock.Anything, owner.ID).Return(owner, nil)
	f.kpiRepo.On("CreateKpi", mock.Anything, mock.AnythingOfType("*models.KpiDefinition")).Return(nil)

	kpi, err := f.svc.CreateKpi(context.Background(), owner.ID, validKpiInput(cycle.ID))

	require.NoError(t, err)
	assert.Equal(t, models.KpiStatusDraft, kpi.Status)
	require.NotNil(t, kpi.OrgUnitID)
	assert.Equal(t, orgUnitID, *kpi.OrgUnitID)
}

func TestCreateKpi_RequiresActiveCycle(t *testing.T) {
	f := newKpiFixture()
	cycle := &models.Cycle{ID: uuid.New(), Status: models.CycleDraft}

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.CreateKpi(context.Background(), uuid.New(), validKpiInput(cycle.ID))
	assert.ErrorIs(t, err, ErrCycleNotActive)
}

func TestCreateKpi_CollectsInputReasons(t *testing.T) {
	f := newKpiFixture()

	_, err := f.svc.CreateKpi(context.Background(), uuid.New(), KpiInput{
		CycleID: uuid.New(),
		Type:    "GUESSWORK",
		Weight:  0,
	})

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Reasons, 3)
}

func TestUpdateKpi_LockedKpiNotEditable(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, Status: models.KpiStatusLockedGoals}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)

	_, err := f.svc.UpdateKpi(context.Background(), kpi.ID, ownerID, validKpiInput(uuid.New()))
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestShelveAndUnshelveKpi(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, Status: models.KpiStatusDraft, Version: 1}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.kpiRepo.On("UpdateKpiStatus", mock.Anything, kpi, models.KpiStatusRejected, mock.Anything).Return(nil)
	f.kpiRepo.On("UpdateKpiStatus", mock.Anything, kpi, models.KpiStatusDraft, mock.Anything).Return(nil)

	shelved, err := f.svc.ShelveKpi(context.Background(), kpi.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.KpiStatusRejected, shelved.Status)

	restored, err := f.svc.UnshelveKpi(context.Background(), kpi.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.KpiStatusDraft, restored.Status)
}

func TestShelveKpi_OnlyFromDraft(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, Status: models.KpiStatusWaitingLineMgr}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)

	_, err := f.svc.ShelveKpi(context.Background(), kpi.ID, ownerID)
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestCreateActual_RequiresLockedGoals(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, Status: models.KpiStatusApproved}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)

	_, err := f.svc.CreateActual(context.Background(), ownerID, ActualInput{KpiID: kpi.ID, ActualValue: 3})
	assert.ErrorIs(t, err, ErrGoalsNotLocked)
}

func TestCreateActual_RejectsDuplicate(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, Status: models.KpiStatusLockedGoals}
	existing := &models.KpiActual{ID: uuid.New(), KpiID: kpi.ID}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.kpiRepo.On("GetActualByKpi", mock.Anything, kpi.ID).Return(existing, nil)

	_, err := f.svc.CreateActual(context.Background(), ownerID, ActualInput{KpiID: kpi.ID, ActualValue: 3})

	_, ok := AsValidationError(err)
	assert.True(t, ok)
	f.kpiRepo.AssertNotCalled(t, "CreateActual", mock.Anything, mock.Anything)
}

func TestCreateActual_FirstActualSucceeds(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	kpi := &models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, CycleID: uuid.New(), Status: models.KpiStatusLockedGoals}

	f.kpiRepo.On("GetKpiByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.kpiRepo.On("GetActualByKpi", mock.Anything, kpi.ID).Return(nil, repository.ErrNotFound)
	f.kpiRepo.On("CreateActual", mock.Anything, mock.AnythingOfType("*models.KpiActual")).Return(nil)

	actual, err := f.svc.CreateActual(context.Background(), ownerID, ActualInput{KpiID: kpi.ID, ActualValue: 4, SelfComment: "churn at 4%"})

	require.NoError(t, err)
	assert.Equal(t, models.ActualStatusDraft, actual.Status)
	assert.Equal(t, kpi.CycleID, actual.CycleID)
}

func TestGetScorecard_BlendsLockedActualsByWeight(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	cycleID := uuid.New()

	delivery := models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, CycleID: cycleID, Weight: 60, Status: models.KpiStatusLockedGoals}
	quality := models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, CycleID: cycleID, Weight: 40, Status: models.KpiStatusLockedGoals}
	shelved := models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, CycleID: cycleID, Weight: 30, Status: models.KpiStatusRejected}

	actuals := []models.KpiActual{
		{ID: uuid.New(), KpiID: delivery.ID, AchievementPct: 100, Status: models.ActualStatusLocked},
		{ID: uuid.New(), KpiID: quality.ID, AchievementPct: 50, Status: models.ActualStatusLocked},
	}

	f.kpiRepo.On("ListKpisByOwnerAndCycle", mock.Anything, ownerID, cycleID).
		Return([]models.KpiDefinition{delivery, quality, shelved}, nil)
	f.kpiRepo.On("ListActualsByOwnerAndCycle", mock.Anything, ownerID, cycleID).Return(actuals, nil)

	card, err := f.svc.GetScorecard(context.Background(), ownerID, cycleID)

	require.NoError(t, err)
	assert.Len(t, card.Entries, 2)
	assert.Equal(t, 80.0, card.WeightedScore)
}

func TestGetScorecard_UnlockedActualsExcludedFromScore(t *testing.T) {
	f := newKpiFixture()
	ownerID := uuid.New()
	cycleID := uuid.New()

	kpi := models.KpiDefinition{ID: uuid.New(), OwnerID: ownerID, CycleID: cycleID, Weight: 100, Status: models.KpiStatusLockedGoals}
	actuals := []models.KpiActual{
		{ID: uuid.New(), KpiID: kpi.ID, AchievementPct: 90, Status: models.ActualStatusWaitingManager},
	}

	f.kpiRepo.On("ListKpisByOwnerAndCycle", mock.Anything, ownerID, cycleID).
		Return([]models.KpiDefinition{kpi}, nil)
	f.kpiRepo.On("ListActualsByOwnerAndCycle", mock.Anything, ownerID, cycleID).Return(actuals, nil)

	card, err := f.svc.GetScorecard(context.Background(), ownerID, cycleID)

	require.NoError(t, err)
	assert.Equal(t, 0.0, card.WeightedScore)
	require.Len(t, card.Entries, 1)
	assert.NotNil(t, card.Entries[0].Actual)
}
