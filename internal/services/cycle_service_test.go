package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

type cycleFixture struct {
	svc       *CycleService
	cycleRepo *MockCycleRepository
	userRepo  *MockUserRepository
	kpiRepo   *MockKpiRepository
	tmplRepo  *MockTemplateRepository
	notifier  *MockNotifier
}

func newCycleFixture() *cycleFixture {
	f := &cycleFixture{
		cycleRepo: new(MockCycleRepository),
		userRepo:  new(MockUserRepository),
		kpiRepo:   new(MockKpiRepository),
		tmplRepo:  new(MockTemplateRepository),
		notifier:  new(MockNotifier),
	}
	logger := testLogger()
	kpis := NewKpiService(f.kpiRepo, f.cycleRepo, f.userRepo, f.tmplRepo, logger)
	f.svc = NewCycleService(f.cycleRepo, f.userRepo, kpis, nil, f.notifier, nil, logger)
	return f
}

func draftCycle() *models.Cycle {
	return &models.Cycle{
		ID:        uuid.New(),
		Name:      "FY26 H2",
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    models.CycleDraft,
		Version:   1,
	}
}

func TestCreateCycle_CollectsValidationReasons(t *testing.T) {
	f := newCycleFixture()

	_, err := f.svc.CreateCycle(context.Background(), CycleInput{
		Name:      "",
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Reasons, 2)
	f.cycleRepo.AssertNotCalled(t, "CreateCycle", mock.Anything, mock.Anything)
}

func TestActivateCycle_Success(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.cycleRepo.On("GetActiveCycle", mock.Anything).Return(nil, repository.ErrNotFound)
	f.cycleRepo.On("UpdateCycleStatus", mock.Anything, cycle, models.CycleActive, mock.Anything).Return(nil)

	activated, err := f.svc.ActivateCycle(context.Background(), cycle.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CycleActive, activated.Status)
}

func TestActivateCycle_RejectsSecondActiveCycle(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	other := draftCycle()
	other.Status = models.CycleActive

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.cycleRepo.On("GetActiveCycle", mock.Anything).Return(other, nil)

	_, err := f.svc.ActivateCycle(context.Background(), cycle.ID)

	assert.ErrorIs(t, err, ErrCycleConflict)
	f.cycleRepo.AssertNotCalled(t, "UpdateCycleStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateCycle_OnlyFromDraft(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleClosed

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.ActivateCycle(context.Background(), cycle.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLaunchCycle_FansOutTemplateAndNotifications(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive

	alice := models.User{ID: uuid.New(), Name: "Alice", Role: models.RoleStaff, IsActive: true}
	bob := models.User{ID: uuid.New(), Name: "Bob", Role: models.RoleStaff, IsActive: true}
	retired := models.User{ID: uuid.New(), Name: "Retired", Role: models.RoleStaff, IsActive: false}
	targetIDs := []uuid.UUID{alice.ID, bob.ID, retired.ID}

	items, err := json.Marshal([]models.TemplateItem{
		{Title: "Quarterly revenue", Type: models.KpiTypeQuantHigherBetter, SuggestedWeight: 100, SuggestedTarget: 50000},
	})
	require.NoError(t, err)
	template := &models.KpiTemplate{ID: uuid.New(), Name: "Sales Individual", Items: datatypes.JSON(items), IsActive: true}

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.userRepo.On("ListUsersByIDs", mock.Anything, targetIDs).Return([]models.User{alice, bob, retired}, nil)
	f.cycleRepo.On("UpdateCycleStatus", mock.Anything, cycle, models.CycleActive, mock.Anything).Return(nil)
	f.tmplRepo.On("GetTemplateByID", mock.Anything, template.ID).Return(template, nil)
	f.userRepo.On("GetUserByID", mock.Anything, alice.ID).Return(&alice, nil)
	f.userRepo.On("GetUserByID", mock.Anything, bob.ID).Return(&bob, nil)
	f.kpiRepo.On("CreateKpi", mock.Anything, mock.AnythingOfType("*models.KpiDefinition")).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, alice.ID, models.NotifCycleOpened, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, bob.ID, models.NotifCycleOpened, mock.Anything, mock.Anything).Return(nil)

	launched, err := f.svc.LaunchCycle(context.Background(), cycle.ID, &template.ID, targetIDs)

	require.NoError(t, err)
	assert.NotNil(t, launched.LaunchedAt)
	assert.Len(t, launched.TargetUserIDs, 2)
	f.kpiRepo.AssertNumberOfCalls(t, "CreateKpi", 2)
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, retired.ID, mock.Anything, mock.Anything, mock.Anything)
}

func TestLaunchCycle_SecondLaunchRejected(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive
	launchedAt := time.Now().Add(-time.Hour)
	cycle.LaunchedAt = &launchedAt

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.LaunchCycle(context.Background(), cycle.ID, nil, nil)

	_, ok := AsValidationError(err)
	assert.True(t, ok)
	f.cycleRepo.AssertNotCalled(t, "UpdateCycleStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLaunchCycle_RequiresActiveCycle(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.LaunchCycle(context.Background(), cycle.ID, nil, nil)
	assert.ErrorIs(t, err, ErrCycleNotActive)
}

func TestCloseCycle_NotifiesLaunchAudience(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive
	audience := []uuid.UUID{uuid.New(), uuid.New()}
	cycle.TargetUserIDs = []string{audience[0].String(), audience[1].String()}

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.cycleRepo.On("UpdateCycleStatus", mock.Anything, cycle, models.CycleClosed, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, audience[0], models.NotifCycleClosed, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, audience[1], models.NotifCycleClosed, mock.Anything, mock.Anything).Return(nil)

	closed, err := f.svc.CloseCycle(context.Background(), cycle.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CycleClosed, closed.Status)
	f.notifier.AssertExpectations(t)
}

func TestCloseCycle_OnlyFromActive(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.CloseCycle(context.Background(), cycle.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestArchiveCycle_Transitions(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleClosed

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.cycleRepo.On("UpdateCycleStatus", mock.Anything, cycle, models.CycleArchived, mock.Anything).Return(nil)

	archived, err := f.svc.ArchiveCycle(context.Background(), cycle.ID)

	require.NoError(t, err)
	assert.Equal(t, models.CycleArchived, archived.Status)
}

func TestArchiveCycle_OnlyFromClosed(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.ArchiveCycle(context.Background(), cycle.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetActiveCycle_FallsThroughToDatabase(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive

	f.cycleRepo.On("GetActiveCycle", mock.Anything).Return(cycle, nil)

	got, err := f.svc.GetActiveCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, cycle.ID, got.ID)
}

func TestGetActiveCycle_NoneActive(t *testing.T) {
	f := newCycleFixture()

	f.cycleRepo.On("GetActiveCycle", mock.Anything).Return(nil, repository.ErrNotFound)

	_, err := f.svc.GetActiveCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleNotFound)
}

func TestUpdateCycle_OnlyDraftEditable(t *testing.T) {
	f := newCycleFixture()
	cycle := draftCycle()
	cycle.Status = models.CycleActive

	f.cycleRepo.On("GetCycleByID", mock.Anything, cycle.ID).Return(cycle, nil)

	_, err := f.svc.UpdateCycle(context.Background(), cycle.ID, CycleInput{
		Name:      "Renamed",
		StartDate: cycle.StartDate,
		EndDate:   cycle.EndDate,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
