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

func newUserService() (*UserService, *MockUserRepository) {
	repo := new(MockUserRepository)
	return NewUserService(repo, testLogger()), repo
}

func TestCreateUser_Succeeds(t *testing.T) {
	svc, repo := newUserService()

	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(nil, repository.ErrNotFound)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	user, err := svc.CreateUser(context.Background(), UserInput{
		Email: "ana@example.com",
		Name:  "Ana",
		Role:  "line_manager",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RoleLineManager, user.Role)
	assert.True(t, user.IsActive)
}

func TestCreateUser_LegacyRoleRejected(t *testing.T) {
	svc, repo := newUserService()

	for _, legacy := range []string{"HR", "HEAD_OF_DEPT", "BOD"} {
		_, err := svc.CreateUser(context.Background(), UserInput{
			Email: "x@example.com",
			Name:  "X",
			Role:  legacy,
		})

		ve, ok := AsValidationError(err)
		require.True(t, ok, "role %s should fail validation", legacy)
		assert.Contains(t, ve.Error(), "no longer supported")
	}
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUser_DuplicateEmailRejected(t *testing.T) {
	svc, repo := newUserService()
	existing := &models.User{ID: uuid.New(), Email: "taken@example.com"}

	repo.On("GetUserByEmail", mock.Anything, "taken@example.com").Return(existing, nil)

	_, err := svc.CreateUser(context.Background(), UserInput{
		Email: "taken@example.com",
		Name:  "Dup",
		Role:  "STAFF",
	})

	_, ok := AsValidationError(err)
	assert.True(t, ok)
}

func TestCreateUser_MissingManagerRejected(t *testing.T) {
	svc, repo := newUserService()
	ghostID := uuid.New()

	repo.On("GetUserByID", mock.Anything, ghostID).Return(nil, repository.ErrNotFound)

	_, err := svc.CreateUser(context.Background(), UserInput{
		Email:     "new@example.com",
		Name:      "New",
		Role:      "STAFF",
		ManagerID: &ghostID,
	})

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Error(), "manager does not exist")
}

func TestUpdateUser_SelfManagerRejected(t *testing.T) {
	svc, repo := newUserService()
	user := &models.User{ID: uuid.New(), Email: "self@example.com", Name: "Self", Role: models.RoleStaff, IsActive: true}

	repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

	_, err := svc.UpdateUser(context.Background(), user.ID, UserInput{
		Email:     user.Email,
		Name:      user.Name,
		Role:      "STAFF",
		ManagerID: &user.ID,
	})

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Error(), "own manager")
}

func TestListTeam_FiltersActiveDirectReports(t *testing.T) {
	svc, repo := newUserService()
	managerID := uuid.New()
	otherID := uuid.New()

	users := []models.User{
		{ID: uuid.New(), Name: "Report A", ManagerID: &managerID, IsActive: true},
		{ID: uuid.New(), Name: "Report B", ManagerID: &managerID, IsActive: false},
		{ID: uuid.New(), Name: "Someone else", ManagerID: &otherID, IsActive: true},
		{ID: uuid.New(), Name: "No manager", IsActive: true},
	}
	repo.On("ListUsers", mock.Anything, 10000, 0).Return(users, int64(len(users)), nil)

	team, err := svc.ListTeam(context.Background(), managerID)

	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, "Report A", team[0].Name)
}

func TestUpdateOrgUnit_SelfParentRejected(t *testing.T) {
	svc, repo := newUserService()
	unit := &models.OrgUnit{ID: uuid.New(), Name: "Engineering"}

	repo.On("GetOrgUnitByID", mock.Anything, unit.ID).Return(unit, nil)

	_, err := svc.UpdateOrgUnit(context.Background(), unit.ID, "Engineering", &unit.ID)

	_, ok := AsValidationError(err)
	assert.True(t, ok)
}

func TestCreateOrgUnit_MissingParentRejected(t *testing.T) {
	svc, repo := newUserService()
	ghostID := uuid.New()

	repo.On("GetOrgUnitByID", mock.Anything, ghostID).Return(nil, repository.ErrNotFound)

	_, err := svc.CreateOrgUnit(context.Background(), "Sub team", &ghostID)
	assert.ErrorIs(t, err, ErrOrgUnitNotFound)
}
