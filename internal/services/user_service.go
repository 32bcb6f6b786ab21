package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// UserInput carries the admin-editable fields of a user. Role arrives as a
// raw string and is validated against the closed enum before any write.
type UserInput struct {
	Email     string
	Name      string
	Role      string
	ManagerID *uuid.UUID
	OrgUnitID *uuid.UUID
	IsActive  *bool
}

// UserService manages the user directory and org units the approver chain is
// resolved from.
type UserService struct {
	userRepo repository.UserRepositoryInterface
	logger   *logrus.Entry
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepositoryInterface, logger *logrus.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.WithField("component", "user_service"),
	}
}

func (s *UserService) validateInput(ctx context.Context, in UserInput, selfID *uuid.UUID) (models.Role, error) {
	var reasons []string
	if in.Email == "" {
		reasons = append(reasons, "email is required")
	}
	if in.Name == "" {
		reasons = append(reasons, "name is required")
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		reasons = append(reasons, err.Error())
	}

	if in.ManagerID != nil {
		if selfID != nil && *in.ManagerID == *selfID {
			reasons = append(reasons, "a user cannot be their own manager")
		} else if _, err := s.userRepo.GetUserByID(ctx, *in.ManagerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				reasons = append(reasons, "manager does not exist")
			} else {
				return "", err
			}
		}
	}

	if in.OrgUnitID != nil {
		if _, err := s.userRepo.GetOrgUnitByID(ctx, *in.OrgUnitID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				reasons = append(reasons, "org unit does not exist")
			} else {
				return "", err
			}
		}
	}

	if len(reasons) > 0 {
		return "", &ValidationError{Reasons: reasons}
	}
	return role, nil
}

// CreateUser creates a user after validating its role and manager link.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	role, err := s.validateInput(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, &ValidationError{Reasons: []string{"email is already in use"}}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Email:     in.Email,
		Name:      in.Name,
		Role:      role,
		ManagerID: in.ManagerID,
		OrgUnitID: in.OrgUnitID,
		IsActive:  true,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"userId": user.ID,
		"role":   user.Role,
	}).Info("User created")
	return user, nil
}

// GetUser retrieves one user.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ListUsers retrieves users with pagination.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.userRepo.ListUsers(ctx, limit, offset)
}

// UpdateUser saves admin edits to a user, revalidating the role and the
// manager link.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, in UserInput) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	role, err := s.validateInput(ctx, in, &id)
	if err != nil {
		return nil, err
	}

	user.Email = in.Email
	user.Name = in.Name
	user.Role = role
	user.ManagerID = in.ManagerID
	user.OrgUnitID = in.OrgUnitID
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes a user. Pending approvals addressed to them must
// be reassigned by an admin; the escalation sweep will surface any leftovers.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.userRepo.DeleteUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ListTeam retrieves the active direct reports of a manager.
func (s *UserService) ListTeam(ctx context.Context, managerID uuid.UUID) ([]models.User, error) {
	users, _, err := s.userRepo.ListUsers(ctx, 10000, 0)
	if err != nil {
		return nil, err
	}
	var team []models.User
	for _, u := range users {
		if u.ManagerID != nil && *u.ManagerID == managerID && u.IsActive {
			team = append(team, u)
		}
	}
	return team, nil
}

// --- Org units ---

// CreateOrgUnit creates an org unit, optionally under a parent.
func (s *UserService) CreateOrgUnit(ctx context.Context, name string, parentID *uuid.UUID) (*models.OrgUnit, error) {
	if name == "" {
		return nil, &ValidationError{Reasons: []string{"name is required"}}
	}
	if parentID != nil {
		if _, err := s.userRepo.GetOrgUnitByID(ctx, *parentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrOrgUnitNotFound
			}
			return nil, err
		}
	}

	unit := &models.OrgUnit{Name: name, ParentID: parentID}
	if err := s.userRepo.CreateOrgUnit(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetOrgUnit retrieves one org unit.
func (s *UserService) GetOrgUnit(ctx context.Context, id uuid.UUID) (*models.OrgUnit, error) {
	unit, err := s.userRepo.GetOrgUnitByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrgUnitNotFound
	}
	return unit, err
}

// ListOrgUnits retrieves all org units.
func (s *UserService) ListOrgUnits(ctx context.Context) ([]models.OrgUnit, error) {
	return s.userRepo.ListOrgUnits(ctx)
}

// UpdateOrgUnit renames or reparents an org unit.
func (s *UserService) UpdateOrgUnit(ctx context.Context, id uuid.UUID, name string, parentID *uuid.UUID) (*models.OrgUnit, error) {
	unit, err := s.userRepo.GetOrgUnitByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrgUnitNotFound
		}
		return nil, err
	}
	if name == "" {
		return nil, &ValidationError{Reasons: []string{"name is required"}}
	}
	if parentID != nil && *parentID == id {
		return nil, &ValidationError{Reasons: []string{"an org unit cannot be its own parent"}}
	}

	unit.Name = name
	unit.ParentID = parentID
	if err := s.userRepo.UpdateOrgUnit(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// DeleteOrgUnit soft-deletes an org unit. Members keep their unit reference
// until reassigned.
func (s *UserService) DeleteOrgUnit(ctx context.Context, id uuid.UUID) error {
	err := s.userRepo.DeleteOrgUnit(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrgUnitNotFound
	}
	return err
}

// ListUsersByOrgUnit retrieves active members of an org unit.
func (s *UserService) ListUsersByOrgUnit(ctx context.Context, orgUnitID uuid.UUID) ([]models.User, error) {
	return s.userRepo.ListUsersByOrgUnit(ctx, orgUnitID)
}
