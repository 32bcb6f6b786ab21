package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kpi-service/internal/models"
)

// UserRepositoryInterface abstracts user and org-unit persistence.
type UserRepositoryInterface interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListUsersByOrgUnit(ctx context.Context, orgUnitID uuid.UUID) ([]models.User, error)
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)

	CreateOrgUnit(ctx context.Context, unit *models.OrgUnit) error
	GetOrgUnitByID(ctx context.Context, id uuid.UUID) (*models.OrgUnit, error)
	UpdateOrgUnit(ctx context.Context, unit *models.OrgUnit) error
	DeleteOrgUnit(ctx context.Context, id uuid.UUID) error
	ListOrgUnits(ctx context.Context) ([]models.OrgUnit, error)
}

// UserRepository handles database operations for users and org units
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser saves changes to a user
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).
		Model(user).
		Select("email", "name", "role", "manager_id", "org_unit_id", "is_active", "updated_at").
		Updates(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser soft-deletes a user
func (r *UserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers retrieves users with pagination
func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, total, err
}

// ListUsersByRole retrieves all active users holding a role
func (r *UserRepository) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = true", role).
		Find(&users).Error
	return users, err
}

// ListUsersByOrgUnit retrieves all active users in an org unit
func (r *UserRepository) ListUsersByOrgUnit(ctx context.Context, orgUnitID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("org_unit_id = ? AND is_active = true", orgUnitID).
		Find(&users).Error
	return users, err
}

// ListUsersByIDs retrieves users by explicit ID list
func (r *UserRepository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}

// --- Org unit methods ---

// CreateOrgUnit creates a new org unit
func (r *UserRepository) CreateOrgUnit(ctx context.Context, unit *models.OrgUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

// GetOrgUnitByID retrieves an org unit by ID
func (r *UserRepository) GetOrgUnitByID(ctx context.Context, id uuid.UUID) (*models.OrgUnit, error) {
	var unit models.OrgUnit
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// UpdateOrgUnit saves changes to an org unit
func (r *UserRepository) UpdateOrgUnit(ctx context.Context, unit *models.OrgUnit) error {
	result := r.db.WithContext(ctx).
		Model(unit).
		Select("name", "parent_id", "updated_at").
		Updates(unit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrgUnit soft-deletes an org unit
func (r *UserRepository) DeleteOrgUnit(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OrgUnit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrgUnits retrieves all org units
func (r *UserRepository) ListOrgUnits(ctx context.Context) ([]models.OrgUnit, error) {
	var units []models.OrgUnit
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&units).Error
	return units, err
}
