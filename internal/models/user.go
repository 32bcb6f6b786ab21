package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of roles a user can hold. Legacy role values that
// survive in old exports (HR, HEAD_OF_DEPT, BOD) are rejected at the
// data-access boundary by ParseRole instead of being propagated.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleStaff       Role = "STAFF"
	RoleLineManager Role = "LINE_MANAGER"
	RoleManager     Role = "MANAGER"
)

var legacyRoles = map[string]bool{
	"HR":           true,
	"HEAD_OF_DEPT": true,
	"BOD":          true,
}

// ParseRole validates a raw role string against the canonical enum.
func ParseRole(raw string) (Role, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch Role(value) {
	case RoleAdmin, RoleStaff, RoleLineManager, RoleManager:
		return Role(value), nil
	}
	if legacyRoles[value] {
		return "", fmt.Errorf("legacy role %q is no longer supported and must be migrated", value)
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// User is a staff member. ManagerID is the single upward link used to
// resolve the level-1 approver; the level-2 approver is the manager's own
// manager.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Role      Role           `gorm:"type:varchar(30);not null;default:'STAFF';index" json:"role"`
	ManagerID *uuid.UUID     `gorm:"type:uuid;index" json:"managerId,omitempty"`
	OrgUnitID *uuid.UUID     `gorm:"type:uuid;index" json:"orgUnitId,omitempty"`
	IsActive  bool           `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// OrgUnit is an organizational unit users belong to.
type OrgUnit struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	ParentID  *uuid.UUID     `gorm:"type:uuid;index" json:"parentId,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for OrgUnit
func (OrgUnit) TableName() string {
	return "org_units"
}
