package services

import (
	"errors"
	"strings"
)

// Sentinel errors for expected business-rule violations. Handlers map these
// to HTTP statuses; anything else is treated as an infrastructure failure.
var (
	ErrKpiNotFound           = errors.New("kpi not found")
	ErrActualNotFound        = errors.New("actual not found")
	ErrApprovalNotFound      = errors.New("approval not found")
	ErrCycleNotFound         = errors.New("cycle not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrOrgUnitNotFound       = errors.New("org unit not found")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrChangeRequestNotFound = errors.New("change request not found")
	ErrNotificationNotFound  = errors.New("notification not found")

	ErrNotOwner          = errors.New("caller does not own this entity")
	ErrNotEditable       = errors.New("entity can no longer be edited")
	ErrNotSubmittable    = errors.New("entity is not in a submittable state")
	ErrNotYourApproval   = errors.New("caller is not the designated approver for this step")
	ErrAlreadyDecided    = errors.New("approval has already been decided")
	ErrNoApprover        = errors.New("no approver could be resolved from the manager chain")
	ErrInvalidDecision   = errors.New("decision must be APPROVE or REJECT")
	ErrGoalsNotLocked    = errors.New("actuals require the parent KPI to be in LOCKED_GOALS")
	ErrCycleNotActive    = errors.New("cycle is not active")
	ErrCycleConflict     = errors.New("another cycle is already active")
	ErrInvalidTransition = errors.New("invalid cycle status transition")
	ErrAdminOnly         = errors.New("operation requires the ADMIN role")
)

// ValidationError carries every violated field/weight rule from a submit
// precondition check so the caller can render the full list at once.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// AsValidationError unwraps a ValidationError if err is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
