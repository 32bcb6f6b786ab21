package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kpi-service/internal/repository"
	"kpi-service/internal/services"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// PagedData wraps list payloads with a total count.
type PagedData struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: true, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
}

// respondError maps service sentinel errors to HTTP statuses. Unknown errors
// become an opaque 500 so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Message: "Validation failed",
			Errors:  ve.Reasons,
		})
		return
	}

	var status int
	switch {
	case errors.Is(err, services.ErrKpiNotFound),
		errors.Is(err, services.ErrActualNotFound),
		errors.Is(err, services.ErrApprovalNotFound),
		errors.Is(err, services.ErrCycleNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrOrgUnitNotFound),
		errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrChangeRequestNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		status = http.StatusNotFound

	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotYourApproval),
		errors.Is(err, services.ErrAdminOnly):
		status = http.StatusForbidden

	case errors.Is(err, services.ErrAlreadyDecided),
		errors.Is(err, services.ErrCycleConflict),
		errors.Is(err, repository.ErrVersionConflict):
		status = http.StatusConflict

	case errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrNotSubmittable),
		errors.Is(err, services.ErrInvalidDecision),
		errors.Is(err, services.ErrGoalsNotLocked),
		errors.Is(err, services.ErrCycleNotActive),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNoApprover):
		status = http.StatusBadRequest

	default:
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Internal server error",
		})
		return
	}

	c.JSON(status, Response{Success: false, Message: err.Error()})
}
