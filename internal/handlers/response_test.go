package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-service/internal/repository"
	"kpi-service/internal/services"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "kpi not found", err: services.ErrKpiNotFound, wantStatus: http.StatusNotFound},
		{name: "cycle not found", err: services.ErrCycleNotFound, wantStatus: http.StatusNotFound},
		{name: "not owner", err: services.ErrNotOwner, wantStatus: http.StatusForbidden},
		{name: "not your approval", err: services.ErrNotYourApproval, wantStatus: http.StatusForbidden},
		{name: "admin only", err: services.ErrAdminOnly, wantStatus: http.StatusForbidden},
		{name: "already decided", err: services.ErrAlreadyDecided, wantStatus: http.StatusConflict},
		{name: "cycle conflict", err: services.ErrCycleConflict, wantStatus: http.StatusConflict},
		{name: "version conflict", err: repository.ErrVersionConflict, wantStatus: http.StatusConflict},
		{name: "not submittable", err: services.ErrNotSubmittable, wantStatus: http.StatusBadRequest},
		{name: "goals not locked", err: services.ErrGoalsNotLocked, wantStatus: http.StatusBadRequest},
		{name: "no approver", err: services.ErrNoApprover, wantStatus: http.StatusBadRequest},
		{name: "unknown error opaque", err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRespondError_ValidationErrorCarriesReasons(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, &services.ValidationError{Reasons: []string{"title is required", "weight must be positive"}})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Len(t, body.Errors, 2)
}

func TestRespondError_InternalErrorsAreOpaque(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("dial tcp 10.0.0.5:5432: i/o timeout"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}
