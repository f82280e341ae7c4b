package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
)

func callWriteError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, writeError(e.NewContext(req, rec), err))
	return rec
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &security.ValidationError{Field: "url", Reason: "URL is required"}, http.StatusBadRequest},
		{"rate limited", security.ErrRateLimited, http.StatusTooManyRequests},
		{"traversal", security.ErrPathTraversal, http.StatusForbidden},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"not retryable", orchestrator.ErrNotRetryable, http.StatusConflict},
		{"low disk", orchestrator.ErrLowDisk, http.StatusServiceUnavailable},
		{"queue full", orchestrator.ErrQueueFull, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callWriteError(t, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	cause := fmt.Errorf("open job store: %w", errors.New("read /data/mediadl/jobs/MANIFEST: permission denied"))
	rec := callWriteError(t, cause)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "/data/mediadl")
	assert.NotContains(t, rec.Body.String(), "permission denied")
}
