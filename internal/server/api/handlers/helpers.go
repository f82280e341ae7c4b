package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/server/api/response"
)

// writeError maps domain errors onto HTTP statuses. Unmapped errors
// become an opaque 500; the cause goes to the server log only, since
// raw error strings can carry filesystem paths.
func writeError(c echo.Context, err error) error {
	var verr *security.ValidationError

	switch {
	case errors.As(err, &verr):
		return response.Error(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, security.ErrRateLimited):
		return response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.Is(err, security.ErrPathTraversal):
		return response.Error(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, store.ErrNotFound):
		return response.Error(c, http.StatusNotFound, "Job not found")
	case errors.Is(err, orchestrator.ErrNotRetryable):
		return response.Error(c, http.StatusConflict, "Job cannot be retried")
	case errors.Is(err, orchestrator.ErrLowDisk):
		return response.Error(c, http.StatusServiceUnavailable, "Server storage is full. Please try again later.")
	case errors.Is(err, orchestrator.ErrQueueFull):
		return response.Error(c, http.StatusServiceUnavailable, "Server is at capacity. Please try again later.")
	default:
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		return response.Error(c, http.StatusInternalServerError, "Internal server error. Please try again.")
	}
}
