package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/server/api/response"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type HistoryHandler struct {
	store store.Store
	orch  *orchestrator.Orchestrator
}

func NewHistoryHandler(st store.Store, orch *orchestrator.Orchestrator) *HistoryHandler {
	return &HistoryHandler{store: st, orch: orch}
}

func historyLimit(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// List returns recent jobs, newest first.
func (h *HistoryHandler) List(c echo.Context) error {
	jobs, err := h.store.List(c.Request().Context(), store.Filter{Limit: historyLimit(c)})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, response.NewJobViews(jobs))
}

func (h *HistoryHandler) Get(c echo.Context) error {
	j, err := h.store.Get(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, response.NewJobView(j))
}

func (h *HistoryHandler) ByStatus(c echo.Context) error {
	status := job.Status(c.Param("status"))
	if !status.Valid() {
		return response.Error(c, http.StatusBadRequest, "Invalid status")
	}

	jobs, err := h.store.List(c.Request().Context(), store.Filter{
		Status: status,
		Limit:  historyLimit(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, response.NewJobViews(jobs))
}

func (h *HistoryHandler) ByPlatform(c echo.Context) error {
	jobs, err := h.store.List(c.Request().Context(), store.Filter{
		Platform: job.Platform(c.Param("platform")),
		Limit:    historyLimit(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, response.NewJobViews(jobs))
}

// Retry launches a fresh job re-running a failed one.
func (h *HistoryHandler) Retry(c echo.Context) error {
	srcID := c.Param("job_id")

	id, err := h.orch.Retry(c.Request().Context(), srcID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"job_id":   id,
		"retry_of": srcID,
		"status":   string(job.StatusQueued),
	})
}

// StatsOverview aggregates job counts by status, platform and type.
func (h *HistoryHandler) StatsOverview(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
