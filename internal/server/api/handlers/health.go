package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/LegendarySumit/MediaDL/internal/core/cleanup"
	"github.com/LegendarySumit/MediaDL/internal/core/engine"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/server/api/response"
)

type HealthHandler struct {
	store   store.Store
	adapter engine.Adapter
	sweeper *cleanup.Sweeper
}

func NewHealthHandler(st store.Store, adapter engine.Adapter, sweeper *cleanup.Sweeper) *HealthHandler {
	return &HealthHandler{store: st, adapter: adapter, sweeper: sweeper}
}

// Live answers even when the store or engine is down.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports store, disk and engine detail.
func (h *HealthHandler) Status(c echo.Context) error {
	out := map[string]any{"status": "ok"}

	if count, err := h.store.Count(c.Request().Context()); err == nil {
		out["jobs"] = count
	} else {
		out["status"] = "degraded"
		out["store_error"] = err.Error()
	}

	if disk, err := h.sweeper.StorageStats(); err == nil {
		out["disk"] = disk
		out["accepting_jobs"] = h.sweeper.AcceptingNewJobs()
	}

	eng := h.adapter.Health(c.Request().Context())
	out["engine"] = map[string]any{
		"name":       h.adapter.Name(),
		"ok":         eng.OK,
		"message":    eng.Message,
		"latency_ms": eng.Latency.Milliseconds(),
	}
	if !eng.OK {
		out["status"] = "degraded"
	}

	return c.JSON(http.StatusOK, out)
}

// Cleanup triggers a sweep outside the schedule.
func (h *HealthHandler) Cleanup(c echo.Context) error {
	res, err := h.sweeper.SweepNow(c.Request().Context())
	if err != nil {
		if errors.Is(err, cleanup.ErrSweepRunning) {
			return response.Error(c, http.StatusConflict, "Cleanup already in progress")
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
