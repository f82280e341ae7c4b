package api

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/LegendarySumit/MediaDL/internal/core/cleanup"
	"github.com/LegendarySumit/MediaDL/internal/core/engine"
	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/storage"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/core/stream"
	"github.com/LegendarySumit/MediaDL/internal/server/api/handlers"
	"github.com/LegendarySumit/MediaDL/internal/server/api/middleware"
)

type RouterConfig struct {
	Store    store.Store
	Orch     *orchestrator.Orchestrator
	Streamer *stream.Streamer
	Limiter  *security.RateLimiter
	Paths    *security.PathValidator
	Files    *storage.Provider
	Adapter  engine.Adapter
	Sweeper  *cleanup.Sweeper
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE"},
	}))

	downloads := handlers.NewDownloadHandler(cfg.Orch, cfg.Streamer, cfg.Store, cfg.Paths, cfg.Files)
	history := handlers.NewHistoryHandler(cfg.Store, cfg.Orch)
	health := handlers.NewHealthHandler(cfg.Store, cfg.Adapter, cfg.Sweeper)

	videoLimit := middleware.RateLimit(cfg.Limiter, security.ClassVideo)
	audioLimit := middleware.RateLimit(cfg.Limiter, security.ClassAudio)
	defaultLimit := middleware.RateLimit(cfg.Limiter, security.ClassDefault)

	e.POST("/start/video", downloads.StartVideo, videoLimit)
	e.POST("/start/audio", downloads.StartAudio, audioLimit)
	e.GET("/progress/:job_id", downloads.Progress)
	e.GET("/download/:job_id", downloads.File, defaultLimit)

	api := e.Group("/api")
	api.GET("/history", history.List)
	api.GET("/history/stats/overview", history.StatsOverview)
	api.GET("/history/status/:status", history.ByStatus)
	api.GET("/history/platform/:platform", history.ByPlatform)
	api.GET("/history/:job_id", history.Get)
	api.POST("/history/:job_id/retry", history.Retry, defaultLimit)
	api.DELETE("/job/:job_id", downloads.Delete)

	e.GET("/health", health.Live)
	e.GET("/health/status", health.Status)
	e.POST("/cleanup", health.Cleanup)
}
