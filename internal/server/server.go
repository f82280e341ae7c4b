package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/config"
	"github.com/LegendarySumit/MediaDL/internal/core/cleanup"
	"github.com/LegendarySumit/MediaDL/internal/core/engine/ytdlp"
	"github.com/LegendarySumit/MediaDL/internal/core/event"
	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/storage"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/core/stream"
	"github.com/LegendarySumit/MediaDL/internal/server/api"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
		return fmt.Errorf("download dir: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, cfg.JobTTL())
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()

	validator := security.NewValidator()
	paths, err := security.NewPathValidator(cfg.Download.Dir)
	if err != nil {
		return fmt.Errorf("path validator: %w", err)
	}

	limiter := security.NewRateLimiter(time.Minute, map[security.Class]int{
		security.ClassVideo:   cfg.Limits.VideoPerMinute,
		security.ClassAudio:   cfg.Limits.AudioPerMinute,
		security.ClassDefault: cfg.Limits.DefaultPerMinute,
	})

	eng := ytdlp.New(cfg.Engine.Binary)
	if err := eng.Init(); err != nil {
		return fmt.Errorf("yt-dlp engine init: %w", err)
	}
	log.Info().Str("binary", cfg.Engine.Binary).Msg("yt-dlp engine ready")

	bus := event.NewBus()
	files := storage.NewProvider(cfg.Download.Dir)

	sweeper := cleanup.New(st, files, paths, bus, cleanup.Config{
		Interval:   cfg.CleanupInterval(),
		MaxFileAge: cfg.CleanupAge(),
		JobTTL:     cfg.JobTTL(),
		MinFree:    cfg.MinDiskFreeBytes(),
	})

	orch := orchestrator.New(st, eng, validator, paths, files, bus, sweeper, orchestrator.Config{
		DownloadDir:         cfg.Download.Dir,
		MaxBytes:            cfg.MaxDownloadBytes(),
		DefaultVideoQuality: cfg.Download.VideoQuality,
		DefaultAudioQuality: cfg.Download.AudioQuality,
		MaxRetries:          cfg.Retry.Max,
		MaxConcurrent:       cfg.Download.MaxConcurrent,
		MaxQueue:            cfg.Download.MaxQueue,
	})

	streamer := stream.New(st, stream.Config{
		PollInterval: cfg.PollInterval(),
		StuckTimeout: cfg.StuckTimeout(),
		MaxDuration:  cfg.StreamMaxDuration(),
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	go limiter.Run(bgCtx)
	go sweeper.Run(bgCtx)

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		Store:    st,
		Orch:     orch,
		Streamer: streamer,
		Limiter:  limiter,
		Paths:    paths,
		Files:    files,
		Adapter:  eng,
		Sweeper:  sweeper,
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bgCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	orch.Wait()
	return nil
}
