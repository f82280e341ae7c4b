package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/LegendarySumit/MediaDL/internal/core/engine"
	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

// Engine drives the yt-dlp binary. One invocation per download; progress
// is parsed from the process output and the final output path is printed
// by yt-dlp itself, so no directory scanning is needed.
type Engine struct {
	binary string
}

func New(binary string) *Engine {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Engine{binary: binary}
}

func (e *Engine) Name() string { return "ytdlp" }

// Init verifies the binary is available.
func (e *Engine) Init() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("yt-dlp binary not found: %w", err)
	}
	return nil
}

func (e *Engine) Health(ctx context.Context) engine.HealthStatus {
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.binary, "--version")
	out, err := cmd.Output()
	latency := time.Since(start)
	if err != nil {
		return engine.HealthStatus{OK: false, Message: err.Error(), Latency: latency}
	}
	version := string(out)
	if n := len(version); n > 0 && version[n-1] == '\n' {
		version = version[:n-1]
	}
	return engine.HealthStatus{
		OK:      true,
		Message: "yt-dlp " + version,
		Latency: latency,
	}
}

func (e *Engine) Download(ctx context.Context, req engine.Request, progress engine.ProgressFunc) (engine.Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return engine.Result{}, fmt.Errorf("create output dir: %w", err)
	}
	return runDownload(ctx, e.binary, req, progress)
}

func buildArgs(req engine.Request) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-warnings",
		"--no-part",
		"--force-overwrites",
		"--no-playlist",
		"--no-simulate",
		"--print", "after_move:filepath",
	}

	switch req.Type {
	case job.TypeAudio:
		args = append(args,
			"-f", "ba[ext=m4a]/ba/b",
			"-x",
			"--audio-quality", req.Quality+"K",
			"-o", "audio_%(id)s.%(ext)s",
		)
	default:
		args = append(args,
			"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/(bv*+ba/b)",
			"-S", "res:"+req.Quality,
			"-o", "video_%(id)s.%(ext)s",
		)
	}

	if req.MaxBytes > 0 {
		args = append(args, "--max-filesize", fmt.Sprintf("%d", req.MaxBytes))
	}
	if req.CookiesFile != "" {
		args = append(args, "--cookies", req.CookiesFile)
	}

	args = append(args, "-P", req.OutputDir, req.URL)
	return args
}
