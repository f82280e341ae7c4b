package engine

import (
	"context"
	"time"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

// Adapter is the external download engine abstraction. It performs one
// download, reporting progress percentages through the callback, and
// returns the exact output path it produced. Implementations must observe
// ctx cancellation at their next checkpoint.
type Adapter interface {
	Name() string
	Health(ctx context.Context) HealthStatus
	Download(ctx context.Context, req Request, progress ProgressFunc) (Result, error)
}

// ProgressFunc receives download progress in percent, 0 to 100.
type ProgressFunc func(percent float64)

type Request struct {
	JobID       string
	URL         string
	Type        job.MediaType
	Quality     string
	CookiesFile string // optional scratch file holding a cookie blob
	OutputDir   string
	MaxBytes    int64 // 0 means unlimited
}

// Result carries the adapter-reported output path. The orchestrator
// relies on this instead of re-scanning the output directory, so a
// concurrent listing can never race file discovery.
type Result struct {
	FilePath string
}

type HealthStatus struct {
	OK      bool
	Message string
	Latency time.Duration
}
