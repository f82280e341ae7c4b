package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/engine"
	"github.com/LegendarySumit/MediaDL/internal/core/event"
	"github.com/LegendarySumit/MediaDL/internal/core/job"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/storage"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
)

var (
	// ErrNotRetryable is returned when retrying a job that is not in the
	// error state. Cancelled jobs are deliberately not retryable.
	ErrNotRetryable = errors.New("job is not retryable")

	// ErrLowDisk rejects new jobs while free disk space is below the
	// configured floor.
	ErrLowDisk = errors.New("not accepting new jobs: low disk space")

	// ErrQueueFull rejects new jobs while the number of queued plus
	// running jobs is at the configured ceiling.
	ErrQueueFull = errors.New("not accepting new jobs: queue is full")
)

// Gate lets the cleanup scheduler pause acceptance of new jobs.
type Gate interface {
	AcceptingNewJobs() bool
}

type Config struct {
	DownloadDir         string
	MaxBytes            int64
	DefaultVideoQuality string
	DefaultAudioQuality string
	MaxRetries          int
	MaxConcurrent       int // simultaneous downloads; 0 means unbounded
	MaxQueue            int // queued+running ceiling; 0 means unbounded
}

// Orchestrator owns the job lifecycle: it is the only writer of job
// status, progress and file fields. Each started job gets one background
// task driving the adapter; every other component reads the store.
type Orchestrator struct {
	store     store.Store
	adapter   engine.Adapter
	validator *security.Validator
	paths     *security.PathValidator
	files     *storage.Provider
	bus       event.Bus
	gate      Gate
	cfg       Config

	// slots caps simultaneous adapter invocations. Jobs past the cap
	// stay queued until a slot frees up.
	slots chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	tasks   sync.WaitGroup
}

func New(
	st store.Store,
	adapter engine.Adapter,
	validator *security.Validator,
	paths *security.PathValidator,
	files *storage.Provider,
	bus event.Bus,
	gate Gate,
	cfg Config,
) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		adapter:   adapter,
		validator: validator,
		paths:     paths,
		files:     files,
		bus:       bus,
		gate:      gate,
		cfg:       cfg,
		cancels:   make(map[string]context.CancelFunc),
	}
	if cfg.MaxConcurrent > 0 {
		o.slots = make(chan struct{}, cfg.MaxConcurrent)
	}
	return o
}

// StartVideo validates the request and launches a video download job.
func (o *Orchestrator) StartVideo(ctx context.Context, url, quality, cookies, clientIP string) (string, error) {
	if quality == "" {
		quality = o.cfg.DefaultVideoQuality
	}
	return o.start(ctx, job.TypeVideo, url, quality, cookies, clientIP)
}

// StartAudio validates the request and launches an audio download job.
func (o *Orchestrator) StartAudio(ctx context.Context, url, quality, cookies, clientIP string) (string, error) {
	if quality == "" {
		quality = o.cfg.DefaultAudioQuality
	}
	return o.start(ctx, job.TypeAudio, url, quality, cookies, clientIP)
}

func (o *Orchestrator) start(ctx context.Context, t job.MediaType, url, quality, cookies, clientIP string) (string, error) {
	if err := o.validator.ValidateURL(url); err != nil {
		return "", err
	}
	if err := o.validator.ValidateQuality(t, quality); err != nil {
		return "", err
	}
	if err := o.validator.ValidateCookies(cookies); err != nil {
		return "", err
	}
	if o.gate != nil && !o.gate.AcceptingNewJobs() {
		return "", ErrLowDisk
	}
	if err := o.checkQueueRoom(ctx); err != nil {
		return "", err
	}

	now := time.Now()
	j := &job.Job{
		ID:        uuid.NewString(),
		Type:      t,
		Platform:  security.DetectPlatform(url),
		URL:       url,
		Quality:   quality,
		Format:    formatFor(t),
		Status:    job.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Create(ctx, j); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	log.Info().
		Str("job_id", j.ID).
		Str("type", string(t)).
		Str("platform", string(j.Platform)).
		Str("quality", quality).
		Str("client_ip", clientIP).
		Msg("job created")

	o.bus.Publish(ctx, event.Event{
		Type: event.JobCreated,
		Payload: event.JobEvent{
			JobID:    j.ID,
			Type:     string(j.Type),
			Platform: string(j.Platform),
		},
	})

	o.dispatch(j, cookies)
	return j.ID, nil
}

// Retry creates a fresh queued job re-running a failed one. Only legal
// when the source job is in the error state and under the retry cap.
func (o *Orchestrator) Retry(ctx context.Context, id string) (string, error) {
	src, err := o.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if src.Status != job.StatusError {
		return "", ErrNotRetryable
	}
	if o.cfg.MaxRetries > 0 && src.RetryCount >= o.cfg.MaxRetries {
		return "", fmt.Errorf("%w: retry limit reached", ErrNotRetryable)
	}
	if o.gate != nil && !o.gate.AcceptingNewJobs() {
		return "", ErrLowDisk
	}
	if err := o.checkQueueRoom(ctx); err != nil {
		return "", err
	}

	now := time.Now()
	j := &job.Job{
		ID:         uuid.NewString(),
		Type:       src.Type,
		Platform:   src.Platform,
		URL:        src.URL,
		Quality:    src.Quality,
		Format:     src.Format,
		Status:     job.StatusQueued,
		RetryOf:    src.ID,
		RetryCount: src.RetryCount + 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.store.Create(ctx, j); err != nil {
		return "", fmt.Errorf("create retry job: %w", err)
	}

	log.Info().Str("job_id", j.ID).Str("retry_of", src.ID).Int("attempt", j.RetryCount).Msg("retry job created")

	o.dispatch(j, "")
	return j.ID, nil
}

// Delete removes a job record. A running task is cancelled first and the
// downloaded file, if any, is removed through the path validator.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	j, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}

	o.mu.Lock()
	cancel, active := o.cancels[id]
	o.mu.Unlock()
	if active {
		cancel()
		// Record the cancellation for readers that race the delete below.
		_, _ = o.store.Update(ctx, id, func(cur *job.Job) error {
			if cur.Status.Terminal() {
				return errStale
			}
			cur.Status = job.StatusCancelled
			return nil
		})
		o.bus.Publish(ctx, event.Event{
			Type:    event.JobCancelled,
			Payload: event.JobEvent{JobID: id},
		})
	}

	if j.FilePath != "" {
		resolved, err := o.paths.Resolve(j.FilePath)
		if err != nil {
			return err
		}
		if err := o.files.Delete(resolved); err != nil {
			log.Warn().Err(err).Str("job_id", id).Msg("failed to delete job file")
		}
	}

	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("job_id", id).Msg("job deleted")
	return nil
}

// checkQueueRoom enforces the queued+running ceiling. Terminal jobs keep
// their records until the TTL purge but do not count against the queue.
func (o *Orchestrator) checkQueueRoom(ctx context.Context) error {
	if o.cfg.MaxQueue <= 0 {
		return nil
	}
	stats, err := o.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}
	active := stats.ByStatus[string(job.StatusQueued)] + stats.ByStatus[string(job.StatusRunning)]
	if active >= o.cfg.MaxQueue {
		return ErrQueueFull
	}
	return nil
}

// Wait blocks until all background tasks have exited. Used on shutdown
// and in tests.
func (o *Orchestrator) Wait() {
	o.tasks.Wait()
}

func formatFor(t job.MediaType) string {
	if t == job.TypeAudio {
		return "m4a"
	}
	return "mp4"
}
