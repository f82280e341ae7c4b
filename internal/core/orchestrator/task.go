package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/engine"
	"github.com/LegendarySumit/MediaDL/internal/core/event"
	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

// errStale aborts a store mutation whose precondition no longer holds,
// e.g. a progress callback arriving after the job went terminal.
var errStale = errors.New("job state changed concurrently")

// dispatch launches the background task for a freshly created job. The
// task runs on a context detached from the HTTP request so the download
// survives after the response is sent; the cancel func is kept for
// explicit cancellation via Delete.
func (o *Orchestrator) dispatch(j *job.Job, cookies string) {
	taskCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.cancels[j.ID] = cancel
	o.mu.Unlock()

	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		defer func() {
			o.mu.Lock()
			delete(o.cancels, j.ID)
			o.mu.Unlock()
			cancel()
		}()
		o.run(taskCtx, j, cookies)
	}()
}

// slotWait caps how long a queued job waits for a download slot before
// it is failed instead of holding a goroutine forever.
const slotWait = 5 * time.Minute

func (o *Orchestrator) run(ctx context.Context, j *job.Job, cookies string) {
	if o.slots != nil {
		release, err := o.acquireSlot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("job_id", j.ID).Msg("job cancelled while queued")
				return
			}
			o.fail(ctx, j.ID, "Server is busy. Please try again later.", err)
			return
		}
		defer release()
	}

	// Entered exactly once: a job cancelled or deleted before dispatch
	// fails the compare-and-set and the task exits without side effects.
	if _, err := o.store.Update(ctx, j.ID, func(cur *job.Job) error {
		if cur.Status != job.StatusQueued {
			return errStale
		}
		cur.Status = job.StatusRunning
		return nil
	}); err != nil {
		log.Debug().Err(err).Str("job_id", j.ID).Msg("job gone before dispatch")
		return
	}
	log.Info().Str("job_id", j.ID).Msg("job running")

	cookiesFile, cleanup, err := writeCookiesFile(cookies)
	if err != nil {
		o.fail(ctx, j.ID, "Invalid cookies payload.", err)
		return
	}
	defer cleanup()

	result, err := o.adapter.Download(ctx, engine.Request{
		JobID:       j.ID,
		URL:         j.URL,
		Type:        j.Type,
		Quality:     j.Quality,
		CookiesFile: cookiesFile,
		OutputDir:   o.cfg.DownloadDir,
		MaxBytes:    o.cfg.MaxBytes,
	}, o.progressFunc(ctx, j.ID))

	if err != nil {
		if ctx.Err() != nil {
			// Cancelled via Delete; the record may already be gone.
			log.Info().Str("job_id", j.ID).Msg("job cancelled")
			return
		}
		o.fail(ctx, j.ID, engine.HumanMessage(err.Error()), err)
		return
	}

	done, uerr := o.store.Update(ctx, j.ID, func(cur *job.Job) error {
		if cur.Status != job.StatusRunning {
			return errStale
		}
		cur.Status = job.StatusDone
		cur.Progress = 100
		cur.FilePath = result.FilePath
		cur.FileName = filepath.Base(result.FilePath)
		return nil
	})
	if uerr != nil {
		log.Warn().Err(uerr).Str("job_id", j.ID).Msg("could not record completion")
		return
	}

	log.Info().Str("job_id", j.ID).Str("file", done.FileName).Msg("job completed")
	o.bus.Publish(ctx, event.Event{
		Type: event.JobCompleted,
		Payload: event.JobEvent{
			JobID:    j.ID,
			Type:     string(j.Type),
			Platform: string(j.Platform),
			FileName: done.FileName,
		},
	})
}

// acquireSlot blocks until a download slot is free. The job stays in the
// queued state for the whole wait, so readers see it as pending.
func (o *Orchestrator) acquireSlot(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(slotWait)
	defer timer.Stop()

	select {
	case o.slots <- struct{}{}:
		return func() { <-o.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, errors.New("timed out waiting for a download slot")
	}
}

// progressFunc routes adapter progress callbacks through the store's
// atomic update. Progress is clamped monotonic and frozen once terminal.
func (o *Orchestrator) progressFunc(ctx context.Context, id string) engine.ProgressFunc {
	return func(percent float64) {
		if percent < 0 {
			percent = 0
		} else if percent > 100 {
			percent = 100
		}
		_, err := o.store.Update(ctx, id, func(cur *job.Job) error {
			if cur.Status != job.StatusRunning {
				return errStale
			}
			if percent <= cur.Progress {
				return errStale
			}
			cur.Progress = percent
			return nil
		})
		if err != nil && !errors.Is(err, errStale) {
			log.Debug().Err(err).Str("job_id", id).Msg("progress update dropped")
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, id, message string, cause error) {
	// The raw cause stays in server-side logs only.
	log.Error().Err(cause).Str("job_id", id).Msg("job failed")

	_, err := o.store.Update(ctx, id, func(cur *job.Job) error {
		if cur.Status.Terminal() {
			return errStale
		}
		cur.Status = job.StatusError
		cur.Error = message
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("job_id", id).Msg("could not record failure")
		return
	}

	o.bus.Publish(ctx, event.Event{
		Type:    event.JobFailed,
		Payload: event.JobEvent{JobID: id, Error: message},
	})
}

// writeCookiesFile persists a cookie blob to a scratch file for the
// adapter. The returned cleanup always removes it, on every exit path of
// the task.
func writeCookiesFile(cookies string) (path string, cleanup func(), err error) {
	if cookies == "" {
		return "", func() {}, nil
	}

	f, err := os.CreateTemp("", "cookies_*.txt")
	if err != nil {
		return "", func() {}, err
	}
	name := f.Name()
	remove := func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", name).Msg("failed to remove cookies scratch file")
		}
	}

	if _, err := f.WriteString(cookies); err != nil {
		_ = f.Close()
		remove()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		remove()
		return "", func() {}, err
	}
	return name, remove, nil
}
