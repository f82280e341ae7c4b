package stream

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
)

type Kind int

const (
	KindProgress Kind = iota
	KindDone
	KindError
)

// Event is one element of a job's progress stream. Progress events carry
// a percentage; Done carries the final file name; Error carries a
// sanitized message. Done and Error are terminal: the stream closes after
// emitting one.
type Event struct {
	Kind     Kind
	Progress float64
	FileName string
	Message  string
}

type Config struct {
	PollInterval time.Duration
	StuckTimeout time.Duration
	MaxDuration  time.Duration
}

// Streamer derives live progress streams by polling the job store. One
// polling goroutine per open stream; the stream is lazy, finite until a
// terminal event, and not restartable.
type Streamer struct {
	store store.Store
	cfg   Config
}

func New(st store.Store, cfg Config) *Streamer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Millisecond
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = 45 * time.Second
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 10 * time.Minute
	}
	return &Streamer{store: st, cfg: cfg}
}

// Stream returns a channel of events for the given job. The channel is
// closed after a terminal event, when ctx is cancelled, or when the hard
// stream deadline passes.
func (s *Streamer) Stream(ctx context.Context, jobID string) <-chan Event {
	ch := make(chan Event, 8)
	go s.poll(ctx, jobID, ch)
	return ch
}

func (s *Streamer) poll(ctx context.Context, jobID string, ch chan<- Event) {
	defer close(ch)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.MaxDuration)
	defer deadline.Stop()

	lastProgress := -1.0
	lastChange := time.Now()

	for {
		j, err := s.store.Get(ctx, jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.send(ctx, ch, Event{Kind: KindError, Message: "Job not found"})
			} else {
				log.Warn().Err(err).Str("job_id", jobID).Msg("store read failed during stream")
				s.send(ctx, ch, Event{Kind: KindError, Message: "Connection error"})
			}
			return
		}

		if j.Progress != lastProgress && !j.Status.Terminal() {
			if !s.send(ctx, ch, Event{Kind: KindProgress, Progress: j.Progress}) {
				return
			}
			lastProgress = j.Progress
			lastChange = time.Now()
		}

		switch {
		case j.Status == job.StatusDone:
			s.send(ctx, ch, Event{Kind: KindDone, Progress: 100, FileName: j.FileName})
			return
		case j.Status == job.StatusError:
			msg := j.Error
			if msg == "" {
				msg = "Download failed"
			}
			s.send(ctx, ch, Event{Kind: KindError, Message: msg})
			return
		case j.Status == job.StatusCancelled:
			s.send(ctx, ch, Event{Kind: KindError, Message: "Download cancelled"})
			return
		}

		// A running job with no progress change beyond the timeout is
		// stuck: record the error (guarded, so a racing terminal
		// transition wins) and end the stream instead of hanging forever.
		if j.Status == job.StatusRunning && time.Since(lastChange) > s.cfg.StuckTimeout {
			s.markStuck(ctx, jobID)
			s.send(ctx, ch, Event{Kind: KindError, Message: "Download timed out (no progress)"})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			log.Warn().Str("job_id", jobID).Msg("progress stream hit max duration")
			s.send(ctx, ch, Event{Kind: KindError, Message: "Stream timeout"})
			return
		case <-ticker.C:
		}
	}
}

func (s *Streamer) markStuck(ctx context.Context, jobID string) {
	_, err := s.store.Update(ctx, jobID, func(cur *job.Job) error {
		if cur.Status != job.StatusRunning {
			return errors.New("job no longer running")
		}
		cur.Status = job.StatusError
		cur.Error = "Timeout: no progress"
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("job_id", jobID).Msg("stuck-job transition skipped")
		return
	}
	log.Warn().Str("job_id", jobID).Msg("stuck job marked as error")
}

func (s *Streamer) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
