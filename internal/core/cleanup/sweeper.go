package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/event"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/storage"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
)

// ErrSweepRunning is returned when a sweep is requested while another is
// still in flight. Overlapping sweeps are disallowed.
var ErrSweepRunning = errors.New("cleanup sweep already running")

type Config struct {
	Interval   time.Duration // period between sweeps
	MaxFileAge time.Duration // files older than this become eligible
	JobTTL     time.Duration // record expiry used by the purge pass
	MinFree    int64         // disk floor in bytes; below it the gate closes
}

type Result struct {
	RemovedFiles int               `json:"files_removed"`
	RemovedJobs  int               `json:"jobs_removed"`
	Disk         storage.DiskStats `json:"disk"`
}

// Sweeper periodically reclaims expired job records and aged files, and
// gates job acceptance on free disk space.
type Sweeper struct {
	store store.Store
	files *storage.Provider
	paths *security.PathValidator
	bus   event.Bus
	cfg   Config

	sweepMu   sync.Mutex
	accepting atomic.Bool
}

func New(st store.Store, files *storage.Provider, paths *security.PathValidator, bus event.Bus, cfg Config) *Sweeper {
	s := &Sweeper{store: st, files: files, paths: paths, bus: bus, cfg: cfg}
	s.accepting.Store(true)

	// A finished download is the moment disk pressure changes.
	bus.Subscribe(event.JobCompleted, func(ctx context.Context, _ event.Event) error {
		s.checkDisk(ctx)
		return nil
	})
	return s
}

// AcceptingNewJobs implements the orchestrator's acceptance gate.
func (s *Sweeper) AcceptingNewJobs() bool {
	return s.accepting.Load()
}

func (s *Sweeper) StorageStats() (storage.DiskStats, error) {
	return s.files.DiskUsage()
}

// Run sweeps once at startup and then on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.SweepNow(ctx); err != nil && !errors.Is(err, ErrSweepRunning) {
		log.Warn().Err(err).Msg("startup cleanup sweep failed")
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepNow(ctx); err != nil && !errors.Is(err, ErrSweepRunning) {
				log.Warn().Err(err).Msg("cleanup sweep failed")
			}
		}
	}
}

// SweepNow runs one sweep. Exactly one sweep may run at a time; a second
// caller gets ErrSweepRunning instead of piling up.
func (s *Sweeper) SweepNow(ctx context.Context) (Result, error) {
	if !s.sweepMu.TryLock() {
		return Result{}, ErrSweepRunning
	}
	defer s.sweepMu.Unlock()

	var res Result
	res.RemovedJobs = s.purgeExpiredJobs(ctx)
	res.RemovedFiles = s.removeAgedFiles(ctx)
	s.checkDisk(ctx)

	if disk, err := s.files.DiskUsage(); err == nil {
		res.Disk = disk
	}

	if res.RemovedJobs > 0 || res.RemovedFiles > 0 {
		log.Info().
			Int("jobs_removed", res.RemovedJobs).
			Int("files_removed", res.RemovedFiles).
			Msg("cleanup sweep finished")
	}
	return res, nil
}

// purgeExpiredJobs removes terminal records past their TTL. The badger
// backend expires records natively; this pass keeps the invariant with
// any backend and reclaims the files of expired jobs.
func (s *Sweeper) purgeExpiredJobs(ctx context.Context) int {
	jobs, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		log.Warn().Err(err).Msg("cleanup could not list jobs")
		return 0
	}

	cutoff := time.Now().Add(-s.cfg.JobTTL)
	removed := 0
	for _, j := range jobs {
		if !j.Status.Terminal() || j.CreatedAt.After(cutoff) {
			continue
		}
		if j.FilePath != "" {
			// The stored path is attacker-adjacent data; re-validate it
			// against the download root before removing anything.
			if resolved, err := s.paths.Resolve(j.FilePath); err != nil {
				log.Warn().Str("job_id", j.ID).Str("path", j.FilePath).Msg("refusing to delete file outside download root")
			} else if err := s.files.Delete(resolved); err != nil {
				log.Warn().Err(err).Str("job_id", j.ID).Msg("could not delete expired job file")
			}
		}
		if err := s.store.Delete(ctx, j.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("job_id", j.ID).Msg("could not delete expired job")
			continue
		}
		removed++
	}
	return removed
}

// removeAgedFiles deletes files in the download root older than the
// configured age, skipping files still owned by a live (non-terminal)
// job.
func (s *Sweeper) removeAgedFiles(ctx context.Context) int {
	cutoff := time.Now().Add(-s.cfg.MaxFileAge)

	removed := 0
	for _, f := range s.eligibleFiles(ctx) {
		if f.modTime.After(cutoff) {
			continue
		}
		if err := s.files.Delete(f.path); err != nil {
			log.Warn().Err(err).Str("file", f.path).Msg("could not delete aged file")
			continue
		}
		removed++
	}
	return removed
}

type candidate struct {
	path    string
	modTime time.Time
	size    int64
}

// eligibleFiles lists regular files in the download root that no
// non-terminal job references, oldest first.
func (s *Sweeper) eligibleFiles(ctx context.Context) []candidate {
	live := make(map[string]bool)
	if jobs, err := s.store.List(ctx, store.Filter{}); err == nil {
		for _, j := range jobs {
			if !j.Status.Terminal() && j.FilePath != "" {
				live[j.FilePath] = true
			}
		}
	}

	entries, err := os.ReadDir(s.files.Root())
	if err != nil {
		log.Warn().Err(err).Msg("cleanup could not read download dir")
		return nil
	}

	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.files.Root(), entry.Name())
		if live[path] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: path, modTime: info.ModTime(), size: info.Size()})
	}

	sort.Slice(files, func(i, k int) bool {
		return files[i].modTime.Before(files[k].modTime)
	})
	return files
}

// checkDisk updates the acceptance gate and, when below the floor, frees
// the oldest eligible files until back above it.
func (s *Sweeper) checkDisk(ctx context.Context) {
	disk, err := s.files.DiskUsage()
	if err != nil {
		log.Warn().Err(err).Msg("disk usage check failed")
		return
	}

	if disk.Available >= s.cfg.MinFree {
		if !s.accepting.Load() {
			log.Info().Int64("available", disk.Available).Msg("disk space recovered, accepting jobs again")
		}
		s.accepting.Store(true)
		return
	}

	s.accepting.Store(false)
	log.Warn().
		Int64("available", disk.Available).
		Int64("floor", s.cfg.MinFree).
		Msg("low disk space, pausing new jobs")
	s.bus.Publish(ctx, event.Event{
		Type:    event.DiskLow,
		Payload: event.DiskEvent{Available: disk.Available, Floor: s.cfg.MinFree},
	})

	freed := disk.Available
	for _, f := range s.eligibleFiles(ctx) {
		if freed >= s.cfg.MinFree {
			break
		}
		if err := s.files.Delete(f.path); err != nil {
			continue
		}
		freed += f.size
		log.Info().Str("file", f.path).Msg("deleted old file to free disk space")
	}
	if freed >= s.cfg.MinFree {
		s.accepting.Store(true)
	}
}
