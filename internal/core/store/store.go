package store

import (
	"context"
	"errors"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrExists   = errors.New("job already exists")
)

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Status   job.Status
	Platform job.Platform
	Limit    int
}

// Stats is an aggregate view over all live job records.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPlatform map[string]int `json:"by_platform"`
	ByType     map[string]int `json:"by_type"`
}

// Store is the durable, TTL-bearing job record store. Every record
// expires 24h (configurable) after its CreatedAt; expired records are
// never returned even if not yet physically purged.
//
// Update is the only mutation path: it runs the mutation atomically
// against the current record state, so concurrent writers (a progress
// callback and a cancellation, say) can never interleave into a corrupted
// record. The mutation func may return an error to abort the update.
type Store interface {
	Create(ctx context.Context, j *job.Job) error
	Get(ctx context.Context, id string) (*job.Job, error)
	Update(ctx context.Context, id string, mutate func(*job.Job) error) (*job.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]*job.Job, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
