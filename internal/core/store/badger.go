package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

const keyPrefix = "job:"

// BadgerStore backs Store with an embedded badger database. Badger gives
// us the two store-level guarantees the contract needs for free: per-key
// TTL entries that vanish at read time once expired, and optimistic
// transactions whose commit conflicts let Update behave as a
// compare-and-set over the whole record.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a badger-backed store at path. An empty path
// opens an in-memory store, used by tests.
func Open(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Create(_ context.Context, j *job.Job) error {
	key := []byte(keyPrefix + j.ID)
	val, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	// Anchor the TTL to CreatedAt, same as Update, so a record with a
	// back-dated CreatedAt does not get a full fresh lease.
	remaining := s.ttl - time.Since(j.CreatedAt)
	if remaining <= 0 {
		return ErrNotFound
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, val).WithTTL(remaining))
	})
}

func (s *BadgerStore) Get(_ context.Context, id string) (*job.Job, error) {
	var j job.Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &j)
		})
	})
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Update applies mutate to the current record inside a transaction. On a
// commit conflict with a concurrent writer the whole read-mutate-write is
// retried against fresh state. The record TTL is recomputed from
// CreatedAt on every write so updates never slide the expiry deadline.
func (s *BadgerStore) Update(_ context.Context, id string, mutate func(*job.Job) error) (*job.Job, error) {
	key := []byte(keyPrefix + id)
	for {
		var j job.Job
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			} else if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return err
			}

			if err := mutate(&j); err != nil {
				return err
			}
			j.UpdatedAt = time.Now()

			remaining := s.ttl - time.Since(j.CreatedAt)
			if remaining <= 0 {
				// Already past its deadline but not yet purged.
				return ErrNotFound
			}

			val, err := json.Marshal(&j)
			if err != nil {
				return fmt.Errorf("encode job: %w", err)
			}
			return txn.SetEntry(badger.NewEntry(key, val).WithTTL(remaining))
		})
		if errors.Is(err, badger.ErrConflict) {
			log.Debug().Str("job_id", id).Msg("job update conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return &j, nil
	}
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	key := []byte(keyPrefix + id)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (s *BadgerStore) List(_ context.Context, f Filter) ([]*job.Job, error) {
	var jobs []*job.Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var j job.Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return err
			}
			if f.Status != "" && j.Status != f.Status {
				continue
			}
			if f.Platform != "" && j.Platform != f.Platform {
				continue
			}
			jobs = append(jobs, &j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	if f.Limit > 0 && len(jobs) > f.Limit {
		jobs = jobs[:f.Limit]
	}
	return jobs, nil
}

func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	jobs, err := s.List(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	return len(jobs), nil
}

func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	jobs, err := s.List(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Total:      len(jobs),
		ByStatus:   make(map[string]int),
		ByPlatform: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, j := range jobs {
		stats.ByStatus[string(j.Status)]++
		stats.ByPlatform[string(j.Platform)]++
		stats.ByType[string(j.Type)]++
	}
	return stats, nil
}
