package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

func newTestStore(t *testing.T, ttl time.Duration) *BadgerStore {
	t.Helper()
	s, err := Open("", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestJob(id string) *job.Job {
	now := time.Now()
	return &job.Job{
		ID:        id,
		Type:      job.TypeVideo,
		Platform:  job.PlatformYouTube,
		URL:       "https://www.youtube.com/watch?v=" + id,
		Quality:   "720",
		Format:    "mp4",
		Status:    job.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	j := newTestJob("abc")
	require.NoError(t, s.Create(ctx, j))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, j.URL, got.URL)
	assert.Equal(t, job.StatusQueued, got.Status)
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("dup")))
	err := s.Create(ctx, newTestJob("dup"))
	assert.ErrorIs(t, err, ErrExists)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t, time.Hour)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("u1")))

	updated, err := s.Update(ctx, "u1", func(j *job.Job) error {
		j.Status = job.StatusRunning
		j.Progress = 42.5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, updated.Status)
	assert.Equal(t, 42.5, updated.Progress)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, got.Status)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestUpdateMutateError(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("u2")))

	wantErr := fmt.Errorf("abort")
	_, err := s.Update(ctx, "u2", func(j *job.Job) error {
		j.Progress = 99
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	got, err := s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, float64(0), got.Progress)
}

func TestUpdateMissing(t *testing.T) {
	s := newTestStore(t, time.Hour)

	_, err := s.Update(context.Background(), "nope", func(j *job.Job) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("d1")))
	require.NoError(t, s.Delete(ctx, "d1"))

	_, err := s.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "d1"), ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		j := newTestJob(fmt.Sprintf("j%d", i))
		j.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.Create(ctx, j))
	}

	jobs, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	for i := 1; i < len(jobs); i++ {
		assert.False(t, jobs[i].CreatedAt.After(jobs[i-1].CreatedAt))
	}

	limited, err := s.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, "j4", limited[0].ID)
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	done := newTestJob("f1")
	done.Status = job.StatusDone
	require.NoError(t, s.Create(ctx, done))

	insta := newTestJob("f2")
	insta.Platform = job.PlatformInstagram
	require.NoError(t, s.Create(ctx, insta))

	require.NoError(t, s.Create(ctx, newTestJob("f3")))

	byStatus, err := s.List(ctx, Filter{Status: job.StatusDone})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "f1", byStatus[0].ID)

	byPlatform, err := s.List(ctx, Filter{Platform: job.PlatformInstagram})
	require.NoError(t, err)
	require.Len(t, byPlatform, 1)
	assert.Equal(t, "f2", byPlatform[0].ID)
}

func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t, 500*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("ttl")))

	_, err := s.Get(ctx, "ttl")
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)

	_, err = s.Get(ctx, "ttl")
	assert.ErrorIs(t, err, ErrNotFound)

	jobs, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

// Updates must not push the expiry deadline past the original
// CreatedAt-anchored TTL.
func TestUpdateDoesNotExtendTTL(t *testing.T) {
	s := newTestStore(t, time.Second)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("pin")))

	for i := 0; i < 3; i++ {
		time.Sleep(200 * time.Millisecond)
		_, err := s.Update(ctx, "pin", func(j *job.Job) error {
			j.Progress = float64(i * 10)
			return nil
		})
		require.NoError(t, err)
	}

	time.Sleep(600 * time.Millisecond)

	_, err := s.Get(ctx, "pin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAnchorsTTLToCreatedAt(t *testing.T) {
	s := newTestStore(t, time.Second)
	ctx := context.Background()

	// A record whose CreatedAt is already 700ms old gets only the
	// remaining 300ms of its lease, not a fresh full second.
	j := newTestJob("aged")
	j.CreatedAt = time.Now().Add(-700 * time.Millisecond)
	require.NoError(t, s.Create(ctx, j))

	_, err := s.Get(ctx, "aged")
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)
	_, err = s.Get(ctx, "aged")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateExpiredRecord(t *testing.T) {
	s := newTestStore(t, time.Second)

	j := newTestJob("stale")
	j.CreatedAt = time.Now().Add(-2 * time.Second)
	err := s.Create(context.Background(), j)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentUpdates(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestJob("c1")))

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "c1", func(j *job.Job) error {
				j.RetryCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, writers, got.RetryCount)
}

func TestStats(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	a := newTestJob("s1")
	a.Status = job.StatusDone
	require.NoError(t, s.Create(ctx, a))

	b := newTestJob("s2")
	b.Type = job.TypeAudio
	b.Platform = job.PlatformTikTok
	require.NoError(t, s.Create(ctx, b))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[string(job.StatusDone)])
	assert.Equal(t, 1, stats.ByStatus[string(job.StatusQueued)])
	assert.Equal(t, 1, stats.ByPlatform[string(job.PlatformTikTok)])
	assert.Equal(t, 1, stats.ByType[string(job.TypeAudio)])

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
