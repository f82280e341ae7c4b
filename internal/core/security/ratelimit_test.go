package security

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(window time.Duration) *RateLimiter {
	return NewRateLimiter(window, map[Class]int{
		ClassVideo:   5,
		ClassAudio:   10,
		ClassDefault: 15,
	})
}

func TestAllowWithinLimit(t *testing.T) {
	r := newTestLimiter(time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("1.2.3.4", ClassVideo), "request %d", i)
	}
	assert.False(t, r.Allow("1.2.3.4", ClassVideo))
}

func TestClassesHaveIndependentBudgets(t *testing.T) {
	r := newTestLimiter(time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("1.2.3.4", ClassVideo))
	}
	assert.False(t, r.Allow("1.2.3.4", ClassVideo))

	// Audio budget for the same IP is untouched.
	for i := 0; i < 10; i++ {
		assert.True(t, r.Allow("1.2.3.4", ClassAudio))
	}
	assert.False(t, r.Allow("1.2.3.4", ClassAudio))
}

func TestClientsAreIndependent(t *testing.T) {
	r := newTestLimiter(time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("1.1.1.1", ClassVideo))
	}
	assert.False(t, r.Allow("1.1.1.1", ClassVideo))
	assert.True(t, r.Allow("2.2.2.2", ClassVideo))
}

func TestWindowSlides(t *testing.T) {
	r := newTestLimiter(200 * time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("1.2.3.4", ClassVideo))
	}
	assert.False(t, r.Allow("1.2.3.4", ClassVideo))

	time.Sleep(250 * time.Millisecond)
	assert.True(t, r.Allow("1.2.3.4", ClassVideo))
}

// A denied request must not extend the client's window.
func TestDenialsNotCounted(t *testing.T) {
	r := newTestLimiter(300 * time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow("1.2.3.4", ClassVideo))
	}
	for i := 0; i < 20; i++ {
		assert.False(t, r.Allow("1.2.3.4", ClassVideo))
	}

	time.Sleep(350 * time.Millisecond)
	assert.True(t, r.Allow("1.2.3.4", ClassVideo))
}

func TestUnknownClassFallsBackToDefault(t *testing.T) {
	r := newTestLimiter(time.Minute)

	for i := 0; i < 15; i++ {
		assert.True(t, r.Allow("1.2.3.4", Class("other")))
	}
	assert.False(t, r.Allow("1.2.3.4", Class("other")))
}

func TestEvictIdle(t *testing.T) {
	r := newTestLimiter(100 * time.Millisecond)

	for i := 0; i < 50; i++ {
		r.Allow(fmt.Sprintf("10.1.1.%d", i), ClassVideo)
	}
	assert.Equal(t, 50, r.TrackedClients())

	time.Sleep(150 * time.Millisecond)
	r.Allow("fresh-client", ClassVideo)

	evicted := r.EvictIdle()
	assert.Equal(t, 50, evicted)
	assert.Equal(t, 1, r.TrackedClients())
}
