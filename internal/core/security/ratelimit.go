package security

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned before any other validation when a client
// exceeds its per-endpoint-class budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// Class groups endpoints sharing one rate budget.
type Class string

const (
	ClassVideo   Class = "video"
	ClassAudio   Class = "audio"
	ClassDefault Class = "default"
)

// RateLimiter is a sliding-window counter per client IP per endpoint
// class. Counters for idle clients are evicted by a periodic compaction
// pass so tracked state stays bounded no matter how many distinct IPs
// show up.
type RateLimiter struct {
	window time.Duration
	limits map[Class]int

	mu      sync.Mutex
	clients map[clientKey]*window
}

type clientKey struct {
	ip    string
	class Class
}

type window struct {
	hits     []time.Time
	lastSeen time.Time
}

func NewRateLimiter(windowLen time.Duration, limits map[Class]int) *RateLimiter {
	return &RateLimiter{
		window:  windowLen,
		limits:  limits,
		clients: make(map[clientKey]*window),
	}
}

// Allow records a request attempt and reports whether it is within the
// class budget. Denied attempts are not recorded.
func (r *RateLimiter) Allow(ip string, class Class) bool {
	limit, ok := r.limits[class]
	if !ok {
		limit = r.limits[ClassDefault]
	}
	if limit <= 0 {
		return true
	}

	now := time.Now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := clientKey{ip: ip, class: class}
	w, ok := r.clients[key]
	if !ok {
		w = &window{}
		r.clients[key] = w
	}

	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
	w.lastSeen = now

	if len(w.hits) >= limit {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

// TrackedClients reports how many (ip, class) counters are held. Exists
// so the bounded-memory property is observable.
func (r *RateLimiter) TrackedClients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// EvictIdle drops counters for clients not seen within the window.
func (r *RateLimiter) EvictIdle() int {
	cutoff := time.Now().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, w := range r.clients {
		if w.lastSeen.Before(cutoff) {
			delete(r.clients, key)
			evicted++
		}
	}
	return evicted
}

// Run compacts idle counters until ctx is cancelled.
func (r *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}
