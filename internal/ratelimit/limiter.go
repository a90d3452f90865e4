// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, all sharing the same rate and
// burst. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and
// burst size. A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Allow checks if a request for the given key should be allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.Allow()
}

// CheckLimit returns an error when key is over its limit. A nil limiter
// allows everything.
func CheckLimit(l *Limiter, key string) error {
	if l == nil {
		return nil
	}
	if !l.Allow(key) {
		return fmt.Errorf("rate limit exceeded for %s, try again shortly", key)
	}
	return nil
}
