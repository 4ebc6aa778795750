package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/portfolio/internal/config"
)

// Limiter is a per-key token bucket: limit requests per window, refilled
// continuously.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows limit requests per window for each key.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = config.DefaultLoginLimit
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets: map[string]*bucket{},
		rate:    rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token for key. When refused, retryAfter tells how long
// until the next token is available.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	now := l.now()
	l.sweep(now)
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, max(d, time.Second)
	}
	return true, 0
}

// sweep drops buckets idle for longer than a window. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, key)
		}
	}
}
