// Package ratelimit implements sliding-window-by-reset request admission
// control. Each limiter instance owns its counter map; counters are never
// persisted or shared across instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count       int
	windowStart time.Time
}

// Limiter admits at most max requests per key within a window. The window is a
// resetting fixed window: when a request arrives after the window has elapsed,
// the counter resets and a new window starts. Bursts at window boundaries are
// an accepted trade-off for O(1) memory per key.
type Limiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*counter

	nowF func() time.Time
}

// New returns a Limiter admitting max requests per window per key.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:      max,
		window:   window,
		counters: make(map[string]*counter),
		nowF:     time.Now,
	}
}

// Default returns the limiter policy for unauthenticated traffic: 100 requests per minute.
func Default() *Limiter { return New(100, 60*time.Second) }

// Strict returns the limiter policy for sensitive endpoints: 10 requests per minute.
func Strict() *Limiter { return New(10, 60*time.Second) }

// Login returns the limiter policy for credential endpoints: 5 attempts per 5 minutes.
func Login() *Limiter { return New(5, 300*time.Second) }

// PerAccount returns the per-account quota: 1000 requests per hour.
func PerAccount() *Limiter { return New(1000, 3600*time.Second) }

// Allow records a request for key and reports whether it is admitted. When
// rejected, retryAfter is the time remaining until the window rolls over.
// Holding the lock never spans a blocking call; Allow is purely in-memory.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	now := l.nowF()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, exists := l.counters[key]
	if !exists {
		l.counters[key] = &counter{count: 1, windowStart: now}
		return true, 0
	}

	if now.Sub(c.windowStart) >= l.window {
		c.count = 1
		c.windowStart = now
		return true, 0
	}

	c.count++
	if c.count > l.max {
		return false, l.window - now.Sub(c.windowStart)
	}
	return true, 0
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Sweep removes counters whose window is older than twice the window length,
// bounding memory growth from churn of ephemeral client keys.
func (l *Limiter) Sweep() {
	now := l.nowF()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.windowStart) >= 2*l.window {
			delete(l.counters, key)
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
