// Package rate paces outbound Discord requests that have no REST bucket of their own.
package rate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces requests by a base interval with random jitter.
type Limiter struct {
	mu          sync.Mutex
	next        time.Time
	minInterval time.Duration
	maxJitter   time.Duration
}

// New creates a limiter. baseInterval=1s and jitter=200ms spaces requests 800ms-1200ms apart.
// The first request never waits.
func New(baseInterval, jitter time.Duration) *Limiter {
	return &Limiter{
		minInterval: baseInterval,
		maxJitter:   min(jitter, baseInterval),
	}
}

// Wait blocks until the caller's slot. Slots are handed out in call order,
// so concurrent callers queue behind each other instead of firing together.
func (r *Limiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.delay())
	r.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// delay returns the interval with jitter. Callers hold the lock.
func (r *Limiter) delay() time.Duration {
	if r.maxJitter <= 0 {
		return r.minInterval
	}
	return r.minInterval + time.Duration(rand.Int64N(int64(r.maxJitter*2))) - r.maxJitter
}
