// Package ratelimit spaces out calls to the decision-making backend.
//
// The policy is completion-anchored: the clock restarts when the previous
// call finishes, not when it starts, so a slow backend call never under-counts
// the gap. This is advisory backpressure against an external quota, not a
// fairness mechanism.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter is the single owner of the last-completion timestamp. Acquire holds
// an internal mutex until the returned release func runs, so concurrent
// callers serialize and cannot both observe a stale timestamp.
type Limiter struct {
	mu      sync.Mutex
	spacing time.Duration
	last    time.Time

	now func() time.Time // test seam
}

// New returns a Limiter enforcing the given minimum spacing between the
// completion of one call and the start of the next.
func New(spacing time.Duration) *Limiter {
	return &Limiter{spacing: spacing, now: time.Now}
}

// Spacing returns the configured minimum spacing.
func (l *Limiter) Spacing() time.Duration { return l.spacing }

// Acquire blocks until the spacing since the last completed call has elapsed,
// then grants the caller exclusive use of the backend. The caller must invoke
// the returned release func when its backend call completes, success or
// failure; release records the completion time. Calling release more than
// once is a no-op.
//
// Acquire returns ctx.Err() if the context is canceled while waiting.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	l.mu.Lock()
	if !l.last.IsZero() {
		if wait := l.spacing - l.now().Sub(l.last); wait > 0 {
			slog.Info("rate limit: delaying decision backend call", "wait", wait.Round(100*time.Millisecond))
			if err := sleepCtx(ctx, wait); err != nil {
				l.mu.Unlock()
				return nil, err
			}
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.last = l.now()
			l.mu.Unlock()
		})
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
