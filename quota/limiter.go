// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"context"
	"sync"
	"time"

	"github.com/repstream/replog/errors"
)

const (
	// measurement window used when none is configured
	DefaultWindow = 10 * time.Second
)

// Limiter is a windowed byte-rate limiter. Bytes are accumulated over
// a fixed window and the measured rate is the windowed average, which
// deliberately tolerates short bursts above the limit while bounding
// the sustained rate.
//
// The limiter holds no bound of its own: callers pass the limit with
// every Record, taking it from the same immutable configuration
// snapshot as the throttle-membership decision, so bytes are never
// paired with a bound from a different snapshot.
//
// Record only computes the delay; sleeping is the caller's job and
// happens outside the limiter's critical section, so concurrent
// callers on other partitions are never serialized behind a sleeper.
type Limiter struct {
	mu          sync.Mutex
	window      time.Duration
	windowStart time.Time
	accumulated uint64
}

// NewLimiter returns a limiter measuring over the given window,
// DefaultWindow if zero.
func NewLimiter(window time.Duration) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		window: window,
	}
}

// Record adds n bytes to the current window and returns the minimum
// delay the caller must observe so that the windowed average rate does
// not exceed limit. The window resets once it has fully elapsed. With
// limited false the bytes are still accumulated but the delay is
// always zero. A zero limit is not valid, configuration writers reject
// it before it gets here; treat it as unlimited to stay fail open.
func (l *Limiter) Record(n, limit uint64, limited bool) time.Duration {
	now := time.Now()
	l.mu.Lock()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) > l.window {
		l.windowStart = now
		l.accumulated = 0
	}
	l.accumulated += n
	acc := l.accumulated
	elapsed := now.Sub(l.windowStart)
	l.mu.Unlock()

	if !limited || limit == 0 {
		return 0
	}
	// minimum total elapsed time for the accumulated bytes to
	// average out at the limit
	target := time.Duration(float64(acc) / float64(limit) * float64(time.Second))

	// elapsed is monotonic, but clamp anyway so no clock anomaly can
	// ever surface a negative delay to the caller
	delay := target - elapsed
	if delay < 0 {
		return 0
	}
	return delay
}

// Sleep blocks for the given delay, returning early with an
// Interrupted error when the context is canceled, which bounds broker
// shutdown latency while a throttled transfer is mid-delay.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(errors.Interrupted, "throttle delay interrupted: %s", ctx.Err())
	}
}
