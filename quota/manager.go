// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"sync/atomic"
	"time"

	"github.com/repstream/replog/cluster"
)

// Manager composes a rate limiter with the current throttle
// configuration for one replication direction. A broker runs two
// independent instances of this one concrete type, a leader-side one
// and a follower-side one, differing only by the direction they read
// from the snapshot.
//
// The snapshot reference is swapped atomically: callers in flight see
// either the old or the new configuration in full, never a mix.
type Manager struct {
	direction Direction
	limiter   *Limiter
	meter     *Meter
	cfg       atomic.Pointer[ThrottleConfig]
}

// NewManager returns a manager for the given direction measuring over
// the given window. It starts from the empty snapshot: unlimited and
// nothing throttled.
func NewManager(direction Direction, window time.Duration) *Manager {
	m := &Manager{
		direction: direction,
		limiter:   NewLimiter(window),
		meter:     NewMeter(window),
	}
	m.cfg.Store(EmptyConfig())
	return m
}

// Direction returns the replication direction this manager gates.
func (m *Manager) Direction() Direction {
	return m.direction
}

// IsThrottled is a pure membership test against the current snapshot.
// It never blocks and takes no locks, which keeps unthrottled
// partitions fully independent of throttled traffic.
func (m *Manager) IsThrottled(tp cluster.TP) bool {
	return m.cfg.Load().Throttled(m.direction, tp)
}

// Record meters n transferred bytes for a throttled partition and
// returns the delay the caller must observe before moving to the next
// batch for the same source. The rate bound is read from the same
// snapshot load, so the bytes can never pair with the limit of a
// different configuration. Callers must not invoke it for partitions
// IsThrottled rejects; bytes of unthrottled partitions are never
// metered.
func (m *Manager) Record(tp cluster.TP, n uint64) time.Duration {
	m.meter.Mark(n)
	limit, limited := m.cfg.Load().Limit()
	return m.limiter.Record(n, limit, limited)
}

// UpperBound returns the rate limit of the current snapshot.
func (m *Manager) UpperBound() (uint64, bool) {
	return m.cfg.Load().Limit()
}

// Meter exposes the achieved-rate meter of this direction.
func (m *Manager) Meter() *Meter {
	return m.meter
}

// ApplyConfig publishes a new snapshot in a single atomic store.
// Every subsequent IsThrottled, Record and UpperBound call observes
// the new membership and rate bound together.
func (m *Manager) ApplyConfig(cfg *ThrottleConfig) {
	if cfg == nil {
		cfg = EmptyConfig()
	}
	m.cfg.Store(cfg)
}
