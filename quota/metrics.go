// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Meter measures the achieved byte rate of one replication direction
// over a rolling window.
type Meter struct {
	mu       sync.Mutex
	window   time.Duration
	start    time.Time
	bytes    uint64
	lastRate float64
}

func NewMeter(window time.Duration) *Meter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Meter{
		window: window,
	}
}

// Mark records n transferred bytes.
func (m *Meter) Mark(n uint64) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start.IsZero() {
		m.start = now
	}
	if elapsed := now.Sub(m.start); elapsed > m.window {
		m.lastRate = float64(m.bytes) / elapsed.Seconds()
		m.start = now
		m.bytes = 0
	}
	m.bytes += n
}

// Rate returns the measured bytes/sec. Early in a fresh window the
// previous window's rate is reported, avoiding a misleading spike from
// a tiny elapsed divisor.
func (m *Meter) Rate() float64 {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start.IsZero() {
		return 0
	}
	elapsed := now.Sub(m.start)
	if elapsed < time.Second && m.lastRate > 0 {
		return m.lastRate
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(m.bytes) / elapsed.Seconds()
}

// Reporter periodically logs the achieved rate of each registered
// manager, one measured-rate metric per direction per broker.
type Reporter struct {
	log      *zap.Logger
	interval time.Duration
	managers []*Manager
}

func NewReporter(logger *zap.Logger, interval time.Duration, managers ...*Manager) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reporter{
		log:      logger,
		interval: interval,
		managers: managers,
	}
}

// Run emits measurements until the context is canceled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range r.managers {
				bound, limited := m.UpperBound()
				fields := []zap.Field{
					zap.String("direction", m.Direction().String()),
					zap.Float64("rate_bps", m.Meter().Rate()),
				}
				if limited {
					fields = append(fields, zap.Uint64("upper_bound_bps", bound))
				}
				r.log.Info("replication byte rate", fields...)
			}
		}
	}
}
