// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"context"
	"testing"
	"time"

	"github.com/repstream/replog/errors"
)

func Test_LimiterUnlimited(t *testing.T) {
	l := NewLimiter(time.Second)
	for i := 0; i < 100; i++ {
		if d := l.Record(1<<20, 0, false); d != 0 {
			t.Fatalf("unlimited limiter returned delay %v", d)
		}
	}
	// zero is not a valid limit, keeps the limiter open
	if d := l.Record(1<<30, 0, true); d != 0 {
		t.Fatalf("zero limit must behave as unlimited, got delay %v", d)
	}
}

// the bound travels with each call: dropping it mid-stream stops the
// pacing immediately and restoring it resumes from the accumulated
// window state
func Test_LimiterBoundPerCall(t *testing.T) {
	l := NewLimiter(10 * time.Second)
	if d := l.Record(2000, 1000, true); d <= 0 {
		t.Fatalf("expected catch-up delay while limited")
	}
	if d := l.Record(2000, 0, false); d != 0 {
		t.Fatalf("unlimited call must not delay, got %v", d)
	}
	// bytes kept accumulating: 5000 total at 1000 B/s wants ~5s
	d := l.Record(1000, 1000, true)
	if d < 4*time.Second || d > 5*time.Second {
		t.Fatalf("unexpected delay %v after bound restored, want ~5s", d)
	}
}

func Test_LimiterDelayMath(t *testing.T) {
	l := NewLimiter(10 * time.Second)

	// first record starts the window, 500 bytes at 1000 B/s need
	// 500ms of elapsed window time to average out
	d := l.Record(500, 1000, true)
	if d < 400*time.Millisecond || d > 500*time.Millisecond {
		t.Fatalf("unexpected first delay %v, want ~500ms", d)
	}

	// without sleeping, another 500 bytes push the target to 1s
	d = l.Record(500, 1000, true)
	if d < 900*time.Millisecond || d > time.Second {
		t.Fatalf("unexpected cumulative delay %v, want ~1s", d)
	}
}

func Test_LimiterWindowReset(t *testing.T) {
	l := NewLimiter(100 * time.Millisecond)

	_ = l.Record(1_000_000, 1_000_000, true)
	time.Sleep(150 * time.Millisecond)

	// window has elapsed, the accumulator restarts from this record
	d := l.Record(1000, 1_000_000, true)
	if d > 5*time.Millisecond {
		t.Fatalf("expected fresh window after elapse, got delay %v", d)
	}
}

// achieved average over at least one full window converges to the
// limit within the documented ~25% tolerance
func Test_LimiterConvergence(t *testing.T) {
	const limit = 1_000_000 // 1 MB/s
	const chunk = 50_000
	const chunks = 12 // 600KB, ~600ms at the limit

	l := NewLimiter(200 * time.Millisecond)

	start := time.Now()
	ctx := context.Background()
	for i := 0; i < chunks; i++ {
		if err := Sleep(ctx, l.Record(chunk, limit, true)); err != nil {
			t.Fatalf("unexpected sleep error: %v", err)
		}
	}
	elapsed := time.Since(start)
	achieved := float64(chunk*chunks) / elapsed.Seconds()
	if achieved > limit*1.25 {
		t.Fatalf("achieved rate %.0f B/s exceeds 125%% of limit %d", achieved, limit)
	}
	if achieved < limit*0.5 {
		t.Fatalf("achieved rate %.0f B/s implausibly low for limit %d", achieved, limit)
	}
}

// a burst shorter than the window may exceed the limit momentarily:
// the bytes are accepted first and the delay only restores the
// windowed average afterwards
func Test_LimiterBurstTolerance(t *testing.T) {
	l := NewLimiter(10 * time.Second)

	d := l.Record(5000, 1000, true)
	if d <= 0 {
		t.Fatalf("expected catch-up delay after burst")
	}
	// the burst itself was not rejected, only paced afterwards
	if d > 6*time.Second {
		t.Fatalf("unexpected burst delay %v", d)
	}
}

func Test_SleepInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Sleep(ctx, 30*time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	cancel()
	select {
	case err := <-done:
		if !errors.IsInterrupted(err) {
			t.Fatalf("expected Interrupted error, got %v", err)
		}
		if waited := time.Since(start); waited > time.Second {
			t.Fatalf("interrupt took too long: %v", waited)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sleep did not observe cancellation")
	}
}

func Test_SleepZero(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error for zero delay: %v", err)
	}
	if err := Sleep(context.Background(), -time.Second); err != nil {
		t.Fatalf("unexpected error for negative delay: %v", err)
	}
}
