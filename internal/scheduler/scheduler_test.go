package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 6 * time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2025, 1, 6, 8, 17, 33, 0, time.UTC)
	next := s.nextTick(now)

	if next != time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("next tick = %v, want 12:00", next)
	}
	if !next.After(now) {
		t.Fatal("next tick must be in the future")
	}
}

func TestRunContinuesAfterTickError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	var ticks atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if ticks.Add(1) == 1 {
				return errors.New("transient poll failure")
			}
			cancel()
			return nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	// The first tick failed; the loop must still have fired a second one.
	if ticks.Load() < 2 {
		t.Fatalf("loop aborted after a failing tick, saw %d ticks", ticks.Load())
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: false}, zerolog.Nop())

	now := time.Date(2025, 1, 6, 8, 17, 0, 0, time.UTC)
	if next := s.nextTick(now); next != now.Add(time.Hour) {
		t.Fatalf("next tick = %v, want now+1h", next)
	}
}
