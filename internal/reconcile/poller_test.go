package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestPollerTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	p := &Poller{
		Name:     "test",
		Clock:    clock,
		Interval: FixedInterval(time.Second),
		Fetch: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	for i := 1; i <= 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
		waitFor(t, func() bool { return calls.Load() == int32(i) })
	}

	cancel()
	<-done
}

func TestPollerRetriesAfterError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	p := &Poller{
		Name:     "flaky",
		Clock:    clock,
		Interval: FixedInterval(time.Second),
		Fetch: func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("store unreachable")
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFor(t, func() bool { return calls.Load() == 1 })

	// The failed tick must not stop the loop.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFor(t, func() bool { return calls.Load() == 2 })

	cancel()
	<-done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
