// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastOpts[T any](probe func(ctx context.Context) (T, error), stop func(T) bool) Options[T] {
	return Options[T]{
		Probe:    probe,
		StopWhen: stop,
		Interval: time.Millisecond,
	}
}

// TestReachesSuccess verifies the loop terminates once the stop condition
// holds and fires OnSuccess exactly once.
func TestReachesSuccess(t *testing.T) {
	var probes atomic.Int32
	var successes atomic.Int32

	opts := fastOpts(
		func(ctx context.Context) (int, error) { return int(probes.Add(1)), nil },
		func(n int) bool { return n >= 3 },
	)
	opts.OnSuccess = func(n int) { successes.Add(1) }

	c := New(opts)
	c.Start(context.Background())
	<-c.Done()

	if c.State() != StateSuccess {
		t.Fatalf("state = %v, want success", c.State())
	}
	if probes.Load() != 3 {
		t.Errorf("expected 3 probes, got %d", probes.Load())
	}
	if successes.Load() != 1 {
		t.Errorf("OnSuccess fired %d times", successes.Load())
	}
	result, err := c.Result()
	if err != nil || result != 3 {
		t.Errorf("Result() = (%d, %v)", result, err)
	}
}

// TestStartWhilePollingIsNoOp verifies a second Start never spawns a second
// loop.
func TestStartWhilePollingIsNoOp(t *testing.T) {
	var concurrent atomic.Int32
	var peak atomic.Int32
	release := make(chan struct{})

	opts := fastOpts(
		func(ctx context.Context) (bool, error) {
			n := concurrent.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			concurrent.Add(-1)
			return true, nil
		},
		func(done bool) bool { return done },
	)

	c := New(opts)
	ctx := context.Background()
	c.Start(ctx)
	c.Start(ctx)
	c.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-c.Done()

	if peak.Load() != 1 {
		t.Errorf("observed %d concurrent probes, want 1", peak.Load())
	}
}

// TestStopFiresNoCallbacks verifies Stop halts the loop without OnSuccess or
// OnError.
func TestStopFiresNoCallbacks(t *testing.T) {
	var callbacks atomic.Int32

	opts := fastOpts(
		func(ctx context.Context) (bool, error) { return false, nil },
		func(done bool) bool { return done },
	)
	opts.OnSuccess = func(bool) { callbacks.Add(1) }
	opts.OnError = func(error) { callbacks.Add(1) }

	c := New(opts)
	c.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	c.Stop()
	<-c.Done()

	if c.State() != StateStopped {
		t.Errorf("state = %v, want stopped", c.State())
	}
	if callbacks.Load() != 0 {
		t.Errorf("callbacks fired after Stop: %d", callbacks.Load())
	}

	// Idempotent.
	c.Stop()
	if c.State() != StateStopped {
		t.Errorf("second Stop changed state to %v", c.State())
	}
}

// TestExhaustion verifies the attempt ceiling produces ErrExhausted.
func TestExhaustion(t *testing.T) {
	opts := fastOpts(
		func(ctx context.Context) (bool, error) { return false, nil },
		func(done bool) bool { return done },
	)
	opts.MaxAttempts = 5

	errCh := make(chan error, 1)
	opts.OnError = func(err error) { errCh <- err }

	c := New(opts)
	c.Start(context.Background())
	<-c.Done()

	if c.State() != StateError {
		t.Fatalf("state = %v, want error", c.State())
	}
	if c.Attempts() != 5 {
		t.Errorf("attempts = %d, want 5", c.Attempts())
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrExhausted) {
			t.Errorf("expected ErrExhausted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnError never fired")
	}
}

// TestFailedResult verifies a result that satisfies StopWhen but reports
// failure terminates with ErrFailedResult and keeps the result readable.
func TestFailedResult(t *testing.T) {
	opts := fastOpts(
		func(ctx context.Context) (string, error) { return "failed", nil },
		func(s string) bool { return s == "failed" || s == "completed" },
	)
	opts.IsErrorResult = func(s string) bool { return s == "failed" }

	c := New(opts)
	c.Start(context.Background())
	<-c.Done()

	result, err := c.Result()
	if !errors.Is(err, ErrFailedResult) {
		t.Fatalf("expected ErrFailedResult, got %v", err)
	}
	if result != "failed" {
		t.Errorf("result = %q", result)
	}
	if c.State() != StateError {
		t.Errorf("state = %v, want error", c.State())
	}
}

// TestProbeErrorsCountTowardCeiling verifies failing probes are attempts too.
func TestProbeErrorsCountTowardCeiling(t *testing.T) {
	probeErr := errors.New("unreachable")
	opts := fastOpts(
		func(ctx context.Context) (bool, error) { return false, probeErr },
		func(done bool) bool { return done },
	)
	opts.MaxAttempts = 3

	c := New(opts)
	c.Start(context.Background())
	<-c.Done()

	_, err := c.Result()
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if c.Attempts() != 3 {
		t.Errorf("attempts = %d, want 3", c.Attempts())
	}
}

// TestReset verifies Reset returns the controller to idle and allows a fresh
// run with cleared counters.
func TestReset(t *testing.T) {
	var probes atomic.Int32
	opts := fastOpts(
		func(ctx context.Context) (bool, error) { probes.Add(1); return true, nil },
		func(done bool) bool { return done },
	)

	c := New(opts)
	c.Start(context.Background())
	<-c.Done()

	c.Reset()
	if c.State() != StateIdle {
		t.Fatalf("state after Reset = %v, want idle", c.State())
	}
	if c.Attempts() != 0 {
		t.Errorf("attempts after Reset = %d, want 0", c.Attempts())
	}

	c.Start(context.Background())
	<-c.Done()
	if c.State() != StateSuccess {
		t.Errorf("state after restart = %v, want success", c.State())
	}
	if c.Attempts() != 1 {
		t.Errorf("attempts after restart = %d, want 1", c.Attempts())
	}
}

// TestPollOnce verifies a single probe outside the loop leaves state idle.
func TestPollOnce(t *testing.T) {
	opts := fastOpts(
		func(ctx context.Context) (int, error) { return 42, nil },
		func(int) bool { return true },
	)

	c := New(opts)
	result, err := c.PollOnce(context.Background())
	if err != nil || result != 42 {
		t.Fatalf("PollOnce = (%d, %v)", result, err)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
	last, _ := c.Result()
	if last != 42 {
		t.Errorf("last result = %d", last)
	}
}

// TestBackoffInterval verifies doubling and the cap.
func TestBackoffInterval(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, base},
		{1, base},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, max},
		{50, max},
	}
	for _, tt := range tests {
		if got := backoffInterval(base, tt.failures, max); got != tt.want {
			t.Errorf("backoffInterval(failures=%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

// TestDoneBeforeStart verifies Done on a never-started controller does not
// block.
func TestDoneBeforeStart(t *testing.T) {
	c := New(fastOpts(
		func(ctx context.Context) (bool, error) { return true, nil },
		func(done bool) bool { return done },
	))
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done blocked for an idle controller")
	}
}
