// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// STATES AND ERRORS
// =============================================================================

// State represents the current state of a polling controller.
type State int

const (
	// StateIdle indicates the controller has not started or was reset.
	StateIdle State = iota

	// StatePolling indicates the loop is running.
	StatePolling

	// StateSuccess indicates the stop condition held with a success result.
	StateSuccess

	// StateError indicates a terminal failure: the result itself reported
	// failure, or the attempt ceiling was reached.
	StateError

	// StateStopped indicates Stop() was called before a terminal outcome.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal errors.
var (
	// ErrExhausted indicates the attempt ceiling was reached without the
	// stop condition holding.
	ErrExhausted = errors.New("polling attempts exhausted")

	// ErrFailedResult indicates the stop condition held but the result
	// itself reported failure. The result is available via Result().
	ErrFailedResult = errors.New("polled operation reported failure")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Default tuning values.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
	DefaultMaxBackoff  = 30 * time.Second
)

// Options configures a Controller. Probe and StopWhen are required.
type Options[T any] struct {
	// Probe performs one attempt.
	Probe func(ctx context.Context) (T, error)

	// StopWhen reports whether the loop should terminate with this result.
	StopWhen func(result T) bool

	// IsErrorResult distinguishes "the job reported failure" from "the job
	// reported success" once StopWhen holds. Optional.
	IsErrorResult func(result T) bool

	// Interval between probes. Defaults to DefaultInterval.
	Interval time.Duration

	// InitialDelay before the first probe. Defaults to zero.
	InitialDelay time.Duration

	// MaxAttempts is the hard attempt ceiling. Defaults to DefaultMaxAttempts.
	MaxAttempts int

	// BackoffOnError doubles the next interval after a failed probe,
	// resetting on the next successful one.
	BackoffOnError bool

	// MaxBackoff caps the backed-off interval. Defaults to DefaultMaxBackoff.
	MaxBackoff time.Duration

	// OnSuccess fires once on terminal success. Optional.
	OnSuccess func(result T)

	// OnError fires once on terminal failure (never on Stop). Optional.
	OnError func(err error)
}

// withDefaults fills unset options.
func (o Options[T]) withDefaults() Options[T] {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	return o
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives a single polling loop. At most one loop runs per
// controller instance; timers are always released on Stop, Reset, or
// terminal outcome.
type Controller[T any] struct {
	opts Options[T]

	mu       sync.Mutex
	state    State
	attempts int
	failures int // consecutive probe failures
	last     T
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a controller in the idle state.
func New[T any](opts Options[T]) *Controller[T] {
	return &Controller[T]{opts: opts.withDefaults()}
}

// Start begins the loop. Calling Start while already polling is a no-op:
// a second concurrent loop is never spawned.
func (c *Controller[T]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state == StatePolling {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.state = StatePolling
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
}

// Stop terminates the loop without invoking success or error callbacks.
// Idempotent: stopping an idle or finished controller is a no-op.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	if c.state != StatePolling {
		c.mu.Unlock()
		return
	}
	c.state = StateStopped
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset returns the controller to idle from any state and clears counters.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	cancel := c.cancel
	c.state = StateIdle
	c.attempts = 0
	c.failures = 0
	c.lastErr = nil
	var zero T
	c.last = zero
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// PollOnce performs a single probe without starting the loop. The result is
// recorded as the controller's last result but does not change its state.
func (c *Controller[T]) PollOnce(ctx context.Context) (T, error) {
	result, err := c.opts.Probe(ctx)
	c.mu.Lock()
	if err == nil {
		c.last = result
	}
	c.mu.Unlock()
	return result, err
}

// State returns the controller's current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of probes made by the current run.
func (c *Controller[T]) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Result returns the last result and the terminal error, if any.
func (c *Controller[T]) Result() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.lastErr
}

// Done returns a channel closed when the current run exits.
// Returns a closed channel if no run was ever started.
func (c *Controller[T]) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// =============================================================================
// LOOP
// =============================================================================

// run executes the polling loop until a terminal outcome or cancellation.
func (c *Controller[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(c.opts.InitialDelay)
	defer timer.Stop()

	interval := c.opts.Interval

	for {
		select {
		case <-ctx.Done():
			// Stop() or Reset() already recorded the state; nothing fires.
			return
		case <-timer.C:
		}

		result, err := c.opts.Probe(ctx)
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		c.mu.Unlock()

		if err != nil {
			c.mu.Lock()
			c.failures++
			failures := c.failures
			c.mu.Unlock()

			if attempts >= c.opts.MaxAttempts {
				c.finish(StateError, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempts, err))
				return
			}
			if c.opts.BackoffOnError {
				interval = backoffInterval(c.opts.Interval, failures, c.opts.MaxBackoff)
			}
			timer.Reset(interval)
			continue
		}

		c.mu.Lock()
		c.failures = 0
		c.last = result
		c.mu.Unlock()
		interval = c.opts.Interval

		if c.opts.StopWhen(result) {
			if c.opts.IsErrorResult != nil && c.opts.IsErrorResult(result) {
				c.finish(StateError, ErrFailedResult)
			} else {
				c.finishSuccess(result)
			}
			return
		}

		if attempts >= c.opts.MaxAttempts {
			c.finish(StateError, fmt.Errorf("%w after %d attempts", ErrExhausted, attempts))
			return
		}

		timer.Reset(interval)
	}
}

// finishSuccess records terminal success and fires OnSuccess once.
func (c *Controller[T]) finishSuccess(result T) {
	c.mu.Lock()
	if c.state != StatePolling {
		c.mu.Unlock()
		return
	}
	c.state = StateSuccess
	c.lastErr = nil
	c.mu.Unlock()

	if c.opts.OnSuccess != nil {
		c.opts.OnSuccess(result)
	}
}

// finish records a terminal failure and fires OnError once.
func (c *Controller[T]) finish(state State, err error) {
	c.mu.Lock()
	if c.state != StatePolling {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.lastErr = err
	c.mu.Unlock()

	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

// backoffInterval doubles the base interval per consecutive failure, capped.
func backoffInterval(base time.Duration, failures int, cap time.Duration) time.Duration {
	if failures < 1 {
		return base
	}
	shift := uint(failures - 1)
	if shift > 16 {
		shift = 16
	}
	d := base * time.Duration(1<<shift)
	if d > cap || d <= 0 {
		return cap
	}
	return d
}
