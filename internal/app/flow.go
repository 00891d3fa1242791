// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/config"
	"github.com/astraleph/astra-tui/internal/credential"
	"github.com/astraleph/astra-tui/internal/poll"
)

// =============================================================================
// STATES
// =============================================================================

// State is the flow controller's position in the onboarding lifecycle.
type State int

const (
	// StateUnauthenticated means no credential is configured.
	StateUnauthenticated State = iota

	// StateLoading means the profile check is in flight.
	StateLoading

	// StateOnboarding means the user must (re)submit birth details.
	StateOnboarding

	// StateAwaitingProfile means onboarding was accepted and the profile
	// computation is being polled.
	StateAwaitingProfile

	// StateReady means the profile is complete; chat is personalized.
	StateReady
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateOnboarding:
		return "onboarding"
	case StateAwaitingProfile:
		return "awaiting-profile"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// =============================================================================
// FLOW CONTROLLER
// =============================================================================

// Flow composes the request layer, the credential store, and the polling
// engine into the application state machine. All transitions go through it;
// the UI renders whatever state it reports.
type Flow struct {
	client *api.Client
	creds  *credential.Store

	// Poll timing resolved from config at construction.
	pollInterval     time.Duration
	pollInitialDelay time.Duration
	pollMaxBackoff   time.Duration
	pollMaxAttempts  int

	mu      sync.Mutex
	state   State
	profile *api.Profile
	// notice is the human-readable message for the current state, e.g. why
	// onboarding must be retried. Never raw transport error text.
	notice string
	poller *poll.Controller[*api.Profile]

	// onChange fires after every transition, outside the lock.
	onChange func(State)
}

// New creates a flow controller in the unauthenticated state.
func New(client *api.Client, creds *credential.Store, pollCfg config.PollConfig) *Flow {
	return &Flow{
		client:           client,
		creds:            creds,
		pollInterval:     pollCfg.Interval(),
		pollInitialDelay: pollCfg.InitialDelay(),
		pollMaxBackoff:   pollCfg.MaxBackoff(),
		pollMaxAttempts:  pollCfg.MaxAttempts,
		state:            StateUnauthenticated,
	}
}

// OnChange registers a transition listener. Must be set before Bootstrap.
func (f *Flow) OnChange(fn func(State)) { f.onChange = fn }

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Notice returns the message associated with the current state, if any.
func (f *Flow) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// Profile returns the last fetched profile, which may be nil.
func (f *Flow) Profile() *api.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile
}

// Client exposes the underlying API client for chat calls.
func (f *Flow) Client() *api.Client { return f.client }

// =============================================================================
// TRANSITIONS
// =============================================================================

// Bootstrap loads any stored credential and, when present, runs the profile
// check. Returns the resulting state.
func (f *Flow) Bootstrap(ctx context.Context) (State, error) {
	token, err := f.creds.Load()
	if err != nil {
		if errors.Is(err, credential.ErrNoCredential) {
			return f.transition(StateUnauthenticated, ""), nil
		}
		return f.transition(StateUnauthenticated, "stored credential unreadable, sign in again"), err
	}

	f.client.SetCredential(token)
	return f.CheckProfile(ctx)
}

// SignIn persists the credential and runs the profile check.
func (f *Flow) SignIn(ctx context.Context, token string) (State, error) {
	if err := f.creds.Save(token); err != nil {
		return f.State(), err
	}
	f.client.SetCredential(token)
	return f.CheckProfile(ctx)
}

// SignOut clears the credential and returns to unauthenticated.
func (f *Flow) SignOut() error {
	f.stopPoller()
	f.client.SetCredential("")
	err := f.creds.Clear()
	f.transition(StateUnauthenticated, "")
	return err
}

// CheckProfile decides the branch after authentication:
// 404 -> Onboarding; 200 status completed -> Ready, failed -> Onboarding,
// processing -> AwaitingProfile. 401/5xx/network leave the state machine
// where it is and return the error for a retryable display.
func (f *Flow) CheckProfile(ctx context.Context) (State, error) {
	prior := f.State()
	f.transition(StateLoading, "")

	profile, err := f.client.GetProfile(ctx)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return f.transition(StateOnboarding, ""), nil
		}
		// Non-terminal: user retries manually. Restore the prior state so
		// the error display does not advance the machine.
		f.transition(prior, "could not reach the service, try again")
		return prior, err
	}

	f.mu.Lock()
	f.profile = profile
	f.mu.Unlock()

	switch {
	case profile.Completed():
		return f.transition(StateReady, ""), nil
	case profile.Failed():
		return f.transition(StateOnboarding, onboardingFailureNotice(profile)), nil
	default:
		// Computation already running from an earlier submit.
		f.startProfilePoll(ctx)
		return f.transition(StateAwaitingProfile, ""), nil
	}
}

// SubmitOnboarding validates and submits birth details, then polls the
// profile endpoint until the computation finishes. Never transitions
// directly to Ready.
func (f *Flow) SubmitOnboarding(ctx context.Context, req *api.OnboardingRequest) (State, error) {
	if err := ValidateOnboarding(req); err != nil {
		return f.State(), err
	}

	if _, err := f.client.Onboard(ctx, req); err != nil {
		f.transition(StateOnboarding, submissionNotice(err))
		return StateOnboarding, err
	}

	f.startProfilePoll(ctx)
	return f.transition(StateAwaitingProfile, ""), nil
}

// transition records the new state and notifies the listener.
func (f *Flow) transition(s State, notice string) State {
	f.mu.Lock()
	f.state = s
	f.notice = notice
	fn := f.onChange
	f.mu.Unlock()

	if fn != nil {
		fn(s)
	}
	return s
}

// =============================================================================
// PROFILE POLLING
// =============================================================================

// startProfilePoll launches the job poller for the profile computation.
// Any prior poller is stopped first: one poll session per logical slot.
func (f *Flow) startProfilePoll(ctx context.Context) {
	f.stopPoller()

	var poller *poll.Controller[*api.Profile]
	poller = poll.NewJobPoller(
		func(ctx context.Context) (*api.Profile, error) {
			return f.client.GetProfile(ctx)
		},
		func(p *api.Profile) poll.JobStatus {
			switch p.Status {
			case api.ProfileCompleted:
				return poll.JobCompleted
			case api.ProfileFailed:
				return poll.JobFailed
			case api.ProfileProcessing:
				return poll.JobProcessing
			default:
				return poll.JobPending
			}
		},
		poll.Options[*api.Profile]{
			Interval:       f.pollInterval,
			InitialDelay:   f.pollInitialDelay,
			MaxAttempts:    f.pollMaxAttempts,
			BackoffOnError: true,
			MaxBackoff:     f.pollMaxBackoff,
			OnSuccess: func(p *api.Profile) {
				f.mu.Lock()
				f.profile = p
				f.mu.Unlock()
				f.transition(StateReady, "")
			},
			OnError: func(err error) {
				if errors.Is(err, poll.ErrFailedResult) {
					last, _ := poller.Result()
					f.mu.Lock()
					f.profile = last
					f.mu.Unlock()
					f.transition(StateOnboarding, onboardingFailureNotice(last))
					return
				}
				f.transition(StateOnboarding, "profile computation timed out, please try again")
			},
		},
	)

	f.mu.Lock()
	f.poller = poller
	f.mu.Unlock()

	poller.Start(ctx)
}

// stopPoller tears down any active poll session without firing callbacks.
func (f *Flow) stopPoller() {
	f.mu.Lock()
	poller := f.poller
	f.poller = nil
	f.mu.Unlock()
	if poller != nil {
		poller.Stop()
	}
}

// PollerDone exposes the active poller's completion channel for callers
// that need to wait (plain CLI mode, tests). Returns a closed channel when
// no poll session is active.
func (f *Flow) PollerDone() <-chan struct{} {
	f.mu.Lock()
	poller := f.poller
	f.mu.Unlock()
	if poller == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return poller.Done()
}

// =============================================================================
// NOTICES
// =============================================================================

// onboardingFailureNotice builds the user-facing message for a failed
// profile computation.
func onboardingFailureNotice(p *api.Profile) string {
	if p != nil && p.FailureReason != "" {
		return fmt.Sprintf("profile computation failed: %s", p.FailureReason)
	}
	return "profile computation failed, please check your details and retry"
}

// submissionNotice maps a submit error to a friendly message.
func submissionNotice(err error) string {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	if errors.Is(err, api.ErrAuth) {
		return "your session is no longer valid, sign in again"
	}
	return "could not submit your details, try again"
}
