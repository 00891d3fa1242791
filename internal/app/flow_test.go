// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/config"
	"github.com/astraleph/astra-tui/internal/credential"
)

// newTestFlow wires a flow against a test backend with fast poll timing.
func newTestFlow(t *testing.T, serverURL string) *Flow {
	t.Helper()
	client := api.NewClient(serverURL).
		WithBackoff(time.Millisecond, 10*time.Millisecond).
		WithRateLimit(10000).
		WithCredential("test-token")
	creds := credential.NewStore(t.TempDir()).WithPassphrase("test")
	f := New(client, creds, config.PollConfig{MaxAttempts: 10})
	f.pollInterval = time.Millisecond
	f.pollInitialDelay = 0
	f.pollMaxBackoff = 10 * time.Millisecond
	return f
}

func profileJSON(status, reason string) string {
	p := fmt.Sprintf(`{"id":"u1","name":"Ada","status":%q`, status)
	if reason != "" {
		p += fmt.Sprintf(`,"failureReason":%q`, reason)
	}
	return `{"success":true,"data":` + p + `}}`
}

// TestOnboardingToReady walks the happy path: submit details, poll through
// processing, land in ready after exactly three profile fetches.
func TestOnboardingToReady(t *testing.T) {
	var profileGets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/onboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true,"data":{"uid":"u1","status":"processing"}}`))
	})
	mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
		n := profileGets.Add(1)
		status := api.ProfileProcessing
		if n >= 3 {
			status = api.ProfileCompleted
		}
		w.Write([]byte(profileJSON(status, "")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFlow(t, server.URL)

	req := &api.OnboardingRequest{
		Name:        "Ada",
		DateOfBirth: "1990-04-12",
		TimeOfBirth: "08:30",
		Place:       "Porto",
	}
	state, err := f.SubmitOnboarding(context.Background(), req)
	if err != nil {
		t.Fatalf("SubmitOnboarding: %v", err)
	}
	if state != StateAwaitingProfile {
		t.Fatalf("state after submit = %v, want awaiting-profile", state)
	}

	<-f.PollerDone()

	if f.State() != StateReady {
		t.Fatalf("state after poll = %v, want ready", f.State())
	}
	if got := profileGets.Load(); got != 3 {
		t.Errorf("profile fetched %d times, want exactly 3", got)
	}
	if p := f.Profile(); p == nil || !p.Completed() {
		t.Errorf("profile = %+v, want completed", p)
	}
}

// TestCheckProfileNotOnboarded verifies a 404 routes to onboarding in a
// single fetch, with no retries.
func TestCheckProfileNotOnboarded(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"no profile"}}`))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	state, err := f.CheckProfile(context.Background())
	if err != nil {
		t.Fatalf("CheckProfile: %v", err)
	}
	if state != StateOnboarding {
		t.Errorf("state = %v, want onboarding", state)
	}
	if gets.Load() != 1 {
		t.Errorf("profile fetched %d times, want 1", gets.Load())
	}
}

// TestCheckProfileServerErrorDoesNotAdvance verifies a 5xx leaves the state
// machine where it was and surfaces the error.
func TestCheckProfileServerErrorDoesNotAdvance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL","message":"boom"}}`))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	state, err := f.CheckProfile(context.Background())
	if err == nil {
		t.Fatal("expected error from 500 backend")
	}
	if state != StateUnauthenticated {
		t.Errorf("state = %v, want prior state preserved", state)
	}
	if f.Notice() == "" {
		t.Error("expected a user-facing notice")
	}
}

// TestCheckProfileCompleted verifies an already-complete profile goes
// straight to ready.
func TestCheckProfileCompleted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileJSON(api.ProfileCompleted, "")))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	state, err := f.CheckProfile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != StateReady {
		t.Errorf("state = %v, want ready", state)
	}
}

// TestCheckProfileProcessingResumesPolling verifies a processing profile on
// entry resumes the wait instead of re-onboarding.
func TestCheckProfileProcessingResumesPolling(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := api.ProfileProcessing
		if gets.Add(1) >= 3 {
			status = api.ProfileCompleted
		}
		w.Write([]byte(profileJSON(status, "")))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	state, err := f.CheckProfile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != StateAwaitingProfile {
		t.Fatalf("state = %v, want awaiting-profile", state)
	}

	<-f.PollerDone()
	if f.State() != StateReady {
		t.Errorf("state after poll = %v, want ready", f.State())
	}
}

// TestFailedComputationReturnsToOnboarding verifies a failed profile routes
// back to onboarding with the backend's reason in the notice.
func TestFailedComputationReturnsToOnboarding(t *testing.T) {
	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/onboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true,"data":{"uid":"u1","status":"processing"}}`))
	})
	mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
		status := api.ProfileProcessing
		if gets.Add(1) >= 2 {
			status = api.ProfileFailed
		}
		w.Write([]byte(profileJSON(status, "could not resolve birthplace")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFlow(t, server.URL)

	req := &api.OnboardingRequest{
		Name:        "Ada",
		DateOfBirth: "1990-04-12",
		TimeOfBirth: "08:30",
		Place:       "Nowhere",
	}
	if _, err := f.SubmitOnboarding(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	<-f.PollerDone()

	if f.State() != StateOnboarding {
		t.Fatalf("state = %v, want onboarding", f.State())
	}
	if notice := f.Notice(); notice != "profile computation failed: could not resolve birthplace" {
		t.Errorf("notice = %q", notice)
	}
}

// TestSubmitRejectsInvalidDetails verifies client-side validation blocks the
// request before any network call.
func TestSubmitRejectsInvalidDetails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	_, err := f.SubmitOnboarding(context.Background(), &api.OnboardingRequest{Name: "Ada"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("backend called %d times for invalid input", calls.Load())
	}
}

// TestBootstrapWithoutCredential verifies a fresh start lands in
// unauthenticated without touching the network.
func TestBootstrapWithoutCredential(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := api.NewClient(server.URL).WithRateLimit(10000)
	creds := credential.NewStore(t.TempDir()).WithPassphrase("test")
	f := New(client, creds, config.PollConfig{})

	state, err := f.Bootstrap(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", state)
	}
	if calls.Load() != 0 {
		t.Errorf("backend called %d times without a credential", calls.Load())
	}
}

// TestSignInPersistsCredential verifies SignIn saves the token and runs the
// profile check, and a subsequent Bootstrap reuses the stored token.
func TestSignInPersistsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"bad token"}}`))
			return
		}
		w.Write([]byte(profileJSON(api.ProfileCompleted, "")))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := api.NewClient(server.URL).WithRateLimit(10000)
	creds := credential.NewStore(dir).WithPassphrase("test")
	f := New(client, creds, config.PollConfig{})

	state, err := f.SignIn(context.Background(), "tok-123")
	if err != nil {
		t.Fatal(err)
	}
	if state != StateReady {
		t.Fatalf("state after sign-in = %v, want ready", state)
	}

	// Fresh flow, same store: the persisted token must be picked up.
	client2 := api.NewClient(server.URL).WithRateLimit(10000)
	f2 := New(client2, credential.NewStore(dir).WithPassphrase("test"), config.PollConfig{})
	state, err = f2.Bootstrap(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != StateReady {
		t.Errorf("state after bootstrap = %v, want ready", state)
	}
}

// TestSignOut verifies sign-out clears the credential and any poll session.
func TestSignOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileJSON(api.ProfileProcessing, "")))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)
	if _, err := f.CheckProfile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateAwaitingProfile {
		t.Fatalf("state = %v", f.State())
	}

	if err := f.SignOut(); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", f.State())
	}
	if f.Client().HasCredential() {
		t.Error("credential still set after sign-out")
	}
	select {
	case <-f.PollerDone():
	case <-time.After(time.Second):
		t.Error("poller still running after sign-out")
	}
}

// TestOnChangeNotifications verifies transitions reach the listener in order.
func TestOnChangeNotifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileJSON(api.ProfileCompleted, "")))
	}))
	defer server.Close()

	f := newTestFlow(t, server.URL)

	var states []State
	f.OnChange(func(s State) { states = append(states, s) })

	if _, err := f.CheckProfile(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []State{StateLoading, StateReady}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, states[i], want[i])
		}
	}
}
