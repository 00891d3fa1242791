// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedProber returns canned probe outcomes in order, repeating the last.
type scriptedProber struct {
	mu    sync.Mutex
	rtts  []time.Duration
	errs  []error
	calls int
}

func (p *scriptedProber) Health(ctx context.Context) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.rtts) {
		i = len(p.rtts) - 1
	}
	p.calls++
	return p.rtts[i], p.errs[i]
}

func (p *scriptedProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// TestMonitorStartsOptimistic verifies the monitor reports online before any
// probe has run.
func TestMonitorStartsOptimistic(t *testing.T) {
	m := NewMonitor(&scriptedProber{rtts: []time.Duration{0}, errs: []error{nil}}, Options{})
	h := m.Health()
	if !h.Online {
		t.Error("expected online before first probe")
	}
	if h.Level == LevelOffline {
		t.Error("expected non-offline level before first probe")
	}
}

// TestMonitorGoesOfflineAfterConsecutiveFailures verifies one failed probe is
// tolerated but the second flips the monitor offline with score zero.
func TestMonitorGoesOfflineAfterConsecutiveFailures(t *testing.T) {
	probeErr := errors.New("connection refused")
	p := &scriptedProber{
		rtts: []time.Duration{0, 0},
		errs: []error{probeErr, probeErr},
	}
	m := NewMonitor(p, Options{DownlinkMbps: 50})

	h := m.SampleNow(context.Background())
	if !h.Online {
		t.Fatal("single failure should not flip offline")
	}

	h = m.SampleNow(context.Background())
	if h.Online {
		t.Fatal("second consecutive failure should flip offline")
	}
	if h.Score != 0 {
		t.Errorf("offline score = %d, want 0", h.Score)
	}
	if h.Level != LevelOffline {
		t.Errorf("offline level = %v", h.Level)
	}
}

// TestMonitorRecovers verifies a successful probe resets the failure count
// and restores online with fresh descriptors.
func TestMonitorRecovers(t *testing.T) {
	probeErr := errors.New("timeout")
	p := &scriptedProber{
		rtts: []time.Duration{0, 0, 40 * time.Millisecond},
		errs: []error{probeErr, probeErr, nil},
	}
	m := NewMonitor(p, Options{DownlinkMbps: 50})

	ctx := context.Background()
	m.SampleNow(ctx)
	m.SampleNow(ctx)
	h := m.SampleNow(ctx)

	if !h.Online {
		t.Fatal("expected recovery to online")
	}
	if h.Descriptors.RTT != 40*time.Millisecond {
		t.Errorf("RTT = %v", h.Descriptors.RTT)
	}
	if h.Descriptors.Generation != Gen4G {
		t.Errorf("generation = %v, want 4g", h.Descriptors.Generation)
	}
	if h.Score == 0 {
		t.Error("expected non-zero score after recovery")
	}
}

// TestMonitorHistoryBounded verifies the FIFO cap evicts oldest samples.
func TestMonitorHistoryBounded(t *testing.T) {
	p := &scriptedProber{rtts: []time.Duration{20 * time.Millisecond}, errs: []error{nil}}
	m := NewMonitor(p, Options{HistorySize: 5})

	ctx := context.Background()
	for i := 0; i < 12; i++ {
		m.SampleNow(ctx)
	}

	h := m.Health()
	if len(h.History) != 5 {
		t.Errorf("history length = %d, want 5", len(h.History))
	}
	// Newest last.
	for i := 1; i < len(h.History); i++ {
		if h.History[i].Timestamp.Before(h.History[i-1].Timestamp) {
			t.Error("history not in chronological order")
		}
	}
}

// TestMonitorSubscribe verifies listeners receive every sample and
// unsubscribe stops delivery.
func TestMonitorSubscribe(t *testing.T) {
	p := &scriptedProber{rtts: []time.Duration{20 * time.Millisecond}, errs: []error{nil}}
	m := NewMonitor(p, Options{})

	var mu sync.Mutex
	var received []Health
	unsubscribe := m.Subscribe(func(h Health) {
		mu.Lock()
		received = append(received, h)
		mu.Unlock()
	})

	ctx := context.Background()
	m.SampleNow(ctx)
	m.SampleNow(ctx)

	unsubscribe()
	unsubscribe() // twice is harmless
	m.SampleNow(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Errorf("received %d notifications, want 2", len(received))
	}
	for _, h := range received {
		if !h.Online {
			t.Error("expected online snapshots")
		}
	}
}

// TestMonitorStartStop verifies the loop probes immediately, a second Start
// is a no-op, and Stop waits for exit.
func TestMonitorStartStop(t *testing.T) {
	p := &scriptedProber{rtts: []time.Duration{20 * time.Millisecond}, errs: []error{nil}}
	m := NewMonitor(p, Options{ProbeInterval: time.Hour})

	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx)

	deadline := time.After(time.Second)
	for p.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("loop never probed")
		case <-time.After(time.Millisecond):
		}
	}

	m.Stop()
	m.Stop()

	if got := p.callCount(); got != 1 {
		t.Errorf("expected exactly 1 probe (immediate, one loop), got %d", got)
	}
}
