// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netmon

import (
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// SAMPLES AND SNAPSHOTS
// =============================================================================

// Sample is one recorded observation.
type Sample struct {
	Timestamp   time.Time
	Online      bool
	Descriptors Descriptors
}

// Health is a point-in-time snapshot of the monitor's view.
type Health struct {
	Online      bool
	Descriptors Descriptors
	Score       int
	Level       Level
	History     []Sample // newest last
}

// Prober measures backend reachability and round-trip time.
// *api.Client satisfies this with its Health method.
type Prober interface {
	Health(ctx context.Context) (time.Duration, error)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Default tuning values.
const (
	DefaultProbeInterval = 15 * time.Second
	DefaultHistorySize   = 20

	// offlineThreshold is the number of consecutive failed probes before
	// the monitor reports offline.
	offlineThreshold = 2
)

// Options configures a Monitor.
type Options struct {
	// ProbeInterval between liveness probes. Defaults to DefaultProbeInterval.
	ProbeInterval time.Duration

	// HistorySize caps the bounded FIFO of samples. Defaults to DefaultHistorySize.
	HistorySize int

	// DownlinkMbps is the assumed downlink bandwidth; a terminal client has
	// no cheap way to measure it, so it is configuration supplied.
	DownlinkMbps float64

	// SaveData signals a reduced-data preference.
	SaveData bool
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = DefaultProbeInterval
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	return o
}

// =============================================================================
// MONITOR
// =============================================================================

// Monitor tracks connectivity to the backend. It is explicitly constructed
// and carries its own lifecycle (Start/Stop); there is no package singleton,
// which keeps tests isolated.
type Monitor struct {
	prober Prober
	opts   Options

	mu       sync.Mutex
	online   bool
	desc     Descriptors
	history  []Sample
	failures int
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Health)
	nextSub int
}

// NewMonitor creates a monitor probing via p. The monitor starts optimistic
// (online) until the first probe says otherwise.
func NewMonitor(p Prober, opts Options) *Monitor {
	return &Monitor{
		prober: p,
		opts:   opts.withDefaults(),
		online: true,
		desc: Descriptors{
			Medium:       MediumUnknown,
			Generation:   GenNone,
			DownlinkMbps: opts.DownlinkMbps,
			SaveData:     opts.SaveData,
		},
		subs: make(map[int]func(Health)),
	}
}

// Start launches the periodic probe loop. Starting a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.loop(runCtx, done)
}

// Stop halts the probe loop and waits for it to exit. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
}

// Health returns the current snapshot, including a copy of the history.
func (m *Monitor) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a listener invoked after every sample.
// The returned function unsubscribes; calling it twice is harmless.
func (m *Monitor) Subscribe(fn func(Health)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// SampleNow performs one probe immediately, outside the periodic loop.
func (m *Monitor) SampleNow(ctx context.Context) Health {
	return m.sample(ctx)
}

// =============================================================================
// PROBE LOOP
// =============================================================================

// loop probes once immediately, then on every tick.
func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.sample(ctx)

	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

// sample performs one probe, records it, and notifies subscribers.
func (m *Monitor) sample(ctx context.Context) Health {
	rtt, err := m.prober.Health(ctx)
	if ctx.Err() != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.snapshotLocked()
	}

	medium := detectMedium()

	m.mu.Lock()
	if err != nil {
		m.failures++
		if m.failures >= offlineThreshold {
			m.online = false
		}
	} else {
		m.failures = 0
		m.online = true
		m.desc.RTT = rtt
		m.desc.Generation = generationFor(rtt, m.desc.DownlinkMbps)
	}
	m.desc.Medium = medium

	s := Sample{Timestamp: time.Now(), Online: m.online, Descriptors: m.desc}
	m.history = append(m.history, s)
	if len(m.history) > m.opts.HistorySize {
		// Bounded FIFO: oldest evicted first.
		m.history = m.history[len(m.history)-m.opts.HistorySize:]
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
	return snapshot
}

// snapshotLocked builds a Health snapshot. Caller holds m.mu.
func (m *Monitor) snapshotLocked() Health {
	score := Score(m.online, m.desc)
	history := make([]Sample, len(m.history))
	copy(history, m.history)
	return Health{
		Online:      m.online,
		Descriptors: m.desc,
		Score:       score,
		Level:       LevelFor(m.online, score),
		History:     history,
	}
}

// notify delivers a snapshot to every subscriber outside the state lock.
func (m *Monitor) notify(h Health) {
	m.subMu.Lock()
	listeners := make([]func(Health), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.subMu.Unlock()

	for _, fn := range listeners {
		fn(h)
	}
}

// =============================================================================
// MEDIUM DETECTION
// =============================================================================

// detectMedium inspects local interfaces and guesses the physical medium of
// the default route by name convention. Best effort; unknown is fine.
func detectMedium() Medium {
	ifaces, err := net.Interfaces()
	if err != nil {
		return MediumUnknown
	}

	best := MediumUnknown
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		switch m := mediumForName(iface.Name); m {
		case MediumEthernet:
			// Wired wins outright.
			return MediumEthernet
		case MediumWifi:
			best = MediumWifi
		case MediumCellular:
			if best == MediumUnknown {
				best = MediumCellular
			}
		case MediumLowPower:
			if best == MediumUnknown {
				best = MediumLowPower
			}
		}
	}
	return best
}

// mediumForName classifies an interface by naming convention, with a sysfs
// wireless check on Linux.
func mediumForName(name string) Medium {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "wl"), strings.HasPrefix(lower, "wifi"), strings.HasPrefix(lower, "ath"):
		return MediumWifi
	case strings.HasPrefix(lower, "wwan"), strings.HasPrefix(lower, "rmnet"), strings.HasPrefix(lower, "ppp"):
		return MediumCellular
	case strings.HasPrefix(lower, "bnep"), strings.HasPrefix(lower, "pan"):
		return MediumLowPower
	case strings.HasPrefix(lower, "eth"), strings.HasPrefix(lower, "en"), strings.HasPrefix(lower, "em"):
		// macOS "en0" can be wifi; sysfs settles it where available.
		if _, err := os.Stat("/sys/class/net/" + name + "/wireless"); err == nil {
			return MediumWifi
		}
		return MediumEthernet
	default:
		return MediumUnknown
	}
}
