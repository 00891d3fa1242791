// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/netmon"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamStartMsg signals the stream handle is open.
type StreamStartMsg struct {
	Handle *api.StreamHandle
}

// StreamTokenMsg carries one decoded chunk off the stream goroutine.
type StreamTokenMsg struct {
	Chunk string
}

// StreamTickMsg drives buffered-flush rendering at the frame cap.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg signals clean stream completion with the full reply.
type StreamCompleteMsg struct {
	Full string
}

// StreamErrorMsg signals terminal stream failure. Partial carries whatever
// arrived before the failure.
type StreamErrorMsg struct {
	Err     error
	Partial string
}

// FlowChangedMsg reports an application flow transition.
type FlowChangedMsg struct {
	State app.State
}

// HealthMsg reports a connectivity snapshot from the network monitor.
type HealthMsg struct {
	Health netmon.Health
}

// =============================================================================
// STREAM BRIDGE
// =============================================================================

// streamEvent is the internal union forwarded from stream callbacks.
type streamEvent struct {
	chunk    string
	full     string
	err      error
	partial  string
	complete bool
	failed   bool
}

// streamBridge forwards stream callbacks into the Bubble Tea loop. Callbacks
// fire on the stream goroutine; the model drains the channel with awaitStream
// commands.
type streamBridge struct {
	events chan streamEvent
}

func newStreamBridge() *streamBridge {
	// Buffered so a burst of chunks never blocks the reader loop.
	return &streamBridge{events: make(chan streamEvent, 64)}
}

// callbacks builds the api callbacks feeding this bridge.
func (b *streamBridge) callbacks() api.StreamCallbacks {
	return api.StreamCallbacks{
		OnChunk: func(text string) {
			b.events <- streamEvent{chunk: text}
		},
		OnComplete: func(full string) {
			b.events <- streamEvent{full: full, complete: true}
		},
		OnError: func(err error) {
			ev := streamEvent{err: err, failed: true}
			var streamErr *api.StreamError
			if errors.As(err, &streamErr) {
				ev.partial = streamErr.Partial
			}
			b.events <- ev
		},
	}
}

// await returns a command that delivers the next stream event as a message.
func (b *streamBridge) await() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-b.events
		if !ok {
			return nil
		}
		switch {
		case ev.complete:
			return StreamCompleteMsg{Full: ev.full}
		case ev.failed:
			return StreamErrorMsg{Err: ev.err, Partial: ev.partial}
		default:
			return StreamTokenMsg{Chunk: ev.chunk}
		}
	}
}
