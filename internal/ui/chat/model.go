// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/netmon"
	"github.com/astraleph/astra-tui/internal/storage"
	"github.com/astraleph/astra-tui/internal/ui/components"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State is the chat view's own state, distinct from the application flow.
type State int

const (
	StateReady     State = iota // accepting input
	StateStreaming              // reply streaming in
)

// turn is one rendered conversation entry.
type turn struct {
	kind    components.MessageKind
	content string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme
	keys  KeyMap

	width  int
	height int

	// Widgets
	input    textinput.Model
	viewport viewport.Model
	spinner  components.Spinner
	banner   *components.ConnBanner
	status   *components.StatusBar
	markdown *components.Markdown

	// Conversation
	turns     []turn
	sessionID string

	// Streaming
	client  *api.Client
	handle  *api.StreamHandle
	slot    api.StreamSlot
	bridge  *streamBridge
	buffer  *StreamingBuffer
	partial string

	// History persistence, optional
	history *storage.History

	err error
}

// New creates the chat view. history may be nil to disable persistence.
func New(theme *styles.Theme, client *api.Client, history *storage.History, sessionID string) Model {
	input := textinput.New()
	input.Placeholder = "Ask the stars anything..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 4000
	input.Focus()

	banner := components.NewConnBanner(theme)

	return Model{
		state:     StateReady,
		theme:     theme,
		keys:      DefaultKeyMap(),
		input:     input,
		viewport:  viewport.New(80, 20),
		spinner:   components.NewSpinner(theme),
		banner:    banner,
		status:    components.NewStatusBar(theme, banner),
		markdown:  components.NewMarkdown(theme.IsDark),
		client:    client,
		history:   history,
		buffer:    NewStreamingBuffer(),
		sessionID: sessionID,
	}
}

// SessionID returns the current backend session ID, empty until assigned.
func (m *Model) SessionID() string { return m.sessionID }

// LoadHistory seeds the conversation from stored messages.
func (m *Model) LoadHistory(ctx context.Context) error {
	if m.history == nil || m.sessionID == "" {
		return nil
	}
	msgs, err := m.history.Messages(ctx, m.sessionID)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		kind := components.KindAssistant
		if msg.Role == storage.RoleUser {
			kind = components.KindUser
		}
		m.turns = append(m.turns, turn{kind: kind, content: msg.Content})
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StreamStartMsg:
		m.handle = msg.Handle
		m.slot.Swap(msg.Handle)
		return m, tea.Batch(m.bridge.await(), streamTickCmd())
	case StreamTokenMsg:
		m.buffer.Write(msg.Chunk)
		return m, m.bridge.await()
	case StreamTickMsg:
		return m.handleStreamTick()
	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)
	case StreamErrorMsg:
		return m.handleStreamError(msg)
	case HealthMsg:
		m.banner.SetHealth(msg.Health)
		return m, nil
	default:
		cmd := m.spinner.Update(msg)
		return m, cmd
	}
}

// handleResize relays the new dimensions to every widget.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header, banner, input, status bar.
	chrome := 5
	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-chrome, 3)
	m.input.Width = max(msg.Width-6, 10)
	m.banner.SetWidth(msg.Width)
	m.status.SetWidth(msg.Width)
	m.markdown.SetWidth(max(msg.Width-4, 20))

	m.refreshViewport()
	return m, nil
}

// handleKey routes key presses by chat state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelStream()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			return m.handleCancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.state == StateReady {
			return m.handleSubmit()
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the typed message and opens the reply stream.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.input.Reset()
	m.err = nil
	m.turns = append(m.turns, turn{kind: components.KindUser, content: text})
	m.persist(storage.RoleUser, text)

	m.state = StateStreaming
	m.status.SetStreaming(true)
	m.partial = ""
	m.buffer.Reset()
	m.bridge = newStreamBridge()

	bridge := m.bridge
	client := m.client
	sessionID := m.sessionID
	spinCmd := m.spinner.Start("consulting the stars")

	start := func() tea.Msg {
		handle := client.StreamChat(context.Background(), text, sessionID, bridge.callbacks())
		return StreamStartMsg{Handle: handle}
	}

	m.refreshViewport()
	return m, tea.Batch(start, spinCmd)
}

// handleCancel aborts the in-flight stream, keeping any partial text.
func (m Model) handleCancel() (tea.Model, tea.Cmd) {
	m.cancelStream()
	m.finishTurn(m.partial + m.drainAll())
	if last := len(m.turns) - 1; last >= 0 && m.turns[last].content == "" {
		m.turns = m.turns[:last]
	}
	m.turns = append(m.turns, turn{kind: components.KindNotice, content: "reply cancelled"})
	m.refreshViewport()
	return m, nil
}

// handleStreamTick flushes buffered chunks into the partial reply.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if content, ok := m.buffer.Flush(); ok {
		m.spinner.Stop()
		m.partial += content
		m.refreshViewport()
	}
	return m, streamTickCmd()
}

// handleStreamComplete lands the final reply.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	m.finishTurn(msg.Full)
	m.persist(storage.RoleAssistant, msg.Full)
	m.refreshViewport()
	return m, nil
}

// handleStreamError keeps the partial text and shows a notice.
func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	partial := msg.Partial
	if partial == "" {
		partial = m.partial + m.drainAll()
	}
	m.finishTurn(partial)
	if partial != "" {
		m.persist(storage.RoleAssistant, partial)
	}
	m.err = msg.Err
	m.turns = append(m.turns, turn{kind: components.KindNotice, content: noticeFor(msg.Err)})
	m.refreshViewport()
	return m, nil
}

// finishTurn closes the streaming state and records the assistant turn.
func (m *Model) finishTurn(content string) {
	m.state = StateReady
	m.status.SetStreaming(false)
	m.spinner.Stop()
	m.partial = ""
	m.buffer.Reset()
	if content != "" {
		m.turns = append(m.turns, turn{kind: components.KindAssistant, content: content})
	}
}

// cancelStream cancels the active handle, if any.
func (m *Model) cancelStream() {
	m.slot.Cancel()
	m.handle = nil
}

// drainAll force-flushes the buffer tail.
func (m *Model) drainAll() string {
	content, _ := m.buffer.ForceFlush()
	return content
}

// persist writes one turn to history, best effort.
func (m *Model) persist(role storage.Role, content string) {
	if m.history == nil || m.sessionID == "" || content == "" {
		return
	}
	// History failures never interrupt the conversation.
	_, _ = m.history.AppendMessage(context.Background(), m.sessionID, role, content)
}

// noticeFor maps a stream error to a short user-facing message.
func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case api.IsTimeout(err):
		return "the stars are slow to answer, try again"
	default:
		var httpErr *api.HTTPError
		if errors.As(err, &httpErr) && httpErr.Message != "" {
			return httpErr.Message
		}
		return "connection lost, your partial reply is kept"
	}
}

// SetHealth feeds a connectivity snapshot outside the message loop,
// for callers that poll instead of subscribing.
func (m *Model) SetHealth(h netmon.Health) { m.banner.SetHealth(h) }
