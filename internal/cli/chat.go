// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for plain terminals.
//
// Command: chat
// Short:   Interactive chat without the full-screen TUI
//
// Examples:
//   astra chat                        Start a new chat session
//   astra chat --session ID           Resume a saved session
//   astra chat --plain                Disable markdown rendering
//
// Interactive commands:
//   /help               Show available commands
//   /new                Start a fresh session
//   /sessions           List saved sessions
//   /status             Show flow and connection state
//   /quit               Exit (also Ctrl+D)
//   Ctrl+C              Cancel the in-flight reply

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/config"
	"github.com/astraleph/astra-tui/internal/storage"
	"github.com/astraleph/astra-tui/internal/ui/components"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI wraps liner with persistent input history. Arrow keys navigate
// previous prompts across sessions.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the liner state and loads saved input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "input_history"),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists input history (0600) and restores the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession holds the live REPL state.
type chatSession struct {
	env       *Env
	history   *storage.History
	input     *ChatCLI
	markdown  *components.Markdown
	sessionID string
	plain     bool
	quiet     bool
	turns     int
}

// HandleChat runs the interactive REPL until /quit or Ctrl+D.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	env, err := BuildEnv(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	state, err := env.Bootstrap(ctx)
	if err != nil && state == app.StateUnauthenticated {
		// Guests can still chat; warn and continue.
		fmt.Println(styled(warnStyle, "backend check failed: "+friendlyMessage(err)))
	}

	history, err := env.OpenHistory()
	if err != nil {
		return fmt.Errorf("open chat history: %w", err)
	}
	defer history.Close()

	sessionID := args.Parser.Flag("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session := &chatSession{
		env:       env,
		history:   history,
		input:     NewChatCLI(),
		markdown:  components.NewMarkdown(env.Cfg.UI.Theme != "light"),
		sessionID: sessionID,
		plain:     args.Plain || !env.Cfg.UI.Markdown,
		quiet:     args.Quiet,
	}
	defer session.input.Close()
	session.markdown.SetWidth(GetTerminalWidth())

	session.printWelcome(state)
	if args.Parser.Flag("session") != "" {
		session.printTranscript(ctx)
	}

	for {
		input, err := session.input.ReadInput(styled(promptStyle, "you> "))
		if err != nil {
			// Ctrl+C at the prompt aborts the line, Ctrl+D exits.
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := session.handleSlashCommand(ctx, input); quit {
				break
			}
			continue
		}

		if err := session.sendStreaming(ctx, input); err != nil {
			DisplayError(err, false)
		}
	}

	session.printExitSummary()
	return nil
}

// =============================================================================
// STREAMING
// =============================================================================

// sendStreaming streams one reply to stdout, token by token. Ctrl+C
// cancels the stream without exiting the REPL; whatever arrived stays on
// screen and in history.
func (s *chatSession) sendStreaming(ctx context.Context, message string) error {
	s.persist(ctx, storage.RoleUser, message)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-streamCtx.Done():
		}
	}()

	var mu sync.Mutex
	var accumulated strings.Builder
	result := make(chan error, 1)

	fmt.Println()
	handle := s.env.Client.StreamChat(streamCtx, message, s.sessionID, api.StreamCallbacks{
		OnChunk: func(chunk string) {
			mu.Lock()
			accumulated.WriteString(chunk)
			mu.Unlock()
			fmt.Print(chunk)
		},
		OnComplete: func(full string) {
			result <- nil
		},
		OnError: func(err error) {
			result <- err
		},
	})

	var streamErr error
	select {
	case streamErr = <-result:
	case <-handle.Done():
		// Done also covers cancellation, where no callback fires; drain
		// any outcome that raced the close.
		select {
		case streamErr = <-result:
		default:
		}
	}
	fmt.Println()
	fmt.Println()

	mu.Lock()
	reply := accumulated.String()
	mu.Unlock()

	if handle.State() == api.StreamCancelled {
		fmt.Println(styled(mutedStyle, "(reply cancelled)"))
	}

	if reply != "" {
		s.persist(ctx, storage.RoleAssistant, reply)
		s.turns++
		// Raw tokens already printed; re-render once when markdown is on.
		if !s.plain && streamErr == nil && handle.State() == api.StreamCompleted {
			s.rerenderLast(reply)
		}
	}

	if streamErr != nil {
		var se *api.StreamError
		if errors.As(streamErr, &se) && se.Partial != "" {
			return fmt.Errorf("stream interrupted, partial reply kept: %w", streamErr)
		}
		return streamErr
	}
	return nil
}

// rerenderLast replaces the raw streamed text with a markdown rendering.
// The raw text stays in the scrollback; the rendered form prints after.
func (s *chatSession) rerenderLast(reply string) {
	if !strings.ContainsAny(reply, "*_`#[") {
		return // no markdown constructs, raw text reads fine
	}
	fmt.Println(renderSeparator())
	fmt.Println(s.markdown.Render(reply))
}

// persist best-effort appends to the session transcript.
func (s *chatSession) persist(ctx context.Context, role storage.Role, content string) {
	if _, err := s.history.AppendMessage(ctx, s.sessionID, role, content); err != nil && !s.quiet {
		fmt.Fprintln(os.Stderr, styled(mutedStyle, "history write failed: "+err.Error()))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes a REPL command. Returns true to exit.
func (s *chatSession) handleSlashCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h":
		s.printHelp()
	case "/new":
		s.sessionID = uuid.NewString()
		s.turns = 0
		fmt.Println(styled(mutedStyle, "started a new session"))
	case "/sessions":
		s.listSessions(ctx)
	case "/status":
		fmt.Printf("state: %s  session: %s  turns: %d\n",
			s.env.Flow.State(), s.sessionID, s.turns)
	default:
		fmt.Println(styled(warnStyle, "unknown command, try /help"))
	}
	return false
}

func (s *chatSession) listSessions(ctx context.Context) {
	sessions, err := s.history.ListSessions(ctx, 20)
	if err != nil {
		DisplayError(err, false)
		return
	}
	if len(sessions) == 0 {
		fmt.Println(styled(mutedStyle, "no saved sessions"))
		return
	}
	for _, sess := range sessions {
		fmt.Printf("%s  %s  %s\n",
			styled(valueStyle, sess.ID),
			styled(mutedStyle, formatTimestamp(sess.UpdatedAt)),
			sess.Title)
	}
}

// printTranscript replays a resumed session.
func (s *chatSession) printTranscript(ctx context.Context) {
	messages, err := s.history.Messages(ctx, s.sessionID)
	if err != nil || len(messages) == 0 {
		return
	}
	for _, msg := range messages {
		prefix := "you> "
		if msg.Role == storage.RoleAssistant {
			prefix = "astra> "
		}
		fmt.Println(styled(mutedStyle, prefix) + msg.Content)
	}
	fmt.Println(renderSeparator())
}

// =============================================================================
// DISPLAY
// =============================================================================

func (s *chatSession) printWelcome(state app.State) {
	if s.quiet {
		return
	}
	fmt.Println(styled(headerStyle, "astra"))
	switch state {
	case app.StateReady:
		fmt.Println(styled(mutedStyle, "personalized readings enabled"))
	case app.StateUnauthenticated:
		fmt.Println(styled(mutedStyle, "chatting as guest; `astra signin` unlocks personalization"))
	case app.StateOnboarding:
		fmt.Println(styled(mutedStyle, "run `astra onboard` to unlock personalized readings"))
	case app.StateAwaitingProfile:
		fmt.Println(styled(mutedStyle, "your profile is computing; readings personalize when it finishes"))
	}
	fmt.Println(styled(mutedStyle, "/help for commands, Ctrl+D to exit"))
	fmt.Println()
}

func (s *chatSession) printHelp() {
	fmt.Println(`Commands:
  /help        Show this help
  /new         Start a fresh session
  /sessions    List saved sessions
  /status      Show flow and session state
  /quit        Exit chat
  Ctrl+C       Cancel the current reply
  Ctrl+D       Exit chat`)
}

func (s *chatSession) printExitSummary() {
	if s.quiet || s.turns == 0 {
		return
	}
	fmt.Printf("%s %d %s in session %s\n",
		styled(mutedStyle, "saved"), s.turns,
		pluralize(s.turns, "reply", "replies"), s.sessionID)
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
