// astra - your chart, in conversation.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/cli"
	"github.com/astraleph/astra-tui/internal/config"
	"github.com/astraleph/astra-tui/internal/netmon"
	"github.com/astraleph/astra-tui/internal/storage"
	"github.com/astraleph/astra-tui/internal/ui/chat"
	"github.com/astraleph/astra-tui/internal/ui/onboard"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async message delivery (stream callbacks,
// monitor notifications, config reloads all originate off the Tea loop).
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func sendToProgram(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdChat:
		cli.HandleErrorAndExit(cli.HandleChat(args), args.JSON)
	case cli.CmdSend:
		cli.HandleErrorAndExit(cli.HandleSend(args), args.JSON)
	case cli.CmdSignIn:
		cli.HandleErrorAndExit(cli.HandleSignIn(args), args.JSON)
	case cli.CmdSignOut:
		cli.HandleErrorAndExit(cli.HandleSignOut(args), args.JSON)
	case cli.CmdOnboard:
		cli.HandleErrorAndExit(cli.HandleOnboard(args), args.JSON)
	case cli.CmdStatus:
		cli.HandleErrorAndExit(cli.HandleStatus(args), args.JSON)
	case cli.CmdSessions:
		cli.HandleErrorAndExit(cli.HandleSessions(args), args.JSON)
	case cli.CmdConfig:
		cli.HandleErrorAndExit(cli.HandleConfig(args), args.JSON)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(args cli.Args) {
	env, err := cli.BuildEnv(args)
	if err != nil {
		cli.HandleErrorAndExit(err, false)
	}

	history, err := env.OpenHistory()
	if err != nil {
		cli.HandleErrorAndExit(fmt.Errorf("open chat history: %w", err), false)
	}
	defer history.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	theme := styles.NewTheme()
	model := newAppModel(ctx, env, history, theme)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Flow transitions and health samples arrive from background
	// goroutines; forward them into the Tea loop.
	env.Flow.OnChange(func(s app.State) {
		sendToProgram(chat.FlowChangedMsg{State: s})
	})
	unsubscribe := env.Monitor.Subscribe(func(h netmon.Health) {
		sendToProgram(chat.HealthMsg{Health: h})
	})
	defer unsubscribe()

	env.Monitor.Start(ctx)
	defer env.Monitor.Stop()

	watchConfig(ctx, env)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// watchConfig applies config file edits while the TUI runs. Only the
// settings that are safe to change mid-session take effect live.
func watchConfig(ctx context.Context, env *cli.Env) {
	path, err := config.Path()
	if err != nil {
		return
	}
	go func() {
		_ = config.Watch(ctx, path, func(cfg *config.Config) {
			env.Client.WithVerbose(cfg.API.Verbose).
				WithMaxRetries(cfg.API.MaxRetries).
				WithTimeout(cfg.API.Timeout())
			sendToProgram(configReloadedMsg{cfg: cfg})
		})
	}()
}

// configReloadedMsg carries a re-read configuration into the Tea loop.
type configReloadedMsg struct {
	cfg *config.Config
}

// =============================================================================
// ROOT MODEL
// =============================================================================

// screen selects which child model owns the terminal.
type screen int

const (
	screenChat screen = iota
	screenOnboard
)

// appModel composes the chat view and the onboarding form, switching on
// flow state: Onboarding shows the form, everything else chats.
type appModel struct {
	ctx     context.Context
	env     *cli.Env
	history *storage.History
	theme   *styles.Theme

	screen screen
	chat   chat.Model
	form   onboard.Model

	width, height int
	bootstrapped  bool
}

func newAppModel(ctx context.Context, env *cli.Env, history *storage.History, theme *styles.Theme) appModel {
	return appModel{
		ctx:     ctx,
		env:     env,
		history: history,
		theme:   theme,
		chat:    chat.New(theme, env.Client, history, ""),
		form:    onboard.New(theme, ""),
	}
}

// bootstrapDoneMsg reports the initial flow state.
type bootstrapDoneMsg struct {
	state app.State
	err   error
}

func (m appModel) Init() tea.Cmd {
	bootstrap := func() tea.Msg {
		state, err := m.env.Bootstrap(m.ctx)
		return bootstrapDoneMsg{state: state, err: err}
	}
	return tea.Batch(m.chat.Init(), bootstrap)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		// Both children track size so switching screens never re-layouts.
		cm, cmd := m.chat.Update(msg)
		m.chat = cm.(chat.Model)
		fm, _ := m.form.Update(msg)
		m.form = fm.(onboard.Model)
		return m, cmd

	case bootstrapDoneMsg:
		m.bootstrapped = true
		return m.applyFlowState(msg.state)

	case chat.FlowChangedMsg:
		return m.applyFlowState(msg.State)

	case chat.HealthMsg:
		m.chat.SetHealth(msg.Health)
		return m, nil

	case configReloadedMsg:
		// Theme switches need a restart; live reload covers client tuning
		// only, which watchConfig already applied.
		return m, nil

	case onboard.SubmitMsg:
		return m, m.submitOnboarding(msg.Request)

	case onboard.CancelMsg:
		// Backing out of the form drops to guest chat.
		m.screen = screenChat
		return m, nil

	case submitFailedMsg:
		m.form.SetError(msg.message)
		return m, nil
	}

	return m.forward(msg)
}

// forward routes any other message to the active child.
func (m appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.screen == screenOnboard {
		fm, cmd := m.form.Update(msg)
		m.form = fm.(onboard.Model)
		return m, cmd
	}
	cm, cmd := m.chat.Update(msg)
	m.chat = cm.(chat.Model)
	return m, cmd
}

// applyFlowState switches screens to match the flow.
func (m appModel) applyFlowState(state app.State) (tea.Model, tea.Cmd) {
	switch state {
	case app.StateOnboarding:
		if m.screen != screenOnboard {
			m.form = onboard.New(m.theme, m.env.Flow.Notice())
			m.screen = screenOnboard
		}
		return m, m.form.Init()
	default:
		m.screen = screenChat
		return m, nil
	}
}

// submitFailedMsg carries a server-side onboarding rejection back to the form.
type submitFailedMsg struct {
	message string
}

// submitOnboarding sends the validated birth details off-loop. Success
// transitions the flow (AwaitingProfile), which arrives as FlowChangedMsg.
func (m appModel) submitOnboarding(req *api.OnboardingRequest) tea.Cmd {
	flow := m.env.Flow
	ctx := m.ctx
	return func() tea.Msg {
		if _, err := flow.SubmitOnboarding(ctx, req); err != nil {
			notice := flow.Notice()
			if notice == "" {
				notice = err.Error()
			}
			return submitFailedMsg{message: notice}
		}
		return chat.FlowChangedMsg{State: flow.State()}
	}
}

func (m appModel) View() string {
	if m.screen == screenOnboard {
		return m.form.View()
	}
	return m.chat.View()
}
