// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the bottom line: flow state, connectivity, key hints.
type StatusBar struct {
	theme  *styles.Theme
	banner *ConnBanner

	width     int
	flowState app.State
	streaming bool
}

// NewStatusBar creates a status bar sharing the banner's connectivity view.
func NewStatusBar(theme *styles.Theme, banner *ConnBanner) *StatusBar {
	return &StatusBar{theme: theme, banner: banner}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(w int) { s.width = w }

// SetFlowState records the application flow state.
func (s *StatusBar) SetFlowState(state app.State) { s.flowState = state }

// SetStreaming records whether a reply is currently streaming.
func (s *StatusBar) SetStreaming(v bool) { s.streaming = v }

// View renders the status bar line.
func (s *StatusBar) View() string {
	mode := s.flowState.String()
	if s.streaming {
		mode = "streaming"
	}

	left := s.theme.InfoStyle.Render(mode) + "  " + s.banner.Indicator()

	hints := []string{"enter send", "esc cancel", "ctrl+c quit"}
	var parts []string
	for _, h := range hints {
		key, desc, _ := strings.Cut(h, " ")
		parts = append(parts, s.theme.ShortcutKey.Render(key)+" "+s.theme.ShortcutDesc.Render(desc))
	}
	right := strings.Join(parts, "  ")

	if s.width <= 0 {
		return s.theme.StatusBar.Render(left + "  " + right)
	}

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return s.theme.StatusBar.Render(runewidth.Truncate(left, s.width-2, "..."))
	}
	return s.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}
