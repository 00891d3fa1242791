// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the astra TUI.
package components

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/astraleph/astra-tui/internal/netmon"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// =============================================================================
// CONNECTIVITY BANNER
// =============================================================================

// ConnBanner renders the connection health line fed by the network monitor.
// Advisory only: it never blocks input, requests keep flowing regardless of
// what it shows.
type ConnBanner struct {
	theme  *styles.Theme
	health netmon.Health
	width  int
}

// NewConnBanner creates a banner with an optimistic initial state.
func NewConnBanner(theme *styles.Theme) *ConnBanner {
	return &ConnBanner{
		theme:  theme,
		health: netmon.Health{Online: true, Level: netmon.LevelGood},
	}
}

// SetHealth updates the banner from a monitor snapshot.
func (b *ConnBanner) SetHealth(h netmon.Health) { b.health = h }

// SetWidth sets the render width.
func (b *ConnBanner) SetWidth(w int) { b.width = w }

// Visible reports whether the banner has something worth showing.
// Excellent and good connections render nothing: the banner only appears
// when the user should adjust expectations.
func (b *ConnBanner) Visible() bool {
	switch b.health.Level {
	case netmon.LevelExcellent, netmon.LevelGood:
		return false
	default:
		return true
	}
}

// View renders the banner line, empty when there is nothing to say.
func (b *ConnBanner) View() string {
	if !b.Visible() {
		return ""
	}

	if !b.health.Online {
		return b.fit(b.theme.ConnOffline.Render("offline - responses will resume when the connection returns"))
	}

	var style = b.theme.ConnFair
	if b.health.Level == netmon.LevelPoor {
		style = b.theme.ConnPoor
	}

	text := fmt.Sprintf("%s connection (%s", b.health.Level, b.health.Descriptors.Medium)
	if rtt := b.health.Descriptors.RTT; rtt > 0 {
		text += fmt.Sprintf(", %dms", rtt.Milliseconds())
	}
	text += ") - replies may be slow"
	return b.fit(style.Render(text))
}

// Indicator returns the compact status-bar fragment, always non-empty.
func (b *ConnBanner) Indicator() string {
	switch b.health.Level {
	case netmon.LevelExcellent:
		return b.theme.ConnExcellent.Render("**** " + string(b.health.Level))
	case netmon.LevelGood:
		return b.theme.ConnGood.Render("***- " + string(b.health.Level))
	case netmon.LevelFair:
		return b.theme.ConnFair.Render("**-- " + string(b.health.Level))
	case netmon.LevelPoor:
		return b.theme.ConnPoor.Render("*--- " + string(b.health.Level))
	default:
		return b.theme.ConnOffline.Render("offline")
	}
}

// fit truncates a rendered line to the banner width.
func (b *ConnBanner) fit(s string) string {
	if b.width <= 0 {
		return s
	}
	return runewidth.Truncate(s, b.width, "...")
}
