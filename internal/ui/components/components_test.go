// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/astraleph/astra-tui/internal/netmon"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

func TestConnBannerVisibility(t *testing.T) {
	b := NewConnBanner(styles.NewTheme())

	tests := []struct {
		level   netmon.Level
		online  bool
		visible bool
	}{
		{netmon.LevelExcellent, true, false},
		{netmon.LevelGood, true, false},
		{netmon.LevelFair, true, true},
		{netmon.LevelPoor, true, true},
		{netmon.LevelOffline, false, true},
	}
	for _, tt := range tests {
		b.SetHealth(netmon.Health{Online: tt.online, Level: tt.level})
		if got := b.Visible(); got != tt.visible {
			t.Errorf("level %s: Visible() = %v, want %v", tt.level, got, tt.visible)
		}
		if tt.visible && b.View() == "" {
			t.Errorf("level %s: visible banner rendered empty", tt.level)
		}
		if !tt.visible && b.View() != "" {
			t.Errorf("level %s: hidden banner rendered %q", tt.level, b.View())
		}
	}
}

func TestConnBannerOffline(t *testing.T) {
	b := NewConnBanner(styles.NewTheme())
	b.SetHealth(netmon.Health{Online: false, Level: netmon.LevelOffline})

	if !strings.Contains(b.View(), "offline") {
		t.Errorf("offline banner = %q", b.View())
	}
	if b.Indicator() == "" {
		t.Error("indicator should never be empty")
	}
}

func TestConnBannerShowsRTT(t *testing.T) {
	b := NewConnBanner(styles.NewTheme())
	b.SetHealth(netmon.Health{
		Online: true,
		Level:  netmon.LevelFair,
		Descriptors: netmon.Descriptors{
			Medium: netmon.MediumWifi,
			RTT:    250 * time.Millisecond,
		},
	})
	view := b.View()
	if !strings.Contains(view, "250ms") || !strings.Contains(view, "wifi") {
		t.Errorf("banner = %q", view)
	}
}

func TestWrapTextPreservesShortLines(t *testing.T) {
	in := "one\ntwo three"
	if got := wrapText(in, 40); got != in {
		t.Errorf("wrapText changed short input: %q", got)
	}
}

func TestWrapTextBreaksOnWords(t *testing.T) {
	got := wrapText("alpha beta gamma delta", 11)
	for _, line := range strings.Split(got, "\n") {
		if runewidth.StringWidth(line) > 11 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.ReplaceAll(got, "\n", " ") != "alpha beta gamma delta" {
		t.Errorf("words lost or reordered: %q", got)
	}
}

func TestWrapTextHardBreaksLongWords(t *testing.T) {
	got := wrapText(strings.Repeat("x", 30), 10)
	for _, line := range strings.Split(got, "\n") {
		if runewidth.StringWidth(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	// Double-width runes: 8 of them fill 16 columns.
	got := wrapText(strings.Repeat("星", 8), 8)
	for _, line := range strings.Split(got, "\n") {
		if runewidth.StringWidth(line) > 8 {
			t.Errorf("line %q exceeds display width", line)
		}
	}
}

func TestRenderMessageEmpty(t *testing.T) {
	theme := styles.NewTheme()
	if got := RenderMessage(theme, KindUser, "\n\n", 80); got != "" {
		t.Errorf("empty message rendered %q", got)
	}
}

func TestMarkdownFallback(t *testing.T) {
	m := NewMarkdown(true)
	m.SetWidth(60)

	out := m.Render("# Heading\n\nSome *emphasis* here.")
	if out == "" {
		t.Error("markdown rendered empty")
	}
	if !strings.Contains(out, "Heading") {
		t.Errorf("heading text lost: %q", out)
	}
}

func TestSpinnerLifecycle(t *testing.T) {
	s := NewSpinner(styles.NewTheme())
	if s.Active() {
		t.Error("spinner active before Start")
	}
	if s.View() != "" {
		t.Error("inactive spinner rendered output")
	}

	cmd := s.Start("consulting the stars")
	if cmd == nil {
		t.Error("Start returned no tick command")
	}
	if !s.Active() || s.View() == "" {
		t.Error("started spinner should be active and render")
	}
	if !strings.Contains(s.View(), "consulting the stars") {
		t.Errorf("spinner view = %q", s.View())
	}

	s.Stop()
	if s.Active() || s.View() != "" {
		t.Error("stopped spinner should be inert")
	}
}
