// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	// Styles must render without panicking regardless of terminal profile.
	for name, render := range map[string]func() string{
		"user bubble":      func() string { return theme.UserBubble.Render("hello") },
		"assistant bubble": func() string { return theme.AssistantBubble.Render("hello") },
		"notice bubble":    func() string { return theme.NoticeBubble.Render("hello") },
		"offline":          func() string { return theme.ConnOffline.Render("offline") },
		"form title":       func() string { return theme.FormTitle.Render("Your details") },
	} {
		if render() == "" {
			t.Errorf("%s rendered empty", name)
		}
	}
}

func TestCompact(t *testing.T) {
	theme := NewTheme()

	theme.SetSize(0, 0)
	if theme.Compact() {
		t.Error("unknown width should not be compact")
	}

	theme.SetSize(60, 24)
	if !theme.Compact() {
		t.Error("60 columns should be compact")
	}

	theme.SetSize(120, 40)
	if theme.Compact() {
		t.Error("120 columns should not be compact")
	}
}
