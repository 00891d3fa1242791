// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Markdown renders assistant replies through glamour. The renderer is
// rebuilt lazily when the wrap width changes; glamour renderer construction
// is expensive enough to cache.
type Markdown struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdown creates a renderer for the given theme variant.
func NewMarkdown(dark bool) *Markdown {
	return &Markdown{dark: dark}
}

// SetWidth sets the wrap width, invalidating the cached renderer on change.
func (m *Markdown) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width != m.width {
		m.width = width
		m.renderer = nil
	}
}

// Render renders markdown to ANSI. On any renderer failure the raw text is
// returned: a reply must never be lost to a formatting problem.
func (m *Markdown) Render(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer == nil {
		style := glamour.WithStandardStyle("light")
		if m.dark {
			style = glamour.WithStandardStyle("dark")
		}
		width := m.width
		if width <= 0 {
			width = 80
		}
		r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width), glamour.WithEmoji())
		if err != nil {
			return text
		}
		m.renderer = r
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}
