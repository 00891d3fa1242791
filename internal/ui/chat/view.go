// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/astraleph/astra-tui/internal/ui/components"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Header.Render(
		m.theme.HeaderTitle.Render("astra") + " " +
			m.theme.HeaderSubtitle.Render("your chart, in conversation")))
	b.WriteString("\n")

	if banner := m.banner.View(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if spin := m.spinner.View(); spin != "" {
		b.WriteString(spin)
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.status.View())

	return b.String()
}

// refreshViewport re-renders the conversation into the viewport and pins it
// to the bottom.
func (m *Model) refreshViewport() {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	var parts []string
	for _, t := range m.turns {
		content := t.content
		if t.kind == components.KindAssistant {
			content = strings.TrimRight(m.markdown.Render(content), "\n")
		}
		if rendered := components.RenderMessage(m.theme, t.kind, content, width); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	// The in-flight reply renders as plain text; markdown of a half-received
	// document produces broken layouts.
	if m.state == StateStreaming && m.partial != "" {
		if rendered := components.RenderMessage(m.theme, components.KindAssistant, m.partial, width); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	m.viewport.GotoBottom()
}
