// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for plain-terminal output.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/astraleph/astra-tui/internal/ui/styles"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	valueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Gold).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// styled applies style only when colored output is enabled.
func styled(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}

// renderSeparator returns a horizontal rule sized to the terminal.
func renderSeparator() string {
	width := GetTerminalWidth()
	if width > 60 {
		width = 60
	}
	return styled(mutedStyle, strings.Repeat("-", width))
}

// renderLabel formats a fixed-width field label for status output.
func renderLabel(label string) string {
	const labelWidth = 16
	if len(label) < labelWidth {
		label += strings.Repeat(" ", labelWidth-len(label))
	}
	return styled(labelStyle, label)
}
