// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLES
// =============================================================================

// MessageKind selects the bubble style.
type MessageKind int

const (
	KindUser MessageKind = iota
	KindAssistant
	KindNotice
)

// bubbleMaxShare is the fraction of the viewport a bubble may occupy.
const bubbleMaxShare = 0.8

// RenderMessage renders one chat turn as a bubble, right-aligned for the
// user and left-aligned for the assistant.
func RenderMessage(theme *styles.Theme, kind MessageKind, content string, width int) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ""
	}

	maxBubble := int(float64(width) * bubbleMaxShare)
	if maxBubble < 20 {
		maxBubble = 20
	}

	var style lipgloss.Style
	var align lipgloss.Position
	switch kind {
	case KindUser:
		style = theme.UserBubble
		align = lipgloss.Right
	case KindNotice:
		style = theme.NoticeBubble
		align = lipgloss.Center
	default:
		style = theme.AssistantBubble
		align = lipgloss.Left
	}

	bubble := style.MaxWidth(maxBubble).Render(wrapText(content, maxBubble-4))
	if width <= 0 {
		return bubble
	}
	return lipgloss.PlaceHorizontal(width, align, bubble)
}

// wrapText hard-wraps text at the given display width, preserving existing
// line breaks. Display width, not byte length: CJK and emoji count double.
func wrapText(text string, width int) string {
	if width < 8 {
		width = 8
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

// wrapLine breaks one long line on word boundaries, falling back to a hard
// break for single words wider than the limit.
func wrapLine(line string, width int) []string {
	var lines []string
	var current string

	for _, word := range strings.Fields(line) {
		switch {
		case current == "":
			current = word
		case runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
		for runewidth.StringWidth(current) > width {
			head := runewidth.Truncate(current, width, "")
			lines = append(lines, head)
			current = strings.TrimPrefix(current, head)
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
