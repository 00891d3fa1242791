// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Small formatting and prompt helpers shared by commands.

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// formatDuration renders a duration in the most readable unit.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// formatTimestamp renders a message timestamp for transcripts.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// outputJSON pretty-prints v to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var stdinReader = bufio.NewReader(os.Stdin)

// promptInput reads one trimmed line from stdin.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptWithDefault reads a line, falling back to def when empty.
func promptWithDefault(prompt, def string) string {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", prompt, def)
	} else {
		prompt += ": "
	}
	if v := promptInput(prompt); v != "" {
		return v
	}
	return def
}

// promptYesNo reads a yes/no answer with a default.
func promptYesNo(prompt string, defaultYes bool) bool {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	input := strings.ToLower(promptInput(fmt.Sprintf("%s %s: ", prompt, suffix)))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

// promptSecure reads sensitive input without echoing.
func promptSecure(prompt string) string {
	if prompt != "" {
		fmt.Print(prompt)
		if !strings.HasSuffix(prompt, ": ") && !strings.HasSuffix(prompt, " ") {
			fmt.Print(": ")
		}
	}
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
