// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
)

func TestArgParserFlagForms(t *testing.T) {
	p := NewArgParser([]string{"show", "--limit", "20", "--since=2026-01-01", "--json", "sess-42"})

	if p.Subcommand() != "show" {
		t.Errorf("subcommand = %q", p.Subcommand())
	}
	if p.Flag("limit") != "20" {
		t.Errorf("limit = %q", p.Flag("limit"))
	}
	if p.Flag("since") != "2026-01-01" {
		t.Errorf("since = %q", p.Flag("since"))
	}
	if !p.BoolFlag("json") {
		t.Error("json flag not set")
	}
	if p.Positional(1) != "sess-42" {
		t.Errorf("positional(1) = %q", p.Positional(1))
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--confirm=false", "--verbose=true"})
	if p.BoolFlag("confirm") {
		t.Error("confirm=false parsed as true")
	}
	if !p.BoolFlag("verbose") {
		t.Error("verbose=true parsed as false")
	}
}

func TestArgParserDefaults(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" || p.Positional(0) != "" || p.Flag("x") != "" {
		t.Error("empty parser should return zero values")
	}
	if p.FlagIntOrDefault("limit", 50) != 50 {
		t.Error("missing int flag should fall back to default")
	}
	if got := NewArgParser([]string{"--limit", "abc"}).FlagIntOrDefault("limit", 7); got != 7 {
		t.Errorf("malformed int flag = %d, want default 7", got)
	}
}

func TestArgParserPositionalFrom(t *testing.T) {
	p := NewArgParser([]string{"what", "does", "my", "week", "hold"})
	if got := joinWords(p.PositionalFrom(0)); got != "what does my week hold" {
		t.Errorf("joined = %q", got)
	}
	if p.PositionalFrom(99) != nil {
		t.Error("out-of-range PositionalFrom should be nil")
	}
}

func TestParseGlobalFlags(t *testing.T) {
	remaining, args := parseGlobalFlags([]string{"--json", "send", "-v", "hello", "--plain"})
	if !args.JSON || !args.Verbose || !args.Plain {
		t.Errorf("flags not extracted: %+v", args)
	}
	if len(remaining) != 2 || remaining[0] != "send" || remaining[1] != "hello" {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestWrapTextPreservesNewlines(t *testing.T) {
	got := WrapText("one\ntwo", 40)
	if got != "one\ntwo" {
		t.Errorf("wrap = %q", got)
	}
}

func TestWrapTextBreaksLongLines(t *testing.T) {
	got := WrapText("alpha beta gamma delta", 14)
	for _, line := range splitLines(got) {
		if len(line) > 12 { // 14 minus margin
			t.Errorf("line %q exceeds width", line)
		}
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{ErrUsage("bad"), ExitUsage},
		{api.ErrNoCredential, ExitAuth},
		{&api.HTTPError{Status: 401}, ExitAuth},
		{&api.HTTPError{Status: 404}, ExitNotFound},
		{&api.NetworkError{Op: "GET /health", Err: errors.New("refused")}, ExitNetwork},
		{&api.TimeoutError{Op: "POST /chat/send"}, ExitNetwork},
		{errors.New("anything else"), ExitError},
	}
	for _, tc := range cases {
		if got := GetExitCode(tc.err); got != tc.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFriendlyMessagePrefersBackendMessage(t *testing.T) {
	err := &api.HTTPError{Status: 400, Code: "VALIDATION_ERROR", Message: "date of birth is malformed"}
	if got := friendlyMessage(err); got != "date of birth is malformed" {
		t.Errorf("friendlyMessage = %q", got)
	}
}
