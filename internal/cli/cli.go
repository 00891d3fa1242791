// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch table for astra.
package cli

import (
	"fmt"
	"os"
	"runtime"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies the subcommand to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdSend
	CmdSignIn
	CmdSignOut
	CmdOnboard
	CmdStatus
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed global flags plus the per-command remainder.
type Args struct {
	// Global flags
	JSON    bool
	Verbose bool
	Quiet   bool
	Plain   bool // disable markdown rendering

	// Free-form message for send/chat
	Message string

	// Parser over the remaining (post-command) arguments
	Parser *ArgParser
}

const usageText = `astra - your chart, in conversation

Astra is a terminal client for an astrology chat backend. Guests can
chat immediately; signing in and onboarding your birth details unlocks
personalized readings.

Usage:
  astra                      Start the TUI (default)
  astra chat                 Interactive chat in plain terminal mode
  astra send "message"       One-shot question, answer to stdout
  astra signin               Store an access token
  astra signout              Remove the stored token
  astra onboard              Submit birth details and wait for the profile
  astra status               Backend, profile, and connectivity status
  astra sessions [subcmd]    Manage saved chat sessions
  astra config [show|set|path] Configuration
  astra version              Print version

Onboarding:
  astra onboard                    Interactive wizard, waits for the profile
  astra onboard --no-wait          Submit and return immediately
  astra onboard --name N --date YYYY-MM-DD --time HH:MM --place P
                                   Scripted submission (add --lat/--lon/--tz)

Sessions:
  astra sessions list              List saved sessions
  astra sessions show <id>         Print a session transcript
  astra sessions rename <id> <new> Rename a session
  astra sessions delete <id> --confirm   Delete a session

Global flags:
  --json          Machine-readable output where supported
  --plain         Disable markdown rendering of replies
  -v, --verbose   Log requests to stderr
  -q, --quiet     Suppress informational output

Environment:
  ASTRA_API_URL       Backend base URL override
  ASTRA_TOKEN         Access token override (takes priority over the store)
  NO_COLOR            Disable colored output
`

// PrintUsage writes the top-level help text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version details.
func PrintVersion() {
	fmt.Printf("astra %s (%s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse reads os.Args and returns the command plus parsed arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	remaining, args := parseGlobalFlags(raw)

	if len(remaining) == 0 {
		args.Parser = NewArgParser(nil)
		return CmdTUI, args
	}

	cmd := remaining[0]
	rest := remaining[1:]
	args.Parser = NewArgParser(rest)

	switch cmd {
	case "chat":
		return CmdChat, args
	case "send", "ask":
		args.Message = joinWords(args.Parser.PositionalFrom(0))
		return CmdSend, args
	case "signin", "login", "setup":
		return CmdSignIn, args
	case "signout", "logout":
		return CmdSignOut, args
	case "onboard":
		return CmdOnboard, args
	case "status", "s":
		return CmdStatus, args
	case "sessions", "session":
		return CmdSessions, args
	case "config":
		return CmdConfig, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags strips flags that apply to every command and returns
// the rest untouched, preserving order.
func parseGlobalFlags(raw []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(raw))

	for _, arg := range raw {
		switch arg {
		case "--json":
			args.JSON = true
		case "--plain":
			args.Plain = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-q", "--quiet":
			args.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}
