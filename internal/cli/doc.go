// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of astra: argument
// parsing, the interactive readline chat, one-shot sends, sign-in and
// onboarding wizards, status reporting, and session management.
//
// The package is deliberately plain: it prints to stdout/stderr, respects
// NO_COLOR and TTY detection, and exits through main with a meaningful
// exit code. Anything that needs a full-screen terminal lives under
// internal/ui instead.
package cli
