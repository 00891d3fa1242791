// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit-code mapping.
//
// Exit codes follow sysexits conventions loosely:
//   0 success, 1 generic, 2 usage, 3 auth, 4 not found, 5 network/timeout

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/astraleph/astra-tui/internal/api"
)

// Exit codes returned through main.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitNotFound = 4
	ExitNetwork  = 5
)

// UsageError marks a malformed invocation; main prints help and exits 2.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ErrUsage builds a UsageError.
func ErrUsage(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// GetExitCode maps an error onto a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	if errors.Is(err, api.ErrAuth) || errors.Is(err, api.ErrNoCredential) {
		return ExitAuth
	}
	if errors.Is(err, api.ErrNotFound) {
		return ExitNotFound
	}

	var netErr *api.NetworkError
	var timeoutErr *api.TimeoutError
	if errors.As(err, &netErr) || errors.As(err, &timeoutErr) {
		return ExitNetwork
	}
	return ExitError
}

// DisplayError writes err to stderr, as JSON when jsonMode is set.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		payload := map[string]any{
			"success": false,
			"error":   err.Error(),
		}
		var httpErr *api.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code != "" {
			payload["code"] = httpErr.Code
		}
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(payload)
		return
	}
	fmt.Fprintln(os.Stderr, styled(errStyle, "error: ")+friendlyMessage(err))
}

// friendlyMessage prefers the backend's own message when one exists, and
// translates common failure classes into actionable phrasing.
func friendlyMessage(err error) string {
	switch {
	case errors.Is(err, api.ErrNoCredential):
		return "not signed in. Run `astra signin` first."
	case errors.Is(err, api.ErrAuth):
		return "authentication failed. Your token may have expired; run `astra signin` again."
	case api.IsTimeout(err):
		return "the backend took too long to respond. Check your connection and retry."
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return "could not reach the backend: " + netErr.Err.Error()
	}
	return err.Error()
}

// HandleErrorAndExit displays err and exits with its mapped code.
// No-op for nil errors.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(err, jsonMode)
	os.Exit(GetExitCode(err))
}
