// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// signin.go - Credential management commands.
//
// Command: signin
// Short:   Store an access token and verify it against the backend
//
// Examples:
//   astra signin                      Prompt for a token (hidden input)
//   astra signin --token TOKEN       Non-interactive (CI, scripts)
//
// Command: signout
// Short:   Remove the stored token

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
)

// signInTimeout bounds the verification profile check.
const signInTimeout = 30 * time.Second

// HandleSignIn stores a token and immediately verifies it with a profile
// check, reporting where the user landed in the flow.
func HandleSignIn(args Args) error {
	env, err := BuildEnv(args)
	if err != nil {
		return err
	}

	token := args.Parser.Flag("token")
	if token == "" {
		if err := RequiresTTY("read a token"); err != nil {
			return fmt.Errorf("%w (pass --token instead)", err)
		}
		token = promptSecure("Access token")
	}
	if token == "" {
		return ErrUsage("a non-empty token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), signInTimeout)
	defer cancel()

	state, err := env.Flow.SignIn(ctx, token)
	if err != nil {
		// The token was persisted; an unreachable backend is not fatal.
		var netErr *api.NetworkError
		if errors.As(err, &netErr) || api.IsTimeout(err) {
			fmt.Println(styled(warnStyle, "token saved, but the backend could not be reached to verify it"))
			return nil
		}
		return err
	}

	fmt.Println(styled(successStyle, "signed in"))
	switch state {
	case app.StateOnboarding:
		fmt.Println("next: run `astra onboard` to submit your birth details")
	case app.StateAwaitingProfile:
		fmt.Println("your astrology profile is still computing; check `astra status`")
	case app.StateReady:
		fmt.Println("your profile is ready; chat is personalized")
	}
	return nil
}

// HandleSignOut clears the stored credential.
func HandleSignOut(args Args) error {
	env, err := BuildEnv(args)
	if err != nil {
		return err
	}
	if err := env.Flow.SignOut(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	fmt.Println(styled(successStyle, "signed out"))
	return nil
}
