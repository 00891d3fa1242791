// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// onboard.go - Interactive birth-detail submission.
//
// Command: onboard
// Short:   Submit birth details and wait for the astrology profile
//
// Examples:
//   astra onboard                     Interactive wizard
//   astra onboard --no-wait           Submit and return immediately
//
// The backend accepts the submission with 202 and computes the profile
// asynchronously; by default the command polls until the computation
// finishes or fails.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
)

// HandleOnboard runs the onboarding wizard. With --name and friends the
// details come from flags instead of prompts, for scripted use.
func HandleOnboard(args Args) error {
	scripted := args.Parser.HasFlag("name")
	if !scripted {
		if err := RequiresTTY("collect birth details"); err != nil {
			return fmt.Errorf("%w (pass --name/--date/--time/--place instead)", err)
		}
	}

	env, err := BuildEnv(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	state, err := env.Bootstrap(ctx)
	if err != nil {
		return err
	}

	switch state {
	case app.StateUnauthenticated:
		return ErrUsage("not signed in; run `astra signin` first")
	case app.StateReady:
		if scripted && !args.Parser.BoolFlag("force") {
			return ErrUsage("profile already complete; pass --force to resubmit")
		}
		if !scripted && !promptYesNo("your profile is already complete; resubmit birth details?", false) {
			return nil
		}
	case app.StateAwaitingProfile:
		fmt.Println(styled(warnStyle, "a profile computation is already running"))
		if !args.Parser.BoolFlag("no-wait") {
			return waitForProfile(ctx, env)
		}
		return nil
	}

	if notice := env.Flow.Notice(); notice != "" {
		fmt.Println(styled(warnStyle, notice))
	}

	var req *api.OnboardingRequest
	if scripted {
		req, err = birthDetailsFromFlags(args.Parser)
	} else {
		req, err = collectBirthDetails()
	}
	if err != nil {
		return err
	}

	fmt.Println()
	if _, err := env.Flow.SubmitOnboarding(ctx, req); err != nil {
		return err
	}
	fmt.Println(styled(successStyle, "birth details accepted"))

	if args.Parser.BoolFlag("no-wait") {
		fmt.Println("the profile is computing; check progress with `astra status`")
		return nil
	}
	return waitForProfile(ctx, env)
}

// birthDetailsFromFlags assembles the request from --name, --date, --time,
// --place, and the optional --lat/--lon/--tz.
func birthDetailsFromFlags(p *ArgParser) (*api.OnboardingRequest, error) {
	req := &api.OnboardingRequest{
		Name:        p.Flag("name"),
		DateOfBirth: p.Flag("date"),
		TimeOfBirth: p.Flag("time"),
		Place:       p.Flag("place"),
		Timezone:    p.Flag("tz"),
	}
	if lat := p.Flag("lat"); lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, ErrUsage("--lat must be a number")
		}
		req.Latitude = &v
	}
	if lon := p.Flag("lon"); lon != "" {
		v, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return nil, ErrUsage("--lon must be a number")
		}
		req.Longitude = &v
	}
	if err := app.ValidateOnboarding(req); err != nil {
		return nil, err
	}
	return req, nil
}

// collectBirthDetails prompts for each field and validates the result.
// Invalid input re-prompts rather than failing the command.
func collectBirthDetails() (*api.OnboardingRequest, error) {
	fmt.Println(styled(headerStyle, "Tell the stars who you are"))
	fmt.Println(styled(mutedStyle, "date is YYYY-MM-DD, time is 24h HH:MM local to the birthplace"))
	fmt.Println()

	for attempt := 0; attempt < 3; attempt++ {
		req := &api.OnboardingRequest{
			Name:        promptInput("Full name: "),
			DateOfBirth: promptInput("Date of birth: "),
			TimeOfBirth: promptInput("Time of birth: "),
			Place:       promptInput("Birthplace: "),
			Timezone:    promptWithDefault("Timezone (IANA, optional)", ""),
		}

		if lat := promptWithDefault("Latitude (optional)", ""); lat != "" {
			v, err := strconv.ParseFloat(lat, 64)
			if err != nil {
				fmt.Println(styled(errStyle, "latitude must be a number"))
				continue
			}
			req.Latitude = &v
			lon := promptInput("Longitude: ")
			w, err := strconv.ParseFloat(lon, 64)
			if err != nil {
				fmt.Println(styled(errStyle, "longitude must be a number"))
				continue
			}
			req.Longitude = &w
		}

		if err := app.ValidateOnboarding(req); err != nil {
			fmt.Println(styled(errStyle, err.Error()))
			fmt.Println()
			continue
		}
		return req, nil
	}
	return nil, errors.New("too many invalid attempts")
}

// waitForProfile blocks on the flow's poller and reports the outcome.
func waitForProfile(ctx context.Context, env *Env) error {
	fmt.Print(styled(mutedStyle, "computing your astrology profile"))

	done := env.Flow.PollerDone()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Print(styled(mutedStyle, "."))
		case <-done:
			fmt.Println()
			switch env.Flow.State() {
			case app.StateReady:
				fmt.Println(styled(successStyle, "your profile is ready; chat is now personalized"))
				return nil
			case app.StateOnboarding:
				notice := env.Flow.Notice()
				if notice == "" {
					notice = "profile computation failed, please retry"
				}
				return errors.New(notice)
			default:
				return fmt.Errorf("profile wait ended in state %s", env.Flow.State())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
