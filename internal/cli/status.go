// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend, profile, and connectivity status.
//
// Command: status (alias: s)
// Short:   Show backend reachability, sign-in state, and connection health
//
// Examples:
//   astra status              Human-readable status
//   astra status --json       Machine-readable status for scripts

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/netmon"
)

// statusTimeout bounds the probe plus the profile check.
const statusTimeout = 30 * time.Second

// statusReport is the JSON shape of `astra status --json`.
type statusReport struct {
	Backend struct {
		URL       string `json:"url"`
		Reachable bool   `json:"reachable"`
		RTTMillis int64  `json:"rttMillis,omitempty"`
	} `json:"backend"`
	Account struct {
		SignedIn bool   `json:"signedIn"`
		State    string `json:"state"`
		Notice   string `json:"notice,omitempty"`
		Profile  string `json:"profileStatus,omitempty"`
	} `json:"account"`
	Connection struct {
		Online bool   `json:"online"`
		Level  string `json:"level"`
		Score  int    `json:"score"`
		Medium string `json:"medium"`
	} `json:"connection"`
}

// HandleStatus collects and prints the status snapshot.
func HandleStatus(args Args) error {
	env, err := BuildEnv(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	rtt, healthErr := env.Client.Health(ctx)
	health := env.Monitor.SampleNow(ctx)

	state, _ := env.Bootstrap(ctx)

	if args.JSON {
		return printStatusJSON(env, state, rtt, healthErr == nil, health)
	}
	printStatusText(env, state, rtt, healthErr, health)
	return nil
}

func printStatusJSON(env *Env, state app.State, rtt time.Duration, reachable bool, health netmon.Health) error {
	var r statusReport
	r.Backend.URL = env.Client.BaseURL()
	r.Backend.Reachable = reachable
	if reachable {
		r.Backend.RTTMillis = rtt.Milliseconds()
	}
	r.Account.SignedIn = state != app.StateUnauthenticated
	r.Account.State = state.String()
	r.Account.Notice = env.Flow.Notice()
	if p := env.Flow.Profile(); p != nil {
		r.Account.Profile = p.Status
	}
	r.Connection.Online = health.Online
	r.Connection.Level = string(health.Level)
	r.Connection.Score = health.Score
	r.Connection.Medium = string(health.Descriptors.Medium)
	return outputJSON(r)
}

func printStatusText(env *Env, state app.State, rtt time.Duration, healthErr error, health netmon.Health) {
	fmt.Println(styled(headerStyle, "astra status"))
	fmt.Println(renderSeparator())

	fmt.Print(renderLabel("backend"))
	if healthErr == nil {
		fmt.Printf("%s (%s)\n", styled(successStyle, "reachable"), formatDuration(rtt))
	} else {
		fmt.Println(styled(errStyle, "unreachable"))
	}
	fmt.Print(renderLabel("url"))
	fmt.Println(styled(valueStyle, env.Client.BaseURL()))

	fmt.Print(renderLabel("account"))
	switch state {
	case app.StateUnauthenticated:
		fmt.Println(styled(mutedStyle, "guest (run `astra signin`)"))
	case app.StateOnboarding:
		fmt.Println(styled(warnStyle, "signed in, onboarding needed"))
	case app.StateAwaitingProfile:
		fmt.Println(styled(warnStyle, "signed in, profile computing"))
	case app.StateReady:
		fmt.Println(styled(successStyle, "signed in, profile ready"))
	default:
		fmt.Println(styled(valueStyle, state.String()))
	}
	if notice := env.Flow.Notice(); notice != "" {
		fmt.Print(renderLabel("notice"))
		fmt.Println(styled(warnStyle, notice))
	}
	if p := env.Flow.Profile(); p != nil && p.Name != "" {
		fmt.Print(renderLabel("profile"))
		fmt.Printf("%s (%s)\n", styled(valueStyle, p.Name), p.Status)
	}

	fmt.Print(renderLabel("connection"))
	level := string(health.Level)
	style := successStyle
	switch health.Level {
	case netmon.LevelOffline:
		style = errStyle
	case netmon.LevelPoor, netmon.LevelFair:
		style = warnStyle
	}
	fmt.Printf("%s (score %d, %s)\n",
		styled(style, level), health.Score, health.Descriptors.Medium)
}
