// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared construction of the client, stores, and flow.
//
// Every command builds the same object graph; this file keeps the wiring
// in a single place so the TUI and plain commands cannot drift apart.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/config"
	"github.com/astraleph/astra-tui/internal/credential"
	"github.com/astraleph/astra-tui/internal/netmon"
	"github.com/astraleph/astra-tui/internal/storage"
)

// Env bundles the wired components a command needs.
type Env struct {
	Cfg     *config.Config
	Client  *api.Client
	Creds   *credential.Store
	Flow    *app.Flow
	Monitor *netmon.Monitor
}

// BuildEnv loads configuration and wires the client, credential store,
// flow controller, and network monitor. The ASTRA_TOKEN environment
// variable overrides the stored credential when set.
func BuildEnv(args Args) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout()).
		WithMaxRetries(cfg.API.MaxRetries).
		WithVerbose(cfg.API.Verbose || args.Verbose)
	if cfg.API.RateLimit > 0 {
		client = client.WithRateLimit(cfg.API.RateLimit)
	}

	creds := credential.NewStore(dir)
	if token := envCredential(); token != "" {
		client.SetCredential(token)
	}

	flow := app.New(client, creds, cfg.Poll)

	monitor := netmon.NewMonitor(client, netmon.Options{
		ProbeInterval: cfg.Network.ProbeInterval(),
		HistorySize:   cfg.Network.HistorySize,
		DownlinkMbps:  cfg.Network.DownlinkMbps,
		SaveData:      cfg.Network.SaveData,
	})

	return &Env{
		Cfg:     cfg,
		Client:  client,
		Creds:   creds,
		Flow:    flow,
		Monitor: monitor,
	}, nil
}

// envCredential returns a credential supplied through the environment.
// ASTRA_TOKEN is the documented name; ASTRA_CREDENTIAL is accepted too.
func envCredential() string {
	if v := os.Getenv("ASTRA_TOKEN"); v != "" {
		return v
	}
	return os.Getenv("ASTRA_CREDENTIAL")
}

// Bootstrap resolves the starting flow state. When the environment
// supplied the credential, the stored one must not clobber it, so the
// profile check runs directly.
func (e *Env) Bootstrap(ctx context.Context) (app.State, error) {
	if envCredential() != "" {
		return e.Flow.CheckProfile(ctx)
	}
	return e.Flow.Bootstrap(ctx)
}

// OpenHistory opens (creating if needed) the chat history database next
// to the configuration.
func (e *Env) OpenHistory() (*storage.History, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return storage.Open(storage.DefaultPath(dir))
}
