// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection and editing.
//
// Command: config
// Short:   Show or change configuration
//
// Examples:
//   astra config show
//   astra config path
//   astra config set api.base_url https://astro.example.com
//   astra config set ui.theme light

package cli

import (
	"fmt"
	"strconv"

	"github.com/astraleph/astra-tui/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	p := args.Parser
	switch p.Subcommand() {
	case "", "show":
		return configShow(args)
	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "set":
		return configSet(p.Positional(1), p.Positional(2))
	default:
		return ErrUsage("unknown config subcommand: %s", p.Subcommand())
	}
}

func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(cfg)
	}

	fmt.Println(styled(headerStyle, "astra config"))
	fmt.Println(renderSeparator())
	fmt.Print(renderLabel("api.base_url"))
	fmt.Println(cfg.API.BaseURL)
	fmt.Print(renderLabel("api.timeout"))
	fmt.Println(cfg.API.Timeout().String())
	fmt.Print(renderLabel("api.max_retries"))
	fmt.Println(strconv.Itoa(cfg.API.MaxRetries))
	fmt.Print(renderLabel("poll.interval"))
	fmt.Println(cfg.Poll.Interval().String())
	fmt.Print(renderLabel("network.probe"))
	fmt.Println(cfg.Network.ProbeInterval().String())
	fmt.Print(renderLabel("ui.theme"))
	fmt.Println(cfg.UI.Theme)
	fmt.Print(renderLabel("ui.markdown"))
	fmt.Println(strconv.FormatBool(cfg.UI.Markdown))
	return nil
}

// configSet updates one dotted key and persists the file. Only the keys a
// user plausibly tunes by hand are addressable here; anything else means
// editing the TOML directly.
func configSet(key, value string) error {
	if key == "" || value == "" {
		return ErrUsage("usage: astra config set <key> <value>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ErrUsage("%s must be an integer", key)
		}
		cfg.API.TimeoutSecs = n
	case "api.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ErrUsage("%s must be an integer", key)
		}
		cfg.API.MaxRetries = n
	case "api.verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrUsage("%s must be true or false", key)
		}
		cfg.API.Verbose = b
	case "poll.interval_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ErrUsage("%s must be an integer", key)
		}
		cfg.Poll.IntervalSecs = n
	case "network.save_data":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrUsage("%s must be true or false", key)
		}
		cfg.Network.SaveData = b
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrUsage("%s must be true or false", key)
		}
		cfg.UI.Markdown = b
	case "ui.show_banner":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrUsage("%s must be true or false", key)
		}
		cfg.UI.ShowBanner = b
	default:
		return ErrUsage("unknown config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println(styled(successStyle, "saved"))
	return nil
}
