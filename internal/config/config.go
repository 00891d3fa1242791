// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for astra.
//
// Configuration lives in ~/.astra/config.toml with sensible defaults,
// environment variable overrides, and validation. A fsnotify-based watcher
// (see watch.go) reloads the file when it changes on disk.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/astraleph/astra-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete astra configuration.
type Config struct {
	Version string `toml:"version"`

	API     APIConfig     `toml:"api"`
	Poll    PollConfig    `toml:"poll"`
	Network NetworkConfig `toml:"network"`
	UI      UIConfig      `toml:"ui"`
}

// APIConfig configures the backend HTTP client.
type APIConfig struct {
	// BaseURL is the astrology backend base URL.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the wall-clock ceiling per request attempt.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `toml:"max_retries"`
	// RateLimit is the outbound requests-per-second cap (0 = default).
	RateLimit float64 `toml:"rate_limit"`
	// Verbose enables request/response logging.
	Verbose bool `toml:"verbose"`
}

// PollConfig configures profile-completion polling after onboarding.
type PollConfig struct {
	// IntervalSecs between profile probes.
	IntervalSecs int `toml:"interval_secs"`
	// MaxAttempts is the hard attempt ceiling.
	MaxAttempts int `toml:"max_attempts"`
	// InitialDelaySecs before the first probe.
	InitialDelaySecs int `toml:"initial_delay_secs"`
	// MaxBackoffSecs caps the backed-off interval after probe failures.
	MaxBackoffSecs int `toml:"max_backoff_secs"`
}

// NetworkConfig configures the advisory connection health monitor.
type NetworkConfig struct {
	// ProbeIntervalSecs between liveness probes.
	ProbeIntervalSecs int `toml:"probe_interval_secs"`
	// HistorySize caps the sample history ring.
	HistorySize int `toml:"history_size"`
	// DownlinkMbps is the assumed downlink bandwidth for scoring.
	DownlinkMbps float64 `toml:"downlink_mbps"`
	// SaveData signals a reduced-data preference (scoring penalty only;
	// nothing gates requests on it).
	SaveData bool `toml:"save_data"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
	// Markdown renders assistant replies through glamour.
	Markdown bool `toml:"markdown"`
	// ShowBanner enables the connectivity banner.
	ShowBanner bool `toml:"show_banner"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:     "https://api.astraleph.app",
			TimeoutSecs: 30,
			MaxRetries:  3,
			RateLimit:   10,
		},
		Poll: PollConfig{
			IntervalSecs:     2,
			MaxAttempts:      30,
			InitialDelaySecs: 1,
			MaxBackoffSecs:   30,
		},
		Network: NetworkConfig{
			ProbeIntervalSecs: 15,
			HistorySize:       20,
			DownlinkMbps:      10,
		},
		UI: UIConfig{
			Theme:      "dark",
			Markdown:   true,
			ShowBanner: true,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the astra configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".astra"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when absent.
// Environment overrides are applied last, then validation.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
// A missing file is not an error; defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config atomically to the default path.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ASTRA_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ASTRA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ASTRA_API_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("ASTRA_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.MaxRetries = n
		}
	}
	if v := os.Getenv("ASTRA_VERBOSE"); v != "" {
		c.API.Verbose = v == "1" || v == "true"
	}
	if v := os.Getenv("ASTRA_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("ASTRA_SAVE_DATA"); v != "" {
		c.Network.SaveData = v == "1" || v == "true"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration, clamping recoverable values and
// rejecting unusable ones.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}

	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = Default().API.TimeoutSecs
	}
	if c.API.MaxRetries < 0 {
		c.API.MaxRetries = 0
	}
	if c.API.MaxRetries > 10 {
		c.API.MaxRetries = 10
	}
	if c.Poll.IntervalSecs <= 0 {
		c.Poll.IntervalSecs = Default().Poll.IntervalSecs
	}
	if c.Poll.MaxAttempts <= 0 {
		c.Poll.MaxAttempts = Default().Poll.MaxAttempts
	}
	if c.Poll.MaxBackoffSecs < c.Poll.IntervalSecs {
		c.Poll.MaxBackoffSecs = Default().Poll.MaxBackoffSecs
	}
	if c.Network.ProbeIntervalSecs <= 0 {
		c.Network.ProbeIntervalSecs = Default().Network.ProbeIntervalSecs
	}
	if c.Network.HistorySize <= 0 {
		c.Network.HistorySize = Default().Network.HistorySize
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		c.UI.Theme = "dark"
	}
	return nil
}

// =============================================================================
// DURATION ACCESSORS
// =============================================================================

// Timeout returns the per-attempt request timeout.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Interval returns the poll interval.
func (c *PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

// InitialDelay returns the delay before the first poll.
func (c *PollConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelaySecs) * time.Second
}

// MaxBackoff returns the backoff cap for failed probes.
func (c *PollConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSecs) * time.Second
}

// ProbeInterval returns the health probe interval.
func (c *NetworkConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSecs) * time.Second
}
