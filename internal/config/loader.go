// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// FindConfig searches for a config file in the current directory, then in
// the user config directory. It looks for deckhand.hjson first, then
// deckhand.json.
func (l *Loader) FindConfig() (string, error) {
	names := []string{"deckhand.hjson", "deckhand.json"}

	dirs := []string{"."}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, "deckhand"))
	}

	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				abs, err := filepath.Abs(path)
				if err != nil {
					return path, nil
				}
				return abs, nil
			}
		}
	}

	return "", fmt.Errorf("config file not found (looked for deckhand.hjson, deckhand.json)")
}

// Default returns a usable configuration when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Backend defaults
	if cfg.Backend.Address == "" {
		cfg.Backend.Address = "http://127.0.0.1:7910"
	}
	if cfg.Backend.Timeout == "" {
		cfg.Backend.Timeout = "30s"
	}

	// Window defaults
	if cfg.Window.Label == "" {
		cfg.Window.Label = "main"
		cfg.Window.Main = true
	}

	// UI defaults
	if cfg.UI.DragActivationDistance == 0 {
		cfg.UI.DragActivationDistance = 8
	}
	if cfg.UI.ResizeDebounce == "" {
		cfg.UI.ResizeDebounce = "250ms"
	}

	// Terminal defaults
	if cfg.Terminal.DefaultShell == "" {
		if shell := os.Getenv("SHELL"); shell != "" {
			cfg.Terminal.DefaultShell = shell
		} else {
			cfg.Terminal.DefaultShell = "/bin/sh"
		}
	}
	if cfg.Terminal.Scrollback == 0 {
		cfg.Terminal.Scrollback = 10000
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// State defaults
	if cfg.StateDir == "" {
		if userDir, err := os.UserConfigDir(); err == nil {
			cfg.StateDir = filepath.Join(userDir, "deckhand")
		} else {
			cfg.StateDir = ".deckhand"
		}
	}
}
