// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading.
package config

import (
	"time"
)

// Config is the root configuration structure for deckhand.
type Config struct {
	Version  string         `json:"version"`
	Backend  BackendConfig  `json:"backend"`
	Window   WindowConfig   `json:"window"`
	UI       UIConfig       `json:"ui"`
	Terminal TerminalConfig `json:"terminal"`
	Events   EventsConfig   `json:"events"`
	Logging  LoggingConfig  `json:"logging"`
	StateDir string         `json:"state_dir"`
	Tools    []ToolConfig   `json:"tools"`
}

// BackendConfig locates the backend daemon.
type BackendConfig struct {
	Address string `json:"address"` // Base URL, e.g. http://127.0.0.1:7910
	Timeout string `json:"timeout"` // HTTP request timeout (e.g. "30s")
}

// WindowConfig identifies this window to the backend.
type WindowConfig struct {
	Label string `json:"label"`
	Main  bool   `json:"main"`
}

// UIConfig configures interaction behavior.
type UIConfig struct {
	DragActivationDistance float64 `json:"drag_activation_distance"` // pixels before a press becomes a drag
	ResizeDebounce         string  `json:"resize_debounce"`          // quiet period coalescing resize calls (e.g. "250ms")
}

// TerminalConfig configures session defaults.
type TerminalConfig struct {
	DefaultShell string `json:"default_shell"`
	Scrollback   int    `json:"scrollback"`
}

// EventsConfig configures the local event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig bounds the in-memory event history.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	Level string `json:"level"` // "debug", "info", "warn", "error"
}

// ToolConfig declares a launchable tool. The core treats the command as an
// opaque string; only the shell itself is interpreted.
type ToolConfig struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Icon    string `json:"icon"`
}

// BackendTimeout returns the parsed request timeout.
func (c *Config) BackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 30*time.Second)
}

// ResizeDebounce returns the parsed resize debounce window.
func (c *Config) ResizeDebounce() time.Duration {
	return parseDuration(c.UI.ResizeDebounce, 250*time.Millisecond)
}

// EventHistoryMaxAge returns the parsed history retention window.
func (c *Config) EventHistoryMaxAge() time.Duration {
	return parseDuration(c.Events.History.MaxAge, time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
