// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks a loaded configuration for problems the rest of the
// program would only discover later. Call after applying defaults.
func Validate(cfg *Config) error {
	var errs []string

	u, err := url.Parse(cfg.Backend.Address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.address %q is not a valid URL", cfg.Backend.Address))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("backend.address scheme %q is not supported", u.Scheme))
	}

	if cfg.Backend.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Backend.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("backend.timeout %q is not a duration", cfg.Backend.Timeout))
		}
	}
	if cfg.UI.ResizeDebounce != "" {
		if _, err := time.ParseDuration(cfg.UI.ResizeDebounce); err != nil {
			errs = append(errs, fmt.Sprintf("ui.resize_debounce %q is not a duration", cfg.UI.ResizeDebounce))
		}
	}
	if cfg.Events.History.MaxAge != "" {
		if _, err := time.ParseDuration(cfg.Events.History.MaxAge); err != nil {
			errs = append(errs, fmt.Sprintf("events.history.max_age %q is not a duration", cfg.Events.History.MaxAge))
		}
	}

	if cfg.UI.DragActivationDistance < 0 {
		errs = append(errs, "ui.drag_activation_distance must not be negative")
	}
	if cfg.Terminal.Scrollback < 0 {
		errs = append(errs, "terminal.scrollback must not be negative")
	}
	if cfg.Window.Label == "" {
		errs = append(errs, "window.label must not be empty")
	}

	seen := make(map[string]bool)
	for i, tool := range cfg.Tools {
		if tool.Name == "" {
			errs = append(errs, fmt.Sprintf("tools[%d]: name must not be empty", i))
			continue
		}
		if seen[tool.Name] {
			errs = append(errs, fmt.Sprintf("tools[%d]: duplicate name %q", i, tool.Name))
		}
		seen[tool.Name] = true
		if tool.Command == "" {
			errs = append(errs, fmt.Sprintf("tools[%d] (%s): command must not be empty", i, tool.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
