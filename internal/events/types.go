// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus for Deckhand.
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Window    string                 `json:"window"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types  []string  // Event types to match (supports wildcards)
	Window string    // Filter by window label
	Since  time.Time // Events after this time
	Until  time.Time // Events before this time
	Limit  int       // Maximum events to return
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// SetDefaultWindow sets the default window label for events that don't specify one.
	SetDefaultWindow(window string)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Common event types
const (
	// Session process events pushed by the backend
	EventSessionOutput = "session.output"
	EventSessionExit   = "session.exit"
	EventSessionStatus = "session.status"
	EventSessionToolID = "session.toolid"

	// Session lifecycle events raised by the store
	EventSessionCreated   = "session.created"
	EventSessionRemoved   = "session.removed"
	EventSessionActivated = "session.activated"

	// Section lifecycle events raised by the store
	EventSectionCreated = "section.created"
	EventSectionRemoved = "section.removed"

	// Cross-window events
	EventWindowRelay          = "window.relay"
	EventWindowTransfer       = "window.transfer"
	EventWindowCloseRequested = "window.close-requested"

	// Configuration events
	EventConfigChanged = "config.changed"
)
