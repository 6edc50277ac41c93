// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// WindowClient provides access to window record operations and the
// cross-window transfer calls.
//
// Access this client through [Client.Windows]:
//
//	windows, err := client.Windows.List(ctx)
type WindowClient struct {
	c *Client
}

// Get returns the window record for the given label.
func (w *WindowClient) Get(ctx context.Context, id string) (*WindowRecord, error) {
	data, err := w.c.get(ctx, "/api/v1/windows/"+id)
	if err != nil {
		return nil, err
	}

	var win WindowRecord
	if err := json.Unmarshal(data, &win); err != nil {
		return nil, fmt.Errorf("failed to parse window: %w", err)
	}

	return &win, nil
}

// List returns all window records.
func (w *WindowClient) List(ctx context.Context) ([]WindowRecord, error) {
	data, err := w.c.get(ctx, "/api/v1/windows")
	if err != nil {
		return nil, err
	}

	var windows []WindowRecord
	if err := json.Unmarshal(data, &windows); err != nil {
		return nil, fmt.Errorf("failed to parse windows: %w", err)
	}

	return windows, nil
}

// Open creates a new window record rendering the given sessions.
func (w *WindowClient) Open(ctx context.Context, title string, sessionIDs []string) (*WindowRecord, error) {
	data, err := w.c.postJSON(ctx, "/api/v1/windows", map[string]interface{}{
		"title":      title,
		"sessionIds": sessionIDs,
	})
	if err != nil {
		return nil, err
	}

	var win WindowRecord
	if err := json.Unmarshal(data, &win); err != nil {
		return nil, fmt.Errorf("failed to parse window: %w", err)
	}

	return &win, nil
}

// UpdateGeometry records a window's position and size.
func (w *WindowClient) UpdateGeometry(ctx context.Context, id string, geom Geometry) error {
	_, err := w.c.postJSON(ctx, "/api/v1/windows/"+id+"/geometry", geom)
	return err
}

// Delete removes a window record.
func (w *WindowClient) Delete(ctx context.Context, id string) error {
	_, err := w.c.delete(ctx, "/api/v1/windows/"+id)
	return err
}

// MoveSession exclusively transfers a session's rendering ownership from the
// source window to the target window.
func (w *WindowClient) MoveSession(ctx context.Context, sessionID, sourceWindow, targetWindow string) error {
	_, err := w.c.postJSON(ctx, "/api/v1/windows/"+targetWindow+"/move-session", map[string]string{
		"sessionId":      sessionID,
		"sourceWindowId": sourceWindow,
	})
	return err
}

// Subscribe attaches a window to a session's output without detaching any
// other window. The session then renders in multiple windows concurrently,
// fed by the same backing process.
func (w *WindowClient) Subscribe(ctx context.Context, sessionID, windowLabel string) error {
	_, err := w.c.postJSON(ctx, "/api/v1/windows/"+windowLabel+"/subscribe", map[string]string{
		"sessionId": sessionID,
	})
	return err
}

// Relay delivers a custom event to the target window's event feed.
func (w *WindowClient) Relay(ctx context.Context, targetWindow, event string, payload interface{}) error {
	_, err := w.c.postJSON(ctx, "/api/v1/windows/"+targetWindow+"/relay", map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	return err
}

// Merge moves every session rendered in the source window into the target
// window and deletes the source window record.
func (w *WindowClient) Merge(ctx context.Context, sourceWindow, targetWindow string) error {
	_, err := w.c.postJSON(ctx, "/api/v1/windows/"+sourceWindow+"/merge", map[string]string{
		"target": targetWindow,
	})
	return err
}
