// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/base64"
)

// TerminalClient provides process control operations for a session's
// backing process.
//
// Access this client through [Client.Terminal]:
//
//	err := client.Terminal.Start(ctx, id, 24, 80)
type TerminalClient struct {
	c *Client
}

// Start starts the backing process for a session with an initial size.
//
// Output emitted by the process is broadcast as session-output events on the
// window event feed; callers must subscribe to the feed before calling Start
// to avoid losing output emitted immediately after process start.
func (t *TerminalClient) Start(ctx context.Context, id string, rows, cols int) error {
	_, err := t.c.postJSON(ctx, "/api/v1/sessions/"+id+"/start", map[string]int{
		"rows": rows,
		"cols": cols,
	})
	return err
}

// Stop stops the backing process for a session. The session record remains.
func (t *TerminalClient) Stop(ctx context.Context, id string) error {
	_, err := t.c.post(ctx, "/api/v1/sessions/"+id+"/stop")
	return err
}

// WriteInput forwards input bytes to the session's backing process.
func (t *TerminalClient) WriteInput(ctx context.Context, id string, data []byte) error {
	_, err := t.c.postJSON(ctx, "/api/v1/sessions/"+id+"/input", map[string]string{
		"data": base64.StdEncoding.EncodeToString(data),
	})
	return err
}

// Resize resizes the session's backing pty.
func (t *TerminalClient) Resize(ctx context.Context, id string, rows, cols int) error {
	_, err := t.c.postJSON(ctx, "/api/v1/sessions/"+id+"/resize", map[string]int{
		"rows": rows,
		"cols": cols,
	})
	return err
}

// Acknowledge marks a session as seen by the user, for unread tracking.
func (t *TerminalClient) Acknowledge(ctx context.Context, id string) error {
	_, err := t.c.post(ctx, "/api/v1/sessions/"+id+"/acknowledge")
	return err
}
