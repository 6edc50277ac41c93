// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// SessionClient provides access to session record operations.
//
// Access this client through [Client.Sessions]:
//
//	sessions, err := client.Sessions.List(ctx)
type SessionClient struct {
	c *Client
}

// Create creates a new session record and its backing process decision is
// delegated to the backend. The authoritative record is returned; callers
// must not admit a session into local state before this call succeeds.
func (s *SessionClient) Create(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	data, err := s.c.postJSON(ctx, "/api/v1/sessions", req)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	return &sess, nil
}

// List returns all session records known to the backend.
func (s *SessionClient) List(ctx context.Context) ([]Session, error) {
	data, err := s.c.get(ctx, "/api/v1/sessions")
	if err != nil {
		return nil, err
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}

	return sessions, nil
}

// Delete closes and removes a session. The backend acknowledges the close
// before the record is gone.
func (s *SessionClient) Delete(ctx context.Context, id string) error {
	_, err := s.c.delete(ctx, "/api/v1/sessions/"+id)
	return err
}

// Rename sets a session's title. A user-initiated rename locks the title
// against further backend-driven dynamic updates.
func (s *SessionClient) Rename(ctx context.Context, id, title string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sessions/"+id+"/rename", map[string]string{"title": title})
	return err
}

// SetCommand sets the launch command for a session.
func (s *SessionClient) SetCommand(ctx context.Context, id, command string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sessions/"+id+"/command", map[string]string{"command": command})
	return err
}

// SetIcon sets a session's icon.
func (s *SessionClient) SetIcon(ctx context.Context, id string, icon IconRef) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sessions/"+id+"/icon", icon)
	return err
}

// Move reassigns a session to a different section.
func (s *SessionClient) Move(ctx context.Context, id, sectionID string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sessions/"+id+"/move", map[string]string{"sectionId": sectionID})
	return err
}

// SetActive notifies the backend which session is active in the calling window.
func (s *SessionClient) SetActive(ctx context.Context, id string) error {
	_, err := s.c.post(ctx, "/api/v1/sessions/"+id+"/activate")
	return err
}

// SetToolSessionID persists a tool-assigned correlation id for a session.
func (s *SessionClient) SetToolSessionID(ctx context.Context, id string, tool ToolKind, toolSessionID string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sessions/"+id+"/tool-session", map[string]string{
		"tool":          string(tool),
		"toolSessionId": toolSessionID,
	})
	return err
}
