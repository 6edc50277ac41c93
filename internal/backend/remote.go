// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"

	"github.com/mkrall/deckhand/pkg/client"
)

// Remote adapts the API client's resource sub-clients to the flat [Client]
// command surface the front-end components consume.
type Remote struct {
	api *client.Client
}

// NewRemote creates a Remote backed by the given API client.
func NewRemote(api *client.Client) *Remote {
	return &Remote{api: api}
}

// API returns the underlying API client.
func (r *Remote) API() *client.Client {
	return r.api
}

func (r *Remote) CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.Session, error) {
	return r.api.Sessions.Create(ctx, req)
}

func (r *Remote) DeleteSession(ctx context.Context, id string) error {
	return r.api.Sessions.Delete(ctx, id)
}

func (r *Remote) RenameSession(ctx context.Context, id, title string) error {
	return r.api.Sessions.Rename(ctx, id, title)
}

func (r *Remote) SetSessionCommand(ctx context.Context, id, command string) error {
	return r.api.Sessions.SetCommand(ctx, id, command)
}

func (r *Remote) SetSessionIcon(ctx context.Context, id string, icon client.IconRef) error {
	return r.api.Sessions.SetIcon(ctx, id, icon)
}

func (r *Remote) MoveSession(ctx context.Context, id, sectionID string) error {
	return r.api.Sessions.Move(ctx, id, sectionID)
}

func (r *Remote) SetActiveSession(ctx context.Context, id string) error {
	return r.api.Sessions.SetActive(ctx, id)
}

func (r *Remote) ListSessions(ctx context.Context) ([]client.Session, error) {
	return r.api.Sessions.List(ctx)
}

func (r *Remote) SetToolSessionID(ctx context.Context, id string, tool client.ToolKind, toolSessionID string) error {
	return r.api.Sessions.SetToolSessionID(ctx, id, tool, toolSessionID)
}

func (r *Remote) CreateSection(ctx context.Context, name, path string) (*client.Section, error) {
	return r.api.Sections.Create(ctx, name, path)
}

func (r *Remote) DeleteSection(ctx context.Context, id string) error {
	return r.api.Sections.Delete(ctx, id)
}

func (r *Remote) RenameSection(ctx context.Context, id, name string) error {
	return r.api.Sections.Rename(ctx, id, name)
}

func (r *Remote) SetSectionPath(ctx context.Context, id, path string) error {
	return r.api.Sections.SetPath(ctx, id, path)
}

func (r *Remote) SetSectionIcon(ctx context.Context, id string, icon client.IconRef) error {
	return r.api.Sections.SetIcon(ctx, id, icon)
}

func (r *Remote) ListSections(ctx context.Context) ([]client.Section, error) {
	return r.api.Sections.List(ctx)
}

func (r *Remote) StartSession(ctx context.Context, id string, rows, cols int) error {
	return r.api.Terminal.Start(ctx, id, rows, cols)
}

func (r *Remote) StopSession(ctx context.Context, id string) error {
	return r.api.Terminal.Stop(ctx, id)
}

func (r *Remote) WriteSessionInput(ctx context.Context, id string, data []byte) error {
	return r.api.Terminal.WriteInput(ctx, id, data)
}

func (r *Remote) ResizeSession(ctx context.Context, id string, rows, cols int) error {
	return r.api.Terminal.Resize(ctx, id, rows, cols)
}

func (r *Remote) AcknowledgeSession(ctx context.Context, id string) error {
	return r.api.Terminal.Acknowledge(ctx, id)
}

func (r *Remote) MoveSessionToWindow(ctx context.Context, sessionID, sourceWindow, targetWindow string) error {
	return r.api.Windows.MoveSession(ctx, sessionID, sourceWindow, targetWindow)
}

func (r *Remote) SubscribeToSession(ctx context.Context, sessionID, windowLabel string) error {
	return r.api.Windows.Subscribe(ctx, sessionID, windowLabel)
}

func (r *Remote) RelayWindowIPC(ctx context.Context, targetWindow, event string, payload interface{}) error {
	return r.api.Windows.Relay(ctx, targetWindow, event, payload)
}

func (r *Remote) MergeWindows(ctx context.Context, sourceWindow, targetWindow string) error {
	return r.api.Windows.Merge(ctx, sourceWindow, targetWindow)
}

func (r *Remote) GetWindow(ctx context.Context, id string) (*client.WindowRecord, error) {
	return r.api.Windows.Get(ctx, id)
}

func (r *Remote) ListWindows(ctx context.Context) ([]client.WindowRecord, error) {
	return r.api.Windows.List(ctx)
}

func (r *Remote) OpenNewWindow(ctx context.Context, title string, sessionIDs []string) (*client.WindowRecord, error) {
	return r.api.Windows.Open(ctx, title, sessionIDs)
}

func (r *Remote) UpdateWindowGeometry(ctx context.Context, id string, geom client.Geometry) error {
	return r.api.Windows.UpdateGeometry(ctx, id, geom)
}

func (r *Remote) DeleteWindowRecord(ctx context.Context, id string) error {
	return r.api.Windows.Delete(ctx, id)
}
