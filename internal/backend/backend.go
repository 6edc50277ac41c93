// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package backend defines the command surface of the process-owning backend
// as consumed by the front end, and the adapter over the API client.
package backend

import (
	"context"

	"github.com/mkrall/deckhand/pkg/client"
)

// Client is the full set of backend commands the front end issues.
//
// All calls are asynchronous from the UI's perspective. Most are
// fire-and-forget with logged failure; a minority are awaited because
// correctness depends on backend confirmation before local state changes:
// session creation, session deletion, and process start.
type Client interface {
	// Session records
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.Session, error)
	DeleteSession(ctx context.Context, id string) error
	RenameSession(ctx context.Context, id, title string) error
	SetSessionCommand(ctx context.Context, id, command string) error
	SetSessionIcon(ctx context.Context, id string, icon client.IconRef) error
	MoveSession(ctx context.Context, id, sectionID string) error
	SetActiveSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]client.Session, error)
	SetToolSessionID(ctx context.Context, id string, tool client.ToolKind, toolSessionID string) error

	// Sections
	CreateSection(ctx context.Context, name, path string) (*client.Section, error)
	DeleteSection(ctx context.Context, id string) error
	RenameSection(ctx context.Context, id, name string) error
	SetSectionPath(ctx context.Context, id, path string) error
	SetSectionIcon(ctx context.Context, id string, icon client.IconRef) error
	ListSections(ctx context.Context) ([]client.Section, error)

	// Process control
	StartSession(ctx context.Context, id string, rows, cols int) error
	StopSession(ctx context.Context, id string) error
	WriteSessionInput(ctx context.Context, id string, data []byte) error
	ResizeSession(ctx context.Context, id string, rows, cols int) error
	AcknowledgeSession(ctx context.Context, id string) error

	// Windows and cross-window transfer
	MoveSessionToWindow(ctx context.Context, sessionID, sourceWindow, targetWindow string) error
	SubscribeToSession(ctx context.Context, sessionID, windowLabel string) error
	RelayWindowIPC(ctx context.Context, targetWindow, event string, payload interface{}) error
	MergeWindows(ctx context.Context, sourceWindow, targetWindow string) error
	GetWindow(ctx context.Context, id string) (*client.WindowRecord, error)
	ListWindows(ctx context.Context) ([]client.WindowRecord, error)
	OpenNewWindow(ctx context.Context, title string, sessionIDs []string) (*client.WindowRecord, error)
	UpdateWindowGeometry(ctx context.Context, id string, geom client.Geometry) error
	DeleteWindowRecord(ctx context.Context, id string) error
}
