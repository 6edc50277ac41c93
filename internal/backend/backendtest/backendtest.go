// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package backendtest provides a scripted in-memory backend for tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkrall/deckhand/pkg/client"
)

// Call records one backend call: its operation name and arguments.
type Call struct {
	Op   string
	Args []interface{}
}

// Fake is a scripted backend.Client implementation.
//
// Every method records a Call and succeeds by default. Individual operations
// can be scripted to fail via FailOn, and hooks can observe calls as they
// happen (e.g. to emit an output event synchronously from StartSession).
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	nextID   int

	// Hooks, keyed by operation name, run synchronously during the call
	// after the call is recorded and before the scripted error is checked.
	hooks map[string]func(args ...interface{})

	// Sessions and Sections returned by the List operations.
	SessionList []client.Session
	SectionList []client.Section
	WindowList  []client.WindowRecord
}

// New creates an empty scripted backend.
func New() *Fake {
	return &Fake{
		failures: make(map[string]error),
		hooks:    make(map[string]func(args ...interface{})),
	}
}

// FailOn makes the named operation return err.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// HookOn runs fn synchronously whenever the named operation is called.
func (f *Fake) HookOn(op string, fn func(args ...interface{})) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

// Calls returns a copy of all recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls for one operation.
func (f *Fake) CallsTo(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// record logs the call, runs any hook, and returns the scripted error.
func (f *Fake) record(op string, args ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Args: args})
	hook := f.hooks[op]
	err := f.failures[op]
	f.mu.Unlock()

	if hook != nil {
		hook(args...)
	}
	return err
}

func (f *Fake) genID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *Fake) CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.Session, error) {
	if err := f.record("create_session", req); err != nil {
		return nil, err
	}
	sess := client.Session{
		ID:        f.genID("sess"),
		Title:     req.Title,
		SectionID: req.SectionID,
		Tool:      req.Tool,
		Command:   req.Command,
		Icon:      req.Icon,
		Status:    client.StatusStarting,
		IsOpen:    true,
	}
	return &sess, nil
}

func (f *Fake) DeleteSession(ctx context.Context, id string) error {
	return f.record("delete_session", id)
}

func (f *Fake) RenameSession(ctx context.Context, id, title string) error {
	return f.record("rename_session", id, title)
}

func (f *Fake) SetSessionCommand(ctx context.Context, id, command string) error {
	return f.record("set_session_command", id, command)
}

func (f *Fake) SetSessionIcon(ctx context.Context, id string, icon client.IconRef) error {
	return f.record("set_session_icon", id, icon)
}

func (f *Fake) MoveSession(ctx context.Context, id, sectionID string) error {
	return f.record("move_session", id, sectionID)
}

func (f *Fake) SetActiveSession(ctx context.Context, id string) error {
	return f.record("set_active_session", id)
}

func (f *Fake) ListSessions(ctx context.Context) ([]client.Session, error) {
	if err := f.record("list_sessions"); err != nil {
		return nil, err
	}
	return f.SessionList, nil
}

func (f *Fake) SetToolSessionID(ctx context.Context, id string, tool client.ToolKind, toolSessionID string) error {
	return f.record("set_tool_session_id", id, tool, toolSessionID)
}

func (f *Fake) CreateSection(ctx context.Context, name, path string) (*client.Section, error) {
	if err := f.record("create_section", name, path); err != nil {
		return nil, err
	}
	sec := client.Section{ID: f.genID("sec"), Name: name, Path: path}
	return &sec, nil
}

func (f *Fake) DeleteSection(ctx context.Context, id string) error {
	return f.record("delete_section", id)
}

func (f *Fake) RenameSection(ctx context.Context, id, name string) error {
	return f.record("rename_section", id, name)
}

func (f *Fake) SetSectionPath(ctx context.Context, id, path string) error {
	return f.record("set_section_path", id, path)
}

func (f *Fake) SetSectionIcon(ctx context.Context, id string, icon client.IconRef) error {
	return f.record("set_section_icon", id, icon)
}

func (f *Fake) ListSections(ctx context.Context) ([]client.Section, error) {
	if err := f.record("list_sections"); err != nil {
		return nil, err
	}
	return f.SectionList, nil
}

func (f *Fake) StartSession(ctx context.Context, id string, rows, cols int) error {
	return f.record("start_session", id, rows, cols)
}

func (f *Fake) StopSession(ctx context.Context, id string) error {
	return f.record("stop_session", id)
}

func (f *Fake) WriteSessionInput(ctx context.Context, id string, data []byte) error {
	return f.record("write_session_input", id, data)
}

func (f *Fake) ResizeSession(ctx context.Context, id string, rows, cols int) error {
	return f.record("resize_session", id, rows, cols)
}

func (f *Fake) AcknowledgeSession(ctx context.Context, id string) error {
	return f.record("acknowledge_session", id)
}

func (f *Fake) MoveSessionToWindow(ctx context.Context, sessionID, sourceWindow, targetWindow string) error {
	return f.record("move_session_to_window", sessionID, sourceWindow, targetWindow)
}

func (f *Fake) SubscribeToSession(ctx context.Context, sessionID, windowLabel string) error {
	return f.record("subscribe_to_session", sessionID, windowLabel)
}

func (f *Fake) RelayWindowIPC(ctx context.Context, targetWindow, event string, payload interface{}) error {
	return f.record("relay_window_ipc", targetWindow, event, payload)
}

func (f *Fake) MergeWindows(ctx context.Context, sourceWindow, targetWindow string) error {
	return f.record("merge_windows", sourceWindow, targetWindow)
}

func (f *Fake) GetWindow(ctx context.Context, id string) (*client.WindowRecord, error) {
	if err := f.record("get_window", id); err != nil {
		return nil, err
	}
	for i := range f.WindowList {
		if f.WindowList[i].ID == id {
			return &f.WindowList[i], nil
		}
	}
	return &client.WindowRecord{ID: id}, nil
}

func (f *Fake) ListWindows(ctx context.Context) ([]client.WindowRecord, error) {
	if err := f.record("list_windows"); err != nil {
		return nil, err
	}
	return f.WindowList, nil
}

func (f *Fake) OpenNewWindow(ctx context.Context, title string, sessionIDs []string) (*client.WindowRecord, error) {
	if err := f.record("open_new_window", title, sessionIDs); err != nil {
		return nil, err
	}
	win := client.WindowRecord{ID: f.genID("win"), Title: title, SessionIDs: sessionIDs}
	return &win, nil
}

func (f *Fake) UpdateWindowGeometry(ctx context.Context, id string, geom client.Geometry) error {
	return f.record("update_window_geometry", id, geom)
}

func (f *Fake) DeleteWindowRecord(ctx context.Context, id string) error {
	return f.record("delete_window_record", id)
}
