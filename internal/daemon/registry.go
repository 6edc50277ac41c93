// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package daemon implements the backend: the authoritative session,
// section, and window registry, the process table, and the HTTP/WebSocket
// API the window front ends consume.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkrall/deckhand/pkg/client"
)

// MainWindowLabel is the label of the window created at bootstrap.
const MainWindowLabel = "main"

// Registry errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrWindowNotFound   = errors.New("window not found")
	ErrDefaultImmutable = errors.New("default section cannot be removed")
)

// registryState is the persisted form of the registry.
type registryState struct {
	Sessions []client.Session      `json:"sessions"`
	Sections []client.Section      `json:"sections"`
	Windows  []client.WindowRecord `json:"windows"`
}

// Registry is the authoritative store of session, section, and window
// records. It owns identity: every id is minted here.
type Registry struct {
	mu        sync.RWMutex
	statePath string

	sessions map[string]*client.Session
	sections map[string]*client.Section
	windows  map[string]*client.WindowRecord

	// subscribers maps session id to the labels of windows mirroring it,
	// beyond the owning window.
	subscribers map[string]map[string]struct{}

	// unread marks sessions with output the user has not acknowledged.
	unread map[string]bool
}

// NewRegistry loads persisted state from statePath, or bootstraps a fresh
// registry with a default section and the main window. Empty statePath
// disables persistence.
func NewRegistry(statePath string) (*Registry, error) {
	r := &Registry{
		statePath:   statePath,
		sessions:    make(map[string]*client.Session),
		sections:    make(map[string]*client.Section),
		windows:     make(map[string]*client.WindowRecord),
		subscribers: make(map[string]map[string]struct{}),
		unread:      make(map[string]bool),
	}

	if statePath != "" {
		if err := r.load(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading registry state: %w", err)
			}
		}
	}

	r.mu.Lock()
	if r.defaultSectionLocked() == nil {
		id := uuid.New().String()
		r.sections[id] = &client.Section{
			ID:        id,
			Name:      "Terminals",
			IsDefault: true,
		}
	}
	if _, ok := r.windows[MainWindowLabel]; !ok {
		r.windows[MainWindowLabel] = &client.WindowRecord{
			ID:     MainWindowLabel,
			Title:  "deckhand",
			IsMain: true,
		}
	}
	// Processes do not survive a daemon restart.
	for _, sess := range r.sessions {
		sess.IsOpen = false
		sess.Status = client.StatusIdle
	}
	r.mu.Unlock()

	return r, nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		return err
	}
	var state registryState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing registry state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range state.Sessions {
		r.sessions[state.Sessions[i].ID] = &state.Sessions[i]
	}
	for i := range state.Sections {
		r.sections[state.Sections[i].ID] = &state.Sections[i]
	}
	for i := range state.Windows {
		r.windows[state.Windows[i].ID] = &state.Windows[i]
	}
	return nil
}

// save persists the registry atomically: temp file, then rename. Failures
// are logged; the in-memory registry stays authoritative.
func (r *Registry) save() {
	if r.statePath == "" {
		return
	}

	r.mu.RLock()
	state := registryState{
		Sessions: make([]client.Session, 0, len(r.sessions)),
		Sections: make([]client.Section, 0, len(r.sections)),
		Windows:  make([]client.WindowRecord, 0, len(r.windows)),
	}
	for _, sess := range r.sessions {
		state.Sessions = append(state.Sessions, *sess)
	}
	for _, sec := range r.sections {
		state.Sections = append(state.Sections, *sec)
	}
	for _, win := range r.windows {
		state.Windows = append(state.Windows, *win)
	}
	r.mu.RUnlock()

	sort.Slice(state.Sessions, func(i, j int) bool { return state.Sessions[i].ID < state.Sessions[j].ID })
	sort.Slice(state.Sections, func(i, j int) bool { return state.Sections[i].Order < state.Sections[j].Order })
	sort.Slice(state.Windows, func(i, j int) bool { return state.Windows[i].ID < state.Windows[j].ID })

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("Warning: marshaling registry state: %v", err)
		return
	}

	dir := filepath.Dir(r.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Warning: creating state directory: %v", err)
		return
	}
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		log.Printf("Warning: creating temp state file: %v", err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		log.Printf("Warning: writing registry state: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		log.Printf("Warning: closing temp state file: %v", err)
		return
	}
	if err := os.Rename(tmpName, r.statePath); err != nil {
		os.Remove(tmpName)
		log.Printf("Warning: replacing registry state: %v", err)
	}
}

// --- sessions ---

// CreateSession mints a session record. The requested section must exist;
// an empty section id resolves to the default section.
func (r *Registry) CreateSession(req client.CreateSessionRequest) (client.Session, error) {
	r.mu.Lock()
	secID := req.SectionID
	if secID == "" {
		secID = r.defaultSectionLocked().ID
	}
	sec, ok := r.sections[secID]
	if !ok {
		r.mu.Unlock()
		return client.Session{}, ErrSectionNotFound
	}

	window := req.Window
	if _, ok := r.windows[window]; !ok {
		window = MainWindowLabel
	}

	sess := &client.Session{
		ID:        uuid.New().String(),
		Title:     req.Title,
		SectionID: sec.ID,
		Tool:      req.Tool,
		Command:   req.Command,
		Icon:      req.Icon,
		Status:    client.StatusStarting,
		CreatedAt: time.Now(),
		IsOpen:    true,
		TabOrder:  r.sectionSizeLocked(sec.ID),
	}
	r.sessions[sess.ID] = sess

	win := r.windows[window]
	win.SessionIDs = append(win.SessionIDs, sess.ID)
	r.mu.Unlock()

	r.save()
	return *sess, nil
}

// DeleteSession removes a session record and every window reference to it.
func (r *Registry) DeleteSession(id string) error {
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	delete(r.subscribers, id)
	delete(r.unread, id)
	for _, win := range r.windows {
		win.SessionIDs = removeID(win.SessionIDs, id)
		if win.ActiveSessionID == id {
			win.ActiveSessionID = ""
		}
	}
	r.mu.Unlock()

	r.save()
	return nil
}

// Session returns a copy of the session record.
func (r *Registry) Session(id string) (client.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return client.Session{}, false
	}
	return *sess, true
}

// ListSessions returns all session records ordered by section and tab
// position.
func (r *Registry) ListSessions() []client.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]client.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		return out[i].TabOrder < out[j].TabOrder
	})
	return out
}

// UpdateSession applies fn to the live session record under lock.
func (r *Registry) UpdateSession(id string, fn func(*client.Session)) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	fn(sess)
	r.mu.Unlock()

	r.save()
	return nil
}

// RenameSession sets the title and locks it against dynamic updates.
func (r *Registry) RenameSession(id, title string) error {
	return r.UpdateSession(id, func(s *client.Session) {
		s.Title = title
		s.TitleLocked = true
	})
}

// MoveSessionToSection reassigns a session's owning section.
func (r *Registry) MoveSessionToSection(id, sectionID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	if _, ok := r.sections[sectionID]; !ok {
		r.mu.Unlock()
		return ErrSectionNotFound
	}
	sess.SectionID = sectionID
	sess.TabOrder = r.sectionSizeLocked(sectionID) - 1
	r.mu.Unlock()

	r.save()
	return nil
}

// SetToolSessionID records a tool-assigned correlation id.
func (r *Registry) SetToolSessionID(id string, tool client.ToolKind, toolSessionID string) error {
	return r.UpdateSession(id, func(s *client.Session) {
		if s.ToolSessionIDs == nil {
			s.ToolSessionIDs = make(map[client.ToolKind]string)
		}
		s.ToolSessionIDs[tool] = toolSessionID
	})
}

// MarkUnread flags a session as having output the user has not seen.
func (r *Registry) MarkUnread(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		r.unread[id] = true
	}
}

// Acknowledge clears a session's unread flag and stamps access time.
func (r *Registry) Acknowledge(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.unread, id)
	sess.LastAccessedAt = time.Now()
	r.mu.Unlock()
	return nil
}

// Unread reports whether a session has unacknowledged output.
func (r *Registry) Unread(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unread[id]
}

// SetActiveSession records the active session of the window owning it.
func (r *Registry) SetActiveSession(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	for _, win := range r.windows {
		if containsID(win.SessionIDs, id) {
			win.ActiveSessionID = id
		}
	}
	r.mu.Unlock()

	r.save()
	return nil
}

// --- sections ---

// CreateSection mints a section record.
func (r *Registry) CreateSection(name, path string) client.Section {
	r.mu.Lock()
	sec := &client.Section{
		ID:    uuid.New().String(),
		Name:  name,
		Path:  path,
		Order: len(r.sections),
	}
	r.sections[sec.ID] = sec
	r.mu.Unlock()

	r.save()
	return *sec
}

// DeleteSection removes a section, cascading its sessions to the default
// section. The default section cannot be removed.
func (r *Registry) DeleteSection(id string) error {
	r.mu.Lock()
	sec, ok := r.sections[id]
	if !ok {
		r.mu.Unlock()
		return ErrSectionNotFound
	}
	if sec.IsDefault {
		r.mu.Unlock()
		return ErrDefaultImmutable
	}
	def := r.defaultSectionLocked()
	base := r.sectionSizeLocked(def.ID)
	moved := 0
	for _, sess := range r.sessionsInSectionLocked(id) {
		sess.SectionID = def.ID
		sess.TabOrder = base + moved
		moved++
	}
	delete(r.sections, id)
	r.mu.Unlock()

	r.save()
	return nil
}

// UpdateSection applies fn to the live section record under lock.
func (r *Registry) UpdateSection(id string, fn func(*client.Section)) error {
	r.mu.Lock()
	sec, ok := r.sections[id]
	if !ok {
		r.mu.Unlock()
		return ErrSectionNotFound
	}
	fn(sec)
	r.mu.Unlock()

	r.save()
	return nil
}

// Section returns a copy of the section record.
func (r *Registry) Section(id string) (client.Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sec, ok := r.sections[id]
	if !ok {
		return client.Section{}, false
	}
	return *sec, true
}

// ListSections returns all sections in order.
func (r *Registry) ListSections() []client.Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]client.Section, 0, len(r.sections))
	for _, sec := range r.sections {
		out = append(out, *sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// DefaultSection returns the default section.
func (r *Registry) DefaultSection() client.Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.defaultSectionLocked()
}

// --- windows ---

// OpenWindow mints a window record rendering the given sessions.
func (r *Registry) OpenWindow(title string, sessionIDs []string) client.WindowRecord {
	r.mu.Lock()
	win := &client.WindowRecord{
		ID:    "win-" + uuid.New().String()[:8],
		Title: title,
	}
	for _, id := range sessionIDs {
		if _, ok := r.sessions[id]; ok {
			win.SessionIDs = append(win.SessionIDs, id)
		}
	}
	r.windows[win.ID] = win
	r.mu.Unlock()

	r.save()
	return *win
}

// Window returns a copy of a window record.
func (r *Registry) Window(id string) (client.WindowRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	win, ok := r.windows[id]
	if !ok {
		return client.WindowRecord{}, false
	}
	return *win, true
}

// ListWindows returns all window records.
func (r *Registry) ListWindows() []client.WindowRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]client.WindowRecord, 0, len(r.windows))
	for _, win := range r.windows {
		out = append(out, *win)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateWindowGeometry records a window's position and size.
func (r *Registry) UpdateWindowGeometry(id string, geom client.Geometry) error {
	r.mu.Lock()
	win, ok := r.windows[id]
	if !ok {
		r.mu.Unlock()
		return ErrWindowNotFound
	}
	win.Geom = geom
	r.mu.Unlock()

	r.save()
	return nil
}

// DeleteWindow removes a window record. The main window cannot be deleted.
func (r *Registry) DeleteWindow(id string) error {
	r.mu.Lock()
	win, ok := r.windows[id]
	if !ok {
		r.mu.Unlock()
		return ErrWindowNotFound
	}
	if win.IsMain {
		r.mu.Unlock()
		return fmt.Errorf("main window cannot be deleted")
	}
	delete(r.windows, id)
	for sessID, subs := range r.subscribers {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.subscribers, sessID)
		}
	}
	r.mu.Unlock()

	r.save()
	return nil
}

// MoveSessionToWindow exclusively transfers rendering ownership of a
// session from the source window to the target window.
func (r *Registry) MoveSessionToWindow(sessionID, sourceWindow, targetWindow string) error {
	r.mu.Lock()
	if _, ok := r.sessions[sessionID]; !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	target, ok := r.windows[targetWindow]
	if !ok {
		r.mu.Unlock()
		return ErrWindowNotFound
	}
	if source, ok := r.windows[sourceWindow]; ok {
		source.SessionIDs = removeID(source.SessionIDs, sessionID)
		if source.ActiveSessionID == sessionID {
			source.ActiveSessionID = ""
		}
	}
	if !containsID(target.SessionIDs, sessionID) {
		target.SessionIDs = append(target.SessionIDs, sessionID)
	}
	// A moved session stops mirroring into its former source.
	if subs, ok := r.subscribers[sessionID]; ok {
		delete(subs, sourceWindow)
	}
	r.mu.Unlock()

	r.save()
	return nil
}

// SubscribeWindow attaches a window to a session's output without
// detaching any other window.
func (r *Registry) SubscribeWindow(sessionID, windowLabel string) error {
	r.mu.Lock()
	if _, ok := r.sessions[sessionID]; !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	if _, ok := r.windows[windowLabel]; !ok {
		r.mu.Unlock()
		return ErrWindowNotFound
	}
	if r.subscribers[sessionID] == nil {
		r.subscribers[sessionID] = make(map[string]struct{})
	}
	r.subscribers[sessionID][windowLabel] = struct{}{}
	r.mu.Unlock()

	r.save()
	return nil
}

// MergeWindows moves every session rendered in the source window to the
// target window and deletes the source record.
func (r *Registry) MergeWindows(sourceWindow, targetWindow string) error {
	r.mu.RLock()
	source, ok := r.windows[sourceWindow]
	if !ok {
		r.mu.RUnlock()
		return ErrWindowNotFound
	}
	if _, ok := r.windows[targetWindow]; !ok {
		r.mu.RUnlock()
		return ErrWindowNotFound
	}
	ids := append([]string(nil), source.SessionIDs...)
	isMain := source.IsMain
	r.mu.RUnlock()

	for _, id := range ids {
		if err := r.MoveSessionToWindow(id, sourceWindow, targetWindow); err != nil {
			return err
		}
	}
	if !isMain {
		return r.DeleteWindow(sourceWindow)
	}
	return nil
}

// WindowsForSession returns the labels of every window rendering the
// session: the owners plus any mirror subscribers.
func (r *Registry) WindowsForSession(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var labels []string
	for _, win := range r.windows {
		if containsID(win.SessionIDs, sessionID) {
			if _, dup := seen[win.ID]; !dup {
				seen[win.ID] = struct{}{}
				labels = append(labels, win.ID)
			}
		}
	}
	for label := range r.subscribers[sessionID] {
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// SessionsInWindow returns the ids of sessions owned by a window.
func (r *Registry) SessionsInWindow(label string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	win, ok := r.windows[label]
	if !ok {
		return nil
	}
	return append([]string(nil), win.SessionIDs...)
}

// --- helpers ---

func (r *Registry) defaultSectionLocked() *client.Section {
	for _, sec := range r.sections {
		if sec.IsDefault {
			return sec
		}
	}
	return nil
}

func (r *Registry) sectionSizeLocked(sectionID string) int {
	n := 0
	for _, sess := range r.sessions {
		if sess.SectionID == sectionID {
			n++
		}
	}
	return n
}

func (r *Registry) sessionsInSectionLocked(sectionID string) []*client.Session {
	var out []*client.Session
	for _, sess := range r.sessions {
		if sess.SectionID == sectionID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabOrder < out[j].TabOrder })
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
