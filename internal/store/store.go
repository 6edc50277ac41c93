// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store holds the front end's view of sessions and sections.
//
// The Store is the single source of truth for the current window: the
// ordered section list, each section's ordered session list, the active
// session, and the activated set (sessions rendered at least once). It is
// explicitly constructed and passed by reference; there is no package-level
// state.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mkrall/deckhand/internal/events"
	"github.com/mkrall/deckhand/pkg/client"
)

// Store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSectionNotFound = errors.New("section not found")
)

// Backend is the subset of backend commands the store issues.
type Backend interface {
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.Session, error)
	DeleteSession(ctx context.Context, id string) error
	RenameSession(ctx context.Context, id, title string) error
	SetSessionCommand(ctx context.Context, id, command string) error
	SetSessionIcon(ctx context.Context, id string, icon client.IconRef) error
	MoveSession(ctx context.Context, id, sectionID string) error
	SetActiveSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]client.Session, error)
	SetToolSessionID(ctx context.Context, id string, tool client.ToolKind, toolSessionID string) error
	CreateSection(ctx context.Context, name, path string) (*client.Section, error)
	DeleteSection(ctx context.Context, id string) error
	RenameSection(ctx context.Context, id, name string) error
	SetSectionPath(ctx context.Context, id, path string) error
	SetSectionIcon(ctx context.Context, id string, icon client.IconRef) error
	ListSections(ctx context.Context) ([]client.Section, error)
}

// Options configures a Store.
type Options struct {
	// Window is this window's label, stamped on published events.
	Window string

	// StatePath is the path of the local section-hints file. Empty disables
	// local persistence.
	StatePath string
}

// Store is the entity store for one window.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	bus     events.EventBus
	persist *SectionStore
	window  string

	sections  []*client.Section          // ordered
	sessions  map[string]*client.Session // by id
	order     map[string][]string        // section id -> ordered session ids
	activated map[string]struct{}
	activeID  string
}

// New creates a Store. Call [Store.Load] before use.
func New(backend Backend, bus events.EventBus, opts Options) *Store {
	s := &Store{
		backend:   backend,
		bus:       bus,
		window:    opts.Window,
		sessions:  make(map[string]*client.Session),
		order:     make(map[string][]string),
		activated: make(map[string]struct{}),
	}
	if opts.StatePath != "" {
		s.persist = NewSectionStore(opts.StatePath)
	}
	return s
}

// CreateOptions holds parameters for creating a session.
type CreateOptions struct {
	Title   string
	Tool    client.ToolRef
	Command string
	Icon    *client.IconRef
}

// CreateSession creates a session in the given section.
//
// The backend decides whether to start a process and returns the
// authoritative record; no provisional local record is kept if the call
// fails. On success the session is admitted, made active, and marked
// activated.
func (s *Store) CreateSession(ctx context.Context, sectionID string, opts CreateOptions) (client.Session, error) {
	s.mu.Lock()
	if s.sectionByIDLocked(sectionID) == nil {
		s.mu.Unlock()
		return client.Session{}, fmt.Errorf("create session: %w", ErrSectionNotFound)
	}
	title := opts.Title
	if title == "" {
		title = s.defaultTitleLocked(sectionID, opts.Tool)
	}
	s.mu.Unlock()

	sess, err := s.backend.CreateSession(ctx, client.CreateSessionRequest{
		SectionID: sectionID,
		Title:     title,
		Tool:      opts.Tool,
		Command:   opts.Command,
		Icon:      opts.Icon,
		Window:    s.window,
	})
	if err != nil {
		return client.Session{}, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	record := *sess
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.LastAccessedAt = time.Now()
	record.TabOrder = len(s.order[sectionID])
	s.sessions[record.ID] = &record
	s.order[sectionID] = append(s.order[sectionID], record.ID)
	s.activated[record.ID] = struct{}{}
	s.activeID = record.ID
	s.mu.Unlock()

	s.fireAndForget("set_active_session", func(ctx context.Context) error {
		return s.backend.SetActiveSession(ctx, record.ID)
	})
	s.publish(events.EventSessionCreated, map[string]interface{}{"sessionId": record.ID})
	s.publish(events.EventSessionActivated, map[string]interface{}{"sessionId": record.ID})

	return record, nil
}

// RemoveSession closes and removes a session.
//
// The backend must acknowledge the close before any local state changes. If
// the removed session was active, the session now occupying the same
// position in its section's ordered list becomes active (clamped to the new
// length), or none if the section is empty.
func (s *Store) RemoveSession(ctx context.Context, id string) error {
	s.mu.RLock()
	_, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("remove session: %w", ErrSessionNotFound)
	}

	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	next, wasActive := s.evict(id)
	s.publish(events.EventSessionRemoved, map[string]interface{}{"sessionId": id})

	if wasActive && next != "" {
		s.fireAndForget("set_active_session", func(ctx context.Context) error {
			return s.backend.SetActiveSession(ctx, next)
		})
		s.publish(events.EventSessionActivated, map[string]interface{}{"sessionId": next})
	}
	return nil
}

// Evict removes a session from local state only, with the same next-active
// selection as RemoveSession. Used when a session has been moved to another
// window: the backing process lives on, so no backend close is issued.
func (s *Store) Evict(id string) {
	s.mu.RLock()
	_, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	next, wasActive := s.evict(id)
	s.publish(events.EventSessionRemoved, map[string]interface{}{"sessionId": id})
	if wasActive && next != "" {
		s.publish(events.EventSessionActivated, map[string]interface{}{"sessionId": next})
	}
}

// evict removes id from every index atomically and returns the next
// active session id, if the removed session was active.
func (s *Store) evict(id string) (next string, wasActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[id]
	if sess == nil {
		return "", false
	}
	secID := sess.SectionID

	idx := indexOf(s.order[secID], id)
	s.order[secID] = removeAt(s.order[secID], idx)
	s.renumberLocked(secID)
	delete(s.sessions, id)
	delete(s.activated, id)

	if s.activeID == id {
		wasActive = true
		s.activeID = ""
		ids := s.order[secID]
		if len(ids) > 0 {
			pos := idx
			if pos >= len(ids) {
				pos = len(ids) - 1
			}
			next = ids[pos]
			s.activeID = next
			s.activated[next] = struct{}{}
		}
	}
	return next, wasActive
}

// Adopt admits a session record that arrived from another window. If the
// owning section is unknown locally, the session lands in the default
// section.
func (s *Store) Adopt(sess client.Session) {
	s.mu.Lock()
	if _, exists := s.sessions[sess.ID]; exists {
		s.mu.Unlock()
		return
	}
	if s.sectionByIDLocked(sess.SectionID) == nil {
		if def := s.defaultSectionLocked(); def != nil {
			sess.SectionID = def.ID
		}
	}
	record := sess
	record.TabOrder = len(s.order[record.SectionID])
	s.sessions[record.ID] = &record
	s.order[record.SectionID] = append(s.order[record.SectionID], record.ID)
	s.mu.Unlock()

	s.publish(events.EventSessionCreated, map[string]interface{}{"sessionId": sess.ID})
}

// RenameSession sets a session's title from an explicit user action, locking
// it against backend-driven dynamic titles. The backend write is
// fire-and-forget.
func (s *Store) RenameSession(ctx context.Context, id, title string) error {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return fmt.Errorf("rename session: %w", ErrSessionNotFound)
	}
	sess.Title = title
	sess.TitleLocked = true
	s.mu.Unlock()

	s.fireAndForget("rename_session", func(ctx context.Context) error {
		return s.backend.RenameSession(ctx, id, title)
	})
	return nil
}

// ApplyTitle applies a backend-driven dynamic title. Locked titles win.
func (s *Store) ApplyTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil || sess.TitleLocked {
		return
	}
	sess.Title = title
}

// SetSessionCommand sets a session's launch command. Fire-and-forget.
func (s *Store) SetSessionCommand(ctx context.Context, id, command string) error {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return fmt.Errorf("set command: %w", ErrSessionNotFound)
	}
	sess.Command = command
	s.mu.Unlock()

	s.fireAndForget("set_session_command", func(ctx context.Context) error {
		return s.backend.SetSessionCommand(ctx, id, command)
	})
	return nil
}

// SetSessionIcon sets a session's icon. Fire-and-forget.
func (s *Store) SetSessionIcon(ctx context.Context, id string, icon client.IconRef) error {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return fmt.Errorf("set icon: %w", ErrSessionNotFound)
	}
	ic := icon
	sess.Icon = &ic
	s.mu.Unlock()

	s.fireAndForget("set_session_icon", func(ctx context.Context) error {
		return s.backend.SetSessionIcon(ctx, id, icon)
	})
	return nil
}

// SetActiveSession makes the given session active. The backend notification
// is fire-and-forget.
func (s *Store) SetActiveSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return fmt.Errorf("set active: %w", ErrSessionNotFound)
	}
	s.activeID = id
	s.activated[id] = struct{}{}
	sess.LastAccessedAt = time.Now()
	s.mu.Unlock()

	s.fireAndForget("set_active_session", func(ctx context.Context) error {
		return s.backend.SetActiveSession(ctx, id)
	})
	s.publish(events.EventSessionActivated, map[string]interface{}{"sessionId": id})
	return nil
}

// ActiveSessionID returns the active session id, or "".
func (s *Store) ActiveSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// IsActivated reports whether a session has been rendered at least once in
// this window.
func (s *Store) IsActivated(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activated[id]
	return ok
}

// ApplyStatus applies a backend-pushed status change. Pure local reducer.
func (s *Store) ApplyStatus(id string, status client.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		return
	}
	sess.Status = status
}

// ApplyExit marks a session's backing process as no longer live.
func (s *Store) ApplyExit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		return
	}
	sess.IsOpen = false
	sess.Status = client.StatusIdle
}

// ApplyToolSessionID records a tool-assigned correlation id and persists it
// to the backend (the one backend call a push reducer originates).
func (s *Store) ApplyToolSessionID(ctx context.Context, id string, tool client.ToolKind, toolSessionID string) {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return
	}
	if sess.ToolSessionIDs == nil {
		sess.ToolSessionIDs = make(map[client.ToolKind]string)
	}
	if sess.ToolSessionIDs[tool] == toolSessionID {
		s.mu.Unlock()
		return
	}
	sess.ToolSessionIDs[tool] = toolSessionID
	s.mu.Unlock()

	s.fireAndForget("set_tool_session_id", func(ctx context.Context) error {
		return s.backend.SetToolSessionID(ctx, id, tool, toolSessionID)
	})
}

// CreateSection creates a section through the backend and admits it locally.
func (s *Store) CreateSection(ctx context.Context, name, path string) (client.Section, error) {
	sec, err := s.backend.CreateSection(ctx, name, path)
	if err != nil {
		return client.Section{}, fmt.Errorf("create section: %w", err)
	}

	s.mu.Lock()
	record := *sec
	record.Order = len(s.sections)
	s.sections = append(s.sections, &record)
	s.saveHintsLocked()
	s.mu.Unlock()

	s.publish(events.EventSectionCreated, map[string]interface{}{"sectionId": record.ID})
	return record, nil
}

// RemoveSection deletes a section, reassigning its sessions to the default
// section first. Removing the default section is a no-op.
func (s *Store) RemoveSection(ctx context.Context, id string) error {
	s.mu.Lock()
	sec := s.sectionByIDLocked(id)
	if sec == nil {
		s.mu.Unlock()
		return fmt.Errorf("remove section: %w", ErrSectionNotFound)
	}
	if sec.IsDefault {
		s.mu.Unlock()
		return nil
	}

	def := s.defaultSectionLocked()
	// Cascade: members move to the default section, preserving their
	// relative order at the end of its list.
	for _, sid := range s.order[id] {
		if sess := s.sessions[sid]; sess != nil {
			sess.SectionID = def.ID
		}
		s.order[def.ID] = append(s.order[def.ID], sid)
	}
	delete(s.order, id)
	s.renumberLocked(def.ID)

	idx := s.sectionIndexLocked(id)
	s.sections = append(s.sections[:idx], s.sections[idx+1:]...)
	s.renumberSectionsLocked()
	s.saveHintsLocked()
	s.mu.Unlock()

	s.fireAndForget("delete_section", func(ctx context.Context) error {
		return s.backend.DeleteSection(ctx, id)
	})
	s.publish(events.EventSectionRemoved, map[string]interface{}{"sectionId": id})
	return nil
}

// SectionUpdate holds optional section field changes.
type SectionUpdate struct {
	Name *string
	Path *string
	Icon *client.IconRef
}

// UpdateSection applies field changes locally and pushes each to the backend
// fire-and-forget; failures are logged, never rolled back.
func (s *Store) UpdateSection(ctx context.Context, id string, upd SectionUpdate) error {
	s.mu.Lock()
	sec := s.sectionByIDLocked(id)
	if sec == nil {
		s.mu.Unlock()
		return fmt.Errorf("update section: %w", ErrSectionNotFound)
	}
	if upd.Name != nil {
		sec.Name = *upd.Name
	}
	if upd.Path != nil {
		sec.Path = *upd.Path
	}
	if upd.Icon != nil {
		ic := *upd.Icon
		sec.Icon = &ic
	}
	s.saveHintsLocked()
	s.mu.Unlock()

	if upd.Name != nil {
		name := *upd.Name
		s.fireAndForget("rename_section", func(ctx context.Context) error {
			return s.backend.RenameSection(ctx, id, name)
		})
	}
	if upd.Path != nil {
		path := *upd.Path
		s.fireAndForget("set_section_path", func(ctx context.Context) error {
			return s.backend.SetSectionPath(ctx, id, path)
		})
	}
	if upd.Icon != nil {
		icon := *upd.Icon
		s.fireAndForget("set_section_icon", func(ctx context.Context) error {
			return s.backend.SetSectionIcon(ctx, id, icon)
		})
	}
	return nil
}

// ToggleSectionCollapse flips a section's collapsed flag. No-op on the
// default section, which is never collapsible.
func (s *Store) ToggleSectionCollapse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.sectionByIDLocked(id)
	if sec == nil || sec.IsDefault {
		return
	}
	sec.Collapsed = !sec.Collapsed
	s.saveHintsLocked()
}

// SetSectionCollapsed sets transient collapse state (drag choreography).
// Not persisted; no-op on the default section.
func (s *Store) SetSectionCollapsed(id string, collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.sectionByIDLocked(id)
	if sec == nil || sec.IsDefault {
		return
	}
	sec.Collapsed = collapsed
}

// MoveSection repositions a section in the section list.
func (s *Store) MoveSection(id string, toIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.sectionIndexLocked(id)
	if from < 0 {
		return
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(s.sections) {
		toIndex = len(s.sections) - 1
	}
	if from == toIndex {
		return
	}
	sec := s.sections[from]
	s.sections = append(s.sections[:from], s.sections[from+1:]...)
	s.sections = append(s.sections[:toIndex], append([]*client.Section{sec}, s.sections[toIndex:]...)...)
	s.renumberSectionsLocked()
	s.saveHintsLocked()
}

// MoveSessionWithin repositions a session inside its own section. Membership
// and total session count never change.
func (s *Store) MoveSessionWithin(id string, toIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		return
	}
	ids := s.order[sess.SectionID]
	from := indexOf(ids, id)
	if from < 0 {
		return
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(ids) {
		toIndex = len(ids) - 1
	}
	if from == toIndex {
		return
	}
	ids = removeAt(ids, from)
	ids = append(ids[:toIndex], append([]string{id}, ids[toIndex:]...)...)
	s.order[sess.SectionID] = ids
	s.renumberLocked(sess.SectionID)
}

// MoveSessionToSection moves a session into another section at the given
// index. The backend membership write is fire-and-forget.
func (s *Store) MoveSessionToSection(ctx context.Context, id, sectionID string, toIndex int) error {
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		return fmt.Errorf("move session: %w", ErrSessionNotFound)
	}
	if s.sectionByIDLocked(sectionID) == nil {
		s.mu.Unlock()
		return fmt.Errorf("move session: %w", ErrSectionNotFound)
	}
	if sess.SectionID == sectionID {
		s.mu.Unlock()
		s.MoveSessionWithin(id, toIndex)
		return nil
	}

	oldID := sess.SectionID
	s.order[oldID] = removeAt(s.order[oldID], indexOf(s.order[oldID], id))
	s.renumberLocked(oldID)

	ids := s.order[sectionID]
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(ids) {
		toIndex = len(ids)
	}
	ids = append(ids[:toIndex], append([]string{id}, ids[toIndex:]...)...)
	s.order[sectionID] = ids
	sess.SectionID = sectionID
	s.renumberLocked(sectionID)
	s.mu.Unlock()

	s.fireAndForget("move_session", func(ctx context.Context) error {
		return s.backend.MoveSession(ctx, id, sectionID)
	})
	return nil
}

// Session returns a copy of the session with the given id.
func (s *Store) Session(id string) (client.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.sessions[id]
	if sess == nil {
		return client.Session{}, false
	}
	return *sess, true
}

// Sessions returns copies of all sessions, section by section in order.
func (s *Store) Sessions() []client.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.Session, 0, len(s.sessions))
	for _, sec := range s.sections {
		for _, id := range s.order[sec.ID] {
			if sess := s.sessions[id]; sess != nil {
				out = append(out, *sess)
			}
		}
	}
	return out
}

// SessionIDs returns the ordered session id list of a section.
func (s *Store) SessionIDs(sectionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[sectionID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// SessionsInSection returns ordered copies of a section's sessions.
func (s *Store) SessionsInSection(sectionID string) []client.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[sectionID]
	out := make([]client.Session, 0, len(ids))
	for _, id := range ids {
		if sess := s.sessions[id]; sess != nil {
			out = append(out, *sess)
		}
	}
	return out
}

// Section returns a copy of the section with the given id.
func (s *Store) Section(id string) (client.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec := s.sectionByIDLocked(id)
	if sec == nil {
		return client.Section{}, false
	}
	return *sec, true
}

// Sections returns ordered copies of all sections.
func (s *Store) Sections() []client.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.Section, 0, len(s.sections))
	for _, sec := range s.sections {
		out = append(out, *sec)
	}
	return out
}

// DefaultSection returns a copy of the default section.
func (s *Store) DefaultSection() (client.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def := s.defaultSectionLocked()
	if def == nil {
		return client.Section{}, false
	}
	return *def, true
}

// defaultTitleLocked computes the default title for a new session: shell
// sessions get "Terminal N"; other tools get the tool name, numbered from
// the second one on. Counting is per section and per tool kind.
func (s *Store) defaultTitleLocked(sectionID string, tool client.ToolRef) string {
	n := 0
	for _, id := range s.order[sectionID] {
		sess := s.sessions[id]
		if sess == nil {
			continue
		}
		if sess.Tool.Kind == tool.Kind && (tool.Kind != client.ToolCustom || sess.Tool.Custom == tool.Custom) {
			n++
		}
	}

	name := tool.DisplayName()
	if tool.Kind == client.ToolShell || tool.Kind == "" {
		return fmt.Sprintf("Terminal %d", n+1)
	}
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s %d", name, n+1)
}

// sectionByIDLocked returns the live section pointer, or nil. Caller holds mu.
func (s *Store) sectionByIDLocked(id string) *client.Section {
	for _, sec := range s.sections {
		if sec.ID == id {
			return sec
		}
	}
	return nil
}

func (s *Store) sectionIndexLocked(id string) int {
	for i, sec := range s.sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) defaultSectionLocked() *client.Section {
	for _, sec := range s.sections {
		if sec.IsDefault {
			return sec
		}
	}
	return nil
}

// renumberLocked refreshes TabOrder for a section's sessions from the
// ordered list. Caller holds mu.
func (s *Store) renumberLocked(sectionID string) {
	for i, id := range s.order[sectionID] {
		if sess := s.sessions[id]; sess != nil {
			sess.TabOrder = i
		}
	}
}

func (s *Store) renumberSectionsLocked() {
	for i, sec := range s.sections {
		sec.Order = i
	}
}

// publish raises a local bus event. The bus may be nil in tests.
func (s *Store) publish(eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Window:  s.window,
		Payload: payload,
	}); err != nil {
		log.Printf("Warning: publish %s failed: %v", eventType, err)
	}
}

// fireAndForget issues a backend call whose failure is logged, never
// surfaced, and never rolled back.
func (s *Store) fireAndForget(op string, fn func(context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			log.Printf("Warning: %s failed: %v", op, err)
		}
	}()
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []string, i int) []string {
	if i < 0 || i >= len(ids) {
		return ids
	}
	return append(ids[:i], ids[i+1:]...)
}
