// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrall/deckhand/internal/backend/backendtest"
	"github.com/mkrall/deckhand/pkg/client"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

func newTestStore(t *testing.T) (*Store, *backendtest.Fake) {
	t.Helper()
	fake := backendtest.New()
	fake.SectionList = []client.Section{
		{ID: "sec-main", Name: "Terminals", IsDefault: true},
	}
	s := New(fake, nil, Options{Window: "main"})
	require.NoError(t, s.Load(context.Background()))
	return s, fake
}

// calledWith waits for the fake to record a call to op and returns it.
func calledWith(t *testing.T, fake *backendtest.Fake, op string) backendtest.Call {
	t.Helper()
	var call backendtest.Call
	require.Eventually(t, func() bool {
		calls := fake.CallsTo(op)
		if len(calls) == 0 {
			return false
		}
		call = calls[len(calls)-1]
		return true
	}, waitFor, tick, "expected a %s call", op)
	return call
}

func TestLoadInventsDefaultSection(t *testing.T) {
	fake := backendtest.New()
	s := New(fake, nil, Options{Window: "main"})
	require.NoError(t, s.Load(context.Background()))

	def, ok := s.DefaultSection()
	require.True(t, ok)
	assert.True(t, def.IsDefault)
	assert.Equal(t, "Terminals", def.Name)
}

func TestLoadBackendFailure(t *testing.T) {
	fake := backendtest.New()
	fake.FailOn("list_sections", errors.New("connection refused"))
	s := New(fake, nil, Options{Window: "main"})
	require.Error(t, s.Load(context.Background()))
}

func TestLoadMergesHintsByID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sections.json")

	hints := []SectionHint{
		{ID: "sec-b", Name: "Work", Order: 0, Collapsed: true},
		{ID: "sec-a", Name: "Terminals", Order: 1, IsDefault: true},
	}
	require.NoError(t, NewSectionStore(path).Save(hints))

	fake := backendtest.New()
	fake.SectionList = []client.Section{
		{ID: "sec-a", Name: "Terminals"},
		{ID: "sec-b", Name: "Work"},
	}
	s := New(fake, nil, Options{Window: "main", StatePath: path})
	require.NoError(t, s.Load(context.Background()))

	secs := s.Sections()
	require.Len(t, secs, 2, "hint records must merge into backend records, not duplicate them")
	assert.Equal(t, "sec-b", secs[0].ID, "local ordering hint wins")
	assert.True(t, secs[0].Collapsed)
	assert.True(t, secs[1].IsDefault, "default flag restored from hints")
}

func TestLoadStaleDefaultHintYieldsOneDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sections.json")

	// The hint flags sec-b as default, but the backend has since moved the
	// flag to sec-a. The backend's choice wins and only one default stands.
	hints := []SectionHint{
		{ID: "sec-b", Name: "Work", Order: 0, IsDefault: true},
		{ID: "sec-a", Name: "Terminals", Order: 1},
	}
	require.NoError(t, NewSectionStore(path).Save(hints))

	fake := backendtest.New()
	fake.SectionList = []client.Section{
		{ID: "sec-a", Name: "Terminals", IsDefault: true},
		{ID: "sec-b", Name: "Work"},
	}
	s := New(fake, nil, Options{Window: "main", StatePath: path})
	require.NoError(t, s.Load(context.Background()))

	defaults := 0
	for _, sec := range s.Sections() {
		if sec.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "exactly one section carries the default flag")
	def, ok := s.DefaultSection()
	require.True(t, ok)
	assert.Equal(t, "sec-a", def.ID)
}

func TestLoadOrphanSessionsLandInDefault(t *testing.T) {
	fake := backendtest.New()
	fake.SectionList = []client.Section{
		{ID: "sec-main", Name: "Terminals", IsDefault: true},
	}
	fake.SessionList = []client.Session{
		{ID: "sess-1", Title: "Terminal 1", SectionID: "sec-gone", TabOrder: 0},
		{ID: "sess-2", Title: "Terminal 2", SectionID: "sec-main", TabOrder: 0},
	}
	s := New(fake, nil, Options{Window: "main"})
	require.NoError(t, s.Load(context.Background()))

	// Every session must belong to exactly one live section.
	for _, sess := range s.Sessions() {
		_, ok := s.Section(sess.SectionID)
		assert.True(t, ok, "session %s references a live section", sess.ID)
	}
	assert.Len(t, s.SessionIDs("sec-main"), 2)
}

func TestCreateSessionDefaultTitles(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "sec-main", CreateOptions{Tool: client.ToolRef{Kind: client.ToolShell}})
	require.NoError(t, err)
	assert.Equal(t, "Terminal 1", first.Title)

	second, err := s.CreateSession(ctx, "sec-main", CreateOptions{Tool: client.ToolRef{Kind: client.ToolShell}})
	require.NoError(t, err)
	assert.Equal(t, "Terminal 2", second.Title)

	cl, err := s.CreateSession(ctx, "sec-main", CreateOptions{Tool: client.ToolRef{Kind: client.ToolClaude}})
	require.NoError(t, err)
	assert.Equal(t, "Claude", cl.Title, "first non-shell session takes the bare tool name")

	cl2, err := s.CreateSession(ctx, "sec-main", CreateOptions{Tool: client.ToolRef{Kind: client.ToolClaude}})
	require.NoError(t, err)
	assert.Equal(t, "Claude 2", cl2.Title)
}

func TestCreateSessionActivates(t *testing.T) {
	s, fake := newTestStore(t)
	sess, err := s.CreateSession(context.Background(), "sec-main", CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, sess.ID, s.ActiveSessionID())
	assert.True(t, s.IsActivated(sess.ID))
	call := calledWith(t, fake, "set_active_session")
	assert.Equal(t, sess.ID, call.Args[0])
}

func TestCreateSessionBackendFailure(t *testing.T) {
	s, fake := newTestStore(t)
	fake.FailOn("create_session", errors.New("backend down"))

	_, err := s.CreateSession(context.Background(), "sec-main", CreateOptions{})
	require.Error(t, err)
	assert.Empty(t, s.Sessions(), "no provisional record on backend failure")
}

func TestCreateSessionUnknownSection(t *testing.T) {
	s, fake := newTestStore(t)
	_, err := s.CreateSession(context.Background(), "sec-nope", CreateOptions{})
	require.ErrorIs(t, err, ErrSectionNotFound)
	assert.Empty(t, fake.CallsTo("create_session"))
}

func TestRemoveSessionNextActiveClamps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	// Remove the active middle session: the session now at the same index
	// becomes active.
	require.NoError(t, s.SetActiveSession(ctx, ids[1]))
	require.NoError(t, s.RemoveSession(ctx, ids[1]))
	assert.Equal(t, ids[2], s.ActiveSessionID())

	// Remove the active last session: the index clamps to the new tail.
	require.NoError(t, s.RemoveSession(ctx, ids[2]))
	assert.Equal(t, ids[0], s.ActiveSessionID())

	// Remove the final session: nothing left to activate.
	require.NoError(t, s.RemoveSession(ctx, ids[0]))
	assert.Equal(t, "", s.ActiveSessionID())
}

func TestRemoveSessionScrubsAllState(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, s.RemoveSession(ctx, sess.ID))

	_, ok := s.Session(sess.ID)
	assert.False(t, ok)
	assert.False(t, s.IsActivated(sess.ID))
	assert.NotContains(t, s.SessionIDs("sec-main"), sess.ID)
	assert.ErrorIs(t, s.RemoveSession(ctx, sess.ID), ErrSessionNotFound)
}

func TestRemoveSessionBackendFailure(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
	require.NoError(t, err)

	fake.FailOn("delete_session", errors.New("backend down"))
	require.Error(t, s.RemoveSession(ctx, sess.ID))

	_, ok := s.Session(sess.ID)
	assert.True(t, ok, "session survives a failed close")
	assert.Equal(t, sess.ID, s.ActiveSessionID())
}

func TestEvictSkipsBackendClose(t *testing.T) {
	s, fake := newTestStore(t)
	sess, err := s.CreateSession(context.Background(), "sec-main", CreateOptions{})
	require.NoError(t, err)

	s.Evict(sess.ID)

	_, ok := s.Session(sess.ID)
	assert.False(t, ok)
	assert.Empty(t, fake.CallsTo("delete_session"), "evicted sessions keep their process")
}

func TestAdoptFallsBackToDefault(t *testing.T) {
	s, _ := newTestStore(t)
	s.Adopt(client.Session{ID: "sess-foreign", Title: "Terminal 1", SectionID: "sec-elsewhere", IsOpen: true})

	sess, ok := s.Session("sess-foreign")
	require.True(t, ok)
	assert.Equal(t, "sec-main", sess.SectionID)
	assert.Equal(t, []string{"sess-foreign"}, s.SessionIDs("sec-main"))
}

func TestRemoveSectionCascadesToDefault(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	inDefault, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
	require.NoError(t, err)

	sec, err := s.CreateSection(ctx, "Work", "/work")
	require.NoError(t, err)
	a, err := s.CreateSession(ctx, sec.ID, CreateOptions{})
	require.NoError(t, err)
	b, err := s.CreateSession(ctx, sec.ID, CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, s.RemoveSection(ctx, sec.ID))

	_, ok := s.Section(sec.ID)
	assert.False(t, ok)

	// Members append to the default section preserving relative order.
	assert.Equal(t, []string{inDefault.ID, a.ID, b.ID}, s.SessionIDs("sec-main"))
	got, _ := s.Session(b.ID)
	assert.Equal(t, "sec-main", got.SectionID)
	assert.Equal(t, 2, got.TabOrder)

	call := calledWith(t, fake, "delete_section")
	assert.Equal(t, sec.ID, call.Args[0])
}

func TestRemoveDefaultSectionIsNoop(t *testing.T) {
	s, fake := newTestStore(t)
	require.NoError(t, s.RemoveSection(context.Background(), "sec-main"))

	_, ok := s.Section("sec-main")
	assert.True(t, ok)
	assert.Empty(t, fake.CallsTo("delete_section"))
}

func TestCollapseDefaultSectionIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	s.ToggleSectionCollapse("sec-main")
	def, _ := s.DefaultSection()
	assert.False(t, def.Collapsed)

	s.SetSectionCollapsed("sec-main", true)
	def, _ = s.DefaultSection()
	assert.False(t, def.Collapsed)
}

func TestToggleSectionCollapse(t *testing.T) {
	s, _ := newTestStore(t)
	sec, err := s.CreateSection(context.Background(), "Work", "")
	require.NoError(t, err)

	s.ToggleSectionCollapse(sec.ID)
	got, _ := s.Section(sec.ID)
	assert.True(t, got.Collapsed)

	s.ToggleSectionCollapse(sec.ID)
	got, _ = s.Section(sec.ID)
	assert.False(t, got.Collapsed)
}

func TestUpdateSectionPushesFields(t *testing.T) {
	s, fake := newTestStore(t)
	sec, err := s.CreateSection(context.Background(), "Work", "")
	require.NoError(t, err)

	name := "Research"
	path := "/research"
	require.NoError(t, s.UpdateSection(context.Background(), sec.ID, SectionUpdate{Name: &name, Path: &path}))

	got, _ := s.Section(sec.ID)
	assert.Equal(t, "Research", got.Name)
	assert.Equal(t, "/research", got.Path)

	rename := calledWith(t, fake, "rename_section")
	assert.Equal(t, "Research", rename.Args[1])
	setPath := calledWith(t, fake, "set_section_path")
	assert.Equal(t, "/research", setPath.Args[1])
}

func TestRenameLocksAgainstDynamicTitles(t *testing.T) {
	s, fake := newTestStore(t)
	sess, err := s.CreateSession(context.Background(), "sec-main", CreateOptions{})
	require.NoError(t, err)

	s.ApplyTitle(sess.ID, "vim ~/notes.txt")
	got, _ := s.Session(sess.ID)
	assert.Equal(t, "vim ~/notes.txt", got.Title, "dynamic titles apply while unlocked")

	require.NoError(t, s.RenameSession(context.Background(), sess.ID, "scratch"))
	s.ApplyTitle(sess.ID, "htop")
	got, _ = s.Session(sess.ID)
	assert.Equal(t, "scratch", got.Title, "explicit rename wins over dynamic titles")

	call := calledWith(t, fake, "rename_session")
	assert.Equal(t, "scratch", call.Args[1])
}

func TestApplyStatusAndExit(t *testing.T) {
	s, _ := newTestStore(t)
	sess, err := s.CreateSession(context.Background(), "sec-main", CreateOptions{})
	require.NoError(t, err)

	s.ApplyStatus(sess.ID, client.StatusRunning)
	got, _ := s.Session(sess.ID)
	assert.Equal(t, client.StatusRunning, got.Status)

	s.ApplyExit(sess.ID)
	got, _ = s.Session(sess.ID)
	assert.False(t, got.IsOpen)
	assert.Equal(t, client.StatusIdle, got.Status)
}

func TestApplyToolSessionIDPersistsOnce(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{Tool: client.ToolRef{Kind: client.ToolClaude}})
	require.NoError(t, err)

	s.ApplyToolSessionID(ctx, sess.ID, client.ToolClaude, "conv-123")
	call := calledWith(t, fake, "set_tool_session_id")
	assert.Equal(t, []interface{}{sess.ID, client.ToolClaude, "conv-123"}, call.Args)

	got, _ := s.Session(sess.ID)
	assert.Equal(t, "conv-123", got.ToolSessionIDs[client.ToolClaude])

	// Re-applying the same id must not hit the backend again.
	s.ApplyToolSessionID(ctx, sess.ID, client.ToolClaude, "conv-123")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, fake.CallsTo("set_tool_session_id"), 1)
}

func TestMoveSessionWithin(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	s.MoveSessionWithin(ids[0], 2)
	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, s.SessionIDs("sec-main"))

	// TabOrder tracks the list.
	for i, id := range s.SessionIDs("sec-main") {
		sess, _ := s.Session(id)
		assert.Equal(t, i, sess.TabOrder)
	}

	// Out-of-range indexes clamp.
	s.MoveSessionWithin(ids[1], 99)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, s.SessionIDs("sec-main"))
}

func TestMoveSessionToSection(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "sec-main", CreateOptions{})
	require.NoError(t, err)
	sec, err := s.CreateSection(ctx, "Work", "")
	require.NoError(t, err)

	require.NoError(t, s.MoveSessionToSection(ctx, sess.ID, sec.ID, 0))

	assert.Empty(t, s.SessionIDs("sec-main"))
	assert.Equal(t, []string{sess.ID}, s.SessionIDs(sec.ID))
	got, _ := s.Session(sess.ID)
	assert.Equal(t, sec.ID, got.SectionID)
	assert.Equal(t, 0, got.TabOrder)

	call := calledWith(t, fake, "move_session")
	assert.Equal(t, []interface{}{sess.ID, sec.ID}, call.Args)
}

func TestMoveSection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a, err := s.CreateSection(ctx, "A", "")
	require.NoError(t, err)
	_, err = s.CreateSection(ctx, "B", "")
	require.NoError(t, err)

	s.MoveSection(a.ID, 2)

	secs := s.Sections()
	require.Len(t, secs, 3)
	assert.Equal(t, a.ID, secs[2].ID)
	for i, sec := range secs {
		assert.Equal(t, i, sec.Order)
	}
}

func TestSectionHintsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.json")
	ss := NewSectionStore(path)

	loaded, err := ss.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded, "missing file loads as empty")

	hints := []SectionHint{
		{ID: "sec-1", Name: "Terminals", Order: 0, IsDefault: true},
		{ID: "sec-2", Name: "Work", Path: "/work", Order: 1, Collapsed: true},
	}
	require.NoError(t, ss.Save(hints))

	loaded, err = ss.Load()
	require.NoError(t, err)
	assert.Equal(t, hints, loaded)
}
