// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrall/deckhand/pkg/client"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)
	return r
}

func mustCreate(t *testing.T, r *Registry, req client.CreateSessionRequest) client.Session {
	t.Helper()
	sess, err := r.CreateSession(req)
	require.NoError(t, err)
	return sess
}

func TestRegistryBootstrap(t *testing.T) {
	r := newTestRegistry(t)

	def := r.DefaultSection()
	assert.True(t, def.IsDefault)
	assert.Equal(t, "Terminals", def.Name)

	main, ok := r.Window(MainWindowLabel)
	require.True(t, ok)
	assert.True(t, main.IsMain)
}

func TestRegistryCreateSessionDefaults(t *testing.T) {
	r := newTestRegistry(t)

	sess := mustCreate(t, r, client.CreateSessionRequest{
		Tool: client.ToolRef{Kind: client.ToolShell},
	})

	assert.Equal(t, r.DefaultSection().ID, sess.SectionID)
	assert.Equal(t, client.StatusStarting, sess.Status)
	assert.True(t, sess.IsOpen)
	assert.Equal(t, 0, sess.TabOrder)

	main, _ := r.Window(MainWindowLabel)
	assert.Contains(t, main.SessionIDs, sess.ID)
}

func TestRegistryCreateSessionUnknownSection(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.CreateSession(client.CreateSessionRequest{SectionID: "nope"})
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestRegistryTabOrderPerSection(t *testing.T) {
	r := newTestRegistry(t)
	work := r.CreateSection("Work", "/work")

	a := mustCreate(t, r, client.CreateSessionRequest{})
	b := mustCreate(t, r, client.CreateSessionRequest{SectionID: work.ID})
	c := mustCreate(t, r, client.CreateSessionRequest{})

	assert.Equal(t, 0, a.TabOrder)
	assert.Equal(t, 0, b.TabOrder)
	assert.Equal(t, 1, c.TabOrder)
}

func TestRegistryDeleteSessionScrubsWindows(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})
	require.NoError(t, r.SetActiveSession(sess.ID))

	require.NoError(t, r.DeleteSession(sess.ID))

	_, ok := r.Session(sess.ID)
	assert.False(t, ok)
	main, _ := r.Window(MainWindowLabel)
	assert.NotContains(t, main.SessionIDs, sess.ID)
	assert.Empty(t, main.ActiveSessionID)
}

func TestRegistryDeleteDefaultSectionRejected(t *testing.T) {
	r := newTestRegistry(t)
	err := r.DeleteSection(r.DefaultSection().ID)
	assert.ErrorIs(t, err, ErrDefaultImmutable)
}

func TestRegistryDeleteSectionCascades(t *testing.T) {
	r := newTestRegistry(t)
	inDefault := mustCreate(t, r, client.CreateSessionRequest{})

	work := r.CreateSection("Work", "")
	a := mustCreate(t, r, client.CreateSessionRequest{SectionID: work.ID})
	b := mustCreate(t, r, client.CreateSessionRequest{SectionID: work.ID})

	require.NoError(t, r.DeleteSection(work.ID))

	def := r.DefaultSection().ID
	for _, id := range []string{inDefault.ID, a.ID, b.ID} {
		sess, ok := r.Session(id)
		require.True(t, ok)
		assert.Equal(t, def, sess.SectionID)
	}
	gotA, _ := r.Session(a.ID)
	gotB, _ := r.Session(b.ID)
	assert.Equal(t, 1, gotA.TabOrder)
	assert.Equal(t, 2, gotB.TabOrder)
}

func TestRegistryRenameLocksTitle(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})

	require.NoError(t, r.RenameSession(sess.ID, "build"))

	got, _ := r.Session(sess.ID)
	assert.Equal(t, "build", got.Title)
	assert.True(t, got.TitleLocked)
}

func TestRegistryUnreadLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})

	assert.False(t, r.Unread(sess.ID))
	r.MarkUnread(sess.ID)
	assert.True(t, r.Unread(sess.ID))
	require.NoError(t, r.Acknowledge(sess.ID))
	assert.False(t, r.Unread(sess.ID))

	got, _ := r.Session(sess.ID)
	assert.False(t, got.LastAccessedAt.IsZero())
}

func TestRegistryMoveSessionToWindow(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})
	aux := r.OpenWindow("aux", nil)

	require.NoError(t, r.MoveSessionToWindow(sess.ID, MainWindowLabel, aux.ID))

	main, _ := r.Window(MainWindowLabel)
	assert.NotContains(t, main.SessionIDs, sess.ID)
	got, _ := r.Window(aux.ID)
	assert.Contains(t, got.SessionIDs, sess.ID)
}

func TestRegistryMoveDropsSourceSubscription(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})
	aux := r.OpenWindow("aux", nil)
	require.NoError(t, r.SubscribeWindow(sess.ID, aux.ID))
	require.Equal(t, []string{MainWindowLabel, aux.ID}, r.WindowsForSession(sess.ID))

	// Moving out of aux must end aux's mirror of the session too.
	require.NoError(t, r.MoveSessionToWindow(sess.ID, aux.ID, MainWindowLabel))
	assert.Equal(t, []string{MainWindowLabel}, r.WindowsForSession(sess.ID))
}

func TestRegistrySubscribeAddsAudience(t *testing.T) {
	r := newTestRegistry(t)
	sess := mustCreate(t, r, client.CreateSessionRequest{})
	aux := r.OpenWindow("aux", nil)

	require.NoError(t, r.SubscribeWindow(sess.ID, aux.ID))

	labels := r.WindowsForSession(sess.ID)
	assert.Contains(t, labels, MainWindowLabel)
	assert.Contains(t, labels, aux.ID)

	// Ownership is unchanged.
	got, _ := r.Window(aux.ID)
	assert.NotContains(t, got.SessionIDs, sess.ID)
}

func TestRegistryMergeWindows(t *testing.T) {
	r := newTestRegistry(t)
	a := mustCreate(t, r, client.CreateSessionRequest{})
	b := mustCreate(t, r, client.CreateSessionRequest{})
	aux := r.OpenWindow("aux", nil)
	require.NoError(t, r.MoveSessionToWindow(a.ID, MainWindowLabel, aux.ID))
	require.NoError(t, r.MoveSessionToWindow(b.ID, MainWindowLabel, aux.ID))

	require.NoError(t, r.MergeWindows(aux.ID, MainWindowLabel))

	main, _ := r.Window(MainWindowLabel)
	assert.Contains(t, main.SessionIDs, a.ID)
	assert.Contains(t, main.SessionIDs, b.ID)
	_, ok := r.Window(aux.ID)
	assert.False(t, ok, "merged source window record should be gone")
}

func TestRegistryDeleteMainWindowRejected(t *testing.T) {
	r := newTestRegistry(t)
	assert.Error(t, r.DeleteWindow(MainWindowLabel))
}

func TestRegistryPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	r, err := NewRegistry(path)
	require.NoError(t, err)
	work := r.CreateSection("Work", "/work")
	sess, err := r.CreateSession(client.CreateSessionRequest{
		SectionID: work.ID,
		Title:     "api",
		Tool:      client.ToolRef{Kind: client.ToolClaude},
	})
	require.NoError(t, err)
	require.NoError(t, r.UpdateSession(sess.ID, func(s *client.Session) {
		s.Status = client.StatusRunning
	}))

	reloaded, err := NewRegistry(path)
	require.NoError(t, err)

	got, ok := reloaded.Session(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "api", got.Title)
	assert.Equal(t, work.ID, got.SectionID)

	// Processes do not survive a daemon restart.
	assert.False(t, got.IsOpen)
	assert.Equal(t, client.StatusIdle, got.Status)

	gotSec, ok := reloaded.Section(work.ID)
	require.True(t, ok)
	assert.Equal(t, "/work", gotSec.Path)
}

func TestRegistryListSessionsOrdered(t *testing.T) {
	r := newTestRegistry(t)
	a := mustCreate(t, r, client.CreateSessionRequest{})
	b := mustCreate(t, r, client.CreateSessionRequest{})

	list := r.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}
