// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrall/deckhand/internal/daemon"
	"github.com/mkrall/deckhand/pkg/client"
)

// newTestBackend stands up the daemon's HTTP API over httptest and returns
// an API client pointed at it.
func newTestBackend(t *testing.T) *client.Client {
	t.Helper()

	registry, err := daemon.NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)
	hub := daemon.NewFeedHub(registry)
	procs := daemon.NewProcTable(func(id string, ev client.PushEvent) {
		hub.Broadcast(id, ev)
	}, 0)

	router := daemon.NewRouter(&daemon.Dependencies{
		Registry:     registry,
		Procs:        procs,
		Hub:          hub,
		DefaultShell: "/bin/sh",
	})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		procs.StopAll()
		server.Close()
	})

	return client.New(server.URL)
}

func TestSessionRecordRoundTrip(t *testing.T) {
	api := newTestBackend(t)
	ctx := context.Background()

	sections, err := api.Sections.List(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.True(t, sections[0].IsDefault)

	sess, err := api.Sessions.Create(ctx, client.CreateSessionRequest{
		Title: "api",
		Tool:  client.ToolRef{Kind: client.ToolShell},
	})
	require.NoError(t, err)
	assert.Equal(t, sections[0].ID, sess.SectionID)

	require.NoError(t, api.Sessions.Rename(ctx, sess.ID, "deploy"))

	list, err := api.Sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "deploy", list[0].Title)
	assert.True(t, list[0].TitleLocked)

	require.NoError(t, api.Sessions.Delete(ctx, sess.ID))
	list, err = api.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSectionCascadeOverAPI(t *testing.T) {
	api := newTestBackend(t)
	ctx := context.Background()

	work, err := api.Sections.Create(ctx, "Work", "/tmp")
	require.NoError(t, err)
	sess, err := api.Sessions.Create(ctx, client.CreateSessionRequest{SectionID: work.ID})
	require.NoError(t, err)

	require.NoError(t, api.Sections.Delete(ctx, work.ID))

	list, err := api.Sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sess.ID, list[0].ID)
	assert.NotEqual(t, work.ID, list[0].SectionID)
}

func TestUnknownSessionIs404(t *testing.T) {
	api := newTestBackend(t)

	err := api.Sessions.Delete(context.Background(), "nope")
	require.Error(t, err)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestWindowTransferOverAPI(t *testing.T) {
	api := newTestBackend(t)
	ctx := context.Background()

	sess, err := api.Sessions.Create(ctx, client.CreateSessionRequest{})
	require.NoError(t, err)

	aux, err := api.Windows.Open(ctx, "scratch", nil)
	require.NoError(t, err)

	require.NoError(t, api.Windows.MoveSession(ctx, sess.ID, "main", aux.ID))

	got, err := api.Windows.Get(ctx, aux.ID)
	require.NoError(t, err)
	assert.Contains(t, got.SessionIDs, sess.ID)

	main, err := api.Windows.Get(ctx, "main")
	require.NoError(t, err)
	assert.NotContains(t, main.SessionIDs, sess.ID)

	require.NoError(t, api.Windows.Merge(ctx, aux.ID, "main"))
	_, err = api.Windows.Get(ctx, aux.ID)
	require.Error(t, err)
}

func TestEventFeedDeliversRelay(t *testing.T) {
	api := newTestBackend(t)
	ctx := context.Background()

	stream, err := api.Events(ctx, "main")
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, api.Windows.Relay(ctx, "main", "session-moved",
		map[string]string{"sessionId": "sess-1"}))

	select {
	case ev := <-stream.Events():
		assert.Equal(t, client.PushWindowRelay, ev.Type)
		assert.Equal(t, "session-moved", ev.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay event")
	}
}

func TestTerminalLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a real shell process")
	}
	api := newTestBackend(t)
	ctx := context.Background()

	sess, err := api.Sessions.Create(ctx, client.CreateSessionRequest{
		Command: "cat",
	})
	require.NoError(t, err)

	stream, err := api.Events(ctx, "main")
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, api.Terminal.Start(ctx, sess.ID, 24, 80))
	require.NoError(t, api.Terminal.WriteInput(ctx, sess.ID, []byte("hello\n")))

	deadline := time.After(5 * time.Second)
	var output []byte
	for {
		select {
		case ev := <-stream.Events():
			if ev.Type == client.PushSessionOutput && ev.SessionID == sess.ID {
				output = append(output, ev.Bytes...)
			}
			if len(output) > 0 {
				assert.Contains(t, string(output), "hello")
				require.NoError(t, api.Terminal.Stop(ctx, sess.ID))
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for session output")
		}
	}
}
