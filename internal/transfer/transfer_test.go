// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrall/deckhand/internal/backend/backendtest"
	"github.com/mkrall/deckhand/internal/store"
	"github.com/mkrall/deckhand/pkg/client"
)

func newTarget(t *testing.T, window string) (*Controller, *store.Store, *backendtest.Fake) {
	t.Helper()
	fake := backendtest.New()
	fake.SectionList = []client.Section{
		{ID: "sec-main", Name: "Terminals", IsDefault: true},
	}
	fake.WindowList = []client.WindowRecord{
		{ID: "main", Title: "deckhand", IsMain: true},
		{ID: "aux", Title: "deckhand"},
	}
	st := store.New(fake, nil, store.Options{Window: window})
	require.NoError(t, st.Load(context.Background()))
	return New(fake, st, nil, window), st, fake
}

func TestDecodePayload(t *testing.T) {
	p, ok := DecodePayload(EncodePayload("sess-1", "main"))
	require.True(t, ok)
	assert.Equal(t, "sess-1", p.SessionID)
	assert.Equal(t, "main", p.SourceWindowID)

	_, ok = DecodePayload([]byte(`{"marker":"text/plain","sessionId":"x"}`))
	assert.False(t, ok, "foreign marker rejected")
	_, ok = DecodePayload([]byte(`not json`))
	assert.False(t, ok)
	_, ok = DecodePayload([]byte(`{"marker":"` + Marker + `"}`))
	assert.False(t, ok, "missing session id rejected")
}

func TestDragEnterLeave(t *testing.T) {
	ctrl, _, _ := newTarget(t, "aux")

	assert.False(t, ctrl.DragEnter([]byte("file:///tmp/x")), "foreign drags show no affordance")
	assert.False(t, ctrl.DragOver())

	assert.True(t, ctrl.DragEnter(EncodePayload("sess-1", "main")))
	assert.True(t, ctrl.DragOver())

	ctrl.DragLeave()
	assert.False(t, ctrl.DragOver())
}

func TestDropForeignPayloadIgnored(t *testing.T) {
	ctrl, _, fake := newTarget(t, "aux")
	require.NoError(t, ctrl.Drop(context.Background(), []byte("garbage"), false))
	assert.Empty(t, fake.Calls())
}

func TestDropSameWindowIsNoop(t *testing.T) {
	ctrl, _, fake := newTarget(t, "main")
	require.NoError(t, ctrl.Drop(context.Background(), EncodePayload("sess-1", "main"), false))
	assert.Empty(t, fake.CallsTo("move_session_to_window"))
	assert.Empty(t, fake.CallsTo("subscribe_to_session"))
}

func TestDropMove(t *testing.T) {
	ctrl, st, fake := newTarget(t, "aux")
	fake.SessionList = []client.Session{
		{ID: "sess-1", Title: "Terminal 1", SectionID: "sec-main", IsOpen: true},
	}

	ctrl.DragEnter(EncodePayload("sess-1", "main"))
	require.NoError(t, ctrl.Drop(context.Background(), EncodePayload("sess-1", "main"), false))

	assert.False(t, ctrl.DragOver(), "drag-over state cleared immediately on drop")

	moves := fake.CallsTo("move_session_to_window")
	require.Len(t, moves, 1)
	assert.Equal(t, []interface{}{"sess-1", "main", "aux"}, moves[0].Args)

	// The source window is notified via relay, asynchronously.
	require.Eventually(t, func() bool {
		return len(fake.CallsTo("relay_window_ipc")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	relay := fake.CallsTo("relay_window_ipc")[0]
	assert.Equal(t, "main", relay.Args[0])
	assert.Equal(t, RelaySessionMoved, relay.Args[1])

	// The session now lives in this window's store.
	sess, ok := st.Session("sess-1")
	require.True(t, ok)
	assert.Equal(t, "sec-main", sess.SectionID)
}

func TestDropMirror(t *testing.T) {
	ctrl, st, fake := newTarget(t, "aux")
	fake.SessionList = []client.Session{
		{ID: "sess-1", Title: "Terminal 1", SectionID: "sec-main", IsOpen: true},
	}

	require.NoError(t, ctrl.Drop(context.Background(), EncodePayload("sess-1", "main"), true))

	subs := fake.CallsTo("subscribe_to_session")
	require.Len(t, subs, 1)
	assert.Equal(t, []interface{}{"sess-1", "aux"}, subs[0].Args)
	assert.Empty(t, fake.CallsTo("move_session_to_window"),
		"mirroring must not detach the session from its source")
	assert.Empty(t, fake.CallsTo("relay_window_ipc"))

	_, ok := st.Session("sess-1")
	assert.True(t, ok, "mirrored session renders here too")
}

func TestHandleRelayEvictsMovedSession(t *testing.T) {
	ctrl, st, _ := newTarget(t, "main")
	sess, err := st.CreateSession(context.Background(), "sec-main", store.CreateOptions{})
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]string{"sessionId": sess.ID})
	ctrl.HandleRelay(RelaySessionMoved, payload)

	_, ok := st.Session(sess.ID)
	assert.False(t, ok)
}

func TestHandleRelayMalformedPayload(t *testing.T) {
	ctrl, st, _ := newTarget(t, "main")
	sess, err := st.CreateSession(context.Background(), "sec-main", store.CreateOptions{})
	require.NoError(t, err)

	ctrl.HandleRelay(RelaySessionMoved, json.RawMessage(`{`))
	ctrl.HandleRelay("unrelated-event", json.RawMessage(`{"sessionId":"`+sess.ID+`"}`))

	_, ok := st.Session(sess.ID)
	assert.True(t, ok)
}

func TestMigrateAll(t *testing.T) {
	ctrl, st, fake := newTarget(t, "aux")
	ctx := context.Background()

	a, err := st.CreateSession(ctx, "sec-main", store.CreateOptions{})
	require.NoError(t, err)
	b, err := st.CreateSession(ctx, "sec-main", store.CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, ctrl.MigrateAll(ctx))

	moves := fake.CallsTo("move_session_to_window")
	require.Len(t, moves, 2)
	moved := map[string]bool{}
	for _, call := range moves {
		moved[call.Args[0].(string)] = true
		assert.Equal(t, "aux", call.Args[1])
		assert.Equal(t, "main", call.Args[2])
	}
	assert.True(t, moved[a.ID])
	assert.True(t, moved[b.ID])
	assert.Empty(t, st.Sessions())
}

func TestMigrateAllBestEffort(t *testing.T) {
	ctrl, st, fake := newTarget(t, "aux")
	ctx := context.Background()

	_, err := st.CreateSession(ctx, "sec-main", store.CreateOptions{})
	require.NoError(t, err)
	_, err = st.CreateSession(ctx, "sec-main", store.CreateOptions{})
	require.NoError(t, err)

	fake.FailOn("move_session_to_window", assert.AnError)
	require.Error(t, ctrl.MigrateAll(ctx))

	// Every session was still attempted.
	assert.Len(t, fake.CallsTo("move_session_to_window"), 2)
}
