// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBus_Publish(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	event := Event{
		Type:    EventSessionStatus,
		Payload: map[string]interface{}{"sessionId": "s1", "status": "running"},
	}

	err := bus.Publish(context.Background(), event)
	assert.NoError(t, err)
}

func TestMemoryEventBus_Publish_AssignsID(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var receivedEvent Event
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		receivedEvent = e
		return nil
	})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), Event{Type: EventSessionCreated})
	require.NoError(t, err)

	assert.NotEmpty(t, receivedEvent.ID)
	assert.Equal(t, "1.0", receivedEvent.Version)
	assert.False(t, receivedEvent.Timestamp.IsZero())
}

func TestMemoryEventBus_Publish_DefaultWindow(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()
	bus.SetDefaultWindow("main")

	var receivedEvent Event
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		receivedEvent = e
		return nil
	})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), Event{Type: EventSessionCreated})
	require.NoError(t, err)

	assert.Equal(t, "main", receivedEvent.Window)
}

func TestMemoryEventBus_Subscribe(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	received := make(chan Event, 1)

	_, err := bus.Subscribe(EventSessionOutput, func(ctx context.Context, e Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)

	event := Event{Type: EventSessionOutput, Payload: map[string]interface{}{"sessionId": "s1"}}
	err = bus.Publish(context.Background(), event)
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, EventSessionOutput, e.Type)
		assert.Equal(t, "s1", e.Payload["sessionId"])
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestMemoryEventBus_Subscribe_PatternMatching(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var count int32

	_, err := bus.Subscribe("session.*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)

	events := []Event{
		{Type: EventSessionOutput},
		{Type: EventSessionExit},
		{Type: EventSessionStatus},
		{Type: EventWindowRelay}, // Should not match
	}

	for _, e := range events {
		require.NoError(t, bus.Publish(context.Background(), e))
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var count int32
	id, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionCreated}))
	require.NoError(t, bus.Unsubscribe(id))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionCreated}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestMemoryEventBus_Unsubscribe_NotFound(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	err := bus.Unsubscribe(SubscriptionID("nope"))
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestMemoryEventBus_SubscribeAsync(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	received := make(chan Event, 10)
	_, err := bus.SubscribeAsync("session.*", func(ctx context.Context, e Event) error {
		received <- e
		return nil
	}, 10)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionExit}))

	select {
	case e := <-received:
		assert.Equal(t, EventSessionExit, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestMemoryEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	require.NoError(t, err)

	// Publish must not propagate the panic
	assert.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionCreated}))
}

func TestMemoryEventBus_Closed(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), Event{Type: EventSessionCreated})
	assert.ErrorIs(t, err, ErrBusClosed)

	_, err = bus.Subscribe("*", func(ctx context.Context, e Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)

	// Double close is a no-op
	assert.NoError(t, bus.Close())
}

func TestMemoryEventBus_History(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{HistoryMaxEvents: 100})
	defer bus.Close()

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionCreated, Window: "main"}))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSessionRemoved, Window: "win2"}))

	all, err := bus.History(EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byWindow, err := bus.History(EventFilter{Window: "win2"})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, EventSessionRemoved, byWindow[0].Type)

	byType, err := bus.History(EventFilter{Types: []string{"session.created"}})
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestEventHistory_MaxEvents(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 3})

	for i := 0; i < 5; i++ {
		h.Add(Event{Type: EventSessionOutput, Timestamp: time.Now()})
	}

	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
