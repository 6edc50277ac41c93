// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mkrall/deckhand/internal/events"
	"github.com/mkrall/deckhand/pkg/client"
)

// Pump republishes backend-pushed events from a window event feed onto the
// local event bus, translating wire event types to bus event types.
//
// Pump blocks until the stream's channel is closed or ctx is cancelled.
func Pump(ctx context.Context, stream *client.EventStream, bus events.EventBus) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					log.Printf("Warning: event feed terminated: %v", err)
				}
				return
			}
			publish(ctx, bus, ev)
		}
	}
}

func publish(ctx context.Context, bus events.EventBus, ev client.PushEvent) {
	var out events.Event

	switch ev.Type {
	case client.PushSessionOutput:
		out = events.Event{
			Type: events.EventSessionOutput,
			Payload: map[string]interface{}{
				"sessionId": ev.SessionID,
				"bytes":     ev.Bytes,
			},
		}
	case client.PushSessionExit:
		out = events.Event{
			Type:    events.EventSessionExit,
			Payload: map[string]interface{}{"sessionId": ev.SessionID},
		}
	case client.PushSessionStatus:
		out = events.Event{
			Type: events.EventSessionStatus,
			Payload: map[string]interface{}{
				"sessionId": ev.SessionID,
				"status":    string(ev.Status),
			},
		}
	case client.PushToolSessionID:
		out = events.Event{
			Type: events.EventSessionToolID,
			Payload: map[string]interface{}{
				"sessionId":     ev.SessionID,
				"tool":          string(ev.Tool),
				"toolSessionId": ev.ToolSessionID,
			},
		}
	case client.PushWindowRelay:
		out = events.Event{
			Type: events.EventWindowRelay,
			Payload: map[string]interface{}{
				"event":   ev.Event,
				"payload": json.RawMessage(ev.Payload),
			},
		}
	case client.PushCloseRequested:
		out = events.Event{Type: events.EventWindowCloseRequested}
	default:
		log.Printf("Warning: unknown pushed event type %q", ev.Type)
		return
	}

	if err := bus.Publish(ctx, out); err != nil {
		log.Printf("Warning: failed to publish %s: %v", out.Type, err)
	}
}
