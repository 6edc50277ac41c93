// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Backend-pushed event types delivered on a window event feed.
const (
	PushSessionOutput  = "session-output"
	PushSessionExit    = "session-exit"
	PushSessionStatus  = "session-status"
	PushToolSessionID  = "tool-session-id"
	PushWindowRelay    = "window-relay"
	PushCloseRequested = "window-close-requested"
)

// PushEvent is one backend-pushed event. Events are broadcast per window
// feed, not targeted at individual views; consumers match on SessionID.
type PushEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`

	// Bytes carries raw process output for session-output events.
	// JSON encoding is base64.
	Bytes []byte `json:"bytes,omitempty"`

	// Status is set for session-status events.
	Status SessionStatus `json:"status,omitempty"`

	// Tool and ToolSessionID are set for tool-session-id events.
	Tool          ToolKind `json:"tool,omitempty"`
	ToolSessionID string   `json:"toolSessionId,omitempty"`

	// Event and Payload carry relay-delivered custom events.
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventStream is a live websocket subscription to a window's event feed.
//
// Read pushed events from [EventStream.Events]; the channel is closed when
// the stream ends. Close the stream when the window goes away.
type EventStream struct {
	conn      *websocket.Conn
	events    chan PushEvent
	writeMu   sync.Mutex
	closeOnce sync.Once
	err       error
}

// Events dials the backend's websocket event feed for the given window label.
//
// The returned stream delivers every event pushed to that window: process
// output and exits, status changes, tool correlation ids, relay-delivered
// custom events, and close requests.
func (c *Client) Events(ctx context.Context, windowLabel string) (*EventStream, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/windows/" + windowLabel + "/feed"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event feed: %w", err)
	}

	s := &EventStream{
		conn:   conn,
		events: make(chan PushEvent, 256),
	}

	conn.SetPingHandler(func(appData string) error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	go s.readLoop()

	return s, nil
}

// Events returns the channel of pushed events. The channel is closed when
// the stream terminates; check [EventStream.Err] afterwards.
func (s *EventStream) Events() <-chan PushEvent {
	return s.events
}

// Err returns the terminal error of the stream, if any.
func (s *EventStream) Err() error {
	return s.err
}

// Close terminates the stream. Safe to call more than once.
func (s *EventStream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

func (s *EventStream) readLoop() {
	defer close(s.events)
	for {
		var ev PushEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
			}
			return
		}
		s.events <- ev
	}
}
