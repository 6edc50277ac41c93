// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transfer implements the cross-window session drag protocol: a
// session dragged out of one window and dropped on another is either moved
// there or mirrored into it.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mkrall/deckhand/internal/events"
	"github.com/mkrall/deckhand/pkg/client"
)

// RelaySessionMoved is the relay event a target window sends to the source
// window after a move, so the source drops its local record.
const RelaySessionMoved = "session-moved"

// Backend is the subset of backend commands the protocol issues.
type Backend interface {
	MoveSessionToWindow(ctx context.Context, sessionID, sourceWindow, targetWindow string) error
	SubscribeToSession(ctx context.Context, sessionID, windowLabel string) error
	RelayWindowIPC(ctx context.Context, targetWindow, event string, payload interface{}) error
	ListSessions(ctx context.Context) ([]client.Session, error)
	ListWindows(ctx context.Context) ([]client.WindowRecord, error)
}

// Store is the slice of the entity store the protocol touches.
type Store interface {
	Adopt(sess client.Session)
	Evict(id string)
	Session(id string) (client.Session, bool)
	Sessions() []client.Session
}

// Controller handles incoming session drags for one window.
type Controller struct {
	backend Backend
	store   Store
	bus     events.EventBus
	window  string

	mu       sync.Mutex
	dragOver bool
}

// New creates a Controller for the window with the given label.
func New(backend Backend, store Store, bus events.EventBus, window string) *Controller {
	return &Controller{backend: backend, store: store, bus: bus, window: window}
}

// DragEnter inspects entering drag data and reports whether the window
// should show its drop-target affordance. Foreign drags report false.
func (c *Controller) DragEnter(data []byte) bool {
	_, ok := DecodePayload(data)
	c.mu.Lock()
	c.dragOver = ok
	c.mu.Unlock()
	return ok
}

// DragLeave clears the drop-target affordance. Called when the drag leaves
// the window entirely, not when it crosses into a child element.
func (c *Controller) DragLeave() {
	c.mu.Lock()
	c.dragOver = false
	c.mu.Unlock()
}

// DragOver reports whether a recognized drag is currently over the window.
func (c *Controller) DragOver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragOver
}

// Drop resolves a drop onto this window. Malformed or foreign payloads are
// ignored. mirror selects mirror mode (modifier key held at drop time);
// the default is a move.
func (c *Controller) Drop(ctx context.Context, data []byte, mirror bool) error {
	c.DragLeave()

	p, ok := DecodePayload(data)
	if !ok {
		return nil
	}
	if p.SourceWindowID == c.window {
		// The in-window reorder engine already handled this drag.
		return nil
	}

	if mirror {
		if err := c.mirror(ctx, p); err != nil {
			return err
		}
	} else {
		if err := c.move(ctx, p); err != nil {
			return err
		}
	}

	c.publishTransfer(p, mirror)
	return nil
}

// move reassigns the session's owning window to this one, then notifies the
// source window so it drops its local record.
func (c *Controller) move(ctx context.Context, p Payload) error {
	if err := c.backend.MoveSessionToWindow(ctx, p.SessionID, p.SourceWindowID, c.window); err != nil {
		return fmt.Errorf("moving session %s: %w", p.SessionID, err)
	}

	go func() {
		err := c.backend.RelayWindowIPC(context.Background(), p.SourceWindowID, RelaySessionMoved,
			map[string]interface{}{"sessionId": p.SessionID})
		if err != nil {
			log.Printf("Warning: relaying %s to %s failed: %v", RelaySessionMoved, p.SourceWindowID, err)
		}
	}()

	return c.adopt(ctx, p.SessionID)
}

// mirror subscribes this window to the session without detaching it from
// the source; both windows render the same backing process.
func (c *Controller) mirror(ctx context.Context, p Payload) error {
	if err := c.backend.SubscribeToSession(ctx, p.SessionID, c.window); err != nil {
		return fmt.Errorf("mirroring session %s: %w", p.SessionID, err)
	}
	return c.adopt(ctx, p.SessionID)
}

// adopt fetches the authoritative session record and admits it locally.
func (c *Controller) adopt(ctx context.Context, sessionID string) error {
	if _, ok := c.store.Session(sessionID); ok {
		return nil
	}
	list, err := c.backend.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("fetching session %s: %w", sessionID, err)
	}
	for _, sess := range list {
		if sess.ID == sessionID {
			c.store.Adopt(sess)
			return nil
		}
	}
	return fmt.Errorf("session %s not found after transfer", sessionID)
}

// HandleRelay processes a relay event delivered to this window.
func (c *Controller) HandleRelay(event string, payload json.RawMessage) {
	switch event {
	case RelaySessionMoved:
		var body struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.SessionID == "" {
			log.Printf("Warning: malformed %s relay payload", RelaySessionMoved)
			return
		}
		c.store.Evict(body.SessionID)
	}
}

// MigrateAll moves every remaining session in this window to the main
// window. Used when a non-main window is closing. Each move is attempted
// regardless of the others failing; the first error is returned.
func (c *Controller) MigrateAll(ctx context.Context) error {
	windows, err := c.backend.ListWindows(ctx)
	if err != nil {
		return fmt.Errorf("listing windows: %w", err)
	}
	var mainID string
	for _, w := range windows {
		if w.IsMain {
			mainID = w.ID
			break
		}
	}
	if mainID == "" {
		return fmt.Errorf("no main window to migrate to")
	}
	if mainID == c.window {
		return nil
	}

	var g errgroup.Group
	for _, sess := range c.store.Sessions() {
		id := sess.ID
		g.Go(func() error {
			if err := c.backend.MoveSessionToWindow(ctx, id, c.window, mainID); err != nil {
				log.Printf("Warning: migrating session %s failed: %v", id, err)
				return err
			}
			c.store.Evict(id)
			return nil
		})
	}
	return g.Wait()
}

// publishTransfer raises the local UI event after a completed transfer.
func (c *Controller) publishTransfer(p Payload, mirror bool) {
	if c.bus == nil {
		return
	}
	mode := "move"
	if mirror {
		mode = "mirror"
	}
	err := c.bus.Publish(context.Background(), events.Event{
		Type:   events.EventWindowTransfer,
		Window: c.window,
		Payload: map[string]interface{}{
			"sessionId":    p.SessionID,
			"sourceWindow": p.SourceWindowID,
			"mode":         mode,
		},
	})
	if err != nil {
		log.Printf("Warning: publish %s failed: %v", events.EventWindowTransfer, err)
	}
}
