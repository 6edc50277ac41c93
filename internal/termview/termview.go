// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package termview binds one session to a render surface: it forwards
// keystrokes to the backing process, renders pushed output, and manages the
// view's lifecycle from mount to teardown.
package termview

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkrall/deckhand/internal/events"
	"github.com/mkrall/deckhand/internal/surface"
	"github.com/mkrall/deckhand/internal/watcher"
)

// State is a view's lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateListening
	StateRunning
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateListening:
		return "listening"
	case StateRunning:
		return "running"
	case StateTornDown:
		return "torndown"
	}
	return "unknown"
}

const defaultResizeDebounce = 250 * time.Millisecond

// exitMarker is appended to the surface when the backing process exits.
// The view stays up so the user can read the final output.
const exitMarker = "\r\n[process exited]\r\n"

// Backend is the subset of backend commands a view issues.
type Backend interface {
	StartSession(ctx context.Context, id string, rows, cols int) error
	StopSession(ctx context.Context, id string) error
	WriteSessionInput(ctx context.Context, id string, data []byte) error
	ResizeSession(ctx context.Context, id string, rows, cols int) error
	AcknowledgeSession(ctx context.Context, id string) error
}

// Config assembles a Controller.
type Config struct {
	SessionID string
	Backend   Backend
	Bus       events.EventBus
	Surface   surface.Surface

	// ResizeDebounce is the quiet period that coalesces a burst of resize
	// notifications into one backend call. Zero picks a default.
	ResizeDebounce time.Duration
}

// Controller drives one mounted terminal view.
type Controller struct {
	sessionID string
	backend   Backend
	bus       events.EventBus
	surf      surface.Surface
	debouncer *watcher.Debouncer

	state     atomic.Int32
	cancelled atomic.Bool
	tornDown  atomic.Bool
	active    atomic.Bool

	mu           sync.Mutex
	decoder      StreamDecoder
	subIDs       []events.SubscriptionID
	cancelInput  func()
	cancelResize func()
	lastRows     int
	lastCols     int
	pendingRows  int
	pendingCols  int
}

// New creates an unmounted Controller.
func New(cfg Config) *Controller {
	debounce := cfg.ResizeDebounce
	if debounce <= 0 {
		debounce = defaultResizeDebounce
	}
	return &Controller{
		sessionID: cfg.SessionID,
		backend:   cfg.Backend,
		bus:       cfg.Bus,
		surf:      cfg.Surface,
		debouncer: watcher.NewDebouncer(debounce),
	}
}

// State returns the view's lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Cancel sets the cooperative cancellation flag. If the start sequence is
// still in flight it stops at its next checkpoint and tears the view down.
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
}

// Mount wires the view and starts the backing process.
//
// The keystroke hook and the output/exit listeners are registered before
// the start call is issued; output emitted between process start and
// listener attachment would otherwise be lost. The cancellation flag is
// checked after every await, and a failed or cancelled start tears the
// view down before returning.
func (c *Controller) Mount(ctx context.Context) error {
	c.state.Store(int32(StateInitializing))

	rows, cols, err := c.surf.Size()
	if err != nil {
		log.Printf("Warning: reading surface size for %s: %v", c.sessionID, err)
		rows, cols = 24, 80
	}
	c.mu.Lock()
	c.lastRows, c.lastCols = rows, cols
	c.mu.Unlock()

	cancelInput := c.surf.OnInput(c.forwardInput)
	cancelResize := c.surf.OnResize(c.proposeResize)
	c.mu.Lock()
	c.cancelInput = cancelInput
	c.cancelResize = cancelResize
	c.mu.Unlock()

	outputSub, err := c.bus.Subscribe(events.EventSessionOutput, c.handleOutput)
	if err != nil {
		// A view with no output channel is useless. Say so, then die.
		fmt.Fprintf(c.surf, "failed to connect to session output: %v\r\n", err)
		c.Teardown()
		return fmt.Errorf("subscribing to output: %w", err)
	}
	c.addSub(outputSub)

	exitSub, err := c.bus.Subscribe(events.EventSessionExit, c.handleExit)
	if err != nil {
		log.Printf("Warning: subscribing to exit events for %s: %v", c.sessionID, err)
	} else {
		c.addSub(exitSub)
	}

	c.state.Store(int32(StateListening))

	if c.cancelled.Load() {
		c.Teardown()
		return nil
	}

	if err := c.backend.StartSession(ctx, c.sessionID, rows, cols); err != nil {
		fmt.Fprintf(c.surf, "failed to start session: %v\r\n", err)
		c.Teardown()
		return fmt.Errorf("starting session %s: %w", c.sessionID, err)
	}

	if c.cancelled.Load() {
		c.Teardown()
		return nil
	}

	c.state.Store(int32(StateRunning))
	return nil
}

func (c *Controller) addSub(id events.SubscriptionID) {
	c.mu.Lock()
	c.subIDs = append(c.subIDs, id)
	c.mu.Unlock()
}

// forwardInput pushes keystrokes to the backing process. Failures are
// logged; a lost keystroke is not worth tearing the view down over.
func (c *Controller) forwardInput(data []byte) {
	if c.tornDown.Load() {
		return
	}
	if err := c.backend.WriteSessionInput(context.Background(), c.sessionID, data); err != nil {
		log.Printf("Warning: writing input to session %s: %v", c.sessionID, err)
	}
}

// handleOutput renders output events addressed to this session. Events are
// broadcast; the session id filter is ours to apply.
func (c *Controller) handleOutput(ctx context.Context, event events.Event) error {
	if event.Payload["sessionId"] != c.sessionID {
		return nil
	}
	raw, ok := event.Payload["bytes"].([]byte)
	if !ok {
		return nil
	}

	c.mu.Lock()
	out := c.decoder.Write(raw)
	c.mu.Unlock()
	if len(out) == 0 {
		return nil
	}
	if _, err := c.surf.Write(out); err != nil {
		log.Printf("Warning: rendering output for %s: %v", c.sessionID, err)
	}
	return nil
}

// handleExit flushes the decoder tail and appends the exit marker. The
// view is not torn down; the user may still want the final output.
func (c *Controller) handleExit(ctx context.Context, event events.Event) error {
	if event.Payload["sessionId"] != c.sessionID {
		return nil
	}
	if c.tornDown.Load() {
		return nil
	}

	c.mu.Lock()
	tail := c.decoder.Flush()
	c.mu.Unlock()
	if len(tail) > 0 {
		c.surf.Write(tail)
	}
	c.surf.Write([]byte(exitMarker))
	return nil
}

// proposeResize records a proposed size from the surface. The change is
// pushed to the backend only when the view is active, only when it differs
// from the last size sent, and only after a debounce quiet period.
func (c *Controller) proposeResize(rows, cols int) {
	if !c.active.Load() || c.tornDown.Load() {
		return
	}

	c.mu.Lock()
	c.pendingRows, c.pendingCols = rows, cols
	c.mu.Unlock()

	c.debouncer.Debounce("resize:"+c.sessionID, c.flushResize)
}

func (c *Controller) flushResize() {
	if c.tornDown.Load() {
		return
	}

	c.mu.Lock()
	rows, cols := c.pendingRows, c.pendingCols
	if rows == c.lastRows && cols == c.lastCols {
		c.mu.Unlock()
		return
	}
	c.lastRows, c.lastCols = rows, cols
	c.mu.Unlock()

	if err := c.backend.ResizeSession(context.Background(), c.sessionID, rows, cols); err != nil {
		log.Printf("Warning: resizing session %s: %v", c.sessionID, err)
	}
}

// Activate marks this view as the visible one: focus the surface, resync
// the size, and acknowledge the session as seen.
func (c *Controller) Activate(ctx context.Context) {
	if c.tornDown.Load() {
		return
	}
	c.active.Store(true)
	c.surf.Focus()

	if rows, cols, err := c.surf.Size(); err == nil {
		c.mu.Lock()
		changed := rows != c.lastRows || cols != c.lastCols
		if changed {
			c.lastRows, c.lastCols = rows, cols
		}
		c.mu.Unlock()
		if changed {
			if err := c.backend.ResizeSession(ctx, c.sessionID, rows, cols); err != nil {
				log.Printf("Warning: resizing session %s: %v", c.sessionID, err)
			}
		}
	}

	if err := c.backend.AcknowledgeSession(ctx, c.sessionID); err != nil {
		log.Printf("Warning: acknowledging session %s: %v", c.sessionID, err)
	}
}

// Deactivate marks the view as hidden. Resize proposals are ignored until
// it becomes active again.
func (c *Controller) Deactivate() {
	c.active.Store(false)
}

// Teardown dismantles the view: unregister every listener, dispose the
// surface, and stop the backing process. Idempotent; overlapping triggers
// (unmount, cancellation, failed start) run the sequence once. Stop
// failures are logged and never surfaced, the view is going away
// regardless.
func (c *Controller) Teardown() {
	c.dismantle(true)
}

// Detach dismantles the view like Teardown but leaves the backing process
// running. Used when the session lives on elsewhere, such as after a move
// to another window.
func (c *Controller) Detach() {
	c.dismantle(false)
}

func (c *Controller) dismantle(stop bool) {
	if c.tornDown.Swap(true) {
		return
	}
	c.cancelled.Store(true)
	c.state.Store(int32(StateTornDown))

	c.debouncer.Stop()

	c.mu.Lock()
	subs := c.subIDs
	c.subIDs = nil
	cancelInput := c.cancelInput
	cancelResize := c.cancelResize
	c.cancelInput, c.cancelResize = nil, nil
	c.mu.Unlock()

	for _, id := range subs {
		if err := c.bus.Unsubscribe(id); err != nil {
			log.Printf("Warning: unsubscribing %s: %v", id, err)
		}
	}
	if cancelInput != nil {
		cancelInput()
	}
	if cancelResize != nil {
		cancelResize()
	}

	if err := c.surf.Dispose(); err != nil {
		log.Printf("Warning: disposing surface for %s: %v", c.sessionID, err)
	}

	if stop {
		if err := c.backend.StopSession(context.Background(), c.sessionID); err != nil {
			log.Printf("Warning: stopping session %s: %v", c.sessionID, err)
		}
	}
}
