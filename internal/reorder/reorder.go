// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package reorder translates pointer drags over sessions and sections into
// discrete store mutations.
//
// A drag activates only after the pointer has moved a minimum distance, so
// plain clicks never start one. Section drags collapse every expanded
// non-default section for their duration and restore the snapshot when the
// drag ends, no matter how it ends. A window holds at most one active drag.
package reorder

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/mkrall/deckhand/pkg/client"
)

// DefaultActivationDistance is the pointer travel, in pixels, required
// before a press turns into a drag.
const DefaultActivationDistance = 8.0

// ErrDragInProgress is returned when a second drag is started while one is
// already active.
var ErrDragInProgress = errors.New("drag already in progress")

// Kind distinguishes the two draggable entity kinds. Collision detection
// only ever matches targets of the dragged kind.
type Kind int

const (
	KindSession Kind = iota
	KindSection
)

// Point is a pointer position in window coordinates.
type Point struct {
	X, Y float64
}

func (p Point) distanceTo(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Target is a registered drop target: an entity and the center of its
// rendered bounds.
type Target struct {
	Kind   Kind
	ID     string
	Center Point
}

// Store is the slice of the entity store the engine mutates and queries.
type Store interface {
	Sections() []client.Section
	Section(id string) (client.Section, bool)
	Session(id string) (client.Session, bool)
	SessionIDs(sectionID string) []string
	MoveSection(id string, toIndex int)
	MoveSessionWithin(id string, toIndex int)
	MoveSessionToSection(ctx context.Context, id, sectionID string, toIndex int) error
	SetSectionCollapsed(id string, collapsed bool)
}

// Controller runs the drag state machine for one window.
type Controller struct {
	store     Store
	threshold float64

	mu      sync.Mutex
	drag    *dragState
	targets []Target
}

type dragState struct {
	kind   Kind
	id     string
	origin Point
	active bool

	// collapseSnapshot holds each non-default section's pre-drag collapse
	// state for section drags. Restored on end and on cancel alike.
	collapseSnapshot map[string]bool
}

// New creates a Controller with the given activation distance; zero or
// negative means DefaultActivationDistance.
func New(store Store, activationDistance float64) *Controller {
	if activationDistance <= 0 {
		activationDistance = DefaultActivationDistance
	}
	return &Controller{store: store, threshold: activationDistance}
}

// SetTargets replaces the registered drop targets. The view layer calls this
// as layout changes.
func (c *Controller) SetTargets(targets []Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = append([]Target(nil), targets...)
}

// PointerDown begins tracking a potential drag of the given entity.
func (c *Controller) PointerDown(kind Kind, id string, at Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag != nil {
		return ErrDragInProgress
	}
	c.drag = &dragState{kind: kind, id: id, origin: at}
	return nil
}

// BeginKeyboard starts a drag immediately, bypassing the movement
// threshold. Used for keyboard-driven reordering.
func (c *Controller) BeginKeyboard(kind Kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag != nil {
		return ErrDragInProgress
	}
	c.drag = &dragState{kind: kind, id: id, active: true}
	c.activateLocked()
	return nil
}

// PointerMove updates the tracked drag. The drag activates once the pointer
// has traveled the activation distance from the press point.
func (c *Controller) PointerMove(at Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil || c.drag.active {
		return
	}
	if c.drag.origin.distanceTo(at) >= c.threshold {
		c.drag.active = true
		c.activateLocked()
	}
}

// activateLocked runs the drag-start choreography. Section drags snapshot
// collapse state and collapse every expanded non-default section so the
// list doesn't reflow mid-drag.
func (c *Controller) activateLocked() {
	if c.drag.kind != KindSection {
		return
	}
	c.drag.collapseSnapshot = make(map[string]bool)
	for _, sec := range c.store.Sections() {
		if sec.IsDefault {
			continue
		}
		c.drag.collapseSnapshot[sec.ID] = sec.Collapsed
		if !sec.Collapsed {
			c.store.SetSectionCollapsed(sec.ID, true)
		}
	}
}

// PointerUp ends the drag and resolves the drop. A press that never
// activated is a plain click and mutates nothing. Drops with no valid
// target, or onto the dragged entity itself, are no-ops.
func (c *Controller) PointerUp(ctx context.Context, at Point) error {
	c.mu.Lock()
	drag := c.drag
	c.drag = nil
	if drag == nil {
		c.mu.Unlock()
		return nil
	}
	target, ok := c.nearestLocked(drag, at)
	c.restoreCollapseLocked(drag)
	c.mu.Unlock()

	if !drag.active || !ok {
		return nil
	}
	return c.resolve(ctx, drag, target)
}

// Cancel aborts any drag in progress, restoring pre-drag collapse state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return
	}
	c.restoreCollapseLocked(c.drag)
	c.drag = nil
}

// Dragging reports the entity currently being dragged, if any.
func (c *Controller) Dragging() (Kind, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil || !c.drag.active {
		return 0, "", false
	}
	return c.drag.kind, c.drag.id, true
}

func (c *Controller) restoreCollapseLocked(drag *dragState) {
	for id, collapsed := range drag.collapseSnapshot {
		c.store.SetSectionCollapsed(id, collapsed)
	}
}

// nearestLocked finds the registered target of the dragged kind closest to
// the drop point by center distance, excluding the dragged entity.
func (c *Controller) nearestLocked(drag *dragState, at Point) (Target, bool) {
	best := Target{}
	bestDist := math.Inf(1)
	found := false
	for _, t := range c.targets {
		if t.Kind != drag.kind || t.ID == drag.id {
			continue
		}
		if d := t.Center.distanceTo(at); d < bestDist {
			best, bestDist, found = t, d, true
		}
	}
	return best, found
}

func (c *Controller) resolve(ctx context.Context, drag *dragState, target Target) error {
	switch drag.kind {
	case KindSection:
		idx := c.sectionIndex(target.ID)
		if idx < 0 {
			return nil
		}
		c.store.MoveSection(drag.id, idx)
		return nil

	case KindSession:
		dragged, ok := c.store.Session(drag.id)
		if !ok {
			return nil
		}
		over, ok := c.store.Session(target.ID)
		if !ok {
			return nil
		}
		idx := indexOf(c.store.SessionIDs(over.SectionID), over.ID)
		if idx < 0 {
			return nil
		}
		if dragged.SectionID == over.SectionID {
			c.store.MoveSessionWithin(drag.id, idx)
			return nil
		}
		return c.store.MoveSessionToSection(ctx, drag.id, over.SectionID, idx)
	}
	return nil
}

func (c *Controller) sectionIndex(id string) int {
	for i, sec := range c.store.Sections() {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
