// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package surface abstracts the render surface a terminal view draws to.
package surface

// Surface is one rendering target for a terminal session: it accepts output
// bytes, reports its size in character cells, and raises input and resize
// callbacks.
type Surface interface {
	// Write renders decoded output.
	Write(p []byte) (int, error)

	// Size returns the current dimensions in rows and columns.
	Size() (rows, cols int, err error)

	// OnInput registers the keystroke hook. The returned function
	// unregisters it.
	OnInput(fn func(data []byte)) (cancel func())

	// OnResize registers a resize callback. The returned function
	// unregisters it.
	OnResize(fn func(rows, cols int)) (cancel func())

	// Focus directs subsequent input to this surface.
	Focus()

	// Dispose releases the surface. Subsequent calls are no-ops.
	Dispose() error
}
