// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import "sync"

// Buffer is a thread-safe byte ring buffer holding a session's recent
// output, replayed to windows that attach after the process started.
type Buffer struct {
	mu      sync.RWMutex
	data    []byte
	head    int // Next write position
	size    int // Current number of bytes
	maxSize int
}

// NewBuffer creates a scrollback buffer holding up to maxSize bytes.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = 256 * 1024
	}
	return &Buffer{
		data:    make([]byte, maxSize),
		maxSize: maxSize,
	}
}

// Write appends output, overwriting the oldest bytes once full.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.maxSize {
		// Only the tail fits; the rest would be overwritten immediately.
		copy(b.data, p[n-b.maxSize:])
		b.head = 0
		b.size = b.maxSize
		return n, nil
	}

	for _, c := range p {
		b.data[b.head] = c
		b.head = (b.head + 1) % b.maxSize
		if b.size < b.maxSize {
			b.size++
		}
	}
	return n, nil
}

// Bytes returns the buffered output in chronological order.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return nil
	}
	out := make([]byte, b.size)
	start := (b.head - b.size + b.maxSize) % b.maxSize
	for i := 0; i < b.size; i++ {
		out[i] = b.data[(start+i)%b.maxSize]
	}
	return out
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}
