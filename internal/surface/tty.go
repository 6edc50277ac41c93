// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// TTY renders to the controlling terminal. The terminal is put into raw
// mode so keystrokes pass through unmodified, and restored on Dispose.
type TTY struct {
	mu       sync.Mutex
	in       *os.File
	out      *os.File
	oldState *term.State
	disposed bool

	inputFns  map[int]func([]byte)
	resizeFns map[int]func(rows, cols int)
	nextFn    int

	winch  chan os.Signal
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTTY opens a surface over stdin/stdout. Fails if stdin is not a
// terminal.
func NewTTY() (*TTY, error) {
	in, out := os.Stdin, os.Stdout
	if !term.IsTerminal(int(in.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("entering raw mode: %w", err)
	}

	t := &TTY{
		in:        in,
		out:       out,
		oldState:  oldState,
		inputFns:  make(map[int]func([]byte)),
		resizeFns: make(map[int]func(rows, cols int)),
		winch:     make(chan os.Signal, 1),
		stopCh:    make(chan struct{}),
	}

	signal.Notify(t.winch, syscall.SIGWINCH)
	t.wg.Add(2)
	go t.readLoop()
	go t.resizeLoop()

	return t, nil
}

func (t *TTY) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.mu.Lock()
			fns := make([]func([]byte), 0, len(t.inputFns))
			for _, fn := range t.inputFns {
				fns = append(fns, fn)
			}
			t.mu.Unlock()
			for _, fn := range fns {
				fn(data)
			}
		}
		if err != nil {
			return
		}
		select {
		case <-t.stopCh:
			return
		default:
		}
	}
}

func (t *TTY) resizeLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.winch:
			rows, cols, err := t.Size()
			if err != nil {
				continue
			}
			t.mu.Lock()
			fns := make([]func(int, int), 0, len(t.resizeFns))
			for _, fn := range t.resizeFns {
				fns = append(fns, fn)
			}
			t.mu.Unlock()
			for _, fn := range fns {
				fn(rows, cols)
			}
		}
	}
}

func (t *TTY) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *TTY) Size() (rows, cols int, err error) {
	cols, rows, err = term.GetSize(int(t.out.Fd()))
	return rows, cols, err
}

func (t *TTY) OnInput(fn func(data []byte)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextFn
	t.nextFn++
	t.inputFns[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.inputFns, id)
	}
}

func (t *TTY) OnResize(fn func(rows, cols int)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextFn
	t.nextFn++
	t.resizeFns[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.resizeFns, id)
	}
}

// Focus is a no-op for a TTY; there is only one terminal.
func (t *TTY) Focus() {}

// Dispose restores the terminal state. Safe to call more than once.
func (t *TTY) Dispose() error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return nil
	}
	t.disposed = true
	t.mu.Unlock()

	signal.Stop(t.winch)
	close(t.stopCh)
	return term.Restore(int(t.in.Fd()), t.oldState)
}
