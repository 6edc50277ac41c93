// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	ps "github.com/mitchellh/go-ps"

	"github.com/mkrall/deckhand/pkg/client"
)

// ErrNotRunning is returned for process operations on a session with no
// live backing process.
var ErrNotRunning = errors.New("session has no running process")

// EmitFunc delivers a pushed event for a session to its windows.
type EmitFunc func(sessionID string, ev client.PushEvent)

// proc is one live backing process.
type proc struct {
	cmd      *exec.Cmd
	ptmx     *os.File
	buf      *Buffer
	done     chan struct{}
	stopOnce sync.Once
}

// ProcTable owns the pty-backed processes behind sessions.
type ProcTable struct {
	mu         sync.Mutex
	procs      map[string]*proc
	emit       EmitFunc
	scrollback int
}

// NewProcTable creates a process table. emit receives session-output,
// session-exit, and session-status events as processes run.
func NewProcTable(emit EmitFunc, scrollback int) *ProcTable {
	return &ProcTable{
		procs:      make(map[string]*proc),
		emit:       emit,
		scrollback: scrollback,
	}
}

// Start launches the command behind a session on a fresh pty of the given
// size. Starting an already-running session is a no-op.
func (t *ProcTable) Start(sessionID, command, dir string, rows, cols int) error {
	t.mu.Lock()
	if _, running := t.procs[sessionID]; running {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	cmd := exec.Command("/bin/sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return fmt.Errorf("starting process: %w", err)
	}

	p := &proc{
		cmd:  cmd,
		ptmx: ptmx,
		buf:  NewBuffer(t.scrollback),
		done: make(chan struct{}),
	}

	t.mu.Lock()
	t.procs[sessionID] = p
	t.mu.Unlock()

	go t.pump(sessionID, p)

	t.emit(sessionID, client.PushEvent{
		Type:      client.PushSessionStatus,
		SessionID: sessionID,
		Status:    client.StatusRunning,
	})
	return nil
}

// pump copies pty output to the scrollback buffer and the event feed, then
// reports exit when the read side closes.
func (t *ProcTable) pump(sessionID string, p *proc) {
	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			p.buf.Write(data)
			t.emit(sessionID, client.PushEvent{
				Type:      client.PushSessionOutput,
				SessionID: sessionID,
				Bytes:     data,
			})
		}
		if err != nil {
			break
		}
	}

	p.cmd.Wait()
	close(p.done)

	t.mu.Lock()
	delete(t.procs, sessionID)
	t.mu.Unlock()

	t.emit(sessionID, client.PushEvent{
		Type:      client.PushSessionExit,
		SessionID: sessionID,
	})
}

// Stop terminates a session's backing process. Safe to call when nothing
// is running, and safe to call more than once.
func (t *ProcTable) Stop(sessionID string) {
	t.mu.Lock()
	p, ok := t.procs[sessionID]
	t.mu.Unlock()
	if !ok {
		return
	}

	p.stopOnce.Do(func() {
		p.ptmx.Close()
		if p.cmd.Process != nil {
			if err := p.cmd.Process.Kill(); err != nil {
				log.Printf("Warning: killing process for %s: %v", sessionID, err)
			}
		}
	})
	<-p.done
}

// StopAll terminates every running process. Called on daemon shutdown.
func (t *ProcTable) StopAll() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.procs))
	for id := range t.procs {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.Stop(id)
	}
}

// Write forwards input bytes to the backing process.
func (t *ProcTable) Write(sessionID string, data []byte) error {
	t.mu.Lock()
	p, ok := t.procs[sessionID]
	t.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	_, err := p.ptmx.Write(data)
	return err
}

// Resize resizes the backing pty.
func (t *ProcTable) Resize(sessionID string, rows, cols int) error {
	t.mu.Lock()
	p, ok := t.procs[sessionID]
	t.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Running reports whether a session has a live backing process.
func (t *ProcTable) Running(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.procs[sessionID]
	return ok
}

// Scrollback returns the buffered output of a running session.
func (t *ProcTable) Scrollback(sessionID string) []byte {
	t.mu.Lock()
	p, ok := t.procs[sessionID]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return p.buf.Bytes()
}

// InferStatus inspects the process tree to classify a running session: a
// shell with a live child is running a command, a shell alone is waiting
// at its prompt. Sessions with no process are idle.
func (t *ProcTable) InferStatus(sessionID string) client.SessionStatus {
	t.mu.Lock()
	p, ok := t.procs[sessionID]
	t.mu.Unlock()
	if !ok {
		return client.StatusIdle
	}
	if p.cmd.Process == nil {
		return client.StatusIdle
	}

	procs, err := ps.Processes()
	if err != nil {
		log.Printf("Warning: listing processes: %v", err)
		return client.StatusRunning
	}
	shellPid := p.cmd.Process.Pid
	for _, candidate := range procs {
		if candidate.PPid() == shellPid {
			return client.StatusRunning
		}
	}
	return client.StatusWaiting
}
