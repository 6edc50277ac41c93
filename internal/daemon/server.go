// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mkrall/deckhand/pkg/client"
)

// ServerConfig configures the daemon server.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string

	// StatePath is where session and section records are persisted.
	StatePath string

	// DefaultShell is the command started for sessions with no explicit
	// command.
	DefaultShell string

	// Scrollback is the per-session output buffer size in bytes.
	Scrollback int
}

// Server is the deckhand backend daemon. It owns the session registry,
// the process table and the per-window event feeds, and serves the HTTP
// API front ends talk to.
type Server struct {
	cfg      ServerConfig
	registry *Registry
	procs    *ProcTable
	hub      *FeedHub
	server   *http.Server
}

// NewServer creates a daemon server, loading persisted state from
// cfg.StatePath.
func NewServer(cfg ServerConfig) (*Server, error) {
	registry, err := NewRegistry(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	hub := NewFeedHub(registry)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
	}
	s.procs = NewProcTable(s.emit, cfg.Scrollback)
	hub.Replay = s.replay

	router := NewRouter(&Dependencies{
		Registry:     registry,
		Procs:        s.procs,
		Hub:          hub,
		DefaultShell: cfg.DefaultShell,
	})
	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	return s, nil
}

// Registry returns the underlying session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ListenAndServe starts the HTTP API.
func (s *Server) ListenAndServe() error {
	log.Printf("deckhandd listening on http://%s", s.cfg.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the feeds, the running processes and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")
	s.hub.Shutdown()
	s.procs.StopAll()

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}

// emit is the process table's event sink. Record state is updated before
// the event fans out so a front end that reacts by listing sessions sees
// the new state.
func (s *Server) emit(sessionID string, ev client.PushEvent) {
	switch ev.Type {
	case client.PushSessionOutput:
		s.registry.MarkUnread(sessionID)
	case client.PushSessionExit:
		if err := s.registry.UpdateSession(sessionID, func(sess *client.Session) {
			sess.IsOpen = false
			sess.Status = client.StatusIdle
		}); err != nil {
			log.Printf("Warning: failed to record exit of session %s: %v", sessionID, err)
		}
	case client.PushSessionStatus:
		if err := s.registry.UpdateSession(sessionID, func(sess *client.Session) {
			sess.Status = ev.Status
		}); err != nil {
			log.Printf("Warning: failed to record status of session %s: %v", sessionID, err)
		}
	}
	s.hub.Broadcast(sessionID, ev)
}

// replay returns the buffered output of every session a window renders,
// sent to a feed connection when it attaches so reconnecting windows do
// not start from a blank screen.
func (s *Server) replay(label string) []client.PushEvent {
	var events []client.PushEvent
	for _, id := range s.registry.SessionsInWindow(label) {
		data := s.procs.Scrollback(id)
		if len(data) == 0 {
			continue
		}
		events = append(events, client.PushEvent{
			Type:      client.PushSessionOutput,
			SessionID: id,
			Bytes:     data,
		})
	}
	return events
}
