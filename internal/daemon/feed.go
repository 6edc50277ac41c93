// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkrall/deckhand/pkg/client"
)

const (
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The daemon binds to localhost; window front ends are the only peers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedConn is one attached window feed. gorilla/websocket allows a single
// concurrent writer, so every write goes through writeMu.
type feedConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (fc *feedConn) send(ev client.PushEvent) error {
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return fc.conn.WriteJSON(ev)
}

// FeedHub fans backend-pushed events out to window event feeds. Each
// window attaches one websocket; events for a session go to every window
// rendering it.
type FeedHub struct {
	registry *Registry

	mu    sync.Mutex
	conns map[string]map[*feedConn]struct{} // window label -> feeds

	// Replay, when set, produces the events replayed to a window feed on
	// attach (scrollback of its live sessions).
	Replay func(label string) []client.PushEvent
}

// NewFeedHub creates a hub routing events by the registry's window
// membership.
func NewFeedHub(registry *Registry) *FeedHub {
	return &FeedHub{
		registry: registry,
		conns:    make(map[string]map[*feedConn]struct{}),
	}
}

// ServeFeed upgrades the request to a websocket and attaches it as the
// event feed for the given window label until the peer disconnects.
func (h *FeedHub) ServeFeed(w http.ResponseWriter, r *http.Request, label string) {
	if _, ok := h.registry.Window(label); !ok {
		http.Error(w, "window not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed: upgrade failed for %s: %v", label, err)
		return
	}

	fc := &feedConn{conn: conn}
	h.attach(label, fc)
	defer func() {
		h.detach(label, fc)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})

	if h.Replay != nil {
		for _, ev := range h.Replay(label) {
			if err := fc.send(ev); err != nil {
				return
			}
		}
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fc.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(feedWriteWait))
				fc.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-stopPing:
				return
			}
		}
	}()

	// The feed is write-only from the daemon's side; the read loop exists
	// to process pongs and notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) attach(label string, fc *feedConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[label] == nil {
		h.conns[label] = make(map[*feedConn]struct{})
	}
	h.conns[label][fc] = struct{}{}
}

func (h *FeedHub) detach(label string, fc *feedConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[label], fc)
	if len(h.conns[label]) == 0 {
		delete(h.conns, label)
	}
}

// Broadcast delivers a session event to every window rendering the
// session.
func (h *FeedHub) Broadcast(sessionID string, ev client.PushEvent) {
	for _, label := range h.registry.WindowsForSession(sessionID) {
		h.Send(label, ev)
	}
}

// Send delivers an event to one window's feeds. Windows with no attached
// feed miss the event; feeds replay scrollback on attach to cover output.
func (h *FeedHub) Send(label string, ev client.PushEvent) {
	h.mu.Lock()
	conns := make([]*feedConn, 0, len(h.conns[label]))
	for fc := range h.conns[label] {
		conns = append(conns, fc)
	}
	h.mu.Unlock()

	for _, fc := range conns {
		if err := fc.send(ev); err != nil {
			log.Printf("Feed: write to %s failed: %v", label, err)
		}
	}
}

// Shutdown closes every attached feed so the HTTP server can drain.
func (h *FeedHub) Shutdown() {
	h.mu.Lock()
	var all []*feedConn
	for _, conns := range h.conns {
		for fc := range conns {
			all = append(all, fc)
		}
	}
	h.mu.Unlock()

	for _, fc := range all {
		fc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		fc.conn.Close()
	}
}
