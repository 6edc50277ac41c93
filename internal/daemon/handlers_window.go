// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkrall/deckhand/pkg/client"
)

// WindowHandler serves window record, relay and feed requests.
type WindowHandler struct {
	registry *Registry
	hub      *FeedHub
}

// NewWindowHandler creates a window handler.
func NewWindowHandler(registry *Registry, hub *FeedHub) *WindowHandler {
	return &WindowHandler{registry: registry, hub: hub}
}

// List handles GET /api/v1/windows.
func (h *WindowHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.registry.ListWindows())
}

// Get handles GET /api/v1/windows/{id}.
func (h *WindowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := h.registry.Window(id)
	if !ok {
		WriteError(w, http.StatusNotFound, CodeNotFound, "window not found")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Open handles POST /api/v1/windows.
func (h *WindowHandler) Open(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title      string   `json:"title"`
		SessionIDs []string `json:"sessionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	rec := h.registry.OpenWindow(body.Title, body.SessionIDs)
	WriteJSON(w, http.StatusCreated, rec)
}

// SetGeometry handles POST /api/v1/windows/{id}/geometry.
func (h *WindowHandler) SetGeometry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var geom client.Geometry
	if err := json.NewDecoder(r.Body).Decode(&geom); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.UpdateWindowGeometry(id, geom); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles DELETE /api/v1/windows/{id}. The main window record
// cannot be deleted.
func (h *WindowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.DeleteWindow(id); err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// MoveSession handles POST /api/v1/windows/{target}/move-session. The
// session ends up rendered by the target window only.
func (h *WindowHandler) MoveSession(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	var body struct {
		SessionID      string `json:"sessionId"`
		SourceWindowID string `json:"sourceWindowId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.MoveSessionToWindow(body.SessionID, body.SourceWindowID, target); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": body.SessionID})
}

// Subscribe handles POST /api/v1/windows/{label}/subscribe. The window is
// added to the session's feed audience without changing ownership.
func (h *WindowHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	label := mux.Vars(r)["label"]
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.SubscribeWindow(body.SessionID, label); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": body.SessionID})
}

// Relay handles POST /api/v1/windows/{target}/relay. The named event is
// forwarded verbatim over the target window's feed.
func (h *WindowHandler) Relay(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	var body struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if body.Event == "" {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "event is required")
		return
	}
	if _, ok := h.registry.Window(target); !ok {
		WriteError(w, http.StatusNotFound, CodeNotFound, "window not found")
		return
	}
	h.hub.Send(target, client.PushEvent{
		Type:    client.PushWindowRelay,
		Event:   body.Event,
		Payload: body.Payload,
	})
	WriteJSON(w, http.StatusOK, map[string]string{"id": target})
}

// Merge handles POST /api/v1/windows/{source}/merge. Every session in the
// source window moves to the target, then the source window is asked to
// close.
func (h *WindowHandler) Merge(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]
	var body struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.MergeWindows(source, body.Target); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	h.hub.Send(source, client.PushEvent{Type: client.PushCloseRequested})
	WriteJSON(w, http.StatusOK, map[string]string{"id": body.Target})
}

// Feed handles GET /api/v1/windows/{label}/feed, upgrading to a
// websocket that carries push events for the window.
func (h *WindowHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeFeed(w, r, mux.Vars(r)["label"])
}
