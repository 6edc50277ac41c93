// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkrall/deckhand/pkg/client"
)

// SessionHandler serves session record and process control requests.
type SessionHandler struct {
	registry     *Registry
	procs        *ProcTable
	hub          *FeedHub
	defaultShell string
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(registry *Registry, procs *ProcTable, hub *FeedHub, defaultShell string) *SessionHandler {
	return &SessionHandler{
		registry:     registry,
		procs:        procs,
		hub:          hub,
		defaultShell: defaultShell,
	}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req client.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	sess, err := h.registry.CreateSession(req)
	if err != nil {
		if errors.Is(err, ErrSectionNotFound) {
			WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, CodeSessionError, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, sess)
}

// List handles GET /api/v1/sessions. Statuses are refreshed from the
// process table before the list is returned.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.ListSessions()
	for i := range sessions {
		if h.procs.Running(sessions[i].ID) {
			status := h.procs.InferStatus(sessions[i].ID)
			if status != sessions[i].Status {
				sessions[i].Status = status
				h.registry.UpdateSession(sessions[i].ID, func(s *client.Session) {
					s.Status = status
				})
			}
		}
	}
	WriteJSON(w, http.StatusOK, sessions)
}

// Delete handles DELETE /api/v1/sessions/{id}. The backing process is
// stopped before the record is removed; the caller's local state must not
// change until this succeeds.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.procs.Stop(id)
	if err := h.registry.DeleteSession(id); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Rename handles POST /api/v1/sessions/{id}/rename.
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.RenameSession(id, body.Title); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SetCommand handles POST /api/v1/sessions/{id}/command.
func (h *SessionHandler) SetCommand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	err := h.registry.UpdateSession(id, func(s *client.Session) {
		s.Command = body.Command
	})
	if err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SetIcon handles POST /api/v1/sessions/{id}/icon.
func (h *SessionHandler) SetIcon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var icon client.IconRef
	if err := json.NewDecoder(r.Body).Decode(&icon); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	err := h.registry.UpdateSession(id, func(s *client.Session) {
		if icon.IsZero() {
			s.Icon = nil
		} else {
			ic := icon
			s.Icon = &ic
		}
	})
	if err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Move handles POST /api/v1/sessions/{id}/move.
func (h *SessionHandler) Move(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		SectionID string `json:"sectionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.MoveSessionToSection(id, body.SectionID); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Activate handles POST /api/v1/sessions/{id}/activate.
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.SetActiveSession(id); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SetToolSession handles POST /api/v1/sessions/{id}/tool-session. The
// correlation id is persisted and broadcast so every window rendering the
// session learns it.
func (h *SessionHandler) SetToolSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Tool          string `json:"tool"`
		ToolSessionID string `json:"toolSessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.registry.SetToolSessionID(id, client.ToolKind(body.Tool), body.ToolSessionID); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}

	h.hub.Broadcast(id, client.PushEvent{
		Type:          client.PushToolSessionID,
		SessionID:     id,
		Tool:          client.ToolKind(body.Tool),
		ToolSessionID: body.ToolSessionID,
	})
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Start handles POST /api/v1/sessions/{id}/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Rows int `json:"rows"`
		Cols int `json:"cols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if body.Rows <= 0 || body.Cols <= 0 {
		body.Rows, body.Cols = 24, 80
	}

	sess, ok := h.registry.Session(id)
	if !ok {
		WriteError(w, http.StatusNotFound, CodeNotFound, "session not found")
		return
	}

	command := sess.Command
	if command == "" {
		command = h.defaultShell
	}
	dir := ""
	if sec, ok := h.registry.Section(sess.SectionID); ok {
		dir = sec.Path
	}

	if err := h.procs.Start(id, command, dir, body.Rows, body.Cols); err != nil {
		h.registry.UpdateSession(id, func(s *client.Session) {
			s.Status = client.StatusError
			s.IsOpen = false
		})
		WriteError(w, http.StatusInternalServerError, CodeSessionError, err.Error())
		return
	}

	h.registry.UpdateSession(id, func(s *client.Session) {
		s.Status = client.StatusRunning
		s.IsOpen = true
	})
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Stop handles POST /api/v1/sessions/{id}/stop.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.registry.Session(id); !ok {
		WriteError(w, http.StatusNotFound, CodeNotFound, "session not found")
		return
	}
	h.procs.Stop(id)
	h.registry.UpdateSession(id, func(s *client.Session) {
		s.Status = client.StatusIdle
		s.IsOpen = false
	})
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Input handles POST /api/v1/sessions/{id}/input.
func (h *SessionHandler) Input(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "data is not valid base64")
		return
	}
	if err := h.procs.Write(id, data); err != nil {
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Resize handles POST /api/v1/sessions/{id}/resize.
func (h *SessionHandler) Resize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Rows int `json:"rows"`
		Cols int `json:"cols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := h.procs.Resize(id, body.Rows, body.Cols); err != nil {
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Acknowledge handles POST /api/v1/sessions/{id}/acknowledge.
func (h *SessionHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Acknowledge(id); err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}
