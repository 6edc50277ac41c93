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

// SectionHandler serves section record requests.
type SectionHandler struct {
	registry *Registry
}

// NewSectionHandler creates a section handler.
func NewSectionHandler(registry *Registry) *SectionHandler {
	return &SectionHandler{registry: registry}
}

// Create handles POST /api/v1/sections.
func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "name is required")
		return
	}
	sec := h.registry.CreateSection(body.Name, body.Path)
	WriteJSON(w, http.StatusCreated, sec)
}

// List handles GET /api/v1/sections.
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.registry.ListSections())
}

// Delete handles DELETE /api/v1/sections/{id}. Members of the deleted
// section are reassigned to the default section, never deleted.
func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.DeleteSection(id); err != nil {
		if errors.Is(err, ErrDefaultImmutable) {
			WriteError(w, http.StatusConflict, CodeConflict, err.Error())
			return
		}
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Rename handles POST /api/v1/sections/{id}/rename.
func (h *SectionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	err := h.registry.UpdateSection(id, func(s *client.Section) {
		s.Name = body.Name
	})
	if err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SetPath handles POST /api/v1/sections/{id}/path.
func (h *SectionHandler) SetPath(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	err := h.registry.UpdateSection(id, func(s *client.Section) {
		s.Path = body.Path
	})
	if err != nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SetIcon handles POST /api/v1/sections/{id}/icon.
func (h *SectionHandler) SetIcon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var icon client.IconRef
	if err := json.NewDecoder(r.Body).Decode(&icon); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	err := h.registry.UpdateSection(id, func(s *client.Section) {
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
