// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Dependencies holds the shared state handlers operate on.
type Dependencies struct {
	Registry     *Registry
	Procs        *ProcTable
	Hub          *FeedHub
	DefaultShell string
}

// NewRouter builds the daemon's HTTP API.
func NewRouter(deps *Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging)
	r.Use(Recovery)

	sessions := NewSessionHandler(deps.Registry, deps.Procs, deps.Hub, deps.DefaultShell)
	sections := NewSectionHandler(deps.Registry)
	windows := NewWindowHandler(deps.Registry, deps.Hub)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", sessions.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions", sessions.List).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", sessions.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/rename", sessions.Rename).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/command", sessions.SetCommand).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/icon", sessions.SetIcon).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/move", sessions.Move).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/activate", sessions.Activate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/tool-session", sessions.SetToolSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/start", sessions.Start).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/stop", sessions.Stop).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/input", sessions.Input).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/resize", sessions.Resize).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/acknowledge", sessions.Acknowledge).Methods(http.MethodPost)

	api.HandleFunc("/sections", sections.Create).Methods(http.MethodPost)
	api.HandleFunc("/sections", sections.List).Methods(http.MethodGet)
	api.HandleFunc("/sections/{id}", sections.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/sections/{id}/rename", sections.Rename).Methods(http.MethodPost)
	api.HandleFunc("/sections/{id}/path", sections.SetPath).Methods(http.MethodPost)
	api.HandleFunc("/sections/{id}/icon", sections.SetIcon).Methods(http.MethodPost)

	api.HandleFunc("/windows", windows.Open).Methods(http.MethodPost)
	api.HandleFunc("/windows", windows.List).Methods(http.MethodGet)
	api.HandleFunc("/windows/{id}", windows.Get).Methods(http.MethodGet)
	api.HandleFunc("/windows/{id}", windows.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/windows/{id}/geometry", windows.SetGeometry).Methods(http.MethodPost)
	api.HandleFunc("/windows/{target}/move-session", windows.MoveSession).Methods(http.MethodPost)
	api.HandleFunc("/windows/{label}/subscribe", windows.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/windows/{target}/relay", windows.Relay).Methods(http.MethodPost)
	api.HandleFunc("/windows/{source}/merge", windows.Merge).Methods(http.MethodPost)
	api.HandleFunc("/windows/{label}/feed", windows.Feed).Methods(http.MethodGet)

	return r
}
