// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// apiHandler creates a handler that returns a standard API response.
func apiHandler(data interface{}, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"data": data,
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// apiErrorHandler creates a handler that returns an API error.
func apiErrorHandler(code, message string, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestNew(t *testing.T) {
	c := New("http://localhost:7420")

	if c.BaseURL() != "http://localhost:7420" {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), "http://localhost:7420")
	}

	// Test sub-clients are initialized
	if c.Sessions == nil {
		t.Error("Sessions client is nil")
	}
	if c.Sections == nil {
		t.Error("Sections client is nil")
	}
	if c.Terminal == nil {
		t.Error("Terminal client is nil")
	}
	if c.Windows == nil {
		t.Error("Windows client is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:7420/")
	if c.BaseURL() != "http://localhost:7420" {
		t.Errorf("BaseURL() = %q, want trailing slash removed", c.BaseURL())
	}
}

func TestNewWithOptions(t *testing.T) {
	t.Run("WithTimeout", func(t *testing.T) {
		c := New("http://localhost:7420", WithTimeout(5*time.Second))
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
		}
	})

	t.Run("WithHTTPClient", func(t *testing.T) {
		hc := &http.Client{}
		c := New("http://localhost:7420", WithHTTPClient(hc))
		if c.httpClient != hc {
			t.Error("custom http client not used")
		}
	})
}

func TestSessions_List(t *testing.T) {
	sessions := []Session{
		{ID: "s1", Title: "Terminal 1", SectionID: "sec1", Tool: ToolRef{Kind: ToolShell}},
		{ID: "s2", Title: "Claude", SectionID: "sec1", Tool: ToolRef{Kind: ToolClaude}},
	}
	srv := httptest.NewServer(apiHandler(sessions, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Sessions.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d sessions, want 2", len(got))
	}
	if got[0].ID != "s1" || got[1].Tool.Kind != ToolClaude {
		t.Errorf("unexpected sessions: %+v", got)
	}
}

func TestSessions_Create(t *testing.T) {
	var gotReq CreateSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		apiHandler(Session{ID: "s9", Title: gotReq.Title, SectionID: gotReq.SectionID}, http.StatusOK)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	sess, err := c.Sessions.Create(context.Background(), CreateSessionRequest{
		SectionID: "sec1",
		Title:     "Terminal 1",
		Tool:      ToolRef{Kind: ToolShell},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if sess.ID != "s9" {
		t.Errorf("Create() id = %q, want s9", sess.ID)
	}
	if gotReq.SectionID != "sec1" {
		t.Errorf("request sectionId = %q, want sec1", gotReq.SectionID)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(apiErrorHandler("NOT_FOUND", "no such session", http.StatusNotFound))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Sessions.Delete(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", apiErr.Code)
	}
	if apiErr.Error() != "NOT_FOUND: no such session" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestParseResponse_NonEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Sessions.List(context.Background())
	if err == nil {
		t.Fatal("expected error for non-envelope failure response")
	}
}

func TestToolRef_DisplayName(t *testing.T) {
	tests := []struct {
		tool ToolRef
		want string
	}{
		{ToolRef{Kind: ToolShell}, "Terminal"},
		{ToolRef{Kind: ToolClaude}, "Claude"},
		{ToolRef{Kind: ToolCodex}, "Codex"},
		{ToolRef{Kind: ToolCustom, Custom: "aider"}, "aider"},
		{ToolRef{Kind: ToolCustom}, "Custom"},
		{ToolRef{}, "Terminal"},
	}

	for _, tt := range tests {
		if got := tt.tool.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.tool, got, tt.want)
		}
	}
}
