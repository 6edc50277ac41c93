// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"strings"
	"time"
)

// SessionStatus is the runtime status of a session's backing process.
type SessionStatus string

// Session status values.
const (
	StatusStarting SessionStatus = "starting"
	StatusRunning  SessionStatus = "running"
	StatusWaiting  SessionStatus = "waiting"
	StatusIdle     SessionStatus = "idle"
	StatusError    SessionStatus = "error"
)

// ToolKind identifies the program kind a session runs.
type ToolKind string

// Built-in tool kinds. ToolCustom marks a session running an arbitrary
// external tool identified by ToolRef.Custom.
const (
	ToolShell  ToolKind = "shell"
	ToolClaude ToolKind = "claude"
	ToolCodex  ToolKind = "codex"
	ToolGemini ToolKind = "gemini"
	ToolCustom ToolKind = "custom"
)

// ToolRef is a tagged reference to the tool a session runs. Kind is the
// discriminant; Custom carries the external tool identifier only when
// Kind is ToolCustom.
type ToolRef struct {
	Kind   ToolKind `json:"kind"`
	Custom string   `json:"custom,omitempty"`
}

// DisplayName returns the user-facing name for the tool.
func (t ToolRef) DisplayName() string {
	switch t.Kind {
	case ToolShell:
		return "Terminal"
	case ToolCustom:
		if t.Custom != "" {
			return t.Custom
		}
		return "Custom"
	default:
		name := string(t.Kind)
		if name == "" {
			return "Terminal"
		}
		return strings.ToUpper(name[:1]) + name[1:]
	}
}

// IconRef references either a built-in icon by key or an external icon.
type IconRef struct {
	Builtin  string `json:"builtin,omitempty"`
	External string `json:"external,omitempty"`
}

// IsZero reports whether the reference is empty.
func (i IconRef) IsZero() bool {
	return i.Builtin == "" && i.External == ""
}

// Session represents one tracked interactive process and its terminal view.
type Session struct {
	// ID is the unique identifier assigned by the backend.
	ID string `json:"id"`

	// Title is the user-facing title. The backend may push dynamic titles
	// unless TitleLocked is set by an explicit user rename.
	Title       string `json:"title"`
	TitleLocked bool   `json:"titleLocked,omitempty"`

	// SectionID is the owning section. Every session belongs to exactly one.
	SectionID string `json:"sectionId"`

	// Tool is the program kind this session runs.
	Tool ToolRef `json:"tool"`

	// Command is the launch command actually used.
	Command string `json:"command,omitempty"`

	// Icon is an optional icon reference.
	Icon *IconRef `json:"icon,omitempty"`

	// Status is the current process status.
	Status SessionStatus `json:"status"`

	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`

	// ToolSessionIDs holds correlation ids assigned by external tools,
	// keyed by tool kind.
	ToolSessionIDs map[ToolKind]string `json:"toolSessionIds,omitempty"`

	// IsOpen reports whether a backing process is currently live,
	// as opposed to a dormant record.
	IsOpen bool `json:"isOpen"`

	// TabOrder is the stable ordering position within the owning section.
	TabOrder int `json:"tabOrder"`
}

// Section is a named grouping of sessions with a working-directory path.
type Section struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Path is the working directory sessions in this section start in.
	Path string `json:"path"`

	Icon *IconRef `json:"icon,omitempty"`

	// Collapsed is UI-only state.
	Collapsed bool `json:"collapsed"`

	// Order is the stable ordering position among sections.
	Order int `json:"order"`

	// IsDefault marks the default section. Exactly one section carries this
	// flag; it cannot be removed and acts as the fallback owner when another
	// section is deleted.
	IsDefault bool `json:"isDefault"`
}

// Geometry describes a window's position and size.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowRecord is the backend's record of one OS window.
type WindowRecord struct {
	// ID is the window label used to address the window in relay calls.
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Geom  Geometry `json:"geometry"`

	// SessionIDs is the set of sessions currently rendered in this window.
	// A session may appear in more than one window when mirrored.
	SessionIDs []string `json:"sessionIds"`

	// ActiveSessionID is the session receiving input in this window, if any.
	ActiveSessionID string `json:"activeSessionId,omitempty"`

	// IsMain marks the main window, the fallback target when other
	// windows close.
	IsMain bool `json:"isMain"`
}

// CreateSessionRequest holds parameters for creating a session.
type CreateSessionRequest struct {
	SectionID string   `json:"sectionId"`
	Title     string   `json:"title,omitempty"`
	Tool      ToolRef  `json:"tool"`
	Command   string   `json:"command,omitempty"`
	Icon      *IconRef `json:"icon,omitempty"`

	// Window is the label of the window the session will render in.
	Window string `json:"window,omitempty"`
}
