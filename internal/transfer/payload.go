// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transfer

import "encoding/json"

// Marker identifies drag payloads originating from this application.
// Drags without it (files, text, payloads from other programs) are ignored.
const Marker = "application/x-deckhand-session"

// Payload is the record carried by a cross-window session drag.
type Payload struct {
	Marker         string `json:"marker"`
	SessionID      string `json:"sessionId"`
	SourceWindowID string `json:"sourceWindowId"`
}

// EncodePayload builds the wire form of a session drag.
func EncodePayload(sessionID, sourceWindowID string) []byte {
	data, _ := json.Marshal(Payload{
		Marker:         Marker,
		SessionID:      sessionID,
		SourceWindowID: sourceWindowID,
	})
	return data
}

// DecodePayload parses drag data. It reports false for malformed data,
// foreign drags, and payloads missing a session id; callers ignore those
// silently.
func DecodePayload(data []byte) (Payload, bool) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, false
	}
	if p.Marker != Marker || p.SessionID == "" {
		return Payload{}, false
	}
	return p, true
}
