// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMatcher_Match(t *testing.T) {
	matcher := NewPatternMatcher()

	tests := []struct {
		name      string
		pattern   string
		eventType string
		matches   bool
	}{
		// Exact matches
		{
			name:      "exact match",
			pattern:   "session.output",
			eventType: "session.output",
			matches:   true,
		},
		{
			name:      "exact no match",
			pattern:   "session.output",
			eventType: "session.exit",
			matches:   false,
		},

		// Wildcard at end (session.*)
		{
			name:      "wildcard end matches output",
			pattern:   "session.*",
			eventType: "session.output",
			matches:   true,
		},
		{
			name:      "wildcard end matches status",
			pattern:   "session.*",
			eventType: "session.status",
			matches:   true,
		},
		{
			name:      "wildcard end no match different prefix",
			pattern:   "session.*",
			eventType: "window.relay",
			matches:   false,
		},

		// Wildcard at start (*.removed)
		{
			name:      "wildcard start matches session",
			pattern:   "*.removed",
			eventType: "session.removed",
			matches:   true,
		},
		{
			name:      "wildcard start matches section",
			pattern:   "*.removed",
			eventType: "section.removed",
			matches:   true,
		},
		{
			name:      "wildcard start no match different suffix",
			pattern:   "*.removed",
			eventType: "session.created",
			matches:   false,
		},

		// Match all
		{
			name:      "match all",
			pattern:   "*",
			eventType: "anything.here",
			matches:   true,
		},

		// Edge cases
		{
			name:      "empty pattern",
			pattern:   "",
			eventType: "session.output",
			matches:   false,
		},
		{
			name:      "empty event type",
			pattern:   "session.*",
			eventType: "",
			matches:   false,
		},
		{
			name:      "wildcard prefix must align on dot",
			pattern:   "session.*",
			eventType: "sessions.output",
			matches:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.Match(tt.eventType, tt.pattern)
			assert.Equal(t, tt.matches, got)
		})
	}
}

func TestPatternMatcher_Compile(t *testing.T) {
	matcher := NewPatternMatcher()

	compiled, err := matcher.Compile("session.*")
	require.NoError(t, err)

	assert.True(t, compiled.Match("session.output"))
	assert.False(t, compiled.Match("window.relay"))
}

func TestPatternMatcher_Compile_Empty(t *testing.T) {
	matcher := NewPatternMatcher()

	_, err := matcher.Compile("")
	assert.Error(t, err)
}
