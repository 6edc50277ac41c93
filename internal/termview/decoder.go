// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package termview

import "unicode/utf8"

// StreamDecoder carries incomplete UTF-8 sequences across write
// boundaries. Process output arrives in arbitrary chunks, so a multi-byte
// rune can straddle two events; emitting the split bytes separately would
// render as garbage. The decoder withholds a trailing partial sequence
// until its continuation arrives.
type StreamDecoder struct {
	pending []byte
}

// Write returns the bytes that are safe to render now. A trailing
// incomplete sequence is buffered for the next call. Invalid bytes pass
// through untouched; the terminal deals with them.
func (d *StreamDecoder) Write(p []byte) []byte {
	buf := p
	if len(d.pending) > 0 {
		buf = append(d.pending, p...)
		d.pending = nil
	}

	cut := len(buf)
	for back := 1; back <= utf8.UTFMax && back <= len(buf); back++ {
		b := buf[len(buf)-back]
		if b < 0x80 {
			break
		}
		if b >= 0xC0 {
			if back < leaderLen(b) {
				cut = len(buf) - back
			}
			break
		}
		// Continuation byte, keep scanning back for the leader.
	}

	if cut < len(buf) {
		d.pending = append([]byte(nil), buf[cut:]...)
	}
	return buf[:cut]
}

// Flush returns any withheld bytes as-is. Called on process exit so the
// tail of the stream is not lost.
func (d *StreamDecoder) Flush() []byte {
	out := d.pending
	d.pending = nil
	return out
}

// leaderLen returns the sequence length a UTF-8 leader byte announces.
func leaderLen(b byte) int {
	switch {
	case b >= 0xF0:
		return 4
	case b >= 0xE0:
		return 3
	default:
		return 2
	}
}
