// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assist

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// FrameDecoder Tests
// =============================================================================

const sampleStream = `data: {"delta": "Tighten "}

data: {"delta": "the set "}

data: {"delta": "screw."}

data: {"conversation_id": "conv_1", "answer": "Tighten the set screw.", "citations": [{"docId": "note_1"}]}

`

func collectDeltas(frames []Frame) []string {
	var out []string
	for _, f := range frames {
		if f.Kind == FrameDelta {
			out = append(out, f.Delta)
		}
	}
	return out
}

func TestFrameDecoder_SingleChunk(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte(sampleStream))

	deltas := collectDeltas(frames)
	if got := strings.Join(deltas, ""); got != "Tighten the set screw." {
		t.Errorf("concatenated deltas = %q, want the full answer", got)
	}

	final, err := d.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if final.Answer != "Tighten the set screw." {
		t.Errorf("terminal answer = %q", final.Answer)
	}
	if final.ConversationID != "conv_1" {
		t.Errorf("conversation id = %q, want conv_1", final.ConversationID)
	}
	if len(final.Citations) != 1 || final.Citations[0].DocID != "note_1" {
		t.Errorf("citations = %+v", final.Citations)
	}
}

func TestFrameDecoder_ArbitraryChunkBoundaries(t *testing.T) {
	// Feeding one byte at a time exercises every possible split point,
	// including mid-record and mid-separator.
	d := NewFrameDecoder()
	var deltas []string
	for i := 0; i < len(sampleStream); i++ {
		for _, f := range d.Feed([]byte{sampleStream[i]}) {
			if f.Kind == FrameDelta {
				deltas = append(deltas, f.Delta)
			}
		}
	}

	if got := strings.Join(deltas, ""); got != "Tighten the set screw." {
		t.Errorf("concatenated deltas = %q", got)
	}
	if _, err := d.Finish(); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
}

func TestFrameDecoder_MalformedRecordDoesNotAbortStream(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte("data: {broken json\n\ndata: {\"delta\": \"ok\"}\n\n"))

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Kind != FrameUnparseable {
		t.Errorf("malformed record should decode as unparseable, got kind %d", frames[0].Kind)
	}
	if frames[1].Kind != FrameDelta || frames[1].Delta != "ok" {
		t.Errorf("delta after malformed record lost: %+v", frames[1])
	}
}

func TestFrameDecoder_KeepAliveCommentSkipped(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte(": ping\n\ndata: {\"delta\": \"x\"}\n\n"))

	if frames[0].Kind != FrameSkip {
		t.Errorf("keepalive comment should decode as skip, got %d", frames[0].Kind)
	}
	if frames[1].Kind != FrameDelta {
		t.Errorf("delta after keepalive lost: %+v", frames[1])
	}
}

func TestFrameDecoder_EmptyAnswerIsTerminal(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte("data: {\"answer\":\"\"}\n\n"))

	if len(frames) != 1 || frames[0].Kind != FrameTerminal {
		t.Fatalf("frames = %+v, want one terminal", frames)
	}
	payload, err := d.Finish()
	if err != nil {
		t.Fatalf("empty-answer terminal must complete the stream: %v", err)
	}
	if payload.Answer != "" {
		t.Errorf("answer = %q, want empty", payload.Answer)
	}
}

func TestFrameDecoder_ObjectWithoutAnswerOrDeltaSkipped(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte("data: {\"unrelated\": true}\n\n"))

	if len(frames) != 1 || frames[0].Kind != FrameSkip {
		t.Fatalf("frames = %+v, want one skip", frames)
	}
	if _, err := d.Finish(); err == nil {
		t.Error("a skipped object must not count as the terminal")
	}
}

func TestFrameDecoder_NoTerminalIsIncomplete(t *testing.T) {
	d := NewFrameDecoder()
	d.Feed([]byte("data: {\"delta\": \"partial \"}\n\ndata: {\"delta\": \"answer\"}\n\n"))

	_, err := d.Finish()
	if !errors.Is(err, ErrStreamIncomplete) {
		t.Fatalf("Finish error = %v, want ErrStreamIncomplete", err)
	}
}

func TestFrameDecoder_FirstTerminalWins(t *testing.T) {
	d := NewFrameDecoder()
	stream := `data: {"answer": "first", "citations": []}

data: {"answer": "second", "citations": []}

data: {"delta": "late"}

`
	frames := d.Feed([]byte(stream))
	terminals := 0
	for _, f := range frames {
		if f.Kind == FrameTerminal {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("terminal frames = %d, want 1", terminals)
	}

	final, err := d.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if final.Answer != "first" {
		t.Errorf("terminal answer = %q, want the first terminal", final.Answer)
	}
}

func TestFrameDecoder_EmptyStreamIsIncomplete(t *testing.T) {
	d := NewFrameDecoder()
	if _, err := d.Finish(); !errors.Is(err, ErrStreamIncomplete) {
		t.Fatalf("Finish on empty stream = %v, want ErrStreamIncomplete", err)
	}
}

func TestFrameDecoder_TrailingPartialRecordIgnored(t *testing.T) {
	d := NewFrameDecoder()
	frames := d.Feed([]byte(`data: {"delta": "x"}` + "\n\n" + `data: {"answer": "trunca`))

	deltas := collectDeltas(frames)
	if len(deltas) != 1 {
		t.Fatalf("deltas = %v", deltas)
	}
	if _, err := d.Finish(); !errors.Is(err, ErrStreamIncomplete) {
		t.Fatalf("truncated terminal must leave the stream incomplete, got %v", err)
	}
}
