// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assist

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrStreamIncomplete is returned by Finish when a stream ends without a
// terminal record. Callers treat the exchange as failed: partial deltas
// must not be presented as a finished answer.
var ErrStreamIncomplete = errors.New("stream ended without a terminal record")

// FrameKind classifies one decoded record.
type FrameKind int

const (
	// FrameDelta carries an incremental answer fragment.
	FrameDelta FrameKind = iota

	// FrameTerminal carries the finalized ChatPayload.
	FrameTerminal

	// FrameSkip marks a record the decoder intentionally ignored: a
	// keepalive comment, an empty record, or anything after the
	// terminal.
	FrameSkip

	// FrameUnparseable marks a record whose data payload was not valid
	// JSON. Callers discard these; a glitched record never kills a
	// live stream.
	FrameUnparseable
)

// Frame is one decoded record from the wire.
type Frame struct {
	Kind     FrameKind
	Delta    string
	Terminal *ChatPayload
}

// recordWire classifies a record's payload. Pointers distinguish a
// present key from an absent one: a delta key marks a fragment, an
// answer key marks the terminal, even when either value is the empty
// string.
type recordWire struct {
	Delta  *string `json:"delta"`
	Answer *string `json:"answer"`
}

// FrameDecoder incrementally decodes the copilot stream format: records
// of the form "data: <json>\n\n", where network chunk boundaries fall
// anywhere, including mid-record. Feed it raw chunks as they arrive and
// call Finish at end of stream.
//
// A decoder is single-use and not safe for concurrent use.
type FrameDecoder struct {
	pending  bytes.Buffer
	terminal *ChatPayload
}

// NewFrameDecoder returns a decoder with empty buffer state.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a network chunk and returns the frames completed by it,
// in arrival order. Bytes after the last complete record stay buffered
// for the next call. Feed never fails: malformed records come back as
// FrameUnparseable rather than as an error.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	d.pending.Write(chunk)

	var frames []Frame
	for {
		raw := d.pending.Bytes()
		idx := bytes.Index(raw, []byte("\n\n"))
		if idx < 0 {
			return frames
		}
		record := string(raw[:idx])
		d.pending.Next(idx + 2)
		frames = append(frames, d.decodeRecord(record))
	}
}

// decodeRecord classifies one complete record.
func (d *FrameDecoder) decodeRecord(record string) Frame {
	payload := extractData(record)
	if payload == "" {
		return Frame{Kind: FrameSkip}
	}

	// Records after the terminal are ignored. The first terminal is
	// authoritative.
	if d.terminal != nil {
		return Frame{Kind: FrameSkip}
	}

	var wire recordWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Frame{Kind: FrameUnparseable}
	}
	if wire.Delta != nil {
		return Frame{Kind: FrameDelta, Delta: *wire.Delta}
	}
	if wire.Answer == nil {
		// JSON, but neither a delta nor a terminal.
		return Frame{Kind: FrameSkip}
	}

	var final ChatPayload
	if err := json.Unmarshal([]byte(payload), &final); err != nil {
		return Frame{Kind: FrameUnparseable}
	}
	d.terminal = &final
	return Frame{Kind: FrameTerminal, Terminal: &final}
}

// extractData pulls the JSON payload out of a record's data line.
// Comment lines (": ping" keepalives) and bare records yield "".
func extractData(record string) string {
	for _, line := range strings.Split(record, "\n") {
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
		if strings.HasPrefix(line, "data:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return ""
}

// Terminal returns the finalized payload, or nil if none has arrived.
func (d *FrameDecoder) Terminal() *ChatPayload {
	return d.terminal
}

// Finish validates end-of-stream. It returns the terminal payload, or
// ErrStreamIncomplete when the stream closed without one.
func (d *FrameDecoder) Finish() (*ChatPayload, error) {
	if d.terminal == nil {
		return nil, ErrStreamIncomplete
	}
	return d.terminal, nil
}
