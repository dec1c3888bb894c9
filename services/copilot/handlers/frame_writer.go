// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// FrameWriter writes the chat event stream: repeated "data: <json>\n\n"
// records carrying either an incremental {"delta": ...} fragment or the
// terminal response body.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; keepalives may be sent
// from a different goroutine than deltas.
//
// # Assumptions
//
//   - Caller has set the event-stream headers via SetStreamHeaders before
//     the first write.
type FrameWriter interface {
	// WriteDelta writes one incremental text fragment.
	WriteDelta(delta string) error

	// WriteFinal writes the terminal record carrying the complete structured
	// answer. Should be called exactly once, last.
	WriteFinal(body datatypes.ChatResponseBody) error

	// WriteKeepAlive sends a comment line (": ping\n\n") to keep the TCP
	// connection alive during long model invocations. Comments are ignored
	// by stream consumers but reset load balancer idle timers.
	WriteKeepAlive() error
}

// =============================================================================
// Implementation
// =============================================================================

// frameWriter wraps an http.ResponseWriter and flushes after every record
// so fragments reach the client as they are produced.
type frameWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewFrameWriter creates a FrameWriter for the given ResponseWriter.
// Fails when the ResponseWriter does not support http.Flusher.
func NewFrameWriter(w http.ResponseWriter) (FrameWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &frameWriter{writer: w, flusher: flusher}, nil
}

func (w *frameWriter) writeRecord(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.flusher.Flush()
	return nil
}

func (w *frameWriter) WriteDelta(delta string) error {
	return w.writeRecord(datatypes.DeltaFrame{Delta: delta})
}

func (w *frameWriter) WriteFinal(body datatypes.ChatResponseBody) error {
	return w.writeRecord(body)
}

func (w *frameWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetStreamHeaders configures response headers for the event stream:
// text/event-stream content type, caching and buffering disabled. Must be
// called before the first write.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ FrameWriter = (*frameWriter)(nil)
