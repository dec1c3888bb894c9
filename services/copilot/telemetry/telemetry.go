// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry defines the lifecycle event stream emitted by the answer
// pipeline. Events are side-effect-only: sinks must never influence the
// pipeline's result or its errors, and a no-op sink is always valid.
package telemetry

import (
	"log/slog"
	"time"
)

// Lifecycle event names, in emission order. Exactly one of
// EventRequestCompleted or EventRequestFailed terminates every request.
const (
	EventRequestStarted   = "request.started"
	EventModelCompleted   = "model.completed"
	EventResponseParsed   = "response.parsed"
	EventRequestCompleted = "request.completed"
	EventRequestFailed    = "request.failed"
)

// Event is one lifecycle record, keyed by the request ID it belongs to.
type Event struct {
	Name      string
	RequestID string
	At        time.Time
	Fields    map[string]any
}

// Sink consumes lifecycle events. Implementations must not block for long
// and must never panic into the pipeline.
type Sink interface {
	Emit(event Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink writes events to the structured log.
type LogSink struct{}

func (LogSink) Emit(e Event) {
	args := []any{"event", e.Name, "request_id", e.RequestID}
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	slog.Info("copilot lifecycle", args...)
}

// Fanout forwards each event to every wrapped sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		s.Emit(e)
	}
}

var (
	_ Sink = NopSink{}
	_ Sink = LogSink{}
	_ Sink = Fanout{}
)
