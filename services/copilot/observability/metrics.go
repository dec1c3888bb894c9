// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the copilot service.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/telemetry"
)

const metricsNamespace = "hvac"
const copilotSubsystem = "copilot"

// Endpoint labels.
const (
	EndpointChat       = "chat"
	EndpointChatStream = "chat_stream"
	EndpointHistory    = "history"
)

// Error code labels.
const (
	ErrorCodeValidation = "validation"
	ErrorCodeModel      = "model_error"
	ErrorCodeParse      = "parse_error"
	ErrorCodeInternal   = "internal"
)

// CopilotMetrics holds all Prometheus metrics for chat operations.
type CopilotMetrics struct {
	// RequestsTotal counts chat requests by endpoint and status.
	// Labels: endpoint (chat, chat_stream, history), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code
	ErrorsTotal *prometheus.CounterVec

	// LifecycleEventsTotal counts pipeline lifecycle events by name.
	// Labels: event
	LifecycleEventsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, initialized by InitMetrics().
// Handlers tolerate a nil instance so tests need no registry setup.
var DefaultMetrics *CopilotMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// startup; panics if called twice (duplicate registration).
func InitMetrics() *CopilotMetrics {
	DefaultMetrics = &CopilotMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "requests_total",
				Help:      "Total number of chat requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),

		LifecycleEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "lifecycle_events_total",
				Help:      "Pipeline lifecycle events by name",
			},
			[]string{"event"},
		),
	}
	return DefaultMetrics
}

// RecordRequest records one finished request.
func (m *CopilotMetrics) RecordRequest(endpoint string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordStreamDuration records the duration of one finished stream.
func (m *CopilotMetrics) RecordStreamDuration(endpoint string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(endpoint, status).Observe(seconds)
}

// StreamStarted increments the active stream gauge.
func (m *CopilotMetrics) StreamStarted(endpoint string) {
	m.ActiveStreams.WithLabelValues(endpoint).Inc()
}

// StreamEnded decrements the active stream gauge.
func (m *CopilotMetrics) StreamEnded(endpoint string) {
	m.ActiveStreams.WithLabelValues(endpoint).Dec()
}

// RecordError records one classified error.
func (m *CopilotMetrics) RecordError(endpoint, errorCode string) {
	m.ErrorsTotal.WithLabelValues(endpoint, errorCode).Inc()
}

// =============================================================================
// Telemetry Sink Adapter
// =============================================================================

// MetricsSink counts pipeline lifecycle events. It satisfies telemetry.Sink
// so the answer pipeline stays ignorant of Prometheus.
type MetricsSink struct {
	Metrics *CopilotMetrics
}

func (s MetricsSink) Emit(e telemetry.Event) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.LifecycleEventsTotal.WithLabelValues(e.Name).Inc()
}

var _ telemetry.Sink = MetricsSink{}
