// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides business logic services for the copilot.
//
// Services encapsulate the orchestration pipeline, separating it from HTTP
// handlers. They are designed to be:
//   - Testable: dependencies are injected via constructors
//   - Traceable: all methods accept context for distributed tracing
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/parse"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/prompt"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/telemetry"
	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

// answerTracer is the OpenTelemetry tracer for AnswerService operations.
var answerTracer = otel.Tracer("hvac.copilot.services.answer")

// AnswerService sequences one orchestration attempt: build prompt, invoke
// the model, parse the response. At each stage it emits an ordered lifecycle
// event keyed by the request ID. On any stage failure it emits exactly one
// request.failed event and re-raises the original error to its caller; it
// never swallows or retries. Telemetry never affects the returned result.
type AnswerService struct {
	provider llm.ModelProvider
	sink     telemetry.Sink
}

// NewAnswerService constructs an AnswerService. Panics on a nil provider
// (programming error); a nil sink is replaced with a no-op.
func NewAnswerService(provider llm.ModelProvider, sink telemetry.Sink) *AnswerService {
	if provider == nil {
		panic("NewAnswerService: provider must not be nil")
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &AnswerService{provider: provider, sink: sink}
}

// Answer runs the pipeline single-shot.
func (s *AnswerService) Answer(ctx context.Context, req *datatypes.CopilotRequest) (*datatypes.ParsedResponse, error) {
	return s.run(ctx, req, func(ctx context.Context, creq llm.CompletionRequest) (*llm.ModelCompletion, error) {
		return s.provider.Complete(ctx, creq)
	})
}

// AnswerStream runs the pipeline with incremental deltas. When the provider
// supports streaming, raw fragments are handed to onDelta in arrival order
// and the accumulated text is parsed at the end; otherwise the completion
// runs single-shot and the parsed answer is replayed through onDelta in
// word-sized fragments so consumers see one uniform contract.
func (s *AnswerService) AnswerStream(ctx context.Context, req *datatypes.CopilotRequest,
	onDelta llm.DeltaHandler) (*datatypes.ParsedResponse, error) {

	parsed, err := s.run(ctx, req, func(ctx context.Context, creq llm.CompletionRequest) (*llm.ModelCompletion, error) {
		if streamer, ok := s.provider.(llm.StreamingModelProvider); ok {
			// A streamed completion is still raw model text; fragments of
			// the JSON envelope must not leak to consumers, so they are
			// accumulated here and only the parsed answer is replayed below.
			return streamer.CompleteStream(ctx, creq, func(string) error { return nil })
		}
		return s.provider.Complete(ctx, creq)
	})
	if err != nil {
		return nil, err
	}
	for _, fragment := range splitForReplay(parsed.Answer) {
		if err := onDelta(fragment); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

// run executes build → invoke → parse with lifecycle telemetry.
func (s *AnswerService) run(ctx context.Context, req *datatypes.CopilotRequest,
	invoke func(context.Context, llm.CompletionRequest) (*llm.ModelCompletion, error)) (*datatypes.ParsedResponse, error) {

	start := time.Now()
	ctx, span := answerTracer.Start(ctx, "AnswerService.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.String("prompt.version", req.Config.Prompt.Version),
		attribute.Int("request.history_len", len(req.History)),
	)

	s.emit(telemetry.EventRequestStarted, req.RequestID, map[string]any{
		"model":          req.Config.Model.Name,
		"prompt_version": req.Config.Prompt.Version,
	})

	messages := prompt.Build(req.Config.Prompt.Version, prompt.Inputs{
		Snapshot:     req.Context,
		EvidenceText: req.EvidenceText,
		History:      req.History,
		UserMessage:  req.UserInput,
	})

	completion, err := invoke(ctx, llm.CompletionRequest{
		Model:          req.Config.Model.Name,
		Temperature:    req.Config.Model.Temperature,
		TopP:           req.Config.Model.TopP,
		MaxTokens:      req.Config.Model.MaxTokens,
		ResponseFormat: req.Config.Model.ResponseFormat,
		Messages:       messages,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model invocation failed")
		slog.Error("Model invocation failed", "error", err, "requestId", req.RequestID)
		s.fail(req.RequestID, err)
		return nil, err
	}
	modelFields := map[string]any{}
	if completion.Usage != nil {
		modelFields["input_tokens"] = completion.Usage.InputTokens
		modelFields["output_tokens"] = completion.Usage.OutputTokens
	}
	s.emit(telemetry.EventModelCompleted, req.RequestID, modelFields)

	parsed, err := parse.Extract(completion.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "response parsing failed")
		slog.Error("Model output had no extractable answer", "error", err, "requestId", req.RequestID)
		s.fail(req.RequestID, err)
		return nil, err
	}
	s.emit(telemetry.EventResponseParsed, req.RequestID, map[string]any{
		"citations":  len(parsed.Citations),
		"follow_ups": len(parsed.FollowUps),
	})

	s.emit(telemetry.EventRequestCompleted, req.RequestID, map[string]any{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return parsed, nil
}

func (s *AnswerService) emit(name, requestID string, fields map[string]any) {
	s.sink.Emit(telemetry.Event{
		Name:      name,
		RequestID: requestID,
		At:        time.Now().UTC(),
		Fields:    fields,
	})
}

func (s *AnswerService) fail(requestID string, err error) {
	s.emit(telemetry.EventRequestFailed, requestID, map[string]any{
		"error": err.Error(),
	})
}

// splitForReplay cuts text after each space so that concatenating the
// fragments reproduces it exactly.
func splitForReplay(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}
