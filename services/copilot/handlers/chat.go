// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers provides the HTTP layer of the copilot service: the job
// chat endpoint (single-shot and streaming), the conversation history
// endpoint, and the event-stream frame writer.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/middleware"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/observability"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/services"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/store"
	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

var chatTracer = otel.Tracer("hvac.copilot.handlers")

// keepAliveInterval paces comment pings during long model invocations.
const keepAliveInterval = 15 * time.Second

// ChatHandler serves POST /jobs/:jobId/ai/chat in both modes.
type ChatHandler struct {
	service *services.AnswerService
	turns   store.ConversationStore
	source  ContextSource
}

// NewChatHandler constructs a ChatHandler. Panics on nil dependencies
// (programming error); a nil source falls back to the static demo boundary.
func NewChatHandler(service *services.AnswerService, turns store.ConversationStore, source ContextSource) *ChatHandler {
	if service == nil {
		panic("NewChatHandler: service must not be nil")
	}
	if turns == nil {
		panic("NewChatHandler: store must not be nil")
	}
	if source == nil {
		source = StaticContextSource{}
	}
	return &ChatHandler{service: service, turns: turns, source: source}
}

// HandleJobChat answers one technician question about a job. The request
// body selects streaming or single-shot mode.
func (h *ChatHandler) HandleJobChat(c *gin.Context) {
	ctx, span := chatTracer.Start(c.Request.Context(), "HandleJobChat")
	defer span.End()

	jobID := c.Param("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing job id"})
		return
	}
	span.SetAttributes(attribute.String("job.id", jobID))

	var body datatypes.ChatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to parse chat request", "error", err, "jobId", jobID)
		h.recordError(body.Stream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := body.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("Chat request validation failed", "error", err, "jobId", jobID)
		h.recordError(body.Stream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
		return
	}

	if auth := middleware.GetAuthInfo(c); auth != nil {
		span.SetAttributes(attribute.String("user.id", auth.UserID))
	}

	req, convID, jobCtx, err := h.prepare(ctx, jobID, &body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request preparation failed")
		slog.Error("Failed to prepare chat request", "error", err, "jobId", jobID)
		h.recordError(body.Stream, observability.ErrorCodeInternal)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare request"})
		return
	}
	span.SetAttributes(attribute.String("request.id", req.RequestID))

	if body.Stream {
		h.handleStream(ctx, c, jobID, convID, req, jobCtx)
		return
	}
	h.handleSingleShot(ctx, c, jobID, convID, req, jobCtx)
}

// prepare assembles the orchestration request for one turn: conversation
// identity, persisted history (bounded by the configured limit), and the
// job context from the retrieval boundary.
func (h *ChatHandler) prepare(ctx context.Context, jobID string,
	body *datatypes.ChatRequestBody) (*datatypes.CopilotRequest, string, *JobContext, error) {

	convID := body.ConversationID
	if convID == "" {
		id, err := h.turns.EnsureConversationID(ctx, jobID)
		if err != nil {
			return nil, "", nil, err
		}
		convID = id
	}

	history, err := h.turns.History(ctx, jobID)
	if err != nil {
		return nil, "", nil, err
	}

	jobCtx, err := h.source.JobContext(ctx, jobID)
	if err != nil {
		return nil, "", nil, err
	}

	req := &datatypes.CopilotRequest{
		Context:      jobCtx.Snapshot,
		EvidenceText: jobCtx.EvidenceText,
		UserInput:    body.Message,
	}
	req.EnsureDefaults()

	limit := req.Config.Retrieval.HistoryLimit
	turns := history.Messages
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	for _, t := range turns {
		req.History = append(req.History, llm.ChatMessage{Role: t.Role, Content: t.Content})
	}

	if err := req.Validate(); err != nil {
		return nil, "", nil, err
	}
	return req, convID, jobCtx, nil
}

func (h *ChatHandler) handleSingleShot(ctx context.Context, c *gin.Context, jobID, convID string,
	req *datatypes.CopilotRequest, jobCtx *JobContext) {

	start := time.Now()
	parsed, err := h.service.Answer(ctx, req)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(observability.EndpointChat, err == nil)
	}
	if err != nil {
		slog.Error("Chat orchestration failed", "error", err, "jobId", jobID, "requestId", req.RequestID)
		h.recordError(false, observability.ErrorCodeModel)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.persistTurn(ctx, jobID, req.UserInput, parsed)
	slog.Info("Chat turn completed",
		"jobId", jobID,
		"requestId", req.RequestID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	c.JSON(http.StatusOK, datatypes.ChatResponseBody{
		ConversationID: convID,
		Answer:         parsed.Answer,
		Citations:      parsed.Citations,
		FollowUps:      parsed.FollowUps,
		Evidence:       jobCtx.Evidence,
	})
}

func (h *ChatHandler) handleStream(ctx context.Context, c *gin.Context, jobID, convID string,
	req *datatypes.CopilotRequest, jobCtx *JobContext) {

	start := time.Now()
	endpoint := observability.EndpointChatStream
	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}
	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, success)
			m.RecordStreamDuration(endpoint, time.Since(start).Seconds(), success)
		}
	}()

	SetStreamHeaders(c.Writer)
	writer, err := NewFrameWriter(c.Writer)
	if err != nil {
		slog.Error("Failed to create frame writer", "error", err, "requestId", req.RequestID)
		h.recordError(true, observability.ErrorCodeInternal)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// Keepalive pings until the pipeline finishes. The frame writer is
	// mutex-guarded, so pings never interleave with a record.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = writer.WriteKeepAlive()
			case <-done:
				return
			}
		}
	}()

	parsed, err := h.service.AnswerStream(ctx, req, func(delta string) error {
		return writer.WriteDelta(delta)
	})
	close(done)
	if err != nil {
		// No terminal record: the client's decoder reports the stream as
		// incomplete, which is the contract for mid-stream failure.
		slog.Error("Streaming chat failed", "error", err, "jobId", jobID, "requestId", req.RequestID)
		h.recordError(true, observability.ErrorCodeModel)
		return
	}

	h.persistTurn(ctx, jobID, req.UserInput, parsed)
	if err := writer.WriteFinal(datatypes.ChatResponseBody{
		ConversationID: convID,
		Answer:         parsed.Answer,
		Citations:      parsed.Citations,
		FollowUps:      parsed.FollowUps,
		Evidence:       jobCtx.Evidence,
	}); err != nil {
		slog.Error("Failed to write terminal record", "error", err, "requestId", req.RequestID)
		return
	}
	success = true
}

// persistTurn appends the finished user/assistant pair. Persistence failures
// are logged and swallowed: losing a history record must not fail a turn
// that already produced an answer.
func (h *ChatHandler) persistTurn(ctx context.Context, jobID, userInput string, parsed *datatypes.ParsedResponse) {
	now := time.Now().UTC()
	if err := h.turns.Append(ctx, jobID, datatypes.Turn{
		Role:      llm.RoleUser,
		Content:   userInput,
		CreatedAt: now,
	}); err != nil {
		slog.Error("Failed to persist user turn", "error", err, "jobId", jobID)
		return
	}
	if err := h.turns.Append(ctx, jobID, datatypes.Turn{
		Role:         llm.RoleAssistant,
		Content:      parsed.Answer,
		CreatedAt:    now,
		MetadataJSON: datatypes.EncodeTurnMetadata(parsed.Citations),
	}); err != nil {
		slog.Error("Failed to persist assistant turn", "error", err, "jobId", jobID)
	}
}

func (h *ChatHandler) recordError(stream bool, code string) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	endpoint := observability.EndpointChat
	if stream {
		endpoint = observability.EndpointChatStream
	}
	m.RecordError(endpoint, code)
}
