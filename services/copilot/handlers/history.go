// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/observability"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/store"
)

// HistoryHandler serves GET /jobs/:jobId/ai/conversation.
type HistoryHandler struct {
	turns store.ConversationStore
}

func NewHistoryHandler(turns store.ConversationStore) *HistoryHandler {
	if turns == nil {
		panic("NewHistoryHandler: store must not be nil")
	}
	return &HistoryHandler{turns: turns}
}

// HandleJobConversation returns the persisted turns for a job in insertion
// order. A job with no history yields an empty message list, not a 404.
func (h *HistoryHandler) HandleJobConversation(c *gin.Context) {
	ctx, span := chatTracer.Start(c.Request.Context(), "HandleJobConversation")
	defer span.End()

	jobID := c.Param("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing job id"})
		return
	}

	history, err := h.turns.History(ctx, jobID)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(observability.EndpointHistory, err == nil)
	}
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to load conversation history", "error", err, "jobId", jobID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(observability.EndpointHistory, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	c.JSON(http.StatusOK, history)
}
