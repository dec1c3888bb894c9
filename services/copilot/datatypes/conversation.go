// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"log/slog"
	"time"
)

// =============================================================================
// Persisted Conversation Turns
// =============================================================================

// Turn is one persisted conversation turn. Assistant turns may embed a
// serialized citation array in MetadataJSON; absence or malformed JSON is
// treated as "no citations", never as a load failure.
type Turn struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	MetadataJSON string    `json:"metadata_json,omitempty"`
}

// turnMetadata is the shape embedded in an assistant turn's MetadataJSON.
type turnMetadata struct {
	Citations []Citation `json:"citations"`
}

// EncodeTurnMetadata serializes citations for storage on an assistant turn.
// Returns "" when there is nothing worth embedding.
func EncodeTurnMetadata(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	data, err := json.Marshal(turnMetadata{Citations: citations})
	if err != nil {
		slog.Warn("Failed to encode turn metadata, persisting turn without citations", "error", err)
		return ""
	}
	return string(data)
}

// DecodeTurnCitations extracts the embedded citation array from a turn's
// metadata. Malformed or absent metadata yields an empty slice.
func DecodeTurnCitations(metadataJSON string) []Citation {
	if metadataJSON == "" {
		return []Citation{}
	}
	var meta turnMetadata
	if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
		slog.Debug("Ignoring malformed turn metadata", "error", err)
		return []Citation{}
	}
	if meta.Citations == nil {
		return []Citation{}
	}
	return meta.Citations
}

// HistoryResponse is the body of GET /jobs/:jobId/ai/conversation.
// Messages are in chronological order.
type HistoryResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Messages       []Turn `json:"messages"`
}
