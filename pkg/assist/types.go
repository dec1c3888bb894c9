// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assist is the client side of the job copilot: the wire decoder
// for streamed answer frames, an HTTP transport, the conversation state
// machine that drives a chat surface, and an offline responder for demo
// and disconnected use.
//
// The package is self-contained: it speaks the copilot wire format with
// its own types so client binaries never link server packages.
package assist

import (
	"encoding/json"
	"time"
)

// Message roles on the client surface.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SourceInfo identifies one document backing an assistant answer. It covers
// both citation records (Snippet) and evidence records (Text); exactly one
// of the two is typically set.
type SourceInfo struct {
	DocID       string `json:"docId"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	Text        string `json:"text,omitempty"`
	AuthorName  string `json:"authorName,omitempty"`
	AuthorEmail string `json:"authorEmail,omitempty"`
}

// Excerpt returns the displayable quoted text of a source, whichever of
// the citation or evidence fields carries it.
func (s SourceInfo) Excerpt() string {
	if s.Snippet != "" {
		return s.Snippet
	}
	return s.Text
}

// ChatPayload is the terminal record of a chat exchange. Citations are
// what the model claimed to use; Evidence is what the server actually
// retrieved, and is preferred for display when present.
type ChatPayload struct {
	ConversationID string       `json:"conversation_id,omitempty"`
	Answer         string       `json:"answer"`
	Citations      []SourceInfo `json:"citations"`
	FollowUps      []string     `json:"follow_ups,omitempty"`
	Evidence       []SourceInfo `json:"evidence,omitempty"`
}

// ChatRequest is the body of a chat POST.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	Stream         bool   `json:"stream,omitempty"`
}

// HistoryTurn is one persisted turn as returned by the conversation
// endpoint.
type HistoryTurn struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	MetadataJSON string    `json:"metadata_json,omitempty"`
}

// History is the conversation endpoint's response.
type History struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Messages       []HistoryTurn `json:"messages"`
}

// turnMetadata mirrors the metadata envelope stored with assistant turns.
type turnMetadata struct {
	Citations []SourceInfo `json:"citations,omitempty"`
}

// decodeTurnSources extracts sources from a turn's metadata JSON.
// Absent or malformed metadata yields nil; a restored conversation must
// never fail because one old record is unreadable.
func decodeTurnSources(metadataJSON string) []SourceInfo {
	if metadataJSON == "" {
		return nil
	}
	var meta turnMetadata
	if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
		return nil
	}
	return meta.Citations
}

// Message is one entry on the chat surface.
type Message struct {
	Role      string
	Content   string
	Sources   []SourceInfo
	IsLoading bool
	CreatedAt time.Time
}
