// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Citations and Evidence
// =============================================================================

// Citation is a source reference attached to an answer. Snippet carries the
// quoted text; provenance fields are optional.
type Citation struct {
	DocID       string `json:"docId"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type,omitempty"`
	Snippet     string `json:"snippet"`
	AuthorName  string `json:"authorName,omitempty"`
	AuthorEmail string `json:"authorEmail,omitempty"`
}

// Evidence is the richer sibling of Citation produced by the retrieval
// boundary. When both are present on a response, evidence takes precedence
// for display because it is the richer record.
type Evidence struct {
	DocID       string `json:"docId"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type,omitempty"`
	Text        string `json:"text"`
	AuthorName  string `json:"authorName,omitempty"`
	AuthorEmail string `json:"authorEmail,omitempty"`
}

// =============================================================================
// Parsed Response
// =============================================================================

// ParsedResponse is the only trusted shape after parsing raw model output.
//
// Invariant: Answer is always a string (possibly empty), Citations and
// FollowUps are always non-nil slices (possibly empty). Normalize enforces
// the slice half of the invariant after unmarshaling.
type ParsedResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	FollowUps []string   `json:"follow_ups"`
}

// Normalize replaces nil slices with empty ones so downstream consumers
// never see null citations or follow-ups.
func (p *ParsedResponse) Normalize() {
	if p.Citations == nil {
		p.Citations = []Citation{}
	}
	if p.FollowUps == nil {
		p.FollowUps = []string{}
	}
}

// =============================================================================
// Wire Response
// =============================================================================

// ChatResponseBody is the success body of POST /jobs/:jobId/ai/chat. In
// streaming mode the same shape is the terminal record of the event stream;
// preceding records carry only {"delta": "..."} fragments.
type ChatResponseBody struct {
	ConversationID string     `json:"conversation_id,omitempty"`
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	FollowUps      []string   `json:"follow_ups,omitempty"`
	Evidence       []Evidence `json:"evidence,omitempty"`
}

// DeltaFrame is one incremental streaming record.
type DeltaFrame struct {
	Delta string `json:"delta"`
}
