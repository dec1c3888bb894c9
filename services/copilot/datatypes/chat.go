// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the copilot service.
//
// This file contains the request types for the job chat endpoint and the
// internal orchestration request. For response and citation types, see
// response.go; for persisted conversation turns, see conversation.go.
package datatypes

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

// =============================================================================
// Constants for Input Limits
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single user message.
	// Byte length, not rune count, to bound memory on hostile payloads.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxHistoryMessages is the maximum number of history messages carried
	// into one orchestration attempt.
	MaxHistoryMessages = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for copilot datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxMessageContentBytes on string fields.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

func generateUUID() string {
	return uuid.New().String()
}

// =============================================================================
// Copilot Configuration
// =============================================================================

// RetrievalMode selects how the external retriever assembled the evidence
// block. This core never runs retrieval itself; the mode is carried only so
// prompt versions can reference it and telemetry can record it.
type RetrievalMode string

const (
	RetrievalVector  RetrievalMode = "vector"
	RetrievalKeyword RetrievalMode = "keyword"
	RetrievalHybrid  RetrievalMode = "hybrid"
)

// ModelConfig selects the backend model and sampling parameters.
type ModelConfig struct {
	Name           string   `json:"name"`
	Temperature    float32  `json:"temperature"`
	TopP           *float32 `json:"top_p,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	ResponseFormat string   `json:"response_format"`
}

// RetrievalConfig describes the retrieval step that produced the evidence
// text supplied with a request.
type RetrievalConfig struct {
	Mode         RetrievalMode `json:"mode"`
	TopK         int           `json:"top_k"`
	FallbackTopK int           `json:"fallback_top_k"`
	HistoryLimit int           `json:"history_limit"`
}

// PromptConfig selects the prompt template version. Unknown versions fall
// back to the registry baseline during prompt assembly.
type PromptConfig struct {
	Version string `json:"version"`
}

// CopilotConfig is the per-request configuration bundle.
type CopilotConfig struct {
	Model     ModelConfig     `json:"model"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Prompt    PromptConfig    `json:"prompt"`
}

// DefaultConfig returns the configuration used when a request carries none.
func DefaultConfig() CopilotConfig {
	return CopilotConfig{
		Model: ModelConfig{
			Name:           "",
			Temperature:    0.2,
			ResponseFormat: llm.ResponseFormatJSONObject,
		},
		Retrieval: RetrievalConfig{
			Mode:         RetrievalHybrid,
			TopK:         6,
			FallbackTopK: 10,
			HistoryLimit: 12,
		},
		Prompt: PromptConfig{Version: ""},
	}
}

// =============================================================================
// Orchestration Request
// =============================================================================

// CopilotRequest is one orchestration attempt: everything needed to build a
// prompt, invoke the model, and parse the answer. Created fresh per user
// turn and discarded after orchestration completes.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this attempt (UUID v4).
//     The telemetry correlation key.
//   - Context: Opaque JSON-serializable structured snapshot of the job,
//     supplied by the external context boundary. Never computed here.
//   - EvidenceText: Preformatted evidence block with labeled sections,
//     supplied by the external retrieval boundary.
//   - History: Prior conversation turns in chronological order. Carried
//     verbatim into the prompt; never mutated.
//   - UserInput: The technician's new question. Limited to 32KB.
//   - Config: Model, retrieval, and prompt-version configuration.
type CopilotRequest struct {
	RequestID    string            `json:"request_id" validate:"required,uuid4"`
	Context      json.RawMessage   `json:"context"`
	EvidenceText string            `json:"evidence_text"`
	History      []llm.ChatMessage `json:"history" validate:"max=100"`
	UserInput    string            `json:"user_input" validate:"required,maxbytes"`
	Config       CopilotConfig     `json:"config"`
}

// Validate validates the CopilotRequest fields via validator tags.
func (r *CopilotRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates the request ID and config when absent so every
// attempt is traceable and runnable.
func (r *CopilotRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.Config == (CopilotConfig{}) {
		r.Config = DefaultConfig()
	}
}

// =============================================================================
// Wire Request
// =============================================================================

// ChatRequestBody is the body of POST /jobs/:jobId/ai/chat.
type ChatRequestBody struct {
	Message        string `json:"message" validate:"required,maxbytes"`
	ConversationID string `json:"conversationId,omitempty"`
	Stream         bool   `json:"stream,omitempty"`
}

// Validate validates the ChatRequestBody fields.
func (r *ChatRequestBody) Validate() error {
	return chatValidate.Struct(r)
}
