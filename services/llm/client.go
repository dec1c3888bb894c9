package llm

import "context"

// Message roles used in completion prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged message in a completion prompt.
// Messages are constructed once during prompt assembly and never mutated.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormatJSONObject asks the backend to emit a single JSON object.
const ResponseFormatJSONObject = "json_object"

// CompletionRequest carries everything a backend needs for one completion.
type CompletionRequest struct {
	Model          string        `json:"model"`
	Temperature    float32       `json:"temperature"`
	TopP           *float32      `json:"top_p,omitempty"`
	MaxTokens      *int          `json:"max_tokens,omitempty"`
	ResponseFormat string        `json:"response_format,omitempty"`
	Messages       []ChatMessage `json:"messages"`
}

// TokenUsage contains token consumption statistics for one completion.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelCompletion is the raw, untrusted output of a backend. Content may
// contain prose, code fences, or stray whitespace around the intended JSON
// object; callers must run it through the response parser before showing
// anything to a user.
type ModelCompletion struct {
	Content string      `json:"content"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// ModelProvider defines the standard interface for any completion backend.
// Anything satisfying this single method is a valid backend, which keeps the
// answer pipeline decoupled from vendors and makes test doubles trivial.
type ModelProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*ModelCompletion, error)
}

// DeltaHandler receives incremental text fragments during a streamed
// completion, in arrival order.
type DeltaHandler func(delta string) error

// StreamingModelProvider is an optional capability. Backends that can stream
// tokens implement it in addition to ModelProvider; callers fall back to
// Complete when the type assertion fails.
type StreamingModelProvider interface {
	ModelProvider
	CompleteStream(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (*ModelCompletion, error)
}
