package llm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/schradermade/hvac-ai-sub000/pkg/assist"
)

// OfflineProvider serves canned completions when no model backend is
// configured. It reuses the client's offline responder so demo answers
// match whether they come from a server with no model or from a client
// with no server. The response is the same JSON envelope a real model
// is instructed to emit, so the rest of the pipeline runs unchanged.
type OfflineProvider struct{}

// Complete implements the ModelProvider interface.
func (OfflineProvider) Complete(ctx context.Context, req CompletionRequest) (*ModelCompletion, error) {
	var question string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			question = req.Messages[i].Content
			break
		}
	}
	payload := assist.RespondOffline(question)
	content, err := json.Marshal(struct {
		Answer    string              `json:"answer"`
		Citations []assist.SourceInfo `json:"citations"`
		FollowUps []string            `json:"follow_ups"`
	}{
		Answer:    payload.Answer,
		Citations: payload.Citations,
		FollowUps: payload.FollowUps,
	})
	if err != nil {
		return nil, &InvocationError{Backend: "offline", Err: err}
	}
	slog.Debug("Serving offline completion", "bytes", len(content))
	return &ModelCompletion{Content: string(content)}, nil
}

var _ ModelProvider = OfflineProvider{}
