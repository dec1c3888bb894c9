package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider from the environment. The API key is
// read from OPENAI_API_KEY or, failing that, from the container secret path.
// Returns ErrNotConfigured when neither is present so callers can fall back
// to offline mode.
func NewOpenAIProvider() (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("COPILOT_MODEL") // e.g., "gpt-4o"
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from container secrets")
		} else {
			slog.Warn("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, ErrNotConfigured
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("COPILOT_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI provider", "model", model)
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (o *OpenAIProvider) buildRequest(req CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	oaReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.TopP != nil {
		oaReq.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		oaReq.MaxCompletionTokens = *req.MaxTokens
	}
	if req.ResponseFormat == ResponseFormatJSONObject {
		oaReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return oaReq
}

// Complete implements the ModelProvider interface.
func (o *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*ModelCompletion, error) {
	slog.Debug("Generating completion via OpenAI", "model", o.model)
	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(req))
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, &InvocationError{Backend: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return nil, &InvocationError{Backend: "openai", Err: fmt.Errorf("no choices returned")}
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return &ModelCompletion{
		Content: resp.Choices[0].Message.Content,
		Usage: &TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// CompleteStream implements the StreamingModelProvider interface. Deltas are
// handed to onDelta in arrival order; the returned completion carries the
// accumulated text so callers can parse it the same way as a single shot.
func (o *OpenAIProvider) CompleteStream(ctx context.Context, req CompletionRequest,
	onDelta DeltaHandler) (*ModelCompletion, error) {

	oaReq := o.buildRequest(req)
	oaReq.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, oaReq)
	if err != nil {
		slog.Error("OpenAI stream setup failed", "error", err)
		return nil, &InvocationError{Backend: "openai", Err: err}
	}
	defer stream.Close()

	var content strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &InvocationError{Backend: "openai", Err: err}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return nil, err
		}
	}
	return &ModelCompletion{Content: content.String()}, nil
}

var _ StreamingModelProvider = (*OpenAIProvider)(nil)
