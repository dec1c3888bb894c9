package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaProvider_NotConfigured(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaProvider()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOllamaProvider_Complete(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ChatMessage{Role: RoleAssistant, Content: `{"answer": "ok"}`},
			Done:    true,
		})
	}))
	defer server.Close()

	t.Setenv("OLLAMA_BASE_URL", server.URL)
	t.Setenv("COPILOT_MODEL", "test-model")
	provider, err := NewOllamaProvider()
	require.NoError(t, err)

	topP := float32(0.9)
	maxTokens := 256
	completion, err := provider.Complete(context.Background(), CompletionRequest{
		Temperature:    0.2,
		TopP:           &topP,
		MaxTokens:      &maxTokens,
		ResponseFormat: ResponseFormatJSONObject,
		Messages:       []ChatMessage{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "ok"}`, completion.Content)

	assert.Equal(t, "test-model", gotReq.Model, "empty request model falls back to the configured default")
	assert.False(t, gotReq.Stream)
	assert.Equal(t, "json", gotReq.Format)
	assert.InDelta(t, 0.9, gotReq.Options["top_p"], 1e-6)
	assert.EqualValues(t, 256, gotReq.Options["num_predict"])
}

func TestOllamaProvider_HTTPErrorWrapsInvocationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	t.Setenv("OLLAMA_BASE_URL", server.URL)
	t.Setenv("COPILOT_MODEL", "missing")
	provider, err := NewOllamaProvider()
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "q"}},
	})
	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "ollama", invErr.Backend)
}

func TestInvocationError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &InvocationError{Backend: "ollama", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ollama")
}
