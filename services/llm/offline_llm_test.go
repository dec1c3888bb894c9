package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineProvider_EmitsParseableEnvelope(t *testing.T) {
	completion, err := OfflineProvider{}.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "instructions"},
			{Role: RoleUser, Content: "I hear a rattle from the air handler"},
		},
	})
	require.NoError(t, err)

	var envelope struct {
		Answer    string `json:"answer"`
		Citations []struct {
			DocID string `json:"docId"`
		} `json:"citations"`
		FollowUps []string `json:"follow_ups"`
	}
	require.NoError(t, json.Unmarshal([]byte(completion.Content), &envelope))
	assert.NotEmpty(t, envelope.Answer)
	require.Len(t, envelope.Citations, 1)
	assert.Equal(t, "note_demo_1", envelope.Citations[0].DocID)
}

func TestOfflineProvider_AnswersLastUserMessage(t *testing.T) {
	completion, err := OfflineProvider{}.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "rattle"},
			{Role: RoleAssistant, Content: "earlier answer"},
			{Role: RoleUser, Content: "when was the filter changed?"},
		},
	})
	require.NoError(t, err)

	var envelope struct {
		Citations []struct {
			DocID string `json:"docId"`
		} `json:"citations"`
	}
	require.NoError(t, json.Unmarshal([]byte(completion.Content), &envelope))
	require.Len(t, envelope.Citations, 1)
	assert.Equal(t, "note_demo_2", envelope.Citations[0].DocID)
}

func TestOfflineProvider_DefaultAnswerHasFollowUps(t *testing.T) {
	completion, err := OfflineProvider{}.Complete(context.Background(), CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	var envelope struct {
		Answer    string   `json:"answer"`
		Citations []any    `json:"citations"`
		FollowUps []string `json:"follow_ups"`
	}
	require.NoError(t, json.Unmarshal([]byte(completion.Content), &envelope))
	assert.NotEmpty(t, envelope.Answer)
	assert.Empty(t, envelope.Citations)
	assert.Len(t, envelope.FollowUps, 2)
}
