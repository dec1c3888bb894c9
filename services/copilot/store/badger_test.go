// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
)

func openTestStore(t *testing.T) ConversationStore {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(s) })
	return s
}

// =============================================================================
// Conversation ID Tests
// =============================================================================

func TestEnsureConversationID_StableAcrossCalls(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureConversationID(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "conv_"))

	second, err := s.EnsureConversationID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureConversationID_DistinctPerJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.EnsureConversationID(ctx, "job-a")
	require.NoError(t, err)
	b, err := s.EnsureConversationID(ctx, "job-b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEnsureConversationID_EmptyJobRejected(t *testing.T) {
	s := openTestStore(t)
	_, err := s.EnsureConversationID(context.Background(), "  ")
	assert.Error(t, err)
}

// =============================================================================
// Append / History Tests
// =============================================================================

func TestAppendAndHistory_ChronologicalOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		err := s.Append(ctx, "job-1", datatypes.Turn{
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: now,
		})
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 5)
	for i, turn := range history.Messages {
		assert.Equal(t, fmt.Sprintf("turn %d", i), turn.Content)
	}
}

func TestHistory_EmptyJobYieldsEmptyList(t *testing.T) {
	s := openTestStore(t)

	history, err := s.History(context.Background(), "job-never-seen")
	require.NoError(t, err)
	assert.NotNil(t, history.Messages)
	assert.Empty(t, history.Messages)
}

func TestAppend_JobsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "job-a", datatypes.Turn{Role: "user", Content: "a"}))
	require.NoError(t, s.Append(ctx, "job-b", datatypes.Turn{Role: "user", Content: "b"}))

	history, err := s.History(ctx, "job-a")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "a", history.Messages[0].Content)
}

func TestAppend_PreservesMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := datatypes.EncodeTurnMetadata([]datatypes.Citation{{DocID: "note_1"}})
	require.NoError(t, s.Append(ctx, "job-1", datatypes.Turn{
		Role:         "assistant",
		Content:      "answer",
		MetadataJSON: meta,
	}))

	history, err := s.History(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)

	citations := datatypes.DecodeTurnCitations(history.Messages[0].MetadataJSON)
	require.Len(t, citations, 1)
	assert.Equal(t, "note_1", citations[0].DocID)
}

func TestHistory_IncludesConversationID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.EnsureConversationID(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "job-1", datatypes.Turn{Role: "user", Content: "q"}))

	history, err := s.History(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, id, history.ConversationID)
}

func TestAppend_EmptyJobRejected(t *testing.T) {
	s := openTestStore(t)
	err := s.Append(context.Background(), "", datatypes.Turn{Role: "user", Content: "q"})
	assert.Error(t, err)
}
