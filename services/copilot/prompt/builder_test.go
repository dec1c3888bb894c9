// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

// =============================================================================
// Build Tests
// =============================================================================

func TestBuild_MessageOrder(t *testing.T) {
	history := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "earlier question"},
		{Role: llm.RoleAssistant, Content: "earlier answer"},
	}
	messages := Build(BaselineVersion, Inputs{
		Snapshot:     map[string]string{"unit": "RTU-4"},
		EvidenceText: "[note_1] blower wheel loose",
		History:      history,
		UserMessage:  "what was wrong with the blower?",
	})

	require.Len(t, messages, 5)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, Instruction(BaselineVersion), messages[0].Content)

	assert.Equal(t, llm.RoleSystem, messages[1].Role)
	assert.Contains(t, messages[1].Content, "Structured context:")
	assert.Contains(t, messages[1].Content, `"unit":"RTU-4"`)
	assert.Contains(t, messages[1].Content, "Evidence (labeled sections):")
	assert.Contains(t, messages[1].Content, "[note_1] blower wheel loose")

	assert.Equal(t, history[0], messages[2])
	assert.Equal(t, history[1], messages[3])

	assert.Equal(t, llm.RoleUser, messages[4].Role)
	assert.Equal(t, "what was wrong with the blower?", messages[4].Content)
}

func TestBuild_EmptyHistory(t *testing.T) {
	messages := Build(BaselineVersion, Inputs{
		Snapshot:    map[string]string{},
		UserMessage: "hello",
	})

	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleSystem, messages[1].Role)
	assert.Equal(t, llm.RoleUser, messages[2].Role)
}

func TestBuild_DoesNotMutateHistory(t *testing.T) {
	history := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "original"},
	}
	_ = Build(BaselineVersion, Inputs{History: history, UserMessage: "q"})

	assert.Equal(t, "original", history[0].Content)
	assert.Len(t, history, 1)
}

func TestBuild_NilSnapshotDegradesToEmptyObject(t *testing.T) {
	messages := Build(BaselineVersion, Inputs{UserMessage: "q"})

	assert.Contains(t, messages[1].Content, "Structured context:\n{}")
}

func TestBuild_UnserializableSnapshotDegradesToEmptyObject(t *testing.T) {
	messages := Build(BaselineVersion, Inputs{
		Snapshot:    make(chan int), // json.Marshal cannot encode this
		UserMessage: "q",
	})

	assert.Contains(t, messages[1].Content, "Structured context:\n{}")
}

// =============================================================================
// Instruction Registry Tests
// =============================================================================

func TestInstruction_UnknownVersionFallsBack(t *testing.T) {
	assert.Equal(t, Instruction(BaselineVersion), Instruction("v999"))
}

func TestInstruction_KnownVersionsDiffer(t *testing.T) {
	assert.NotEqual(t, Instruction("v1"), Instruction("v2"))
}

func TestVersions_IncludesBaseline(t *testing.T) {
	assert.Contains(t, Versions(), BaselineVersion)
}
