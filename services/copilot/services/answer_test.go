// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/parse"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/telemetry"
	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

// =============================================================================
// Test Doubles
// =============================================================================

// mockProvider returns a fixed completion or error.
type mockProvider struct {
	content string
	err     error
	gotReq  llm.CompletionRequest
}

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.ModelCompletion, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ModelCompletion{
		Content: m.content,
		Usage:   &llm.TokenUsage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

// mockStreamingProvider streams the content in fixed chunks.
type mockStreamingProvider struct {
	mockProvider
	chunks []string
}

func (m *mockStreamingProvider) CompleteStream(_ context.Context, req llm.CompletionRequest,
	onDelta llm.DeltaHandler) (*llm.ModelCompletion, error) {

	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	var full strings.Builder
	for _, chunk := range m.chunks {
		if err := onDelta(chunk); err != nil {
			return nil, err
		}
		full.WriteString(chunk)
	}
	return &llm.ModelCompletion{Content: full.String()}, nil
}

// recordingSink captures emitted events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (s *recordingSink) Emit(e telemetry.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Name
	}
	return out
}

func newRequest(t *testing.T, input string) *datatypes.CopilotRequest {
	t.Helper()
	req := &datatypes.CopilotRequest{UserInput: input}
	req.EnsureDefaults()
	require.NoError(t, req.Validate())
	return req
}

const goodCompletion = `{"answer": "Tighten the blower set screw.", "citations": [{"docId": "note_1"}], "follow_ups": []}`

// =============================================================================
// Answer Tests
// =============================================================================

func TestAnswer_Success_EventOrder(t *testing.T) {
	sink := &recordingSink{}
	svc := NewAnswerService(&mockProvider{content: goodCompletion}, sink)

	parsed, err := svc.Answer(context.Background(), newRequest(t, "why is it rattling?"))
	require.NoError(t, err)
	assert.Equal(t, "Tighten the blower set screw.", parsed.Answer)

	assert.Equal(t, []string{
		telemetry.EventRequestStarted,
		telemetry.EventModelCompleted,
		telemetry.EventResponseParsed,
		telemetry.EventRequestCompleted,
	}, sink.names())
}

func TestAnswer_ModelFailure_EmitsRequestFailed(t *testing.T) {
	sink := &recordingSink{}
	invErr := &llm.InvocationError{Backend: "test", Err: errors.New("connection refused")}
	svc := NewAnswerService(&mockProvider{err: invErr}, sink)

	_, err := svc.Answer(context.Background(), newRequest(t, "q"))
	require.Error(t, err)

	var gotInv *llm.InvocationError
	assert.True(t, errors.As(err, &gotInv), "original error must be re-raised")

	assert.Equal(t, []string{
		telemetry.EventRequestStarted,
		telemetry.EventRequestFailed,
	}, sink.names())
}

func TestAnswer_ParseFailure_EmitsRequestFailed(t *testing.T) {
	sink := &recordingSink{}
	svc := NewAnswerService(&mockProvider{content: "no structure here"}, sink)

	_, err := svc.Answer(context.Background(), newRequest(t, "q"))
	require.Error(t, err)

	var parseErr *parse.ParseError
	assert.True(t, errors.As(err, &parseErr))

	names := sink.names()
	assert.Equal(t, []string{
		telemetry.EventRequestStarted,
		telemetry.EventModelCompleted,
		telemetry.EventRequestFailed,
	}, names)
}

func TestAnswer_ExactlyOneTerminalEvent(t *testing.T) {
	cases := []struct {
		name     string
		provider llm.ModelProvider
	}{
		{"success", &mockProvider{content: goodCompletion}},
		{"model error", &mockProvider{err: errors.New("boom")}},
		{"parse error", &mockProvider{content: "prose only"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := NewAnswerService(tc.provider, sink)
			_, _ = svc.Answer(context.Background(), newRequest(t, "q"))

			terminals := 0
			for _, name := range sink.names() {
				if name == telemetry.EventRequestCompleted || name == telemetry.EventRequestFailed {
					terminals++
				}
			}
			assert.Equal(t, 1, terminals)
		})
	}
}

func TestAnswer_NilSinkIsSafe(t *testing.T) {
	svc := NewAnswerService(&mockProvider{content: goodCompletion}, nil)
	parsed, err := svc.Answer(context.Background(), newRequest(t, "q"))
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.Answer)
}

func TestNewAnswerService_NilProviderPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewAnswerService(nil, telemetry.NopSink{})
	})
}

// =============================================================================
// AnswerStream Tests
// =============================================================================

func TestAnswerStream_DeltasConcatenateToAnswer(t *testing.T) {
	provider := &mockStreamingProvider{
		chunks: []string{`{"answer": "Tighten `, `the set screw.", `, `"citations": []}`},
	}
	svc := NewAnswerService(provider, &recordingSink{})

	var streamed strings.Builder
	parsed, err := svc.AnswerStream(context.Background(), newRequest(t, "q"), func(delta string) error {
		streamed.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, parsed.Answer, streamed.String())
}

func TestAnswerStream_NeverLeaksEnvelopeFragments(t *testing.T) {
	provider := &mockStreamingProvider{
		chunks: []string{`{"answer": "plain text answer"`, `, "citations": []}`},
	}
	svc := NewAnswerService(provider, &recordingSink{})

	var deltas []string
	_, err := svc.AnswerStream(context.Background(), newRequest(t, "q"), func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	for _, d := range deltas {
		assert.NotContains(t, d, `"answer"`, "raw JSON envelope must not reach consumers")
		assert.NotContains(t, d, "{")
	}
}

func TestAnswerStream_NonStreamingProviderReplays(t *testing.T) {
	svc := NewAnswerService(&mockProvider{content: goodCompletion}, &recordingSink{})

	var streamed strings.Builder
	parsed, err := svc.AnswerStream(context.Background(), newRequest(t, "q"), func(delta string) error {
		streamed.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, parsed.Answer, streamed.String())
}

func TestAnswerStream_DeltaHandlerErrorAborts(t *testing.T) {
	svc := NewAnswerService(&mockProvider{content: goodCompletion}, &recordingSink{})

	handlerErr := errors.New("consumer gone")
	_, err := svc.AnswerStream(context.Background(), newRequest(t, "q"), func(string) error {
		return handlerErr
	})
	assert.ErrorIs(t, err, handlerErr)
}
