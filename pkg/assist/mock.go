// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assist

import (
	"context"
	"strings"
)

// offlineConversationID marks exchanges that never reached a server.
const offlineConversationID = "conv_offline"

// RespondOffline produces a canned answer without any backend. Rules
// match case-insensitively on the question text; the demo citations line
// up with the server's demo job context so online and offline answers
// point at the same documents.
func RespondOffline(input string) ChatPayload {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "rattle") || strings.Contains(lower, "noise"):
		return ChatPayload{
			ConversationID: offlineConversationID,
			Answer: "A rattling sound from the air handler was reported on a previous " +
				"visit and traced to a loose blower wheel set screw. Check the blower " +
				"assembly first and verify the set screw is torqued against the flat " +
				"of the motor shaft.",
			Citations: []SourceInfo{{
				DocID:      "note_demo_1",
				Date:       "2025-11-02",
				Type:       "visit_note",
				Snippet:    "Customer reports rattling from air handler; tightened blower wheel set screw.",
				AuthorName: "R. Alvarez",
			}},
			FollowUps: []string{
				"What was done on the last visit?",
				"Is the blower motor still under warranty?",
			},
		}

	case strings.Contains(lower, "filter"):
		return ChatPayload{
			ConversationID: offlineConversationID,
			Answer: "The filter was last replaced during the August maintenance visit " +
				"with a MERV 11 pleated filter. If airflow complaints have returned, " +
				"inspect it for early loading before checking the blower.",
			Citations: []SourceInfo{{
				DocID:   "note_demo_2",
				Date:    "2025-08-14",
				Type:    "maintenance_record",
				Snippet: "Replaced return filter with MERV 11 pleated, 20x25x4.",
			}},
			FollowUps: []string{
				"What filter size does this unit take?",
				"When is the next maintenance due?",
			},
		}

	default:
		return ChatPayload{
			ConversationID: offlineConversationID,
			Answer: "I can help with questions about this job: past visit notes, " +
				"equipment history, and maintenance records. Ask about a symptom " +
				"or a component and I'll pull what's on file.",
			Citations: []SourceInfo{},
			FollowUps: []string{
				"What happened on the last visit?",
				"Summarize the equipment history for this job.",
			},
		}
	}
}

// MockTransport serves offline answers through the Transport interface,
// streaming them word by word so the chat surface behaves the same as
// against a live server.
type MockTransport struct{}

// SendMessage returns the offline answer in one shot.
func (MockTransport) SendMessage(ctx context.Context, jobID string, req ChatRequest) (*ChatPayload, error) {
	payload := RespondOffline(req.Message)
	return &payload, nil
}

// StreamMessage replays the offline answer as word fragments, then
// returns the full payload as the terminal record.
func (MockTransport) StreamMessage(ctx context.Context, jobID string, req ChatRequest,
	onDelta func(delta string)) (*ChatPayload, error) {

	payload := RespondOffline(req.Message)
	if onDelta != nil {
		for _, word := range strings.SplitAfter(payload.Answer, " ") {
			if word == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			onDelta(word)
		}
	}
	return &payload, nil
}

// History reports an empty conversation; offline exchanges are not
// persisted.
func (MockTransport) History(ctx context.Context, jobID string) (*History, error) {
	return &History{Messages: []HistoryTurn{}}, nil
}

// Ensure MockTransport implements Transport
var _ Transport = MockTransport{}
