// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/schradermade/hvac-ai-sub000/services/llm"
)

// Inputs carries the caller-supplied material for one prompt. Snapshot must
// be JSON-serializable; EvidenceText is a preformatted block with labeled
// sections. Both come from external boundaries; this package never computes
// them.
type Inputs struct {
	Snapshot     any
	EvidenceText string
	History      []llm.ChatMessage
	UserMessage  string
}

// Build assembles the message sequence for one request. The output order is
// fixed:
//
//  1. system: versioned base instruction
//  2. system: structured context + evidence block
//  3. history, verbatim and in original order
//  4. user: the new message
//
// Build is a pure function: it never fails (an unknown version falls back to
// the baseline, an unserializable snapshot degrades to "{}") and it never
// mutates History.
func Build(version string, in Inputs) []llm.ChatMessage {
	snapshotJSON, err := json.Marshal(in.Snapshot)
	if err != nil || len(snapshotJSON) == 0 || string(snapshotJSON) == "null" {
		snapshotJSON = []byte("{}")
	}

	messages := make([]llm.ChatMessage, 0, len(in.History)+3)
	messages = append(messages, llm.ChatMessage{
		Role:    llm.RoleSystem,
		Content: Instruction(version),
	})
	messages = append(messages, llm.ChatMessage{
		Role: llm.RoleSystem,
		Content: fmt.Sprintf("Structured context:\n%s\n\nEvidence (labeled sections):\n%s",
			snapshotJSON, in.EvidenceText),
	})
	messages = append(messages, in.History...)
	messages = append(messages, llm.ChatMessage{
		Role:    llm.RoleUser,
		Content: in.UserMessage,
	})
	return messages
}
