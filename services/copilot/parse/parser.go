// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package parse extracts the structured answer from raw model output.
//
// Model backends are asked for a single JSON object, but real completions
// routinely arrive wrapped in prose, markdown code fences, or stray
// whitespace. Extract locates the object, repairs common JSON defects, and
// validates the contract. An output with no extractable structured answer is
// a hard *ParseError; it must never be shown to a user as if it were real
// content.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
)

// ParseError reports model output with no extractable structured answer.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable model response: %s", e.Reason)
}

// responseWire mirrors ParsedResponse with a pointer Answer so a missing
// field is distinguishable from an empty string.
type responseWire struct {
	Answer    *string              `json:"answer"`
	Citations []datatypes.Citation `json:"citations"`
	FollowUps []string             `json:"follow_ups"`
}

// Extract locates and parses exactly one JSON object from content,
// tolerating surrounding prose and code-fence markers. Returns *ParseError
// when no valid object is found or the object lacks a string answer field.
func Extract(content string) (*datatypes.ParsedResponse, error) {
	candidate, ok := locateObject(content)
	if !ok {
		return nil, &ParseError{Reason: "no JSON object found"}
	}

	var wire responseWire
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		// Model output is frequently almost-JSON (trailing commas, single
		// quotes, unescaped newlines). Let jsonrepair take one shot before
		// giving up.
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return nil, &ParseError{Reason: "invalid JSON object"}
		}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return nil, &ParseError{Reason: "invalid JSON object"}
		}
	}

	if wire.Answer == nil {
		return nil, &ParseError{Reason: "missing string answer field"}
	}

	parsed := &datatypes.ParsedResponse{
		Answer:    *wire.Answer,
		Citations: wire.Citations,
		FollowUps: wire.FollowUps,
	}
	parsed.Normalize()
	return parsed, nil
}

// locateObject returns the substring from the first '{' through the last
// '}' of content, with code-fence markers stripped first. Reports false when
// no brace pair exists.
func locateObject(content string) (string, bool) {
	cleaned := content
	if strings.Contains(cleaned, "```") {
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return cleaned[start : end+1], true
}
