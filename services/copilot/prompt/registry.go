// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prompt assembles the ordered message sequence sent to a model
// backend. Templates are versioned in a fixed registry; prompt construction
// is a pure function over the registry and the caller-supplied inputs.
package prompt

import "sort"

// BaselineVersion is the registry version used when a request names an
// unknown one.
const BaselineVersion = "v2"

const instructionV1 = `You are the field-service copilot for HVAC technicians. You answer questions about one specific job using ONLY the structured context and evidence sections provided in this conversation.

Rules:
- Never invent equipment details, readings, or history. If the provided context does not contain the answer, say so plainly.
- Every factual claim must cite the evidence section it came from.
- Keep answers short and practical; the reader is standing in front of the unit.

Respond with a single JSON object and nothing else:
{"answer": "<your answer>", "citations": [{"docId": "<id>", "type": "<note|manual|reading>", "snippet": "<quoted text>"}], "follow_ups": ["<suggested next question>", "..."]}`

const instructionV2 = `You are the field-service copilot for HVAC technicians. You answer questions about one specific job using ONLY the structured context snapshot and the labeled evidence sections provided in this conversation.

Rules:
- Ground every statement in the supplied context or evidence. Never rely on outside knowledge about this job, its client, or its equipment.
- If the answer is not supported by the provided material, say you don't have that information and suggest what the technician could check or record.
- Cite sources: every citation's docId must be the label of an evidence section you actually used, and its snippet must quote that section.
- Offer at most three follow_ups, phrased as questions the technician would plausibly ask next.
- Keep the answer under 120 words. Plain language, no markdown.

Respond with a single JSON object and nothing else, matching exactly:
{"answer": "<your answer>", "citations": [{"docId": "<id>", "date": "<ISO date if known>", "type": "<note|manual|reading|work_order>", "snippet": "<quoted text>", "authorName": "<if known>"}], "follow_ups": ["<question>", "..."]}`

// registry maps version identifiers to base instructions. Entries are
// append-only: published versions are never edited, so answers stay
// reproducible against the version recorded in telemetry.
var registry = map[string]string{
	"v1": instructionV1,
	"v2": instructionV2,
}

// Instruction returns the base instruction for version, falling back to the
// baseline for unknown versions. Never fails.
func Instruction(version string) string {
	if s, ok := registry[version]; ok {
		return s
	}
	return registry[BaselineVersion]
}

// Versions lists registered template versions in sorted order.
func Versions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
