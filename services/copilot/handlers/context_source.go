// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
)

// JobContext is the retrieval boundary's product for one job: a
// JSON-serializable structured snapshot, a preformatted evidence block with
// labeled sections, and the richer evidence records for display. This
// service consumes them as opaque inputs; it never runs retrieval itself.
type JobContext struct {
	Snapshot     json.RawMessage
	EvidenceText string
	Evidence     []datatypes.Evidence
}

// ContextSource supplies the job context consumed by the prompt builder.
// Implemented by the external retrieval/indexing collaborator.
type ContextSource interface {
	JobContext(ctx context.Context, jobID string) (*JobContext, error)
}

// StaticContextSource returns a canned demo context for every job. It keeps
// development deployments functional before the retrieval service is wired
// in, and gives tests a deterministic boundary.
type StaticContextSource struct{}

func (StaticContextSource) JobContext(ctx context.Context, jobID string) (*JobContext, error) {
	snapshot, _ := json.Marshal(map[string]any{
		"job_id":    jobID,
		"client":    map[string]any{"name": "Demo Client"},
		"equipment": []map[string]any{{"type": "furnace", "model": "XC-90", "installed": "2019-06-12"}},
	})
	return &JobContext{
		Snapshot: snapshot,
		EvidenceText: "[note_demo_1] 2025-11-02 tech note: Customer reports rattling from the blower " +
			"compartment; mounting bolts on the blower motor were found loose on the last visit.\n" +
			"[note_demo_2] 2025-08-14 maintenance record: Filter replaced, MERV 11, next change due in 90 days.",
		Evidence: []datatypes.Evidence{
			{
				DocID:      "note_demo_1",
				Date:       "2025-11-02",
				Type:       "note",
				Text:       "Customer reports rattling from the blower compartment; mounting bolts on the blower motor were found loose on the last visit.",
				AuthorName: "R. Alvarez",
			},
			{
				DocID: "note_demo_2",
				Date:  "2025-08-14",
				Type:  "note",
				Text:  "Filter replaced, MERV 11, next change due in 90 days.",
			},
		},
	}, nil
}

var _ ContextSource = StaticContextSource{}
