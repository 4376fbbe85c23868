// Copyright 2026 SourcemapR, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package record defines the enriched chunk, pipeline-stage, and retrieval
// records handed to the persistence layer. The types here are the boundary
// contract: the reconciliation algorithms produce them but do not own any
// store, wire protocol, or dashboard.
package record

import (
	"fmt"
	"io"
	"time"

	gojson "github.com/goccy/go-json"
)

// Chunk is the splitter's view of one chunk. TextStart/TextEnd are offsets
// into the splitter's own plain-text rendering; both are -1 when the
// splitter does not report offsets.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
	TextStart int    `json:"text_start"`
	TextEnd   int    `json:"text_end"`
}

// HasOffsets reports whether the splitter provided text offsets.
func (c Chunk) HasOffsets() bool {
	return c.TextStart >= 0 && c.TextEnd >= c.TextStart
}

// EnrichedChunk is a Chunk plus everything reconciliation derived after the
// fact: the page it falls on, the best-effort markup span, and the neighbor
// anchors used to disambiguate it. Markup spans are advisory; Provenance
// says which cascade tier produced them.
type EnrichedChunk struct {
	Chunk

	PageNumber  int    `json:"page_number"`
	MarkupStart int    `json:"markup_start"`
	MarkupEnd   int    `json:"markup_end"`
	Provenance  string `json:"provenance"`
	PrevAnchor  string `json:"prev_anchor,omitempty"`
	NextAnchor  string `json:"next_anchor,omitempty"`
}

// StageType names one kind of pipeline processing step.
type StageType string

const (
	StageRetrieval      StageType = "retrieval"
	StageCompression    StageType = "compression"
	StageReranking      StageType = "reranking"
	StageQueryExpansion StageType = "query_expansion"
	StageMerge          StageType = "merge"
)

// TransitionStatus says whether a chunk survived a stage.
type TransitionStatus string

const (
	StatusKept     TransitionStatus = "kept"
	StatusFiltered TransitionStatus = "filtered"
)

// ScoredChunk is a ranked entry in a stage's input or output list.
type ScoredChunk struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// ChunkTransition accounts for one input chunk across a stage. Filtered
// chunks have a nil OutputRank.
type ChunkTransition struct {
	ChunkID     string           `json:"chunk_id"`
	InputRank   int              `json:"input_rank"`
	OutputRank  *int             `json:"output_rank"`
	InputScore  float64          `json:"input_score"`
	OutputScore float64          `json:"output_score,omitempty"`
	Status      TransitionStatus `json:"status"`
}

// StageRecord is one named, ordered step of a pipeline with full
// input/output chunk accounting.
type StageRecord struct {
	StageID     string            `json:"stage_id"`
	PipelineID  string            `json:"pipeline_id"`
	Type        StageType         `json:"type"`
	Ordinal     int               `json:"ordinal"`
	InputCount  int               `json:"input_count"`
	OutputCount int               `json:"output_count"`
	DurationMS  float64           `json:"duration_ms"`
	Transitions []ChunkTransition `json:"transitions"`
}

// Validate checks the stage's accounting invariant: OutputCount must equal
// the number of kept transitions, and kept transitions must carry an output
// rank.
func (s StageRecord) Validate() error {
	kept := 0
	for _, tr := range s.Transitions {
		switch tr.Status {
		case StatusKept:
			if tr.OutputRank == nil {
				return fmt.Errorf("stage %s: kept chunk %s has no output rank", s.StageID, tr.ChunkID)
			}
			kept++
		case StatusFiltered:
			if tr.OutputRank != nil {
				return fmt.Errorf("stage %s: filtered chunk %s has an output rank", s.StageID, tr.ChunkID)
			}
		default:
			return fmt.Errorf("stage %s: chunk %s has unknown status %q", s.StageID, tr.ChunkID, tr.Status)
		}
	}
	if kept != s.OutputCount {
		return fmt.Errorf("stage %s: output_count %d != %d kept transitions", s.StageID, s.OutputCount, kept)
	}
	return nil
}

// PipelineRecord is the terminal aggregate for one query's pipeline. The
// synthetic RetrievalID joins the pipeline view to the ordinary single-shot
// retrieval record for the same query, so both exist without duplication.
type PipelineRecord struct {
	PipelineID  string    `json:"pipeline_id"`
	RetrievalID string    `json:"retrieval_id"`
	Query       string    `json:"query"`
	StageCount  int       `json:"stage_count"`
	DurationMS  float64   `json:"duration_ms"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// WriteJSON encodes a record to the writer as a single JSON document.
func WriteJSON(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReadJSON decodes a record from the reader.
func ReadJSON(r io.Reader, v any) error {
	return gojson.NewDecoder(r).Decode(v)
}
