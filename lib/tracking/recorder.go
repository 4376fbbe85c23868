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

// Package tracking models one retrieval query as an ordered sequence of
// named pipeline stages, each with full input/output chunk accounting, and
// coordinates suppression of duplicate single-shot retrieval logging while
// a pipeline is executing.
package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcemapr/sourcemapr/lib/record"
	"go.uber.org/zap"
)

// Recorder creates pipelines and answers suppression queries for generic
// instrumentation hooks that fire around the same call stack.
type Recorder struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]int // query -> pipelines in flight
}

// NewRecorder returns a Recorder. A nil logger disables logging.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:  logger,
		pending: make(map[string]int),
	}
}

// Pipeline tracks the stages of one query. It is safe for concurrent use,
// though stages of a single query are normally recorded sequentially.
type Pipeline struct {
	rec     *Recorder
	id      string
	query   string
	started time.Time

	mu       sync.Mutex
	stages   []record.StageRecord
	released bool
}

// StartPipeline opens a pipeline for the query and returns a derived
// context marking the current execution as inside it. The caller must call
// Close (or Finish, which closes) on every exit path, typically via defer,
// so that suppression is cleared even when an underlying stage panics or
// returns an error. A pipeline abandoned partway is surfaced as incomplete,
// never retried or rolled back.
func (r *Recorder) StartPipeline(ctx context.Context, query string) (context.Context, *Pipeline) {
	p := &Pipeline{
		rec:     r,
		id:      uuid.NewString(),
		query:   query,
		started: time.Now(),
	}

	r.mu.Lock()
	r.pending[query]++
	r.mu.Unlock()

	r.logger.Debug("Pipeline started",
		zap.String("pipeline_id", p.id),
		zap.String("query", query))

	return withPipeline(ctx, p.id), p
}

// Suppressed reports whether ordinary single-shot retrieval instrumentation
// for the query should be skipped: either the context is inside a pipeline
// execution, or a pipeline for the same query string is pending completion
// elsewhere.
func (r *Recorder) Suppressed(ctx context.Context, query string) bool {
	if inPipeline(ctx) {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[query] > 0
}

// RecordStage appends one stage with the given inputs and outputs, both in
// rank order, and returns the completed record. Transitions are computed by
// chunk id: every input chunk gets an entry, kept or filtered; chunks that
// appear only in the output (query expansion, merge) are appended as kept
// with input rank 0.
func (p *Pipeline) RecordStage(t record.StageType, inputs, outputs []record.ScoredChunk, d time.Duration) record.StageRecord {
	outRank := make(map[string]int, len(outputs))
	outScore := make(map[string]float64, len(outputs))
	for i, out := range outputs {
		if _, seen := outRank[out.ChunkID]; seen {
			continue
		}
		outRank[out.ChunkID] = i + 1
		outScore[out.ChunkID] = out.Score
	}

	transitions := make([]record.ChunkTransition, 0, len(inputs))
	kept := 0
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		tr := record.ChunkTransition{
			ChunkID:    in.ChunkID,
			InputRank:  i + 1,
			InputScore: in.Score,
			Status:     record.StatusFiltered,
		}
		if rank, ok := outRank[in.ChunkID]; ok {
			tr.OutputRank = &rank
			tr.OutputScore = outScore[in.ChunkID]
			tr.Status = record.StatusKept
			kept++
		}
		transitions = append(transitions, tr)
		seen[in.ChunkID] = true
	}
	for i, out := range outputs {
		if seen[out.ChunkID] {
			continue
		}
		rank := i + 1
		transitions = append(transitions, record.ChunkTransition{
			ChunkID:     out.ChunkID,
			OutputRank:  &rank,
			OutputScore: out.Score,
			Status:      record.StatusKept,
		})
		kept++
		seen[out.ChunkID] = true
	}

	p.mu.Lock()
	stage := record.StageRecord{
		StageID:     uuid.NewString(),
		PipelineID:  p.id,
		Type:        t,
		Ordinal:     len(p.stages) + 1,
		InputCount:  len(inputs),
		OutputCount: kept,
		DurationMS:  float64(d) / float64(time.Millisecond),
		Transitions: transitions,
	}
	p.stages = append(p.stages, stage)
	p.mu.Unlock()

	p.rec.logger.Debug("Pipeline stage recorded",
		zap.String("pipeline_id", p.id),
		zap.String("stage_type", string(t)),
		zap.Int("ordinal", stage.Ordinal),
		zap.Int("input_count", stage.InputCount),
		zap.Int("output_count", stage.OutputCount))

	return stage
}

// ID returns the synthetic pipeline id.
func (p *Pipeline) ID() string {
	return p.id
}

// Stages returns a copy of the stages recorded so far.
func (p *Pipeline) Stages() []record.StageRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]record.StageRecord, len(p.stages))
	copy(out, p.stages)
	return out
}

// Finish closes the pipeline and emits the terminal aggregate record. The
// retrieval id it carries is synthetic, minted to join this pipeline to the
// ordinary retrieval record for the same query.
func (p *Pipeline) Finish() record.PipelineRecord {
	completed := time.Now()
	p.Close()

	p.mu.Lock()
	stageCount := len(p.stages)
	p.mu.Unlock()

	rec := record.PipelineRecord{
		PipelineID:  p.id,
		RetrievalID: uuid.NewString(),
		Query:       p.query,
		StageCount:  stageCount,
		DurationMS:  float64(completed.Sub(p.started)) / float64(time.Millisecond),
		StartedAt:   p.started,
		CompletedAt: completed,
	}

	p.rec.logger.Info("Pipeline finished",
		zap.String("pipeline_id", rec.PipelineID),
		zap.String("retrieval_id", rec.RetrievalID),
		zap.Int("stage_count", rec.StageCount),
		zap.Float64("duration_ms", rec.DurationMS))

	return rec
}

// Close releases the pipeline's suppression claim. Idempotent; safe to
// defer alongside an explicit Finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.mu.Unlock()

	p.rec.mu.Lock()
	if p.rec.pending[p.query] <= 1 {
		delete(p.rec.pending, p.query)
	} else {
		p.rec.pending[p.query]--
	}
	p.rec.mu.Unlock()
}
