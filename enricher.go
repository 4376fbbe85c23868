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

package sourcemapr

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcemapr/sourcemapr/lib/htmlpos"
	"github.com/sourcemapr/sourcemapr/lib/record"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Document is one raw markup document as delivered by the external loader.
type Document struct {
	DocID  string
	Markup string

	// LoaderTextLen is the length of the loader's own plain-text rendering,
	// when known. Used as the length reference for proportional scaling; the
	// mapper's extraction length is the fallback.
	LoaderTextLen int
}

// DocumentChunks pairs a document with its splitter output, in chunk order.
type DocumentChunks struct {
	Doc    Document
	Chunks []record.Chunk
}

// ChunkEnricher resolves page numbers, markup spans, and neighbor anchors
// for splitter chunks. Chunks within one document are enriched sequentially
// so each resolution can hint the next; documents are enriched concurrently
// up to a bounded pool size.
type ChunkEnricher struct {
	mapper   *DocumentMapper
	sem      *semaphore.Weighted
	logger   *zap.Logger
	poolSize int
}

// NewChunkEnricher creates an enricher backed by the given mapper.
// poolSize bounds concurrent document enrichment (0 = CPU count).
func NewChunkEnricher(mapper *DocumentMapper, poolSize int, logger *zap.Logger) *ChunkEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	return &ChunkEnricher{
		mapper:   mapper,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		logger:   logger,
		poolSize: poolSize,
	}
}

// EnrichDocument enriches every chunk of one document. It never fails:
// position resolution always produces a span, with decreasing confidence
// reflected in the Provenance field.
func (e *ChunkEnricher) EnrichDocument(doc Document, chunks []record.Chunk) []record.EnrichedChunk {
	if len(chunks) == 0 {
		return nil
	}

	maps := e.mapper.Maps(doc.DocID, doc.Markup)
	loaderLen := doc.LoaderTextLen
	if loaderLen <= 0 {
		loaderLen = len(maps.Extraction.Text)
	}

	enriched := make([]record.EnrichedChunk, 0, len(chunks))
	searchFrom := 0

	for i, chunk := range chunks {
		prevAnchor := e.anchorBefore(chunks, i)
		nextAnchor := e.anchorAfter(chunks, i)

		req := htmlpos.ResolveRequest{
			Markup:        doc.Markup,
			Extraction:    maps.Extraction,
			TextStart:     chunk.TextStart,
			TextEnd:       chunk.TextEnd,
			LoaderTextLen: loaderLen,
			ChunkText:     chunk.Text,
			PrevText:      prevAnchor,
			NextText:      nextAnchor,
			SearchFrom:    searchFrom,
		}

		page := 1
		if chunk.HasOffsets() {
			page = maps.Pages.PageForScaled(chunk.TextStart, loaderLen)
		} else {
			// Without splitter offsets there is nothing to map or scale
			// against; only the neighbor and ratio tiers apply.
			req.TextStart, req.TextEnd = -1, -1
			req.SkipDirectSearch = true
		}

		res := htmlpos.Resolve(req)
		RecordResolution(string(res.Provenance))

		enriched = append(enriched, record.EnrichedChunk{
			Chunk:       chunk,
			PageNumber:  page,
			MarkupStart: res.Start,
			MarkupEnd:   res.End,
			Provenance:  string(res.Provenance),
			PrevAnchor:  prevAnchor,
			NextAnchor:  nextAnchor,
		})

		// Hint the next chunk's direct search, but only off spans that were
		// actually found in the markup; a scaled estimate would anchor the
		// whole rest of the document to a guess.
		if res.Provenance != htmlpos.ProvenanceScaled && res.End > searchFrom {
			searchFrom = res.End
		}
	}

	RecordEnrichedChunks(doc.DocID, len(enriched))
	e.logger.Debug("Enriched document chunks",
		zap.String("doc_id", doc.DocID),
		zap.Int("num_chunks", len(enriched)),
		zap.Int("pages", maps.Pages.PageCount()))

	return enriched
}

// EnrichAll enriches a batch of documents with bounded concurrency. Results
// are returned in input order. The only error is context cancellation.
func (e *ChunkEnricher) EnrichAll(ctx context.Context, batch []DocumentChunks) ([][]record.EnrichedChunk, error) {
	results := make([][]record.EnrichedChunk, len(batch))
	var wg sync.WaitGroup

	for i, dc := range batch {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("acquiring enrichment slot: %w", err)
		}
		wg.Add(1)
		go func(i int, dc DocumentChunks) {
			defer wg.Done()
			defer e.sem.Release(1)
			results[i] = e.EnrichDocument(dc.Doc, dc.Chunks)
		}(i, dc)
	}

	wg.Wait()
	return results, nil
}

// anchorBefore walks backward from the chunk looking for the nearest
// visible neighbor and returns its tail as an anchor. Chunks that look like
// non-visible metadata payloads never appear in the rendered view and are
// skipped, up to the hop bound.
func (e *ChunkEnricher) anchorBefore(chunks []record.Chunk, i int) string {
	for j := i - 1; j >= 0 && i-j <= htmlpos.MaxAnchorHops; j-- {
		if htmlpos.IsVisibleText(chunks[j].Text) {
			return htmlpos.TailAnchor(chunks[j].Text)
		}
	}
	return ""
}

// anchorAfter is the forward counterpart of anchorBefore.
func (e *ChunkEnricher) anchorAfter(chunks []record.Chunk, i int) string {
	for j := i + 1; j < len(chunks) && j-i <= htmlpos.MaxAnchorHops; j++ {
		if htmlpos.IsVisibleText(chunks[j].Text) {
			return htmlpos.HeadAnchor(chunks[j].Text)
		}
	}
	return ""
}
