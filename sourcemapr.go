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

// Package sourcemapr reconciles the plain-text view of a RAG pipeline with
// the raw HTML documents it was derived from. It owns the cached per-document
// position maps and the chunk enrichment flow; the algorithms themselves
// live in lib/htmlpos and lib/tracking.
package sourcemapr

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sourcemapr/sourcemapr/lib/htmlpos"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DocumentMaps bundles the derived views of one raw document: the extracted
// text with its segment map, and the logical page map. Both are immutable
// once derived and reused for every chunk of the document.
type DocumentMaps struct {
	Extraction *htmlpos.Extraction
	Pages      htmlpos.PageMap
	DerivedAt  time.Time
}

// MapperConfig configures the document map cache.
type MapperConfig struct {
	// TTL is how long derived maps stay cached. Zero means 10 minutes.
	TTL time.Duration
}

// DocumentMapper memoizes ExtractedText and PageMap derivation per document
// id. A document is reconciled once per chunk, potentially hundreds of calls,
// and re-deriving the maps each time is wasteful; the cache is owned by the
// caller and its lifecycle is tied to one document-processing session.
type DocumentMapper struct {
	memCache        *ttlcache.Cache[uint64, *DocumentMaps]
	sfGroup         *singleflight.Group
	singleflightHit *atomic.Uint64
	logger          *zap.Logger
	cancel          context.CancelFunc
}

// NewDocumentMapper creates a mapper with its own map cache.
func NewDocumentMapper(cfg MapperConfig, logger *zap.Logger) *DocumentMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[uint64, *DocumentMaps](ttl),
	)
	go cache.Start()

	ctx, cancel := context.WithCancel(context.Background())
	singleflightHit := &atomic.Uint64{}

	m := &DocumentMapper{
		memCache:        cache,
		sfGroup:         &singleflight.Group{},
		singleflightHit: singleflightHit,
		logger:          logger,
		cancel:          cancel,
	}

	go m.logCacheStats(ctx)

	return m
}

// Maps returns the derived maps for a document, deriving and caching them on
// first use. Concurrent calls for the same document are deduplicated.
func (m *DocumentMapper) Maps(docID, markup string) *DocumentMaps {
	cacheKey := m.computeCacheKey(docID, markup)

	if item := m.memCache.Get(cacheKey); item != nil {
		RecordCacheHit("document_maps")
		return item.Value()
	}
	RecordCacheMiss("document_maps")

	m.logger.Debug("Document map cache miss, deriving maps",
		zap.String("doc_id", docID),
		zap.Int("markup_length", len(markup)))

	v, _, shared := m.sfGroup.Do(strconv.FormatUint(cacheKey, 10), func() (any, error) {
		// Double-check cache (another goroutine might have populated it)
		if item := m.memCache.Get(cacheKey); item != nil {
			return item.Value(), nil
		}

		start := time.Now()
		extraction := htmlpos.Extract(markup)
		pages := htmlpos.SegmentPages(markup, &extraction)
		maps := &DocumentMaps{
			Extraction: &extraction,
			Pages:      pages,
			DerivedAt:  time.Now(),
		}

		m.memCache.Set(cacheKey, maps, ttlcache.DefaultTTL)
		RecordMapDerivation(time.Since(start).Seconds())

		m.logger.Info("Derived document maps",
			zap.String("doc_id", docID),
			zap.Int("markup_length", len(markup)),
			zap.Int("text_length", len(extraction.Text)),
			zap.Int("segments", len(extraction.Segments)),
			zap.Int("pages", pages.PageCount()))

		return maps, nil
	})

	if shared {
		m.singleflightHit.Add(1)
	}

	return v.(*DocumentMaps)
}

// PageFor returns the page number for a position in a foreign text rendering
// of the document (the splitter's text, of length targetLen). The position
// is scaled proportionally between renderings; see PageMap.PageForScaled.
func (m *DocumentMapper) PageFor(docID, markup string, pos, targetLen int) int {
	return m.Maps(docID, markup).Pages.PageForScaled(pos, targetLen)
}

// computeCacheKey derives the cache key for a document. The markup length is
// folded in so a reloaded document with changed content does not hit a stale
// map.
func (m *DocumentMapper) computeCacheKey(docID, markup string) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s:%d", docID, len(markup)))
}

// logCacheStats periodically logs cache statistics
func (m *DocumentMapper) logCacheStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.memCache.Len() == 0 {
				continue
			}
			metrics := m.memCache.Metrics()
			m.logger.Info("Document map cache stats",
				zap.Int("size", m.memCache.Len()),
				zap.Uint64("singleflight_hits", m.singleflightHit.Load()),
				zap.Uint64("cache_hits", metrics.Hits),
				zap.Uint64("cache_misses", metrics.Misses))

		case <-ctx.Done():
			return
		}
	}
}

// Close releases the cache resources.
func (m *DocumentMapper) Close() error {
	m.cancel()
	m.memCache.Stop()
	return nil
}
