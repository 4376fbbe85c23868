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

import "github.com/prometheus/client_golang/prometheus"

var (
	resolutionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcemapr",
			Subsystem: "core",
			Name:      "resolution_ops_total",
			Help:      "The total number of chunk position resolutions, by cascade tier.",
		},
		[]string{"provenance"},
	)

	enrichedChunkOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcemapr",
			Subsystem: "core",
			Name:      "enriched_chunk_ops_total",
			Help:      "The total number of chunks enriched with page and markup positions.",
		},
		[]string{"doc_id"},
	)

	mapDerivationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sourcemapr",
			Subsystem: "core",
			Name:      "map_derivation_duration_seconds",
			Help:      "Time taken to derive a document's extraction and page maps.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcemapr",
			Subsystem: "core",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sourcemapr",
			Subsystem: "core",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(resolutionOps)
	prometheus.MustRegister(enrichedChunkOps)
	prometheus.MustRegister(mapDerivationDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// RecordResolution increments the resolution counter for a cascade tier.
func RecordResolution(provenance string) {
	resolutionOps.WithLabelValues(provenance).Inc()
}

// RecordEnrichedChunks records chunks enriched for a document.
func RecordEnrichedChunks(docID string, count int) {
	enrichedChunkOps.WithLabelValues(docID).Add(float64(count))
}

// RecordMapDerivation records how long a map derivation took.
func RecordMapDerivation(seconds float64) {
	mapDerivationDuration.Observe(seconds)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}
