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

package htmlpos

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// minNeedleLen rejects needles too short to locate unambiguously.
	minNeedleLen = 20
	// maxSearchTokens bounds the per-needle search cost.
	maxSearchTokens = 8
	// minFoundFraction is the share of tokens that must be found at all.
	minFoundFraction = 0.3
)

// Distinctive tokens: alphabetic runs of at least 4 characters.
var searchTokenRe = regexp.MustCompile(`[a-zA-Z]{4,}`)

// Locate finds a block of plain text inside raw markup, tolerating tag
// interference and whitespace differences, scanning from searchFrom. It
// extracts distinctive tokens from the needle, finds each token's first
// occurrence outside tag delimiters, and returns the earliest position in
// the densest cluster of token hits.
//
// The result is heuristic: wrong-but-plausible clusters and missed real
// matches both happen, and callers are expected to absorb them through the
// reconciliation cascade rather than treat the position as authoritative.
func Locate(markup, needle string, searchFrom int) (int, bool) {
	if len(needle) < minNeedleLen {
		return 0, false
	}

	tokens := searchTokenRe.FindAllString(needle, maxSearchTokens)
	if len(tokens) < 2 {
		return 0, false
	}

	markupLower := strings.ToLower(markup)
	if searchFrom < 0 {
		searchFrom = 0
	}

	var positions []int
	for _, tok := range tokens {
		if pos := findOutsideTags(markupLower, strings.ToLower(tok), searchFrom); pos >= 0 {
			positions = append(positions, pos)
		}
	}
	if float64(len(positions)) < float64(len(tokens))*minFoundFraction {
		return 0, false
	}
	sort.Ints(positions)

	// Densest cluster within a window proportional to the needle length.
	window := 2 * len(needle)
	bestPos, bestCount := -1, 0
	for _, pos := range positions {
		count := 0
		for _, p := range positions {
			if abs(p-pos) <= window {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestPos = pos
		}
	}
	if bestPos < 0 {
		return 0, false
	}
	for _, p := range positions {
		if abs(p-bestPos) <= window {
			return p, true // earliest position in the best cluster
		}
	}
	return bestPos, true
}

// findOutsideTags returns the first occurrence of token at or after from
// that does not fall between an unmatched '<' and the next '>'. Occurrences
// inside tag delimiters (attribute values, tag names) are skipped.
func findOutsideTags(markupLower, token string, from int) int {
	pos := from
	for {
		idx := strings.Index(markupLower[pos:], token)
		if idx < 0 {
			return -1
		}
		idx += pos

		lastOpen := strings.LastIndexByte(markupLower[:idx], '<')
		lastClose := strings.LastIndexByte(markupLower[:idx], '>')
		if lastOpen > lastClose {
			pos = idx + 1
			continue
		}
		return idx
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
