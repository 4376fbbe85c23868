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

import "strings"

// Provenance records which cascade tier produced a resolved span. Lower
// tiers are better grounded; Scaled results are arithmetic estimates and
// consumers should treat them as low confidence.
type Provenance string

const (
	// ProvenanceMapped means the span came straight from the segment map.
	ProvenanceMapped Provenance = "mapped"
	// ProvenanceLocated means the chunk text itself was found in the markup.
	ProvenanceLocated Provenance = "located"
	// ProvenanceInterpolated means the span was bounded by neighbor anchors.
	ProvenanceInterpolated Provenance = "interpolated"
	// ProvenanceScaled means the span is a length-ratio estimate.
	ProvenanceScaled Provenance = "scaled"
)

const (
	// markupExpansion estimates how much markup a run of plain text spans.
	// Markup is never shorter than the text it renders, so doubling is a
	// deliberately generous bound rather than a measured tag-density ratio.
	markupExpansion = 2

	// AnchorLen is how many characters of a neighbor chunk are kept as a
	// disambiguation anchor.
	AnchorLen = 50

	// MaxAnchorHops bounds how far the enricher walks past non-visible
	// chunks when picking neighbor anchors.
	MaxAnchorHops = 10
)

// Resolution is a resolved markup span plus the cascade tier that produced
// it. Spans are advisory: consumers highlighting them should treat the
// boundaries as hints, not guarantees.
type Resolution struct {
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Provenance Provenance `json:"provenance"`
}

// ResolveRequest carries everything known about one chunk when mapping it
// back to raw markup. Only Markup is required; every other field widens the
// cascade's options.
type ResolveRequest struct {
	// Markup is the raw document.
	Markup string

	// Extraction is this package's rendering of Markup, when the caller has
	// one cached. Enables the direct positional-map tier.
	Extraction *Extraction

	// TextStart and TextEnd are the chunk's offsets into the splitter's own
	// plain-text rendering. Negative when the splitter did not report them.
	TextStart int
	TextEnd   int

	// LoaderTextLen is the length of the splitter/loader text the offsets
	// refer to, used by the ratio fallback. Zero when unknown.
	LoaderTextLen int

	// ChunkText is the chunk's content.
	ChunkText string

	// PrevText and NextText are the nearest visible neighbors' texts, used
	// as interpolation anchors when direct search fails. Empty when absent.
	PrevText string
	NextText string

	// SearchFrom anchors the direct search at or after the previous chunk's
	// resolved end, keeping sibling spans monotonic.
	SearchFrom int

	// SkipDirectSearch disables the map and locate tiers. Set when the
	// splitter reported no offsets: a chunk with no place in the extracted
	// text cannot be trusted to match the markup verbatim either.
	SkipDirectSearch bool
}

// Resolve maps a chunk of extracted text to a markup span. It never fails:
// each tier of the cascade falls through to a cheaper one, ending in an
// arithmetic estimate, so the only degradation is in Provenance.
func Resolve(req ResolveRequest) Resolution {
	if len(req.Markup) == 0 {
		return Resolution{Start: 0, End: 0, Provenance: ProvenanceScaled}
	}

	if !req.SkipDirectSearch {
		// Tier 0: segment map, when the splitter's text agrees with ours. A
		// length or content mismatch means the two renderings diverged and
		// the map cannot be trusted for these offsets.
		if res, ok := resolveMapped(req); ok {
			return res
		}

		// Tier 1: find the chunk text itself.
		if start, ok := Locate(req.Markup, req.ChunkText, req.SearchFrom); ok {
			return clampSpan(req.Markup, start, start+markupExpansion*len(req.ChunkText), ProvenanceLocated)
		}
	}

	// Tier 2: bound the span by whichever neighbors can be found.
	if res, ok := resolveInterpolated(req); ok {
		return res
	}

	// Tier 3: length-ratio estimate. Always succeeds arithmetically.
	return resolveScaled(req)
}

func resolveMapped(req ResolveRequest) (Resolution, bool) {
	ext := req.Extraction
	if ext == nil || req.TextStart < 0 || req.TextEnd < req.TextStart || req.TextEnd > len(ext.Text) {
		return Resolution{}, false
	}
	if !ext.Covers(req.TextStart, req.TextEnd) {
		return Resolution{}, false
	}
	if req.ChunkText != "" && ext.Text[req.TextStart:req.TextEnd] != req.ChunkText {
		return Resolution{}, false
	}
	start, end := ext.MarkupRange(req.TextStart, req.TextEnd)
	return clampSpan(req.Markup, start, end, ProvenanceMapped), true
}

func resolveInterpolated(req ResolveRequest) (Resolution, bool) {
	prevPos, prevOK := -1, false
	if req.PrevText != "" {
		prevPos, prevOK = Locate(req.Markup, req.PrevText, 0)
	}

	nextFrom := 0
	if prevOK {
		nextFrom = prevPos + len(req.PrevText)
	}
	nextPos, nextOK := -1, false
	if req.NextText != "" {
		nextPos, nextOK = Locate(req.Markup, req.NextText, nextFrom)
	}

	chunkLen := len(req.ChunkText)
	switch {
	case prevOK && nextOK:
		start := prevPos + len(req.PrevText)
		return clampSpan(req.Markup, start, nextPos, ProvenanceInterpolated), true
	case prevOK:
		start := prevPos + len(req.PrevText)
		return clampSpan(req.Markup, start, start+markupExpansion*chunkLen, ProvenanceInterpolated), true
	case nextOK:
		start := nextPos - markupExpansion*chunkLen
		return clampSpan(req.Markup, start, nextPos, ProvenanceInterpolated), true
	}
	return Resolution{}, false
}

func resolveScaled(req ResolveRequest) Resolution {
	markupLen := len(req.Markup)
	chunkLen := len(req.ChunkText)

	loaderLen := req.LoaderTextLen
	if loaderLen <= 0 && req.Extraction != nil {
		loaderLen = len(req.Extraction.Text)
	}

	if req.TextStart >= 0 && loaderLen > 0 {
		start := req.TextStart * markupLen / loaderLen
		return clampSpan(req.Markup, start, start+markupExpansion*chunkLen, ProvenanceScaled)
	}

	// No offsets at all: the original text offsets are the only signal left.
	start := req.TextStart
	end := req.TextEnd
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start + markupExpansion*chunkLen
	}
	return clampSpan(req.Markup, start, end, ProvenanceScaled)
}

// clampSpan forces 0 <= start <= end <= len(markup).
func clampSpan(markup string, start, end int, prov Provenance) Resolution {
	if start < 0 {
		start = 0
	}
	if start > len(markup) {
		start = len(markup)
	}
	if end > len(markup) {
		end = len(markup)
	}
	if end < start {
		end = start
	}
	return Resolution{Start: start, End: end, Provenance: prov}
}

// Markers that identify non-visible structured metadata payloads.
var metadataMarkers = []string{"://", "xmlns", "urn:"}

// IsVisibleText reports whether chunk text looks like renderable prose. A
// chunk dense with URI- or namespace-like tokens, or opening with one
// abnormally long unbroken token, is structured metadata that never appears
// in the rendered view and must not be used as a search anchor.
func IsVisibleText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	markers := 0
	for _, m := range metadataMarkers {
		markers += strings.Count(trimmed, m)
	}
	if markers >= 3 {
		return false
	}

	firstToken := trimmed
	if i := strings.IndexAny(trimmed, " \t\n\r"); i >= 0 {
		firstToken = trimmed[:i]
	}
	return len(firstToken) < AnchorLen
}

// TailAnchor returns the last AnchorLen characters of a neighbor's text,
// the end adjacent to the chunk being resolved.
func TailAnchor(text string) string {
	if len(text) <= AnchorLen {
		return text
	}
	return text[len(text)-AnchorLen:]
}

// HeadAnchor returns the first AnchorLen characters of a neighbor's text.
func HeadAnchor(text string) string {
	if len(text) <= AnchorLen {
		return text
	}
	return text[:AnchorLen]
}
