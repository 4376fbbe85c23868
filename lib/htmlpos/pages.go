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

// Page-break indicators: explicit print-style break markers and structural
// comments. These cover common generated documents (SEC filings, exported
// reports); anything else renders as a single page.
var pageBreakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<hr[^>]*style\s*=\s*["'][^"']*page-break[^"']*["'][^>]*>`),
	regexp.MustCompile(`(?is)<div[^>]*style\s*=\s*["'][^"']*page-break[^"']*["'][^>]*>`),
	regexp.MustCompile(`(?i)<!--\s*PAGE\s*(?:BREAK)?\s*-->`),
	regexp.MustCompile(`(?i)<!--\s*NEW\s*PAGE\s*-->`),
}

// Page is one logical page of a document, as a range of extracted text.
type Page struct {
	Number    int `json:"number"`
	TextStart int `json:"text_start"`
	TextEnd   int `json:"text_end"`
}

// PageMap partitions extracted text into a dense, 1-based sequence of
// contiguous page ranges. TextLen is the length of the extraction the
// ranges are expressed in; positions from a different rendering of the same
// document must go through PageForScaled.
type PageMap struct {
	Pages   []Page `json:"pages"`
	TextLen int    `json:"text_len"`
}

// findPageBreaks returns the sorted markup spans of every page-break
// indicator in the document.
func findPageBreaks(markup string) [][2]int {
	var breaks [][2]int
	for _, pat := range pageBreakPatterns {
		for _, loc := range pat.FindAllStringIndex(markup, -1) {
			breaks = append(breaks, [2]int{loc[0], loc[1]})
		}
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i][0] < breaks[j][0] })
	return breaks
}

// SegmentPages scans markup for page-break indicators and partitions the
// extracted text into logical pages. Pages whose content is empty or
// whitespace-only are dropped and the remaining pages renumbered so the
// sequence stays dense. With no indicators the whole text is page 1.
func SegmentPages(markup string, extracted *Extraction) PageMap {
	textLen := 0
	if extracted != nil {
		textLen = len(extracted.Text)
	}

	breaks := findPageBreaks(markup)
	if len(breaks) == 0 {
		return PageMap{
			Pages:   []Page{{Number: 1, TextStart: 0, TextEnd: textLen}},
			TextLen: textLen,
		}
	}

	// Split markup at the indicators and re-extract each section. The
	// concatenated section texts define this map's coordinate system; it may
	// differ slightly from the caller's extraction, which is why page
	// lookups for foreign positions scale proportionally.
	var sections []string
	prev := 0
	for _, br := range breaks {
		if br[0] < prev {
			continue // overlapping indicator already consumed
		}
		sections = append(sections, markup[prev:br[0]])
		prev = br[1]
	}
	sections = append(sections, markup[prev:])

	var pages []Page
	pos := 0
	for _, section := range sections {
		text := Extract(section).Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{
			Number:    len(pages) + 1,
			TextStart: pos,
			TextEnd:   pos + len(text),
		})
		pos += len(text)
	}

	if len(pages) == 0 {
		return PageMap{
			Pages:   []Page{{Number: 1, TextStart: 0, TextEnd: textLen}},
			TextLen: textLen,
		}
	}
	return PageMap{Pages: pages, TextLen: pos}
}

// PageCount returns the number of pages in the map.
func (pm PageMap) PageCount() int {
	return len(pm.Pages)
}

// PageFor returns the 1-based page number containing the given position in
// the map's own coordinate system. Positions past the last page map to the
// last page; anything else defaults to page 1.
func (pm PageMap) PageFor(pos int) int {
	for _, p := range pm.Pages {
		if pos >= p.TextStart && pos < p.TextEnd {
			return p.Number
		}
	}
	if n := len(pm.Pages); n > 0 && pos >= pm.Pages[n-1].TextEnd {
		return pm.Pages[n-1].Number
	}
	return 1
}

// PageForScaled looks up the page for a position expressed in a different
// text rendering of the same document, of length targetLen. The position is
// scaled proportionally between the two coordinate systems: this is a
// deliberate approximation, not an exact reconstruction, because the two
// extraction passes may apply entity and whitespace rules differently.
func (pm PageMap) PageForScaled(pos, targetLen int) int {
	if targetLen > 0 && pm.TextLen > 0 && targetLen != pm.TextLen {
		pos = pos * pm.TextLen / targetLen
	}
	return pm.PageFor(pos)
}
