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

// Package htmlpos maps spans of extracted plain text back to byte spans in
// the raw HTML they were rendered from. Extraction is lossy (tags stripped,
// entities decoded, whitespace collapsed), so the mapping is best-effort:
// exact at segment granularity, heuristic below it.
package htmlpos

import (
	"regexp"
	"strconv"
	"strings"
)

// Segment maps one maximal run of extracted characters back to the markup
// run that produced it. Entity expansion and whitespace collapsing mean the
// two ranges rarely have equal length; fidelity is guaranteed at segment
// granularity only.
type Segment struct {
	TextStart   int `json:"text_start"`
	TextEnd     int `json:"text_end"`
	MarkupStart int `json:"markup_start"`
	MarkupEnd   int `json:"markup_end"`
}

// Extraction is the plain-text rendering of a raw markup document plus the
// per-segment position map. Produced once per document and read-only after.
type Extraction struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Tags whose content is dropped entirely.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"noscript": true,
}

// Void tags dropped without consuming content.
var voidSkipTags = map[string]bool{
	"meta": true,
	"link": true,
}

// Tags that separate text runs with a single space.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "td": true, "th": true,
}

var (
	tagRe    = regexp.MustCompile(`^<(/?)([a-zA-Z][a-zA-Z0-9]*)(?:[^>]*)>`)
	entityRe = regexp.MustCompile(`^&(#x[0-9a-fA-F]+|#[0-9]+|[a-zA-Z][a-zA-Z0-9]*);`)
)

var namedEntities = map[string]string{
	"nbsp":  " ",
	"amp":   "&",
	"lt":    "<",
	"gt":    ">",
	"quot":  `"`,
	"apos":  "'",
	"ndash": "–",
	"mdash": "—",
	"copy":  "©",
	"reg":   "®",
	"trade": "™",
}

// decodeEntity resolves an HTML entity reference. Unresolvable entities are
// returned verbatim.
func decodeEntity(entity string) string {
	body := entity[1 : len(entity)-1]
	if strings.HasPrefix(body, "#x") || strings.HasPrefix(body, "#X") {
		if n, err := strconv.ParseInt(body[2:], 16, 32); err == nil && n > 0 {
			return string(rune(n))
		}
		return entity
	}
	if strings.HasPrefix(body, "#") {
		if n, err := strconv.ParseInt(body[1:], 10, 32); err == nil && n > 0 {
			return string(rune(n))
		}
		return entity
	}
	if decoded, ok := namedEntities[body]; ok {
		return decoded
	}
	return entity
}

// extractor accumulates output text and segments during a single pass over
// the markup.
type extractor struct {
	markup string
	out    strings.Builder
	segs   []Segment

	// Current unflushed text run.
	cur            []byte
	curMarkupStart int

	// Markup span of a block tag awaiting its separating space.
	breakStart int
	breakEnd   int
}

// Extract renders raw markup to plain text while recording, for every
// contiguous run of output characters, the markup span it came from.
// Malformed markup never fails: unparseable tags are treated as text and
// unknown entities pass through verbatim.
func Extract(markup string) Extraction {
	ex := &extractor{
		markup:         markup,
		curMarkupStart: -1,
		breakStart:     -1,
	}
	ex.run()
	return Extraction{Text: ex.out.String(), Segments: ex.segs}
}

func (ex *extractor) run() {
	markup := ex.markup
	pos := 0
	inSkip := ""
	skipDepth := 0

	for pos < len(markup) {
		if markup[pos] == '<' {
			ex.flush(pos)

			// Comments and declarations are dropped whole.
			if strings.HasPrefix(markup[pos:], "<!--") {
				if end := strings.Index(markup[pos+4:], "-->"); end >= 0 {
					pos += 4 + end + 3
				} else {
					pos = len(markup)
				}
				continue
			}
			if strings.HasPrefix(markup[pos:], "<!") || strings.HasPrefix(markup[pos:], "<?") {
				if end := strings.IndexByte(markup[pos:], '>'); end >= 0 {
					pos += end + 1
				} else {
					pos = len(markup)
				}
				continue
			}

			m := tagRe.FindStringSubmatch(markup[pos:])
			if m == nil {
				// Bare '<' that opens no tag: plain text.
				if inSkip == "" {
					ex.text(pos, '<')
				}
				pos++
				continue
			}
			closing := m[1] == "/"
			name := strings.ToLower(m[2])
			tagEnd := pos + len(m[0])

			switch {
			case skipTags[name]:
				if closing {
					if inSkip == name {
						skipDepth--
						if skipDepth == 0 {
							inSkip = ""
						}
					}
				} else if inSkip == "" {
					inSkip = name
					skipDepth = 1
				} else if inSkip == name {
					skipDepth++
				}
			case voidSkipTags[name]:
				// Tag-only skip, no content to swallow.
			default:
				if inSkip == "" && blockTags[name] && ex.breakStart < 0 {
					ex.breakStart = pos
					ex.breakEnd = tagEnd
				}
			}
			pos = tagEnd
			continue
		}

		if inSkip != "" {
			// Fast-forward to the next tag inside skipped content.
			if next := strings.IndexByte(markup[pos:], '<'); next >= 0 {
				pos += next
			} else {
				pos = len(markup)
			}
			continue
		}

		c := markup[pos]
		if c == '&' {
			if m := entityRe.FindString(markup[pos:]); m != "" {
				ex.textString(pos, decodeEntity(m))
				pos += len(m)
				continue
			}
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if len(ex.cur) == 0 || ex.cur[len(ex.cur)-1] != ' ' {
				ex.text(pos, ' ')
			}
			pos++
			continue
		}
		ex.text(pos, c)
		pos++
	}

	ex.flush(len(markup))
}

// text appends one output byte to the current run, opening it if needed.
func (ex *extractor) text(markupPos int, c byte) {
	if ex.curMarkupStart < 0 {
		ex.curMarkupStart = markupPos
	}
	ex.cur = append(ex.cur, c)
}

func (ex *extractor) textString(markupPos int, s string) {
	if ex.curMarkupStart < 0 {
		ex.curMarkupStart = markupPos
	}
	ex.cur = append(ex.cur, s...)
}

// flush closes the current text run at the given markup offset, emitting a
// segment when the run contains visible content. Whitespace-only runs are
// dropped without a segment.
func (ex *extractor) flush(markupEnd int) {
	if ex.curMarkupStart < 0 {
		return
	}
	content := ex.cur
	ex.cur = nil
	markupStart := ex.curMarkupStart
	ex.curMarkupStart = -1

	if len(strings.TrimSpace(string(content))) == 0 {
		return
	}

	ex.emitBreak()

	// Avoid duplicate adjacent spaces across segment boundaries.
	if content[0] == ' ' && ex.lastIsSpaceOrEmpty() {
		content = content[1:]
	}
	if len(content) == 0 {
		return
	}

	start := ex.out.Len()
	ex.out.Write(content)
	ex.segs = append(ex.segs, Segment{
		TextStart:   start,
		TextEnd:     ex.out.Len(),
		MarkupStart: markupStart,
		MarkupEnd:   markupEnd,
	})
}

// emitBreak writes the pending block-tag separator as a one-character
// segment mapped to the tag itself.
func (ex *extractor) emitBreak() {
	if ex.breakStart < 0 {
		return
	}
	start, end := ex.breakStart, ex.breakEnd
	ex.breakStart = -1
	if ex.lastIsSpaceOrEmpty() {
		return
	}
	textStart := ex.out.Len()
	ex.out.WriteByte(' ')
	ex.segs = append(ex.segs, Segment{
		TextStart:   textStart,
		TextEnd:     textStart + 1,
		MarkupStart: start,
		MarkupEnd:   end,
	})
}

func (ex *extractor) lastIsSpaceOrEmpty() bool {
	s := ex.out.String()
	return len(s) == 0 || s[len(s)-1] == ' '
}

// MarkupRange maps a span of extracted text to the markup span covered by
// the segments it overlaps. Offsets inside a segment are projected linearly;
// spans outside every segment fall back to the text offsets themselves.
func (e *Extraction) MarkupRange(textStart, textEnd int) (int, int) {
	markupStart, markupEnd := -1, -1
	for _, seg := range e.Segments {
		if seg.TextEnd <= textStart || seg.TextStart >= textEnd {
			continue
		}
		if markupStart < 0 {
			off := textStart - seg.TextStart
			if off < 0 {
				off = 0
			}
			markupStart = project(seg, off)
		}
		off := textEnd - seg.TextStart
		if max := seg.TextEnd - seg.TextStart; off > max {
			off = max
		}
		markupEnd = project(seg, off)
	}
	if markupStart < 0 {
		markupStart = textStart
	}
	if markupEnd < 0 {
		markupEnd = textEnd
	}
	return markupStart, markupEnd
}

// Covers reports whether the text span lies entirely inside mapped segments,
// i.e. whether MarkupRange is grounded rather than a fallback.
func (e *Extraction) Covers(textStart, textEnd int) bool {
	if textStart < 0 || textEnd > len(e.Text) || textStart > textEnd {
		return false
	}
	pos := textStart
	for _, seg := range e.Segments {
		if seg.TextEnd <= pos {
			continue
		}
		if seg.TextStart > pos {
			return false
		}
		pos = seg.TextEnd
		if pos >= textEnd {
			return true
		}
	}
	return pos >= textEnd
}

// project maps an offset within a segment's text range onto its markup
// range, scaling for the length difference left by entity decoding and
// whitespace collapsing.
func project(seg Segment, textOff int) int {
	textLen := seg.TextEnd - seg.TextStart
	markupLen := seg.MarkupEnd - seg.MarkupStart
	if textLen <= 0 || textLen == markupLen {
		return seg.MarkupStart + textOff
	}
	return seg.MarkupStart + textOff*markupLen/textLen
}
