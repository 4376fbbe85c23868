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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEmptyMarkup(t *testing.T) {
	res := Resolve(ResolveRequest{Markup: "", ChunkText: "anything"})
	assert.Equal(t, Resolution{Start: 0, End: 0, Provenance: ProvenanceScaled}, res)
}

func TestResolveMapped(t *testing.T) {
	markup := "<p>Hello world this is mapped content</p>"
	ext := Extract(markup)
	require.Equal(t, "Hello world this is mapped content", ext.Text)

	res := Resolve(ResolveRequest{
		Markup:     markup,
		Extraction: &ext,
		TextStart:  0,
		TextEnd:    len(ext.Text),
		ChunkText:  ext.Text,
	})

	assert.Equal(t, ProvenanceMapped, res.Provenance)
	assert.Equal(t, "Hello world this is mapped content", markup[res.Start:res.End])
}

func TestResolveMappedRejectsDivergedText(t *testing.T) {
	markup := "<p>Hello world this is mapped content</p>"
	ext := Extract(markup)

	// The splitter's rendering disagrees with ours at these offsets, so the
	// segment map must not be used even though the offsets are in range.
	res := Resolve(ResolveRequest{
		Markup:     markup,
		Extraction: &ext,
		TextStart:  0,
		TextEnd:    10,
		ChunkText:  "zzzz zzzzz",
	})

	assert.NotEqual(t, ProvenanceMapped, res.Provenance)
}

func TestResolveLocated(t *testing.T) {
	markup := "<html><body><p>The quick brown fox jumps over the lazy dog</p></body></html>"
	chunk := "quick brown fox jumps over"

	res := Resolve(ResolveRequest{Markup: markup, TextStart: -1, TextEnd: -1, ChunkText: chunk})

	assert.Equal(t, ProvenanceLocated, res.Provenance)
	assert.Equal(t, strings.Index(markup, "quick"), res.Start)
	assert.Equal(t, res.Start+2*len(chunk), res.End)
}

func TestResolveLocatedEndClamped(t *testing.T) {
	markup := "<p>the quick brown fox jumps over</p>"
	chunk := "quick brown fox jumps over"

	res := Resolve(ResolveRequest{Markup: markup, TextStart: -1, TextEnd: -1, ChunkText: chunk})

	require.Equal(t, ProvenanceLocated, res.Provenance)
	assert.Equal(t, len(markup), res.End, "doubled span must clamp to the document")
}

func TestResolveInterpolated(t *testing.T) {
	prev := "alpha bravo charlie delta echo"
	next := "golf hotel india juliet kilo"
	markup := "<p>" + prev + "</p><p>middle words</p><p>" + next + "</p>"

	tests := []struct {
		name      string
		prevText  string
		nextText  string
		wantStart int
		wantEnd   int
	}{
		{
			name:      "both neighbors found",
			prevText:  prev,
			nextText:  next,
			wantStart: strings.Index(markup, prev) + len(prev),
			wantEnd:   strings.Index(markup, next),
		},
		{
			name:      "previous only",
			prevText:  prev,
			nextText:  "",
			wantStart: strings.Index(markup, prev) + len(prev),
			wantEnd:   strings.Index(markup, prev) + len(prev) + 2*len("zz"),
		},
		{
			name:      "next only",
			prevText:  "",
			nextText:  next,
			wantStart: strings.Index(markup, next) - 2*len("zz"),
			wantEnd:   strings.Index(markup, next),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(ResolveRequest{
				Markup:    markup,
				TextStart: -1,
				TextEnd:   -1,
				ChunkText: "zz", // too short to locate directly
				PrevText:  tt.prevText,
				NextText:  tt.nextText,
			})

			require.Equal(t, ProvenanceInterpolated, res.Provenance)
			assert.Equal(t, tt.wantStart, res.Start)
			assert.Equal(t, tt.wantEnd, res.End)
		})
	}
}

func TestResolveScaled(t *testing.T) {
	markup := strings.Repeat("x", 200)

	res := Resolve(ResolveRequest{
		Markup:        markup,
		TextStart:     50,
		TextEnd:       60,
		LoaderTextLen: 100,
		ChunkText:     "zz",
	})

	require.Equal(t, ProvenanceScaled, res.Provenance)
	assert.Equal(t, 100, res.Start, "50 of 100 scales to 100 of 200")
	assert.Equal(t, 104, res.End)
}

func TestResolveScaledFallsBackToExtractionLength(t *testing.T) {
	markup := "<p>" + strings.Repeat("ab ", 40) + "</p>"
	ext := Extract(markup)

	res := Resolve(ResolveRequest{
		Markup:           markup,
		Extraction:       &ext,
		TextStart:        len(ext.Text) / 2,
		TextEnd:          len(ext.Text)/2 + 2,
		ChunkText:        "zz",
		SkipDirectSearch: true, // force the scaled tier
	})

	require.Equal(t, ProvenanceScaled, res.Provenance)
	assert.Equal(t, len(ext.Text)/2*len(markup)/len(ext.Text), res.Start)
}

func TestResolveSkipDirectSearch(t *testing.T) {
	markup := "<html><body><p>The quick brown fox jumps over the lazy dog</p></body></html>"
	chunk := "quick brown fox jumps over"

	res := Resolve(ResolveRequest{
		Markup:           markup,
		TextStart:        -1,
		TextEnd:          -1,
		ChunkText:        chunk,
		SkipDirectSearch: true,
	})

	assert.Equal(t, ProvenanceScaled, res.Provenance,
		"locatable text must still be skipped when direct search is off")
}

func TestResolveNeverFails(t *testing.T) {
	markups := []string{
		"x",
		"<p></p>",
		strings.Repeat("<div>", 50),
		"plain text with no tags at all",
	}
	for _, markup := range markups {
		res := Resolve(ResolveRequest{
			Markup:    markup,
			TextStart: -1,
			TextEnd:   -1,
			ChunkText: "untraceable chunk body",
		})
		assert.GreaterOrEqual(t, res.Start, 0)
		assert.GreaterOrEqual(t, res.End, res.Start)
		assert.LessOrEqual(t, res.End, len(markup))
		assert.NotEmpty(t, res.Provenance)
	}
}

func TestIsVisibleText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"ordinary prose", "The quarterly report shows steady growth.", true},
		{"empty", "", false},
		{"whitespace only", "  \n ", false},
		{"uri dense", "http://a.example http://b.example http://c.example", false},
		{"two markers is fine", "see http://a.example and http://b.example", true},
		{"namespace soup", `xmlns:a="urn:x" xmlns:b="urn:y"`, false},
		{"long unbroken first token", strings.Repeat("x", 60) + " trailing words", false},
		{"long token later is fine", "intro " + strings.Repeat("x", 60), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisibleText(tt.text))
		})
	}
}

func TestAnchors(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TailAnchor(short))
	assert.Equal(t, short, HeadAnchor(short))

	long := strings.Repeat("abcde ", 20)
	assert.Equal(t, long[len(long)-AnchorLen:], TailAnchor(long))
	assert.Equal(t, long[:AnchorLen], HeadAnchor(long))
	assert.Len(t, TailAnchor(long), AnchorLen)
	assert.Len(t, HeadAnchor(long), AnchorLen)
}
