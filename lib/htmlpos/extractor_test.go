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

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "plain text",
			markup: "hello world",
			want:   "hello world",
		},
		{
			name:   "inline tags stripped",
			markup: "<p>Hello <b>world</b></p>",
			want:   "Hello world",
		},
		{
			name:   "block tags separate with one space",
			markup: "<p>first</p><p>second</p>",
			want:   "first second",
		},
		{
			name:   "script content dropped",
			markup: `<p>a</p><script>var hidden = "payload";</script><p>visible text</p>`,
			want:   "a visible text",
		},
		{
			name:   "style content dropped",
			markup: "<style>.x { color: red }</style>shown",
			want:   "shown",
		},
		{
			name:   "head content dropped, meta and link are void",
			markup: `<head><title>Title</title></head><meta charset="utf-8"><link rel="x"><p>Body</p>`,
			want:   "Body",
		},
		{
			name:   "nested skip tags",
			markup: "<script>a<script>b</script>c</script>after",
			want:   "after",
		},
		{
			name:   "named entities decoded",
			markup: "Tom &amp; Jerry &ndash; cartoon",
			want:   "Tom & Jerry – cartoon",
		},
		{
			name:   "numeric entities decoded",
			markup: "&#65;&#x42;&#x63;",
			want:   "ABc",
		},
		{
			name:   "unknown entity passes through",
			markup: "value &bogus; here",
			want:   "value &bogus; here",
		},
		{
			name:   "whitespace collapsed",
			markup: "a \n\t  b",
			want:   "a b",
		},
		{
			name:   "comments dropped",
			markup: "a<!-- hidden note -->b",
			want:   "ab",
		},
		{
			name:   "doctype dropped",
			markup: "<!DOCTYPE html><p>content</p>",
			want:   "content",
		},
		{
			name:   "bare angle bracket is text",
			markup: "1 < 2 and 3 > 2",
			want:   "1 < 2 and 3 > 2",
		},
		{
			name:   "nbsp becomes plain space",
			markup: "a&nbsp;b",
			want:   "a b",
		},
		{
			name:   "empty input",
			markup: "",
			want:   "",
		},
		{
			name:   "whitespace only",
			markup: "  \n\t ",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.markup)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

// Every extraction must partition its text into contiguous segments: the
// first starts at 0, each next starts where the previous ended, and the last
// ends at len(Text). MarkupRange is only trustworthy under this invariant.
func TestExtractSegmentCoverage(t *testing.T) {
	markups := []string{
		"hello world",
		"<p>Hello <b>world</b></p>",
		"<p>first</p><p>second</p><p>third</p>",
		`<div>a &amp; b</div><script>x</script><div>c &#65; d</div>`,
		"text <!-- comment --> more &nbsp; text",
		"<table><tr><td>one</td><td>two</td></tr></table>",
	}

	for _, markup := range markups {
		t.Run(markup, func(t *testing.T) {
			got := Extract(markup)
			require.NotEmpty(t, got.Segments)

			pos := 0
			for i, seg := range got.Segments {
				assert.Equal(t, pos, seg.TextStart, "segment %d leaves a gap", i)
				assert.Greater(t, seg.TextEnd, seg.TextStart, "segment %d is empty", i)
				assert.GreaterOrEqual(t, seg.MarkupEnd, seg.MarkupStart, "segment %d markup range inverted", i)
				assert.LessOrEqual(t, seg.MarkupEnd, len(markup), "segment %d past markup end", i)
				pos = seg.TextEnd
			}
			assert.Equal(t, len(got.Text), pos, "segments do not cover the full text")
			assert.True(t, got.Covers(0, len(got.Text)))
		})
	}
}

func TestExtractSegmentRanges(t *testing.T) {
	markup := "<p>Hello <b>world</b></p>"
	got := Extract(markup)
	require.Equal(t, "Hello world", got.Text)
	require.Len(t, got.Segments, 2)

	// "Hello " came from between <p> and <b>.
	assert.Equal(t, "Hello ", markup[got.Segments[0].MarkupStart:got.Segments[0].MarkupEnd])
	// "world" came from between <b> and </b>.
	assert.Equal(t, "world", markup[got.Segments[1].MarkupStart:got.Segments[1].MarkupEnd])
}

func TestMarkupRange(t *testing.T) {
	markup := "<p>Hello <b>world</b></p>"
	got := Extract(markup)
	require.Equal(t, "Hello world", got.Text)

	start, end := got.MarkupRange(6, 11)
	assert.Equal(t, "world", markup[start:end])

	start, end = got.MarkupRange(0, 6)
	assert.Equal(t, "Hello ", markup[start:end])

	start, end = got.MarkupRange(0, 11)
	assert.Equal(t, "Hello <b>world", markup[start:end])
}

func TestMarkupRangeEntityExpansion(t *testing.T) {
	// The entity is 5 markup bytes rendering to 1 text byte, so offsets past
	// it project non-linearly but must stay inside the segment.
	markup := "<p>a &amp; b</p>"
	got := Extract(markup)
	require.Equal(t, "a & b", got.Text)

	start, end := got.MarkupRange(0, 5)
	assert.LessOrEqual(t, start, strings.Index(markup, "a"))
	assert.LessOrEqual(t, end, len(markup))
	assert.Greater(t, end, start)
}

func TestMarkupRangeOutsideSegments(t *testing.T) {
	ext := Extraction{Text: "abc", Segments: nil}
	start, end := ext.MarkupRange(1, 3)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)
}

func TestCovers(t *testing.T) {
	got := Extract("<p>Hello <b>world</b></p>")
	assert.True(t, got.Covers(0, 11))
	assert.True(t, got.Covers(3, 8))
	assert.False(t, got.Covers(-1, 5))
	assert.False(t, got.Covers(0, 12))
	assert.False(t, got.Covers(8, 5))

	// Synthetic gap between segments.
	gapped := Extraction{
		Text: "abcdef",
		Segments: []Segment{
			{TextStart: 0, TextEnd: 2, MarkupStart: 0, MarkupEnd: 2},
			{TextStart: 4, TextEnd: 6, MarkupStart: 10, MarkupEnd: 12},
		},
	}
	assert.True(t, gapped.Covers(0, 2))
	assert.False(t, gapped.Covers(0, 6))
	assert.False(t, gapped.Covers(2, 4))
}

func TestDecodeEntity(t *testing.T) {
	tests := []struct {
		entity string
		want   string
	}{
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&nbsp;", " "},
		{"&#65;", "A"},
		{"&#x41;", "A"},
		{"&#X41;", "A"},
		{"&unknown;", "&unknown;"},
		{"&#0;", "&#0;"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decodeEntity(tt.entity), tt.entity)
	}
}
