// Copyright 2026 SourcemapR, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"os"

	"github.com/sourcemapr/sourcemapr/lib/htmlpos"
	"github.com/sourcemapr/sourcemapr/lib/record"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.html>",
	Short: "Extract plain text and position maps from an HTML document",
	Long: `Render an HTML document to plain text and print the result as JSON,
including the per-segment position map and the logical page map.

Examples:
  # Extract text, segments, and pages
  sourcemapr extract report.html

  # Text only
  sourcemapr extract --text-only report.html`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Bool("text-only", false, "Print only the extracted text")
}

func runExtract(cmd *cobra.Command, args []string) error {
	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	extraction := htmlpos.Extract(string(markup))

	if textOnly, _ := cmd.Flags().GetBool("text-only"); textOnly {
		fmt.Println(extraction.Text)
		return nil
	}

	pages := htmlpos.SegmentPages(string(markup), &extraction)

	out := struct {
		Text     string            `json:"text"`
		Segments []htmlpos.Segment `json:"segments"`
		Pages    []htmlpos.Page    `json:"pages"`
	}{
		Text:     extraction.Text,
		Segments: extraction.Segments,
		Pages:    pages.Pages,
	}
	return record.WriteJSON(os.Stdout, out)
}
