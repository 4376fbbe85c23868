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

	"github.com/sourcemapr/sourcemapr"
	"github.com/sourcemapr/sourcemapr/lib/record"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mapCmd = &cobra.Command{
	Use:   "map <file.html> <chunks.json>",
	Short: "Map chunk positions back into an HTML document",
	Long: `Resolve each chunk's page number and markup byte span against the raw
HTML document it was split from, and print the enriched chunks as JSON.

chunks.json holds an array of chunk objects:
  [{"chunk_id": "c1", "doc_id": "d1", "index": 0,
    "text": "...", "text_start": 120, "text_end": 480}]

Chunks whose splitter did not report offsets use text_start/text_end of -1.

Examples:
  # Resolve chunk positions
  sourcemapr map report.html chunks.json

  # The splitter's own text rendering was 10432 characters long
  sourcemapr map --loader-text-len 10432 report.html chunks.json`,
	Args: cobra.ExactArgs(2),
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().Int("loader-text-len", 0,
		"Length of the splitter's plain-text rendering, when it differs from ours")
	mapCmd.Flags().Int("pool-size", 0, "Concurrent document limit (0 = CPU count)")
	mustBindPFlag("pool_size", mapCmd.Flags().Lookup("pool-size"))
}

func runMap(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	chunksFile, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[1], err)
	}
	defer chunksFile.Close()

	var chunks []record.Chunk
	if err := record.ReadJSON(chunksFile, &chunks); err != nil {
		return fmt.Errorf("decoding %s: %w", args[1], err)
	}

	loaderTextLen, _ := cmd.Flags().GetInt("loader-text-len")

	docID := args[0]
	if len(chunks) > 0 && chunks[0].DocID != "" {
		docID = chunks[0].DocID
	}

	mapper := sourcemapr.NewDocumentMapper(sourcemapr.MapperConfig{}, logger)
	defer func() {
		_ = mapper.Close()
	}()
	enricher := sourcemapr.NewChunkEnricher(mapper, viper.GetInt("pool_size"), logger)

	enriched := enricher.EnrichDocument(sourcemapr.Document{
		DocID:         docID,
		Markup:        string(markup),
		LoaderTextLen: loaderTextLen,
	}, chunks)

	return record.WriteJSON(os.Stdout, enriched)
}
