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

// Command sourcemapr reconciles RAG chunk positions with their source HTML.
//
// Usage:
//
//	sourcemapr extract <file.html>              # Extract text and position maps
//	sourcemapr map <file.html> <chunks.json>    # Resolve chunk pages and spans
package main

import (
	"github.com/sourcemapr/sourcemapr/cmd/cmd"
)

// https://goreleaser.com/cookbooks/using-main.version/
//
// main.version: Current Git tag (the v prefix is stripped) or the name of the
// snapshot, if you're using the --snapshot flag
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
