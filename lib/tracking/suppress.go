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

package tracking

import "context"

// The "inside a pipeline" flag travels on the context rather than in
// thread-local storage, so it works with any concurrency model and scopes
// naturally to one logical execution.
type pipelineCtxKey struct{}

func withPipeline(ctx context.Context, pipelineID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, pipelineCtxKey{}, pipelineID)
}

func inPipeline(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	return ctx.Value(pipelineCtxKey{}) != nil
}

// PipelineID returns the id of the pipeline the context is executing in,
// or "" when outside any pipeline.
func PipelineID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(pipelineCtxKey{}).(string); ok {
		return id
	}
	return ""
}
