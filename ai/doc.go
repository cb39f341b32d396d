// Copyright 2025 Storyowl Labs
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


// Package ai provides abstractions for the embedding services used by the
// retrieval engine.
//
// The package defines the Embedder interface plus an AIProvider aggregate
// for lifecycle management. Retrieval and ingestion depend only on these
// abstractions; concrete implementations live in sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles with no external dependencies
//
// Production constructors return interface types to prevent coupling to a
// concrete backend. Mock constructors return concrete types so tests can
// inject behavior and assert call counts.
//
// RetryingEmbedder wraps any Embedder with bounded exponential backoff for
// rate-limited upstreams. Callers that talk to hosted embedding APIs should
// always wrap:
//
//	embedder := ai.NewRetryingEmbedder(provider.Embedder())
//	vec, err := embedder.EmbedText(ctx, "dinosaur adventure stories")
package ai
