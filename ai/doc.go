// Copyright 2025 Fred Agent Contributors
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

// Package ai provides the embedding abstraction used by the vectorization
// pipeline.
//
// The Embedder interface decouples pipeline logic from concrete embedding
// backends, following the dependency inversion principle. Two implementation
// sub-packages exist:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test double
//
// Public constructors in implementation packages return the ai.Embedder
// interface to prevent accidental coupling; mock constructors return the
// concrete type so tests can inject behavior and assert call counts.
//
// RetryingEmbedder wraps any Embedder with bounded exponential backoff, so
// transient backend failures (quota, timeout) are retried at the adapter
// boundary before they surface to the ingestion orchestrator.
package ai
