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

// Package storage provides the storage abstraction layer for knowledge-flow.
//
// This package defines the store interfaces that decouple storage backends
// from pipeline logic. A document's raw bytes, its descriptive record, its
// chunk set and its tabular rows each live behind an independently replaceable
// interface, so backends can be swapped without changing pipeline semantics.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather than
// concrete types:
//
//	store, err := badger.NewContentStore(backend)  // returns storage.ContentStore
//
// This keeps consumers decoupled from any particular backend and lets tests
// substitute in-memory implementations without modification.
//
// # Consistency
//
// No store participates in a cross-store transaction. The ingestion
// orchestrator is the sole consistency mechanism: it sequences writes across
// stores and issues compensating deletes on failure. Individual stores only
// guarantee atomicity of their own operations (ReplaceChunks/ReplaceRows are
// single-store atomic swaps).
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
