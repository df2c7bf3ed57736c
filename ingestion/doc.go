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

// Package ingestion is the write path of the knowledge base. The
// Orchestrator carries one uploaded file through content storage,
// extraction, derivation and the final retrievability flip, compensating
// on failure so a document is either fully queryable or cleanly absent.
// The Registry routes files to processors; the BulkIngester fans a batch
// of files out over a worker pool.
package ingestion
