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

package extract

import (
	"context"

	"github.com/fred-agent/knowledge-flow/core"
)

// InputProcessor extracts a normalized document and processor-specific
// metadata from raw file bytes. Each implementation handles exactly one input
// family; routing the wrong family to a processor is a registry bug, not
// something processors defend against.
//
// Processors have no side effects beyond reading the input bytes: they never
// write to any store. This lets the orchestrator retry or swap processors
// without backend cleanup.
type InputProcessor interface {
	// Name identifies the processor for configuration and logging.
	Name() string

	// Kind reports the normalized form this processor produces. The registry
	// uses it to pair input processors with a default output processor.
	Kind() core.DocumentKind

	// Extract parses raw into a NormalizedDocument.
	// Returns an ExtractionError when the bytes are malformed or internally
	// unsupported (encrypted PDF, corrupt zip container).
	Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error)
}
