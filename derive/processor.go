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

package derive

import (
	"context"

	"github.com/fred-agent/knowledge-flow/core"
)

// OutputProcessor consumes a normalized document and produces its derived
// artifacts. Variants cover the three document fates: vector chunks for
// searchable text, tabular records for row-oriented data, and nothing at
// all for documents kept only as raw content.
//
// Process must leave the backing stores in a replace-not-append state for
// the given uid: running it twice for the same document yields the same
// artifact set as running it once.
type OutputProcessor interface {
	// Name identifies the processor variant for logging and registry
	// configuration.
	Name() string

	// Process derives and persists artifacts for the document identified
	// by uid. Failures are reported as *ProcessingError carrying the
	// failing stage.
	Process(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) error
}
