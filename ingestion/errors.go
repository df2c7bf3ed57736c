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

package ingestion

import (
	"errors"
	"fmt"

	"github.com/fred-agent/knowledge-flow/core"
)

var (
	// ErrRegistryRequired is returned when a processor registry is not provided.
	ErrRegistryRequired = errors.New("processor registry required")

	// ErrOrchestratorRequired is returned when an orchestrator is not provided.
	ErrOrchestratorRequired = errors.New("orchestrator required")

	// ErrContentStoreRequired is returned when a content store is not provided.
	ErrContentStoreRequired = errors.New("content store required")

	// ErrMetadataStoreRequired is returned when a metadata store is not provided.
	ErrMetadataStoreRequired = errors.New("metadata store required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrTabularStoreRequired is returned when a tabular store is not provided.
	ErrTabularStoreRequired = errors.New("tabular store required")

	// ErrEmptyContent is returned when an ingestion request carries no bytes.
	ErrEmptyContent = errors.New("empty content")

	// ErrUnsupportedFileType is the sentinel matched by errors.Is for
	// extensions with no registered input processor.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrConsistency is the sentinel matched by errors.Is when compensation
	// itself failed and orphaned artifacts may remain.
	ErrConsistency = errors.New("consistency violation")
)

// UnsupportedFileTypeError identifies the extension that could not be
// routed. It is raised before any store is touched.
type UnsupportedFileTypeError struct {
	Extension string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.Extension)
}

func (e *UnsupportedFileTypeError) Is(target error) bool {
	return target == ErrUnsupportedFileType
}

// IngestionError wraps a stage failure for one document. The original
// cause remains reachable through errors.Is and errors.As.
type IngestionError struct {
	Uid   core.UID
	Stage Stage
	Cause error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of %d failed at %s: %v", e.Uid, e.Stage, e.Cause)
}

func (e *IngestionError) Unwrap() error { return e.Cause }

// ConsistencyError reports that compensation after a failed ingestion
// could not complete. Artifacts for the UID may be orphaned until the
// next ingestion attempt replaces them.
type ConsistencyError struct {
	Uid             core.UID
	Cause           error
	CompensationErr error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("compensation for %d failed: %v (original failure: %v)",
		e.Uid, e.CompensationErr, e.Cause)
}

func (e *ConsistencyError) Unwrap() error { return e.CompensationErr }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }
