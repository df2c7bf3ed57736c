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
	"errors"
	"fmt"
)

// Stage names the sub-step of an output processor that failed.
type Stage string

const (
	StageLoad  Stage = "load"
	StageSplit Stage = "split"
	StageEmbed Stage = "embed"
	StageWrite Stage = "write"
)

// ErrProcessing is the sentinel matched by errors.Is for any output
// processor failure.
var ErrProcessing = errors.New("output processing failed")

// ProcessingError reports an output processor failure together with the
// stage that produced it, so callers can distinguish retryable embedding
// failures from deterministic split failures.
type ProcessingError struct {
	Processor string
	Stage     Stage
	Cause     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s processing failed at %s stage: %v", e.Processor, e.Stage, e.Cause)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

func (e *ProcessingError) Is(target error) bool { return target == ErrProcessing }

func newProcessingError(processor string, stage Stage, cause error) *ProcessingError {
	return &ProcessingError{Processor: processor, Stage: stage, Cause: cause}
}

func processingErrorf(processor string, stage Stage, format string, args ...any) *ProcessingError {
	return newProcessingError(processor, stage, fmt.Errorf(format, args...))
}
