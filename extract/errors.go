package extract

import (
	"errors"
	"fmt"
)

// ErrExtraction is the sentinel wrapped by every ExtractionError.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports that an input processor could not parse its input.
// It is terminal: the orchestrator reports it to the caller without retrying.
type ExtractionError struct {
	Processor string
	Cause     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Processor, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is matches ExtractionError against the ErrExtraction sentinel.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func newExtractionError(processor string, cause error) error {
	return &ExtractionError{Processor: processor, Cause: cause}
}

func extractionErrorf(processor, format string, args ...any) error {
	return &ExtractionError{Processor: processor, Cause: fmt.Errorf(format, args...)}
}
