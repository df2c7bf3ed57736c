package derive

import (
	"context"

	"github.com/fred-agent/knowledge-flow/core"
)

// EmptyProcessor derives nothing. It exists for extensions whose documents
// should be stored and listed but never chunked or rowified.
type EmptyProcessor struct{}

var _ OutputProcessor = (*EmptyProcessor)(nil)

// NewEmptyProcessor creates the no-op output processor.
func NewEmptyProcessor() *EmptyProcessor {
	return &EmptyProcessor{}
}

func (p *EmptyProcessor) Name() string { return "empty" }

func (p *EmptyProcessor) Process(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) error {
	return nil
}
