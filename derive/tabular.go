package derive

import (
	"context"
	"log/slog"

	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// TabularProcessor turns a column-and-rows document into tabular records
// keyed by (uid, row_index). The whole row set is written as a single
// replacement, so re-processing the same document never accumulates rows.
type TabularProcessor struct {
	tabular storage.TabularStore
	logger  *slog.Logger
}

var _ OutputProcessor = (*TabularProcessor)(nil)

// NewTabularProcessor creates the tabular output processor backed by the
// given store.
func NewTabularProcessor(tabular storage.TabularStore, logger *slog.Logger) *TabularProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularProcessor{tabular: tabular, logger: logger}
}

func (p *TabularProcessor) Name() string { return "tabular" }

func (p *TabularProcessor) Process(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) error {
	if doc.Kind != core.KindTabular {
		return processingErrorf(p.Name(), StageLoad, "document kind %d is not tabular", doc.Kind)
	}
	if len(doc.Columns) == 0 {
		return processingErrorf(p.Name(), StageLoad, "document has no columns")
	}

	records := make([]*core.TabularRecord, len(doc.Rows))
	for i, row := range doc.Rows {
		fields := make(map[string]string, len(doc.Columns))
		for j, column := range doc.Columns {
			value := ""
			if j < len(row.Fields) {
				value = row.Fields[j]
			}
			fields[column] = value
		}
		records[i] = &core.TabularRecord{
			DocumentUid: uid,
			RowIndex:    uint32(i),
			Fields:      fields,
		}
	}

	if err := p.tabular.ReplaceRows(ctx, uid, records); err != nil {
		return newProcessingError(p.Name(), StageWrite, err)
	}

	p.logger.Debug("stored tabular records",
		slog.Uint64("uid", uint64(uid)),
		slog.Int("rows", len(records)))
	return nil
}
