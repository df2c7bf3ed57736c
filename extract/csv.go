package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/fred-agent/knowledge-flow/core"
)

// CsvProcessor normalizes CSV input into tabular rows. The first record is
// treated as the header and becomes the column set.
type CsvProcessor struct{}

var _ InputProcessor = (*CsvProcessor)(nil)

// NewCsvProcessor creates the CSV input processor.
func NewCsvProcessor() *CsvProcessor {
	return &CsvProcessor{}
}

func (p *CsvProcessor) Name() string            { return "csv" }
func (p *CsvProcessor) Kind() core.DocumentKind { return core.KindTabular }

func (p *CsvProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, extractionErrorf(p.Name(), "%s is empty", filename)
		}
		return nil, newExtractionError(p.Name(), err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	var rows []core.TabularRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newExtractionError(p.Name(), err)
		}
		rows = append(rows, core.TabularRow{Fields: record})
	}

	return &core.NormalizedDocument{
		Kind:    core.KindTabular,
		Columns: columns,
		Rows:    rows,
		Metadata: map[string]string{
			"format":         "csv",
			"row_count":      strconv.Itoa(len(rows)),
			"column_count":   strconv.Itoa(len(columns)),
			"sample_columns": strings.Join(columns, ","),
		},
	}, nil
}
