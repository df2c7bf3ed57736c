package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fred-agent/knowledge-flow/core"
)

// SpreadsheetMacroProcessor normalizes macro-enabled Excel workbooks (XLSM)
// into tabular rows. The first worksheet is converted: its first non-empty
// row becomes the column set, remaining rows become records. Macro code
// itself is never executed or extracted; its presence is only recorded.
type SpreadsheetMacroProcessor struct{}

var _ InputProcessor = (*SpreadsheetMacroProcessor)(nil)

// NewSpreadsheetMacroProcessor creates the XLSM input processor.
func NewSpreadsheetMacroProcessor() *SpreadsheetMacroProcessor {
	return &SpreadsheetMacroProcessor{}
}

func (p *SpreadsheetMacroProcessor) Name() string            { return "spreadsheet-macro" }
func (p *SpreadsheetMacroProcessor) Kind() core.DocumentKind { return core.KindTabular }

func (p *SpreadsheetMacroProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	container, err := openContainer(raw, "xl/workbook.xml")
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	sheets, err := workbookSheets(container)
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}
	if len(sheets) == 0 {
		return nil, extractionErrorf(p.Name(), "%s contains no worksheets", filename)
	}

	strings_, err := sharedStrings(container)
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	cells, err := worksheetRows(container, sheets[0].part, strings_)
	if err != nil {
		return nil, newExtractionError(p.Name(), fmt.Errorf("sheet %q: %w", sheets[0].name, err))
	}
	if len(cells) == 0 {
		return nil, extractionErrorf(p.Name(), "sheet %q is empty", sheets[0].name)
	}

	columns := cells[0]
	rows := make([]core.TabularRow, 0, len(cells)-1)
	for _, row := range cells[1:] {
		fields := make([]string, len(columns))
		copy(fields, row)
		rows = append(rows, core.TabularRow{Fields: fields})
	}

	names := make([]string, len(sheets))
	for i, sheet := range sheets {
		names[i] = sheet.name
	}

	metadata := map[string]string{
		"format":       "xlsm",
		"sheet_name":   sheets[0].name,
		"sheet_names":  strings.Join(names, ","),
		"sheet_count":  strconv.Itoa(len(sheets)),
		"row_count":    strconv.Itoa(len(rows)),
		"column_count": strconv.Itoa(len(columns)),
		"has_macros":   strconv.FormatBool(containerHasPart(container, "xl/vbaProject.bin")),
	}
	addCoreProperties(metadata, readCoreProperties(container))

	return &core.NormalizedDocument{
		Kind:     core.KindTabular,
		Columns:  columns,
		Rows:     rows,
		Metadata: metadata,
	}, nil
}

type worksheet struct {
	name string
	part string
}

// workbookSheets resolves the workbook's sheets to their zip part names, in
// workbook order, via the workbook relationships part.
func workbookSheets(container *zip.Reader) ([]worksheet, error) {
	var workbook struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"id,attr"`
		} `xml:"sheets>sheet"`
	}
	data, err := readContainerPart(container, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if err := xml.Unmarshal(data, &workbook); err != nil {
		return nil, err
	}

	var rels struct {
		Relationships []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	relData, err := readContainerPart(container, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	if err := xml.Unmarshal(relData, &rels); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		targets[rel.ID] = rel.Target
	}

	var sheets []worksheet
	for _, sheet := range workbook.Sheets {
		target, found := targets[sheet.RID]
		if !found {
			continue
		}
		sheets = append(sheets, worksheet{
			name: sheet.Name,
			part: "xl/" + strings.TrimPrefix(target, "/xl/"),
		})
	}
	return sheets, nil
}

// sharedStrings loads xl/sharedStrings.xml. Workbooks without shared strings
// are valid; an absent part yields an empty table.
func sharedStrings(container *zip.Reader) ([]string, error) {
	if !containerHasPart(container, "xl/sharedStrings.xml") {
		return nil, nil
	}
	data, err := readContainerPart(container, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}

	var sst struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil, err
	}

	table := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		if len(item.Runs) == 0 {
			table[i] = item.T
			continue
		}
		var sb strings.Builder
		for _, run := range item.Runs {
			sb.WriteString(run.T)
		}
		table[i] = sb.String()
	}
	return table, nil
}

// worksheetRows parses one worksheet part into a dense string grid.
func worksheetRows(container *zip.Reader, part string, shared []string) ([][]string, error) {
	data, err := readContainerPart(container, part)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))

	var (
		rows     [][]string
		current  []string
		cellType string
		cellCol  int
		inCell   bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "row":
				current = nil
			case "c":
				inCell = true
				cellType = ""
				cellCol = len(current)
				for _, attr := range element.Attr {
					switch attr.Name.Local {
					case "t":
						cellType = attr.Value
					case "r":
						cellCol = columnIndex(attr.Value)
					}
				}
			case "v", "t":
				if !inCell {
					continue
				}
				var value string
				if err := decoder.DecodeElement(&value, &element); err != nil {
					return nil, err
				}
				if cellType == "s" {
					index, err := strconv.Atoi(value)
					if err != nil || index < 0 || index >= len(shared) {
						return nil, fmt.Errorf("invalid shared string index %q", value)
					}
					value = shared[index]
				}
				for len(current) <= cellCol {
					current = append(current, "")
				}
				current[cellCol] = value
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "c":
				inCell = false
			case "row":
				if rowHasContent(current) {
					rows = append(rows, current)
				}
				current = nil
			}
		}
	}

	return rows, nil
}

func rowHasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

// columnIndex converts a cell reference ("B7") to a zero-based column index.
func columnIndex(ref string) int {
	index := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		index = index*26 + int(r-'A') + 1
	}
	if index == 0 {
		return 0
	}
	return index - 1
}
