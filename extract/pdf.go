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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/fred-agent/knowledge-flow/core"
)

// PdfProcessor extracts page text from PDF documents and renders it as
// markdown, one section per page. Encrypted documents are rejected.
type PdfProcessor struct {
	tempDir string
}

var _ InputProcessor = (*PdfProcessor)(nil)

// NewPdfProcessor creates the PDF input processor. Extraction goes through
// temp files because the underlying library operates on paths.
func NewPdfProcessor() *PdfProcessor {
	tempDir := filepath.Join(os.TempDir(), "knowledge-flow-pdf")
	os.MkdirAll(tempDir, 0o755)
	return &PdfProcessor{tempDir: tempDir}
}

func (p *PdfProcessor) Name() string            { return "pdf" }
func (p *PdfProcessor) Kind() core.DocumentKind { return core.KindMarkdown }

func (p *PdfProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	// Unique per call; concurrent extractions must not share paths.
	temp, err := os.CreateTemp(p.tempDir, "extract_*.pdf")
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}
	tempFile := temp.Name()
	defer os.Remove(tempFile)
	if _, err := temp.Write(raw); err != nil {
		temp.Close()
		return nil, newExtractionError(p.Name(), err)
	}
	if err := temp.Close(); err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, newExtractionError(p.Name(), fmt.Errorf("unreadable document: %w", err))
	}
	if pdfCtx.Encrypt != nil {
		return nil, extractionErrorf(p.Name(), "%s is encrypted", filename)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return nil, extractionErrorf(p.Name(), "%s contains no pages", filename)
	}

	pageTexts, err := p.extractPageTexts(tempFile, pageCount)
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if pageNum > 1 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## Page %d", pageNum)
		if text := pageTexts[pageNum]; text != "" {
			sb.WriteString("\n\n")
			sb.WriteString(text)
		}
	}

	metadata := map[string]string{
		"format":     "pdf",
		"page_count": strconv.Itoa(pageCount),
	}

	return &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: sb.String(),
		Metadata: metadata,
	}, nil
}

// extractPageTexts dumps per-page content streams and parses their
// text-showing operators. Unparseable pages degrade to empty text rather
// than failing the document.
func (p *PdfProcessor) extractPageTexts(pdfPath string, pageCount int) (map[int]string, error) {
	outDir, err := os.MkdirTemp(p.tempDir, "pages_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	texts := make(map[int]string, pageCount)
	if err := api.ExtractContentFile(pdfPath, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return texts, nil
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		texts[pageNum] = contentStreamText(content)
	}
	return texts, nil
}

// contentStreamText pulls the literal string arguments of Tj and TJ
// operators out of a decoded content stream. Hex strings and embedded
// font encodings are out of scope; non-text bytes are dropped.
func contentStreamText(stream []byte) string {
	var (
		sb      strings.Builder
		literal strings.Builder
		depth   int
		escaped bool
	)

	flush := func() {
		s := cleanStreamText(literal.String())
		literal.Reset()
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}

	for i := 0; i < len(stream); i++ {
		b := stream[i]
		if depth == 0 {
			if b == '(' {
				depth = 1
			}
			continue
		}
		if escaped {
			switch b {
			case 'n':
				literal.WriteByte('\n')
			case 't':
				literal.WriteByte(' ')
			case '(', ')', '\\':
				literal.WriteByte(b)
			}
			escaped = false
			continue
		}
		switch b {
		case '\\':
			escaped = true
		case '(':
			depth++
			literal.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				flush()
			} else {
				literal.WriteByte(b)
			}
		default:
			literal.WriteByte(b)
		}
	}

	return sb.String()
}

func cleanStreamText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == utf8.RuneError || (r < 0x20 && r != '\n') {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
