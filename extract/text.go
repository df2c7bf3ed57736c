package extract

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fred-agent/knowledge-flow/core"
)

// TextProcessor normalizes plain-text input. The body passes through as-is;
// plain text carries no TOC structure to strip.
type TextProcessor struct{}

var _ InputProcessor = (*TextProcessor)(nil)

// NewTextProcessor creates the plain-text input processor.
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Name() string            { return "text" }
func (p *TextProcessor) Kind() core.DocumentKind { return core.KindMarkdown }

func (p *TextProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	if !utf8.Valid(raw) {
		return nil, extractionErrorf(p.Name(), "%s is not valid UTF-8", filename)
	}

	body := string(raw)
	lines := 0
	if body != "" {
		lines = strings.Count(body, "\n") + 1
	}

	return &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: body,
		Metadata: map[string]string{
			"format":     "text",
			"line_count": strconv.Itoa(lines),
		},
	}, nil
}
