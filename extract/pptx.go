package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fred-agent/knowledge-flow/core"
)

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PptxProcessor converts PowerPoint presentations to markdown: one section
// per slide, text runs joined per paragraph, in slide order.
type PptxProcessor struct{}

var _ InputProcessor = (*PptxProcessor)(nil)

// NewPptxProcessor creates the PPTX input processor.
func NewPptxProcessor() *PptxProcessor {
	return &PptxProcessor{}
}

func (p *PptxProcessor) Name() string            { return "pptx" }
func (p *PptxProcessor) Kind() core.DocumentKind { return core.KindMarkdown }

func (p *PptxProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	container, err := openContainer(raw, "ppt/presentation.xml")
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	// Collect slide parts in numeric order; zip entry order is not reliable.
	type slidePart struct {
		number int
		name   string
	}
	var parts []slidePart
	for _, file := range container.File {
		match := slidePartPattern.FindStringSubmatch(file.Name)
		if match == nil {
			continue
		}
		number, _ := strconv.Atoi(match[1])
		parts = append(parts, slidePart{number: number, name: file.Name})
	}
	if len(parts) == 0 {
		return nil, extractionErrorf(p.Name(), "%s contains no slides", filename)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].number < parts[j].number })

	var blocks []string
	for _, part := range parts {
		data, err := readContainerPart(container, part.name)
		if err != nil {
			return nil, newExtractionError(p.Name(), err)
		}
		paragraphs, err := slideParagraphs(data)
		if err != nil {
			return nil, newExtractionError(p.Name(), fmt.Errorf("slide %d: %w", part.number, err))
		}
		blocks = append(blocks, fmt.Sprintf("## Slide %d", part.number))
		blocks = append(blocks, paragraphs...)
	}

	metadata := map[string]string{
		"format":      "pptx",
		"slide_count": strconv.Itoa(len(parts)),
	}
	addCoreProperties(metadata, readCoreProperties(container))

	return &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: strings.Join(blocks, "\n\n"),
		Metadata: metadata,
	}, nil
}

// slideParagraphs extracts the text paragraphs (a:p elements) of one slide,
// joining text runs (a:t) within a paragraph.
func slideParagraphs(slide []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(slide))

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

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
			case "p":
				depth++
			case "t":
				var text string
				if err := decoder.DecodeElement(&text, &element); err != nil {
					return nil, err
				}
				current.WriteString(text)
			}
		case xml.EndElement:
			if element.Name.Local == "p" && depth > 0 {
				depth--
				flush()
			}
		}
	}
	flush()

	return paragraphs, nil
}
