package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/fred-agent/knowledge-flow/core"
)

// DocxProcessor converts Word documents to markdown. Paragraph styles
// Heading1..Heading6 and Title map to markdown headings; everything else
// becomes plain paragraphs. Images and drawing content are dropped.
type DocxProcessor struct{}

var _ InputProcessor = (*DocxProcessor)(nil)

// NewDocxProcessor creates the DOCX input processor.
func NewDocxProcessor() *DocxProcessor {
	return &DocxProcessor{}
}

func (p *DocxProcessor) Name() string            { return "docx" }
func (p *DocxProcessor) Kind() core.DocumentKind { return core.KindMarkdown }

func (p *DocxProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	container, err := openContainer(raw, "word/document.xml")
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	document, err := readContainerPart(container, "word/document.xml")
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	body, err := docxToMarkdown(document)
	if err != nil {
		return nil, newExtractionError(p.Name(), err)
	}

	// TOC sections inserted by Word survive as heading + field paragraphs;
	// the same normalization pass as native markdown removes them.
	body, _, _ = normalizeMarkdown([]byte(body))

	metadata := map[string]string{"format": "docx"}
	addCoreProperties(metadata, readCoreProperties(container))

	return &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: body,
		Metadata: metadata,
	}, nil
}

// headingPrefixes maps Word paragraph styles to markdown heading markers.
var headingPrefixes = map[string]string{
	"Title":    "# ",
	"Heading1": "# ",
	"Heading2": "## ",
	"Heading3": "### ",
	"Heading4": "#### ",
	"Heading5": "##### ",
	"Heading6": "###### ",
}

// docxToMarkdown walks word/document.xml and emits one markdown block per
// paragraph.
func docxToMarkdown(document []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))

	var (
		blocks    []string
		paragraph strings.Builder
		style     string
	)

	flush := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text == "" {
			return
		}
		if prefix, isHeading := headingPrefixes[style]; isHeading {
			text = prefix + text
		}
		blocks = append(blocks, text)
	}

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "p":
				style = ""
			case "pStyle":
				for _, attr := range element.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case "t":
				var text string
				if err := decoder.DecodeElement(&text, &element); err != nil {
					return "", err
				}
				paragraph.WriteString(text)
			case "tab":
				paragraph.WriteString(" ")
			case "br":
				paragraph.WriteString(" ")
			}
		case xml.EndElement:
			if element.Name.Local == "p" {
				flush()
			}
		}
	}
	flush()

	return strings.Join(blocks, "\n\n"), nil
}
