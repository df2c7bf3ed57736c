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
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fred-agent/knowledge-flow/core"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// tocHeadingTitles are the heading texts (lower-cased) that mark a
// table-of-contents block. The heading and every following block up to the
// next heading are dropped during normalization, because downstream chunking
// assumes a TOC-free document.
var tocHeadingTitles = map[string]bool{
	"table of contents":  true,
	"contents":           true,
	"toc":                true,
	"sommaire":           true,
	"table des matières": true,
}

// MarkdownProcessor normalizes Markdown input. The body passes through
// unchanged apart from deterministic removal of table-of-contents sections.
type MarkdownProcessor struct{}

var _ InputProcessor = (*MarkdownProcessor)(nil)

// NewMarkdownProcessor creates the Markdown input processor.
func NewMarkdownProcessor() *MarkdownProcessor {
	return &MarkdownProcessor{}
}

func (p *MarkdownProcessor) Name() string            { return "markdown" }
func (p *MarkdownProcessor) Kind() core.DocumentKind { return core.KindMarkdown }

// Extract validates the input as UTF-8, strips TOC sections and collects
// heading metadata.
func (p *MarkdownProcessor) Extract(ctx context.Context, raw []byte, filename string) (*core.NormalizedDocument, error) {
	if !utf8.Valid(raw) {
		return nil, extractionErrorf(p.Name(), "%s is not valid UTF-8", filename)
	}

	body, title, headings := normalizeMarkdown(raw)

	metadata := map[string]string{
		"format":        "markdown",
		"heading_count": strconv.Itoa(headings),
	}
	if title != "" {
		metadata["title"] = title
	}

	return &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: body,
		Metadata: metadata,
	}, nil
}

// normalizeMarkdown parses source, drops TOC sections and returns the
// reassembled body, the first level-1 heading text and the count of kept
// headings. The same input always yields the same output.
func normalizeMarkdown(source []byte) (body, title string, headings int) {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(source))

	var (
		kept     [][2]int
		dropping bool
	)

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, isHeading := node.(*ast.Heading)
		if isHeading {
			text := strings.ToLower(strings.TrimSpace(nodeText(node, source)))
			if tocHeadingTitles[text] {
				dropping = true
				continue
			}
			dropping = false
			headings++
			if heading.Level == 1 && title == "" {
				title = strings.TrimSpace(nodeText(node, source))
			}
		}
		if dropping {
			continue
		}
		start, stop, ok := nodeSpan(node, source)
		if ok {
			kept = append(kept, [2]int{start, stop})
		}
	}

	parts := make([]string, 0, len(kept))
	for _, span := range kept {
		parts = append(parts, strings.TrimRight(string(source[span[0]:span[1]]), "\n"))
	}
	return strings.Join(parts, "\n\n"), title, headings
}

// nodeSpan computes the full source line range covered by a block node,
// including nested children (list items, block quotes).
func nodeSpan(node ast.Node, source []byte) (start, stop int, ok bool) {
	start, stop = len(source), 0

	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		// Lines is only defined for block nodes; inline nodes panic.
		if n.Type() != ast.TypeBlock {
			return
		}
		lines := n.Lines()
		if lines != nil {
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				if segment.Start < start {
					start = segment.Start
				}
				if segment.Stop > stop {
					stop = segment.Stop
				}
			}
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(node)

	if stop <= start {
		return 0, 0, false
	}
	// Widen to whole lines so heading markers and list bullets survive
	// reassembly (segments exclude leading syntax).
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	for stop < len(source) && source[stop-1] != '\n' {
		stop++
	}
	return start, stop, true
}

// nodeText collects the raw text content of a node's inline children.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder

	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if text, isText := n.(*ast.Text); isText {
			sb.Write(text.Segment.Value(source))
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(node)

	return sb.String()
}
