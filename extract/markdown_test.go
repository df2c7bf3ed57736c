package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fred-agent/knowledge-flow/core"
)

func TestMarkdownProcessor_Basic(t *testing.T) {
	processor := NewMarkdownProcessor()
	assert.Equal(t, "markdown", processor.Name())
	assert.Equal(t, core.KindMarkdown, processor.Kind())

	raw := []byte("# Title\n\nSome body text.\n\n## Section\n\nMore text.\n")
	doc, err := processor.Extract(context.Background(), raw, "notes.md")
	require.NoError(t, err)

	assert.Equal(t, core.KindMarkdown, doc.Kind)
	assert.Contains(t, doc.Markdown, "# Title")
	assert.Contains(t, doc.Markdown, "Some body text.")
	assert.Contains(t, doc.Markdown, "## Section")
	assert.Equal(t, "Title", doc.Metadata["title"])
	assert.Equal(t, "2", doc.Metadata["heading_count"])
	assert.Empty(t, doc.Rows)
	assert.Empty(t, doc.Columns)
}

func TestMarkdownProcessor_StripsTableOfContents(t *testing.T) {
	processor := NewMarkdownProcessor()

	raw := []byte(strings.Join([]string{
		"# Report",
		"",
		"## Table of Contents",
		"",
		"- [Intro](#intro)",
		"- [Methods](#methods)",
		"- [Results](#results)",
		"",
		"## Intro",
		"",
		"The introduction paragraph.",
	}, "\n"))

	doc, err := processor.Extract(context.Background(), raw, "report.md")
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "## Intro")
	assert.Contains(t, doc.Markdown, "The introduction paragraph.")
	assert.NotContains(t, doc.Markdown, "Table of Contents")
	assert.NotContains(t, doc.Markdown, "[Intro](#intro)")
	assert.NotContains(t, doc.Markdown, "[Methods](#methods)")
	assert.NotContains(t, doc.Markdown, "[Results](#results)")
}

func TestMarkdownProcessor_TocHeadingVariants(t *testing.T) {
	processor := NewMarkdownProcessor()

	for _, heading := range []string{"Contents", "TOC", "Sommaire", "Table des matières"} {
		raw := []byte("## " + heading + "\n\n- entry one\n- entry two\n\n## Real\n\nkept\n")
		doc, err := processor.Extract(context.Background(), raw, "doc.md")
		require.NoError(t, err, heading)
		assert.NotContains(t, doc.Markdown, "entry one", heading)
		assert.Contains(t, doc.Markdown, "kept", heading)
	}
}

func TestMarkdownProcessor_InlineFormatting(t *testing.T) {
	processor := NewMarkdownProcessor()

	raw := []byte(strings.Join([]string{
		"# Guide",
		"",
		"Some *emphasized* text with a [link](https://example.com) and `code`.",
		"",
		"- item with **bold**",
		"- item with `inline code`",
		"",
		"> quoted *paragraph*",
	}, "\n"))

	doc, err := processor.Extract(context.Background(), raw, "guide.md")
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "*emphasized*")
	assert.Contains(t, doc.Markdown, "[link](https://example.com)")
	assert.Contains(t, doc.Markdown, "- item with **bold**")
	assert.Contains(t, doc.Markdown, "> quoted *paragraph*")
	assert.Equal(t, "Guide", doc.Metadata["title"])
}

func TestMarkdownProcessor_RejectsInvalidUTF8(t *testing.T) {
	processor := NewMarkdownProcessor()

	_, err := processor.Extract(context.Background(), []byte{0xff, 0xfe, 0x00}, "bad.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestTextProcessor(t *testing.T) {
	processor := NewTextProcessor()
	assert.Equal(t, core.KindMarkdown, processor.Kind())

	doc, err := processor.Extract(context.Background(), []byte("line one\nline two\nline three"), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "line one\nline two\nline three", doc.Markdown)
	assert.Equal(t, "3", doc.Metadata["line_count"])

	_, err = processor.Extract(context.Background(), []byte{0xc3, 0x28}, "bad.txt")
	assert.ErrorIs(t, err, ErrExtraction)
}
