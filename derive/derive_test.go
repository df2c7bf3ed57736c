package derive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fred-agent/knowledge-flow/ai/mock"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage/badger"
)

func TestTabularProcessor(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	processor := NewTabularProcessor(stores.Tabular, nil)
	ctx := context.Background()
	uid := core.UID(42)

	doc := &core.NormalizedDocument{
		Kind:    core.KindTabular,
		Columns: []string{"id", "name"},
		Rows: []core.TabularRow{
			{Fields: []string{"1", "alpha"}},
			{Fields: []string{"2"}},
			{Fields: []string{"3", "gamma", "spill"}},
		},
	}

	require.NoError(t, processor.Process(ctx, uid, doc))

	records, err := stores.Tabular.GetRows(ctx, uid)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint32(0), records[0].RowIndex)
	assert.Equal(t, map[string]string{"id": "1", "name": "alpha"}, records[0].Fields)
	// Short rows pad with empty values, long rows drop the spill.
	assert.Equal(t, map[string]string{"id": "2", "name": ""}, records[1].Fields)
	assert.Equal(t, map[string]string{"id": "3", "name": "gamma"}, records[2].Fields)
}

func TestTabularProcessor_Replaces(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	processor := NewTabularProcessor(stores.Tabular, nil)
	ctx := context.Background()
	uid := core.UID(7)

	first := &core.NormalizedDocument{
		Kind:    core.KindTabular,
		Columns: []string{"v"},
		Rows:    []core.TabularRow{{Fields: []string{"a"}}, {Fields: []string{"b"}}},
	}
	require.NoError(t, processor.Process(ctx, uid, first))

	second := &core.NormalizedDocument{
		Kind:    core.KindTabular,
		Columns: []string{"v"},
		Rows:    []core.TabularRow{{Fields: []string{"only"}}},
	}
	require.NoError(t, processor.Process(ctx, uid, second))

	records, err := stores.Tabular.GetRows(ctx, uid)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "only", records[0].Fields["v"])
}

func TestTabularProcessor_RejectsMarkdown(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	processor := NewTabularProcessor(stores.Tabular, nil)
	doc := &core.NormalizedDocument{Kind: core.KindMarkdown, Markdown: "text"}

	err = processor.Process(context.Background(), 1, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessing)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, StageLoad, procErr.Stage)
}

func TestRecursiveSplitter_Deterministic(t *testing.T) {
	splitter := NewRecursiveSplitter(100, 20)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)

	first, err := splitter.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := splitter.Split(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecursiveSplitter_Offsets(t *testing.T) {
	splitter := NewRecursiveSplitter(80, 0)
	text := "First paragraph with some words.\n\nSecond paragraph with more words.\n\nThird paragraph closes the document."

	fragments, err := splitter.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, fragments)

	for _, fragment := range fragments {
		require.LessOrEqual(t, int(fragment.End), len(text))
		require.Less(t, int(fragment.Start), int(fragment.End))
		assert.Equal(t, fragment.Text, text[fragment.Start:fragment.End])
	}
}

func TestVectorizationProcessor(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := mock.NewMockEmbedder()
	processor := NewVectorizationProcessor(nil, NewRecursiveSplitter(60, 10), embedder, stores.Vector, nil)

	ctx := context.Background()
	uid := core.UID(99)
	doc := &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: strings.Repeat("Sentences about the ingestion pipeline and its stores. ", 10),
	}

	require.NoError(t, processor.Process(ctx, uid, doc))

	chunks, err := stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, uint32(i), chunk.ChunkId)
		assert.Equal(t, uid, chunk.DocumentUid)
		assert.NotEmpty(t, chunk.Vector)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestVectorizationProcessor_Replaces(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := mock.NewMockEmbedder()
	processor := NewVectorizationProcessor(nil, NewRecursiveSplitter(60, 10), embedder, stores.Vector, nil)

	ctx := context.Background()
	uid := core.UID(5)

	long := &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: strings.Repeat("A long document body that splits into several chunks. ", 20),
	}
	require.NoError(t, processor.Process(ctx, uid, long))
	before, err := stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	require.Greater(t, len(before), 1)

	short := &core.NormalizedDocument{Kind: core.KindMarkdown, Markdown: "Tiny update."}
	require.NoError(t, processor.Process(ctx, uid, short))
	after, err := stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Tiny update.", after[0].Text)
}

func TestVectorizationProcessor_EmbedFailureWritesNothing(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("backend down")
	}

	processor := NewVectorizationProcessor(nil, nil, embedder, stores.Vector, nil)
	uid := core.UID(13)

	err = processor.Process(context.Background(), uid, &core.NormalizedDocument{
		Kind:     core.KindMarkdown,
		Markdown: "Some content that will never be embedded.",
	})
	require.Error(t, err)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, StageEmbed, procErr.Stage)

	chunks, err := stores.Vector.GetChunks(context.Background(), uid)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestVectorizationProcessor_EmptyText(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	processor := NewVectorizationProcessor(nil, nil, mock.NewMockEmbedder(), stores.Vector, nil)

	err = processor.Process(context.Background(), 1, &core.NormalizedDocument{Kind: core.KindMarkdown})
	require.Error(t, err)

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, StageLoad, procErr.Stage)
}

func TestEmptyProcessor(t *testing.T) {
	processor := NewEmptyProcessor()
	require.NoError(t, processor.Process(context.Background(), 1, &core.NormalizedDocument{}))
}
