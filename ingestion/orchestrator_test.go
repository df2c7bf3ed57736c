package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fred-agent/knowledge-flow/ai/mock"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/derive"
	"github.com/fred-agent/knowledge-flow/extract"
	"github.com/fred-agent/knowledge-flow/storage"
	"github.com/fred-agent/knowledge-flow/storage/badger"
)

type testEnv struct {
	stores       *badger.Stores
	embedder     *mock.MockEmbedder
	registry     *Registry
	orchestrator *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	embedder := mock.NewMockEmbedder()

	registry := NewRegistry()
	registry.RegisterInput(".md", extract.NewMarkdownProcessor())
	registry.RegisterInput(".txt", extract.NewTextProcessor())
	registry.RegisterInput(".csv", extract.NewCsvProcessor())
	registry.RegisterDefaultOutput(core.KindMarkdown,
		derive.NewVectorizationProcessor(nil, derive.NewRecursiveSplitter(80, 10), embedder, stores.Vector, nil))
	registry.RegisterDefaultOutput(core.KindTabular,
		derive.NewTabularProcessor(stores.Tabular, nil))

	orchestrator, err := NewOrchestrator(registry, stores.Content, stores.Metadata, stores.Vector, stores.Tabular)
	require.NoError(t, err)

	return &testEnv{stores: stores, embedder: embedder, registry: registry, orchestrator: orchestrator}
}

func markdownBody(paragraphs int) []byte {
	body := "# Report\n"
	for i := 0; i < paragraphs; i++ {
		body += fmt.Sprintf("\nParagraph %d talks about the state of the system at length.\n", i)
	}
	return []byte(body)
}

func TestIngest_MarkdownEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := markdownBody(5)
	result, err := env.orchestrator.Ingest(ctx, "report.md", raw, map[string]string{"source": "unit"})
	require.NoError(t, err)

	assert.Equal(t, core.UIDFromContent(raw), result.Uid)
	assert.False(t, result.AlreadyIngested)
	assert.Greater(t, result.Chunks, 0)
	assert.Zero(t, result.Rows)

	doc, err := env.stores.Metadata.GetDocument(ctx, result.Uid)
	require.NoError(t, err)
	assert.True(t, doc.Retrievable)
	assert.Equal(t, "report.md", doc.Filename)
	assert.Equal(t, ".md", doc.Extension)
	assert.Equal(t, int64(len(raw)), doc.Size)
	assert.Equal(t, core.ContentHash(raw), doc.ContentHash)
	assert.Equal(t, "unit", doc.Metadata["source"])
	assert.Equal(t, "Report", doc.Metadata["title"])
	assert.Empty(t, doc.LastError)

	chunks, err := env.stores.Vector.GetChunks(ctx, result.Uid)
	require.NoError(t, err)
	assert.Len(t, chunks, result.Chunks)

	query, err := env.embedder.EmbedText(ctx, chunks[0].Text)
	require.NoError(t, err)
	hits, err := env.stores.Vector.Search(ctx, query, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, result.Uid, hits[0].Chunk.DocumentUid)
}

func TestIngest_CsvEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := []byte("region,total\nnorth,10\nsouth,20\neast,30\n")
	result, err := env.orchestrator.Ingest(ctx, "data.csv", raw, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rows)
	assert.Zero(t, result.Chunks)

	rows, err := env.stores.Tabular.GetRows(ctx, result.Uid)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "north", rows[0].Fields["region"])
	assert.Equal(t, uint32(2), rows[2].RowIndex)

	doc, err := env.stores.Metadata.GetDocument(ctx, result.Uid)
	require.NoError(t, err)
	assert.True(t, doc.Retrievable)
}

func TestIngest_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := markdownBody(3)
	first, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.NoError(t, err)

	second, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Uid, second.Uid)
	assert.True(t, second.AlreadyIngested)
	assert.Equal(t, first.Chunks, second.Chunks)

	docs, err := env.stores.Metadata.ListDocuments(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngest_SameBytesNewFilename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := markdownBody(3)
	first, err := env.orchestrator.Ingest(ctx, "original.md", raw, nil)
	require.NoError(t, err)

	second, err := env.orchestrator.Ingest(ctx, "renamed.md", raw, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Uid, second.Uid)
	assert.True(t, second.AlreadyIngested)

	doc, err := env.stores.Metadata.GetDocument(ctx, first.Uid)
	require.NoError(t, err)
	assert.Equal(t, "renamed.md", doc.Filename)
}

func TestIngest_DistinctContentDistinctUids(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.orchestrator.Ingest(ctx, "a.md", markdownBody(2), nil)
	require.NoError(t, err)
	second, err := env.orchestrator.Ingest(ctx, "b.md", markdownBody(4), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Uid, second.Uid)

	docs, err := env.stores.Metadata.ListDocuments(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := []byte("binary blob")
	_, err := env.orchestrator.Ingest(ctx, "blob.zzz", raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	// Rejection happens before any write.
	exists, err := env.stores.Content.HasContent(ctx, core.UIDFromContent(raw))
	require.NoError(t, err)
	assert.False(t, exists)
	docs, err := env.stores.Metadata.ListDocuments(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_InputValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orchestrator.Ingest(ctx, "", []byte("x"), nil)
	assert.ErrorIs(t, err, core.ErrEmptyFilename)

	_, err = env.orchestrator.Ingest(ctx, "doc.md", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = env.orchestrator.Ingest(ctx, "doc.md", []byte("x"), map[string]string{"uid": "1"})
	assert.ErrorIs(t, err, core.ErrReservedMetadataKey)
}

func TestIngest_ExtractionFailureCompensates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	uid := core.UIDFromContent(raw)

	_, err := env.orchestrator.Ingest(ctx, "broken.md", raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtraction)

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageExtracted, ingErr.Stage)

	// Raw bytes are kept for retry, the record is kept non-retrievable
	// with the failure annotation, and no derived artifacts exist.
	exists, err := env.stores.Content.HasContent(ctx, uid)
	require.NoError(t, err)
	assert.True(t, exists)

	doc, err := env.stores.Metadata.GetDocument(ctx, uid)
	require.NoError(t, err)
	assert.False(t, doc.Retrievable)
	assert.NotEmpty(t, doc.LastError)

	chunks, err := env.stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	rows, err := env.stores.Tabular.GetRows(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestIngest_DerivationFailureCompensates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	raw := markdownBody(3)
	uid := core.UIDFromContent(raw)

	_, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, derive.ErrProcessing)

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, StageDerived, ingErr.Stage)

	doc, err := env.stores.Metadata.GetDocument(ctx, uid)
	require.NoError(t, err)
	assert.False(t, doc.Retrievable)
	assert.NotEmpty(t, doc.LastError)

	chunks, err := env.stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIngest_RetryAfterFailureSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	raw := markdownBody(3)
	_, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.Error(t, err)

	env.embedder.EmbedTextsFunc = nil

	result, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.NoError(t, err)
	assert.False(t, result.AlreadyIngested)
	assert.Greater(t, result.Chunks, 0)

	doc, err := env.stores.Metadata.GetDocument(ctx, result.Uid)
	require.NoError(t, err)
	assert.True(t, doc.Retrievable)
	assert.Empty(t, doc.LastError)

	chunks, err := env.stores.Vector.GetChunks(ctx, result.Uid)
	require.NoError(t, err)
	assert.Len(t, chunks, result.Chunks)
	for i, chunk := range chunks {
		assert.Equal(t, uint32(i), chunk.ChunkId)
	}
}

func TestIngest_ConcurrentSameContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := markdownBody(4)
	uid := core.UIDFromContent(raw)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	doc, err := env.stores.Metadata.GetDocument(ctx, uid)
	require.NoError(t, err)
	assert.True(t, doc.Retrievable)

	chunks, err := env.stores.Vector.GetChunks(ctx, uid)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, uint32(i), chunk.ChunkId)
	}

	docs, err := env.stores.Metadata.ListDocuments(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDelete_RemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := markdownBody(3)
	result, err := env.orchestrator.Ingest(ctx, "doc.md", raw, nil)
	require.NoError(t, err)

	require.NoError(t, env.orchestrator.Delete(ctx, result.Uid))

	exists, err := env.stores.Content.HasContent(ctx, result.Uid)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.stores.Metadata.GetDocument(ctx, result.Uid)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := env.stores.Vector.GetChunks(ctx, result.Uid)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Deleting again is a no-op.
	require.NoError(t, env.orchestrator.Delete(ctx, result.Uid))
}

func TestRegistry_OutputOverride(t *testing.T) {
	env := newTestEnv(t)

	// Route .txt to the no-op output instead of the kind default.
	env.registry.RegisterOutput(".txt", derive.NewEmptyProcessor())

	ctx := context.Background()
	result, err := env.orchestrator.Ingest(ctx, "keep.txt", []byte("stored but never chunked"), nil)
	require.NoError(t, err)

	assert.Zero(t, result.Chunks)
	assert.Zero(t, result.Rows)

	doc, err := env.stores.Metadata.GetDocument(ctx, result.Uid)
	require.NoError(t, err)
	assert.True(t, doc.Retrievable)
}

func TestRegistry_Resolution(t *testing.T) {
	registry := NewRegistry()
	markdown := extract.NewMarkdownProcessor()
	registry.RegisterInput("MD", markdown)

	resolved, err := registry.ResolveInput(".md")
	require.NoError(t, err)
	assert.Equal(t, markdown, resolved)

	_, err = registry.ResolveInput(".unknown")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = registry.ResolveOutput(".md", core.KindMarkdown)
	require.Error(t, err)

	empty := derive.NewEmptyProcessor()
	registry.RegisterDefaultOutput(core.KindMarkdown, empty)
	output, err := registry.ResolveOutput(".md", core.KindMarkdown)
	require.NoError(t, err)
	assert.Equal(t, empty, output)

	assert.True(t, registry.Supports("md"))
	assert.False(t, registry.Supports(".csv"))
	assert.ElementsMatch(t, []string{".md"}, registry.SupportedExtensions())
}
