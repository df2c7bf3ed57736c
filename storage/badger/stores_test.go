package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

func setupStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create in-memory stores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestContentStoreBasics(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	data := []byte("%PDF-1.7 raw document bytes")
	uid := core.UIDFromContent(data)

	exists, err := stores.Content.HasContent(ctx, uid)
	if err != nil {
		t.Fatalf("HasContent failed: %v", err)
	}
	if exists {
		t.Fatal("Expected no entry before put")
	}

	if err := stores.Content.PutContent(ctx, uid, data); err != nil {
		t.Fatalf("PutContent failed: %v", err)
	}

	got, err := stores.Content.GetContent(ctx, uid)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetContent returned different bytes")
	}

	if err := stores.Content.DeleteContent(ctx, uid); err != nil {
		t.Fatalf("DeleteContent failed: %v", err)
	}
	if _, err := stores.Content.GetContent(ctx, uid); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetContent after delete error = %v, want ErrNotFound", err)
	}
	// Deleting a missing entry is not an error
	if err := stores.Content.DeleteContent(ctx, uid); err != nil {
		t.Errorf("DeleteContent of missing entry failed: %v", err)
	}
}

func TestMetadataStoreUpsertAndRetrievable(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	doc := &core.Document{
		Uid:       42,
		Filename:  "report.pdf",
		Extension: ".pdf",
		Size:      1024,
		Metadata:  map[string]string{"page_count": "2"},
	}

	stored, err := stores.Metadata.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("UpsertDocument failed: %v", err)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be populated")
	}
	created := stored.CreatedAt

	got, err := stores.Metadata.GetDocument(ctx, 42)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Retrievable {
		t.Error("New document should not be retrievable")
	}
	if got.Metadata["page_count"] != "2" {
		t.Errorf("Metadata lost: %v", got.Metadata)
	}
	// The returned document and a later read must agree exactly, including
	// timestamp precision.
	if !got.CreatedAt.Equal(stored.CreatedAt) {
		t.Errorf("CreatedAt drifted between upsert and read: %v vs %v", stored.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("UpdatedAt drifted between upsert and read: %v vs %v", stored.UpdatedAt, got.UpdatedAt)
	}

	if err := stores.Metadata.SetRetrievable(ctx, 42, true); err != nil {
		t.Fatalf("SetRetrievable failed: %v", err)
	}
	got, err = stores.Metadata.GetDocument(ctx, 42)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if !got.Retrievable {
		t.Error("Expected retrievable after SetRetrievable(true)")
	}

	// Upsert of the same UID preserves CreatedAt
	doc.Filename = "renamed.pdf"
	stored, err = stores.Metadata.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("Second UpsertDocument failed: %v", err)
	}
	if !stored.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on upsert: %v vs %v", stored.CreatedAt, created)
	}

	if err := stores.Metadata.SetRetrievable(ctx, 999, true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetRetrievable on missing uid error = %v, want ErrNotFound", err)
	}
}

func TestMetadataStoreListFilter(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	docs := []*core.Document{
		{Uid: 1, Filename: "a.pdf", Extension: ".pdf", Retrievable: true},
		{Uid: 2, Filename: "b.csv", Extension: ".csv"},
		{Uid: 3, Filename: "c.pdf", Extension: ".pdf"},
	}
	for _, doc := range docs {
		if _, err := stores.Metadata.UpsertDocument(ctx, doc); err != nil {
			t.Fatalf("UpsertDocument failed: %v", err)
		}
	}

	all, err := stores.Metadata.ListDocuments(ctx, storage.ListFilter{})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(all))
	}
	// Ordered by UID
	if all[0].Uid != 1 || all[1].Uid != 2 || all[2].Uid != 3 {
		t.Errorf("Listing not ordered by UID: %v %v %v", all[0].Uid, all[1].Uid, all[2].Uid)
	}

	pdfs, err := stores.Metadata.ListDocuments(ctx, storage.ListFilter{Extension: ".pdf"})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(pdfs) != 2 {
		t.Errorf("Expected 2 pdf documents, got %d", len(pdfs))
	}

	retrievable := true
	visible, err := stores.Metadata.ListDocuments(ctx, storage.ListFilter{Retrievable: &retrievable})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(visible) != 1 || visible[0].Uid != 1 {
		t.Errorf("Retrievable filter returned %d documents", len(visible))
	}
}

func makeChunks(uid core.UID, texts []string, vectors [][]float32) []*core.Chunk {
	chunks := make([]*core.Chunk, len(texts))
	for i := range texts {
		chunks[i] = &core.Chunk{
			DocumentUid: uid,
			ChunkId:     uint32(i),
			Text:        texts[i],
			Vector:      vectors[i],
		}
	}
	return chunks
}

func TestVectorStoreReplaceAndSearch(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	chunks := makeChunks(7,
		[]string{"alpha", "beta", "gamma"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err := stores.Vector.ReplaceChunks(ctx, 7, chunks); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	results, err := stores.Vector.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "beta" {
		t.Errorf("Expected best match 'beta', got %q", results[0].Chunk.Text)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("Results not ordered by descending score")
	}
}

func TestVectorStoreSearchTieBreak(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	// Identical vectors -> identical scores; order must fall back to chunk id.
	same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	chunks := makeChunks(5, []string{"c0", "c1", "c2"}, same)
	if err := stores.Vector.ReplaceChunks(ctx, 5, chunks); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	results, err := stores.Vector.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for i, res := range results {
		if res.Chunk.ChunkId != uint32(i) {
			t.Errorf("Tie-break ordering wrong at %d: chunk id %d", i, res.Chunk.ChunkId)
		}
	}
}

func TestVectorStoreReplaceNotAccumulate(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	first := makeChunks(9,
		[]string{"one", "two", "three"},
		[][]float32{{1}, {1}, {1}})
	if err := stores.Vector.ReplaceChunks(ctx, 9, first); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	second := makeChunks(9, []string{"updated"}, [][]float32{{1}})
	if err := stores.Vector.ReplaceChunks(ctx, 9, second); err != nil {
		t.Fatalf("Second ReplaceChunks failed: %v", err)
	}

	got, err := stores.Vector.GetChunks(ctx, 9)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected replacement to leave 1 chunk, got %d", len(got))
	}
	if got[0].Text != "updated" {
		t.Errorf("Expected new chunk set, got %q", got[0].Text)
	}
}

func TestVectorStoreRejectsGappedIds(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	chunks := []*core.Chunk{
		{DocumentUid: 3, ChunkId: 0, Text: "a", Vector: []float32{1}},
		{DocumentUid: 3, ChunkId: 2, Text: "b", Vector: []float32{1}},
	}
	err := stores.Vector.ReplaceChunks(ctx, 3, chunks)
	if !errors.Is(err, storage.ErrChunkSequence) {
		t.Errorf("ReplaceChunks with gapped ids error = %v, want ErrChunkSequence", err)
	}
}

func TestTabularStoreBasics(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	rows := make([]*core.TabularRecord, 10)
	for i := range rows {
		rows[i] = &core.TabularRecord{
			DocumentUid: 11,
			RowIndex:    uint32(i),
			Fields:      map[string]string{"n": string(rune('0' + i))},
		}
	}
	if err := stores.Tabular.ReplaceRows(ctx, 11, rows); err != nil {
		t.Fatalf("ReplaceRows failed: %v", err)
	}

	got, err := stores.Tabular.GetRows(ctx, 11)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("Expected 10 rows, got %d", len(got))
	}
	for i, row := range got {
		if row.RowIndex != uint32(i) {
			t.Errorf("Row %d has index %d", i, row.RowIndex)
		}
	}

	if err := stores.Tabular.DeleteRows(ctx, 11); err != nil {
		t.Fatalf("DeleteRows failed: %v", err)
	}
	got, err = stores.Tabular.GetRows(ctx, 11)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no rows after delete, got %d", len(got))
	}
}
