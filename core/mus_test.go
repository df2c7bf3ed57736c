package core

import (
	"testing"
	"time"
)

func TestDocumentMUS_RoundTrip(t *testing.T) {
	doc := Document{
		Uid:         UIDFromContent([]byte("report")),
		Filename:    "report.pdf",
		Extension:   ".pdf",
		Size:        2048,
		ContentHash: ContentHash([]byte("report")),
		Retrievable: true,
		Metadata:    map[string]string{"page_count": "2", "title": "Report"},
		CreatedAt:   time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
	}

	buf := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, buf)
	if n != len(buf) {
		t.Fatalf("Marshal wrote %d bytes, Size reported %d", n, len(buf))
	}

	got, n, err := DocumentMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if n != len(buf) {
		t.Errorf("Unmarshal consumed %d bytes, want %d", n, len(buf))
	}
	if got.Uid != doc.Uid || got.Filename != doc.Filename || got.Extension != doc.Extension {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if !got.Retrievable {
		t.Errorf("retrievable flag lost in round trip")
	}
	if got.Metadata["page_count"] != "2" || got.Metadata["title"] != "Report" {
		t.Errorf("metadata lost in round trip: %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) || !got.UpdatedAt.Equal(doc.UpdatedAt) {
		t.Errorf("timestamps lost in round trip: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestDocumentMUS_Deterministic(t *testing.T) {
	doc := Document{
		Uid:       1,
		Filename:  "data.csv",
		Extension: ".csv",
		Metadata:  map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}

	first := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, first)

	// Map iteration order varies; encoding must not.
	for i := 0; i < 10; i++ {
		again := make([]byte, DocumentMUS.Size(doc))
		DocumentMUS.Marshal(doc, again)
		if string(first) != string(again) {
			t.Fatalf("encoding is not deterministic")
		}
	}
}

func TestChunkMUS_RoundTrip(t *testing.T) {
	chunk := Chunk{
		DocumentUid: 99,
		ChunkId:     4,
		Text:        "the quick brown fox",
		Vector:      []float32{0.1, -0.5, 0.25},
		Start:       120,
		End:         139,
	}

	buf := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, buf)

	got, _, err := ChunkMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.DocumentUid != 99 || got.ChunkId != 4 || got.Text != chunk.Text {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Vector) != 3 || got.Vector[1] != -0.5 {
		t.Errorf("vector lost in round trip: %v", got.Vector)
	}
	if got.Start != 120 || got.End != 139 {
		t.Errorf("offsets lost in round trip: %d..%d", got.Start, got.End)
	}
}

func TestTabularRecordMUS_RoundTrip(t *testing.T) {
	record := TabularRecord{
		DocumentUid: 7,
		RowIndex:    9,
		Fields:      map[string]string{"city": "Paris", "population": "2102650"},
	}

	buf := make([]byte, TabularRecordMUS.Size(record))
	TabularRecordMUS.Marshal(record, buf)

	got, _, err := TabularRecordMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.DocumentUid != 7 || got.RowIndex != 9 {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.Fields["city"] != "Paris" {
		t.Errorf("fields lost in round trip: %v", got.Fields)
	}
}

func TestChunkMUS_TruncatedData(t *testing.T) {
	chunk := Chunk{DocumentUid: 1, ChunkId: 0, Text: "hello", Vector: []float32{1, 2, 3}}
	buf := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, buf)

	if _, _, err := ChunkMUS.Unmarshal(buf[:len(buf)/2]); err == nil {
		t.Errorf("Unmarshal of truncated data succeeded, want error")
	}
}
