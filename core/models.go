package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// UID is a unique identifier for documents.
// It is derived deterministically from the raw file content, so identical
// bytes ingested twice always resolve to the same document.
type UID uint64

// UIDFromContent derives a document UID from raw file bytes using BLAKE2b hashing.
func UIDFromContent(data []byte) UID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	sum := h.Sum(nil)
	return UID(binary.LittleEndian.Uint64(sum))
}

// ContentHash computes the full BLAKE2b-256 digest of raw file bytes as a
// lowercase hex string. Stored alongside the UID for audit purposes.
func ContentHash(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentKind classifies the normalized form a document was reduced to.
type DocumentKind int

const (
	// KindMarkdown indicates unified markdown/plain text output.
	KindMarkdown DocumentKind = iota + 1
	// KindTabular indicates structured row output.
	KindTabular
)

// ReservedMetadataKeys are owned by the ingestion pipeline. Input processors
// must not populate them.
var ReservedMetadataKeys = []string{"uid", "retrievable", "created_at", "updated_at"}

// Document is the persisted aggregate root representing one ingested file.
// Chunks and tabular records are owned by exactly one Document and never
// outlive it.
type Document struct {
	Uid         UID
	Filename    string
	Extension   string // lower-cased, with leading dot (".pdf")
	Size        int64
	ContentHash string
	// Retrievable is false while ingestion is in flight or has failed past
	// the content write. Read operations only surface retrievable documents.
	Retrievable bool
	// Metadata holds processor-specific fields (page count, title, author,
	// sheet names). Keys never collide with ReservedMetadataKeys.
	Metadata  map[string]string
	LastError string // annotation left by a failed ingestion, empty on success
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TabularRow is one normalized row produced by a tabular input processor.
type TabularRow struct {
	Fields []string
}

// NormalizedDocument is the transient output of an input processor. It is
// consumed once by the matching output processor and then discarded, never
// persisted as such.
type NormalizedDocument struct {
	Kind     DocumentKind
	Markdown string       // set when Kind == KindMarkdown
	Columns  []string     // set when Kind == KindTabular
	Rows     []TabularRow // set when Kind == KindTabular
	Metadata map[string]string
}

// Chunk is a slice of a document's text paired with its embedding vector.
// Chunk ids for a document are contiguous from 0; re-ingestion replaces the
// whole set, never appends to it.
type Chunk struct {
	DocumentUid UID
	ChunkId     uint32
	Text        string
	Vector      []float32
	// Start and End are byte offsets of the chunk within the normalized
	// document, kept for traceability.
	Start uint32
	End   uint32
}

// TabularRecord is one persisted row of a tabular document, tagged with its
// position. Same replace-on-reingest invariant as Chunk.
type TabularRecord struct {
	DocumentUid UID
	RowIndex    uint32
	Fields      map[string]string
}

// ScoredChunk is a chunk returned from similarity search with its score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}
