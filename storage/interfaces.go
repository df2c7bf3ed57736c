package storage

import (
	"context"

	"github.com/fred-agent/knowledge-flow/core"
)

// ListFilter narrows a MetadataStore listing. Zero value matches everything.
type ListFilter struct {
	// Extension restricts results to documents with this dispatch extension.
	Extension string
	// Retrievable, when non-nil, restricts results to documents with the
	// given retrievable flag.
	Retrievable *bool
}

// Matches reports whether doc passes the filter.
func (f ListFilter) Matches(doc *core.Document) bool {
	if f.Extension != "" && doc.Extension != f.Extension {
		return false
	}
	if f.Retrievable != nil && doc.Retrievable != *f.Retrievable {
		return false
	}
	return true
}

// ContentStore provides content-addressable persistence of raw file bytes.
// Implementations must be thread-safe and support concurrent access.
type ContentStore interface {
	// PutContent stores raw bytes under the given UID, overwriting any
	// previous entry.
	PutContent(ctx context.Context, uid core.UID, data []byte) error

	// GetContent retrieves the raw bytes for a UID.
	// Returns ErrNotFound if no entry exists.
	GetContent(ctx context.Context, uid core.UID) ([]byte, error)

	// DeleteContent removes the entry for a UID.
	// Deleting a missing entry is not an error.
	DeleteContent(ctx context.Context, uid core.UID) error

	// HasContent reports whether an entry exists for a UID.
	HasContent(ctx context.Context, uid core.UID) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// MetadataStore persists per-document descriptive records and the
// retrievability flag. Implementations must be thread-safe.
type MetadataStore interface {
	// UpsertDocument creates or replaces the record for doc.Uid.
	// Sets CreatedAt on first write and UpdatedAt on every write.
	UpsertDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document record by UID.
	// Returns ErrNotFound if the record doesn't exist.
	GetDocument(ctx context.Context, uid core.UID) (*core.Document, error)

	// SetRetrievable flips the retrievable flag for a UID and updates
	// UpdatedAt. Returns ErrNotFound if the record doesn't exist.
	SetRetrievable(ctx context.Context, uid core.UID, retrievable bool) error

	// DeleteDocument removes the record for a UID.
	// Deleting a missing record is not an error.
	DeleteDocument(ctx context.Context, uid core.UID) error

	// ListDocuments returns all records passing the filter, ordered by UID.
	ListDocuments(ctx context.Context, filter ListFilter) ([]*core.Document, error)

	// Close closes the store and releases resources.
	Close() error
}

// VectorStore persists embedded chunks keyed by (document UID, chunk id) and
// exposes a similarity-search surface. Implementations must be thread-safe.
type VectorStore interface {
	// ReplaceChunks atomically swaps the chunk set for a UID: any previously
	// stored chunks are deleted, then the new set is written. Chunk ids must
	// be contiguous from 0.
	ReplaceChunks(ctx context.Context, uid core.UID, chunks []*core.Chunk) error

	// DeleteChunks removes every chunk stored for a UID.
	// Deleting a missing set is not an error.
	DeleteChunks(ctx context.Context, uid core.UID) error

	// GetChunks returns the chunk set for a UID ordered by chunk id.
	// Returns an empty slice if none exist.
	GetChunks(ctx context.Context, uid core.UID) ([]*core.Chunk, error)

	// Search returns up to k chunks ordered by descending similarity to the
	// query vector, ties broken by chunk id ascending.
	Search(ctx context.Context, vector []float32, k int) ([]*core.ScoredChunk, error)

	// Close closes the store and releases resources.
	Close() error
}

// TabularStore persists normalized rows for tabular documents. Rows follow
// the same replace-on-reingest invariant as chunks.
type TabularStore interface {
	// ReplaceRows atomically swaps the row set for a UID.
	ReplaceRows(ctx context.Context, uid core.UID, rows []*core.TabularRecord) error

	// DeleteRows removes every row stored for a UID.
	// Deleting a missing set is not an error.
	DeleteRows(ctx context.Context, uid core.UID) error

	// GetRows returns the row set for a UID ordered by row index.
	GetRows(ctx context.Context, uid core.UID) ([]*core.TabularRecord, error)

	// Close closes the store and releases resources.
	Close() error
}
