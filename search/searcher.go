package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fred-agent/knowledge-flow/ai"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// Searcher is the read boundary of the knowledge base. It only surfaces
// documents whose ingestion fully committed: a document mid-ingestion or
// failed is invisible here, so a polling reader sees either nothing or
// the complete result.
type Searcher struct {
	metadata storage.MetadataStore
	vectors  storage.VectorStore
	content  storage.ContentStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a searcher over the given stores and embedder.
func NewSearcher(
	metadata storage.MetadataStore,
	vectors storage.VectorStore,
	content storage.ContentStore,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if metadata == nil {
		return nil, ErrMetadataStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		metadata: metadata,
		vectors:  vectors,
		content:  content,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Result is one search hit: a chunk, its similarity score and the
// document it belongs to.
type Result struct {
	Chunk    *core.Chunk
	Score    float32
	Document *core.Document
}

// Search embeds the query and returns up to maxHits chunks ranked by
// similarity. Chunks of non-retrievable documents are dropped.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, nil)
}

// SearchWithMonitor is Search with observation hooks for each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		maxHits = 10
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error embedding query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(embedding)

	// Over-fetch so hits dropped for retrievability still leave maxHits
	// results when possible.
	hits, err := s.vectors.Search(ctx, embedding, maxHits*2)
	if err != nil {
		s.logger.Error("error searching vectors", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(hits)

	documents := make(map[core.UID]*core.Document)
	results := make([]*Result, 0, min(len(hits), maxHits))
	for _, hit := range hits {
		if len(results) == maxHits {
			break
		}
		uid := hit.Chunk.DocumentUid
		doc, cached := documents[uid]
		if !cached {
			doc, err = s.metadata.GetDocument(ctx, uid)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			documents[uid] = doc
		}
		if doc == nil || !doc.Retrievable {
			monitor.DroppedUnretrievable(uid)
			continue
		}
		results = append(results, &Result{Chunk: hit.Chunk, Score: hit.Score, Document: doc})
	}

	monitor.Finish(results)
	return results, nil
}

// GetDocument returns a retrievable document's record. Records of
// in-flight or failed ingestions answer ErrNotFound.
func (s *Searcher) GetDocument(ctx context.Context, uid core.UID) (*core.Document, error) {
	doc, err := s.metadata.GetDocument(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !doc.Retrievable {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// GetContent returns the raw bytes of a retrievable document.
func (s *Searcher) GetContent(ctx context.Context, uid core.UID) ([]byte, error) {
	if _, err := s.GetDocument(ctx, uid); err != nil {
		return nil, err
	}
	return s.content.GetContent(ctx, uid)
}

// ListDocuments returns retrievable documents matching the filter,
// ordered by UID. The retrievable side of the filter is forced.
func (s *Searcher) ListDocuments(ctx context.Context, filter storage.ListFilter) ([]*core.Document, error) {
	retrievable := true
	filter.Retrievable = &retrievable
	return s.metadata.ListDocuments(ctx, filter)
}

// ListAllDocuments is the administrative listing: no retrievability
// forcing, so failed and in-flight records show up too.
func (s *Searcher) ListAllDocuments(ctx context.Context, filter storage.ListFilter) ([]*core.Document, error) {
	return s.metadata.ListDocuments(ctx, filter)
}

// SetRetrievable is the administrative override of a document's
// visibility. Flipping an incompletely ingested document to true breaks
// the read boundary's guarantee; it is the operator's call.
func (s *Searcher) SetRetrievable(ctx context.Context, uid core.UID, retrievable bool) error {
	s.logger.Warn("administrative retrievability override",
		slog.Uint64("uid", uint64(uid)),
		slog.Bool("retrievable", retrievable))
	return s.metadata.SetRetrievable(ctx, uid, retrievable)
}
