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

package knowledgeflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fred-agent/knowledge-flow/ai"
	"github.com/fred-agent/knowledge-flow/ai/openai"
	"github.com/fred-agent/knowledge-flow/config"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/derive"
	"github.com/fred-agent/knowledge-flow/extract"
	"github.com/fred-agent/knowledge-flow/ingestion"
	"github.com/fred-agent/knowledge-flow/reindex"
	"github.com/fred-agent/knowledge-flow/search"
	"github.com/fred-agent/knowledge-flow/storage"
	"github.com/fred-agent/knowledge-flow/storage/badger"
)

// KnowledgeBase wires the stores, processors, orchestrator and searcher
// into one handle. It is the entry point for embedding the system into a
// host application; the CLI is a thin shell over it.
type KnowledgeBase struct {
	stores       *badger.Stores
	embedder     ai.Embedder
	registry     *ingestion.Registry
	orchestrator *ingestion.Orchestrator
	searcher     *search.Searcher
	logger       *slog.Logger
}

// Option configures a KnowledgeBase.
type Option func(*options)

type options struct {
	aiConfig        *ai.Config
	embedder        ai.Embedder
	chunkSize       int
	chunkOverlap    int
	outputOverrides map[string]string
	inMemory        bool
	logger          *slog.Logger
}

// WithAIConfig sets the embedding backend configuration.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) { o.aiConfig = cfg }
}

// WithEmbedder injects a pre-built embedder, bypassing the OpenAI
// adapter. Used by tests and by hosts with their own embedding stack.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) { o.embedder = embedder }
}

// WithSplitter tunes the chunk size and overlap of the vectorization
// splitter.
func WithSplitter(chunkSize, chunkOverlap int) Option {
	return func(o *options) {
		o.chunkSize = chunkSize
		o.chunkOverlap = chunkOverlap
	}
}

// WithOutputOverrides routes extensions to named output processors
// ("vectorization", "tabular", "empty"), overriding the kind defaults.
func WithOutputOverrides(overrides map[string]string) Option {
	return func(o *options) { o.outputOverrides = overrides }
}

// WithInMemoryStores runs without persistence.
func WithInMemoryStores() Option {
	return func(o *options) { o.inMemory = true }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open creates a KnowledgeBase over a database at filePath.
func Open(filePath string, opts ...Option) (*KnowledgeBase, error) {
	o := &options{
		aiConfig:     ai.DefaultConfig(),
		chunkSize:    derive.DefaultChunkSize,
		chunkOverlap: derive.DefaultChunkOverlap,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	var (
		stores *badger.Stores
		err    error
	)
	if o.inMemory {
		stores, err = badger.NewMemoryStores()
	} else {
		stores, err = badger.OpenStores(filePath)
	}
	if err != nil {
		return nil, err
	}

	embedder := o.embedder
	if embedder == nil {
		embedder, err = openai.NewRetryingEmbedder(o.aiConfig)
		if err != nil {
			stores.Close()
			return nil, err
		}
	}

	registry, err := buildRegistry(stores, embedder, o)
	if err != nil {
		stores.Close()
		return nil, err
	}

	orchestrator, err := ingestion.NewOrchestrator(
		registry, stores.Content, stores.Metadata, stores.Vector, stores.Tabular,
		ingestion.WithLogger(o.logger))
	if err != nil {
		stores.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(
		stores.Metadata, stores.Vector, stores.Content, embedder,
		search.WithLogger(o.logger))
	if err != nil {
		stores.Close()
		return nil, err
	}

	return &KnowledgeBase{
		stores:       stores,
		embedder:     embedder,
		registry:     registry,
		orchestrator: orchestrator,
		searcher:     searcher,
		logger:       o.logger,
	}, nil
}

// OpenFromConfig creates a KnowledgeBase from a loaded application
// configuration.
func OpenFromConfig(cfg *config.AppConfig, opts ...Option) (*KnowledgeBase, error) {
	fromConfig := []Option{
		WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithAPIToken(cfg.Embedding.APIToken),
			ai.WithBatchSize(cfg.Embedding.BatchSize),
		)),
		WithSplitter(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap),
		WithOutputOverrides(cfg.Ingestion.OutputOverrides),
	}
	if cfg.Store.InMemory {
		fromConfig = append(fromConfig, WithInMemoryStores())
	}
	return Open(cfg.Store.Path, append(fromConfig, opts...)...)
}

// buildRegistry registers every input processor and the output routing.
func buildRegistry(stores *badger.Stores, embedder ai.Embedder, o *options) (*ingestion.Registry, error) {
	registry := ingestion.NewRegistry()

	registry.RegisterInput(".md", extract.NewMarkdownProcessor())
	registry.RegisterInput(".markdown", extract.NewMarkdownProcessor())
	registry.RegisterInput(".txt", extract.NewTextProcessor())
	registry.RegisterInput(".pdf", extract.NewPdfProcessor())
	registry.RegisterInput(".docx", extract.NewDocxProcessor())
	registry.RegisterInput(".pptx", extract.NewPptxProcessor())
	registry.RegisterInput(".csv", extract.NewCsvProcessor())
	registry.RegisterInput(".xlsm", extract.NewSpreadsheetMacroProcessor())

	splitter := derive.NewRecursiveSplitter(o.chunkSize, o.chunkOverlap)
	vectorization := derive.NewVectorizationProcessor(nil, splitter, embedder, stores.Vector, o.logger)
	tabular := derive.NewTabularProcessor(stores.Tabular, o.logger)

	registry.RegisterDefaultOutput(core.KindMarkdown, vectorization)
	registry.RegisterDefaultOutput(core.KindTabular, tabular)

	for extension, name := range o.outputOverrides {
		switch name {
		case "vectorization":
			registry.RegisterOutput(extension, vectorization)
		case "tabular":
			registry.RegisterOutput(extension, tabular)
		case "empty":
			registry.RegisterOutput(extension, derive.NewEmptyProcessor())
		default:
			return nil, fmt.Errorf("unknown output processor %q for extension %q", name, extension)
		}
	}
	return registry, nil
}

// Ingest runs one file through the ingestion pipeline.
func (kb *KnowledgeBase) Ingest(ctx context.Context, filename string, raw []byte, metadata map[string]string) (*ingestion.IngestResult, error) {
	return kb.orchestrator.Ingest(ctx, filename, raw, metadata)
}

// NewBulkIngester creates a worker-pool ingester over this knowledge
// base. The caller owns its Release.
func (kb *KnowledgeBase) NewBulkIngester(poolSize int) (*ingestion.BulkIngester, error) {
	return ingestion.NewBulkIngester(kb.orchestrator, poolSize, kb.logger)
}

// Search returns chunks similar to the query, with their documents.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, maxHits int) ([]*search.Result, error) {
	return kb.searcher.Search(ctx, query, maxHits)
}

// GetDocument returns a retrievable document's record.
func (kb *KnowledgeBase) GetDocument(ctx context.Context, uid core.UID) (*core.Document, error) {
	return kb.searcher.GetDocument(ctx, uid)
}

// GetContent returns a retrievable document's raw bytes.
func (kb *KnowledgeBase) GetContent(ctx context.Context, uid core.UID) ([]byte, error) {
	return kb.searcher.GetContent(ctx, uid)
}

// ListDocuments returns retrievable documents matching the filter.
func (kb *KnowledgeBase) ListDocuments(ctx context.Context, filter storage.ListFilter) ([]*core.Document, error) {
	return kb.searcher.ListDocuments(ctx, filter)
}

// ListAllDocuments includes failed and in-flight records.
func (kb *KnowledgeBase) ListAllDocuments(ctx context.Context, filter storage.ListFilter) ([]*core.Document, error) {
	return kb.searcher.ListAllDocuments(ctx, filter)
}

// SetRetrievable is the administrative visibility override.
func (kb *KnowledgeBase) SetRetrievable(ctx context.Context, uid core.UID, retrievable bool) error {
	return kb.searcher.SetRetrievable(ctx, uid, retrievable)
}

// Delete removes a document and every derived artifact.
func (kb *KnowledgeBase) Delete(ctx context.Context, uid core.UID) error {
	return kb.orchestrator.Delete(ctx, uid)
}

// Reindex re-embeds every retrievable document's chunks, writing
// progress to the given writer.
func (kb *KnowledgeBase) Reindex(ctx context.Context, progress io.Writer) error {
	reindexer := reindex.NewReindexer(kb.stores.Metadata, kb.stores.Vector, kb.embedder, nil, progress)
	return reindexer.Run(ctx)
}

// Registry exposes processor routing, mainly for inspection.
func (kb *KnowledgeBase) Registry() *ingestion.Registry {
	return kb.registry
}

// Close releases the stores and the backing database.
func (kb *KnowledgeBase) Close() error {
	return kb.stores.Close()
}
