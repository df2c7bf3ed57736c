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

package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fred-agent/knowledge-flow/ai"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// Config holds configuration for a reindex run.
type Config struct {
	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer re-embeds the chunk sets of every retrievable document, for
// use after an embedding model change. Chunk ids, texts and offsets are
// preserved; only the vectors change. Each document's chunk set is
// swapped as one replacement, so search stays consistent mid-run.
type Reindexer struct {
	metadata storage.MetadataStore
	vectors  storage.VectorStore
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(metadata storage.MetadataStore, vectors storage.VectorStore, embedder ai.Embedder, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reindexer{
		metadata: metadata,
		vectors:  vectors,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run re-embeds every retrievable document. A document that fails after
// retries aborts the run with its old vectors intact; already-reindexed
// documents keep their new ones.
func (r *Reindexer) Run(ctx context.Context) error {
	retrievable := true
	docs, err := r.metadata.ListDocuments(ctx, storage.ListFilter{Retrievable: &retrievable})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Fprintf(r.progress, "No retrievable documents found (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents\n", len(docs))

	tracker := NewProgressTracker(r.progress, len(docs), r.config.ReportInterval)
	tracker.Start()

	reindexed := 0
	for _, doc := range docs {
		if err := r.reindexDocument(ctx, doc.Uid); err != nil {
			return fmt.Errorf("failed to reindex %d (%s): %w", doc.Uid, doc.Filename, err)
		}
		reindexed++
		tracker.Update(reindexed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d documents in %v (%.1f documents/sec)\n",
		reindexed, elapsed.Round(time.Second), float64(reindexed)/elapsed.Seconds())
	return nil
}

func (r *Reindexer) reindexDocument(ctx context.Context, uid core.UID) error {
	chunks, err := r.vectors.GetChunks(ctx, uid)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		// Tabular and empty-derived documents have no chunk set.
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err = ai.RetryWithBackoff(ctx, func() error {
		var embErr error
		embeddings, embErr = r.embedder.EmbedTexts(ctx, texts)
		return embErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = embeddings[i]
	}
	return r.vectors.ReplaceChunks(ctx, uid, chunks)
}
