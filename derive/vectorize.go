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

package derive

import (
	"context"
	"log/slog"

	"github.com/fred-agent/knowledge-flow/ai"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// Loader materializes the text to be split for a document. The default
// loader reads the normalized markdown body; alternative loaders may go
// back to the raw content bytes for formats where the normalized form
// loses layout the splitter needs.
type Loader interface {
	Load(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) (string, error)
}

// MarkdownLoader returns the normalized markdown body as-is.
type MarkdownLoader struct{}

var _ Loader = (*MarkdownLoader)(nil)

func (MarkdownLoader) Load(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) (string, error) {
	return doc.Markdown, nil
}

// ContentLoader re-reads the raw bytes from the content store and treats
// them as text. Useful for plain-text formats where the original byte
// layout matters.
type ContentLoader struct {
	content storage.ContentStore
}

var _ Loader = (*ContentLoader)(nil)

// NewContentLoader creates a loader backed by the given content store.
func NewContentLoader(content storage.ContentStore) *ContentLoader {
	return &ContentLoader{content: content}
}

func (l *ContentLoader) Load(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) (string, error) {
	raw, err := l.content.GetContent(ctx, uid)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// VectorizationProcessor runs the load, split, embed, write sequence that
// turns a markdown document into an embedded chunk set. The chunk set is
// committed as a single replacement: either every chunk of the new split
// lands, or none do.
type VectorizationProcessor struct {
	loader   Loader
	splitter Splitter
	embedder ai.Embedder
	vectors  storage.VectorStore
	logger   *slog.Logger
}

var _ OutputProcessor = (*VectorizationProcessor)(nil)

// NewVectorizationProcessor creates the vectorization output processor.
// A nil loader defaults to MarkdownLoader, a nil splitter to the default
// recursive splitter.
func NewVectorizationProcessor(loader Loader, splitter Splitter, embedder ai.Embedder, vectors storage.VectorStore, logger *slog.Logger) *VectorizationProcessor {
	if loader == nil {
		loader = MarkdownLoader{}
	}
	if splitter == nil {
		splitter = NewRecursiveSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorizationProcessor{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
	}
}

func (p *VectorizationProcessor) Name() string { return "vectorization" }

func (p *VectorizationProcessor) Process(ctx context.Context, uid core.UID, doc *core.NormalizedDocument) error {
	text, err := p.loader.Load(ctx, uid, doc)
	if err != nil {
		return newProcessingError(p.Name(), StageLoad, err)
	}
	if text == "" {
		return processingErrorf(p.Name(), StageLoad, "document has no text content")
	}

	fragments, err := p.splitter.Split(text)
	if err != nil {
		return newProcessingError(p.Name(), StageSplit, err)
	}
	if len(fragments) == 0 {
		return processingErrorf(p.Name(), StageSplit, "splitter produced no fragments")
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}

	// One failed sub-batch fails the whole document. Partial chunk sets
	// are worse than none for retrieval, so nothing is written until
	// every fragment has a vector.
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return newProcessingError(p.Name(), StageEmbed, err)
	}
	if len(vectors) != len(fragments) {
		return processingErrorf(p.Name(), StageEmbed,
			"embedder returned %d vectors for %d fragments", len(vectors), len(fragments))
	}

	chunks := make([]*core.Chunk, len(fragments))
	for i, fragment := range fragments {
		chunks[i] = &core.Chunk{
			DocumentUid: uid,
			ChunkId:     uint32(i),
			Text:        fragment.Text,
			Vector:      vectors[i],
			Start:       fragment.Start,
			End:         fragment.End,
		}
	}

	if err := p.vectors.ReplaceChunks(ctx, uid, chunks); err != nil {
		return newProcessingError(p.Name(), StageWrite, err)
	}

	p.logger.Debug("stored chunk set",
		slog.Uint64("uid", uint64(uid)),
		slog.Int("chunks", len(chunks)))
	return nil
}
