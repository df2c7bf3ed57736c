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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// Stage names a step of the ingestion state machine.
type Stage string

const (
	StageReceived      Stage = "RECEIVED"
	StageContentStored Stage = "CONTENT_STORED"
	StageExtracted     Stage = "EXTRACTED"
	StageDerived       Stage = "DERIVED"
	StageRetrievable   Stage = "RETRIEVABLE"
)

// Orchestrator drives one file through the ingestion state machine:
//
//	RECEIVED -> CONTENT_STORED -> EXTRACTED -> DERIVED -> RETRIEVABLE
//
// Any failure past the content write triggers compensation: derived
// artifacts for the UID are deleted, the metadata record is kept with
// Retrievable=false and a LastError annotation, and the raw content is
// kept so a retry does not need a re-upload. There is no transaction
// across the three stores; this state machine and its compensation are
// the only consistency mechanism.
//
// Stage sequences for the same UID are serialized with a per-UID lock.
// Different UIDs proceed fully in parallel.
type Orchestrator struct {
	registry *Registry
	content  storage.ContentStore
	metadata storage.MetadataStore
	vectors  storage.VectorStore
	tabular  storage.TabularStore
	locks    sync.Map // core.UID -> *sync.Mutex
	logger   *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an ingestion orchestrator over the given
// registry and stores.
func NewOrchestrator(
	registry *Registry,
	content storage.ContentStore,
	metadata storage.MetadataStore,
	vectors storage.VectorStore,
	tabular storage.TabularStore,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if metadata == nil {
		return nil, ErrMetadataStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if tabular == nil {
		return nil, ErrTabularStoreRequired
	}

	o := &Orchestrator{
		registry: registry,
		content:  content,
		metadata: metadata,
		vectors:  vectors,
		tabular:  tabular,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	Uid      core.UID
	Document *core.Document
	// AlreadyIngested is true when the content was found retrievable
	// before any work was done.
	AlreadyIngested bool
	Chunks          int
	Rows            int
}

// Ingest runs one file through the full state machine. The UID is derived
// from the raw bytes, so byte-identical uploads are idempotent: a second
// upload short-circuits once the first is retrievable. extraMetadata is
// merged into the document record and must not use reserved keys.
func (o *Orchestrator) Ingest(ctx context.Context, filename string, raw []byte, extraMetadata map[string]string) (*IngestResult, error) {
	if filename == "" {
		return nil, core.ErrEmptyFilename
	}
	if len(raw) == 0 {
		return nil, ErrEmptyContent
	}
	for key := range extraMetadata {
		if core.IsReservedMetadataKey(key) {
			return nil, core.ErrReservedMetadataKey
		}
	}

	extension := core.NormalizeExtension(filepath.Ext(filename))
	input, err := o.registry.ResolveInput(extension)
	if err != nil {
		// Rejected before any store is touched.
		return nil, err
	}

	uid := core.UIDFromContent(raw)
	logger := o.logger.With(slog.Uint64("uid", uint64(uid)), slog.String("filename", filename))

	unlock := o.lock(uid)
	defer unlock()

	existing, err := o.metadata.GetDocument(ctx, uid)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Retrievable {
		if existing.Filename != filename {
			// Same bytes under a new name: last writer wins on the name.
			existing.Filename = filename
			existing.Extension = extension
			if existing, err = o.metadata.UpsertDocument(ctx, existing); err != nil {
				return nil, err
			}
		}
		logger.Debug("content already retrievable, short-circuiting")
		chunks, rows, err := o.artifactCounts(ctx, uid)
		if err != nil {
			return nil, err
		}
		return &IngestResult{Uid: uid, Document: existing, AlreadyIngested: true, Chunks: chunks, Rows: rows}, nil
	}

	// RECEIVED -> CONTENT_STORED
	if err := o.content.PutContent(ctx, uid, raw); err != nil {
		return nil, &IngestionError{Uid: uid, Stage: StageContentStored, Cause: err}
	}

	doc := &core.Document{
		Uid:         uid,
		Filename:    filename,
		Extension:   extension,
		Size:        int64(len(raw)),
		ContentHash: core.ContentHash(raw),
		Retrievable: false,
	}

	// CONTENT_STORED -> EXTRACTED
	normalized, err := input.Extract(ctx, raw, filename)
	if err != nil {
		return nil, o.fail(ctx, logger, doc, StageExtracted, err)
	}

	doc.Metadata = mergeMetadata(normalized.Metadata, extraMetadata)
	stored, err := o.metadata.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, o.fail(ctx, logger, doc, StageExtracted, err)
	}
	doc = stored

	// EXTRACTED -> DERIVED
	output, err := o.registry.ResolveOutput(extension, normalized.Kind)
	if err != nil {
		return nil, o.fail(ctx, logger, doc, StageDerived, err)
	}
	if err := output.Process(ctx, uid, normalized); err != nil {
		return nil, o.fail(ctx, logger, doc, StageDerived, err)
	}

	// DERIVED -> RETRIEVABLE
	if err := o.metadata.SetRetrievable(ctx, uid, true); err != nil {
		return nil, o.fail(ctx, logger, doc, StageRetrievable, err)
	}
	doc.Retrievable = true
	doc.LastError = ""

	chunks, rows, err := o.artifactCounts(ctx, uid)
	if err != nil {
		return nil, err
	}

	logger.Info("document ingested",
		slog.String("processor", input.Name()),
		slog.Int("chunks", chunks),
		slog.Int("rows", rows))

	return &IngestResult{Uid: uid, Document: doc, Chunks: chunks, Rows: rows}, nil
}

// Delete removes every trace of a document: derived artifacts, the
// metadata record and the raw content. Deleting an unknown UID is not an
// error.
func (o *Orchestrator) Delete(ctx context.Context, uid core.UID) error {
	unlock := o.lock(uid)
	defer unlock()

	var errs []error
	if err := o.vectors.DeleteChunks(ctx, uid); err != nil {
		errs = append(errs, err)
	}
	if err := o.tabular.DeleteRows(ctx, uid); err != nil {
		errs = append(errs, err)
	}
	if err := o.metadata.DeleteDocument(ctx, uid); err != nil {
		errs = append(errs, err)
	}
	if err := o.content.DeleteContent(ctx, uid); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &ConsistencyError{Uid: uid, CompensationErr: errors.Join(errs...)}
	}
	o.logger.Info("document deleted", slog.Uint64("uid", uint64(uid)))
	return nil
}

// fail records the failure on the metadata record and compensates by
// deleting derived artifacts. Raw content is kept so a retry does not
// need the bytes again. Compensation runs exactly once per failure; if
// it cannot complete, the returned error is a *ConsistencyError.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, doc *core.Document, stage Stage, cause error) error {
	logger.Error("ingestion failed",
		slog.String("stage", string(stage)),
		slog.Any("err", cause))

	var errs []error
	if err := o.vectors.DeleteChunks(ctx, doc.Uid); err != nil {
		errs = append(errs, err)
	}
	if err := o.tabular.DeleteRows(ctx, doc.Uid); err != nil {
		errs = append(errs, err)
	}

	failed := *doc
	failed.Retrievable = false
	failed.LastError = time.Now().UTC().Format(time.RFC3339) + ": " + cause.Error()
	if _, err := o.metadata.UpsertDocument(ctx, &failed); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		consistency := &ConsistencyError{Uid: doc.Uid, Cause: cause, CompensationErr: errors.Join(errs...)}
		logger.Error("compensation failed, artifacts may be orphaned", slog.Any("err", consistency))
		return consistency
	}
	return &IngestionError{Uid: doc.Uid, Stage: stage, Cause: cause}
}

func (o *Orchestrator) artifactCounts(ctx context.Context, uid core.UID) (chunks, rows int, err error) {
	chunkSet, err := o.vectors.GetChunks(ctx, uid)
	if err != nil {
		return 0, 0, err
	}
	rowSet, err := o.tabular.GetRows(ctx, uid)
	if err != nil {
		return 0, 0, err
	}
	return len(chunkSet), len(rowSet), nil
}

// lock acquires the per-UID mutex and returns its release func. Locks are
// created on first use and kept for the process lifetime.
func (o *Orchestrator) lock(uid core.UID) func() {
	value, _ := o.locks.LoadOrStore(uid, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func mergeMetadata(extracted, extra map[string]string) map[string]string {
	if len(extracted) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(extracted)+len(extra))
	for key, value := range extracted {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	return merged
}
