package ingestion

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fred-agent/knowledge-flow/core"
)

// BulkResult is the outcome for one file of a bulk ingestion.
type BulkResult struct {
	Path            string
	Uid             core.UID
	AlreadyIngested bool
	Chunks          int
	Rows            int
	Err             error
}

// BulkIngester runs many files through the orchestrator over a worker
// pool. One failed file never aborts the batch; its error is recorded in
// the per-file result.
type BulkIngester struct {
	orchestrator *Orchestrator
	pool         *ants.Pool
	logger       *slog.Logger
}

// NewBulkIngester creates a bulk ingester. A non-positive poolSize
// defaults to half the CPU count, minimum 1.
func NewBulkIngester(orchestrator *Orchestrator, poolSize int, logger *slog.Logger) (*BulkIngester, error) {
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &BulkIngester{orchestrator: orchestrator, pool: pool, logger: logger}, nil
}

// IngestFiles ingests the given paths concurrently. Results come back in
// input order.
func (b *BulkIngester) IngestFiles(ctx context.Context, paths []string) []BulkResult {
	results := make([]BulkResult, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		i, path := i, path
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			results[i] = b.ingestOne(ctx, path)
		})
		if submitErr != nil {
			results[i] = BulkResult{Path: path, Err: submitErr}
			wg.Done()
		}
	}
	wg.Wait()

	return results
}

// IngestDirectory walks dir and ingests every regular file whose
// extension has a registered input processor. Unsupported files are
// skipped silently; read and ingestion failures are reported per file.
func (b *BulkIngester) IngestDirectory(ctx context.Context, dir string) ([]BulkResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !b.orchestrator.registry.Supports(filepath.Ext(path)) {
			b.logger.Debug("skipping unsupported file", slog.String("path", path))
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.IngestFiles(ctx, paths), nil
}

func (b *BulkIngester) ingestOne(ctx context.Context, path string) BulkResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BulkResult{Path: path, Err: err}
	}
	result, err := b.orchestrator.Ingest(ctx, filepath.Base(path), raw, nil)
	if err != nil {
		return BulkResult{Path: path, Err: err}
	}
	return BulkResult{
		Path:            path,
		Uid:             result.Uid,
		AlreadyIngested: result.AlreadyIngested,
		Chunks:          result.Chunks,
		Rows:            result.Rows,
	}
}

// Release shuts the worker pool down. The ingester must not be used
// afterwards.
func (b *BulkIngester) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
