package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBulkIngester_RequiresOrchestrator(t *testing.T) {
	_, err := NewBulkIngester(nil, 2, nil)
	assert.ErrorIs(t, err, ErrOrchestratorRequired)
}

func TestBulkIngester_Directory(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.md"), markdownBody(2), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.md"), markdownBody(3), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "table.csv"), []byte("a,b\n1,2\n"), 0o644))
	// Unsupported extension, skipped during the walk.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))
	// Supported extension but broken content, fails in isolation.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte{0xff, 0xfe}, 0o644))

	ingester, err := NewBulkIngester(env.orchestrator, 4, nil)
	require.NoError(t, err)
	defer ingester.Release()

	results, err := ingester.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	succeeded, failed := 0, 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			assert.Equal(t, "broken.md", filepath.Base(result.Path))
			continue
		}
		succeeded++
		assert.NotZero(t, result.Uid)
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 1, failed)
}

func TestBulkIngester_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.md"), markdownBody(2), 0o644))

	ingester, err := NewBulkIngester(env.orchestrator, 0, nil)
	require.NoError(t, err)
	defer ingester.Release()

	first, err := ingester.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, first[0].Err)
	assert.False(t, first[0].AlreadyIngested)

	second, err := ingester.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.NoError(t, second[0].Err)
	assert.True(t, second[0].AlreadyIngested)
	assert.Equal(t, first[0].Uid, second[0].Uid)
}
