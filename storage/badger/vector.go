package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB. Chunks are stored
// under composite (uid, chunkId) keys; similarity search scans all chunk
// entries and scores them with a dot product, matching the scale this backend
// is meant for (single-tenant knowledge bases).
type VectorStore struct {
	backend *Backend
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on the given backend.
//
// Returns the storage.VectorStore interface to enforce abstraction.
func NewVectorStore(backend *Backend) (storage.VectorStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &VectorStore{backend: backend}, nil
}

// ReplaceChunks atomically swaps the chunk set for a UID. The previous set is
// deleted in the same transaction that writes the new one, so readers never
// observe a mixed or partial set.
func (s *VectorStore) ReplaceChunks(ctx context.Context, uid core.UID, chunks []*core.Chunk) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.ChunkId != uint32(i) || chunk.DocumentUid != uid {
			return storage.ErrChunkSequence
		}
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deletePrefix(tx, makeChunkPrefix(uid)); err != nil {
			return err
		}
		for _, chunk := range chunks {
			key := makeChunkKey(uid, chunk.ChunkId)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteChunks removes every chunk stored for a UID.
func (s *VectorStore) DeleteChunks(ctx context.Context, uid core.UID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deletePrefix(tx, makeChunkPrefix(uid)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetChunks returns the chunk set for a UID ordered by chunk id.
func (s *VectorStore) GetChunks(ctx context.Context, uid core.UID) ([]*core.Chunk, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var chunks []*core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(uid)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Key order is (uid, chunkId) BigEndian, so iteration yields
		// chunk ids ascending.
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Search returns up to k chunks ordered by descending similarity to the query
// vector. Ties are broken by document UID, then chunk id ascending.
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]*core.ScoredChunk, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var results []*core.ScoredChunk

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			// Skip chunks awaiting re-embedding
			if len(chunk.Vector) == 0 {
				continue
			}
			results = append(results, &core.ScoredChunk{
				Chunk: chunk,
				Score: dotProduct(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.DocumentUid != b.Chunk.DocumentUid {
			if a.Chunk.DocumentUid < b.Chunk.DocumentUid {
				return -1
			}
			return 1
		}
		return int(a.Chunk.ChunkId) - int(b.Chunk.ChunkId)
	})

	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *VectorStore) Close() error {
	return nil
}

// dotProduct calculates the dot product of two vectors.
// Embeddings are assumed normalized, making this cosine similarity.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// deletePrefix removes all keys under a prefix within tx.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
