package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// ContentStore implements storage.ContentStore for BadgerDB. Raw file bytes
// are stored verbatim under their content-derived UID.
type ContentStore struct {
	backend *Backend
}

var _ storage.ContentStore = (*ContentStore)(nil)

// NewContentStore creates a content store on the given backend.
//
// Returns the storage.ContentStore interface to enforce abstraction.
func NewContentStore(backend *Backend) (storage.ContentStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ContentStore{backend: backend}, nil
}

// PutContent stores raw bytes under the given UID.
func (s *ContentStore) PutContent(ctx context.Context, uid core.UID, data []byte) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeContentKey(uid), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetContent retrieves the raw bytes for a UID.
func (s *ContentStore) GetContent(ctx context.Context, uid core.UID) ([]byte, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var data []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeContentKey(uid))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteContent removes the entry for a UID. Missing entries are ignored.
func (s *ContentStore) DeleteContent(ctx context.Context, uid core.UID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeContentKey(uid)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// HasContent reports whether an entry exists for a UID.
func (s *ContentStore) HasContent(ctx context.Context, uid core.UID) (bool, error) {
	if s.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}
	exists := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeContentKey(uid))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// Close is a no-op; the shared backend owns the database handle.
func (s *ContentStore) Close() error {
	return nil
}
