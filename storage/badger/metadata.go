package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// MetadataStore implements storage.MetadataStore for BadgerDB.
type MetadataStore struct {
	backend *Backend
}

var _ storage.MetadataStore = (*MetadataStore)(nil)

// NewMetadataStore creates a metadata store on the given backend.
//
// Returns the storage.MetadataStore interface to enforce abstraction.
func NewMetadataStore(backend *Backend) (storage.MetadataStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &MetadataStore{backend: backend}, nil
}

// UpsertDocument creates or replaces the record for doc.Uid.
// CreatedAt is preserved from an existing record; UpdatedAt is always bumped.
func (s *MetadataStore) UpsertDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		// Timestamps persist at microsecond precision; truncate here so the
		// returned document matches every later read byte for byte.
		now := time.Now().UTC().Truncate(time.Microsecond)
		old, err := s.readDocument(tx, doc.Uid)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if old != nil {
			doc.CreatedAt = old.CreatedAt
		} else if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		} else {
			doc.CreatedAt = doc.CreatedAt.UTC().Truncate(time.Microsecond)
		}
		doc.UpdatedAt = now

		if err := tx.Set(makeMetadataKey(doc.Uid), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document record by UID.
func (s *MetadataStore) GetDocument(ctx context.Context, uid core.UID) (*core.Document, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = s.readDocument(tx, uid)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SetRetrievable flips the retrievable flag for a UID.
func (s *MetadataStore) SetRetrievable(ctx context.Context, uid core.UID, retrievable bool) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := s.readDocument(tx, uid)
		if err != nil {
			return err
		}
		doc.Retrievable = retrievable
		doc.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		if err := tx.Set(makeMetadataKey(uid), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes the record for a UID. Missing records are ignored.
func (s *MetadataStore) DeleteDocument(ctx context.Context, uid core.UID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeMetadataKey(uid)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListDocuments returns all records passing the filter, ordered by UID.
func (s *MetadataStore) ListDocuments(ctx context.Context, filter storage.ListFilter) ([]*core.Document, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var docs []*core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metadataKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if filter.Matches(doc) {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *MetadataStore) Close() error {
	return nil
}

func (s *MetadataStore) readDocument(tx *badger.Txn, uid core.UID) (*core.Document, error) {
	item, err := tx.Get(makeMetadataKey(uid))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
