package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fred-agent/knowledge-flow/core"
	"github.com/fred-agent/knowledge-flow/storage"
)

// TabularStore implements storage.TabularStore for BadgerDB.
type TabularStore struct {
	backend *Backend
}

var _ storage.TabularStore = (*TabularStore)(nil)

// NewTabularStore creates a tabular store on the given backend.
//
// Returns the storage.TabularStore interface to enforce abstraction.
func NewTabularStore(backend *Backend) (storage.TabularStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &TabularStore{backend: backend}, nil
}

// ReplaceRows atomically swaps the row set for a UID. Either all rows of the
// document are written or none are.
func (s *TabularStore) ReplaceRows(ctx context.Context, uid core.UID, rows []*core.TabularRecord) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	for i, row := range rows {
		if err := core.ValidateTabularRecord(row); err != nil {
			return err
		}
		if row.RowIndex != uint32(i) || row.DocumentUid != uid {
			return storage.ErrChunkSequence
		}
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deletePrefix(tx, makeRowPrefix(uid)); err != nil {
			return err
		}
		for _, row := range rows {
			key := makeRowKey(uid, row.RowIndex)
			if err := tx.Set(key, storage.MarshalTabularRecord(row)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteRows removes every row stored for a UID.
func (s *TabularStore) DeleteRows(ctx context.Context, uid core.UID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deletePrefix(tx, makeRowPrefix(uid)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRows returns the row set for a UID ordered by row index.
func (s *TabularStore) GetRows(ctx context.Context, uid core.UID) ([]*core.TabularRecord, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var rows []*core.TabularRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRowPrefix(uid)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var row *core.TabularRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				row, err = storage.UnmarshalTabularRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (s *TabularStore) Close() error {
	return nil
}
