package directories

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v2"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

// BadgerDirectory stores blobs as key-value pairs in an embedded badger database.
// Blob names map to keys, blob content to values; every operation runs in its
// own badger transaction.
type BadgerDirectory struct {
	db *badger.DB
}

// NewBadgerDirectory wraps an already opened badger database.
// The caller keeps ownership of the database and is responsible for closing it.
func NewBadgerDirectory(db *badger.DB) (*BadgerDirectory, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return &BadgerDirectory{db: db}, nil
}

// Write creates or overwrites the named blob.
func (d *BadgerDirectory) Write(_ context.Context, name string, data []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	})
}

// Read returns the content of the named blob.
func (d *BadgerDirectory) Read(_ context.Context, name string) ([]byte, error) {
	var data []byte

	viewErr := d.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(name))
		if getErr != nil {
			return getErr
		}

		value, valueErr := item.ValueCopy(nil)
		if valueErr != nil {
			return valueErr
		}

		data = value

		return nil
	})

	if errors.Is(viewErr, badger.ErrKeyNotFound) {
		return nil, errors.Join(eventstore.ErrBlobNotFound, viewErr)
	}
	if viewErr != nil {
		return nil, viewErr
	}

	return data, nil
}

// List enumerates all blob names. Values are not prefetched since only keys are needed.
func (d *BadgerDirectory) List(_ context.Context) ([]string, error) {
	names := make([]string, 0)

	viewErr := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().KeyCopy(nil)))
		}

		return nil
	})
	if viewErr != nil {
		return nil, viewErr
	}

	return names, nil
}

// Delete removes the named blob. Badger deletes are blind, so the key is
// looked up first to report missing blobs.
func (d *BadgerDirectory) Delete(_ context.Context, name string) error {
	updateErr := d.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get([]byte(name)); getErr != nil {
			return getErr
		}

		return txn.Delete([]byte(name))
	})

	if errors.Is(updateErr, badger.ErrKeyNotFound) {
		return errors.Join(eventstore.ErrBlobNotFound, updateErr)
	}

	return updateErr
}

// Ensure BadgerDirectory implements eventstore.BlobDirectory.
var _ eventstore.BlobDirectory = (*BadgerDirectory)(nil)
