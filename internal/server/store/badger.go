package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/filex"
)

// BadgerBackend stores records in an embedded Badger database under a
// local directory. This is the default engine.
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	if err := filex.EnsureDir(dir); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = false
	opts.ValueLogFileSize = 1024 * 1024 * 100

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db in %s: %w", dir, err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, nil
}

func (b *BadgerBackend) Set(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// ForEachKey walks the key space without prefetching values. fn runs
// outside the read transaction's value access, so it may issue its own
// reads and deletes.
func (b *BadgerBackend) ForEachKey(ctx context.Context, fn func(key string) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(string(it.Item().KeyCopy(nil))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Flush(context.Context) error {
	if err := b.db.Sync(); err != nil {
		return fmt.Errorf("syncing badger db: %w", err)
	}
	return nil
}

// Compact flattens the LSM tree and garbage-collects the value log.
// Badger reports ErrNoRewrite when there is nothing to collect; that is
// not a failure.
func (b *BadgerBackend) Compact(context.Context) error {
	if err := b.db.Flatten(runtime.NumCPU()); err != nil {
		return fmt.Errorf("flattening badger db: %w", err)
	}
	if err := b.db.RunValueLogGC(0.1); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("collecting badger value log: %w", err)
	}
	return nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
