package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v3"
	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
)

const keyPrefix = "fp/"

// BadgerStore persists entries in a badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a persisted store in dir. An empty
// dir opens an in-memory database, which tests use.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", dir, err)
	}
	opts.Logger = &badgerAdapter{logger: logger.With("component", "cache.badger")}
	opts.MemTableSize = 16 << 20
	opts.NumMemtables = 2
	opts.BlockCacheSize = 8 << 20
	opts.IndexCacheSize = 8 << 20
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func key(fp fingerprint.Fingerprint) []byte {
	return []byte(keyPrefix + fp.String())
}

func (b *BadgerStore) Lookup(_ context.Context, fp fingerprint.Fingerprint) (*resultstore.Record, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(fp))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup %s: %w", fp.Short(), err)
	}
	return decodeRecord(fp, data)
}

func (b *BadgerStore) Put(_ context.Context, rec *resultstore.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("cache store %s: %w", rec.Fingerprint.Short(), err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(rec.Fingerprint))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			// A corrupted entry is always replaced.
			if prev, derr := decodeRecord(rec.Fingerprint, old); derr == nil && !rec.CompletedAt.After(prev.CompletedAt) {
				return nil
			}
		}
		return txn.Set(key(rec.Fingerprint), data)
	})
}

// Close flushes and closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

type badgerAdapter struct {
	logger *slog.Logger
}

func (b *badgerAdapter) Errorf(format string, args ...interface{}) {
	b.logger.Error(fmt.Sprintf(format, args...))
}

func (b *badgerAdapter) Warningf(format string, args ...interface{}) {
	b.logger.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerAdapter) Infof(format string, args ...interface{}) {
	b.logger.Debug(fmt.Sprintf(format, args...))
}

func (b *badgerAdapter) Debugf(format string, args ...interface{}) {
}
