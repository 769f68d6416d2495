package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// recommendation entries share a prefix so other keyspaces can coexist in
// the same store.
const keyPrefix = "rec:"

// BadgerStore implements Store on an embedded Badger database. Badger's
// committed transactions are immediately visible to subsequent reads, which
// gives the put-then-get guarantee the serving path relies on. Keys are
// written without TTL.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the on-disk store.
type BadgerOptions struct {
	Path string
	// InMemory keeps all data in RAM; used by tooling and tests.
	InMemory bool
}

// NewBadgerStore opens (creating if necessary) the store at opts.Path. The
// store is single-process: a second open on the same path fails on Badger's
// directory lock.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open recommendation store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), value)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
