// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger stores the registration in an embedded badger directory.
type Badger struct {
	db  *badger.DB
	key []byte
}

// NewBadger opens the badger directory at path.
func NewBadger(path, key string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger %s: %w", path, err)
	}
	return &Badger{db: db, key: []byte(key)}, nil
}

func (b *Badger) Load(context.Context) (Registration, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("store: badger load: %w", err)
	}
	return decode(data)
}

func (b *Badger) Save(_ context.Context, reg Registration) error {
	data, err := encode(reg)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
}

func (b *Badger) Close() error { return b.db.Close() }
