package kv

import (
	"bytes"
	"io"
	"os"

	"github.com/dgraph-io/badger"

	"github.com/leftmike/litestore/flags"
)

type badgerKV struct {
	db       *badger.DB
	readOnly bool
}

type badgerIterator struct {
	tx     *badger.Txn
	it     *badger.Iterator
	prefix []byte
}

func init() {
	Register("badger", MakeBadgerKV)
}

func MakeBadgerKV(dataDir string, opts Options) (KV, error) {
	readOnly := opts.Flags.GetFlag(flags.ReadOnly)
	if !readOnly {
		err := os.MkdirAll(dataDir, 0755)
		if err != nil {
			return nil, err
		}
	}

	bopts := badger.DefaultOptions(dataDir)
	bopts = bopts.WithLogger(opts.Logger)
	bopts = bopts.WithReadOnly(readOnly)
	bopts = bopts.WithSyncWrites(!opts.Flags.GetFlag(flags.NoSync))
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &badgerKV{
		db:       db,
		readOnly: readOnly,
	}, nil
}

func (bkv *badgerKV) Get(key []byte, fn func(val []byte) error) error {
	return bkv.db.View(
		func(tx *badger.Txn) error {
			item, err := tx.Get(key)
			if err != nil {
				if err == badger.ErrKeyNotFound {
					return io.EOF
				}
				return err
			}
			return item.Value(fn)
		})
}

func (bkv *badgerKV) Set(key, val []byte) error {
	if bkv.readOnly {
		return ErrReadOnly
	}
	return bkv.db.Update(
		func(tx *badger.Txn) error {
			return tx.Set(copyBytes(key), copyBytes(val))
		})
}

func (bkv *badgerKV) Delete(key []byte) error {
	if bkv.readOnly {
		return ErrReadOnly
	}
	return bkv.db.Update(
		func(tx *badger.Txn) error {
			return tx.Delete(copyBytes(key))
		})
}

func (bkv *badgerKV) Iterate(prefix []byte) (Iterator, error) {
	tx := bkv.db.NewTransaction(false)
	it := tx.NewIterator(badger.DefaultIteratorOptions)
	prefix = copyBytes(prefix)
	it.Seek(prefix)

	return &badgerIterator{
		tx:     tx,
		it:     it,
		prefix: prefix,
	}, nil
}

func (bkv *badgerKV) Close() error {
	return bkv.db.Close()
}

func (bit *badgerIterator) Item(fn func(key, val []byte) error) error {
	if bit.it == nil || !bit.it.Valid() {
		return io.EOF
	}

	item := bit.it.Item()
	key := item.Key()
	if !bytes.HasPrefix(key, bit.prefix) {
		return io.EOF
	}
	err := item.Value(
		func(val []byte) error {
			return fn(key, val)
		})
	if err != nil {
		return err
	}

	bit.it.Next()
	return nil
}

func (bit *badgerIterator) Close() {
	if bit.it != nil {
		bit.it.Close()
		bit.tx.Discard()
		bit.it = nil
	}
}
