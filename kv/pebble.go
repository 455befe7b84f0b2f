package kv

import (
	"io"
	"os"

	"github.com/cockroachdb/pebble"

	"github.com/leftmike/litestore/flags"
)

type pebbleKV struct {
	db       *pebble.DB
	wo       *pebble.WriteOptions
	readOnly bool
}

type pebbleIterator struct {
	it    *pebble.Iterator
	first bool
}

func init() {
	Register("pebble", MakePebbleKV)
}

func MakePebbleKV(dataDir string, opts Options) (KV, error) {
	readOnly := opts.Flags.GetFlag(flags.ReadOnly)
	if !readOnly {
		err := os.MkdirAll(dataDir, 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := pebble.Open(dataDir,
		&pebble.Options{
			Logger:   opts.Logger,
			ReadOnly: readOnly,
		})
	if err != nil {
		return nil, err
	}

	wo := pebble.Sync
	if opts.Flags.GetFlag(flags.NoSync) {
		wo = pebble.NoSync
	}
	return &pebbleKV{
		db:       db,
		wo:       wo,
		readOnly: readOnly,
	}, nil
}

func (pkv *pebbleKV) Get(key []byte, fn func(val []byte) error) error {
	val, closer, err := pkv.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return io.EOF
		}
		return err
	}
	defer closer.Close()

	return fn(val)
}

func (pkv *pebbleKV) Set(key, val []byte) error {
	if pkv.readOnly {
		return ErrReadOnly
	}
	return pkv.db.Set(key, val, pkv.wo)
}

func (pkv *pebbleKV) Delete(key []byte) error {
	if pkv.readOnly {
		return ErrReadOnly
	}
	return pkv.db.Delete(key, pkv.wo)
}

func (pkv *pebbleKV) Iterate(prefix []byte) (Iterator, error) {
	it := pkv.db.NewIter(
		&pebble.IterOptions{
			LowerBound: copyBytes(prefix),
			UpperBound: PrefixEnd(prefix),
		})
	return &pebbleIterator{
		it:    it,
		first: true,
	}, nil
}

func (pkv *pebbleKV) Close() error {
	return pkv.db.Close()
}

func (pit *pebbleIterator) Item(fn func(key, val []byte) error) error {
	if pit.it == nil {
		return io.EOF
	}

	var ok bool
	if pit.first {
		ok = pit.it.First()
		pit.first = false
	} else {
		ok = pit.it.Next()
	}
	if !ok {
		err := pit.it.Error()
		if err != nil {
			return err
		}
		return io.EOF
	}

	return fn(pit.it.Key(), pit.it.Value())
}

func (pit *pebbleIterator) Close() {
	if pit.it != nil {
		pit.it.Close()
		pit.it = nil
	}
}
