package kv

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.etcd.io/bbolt"

	"github.com/leftmike/litestore/flags"
)

const (
	bboltBatch = 64
)

var (
	litestoreBucket = []byte{'l', 'i', 't', 'e', 's', 't', 'o', 'r', 'e'}
)

type bboltKV struct {
	db *bbolt.DB
}

// bboltIterator reads a batch of items per read transaction so that no read transaction is
// left open while the caller writes to the same database.
type bboltIterator struct {
	db     *bbolt.DB
	prefix []byte
	last   []byte
	keys   [][]byte
	vals   [][]byte
	done   bool
}

func init() {
	Register("bbolt", MakeBBoltKV)
}

func MakeBBoltKV(path string, opts Options) (KV, error) {
	readOnly := opts.Flags.GetFlag(flags.ReadOnly)
	db, err := bbolt.Open(path, 0644,
		&bbolt.Options{
			Timeout:  opts.LockTimeout,
			ReadOnly: readOnly,
		})
	if err == bbolt.ErrTimeout {
		return nil, ErrLocked
	} else if err != nil {
		return nil, err
	}
	if opts.Flags.GetFlag(flags.NoSync) {
		// Dangerous, but about 100x faster.
		db.NoFreelistSync = true
		db.NoSync = true
	}

	if readOnly {
		err = db.View(
			func(tx *bbolt.Tx) error {
				if tx.Bucket(litestoreBucket) == nil {
					return errors.New("bbolt: missing litestore bucket")
				}
				return nil
			})
	} else {
		err = db.Update(
			func(tx *bbolt.Tx) error {
				_, err := tx.CreateBucketIfNotExists(litestoreBucket)
				return err
			})
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return bboltKV{
		db: db,
	}, nil
}

func (bkv bboltKV) view(fn func(bkt *bbolt.Bucket) error) error {
	return bkv.db.View(
		func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(litestoreBucket)
			if bkt == nil {
				return errors.New("bbolt: missing litestore bucket")
			}
			return fn(bkt)
		})
}

func (bkv bboltKV) update(fn func(bkt *bbolt.Bucket) error) error {
	err := bkv.db.Update(
		func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(litestoreBucket)
			if bkt == nil {
				return errors.New("bbolt: missing litestore bucket")
			}
			return fn(bkt)
		})
	if err == bbolt.ErrDatabaseReadOnly {
		return ErrReadOnly
	} else if err == bbolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}

func (bkv bboltKV) Get(key []byte, fn func(val []byte) error) error {
	err := bkv.view(
		func(bkt *bbolt.Bucket) error {
			val := bkt.Get(key)
			if val == nil {
				return io.EOF
			}
			return fn(val)
		})
	if err == bbolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}

func (bkv bboltKV) Set(key, val []byte) error {
	return bkv.update(
		func(bkt *bbolt.Bucket) error {
			return bkt.Put(key, val)
		})
}

func (bkv bboltKV) Delete(key []byte) error {
	return bkv.update(
		func(bkt *bbolt.Bucket) error {
			return bkt.Delete(key)
		})
}

func (bkv bboltKV) Iterate(prefix []byte) (Iterator, error) {
	return &bboltIterator{
		db:     bkv.db,
		prefix: copyBytes(prefix),
	}, nil
}

func (bkv bboltKV) Close() error {
	return bkv.db.Close()
}

func (bit *bboltIterator) fill() error {
	bit.keys = bit.keys[:0]
	bit.vals = bit.vals[:0]

	err := bit.db.View(
		func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(litestoreBucket)
			if bkt == nil {
				return errors.New("bbolt: missing litestore bucket")
			}
			cr := bkt.Cursor()

			var key, val []byte
			if bit.last == nil {
				key, val = cr.Seek(bit.prefix)
			} else {
				key, val = cr.Seek(bit.last)
				if key != nil && bytes.Equal(key, bit.last) {
					key, val = cr.Next()
				}
			}

			for key != nil && len(bit.keys) < bboltBatch {
				if !bytes.HasPrefix(key, bit.prefix) {
					bit.done = true
					break
				}
				bit.keys = append(bit.keys, copyBytes(key))
				bit.vals = append(bit.vals, copyBytes(val))
				key, val = cr.Next()
			}
			if key == nil {
				bit.done = true
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("bbolt: iterate failed: %w", err)
	}

	if len(bit.keys) > 0 {
		bit.last = bit.keys[len(bit.keys)-1]
	}
	return nil
}

func (bit *bboltIterator) Item(fn func(key, val []byte) error) error {
	if len(bit.keys) == 0 {
		if bit.done {
			return io.EOF
		}
		err := bit.fill()
		if err != nil {
			return err
		}
		if len(bit.keys) == 0 {
			return io.EOF
		}
	}

	key, val := bit.keys[0], bit.vals[0]
	bit.keys = bit.keys[1:]
	bit.vals = bit.vals[1:]
	return fn(key, val)
}

func (bit *bboltIterator) Close() {
	bit.keys = nil
	bit.vals = nil
	bit.done = true
}
