package kv

import (
	"bytes"
	"io"

	"github.com/google/btree"

	"github.com/leftmike/litestore/flags"
)

type btreeKV struct {
	tree     *btree.BTree
	readOnly bool
}

// btreeIterator walks a clone of the tree, so writes made while iterating are not seen.
type btreeIterator struct {
	tree   *btree.BTree
	prefix []byte
	last   []byte
	done   bool
}

type btreeItem struct {
	key []byte
	val []byte
}

func (bi btreeItem) Less(item btree.Item) bool {
	bi2 := item.(btreeItem)
	return bytes.Compare(bi.key, bi2.key) < 0
}

func init() {
	Register("memory", MakeBTreeKV)
}

// MakeBTreeKV returns an in memory backend; location is ignored.
func MakeBTreeKV(location string, opts Options) (KV, error) {
	return &btreeKV{
		tree:     btree.New(16),
		readOnly: opts.Flags.GetFlag(flags.ReadOnly),
	}, nil
}

func (bkv *btreeKV) Get(key []byte, fn func(val []byte) error) error {
	if bkv.tree == nil {
		return ErrClosed
	}
	item := bkv.tree.Get(btreeItem{key: key})
	if item == nil {
		return io.EOF
	}
	return fn(item.(btreeItem).val)
}

func (bkv *btreeKV) Set(key, val []byte) error {
	if bkv.tree == nil {
		return ErrClosed
	} else if bkv.readOnly {
		return ErrReadOnly
	}
	bkv.tree.ReplaceOrInsert(btreeItem{key: copyBytes(key), val: copyBytes(val)})
	return nil
}

func (bkv *btreeKV) Delete(key []byte) error {
	if bkv.tree == nil {
		return ErrClosed
	} else if bkv.readOnly {
		return ErrReadOnly
	}
	bkv.tree.Delete(btreeItem{key: key})
	return nil
}

func (bkv *btreeKV) Iterate(prefix []byte) (Iterator, error) {
	if bkv.tree == nil {
		return nil, ErrClosed
	}
	return &btreeIterator{
		tree:   bkv.tree.Clone(),
		prefix: copyBytes(prefix),
	}, nil
}

func (bkv *btreeKV) Close() error {
	bkv.tree = nil
	return nil
}

func (bit *btreeIterator) Item(fn func(key, val []byte) error) error {
	if bit.done {
		return io.EOF
	}

	start := bit.last
	if start == nil {
		start = bit.prefix
	}

	var found *btreeItem
	bit.tree.AscendGreaterOrEqual(btreeItem{key: start},
		func(item btree.Item) bool {
			bi := item.(btreeItem)
			if bit.last != nil && bytes.Equal(bi.key, bit.last) {
				return true
			}
			if bytes.HasPrefix(bi.key, bit.prefix) {
				found = &bi
			}
			return false
		})

	if found == nil {
		bit.done = true
		return io.EOF
	}
	bit.last = found.key
	return fn(found.key, found.val)
}

func (bit *btreeIterator) Close() {
	bit.done = true
	bit.tree = nil
}
