// Package kv provides the ordered byte-key, byte-value backends that the store is built on.
//
// A backend only needs per-call atomic writes; transactions over several keys are handled
// above this layer. Keys are iterated in ascending bytewise order.
package kv

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/flags"
)

const (
	defaultLockTimeout = time.Second
)

var (
	ErrReadOnly = errors.New("kv: backend is read only")
	ErrClosed   = errors.New("kv: backend is closed")
	ErrLocked   = errors.New("kv: backend is locked by another process")
)

type Iterator interface {
	// Item calls fn with the next key and value; it returns io.EOF when there are no more
	// items. key and val are only valid during the call to fn.
	Item(fn func(key, val []byte) error) error
	Close()
}

type KV interface {
	// Get calls fn with the value of key; it returns io.EOF if key is not present.
	Get(key []byte, fn func(val []byte) error) error
	Set(key, val []byte) error
	// Delete removes key; deleting a key which is not present is not an error.
	Delete(key []byte) error
	// Iterate returns an iterator over all keys starting with prefix.
	Iterate(prefix []byte) (Iterator, error)
	Close() error
}

type Options struct {
	Logger      *log.Logger
	Flags       flags.Flags
	LockTimeout time.Duration
}

type Opener func(location string, opts Options) (KV, error)

var (
	backendsMutex sync.RWMutex
	backends      = map[string]Opener{}
)

func Register(name string, op Opener) {
	backendsMutex.Lock()
	defer backendsMutex.Unlock()

	if op == nil {
		panic("kv: register opener is nil")
	}
	if _, dup := backends[name]; dup {
		panic("kv: register called twice for backend: " + name)
	}
	backends[name] = op
}

func Lookup(name string) bool {
	backendsMutex.RLock()
	defer backendsMutex.RUnlock()

	_, ok := backends[name]
	return ok
}

func Backends() []string {
	backendsMutex.RLock()
	defer backendsMutex.RUnlock()

	var names []string
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Open(name, location string, opts Options) (KV, error) {
	backendsMutex.RLock()
	op, ok := backends[name]
	backendsMutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("kv: backend %s not found", name)
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Flags == nil {
		opts.Flags = flags.Default()
	}
	if opts.LockTimeout == 0 {
		opts.LockTimeout = defaultLockTimeout
	}

	kv, err := op(location, opts)
	if err != nil {
		return nil, err
	}
	opts.Logger.WithFields(log.Fields{
		"backend":  name,
		"location": location,
	}).Debug("kv: backend opened")
	return kv, nil
}

// PrefixEnd returns the smallest key greater than every key starting with prefix, or nil if
// there is no such key.
func PrefixEnd(prefix []byte) []byte {
	end := append(make([]byte, 0, len(prefix)), prefix...)
	for len(end) > 0 {
		if end[len(end)-1] < 0xFF {
			end[len(end)-1] += 1
			return end
		}
		end = end[:len(end)-1]
	}
	return nil
}

func copyBytes(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
