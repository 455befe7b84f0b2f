// Package litestore is an embedded key value store in a single file. Keys are strings and
// each entry is either Null or a blob of bytes. A Litestore supports one transaction at a
// time; mutations outside of a transaction are individually durable.
package litestore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/flags"
	"github.com/leftmike/litestore/kv"
	"github.com/leftmike/litestore/storage"
	"github.com/leftmike/litestore/tx"
)

const (
	// MemoryLocation opens a store which is discarded when it is closed.
	MemoryLocation = ":memory:"

	defaultBackend = "bbolt"

	version = "0.1.0"
)

func Version() string {
	return fmt.Sprintf("litestore %s (format %d)", version, storage.FormatVersion)
}

type Litestore struct {
	mgr         *tx.Manager
	location    string
	backend     string
	logger      *log.Logger
	errorFunc   ErrorFunc
	flags       flags.Flags
	lockTimeout time.Duration
}

type Option func(ls *Litestore)

func WithErrorFunc(fn ErrorFunc) Option {
	return func(ls *Litestore) {
		ls.errorFunc = fn
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(ls *Litestore) {
		ls.logger = logger
	}
}

func WithFlags(fs flags.Flags) Option {
	return func(ls *Litestore) {
		ls.flags = fs
	}
}

// WithLockTimeout sets how long to wait for a store locked by another process.
func WithLockTimeout(d time.Duration) Option {
	return func(ls *Litestore) {
		ls.lockTimeout = d
	}
}

// ParseLocation splits location into a backend and the location to give that backend. A
// location without a registered backend prefix is a path to a bbolt file.
func ParseLocation(location string) (string, string) {
	if location == MemoryLocation {
		return "memory", ""
	}
	if idx := strings.IndexByte(location, ':'); idx > 0 && kv.Lookup(location[:idx]) {
		return location[:idx], location[idx+1:]
	}
	return defaultBackend, location
}

func Open(location string, opts ...Option) (*Litestore, error) {
	ls := &Litestore{
		location: location,
	}
	for _, opt := range opts {
		opt(ls)
	}
	if ls.logger == nil {
		ls.logger = log.StandardLogger()
	}
	if ls.flags == nil {
		ls.flags = flags.Default()
	}

	var path string
	ls.backend, path = ParseLocation(location)
	if path == "" && ls.backend != "memory" {
		return nil, ls.openFailed(errors.New("empty location"))
	}

	kvs, err := kv.Open(ls.backend, path,
		kv.Options{
			Logger:      ls.logger,
			Flags:       ls.flags,
			LockTimeout: ls.lockTimeout,
		})
	if err != nil {
		return nil, ls.openFailed(err)
	}
	st, err := storage.NewStore(kvs, ls.logger)
	if err != nil {
		return nil, ls.openFailed(err)
	}
	ls.mgr, err = tx.NewManager(st, ls.logger)
	if err != nil {
		st.Close()
		return nil, ls.openFailed(err)
	}

	ls.logger.WithFields(log.Fields{
		"backend":  ls.backend,
		"location": location,
	}).Debug("litestore: opened")
	return ls, nil
}

func (ls *Litestore) openFailed(err error) error {
	return ls.fail(&storage.Error{
		Code: storage.OpenError,
		Err:  fmt.Errorf("open %s: %w", ls.location, err),
	})
}

func (ls *Litestore) Location() string {
	return ls.location
}

func (ls *Litestore) Backend() string {
	return ls.backend
}

func (ls *Litestore) IsOpen() bool {
	return ls != nil && ls.mgr != nil
}

// Close rolls back an open transaction and releases the store. Closing a closed Litestore
// does nothing.
func (ls *Litestore) Close() error {
	if !ls.IsOpen() {
		return nil
	}

	mgr := ls.mgr
	ls.mgr = nil
	err := mgr.Close()
	ls.logger.WithField("location", ls.location).Debug("litestore: closed")
	if err != nil {
		return ls.fail(err)
	}
	return nil
}

func (ls *Litestore) Create(key string, v Encoder) error {
	if !ls.IsOpen() {
		return ls.fail(storage.ErrNotOpen)
	}
	e, err := encode(key, v)
	if err != nil {
		return ls.fail(err)
	}
	err = ls.mgr.Create(key, e)
	if err != nil {
		return ls.fail(err)
	}
	return nil
}

// Read decodes the entry for key into v. Errors returned by v are reported as KindMismatch.
func (ls *Litestore) Read(key string, v Decoder) error {
	if !ls.IsOpen() {
		return ls.fail(storage.ErrNotOpen)
	}
	e, err := ls.mgr.Read(key)
	if err != nil {
		return ls.fail(err)
	}
	if v == nil {
		return nil
	}
	err = v.Decode(e)
	if err != nil {
		var se *storage.Error
		if !errors.As(err, &se) {
			err = &storage.Error{Code: storage.KindMismatch, Key: key, Err: err}
		}
		return ls.fail(err)
	}
	return nil
}

func (ls *Litestore) Update(key string, v Encoder) error {
	if !ls.IsOpen() {
		return ls.fail(storage.ErrNotOpen)
	}
	e, err := encode(key, v)
	if err != nil {
		return ls.fail(err)
	}
	err = ls.mgr.Update(key, e)
	if err != nil {
		return ls.fail(err)
	}
	return nil
}

// Delete removes key. It returns storage.NoOp, and no error, if key does not exist.
func (ls *Litestore) Delete(key string) (storage.Code, error) {
	if !ls.IsOpen() {
		le := ls.fail(storage.ErrNotOpen)
		return le.Code, le
	}
	code, err := ls.mgr.Delete(key)
	if err != nil {
		le := ls.fail(err)
		return le.Code, le
	}
	return code, nil
}

// Keys returns the keys matching pattern in sorted order.
func (ls *Litestore) Keys(pattern string) ([]string, error) {
	if !ls.IsOpen() {
		return nil, ls.fail(storage.ErrNotOpen)
	}
	keys, err := ls.mgr.Keys(pattern)
	if err != nil {
		return nil, ls.fail(err)
	}
	return keys, nil
}

// Scan calls fn with each key matching pattern in sorted order. If fn returns io.EOF,
// Scan stops and returns nil; any other error from fn is returned as is.
func (ls *Litestore) Scan(pattern string, fn func(key string) error) error {
	if !ls.IsOpen() {
		return ls.fail(storage.ErrNotOpen)
	}

	var fromFn bool
	err := ls.mgr.Scan(pattern,
		func(key string) error {
			err := fn(key)
			fromFn = err != nil
			return err
		})
	if err != nil {
		if fromFn {
			return err
		}
		return ls.fail(err)
	}
	return nil
}
