package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/kv"
	"github.com/leftmike/litestore/pattern"
)

const (
	FormatVersion = 1

	entryPrefix = 'e'
)

var (
	versionKey = []byte{'m', '/', 'v', 'e', 'r', 's', 'i', 'o', 'n'}
)

type Store struct {
	kv     kv.KV
	logger *log.Logger
}

// NewStore checks the format version of the store in kvs, initializing it if the store is
// new. The Store owns kvs from then on, including when NewStore fails.
func NewStore(kvs kv.KV, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	var ver uint64
	err := kvs.Get(versionKey,
		func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("versionKey: len(val) != 8: %d", len(val))
			}
			ver = binary.BigEndian.Uint64(val)
			return nil
		})
	if err == io.EOF {
		ver = FormatVersion
		err = kvs.Set(versionKey, binary.BigEndian.AppendUint64(make([]byte, 0, 8), ver))
		if err == kv.ErrReadOnly {
			err = nil
		} else if err != nil {
			kvs.Close()
			return nil, newError(OpenError, "", err)
		}
		logger.WithField("version", ver).Debug("storage: initialized store")
	} else if err != nil {
		kvs.Close()
		return nil, newError(Corruption, "", err)
	}

	if ver > FormatVersion {
		kvs.Close()
		return nil, newError(OpenError, "",
			fmt.Errorf("unsupported format version: %d", ver))
	}

	return &Store{
		kv:     kvs,
		logger: logger,
	}, nil
}

func entryKey(key string) []byte {
	buf := make([]byte, 0, len(key)+1)
	buf = append(buf, entryPrefix)
	return append(buf, key...)
}

func ioError(key string, err error) *Error {
	if err == kv.ErrClosed {
		return newError(NotOpen, key, nil)
	}
	return newError(IOError, key, err)
}

func (st *Store) IsOpen() bool {
	return st != nil && st.kv != nil
}

func (st *Store) Close() error {
	if st.kv == nil {
		return nil
	}
	err := st.kv.Close()
	st.kv = nil
	if err != nil {
		return ioError("", err)
	}
	return nil
}

// Get returns the entry for key and whether it exists.
func (st *Store) Get(key string) (Entry, bool, error) {
	if st.kv == nil {
		return Entry{}, false, newError(NotOpen, key, nil)
	}

	var e Entry
	var derr error
	err := st.kv.Get(entryKey(key),
		func(val []byte) error {
			e, derr = DecodeEntry(val)
			return nil
		})
	if err == io.EOF {
		return Entry{}, false, nil
	} else if err != nil {
		return Entry{}, false, ioError(key, err)
	} else if derr != nil {
		return Entry{}, false, newError(Corruption, key, derr)
	}
	return e, true, nil
}

func (st *Store) Read(key string) (Entry, error) {
	e, ok, err := st.Get(key)
	if err != nil {
		return Entry{}, err
	} else if !ok {
		return Entry{}, newError(NotFound, key, nil)
	}
	return e, nil
}

func (st *Store) set(key string, e Entry) error {
	err := st.kv.Set(entryKey(key), EncodeEntry(e))
	if err != nil {
		return ioError(key, err)
	}
	return nil
}

func (st *Store) Create(key string, e Entry) error {
	_, ok, err := st.Get(key)
	if err != nil {
		return err
	} else if ok {
		return newError(KeyExists, key, nil)
	}
	return st.set(key, e)
}

func (st *Store) Update(key string, e Entry) error {
	if st.kv == nil {
		return newError(NotOpen, key, nil)
	}
	return st.set(key, e)
}

// Delete removes key; it returns NoOp and no error if key is not present.
func (st *Store) Delete(key string) (Code, error) {
	_, ok, err := st.Get(key)
	if err != nil {
		return CodeOf(err), err
	} else if !ok {
		return NoOp, nil
	}

	err = st.kv.Delete(entryKey(key))
	if err != nil {
		serr := ioError(key, err)
		return serr.Code, serr
	}
	return OK, nil
}

// Scan calls fn, in ascending order, with each key matching pat. Returning io.EOF from fn
// stops the scan without an error.
func (st *Store) Scan(pat string, fn func(key string) error) error {
	if st.kv == nil {
		return newError(NotOpen, "", nil)
	}

	p := pattern.Compile(pat)
	it, err := st.kv.Iterate(entryKey(p.Prefix()))
	if err != nil {
		return ioError("", err)
	}
	defer it.Close()

	var fnErr error
	for {
		err = it.Item(
			func(ekey, val []byte) error {
				key := string(ekey[1:])
				if p.Match(key) {
					fnErr = fn(key)
				}
				return fnErr
			})
		if fnErr != nil {
			if fnErr == io.EOF {
				return nil
			}
			return fnErr
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return ioError("", err)
		}
	}
}

// Keys returns all keys matching pat in ascending order.
func (st *Store) Keys(pat string) ([]string, error) {
	keys := []string{}
	err := st.Scan(pat,
		func(key string) error {
			keys = append(keys, key)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// IsNotFound is a convenience for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
