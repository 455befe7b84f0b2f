package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	undoKeyField     protowire.Number = 1
	undoExistedField protowire.Number = 2
	undoPriorField   protowire.Number = 3
)

var (
	undoPrefix = []byte{'m', '/', 'u', 'n', 'd', 'o', '/'}
	// The undo records are only live while this key exists; deleting it commits.
	undoActiveKey = []byte{'m', '/', 't', 'x'}
)

// UndoRecord is the state of Key before a mutation made by a transaction. Prior is the
// stored record, not decoded, so a corrupt record is restored as it was.
type UndoRecord struct {
	Key     string
	Existed bool
	Prior   []byte
}

func undoKey(seq uint64) []byte {
	buf := append(make([]byte, 0, len(undoPrefix)+8), undoPrefix...)
	return binary.BigEndian.AppendUint64(buf, seq)
}

func EncodeUndo(rec UndoRecord) []byte {
	buf := protowire.AppendTag(nil, undoKeyField, protowire.BytesType)
	buf = protowire.AppendString(buf, rec.Key)
	buf = protowire.AppendTag(buf, undoExistedField, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeBool(rec.Existed))
	if rec.Existed {
		buf = protowire.AppendTag(buf, undoPriorField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, rec.Prior)
	}
	return buf
}

func DecodeUndo(buf []byte) (UndoRecord, error) {
	var rec UndoRecord
	var haveKey, havePrior bool

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return UndoRecord{}, protowire.ParseError(n)
		}
		buf = buf[n:]

		switch {
		case num == undoKeyField && typ == protowire.BytesType:
			rec.Key, n = protowire.ConsumeString(buf)
			haveKey = true
		case num == undoExistedField && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(buf)
			rec.Existed = protowire.DecodeBool(v)
		case num == undoPriorField && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(buf)
			if n >= 0 {
				rec.Prior = append(make([]byte, 0, len(v)), v...)
				havePrior = true
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return UndoRecord{}, protowire.ParseError(n)
		}
		buf = buf[n:]
	}

	if !haveKey {
		return UndoRecord{}, errors.New("undo: missing key")
	}
	if rec.Existed != havePrior {
		return UndoRecord{}, fmt.Errorf("undo: key %q: existed %v but prior %v", rec.Key,
			rec.Existed, havePrior)
	}
	return rec, nil
}

// Snapshot returns the current state of key as an undo record.
func (st *Store) Snapshot(key string) (UndoRecord, error) {
	if st.kv == nil {
		return UndoRecord{}, newError(NotOpen, key, nil)
	}

	rec := UndoRecord{Key: key}
	err := st.kv.Get(entryKey(key),
		func(val []byte) error {
			rec.Existed = true
			rec.Prior = append(make([]byte, 0, len(val)), val...)
			return nil
		})
	if err != nil && err != io.EOF {
		return UndoRecord{}, ioError(key, err)
	}
	return rec, nil
}

// Restore puts the key of rec back into the state captured by Snapshot.
func (st *Store) Restore(rec UndoRecord) error {
	if st.kv == nil {
		return newError(NotOpen, rec.Key, nil)
	}

	var err error
	if rec.Existed {
		err = st.kv.Set(entryKey(rec.Key), rec.Prior)
	} else {
		err = st.kv.Delete(entryKey(rec.Key))
	}
	if err != nil {
		return ioError(rec.Key, err)
	}
	return nil
}

// BeginUndo makes the undo records live; it must be called before the first LogUndo of a
// transaction.
func (st *Store) BeginUndo(id []byte) error {
	if st.kv == nil {
		return newError(NotOpen, "", nil)
	}
	err := st.kv.Set(undoActiveKey, id)
	if err != nil {
		return ioError("", err)
	}
	return nil
}

// EndUndo discards the undo records in a single write: after it returns, UndoActive is
// false and the records are ignored. ClearUndo removes them.
func (st *Store) EndUndo() error {
	if st.kv == nil {
		return newError(NotOpen, "", nil)
	}
	err := st.kv.Delete(undoActiveKey)
	if err != nil {
		return ioError("", err)
	}
	return nil
}

// UndoActive reports whether the undo records belong to a transaction which did not end.
func (st *Store) UndoActive() (bool, error) {
	if st.kv == nil {
		return false, newError(NotOpen, "", nil)
	}
	err := st.kv.Get(undoActiveKey,
		func(val []byte) error {
			return nil
		})
	if err == io.EOF {
		return false, nil
	} else if err != nil {
		return false, ioError("", err)
	}
	return true, nil
}

// LogUndo persists rec as the seq'th undo record of the current transaction.
func (st *Store) LogUndo(seq uint64, rec UndoRecord) error {
	if st.kv == nil {
		return newError(NotOpen, rec.Key, nil)
	}
	err := st.kv.Set(undoKey(seq), EncodeUndo(rec))
	if err != nil {
		return ioError(rec.Key, err)
	}
	return nil
}

// UndoLog returns the persisted undo records in the order they were logged.
func (st *Store) UndoLog() ([]UndoRecord, error) {
	if st.kv == nil {
		return nil, newError(NotOpen, "", nil)
	}

	it, err := st.kv.Iterate(undoPrefix)
	if err != nil {
		return nil, ioError("", err)
	}
	defer it.Close()

	var recs []UndoRecord
	for {
		var derr error
		err = it.Item(
			func(key, val []byte) error {
				var rec UndoRecord
				rec, derr = DecodeUndo(val)
				if derr == nil {
					recs = append(recs, rec)
				}
				return derr
			})
		if derr != nil {
			return nil, newError(Corruption, "", derr)
		} else if err == io.EOF {
			return recs, nil
		} else if err != nil {
			return nil, ioError("", err)
		}
	}
}

// ClearUndo removes all persisted undo records.
func (st *Store) ClearUndo() error {
	if st.kv == nil {
		return newError(NotOpen, "", nil)
	}

	it, err := st.kv.Iterate(undoPrefix)
	if err != nil {
		return ioError("", err)
	}

	var keys [][]byte
	for {
		err = it.Item(
			func(key, val []byte) error {
				keys = append(keys, append(make([]byte, 0, len(key)), key...))
				return nil
			})
		if err == io.EOF {
			break
		} else if err != nil {
			it.Close()
			return ioError("", err)
		}
	}
	it.Close()

	for _, key := range keys {
		err = st.kv.Delete(key)
		if err != nil {
			return ioError("", err)
		}
	}
	return nil
}
