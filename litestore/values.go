package litestore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/leftmike/litestore/storage"
)

type Encoder interface {
	Entry() (storage.Entry, error)
}

type Decoder interface {
	Decode(e storage.Entry) error
}

// Value is both an Encoder and a Decoder.
type Value interface {
	Encoder
	Decoder
}

type nullValue struct{}

// Null encodes to a Null entry; as a Decoder, it requires the entry to be Null.
var Null nullValue

func (nullValue) Entry() (storage.Entry, error) {
	return storage.NullEntry(), nil
}

func (nullValue) Decode(e storage.Entry) error {
	if e.Kind != storage.Null {
		return fmt.Errorf("litestore: want null entry: got %s", e.Kind)
	}
	return nil
}

// Bytes is a blob stored as is.
type Bytes []byte

func (b Bytes) Entry() (storage.Entry, error) {
	return storage.BlobEntry(b), nil
}

func (b *Bytes) Decode(e storage.Entry) error {
	if e.Kind != storage.Blob {
		return fmt.Errorf("litestore: want blob entry: got %s", e.Kind)
	}
	*b = append((*b)[:0], e.Payload...)
	return nil
}

type String string

func (s String) Entry() (storage.Entry, error) {
	return storage.BlobEntry([]byte(s)), nil
}

func (s *String) Decode(e storage.Entry) error {
	if e.Kind != storage.Blob {
		return fmt.Errorf("litestore: want blob entry: got %s", e.Kind)
	}
	*s = String(e.Payload)
	return nil
}

type fixedValue struct {
	p interface{}
}

// Fixed encodes and decodes p, which must be a fixed size value or a pointer to one, as a
// little endian blob of exactly binary.Size(p) bytes. Decoding requires a pointer.
func Fixed(p interface{}) Value {
	return fixedValue{p: p}
}

func (fv fixedValue) Entry() (storage.Entry, error) {
	sz := binary.Size(fv.p)
	if sz < 0 {
		return storage.Entry{}, fmt.Errorf("litestore: not a fixed size value: %T", fv.p)
	}
	var buf bytes.Buffer
	buf.Grow(sz)
	err := binary.Write(&buf, binary.LittleEndian, fv.p)
	if err != nil {
		return storage.Entry{}, err
	}
	return storage.Entry{Kind: storage.Blob, Payload: buf.Bytes()}, nil
}

func (fv fixedValue) Decode(e storage.Entry) error {
	if e.Kind != storage.Blob {
		return fmt.Errorf("litestore: want blob entry: got %s", e.Kind)
	}
	sz := binary.Size(fv.p)
	if sz < 0 {
		return fmt.Errorf("litestore: not a fixed size value: %T", fv.p)
	} else if sz != len(e.Payload) {
		return fmt.Errorf("litestore: want %d bytes for %T: got %d", sz, fv.p,
			len(e.Payload))
	}
	return binary.Read(bytes.NewReader(e.Payload), binary.LittleEndian, fv.p)
}

func encode(key string, v Encoder) (storage.Entry, error) {
	if v == nil {
		return storage.Entry{}, &storage.Error{
			Code: storage.KindMismatch,
			Key:  key,
			Err:  errors.New("litestore: nil value; use Null for a null entry"),
		}
	}
	e, err := v.Entry()
	if err != nil {
		return storage.Entry{}, &storage.Error{Code: storage.KindMismatch, Key: key, Err: err}
	}
	return e, nil
}
