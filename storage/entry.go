package storage

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type Kind int

const (
	Null Kind = iota
	Blob
)

const (
	kindField    protowire.Number = 1
	payloadField protowire.Number = 2
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Blob:
		return "blob"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Entry struct {
	Kind    Kind
	Payload []byte
}

func NullEntry() Entry {
	return Entry{Kind: Null}
}

func BlobEntry(payload []byte) Entry {
	return Entry{
		Kind:    Blob,
		Payload: append(make([]byte, 0, len(payload)), payload...),
	}
}

func (e Entry) Equal(e2 Entry) bool {
	return e.Kind == e2.Kind && bytes.Equal(e.Payload, e2.Payload)
}

func (e Entry) String() string {
	if e.Kind == Null {
		return "null"
	}
	return fmt.Sprintf("blob(%d bytes)", len(e.Payload))
}

func EncodeEntry(e Entry) []byte {
	buf := make([]byte, 0, len(e.Payload)+8)
	buf = protowire.AppendTag(buf, kindField, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Kind))
	if e.Kind == Blob {
		buf = protowire.AppendTag(buf, payloadField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.Payload)
	}
	return buf
}

func DecodeEntry(buf []byte) (Entry, error) {
	var e Entry
	var haveKind, havePayload bool

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Entry{}, protowire.ParseError(n)
		}
		buf = buf[n:]

		switch {
		case num == kindField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			if v != uint64(Null) && v != uint64(Blob) {
				return Entry{}, fmt.Errorf("entry: bad kind: %d", v)
			}
			e.Kind = Kind(v)
			haveKind = true
			buf = buf[n:]
		case num == payloadField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			e.Payload = append(make([]byte, 0, len(v)), v...)
			havePayload = true
			buf = buf[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return Entry{}, protowire.ParseError(n)
			}
			buf = buf[n:]
		}
	}

	if !haveKind {
		return Entry{}, errors.New("entry: missing kind")
	}
	if e.Kind == Null && havePayload {
		return Entry{}, errors.New("entry: null with payload")
	}
	if e.Kind == Blob && !havePayload {
		return Entry{}, errors.New("entry: blob without payload")
	}
	return e, nil
}
