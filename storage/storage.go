// Package storage maps string keys to Null or Blob entries on top of a kv backend.
//
// Operations return a *Error carrying a Code on failure. Deleting a key which is not
// present is not a failure: Delete returns NoOp instead of OK.
package storage

import (
	"errors"
	"fmt"
)

type Code int

const (
	OK Code = iota
	NoOp
	NotOpen
	OpenError
	KeyExists
	NotFound
	TransactionMisuse
	IOError
	Corruption
	KindMismatch
	Unknown
)

var codeNames = map[Code]string{
	OK:                "ok",
	NoOp:              "no-op",
	NotOpen:           "not open",
	OpenError:         "open error",
	KeyExists:         "key exists",
	NotFound:          "not found",
	TransactionMisuse: "transaction misuse",
	IOError:           "i/o error",
	Corruption:        "corruption",
	KindMismatch:      "kind mismatch",
	Unknown:           "unknown error",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

type Error struct {
	Code Code
	Key  string
	Err  error
}

var (
	ErrNotOpen           = &Error{Code: NotOpen}
	ErrKeyExists         = &Error{Code: KeyExists}
	ErrNotFound          = &Error{Code: NotFound}
	ErrTransactionMisuse = &Error{Code: TransactionMisuse}
)

func (e *Error) Error() string {
	s := "storage: " + e.Code.String()
	if e.Key != "" {
		s = fmt.Sprintf("storage: key %q: %s", e.Key, e.Code)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %s", s, e.Err)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code; this lets errors.Is compare
// against ErrNotFound and friends.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, key string, err error) *Error {
	return &Error{
		Code: code,
		Key:  key,
		Err:  err,
	}
}

// CodeOf returns OK for a nil error, the code of a *Error, and Unknown for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Unknown
}
