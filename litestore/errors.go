package litestore

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/storage"
)

// ErrorFunc is called with the code and description of every failure, before the failure
// is returned to the caller.
type ErrorFunc func(code storage.Code, desc string)

type Error struct {
	Code storage.Code
	Desc string
	err  error
}

var (
	ErrNotOpen           = &Error{Code: storage.NotOpen, Desc: "litestore: not open"}
	ErrOpen              = &Error{Code: storage.OpenError, Desc: "litestore: open error"}
	ErrKeyExists         = &Error{Code: storage.KeyExists, Desc: "litestore: key exists"}
	ErrNotFound          = &Error{Code: storage.NotFound, Desc: "litestore: not found"}
	ErrTransactionMisuse = &Error{Code: storage.TransactionMisuse,
		Desc: "litestore: transaction misuse"}
	ErrIO           = &Error{Code: storage.IOError, Desc: "litestore: i/o error"}
	ErrCorruption   = &Error{Code: storage.Corruption, Desc: "litestore: corruption"}
	ErrKindMismatch = &Error{Code: storage.KindMismatch, Desc: "litestore: kind mismatch"}
)

func (e *Error) Error() string {
	return e.Desc
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Code == e.Code
}

// CodeOf returns the code of err: OK for nil and Unknown for errors not from this package
// or storage.
func CodeOf(err error) storage.Code {
	if err == nil {
		return storage.OK
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return storage.CodeOf(err)
}

func translate(err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	var se *storage.Error
	if errors.As(err, &se) {
		return &Error{
			Code: se.Code,
			Desc: se.Error(),
			err:  err,
		}
	}
	return &Error{
		Code: storage.Unknown,
		Desc: err.Error(),
		err:  err,
	}
}

// fail translates err, and reports it to the error func, if there is one.
func (ls *Litestore) fail(err error) *Error {
	le := translate(err)
	if ls == nil || ls.logger == nil {
		return le
	}

	ls.logger.WithFields(log.Fields{
		"code":  le.Code,
		"error": le.Desc,
	}).Debug("litestore: failed")
	if ls.errorFunc != nil {
		ls.report(le)
	}
	return le
}

func (ls *Litestore) report(le *Error) {
	defer func() {
		if r := recover(); r != nil {
			ls.logger.WithFields(log.Fields{
				"code":  le.Code,
				"panic": r,
			}).Error("litestore: error func panicked")
		}
	}()

	ls.errorFunc(le.Code, le.Desc)
}
