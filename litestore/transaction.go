package litestore

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/storage"
	"github.com/leftmike/litestore/tx"
)

// Transaction groups the mutations made through its Litestore between Begin and Commit or
// Rollback. Follow Begin with a deferred Rollback, which does nothing once the transaction
// has been committed.
type Transaction struct {
	ls *Litestore
	tx *tx.Transaction
}

func (ls *Litestore) Begin() (*Transaction, error) {
	if !ls.IsOpen() {
		return nil, ls.fail(storage.ErrNotOpen)
	}
	t, err := ls.mgr.Begin()
	if err != nil {
		return nil, ls.fail(err)
	}
	return &Transaction{
		ls: ls,
		tx: t,
	}, nil
}

// Transact runs fn in a transaction: it is committed if fn returns nil, and otherwise rolled
// back. A panic in fn rolls back the transaction and continues panicking.
func (ls *Litestore) Transact(fn func() error) error {
	t, err := ls.Begin()
	if err != nil {
		return err
	}
	defer t.Rollback()

	err = fn()
	if err != nil {
		rerr := t.Rollback()
		if rerr != nil {
			ls.logger.WithFields(log.Fields{
				"tx":    t.ID(),
				"error": rerr,
			}).Error("litestore: rollback failed")
		}
		return err
	}
	return t.Commit()
}

func (t *Transaction) ID() string {
	if t == nil || t.tx == nil {
		return ""
	}
	return t.tx.ID().String()
}

func (t *Transaction) State() tx.State {
	if t == nil || t.tx == nil {
		return tx.Initial
	}
	return t.tx.State()
}

func (t *Transaction) String() string {
	return fmt.Sprintf("transaction %s: %s", t.ID(), t.State())
}

func (t *Transaction) Commit() error {
	if t == nil || t.tx == nil {
		return t.misuse()
	}
	err := t.tx.Commit()
	if err != nil {
		return t.ls.fail(err)
	}
	return nil
}

func (t *Transaction) Rollback() error {
	if t == nil || t.tx == nil {
		return t.misuse()
	}
	err := t.tx.Rollback()
	if err != nil {
		return t.ls.fail(err)
	}
	return nil
}

func (t *Transaction) misuse() error {
	var ls *Litestore
	if t != nil {
		ls = t.ls
	}
	return ls.fail(&storage.Error{
		Code: storage.TransactionMisuse,
		Err:  errors.New("transaction never began"),
	})
}
