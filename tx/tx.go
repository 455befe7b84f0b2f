// Package tx gives all or nothing semantics to a sequence of mutations of a storage.Store.
//
// There is at most one open transaction per Manager. While it is open, every mutation is
// applied to the store immediately, and the prior state of the key is recorded in an undo
// log, both in memory and persisted in the store. The persisted records are live only while
// the store's undo marker exists: deleting the marker is the single write which commits a
// transaction. Rollback replays the log in reverse and then deletes the marker. A live undo
// log found by the Manager belongs to a transaction which never finished and is rolled back
// before anything else is done with the store.
package tx

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/litestore/storage"
)

type State int

const (
	Initial State = iota
	Open
	Done
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Open:
		return "open"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Manager struct {
	st      *storage.Store
	logger  *log.Logger
	active  *Transaction
	pending bool // the undo log may be live and must be rolled back
	stale   bool // the undo log may hold records of a finished transaction
}

type Transaction struct {
	mgr    *Manager
	id     uuid.UUID
	state  State
	logged bool
	undo   []storage.UndoRecord
	seen   map[string]struct{}
}

func NewManager(st *storage.Store, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	mgr := &Manager{
		st:      st,
		logger:  logger,
		pending: true,
	}

	err := mgr.ready()
	if err != nil {
		return nil, err
	}
	return mgr, nil
}

func (mgr *Manager) Store() *storage.Store {
	return mgr.st
}

// Active returns the open transaction, if there is one.
func (mgr *Manager) Active() *Transaction {
	return mgr.active
}

// ready rolls back a live undo log, if there might be one.
func (mgr *Manager) ready() error {
	if !mgr.pending {
		return nil
	}

	active, err := mgr.st.UndoActive()
	if err != nil {
		return err
	}
	if active {
		recs, err := mgr.st.UndoLog()
		if err != nil {
			return err
		}
		mgr.logger.WithField("records", len(recs)).Warn("tx: rolling back unfinished transaction")
		err = mgr.replay(recs)
		if err != nil {
			return err
		}
		err = mgr.st.EndUndo()
		if err != nil {
			return err
		}
	}
	mgr.pending = false
	mgr.stale = true
	mgr.clearStale()
	return nil
}

func (mgr *Manager) clearStale() {
	err := mgr.st.ClearUndo()
	if err != nil {
		mgr.logger.WithField("error", err).Warn("tx: unable to clear undo log")
		return
	}
	mgr.stale = false
}

func (mgr *Manager) Begin() (*Transaction, error) {
	if !mgr.st.IsOpen() {
		return nil, storage.ErrNotOpen
	}
	if mgr.active != nil {
		return nil, &storage.Error{
			Code: storage.TransactionMisuse,
			Err:  fmt.Errorf("transaction %s already open", mgr.active.id),
		}
	}
	err := mgr.ready()
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		mgr:   mgr,
		id:    uuid.New(),
		state: Open,
		seen:  map[string]struct{}{},
	}
	mgr.active = t
	mgr.logger.WithField("tx", t.id).Debug("tx: begin")
	return t, nil
}

// Close rolls back the open transaction, if any, and closes the store. If the rollback
// fails, the undo log is kept and the rollback finishes when the store is next opened.
func (mgr *Manager) Close() error {
	var err error
	if mgr.active != nil {
		err = mgr.active.Rollback()
	}
	cerr := mgr.st.Close()
	if err == nil {
		err = cerr
	}
	return err
}

func (mgr *Manager) mutate(key string, fn func() error) error {
	err := mgr.ready()
	if err != nil {
		return err
	}

	t := mgr.active
	if t == nil {
		return fn()
	}
	if _, ok := t.seen[key]; ok {
		return fn()
	}

	if !t.logged {
		if mgr.stale {
			err = mgr.st.ClearUndo()
			if err != nil {
				return err
			}
			mgr.stale = false
		}
		err = mgr.st.BeginUndo(t.id[:])
		if err != nil {
			return err
		}
		t.logged = true
	}

	rec, err := mgr.st.Snapshot(key)
	if err != nil {
		return err
	}
	// The undo record must be durable before the mutation it undoes.
	err = mgr.st.LogUndo(uint64(len(t.undo)), rec)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, rec)
	t.seen[key] = struct{}{}

	return fn()
}

func (mgr *Manager) Read(key string) (storage.Entry, error) {
	err := mgr.ready()
	if err != nil {
		return storage.Entry{}, err
	}
	return mgr.st.Read(key)
}

func (mgr *Manager) Create(key string, e storage.Entry) error {
	return mgr.mutate(key,
		func() error {
			return mgr.st.Create(key, e)
		})
}

func (mgr *Manager) Update(key string, e storage.Entry) error {
	return mgr.mutate(key,
		func() error {
			return mgr.st.Update(key, e)
		})
}

func (mgr *Manager) Delete(key string) (storage.Code, error) {
	var code storage.Code
	err := mgr.mutate(key,
		func() error {
			var err error
			code, err = mgr.st.Delete(key)
			return err
		})
	if err != nil {
		return storage.CodeOf(err), err
	}
	return code, nil
}

func (mgr *Manager) Keys(pat string) ([]string, error) {
	err := mgr.ready()
	if err != nil {
		return nil, err
	}
	return mgr.st.Keys(pat)
}

func (mgr *Manager) Scan(pat string, fn func(key string) error) error {
	err := mgr.ready()
	if err != nil {
		return err
	}
	return mgr.st.Scan(pat, fn)
}

func (mgr *Manager) replay(recs []storage.UndoRecord) error {
	var err error
	for idx := len(recs) - 1; idx >= 0; idx-- {
		rerr := mgr.st.Restore(recs[idx])
		if rerr != nil {
			mgr.logger.WithFields(log.Fields{
				"key":   recs[idx].Key,
				"error": rerr,
			}).Error("tx: undo failed")
			if err == nil {
				err = rerr
			}
		}
	}
	return err
}

func (t *Transaction) ID() uuid.UUID {
	return t.id
}

func (t *Transaction) State() State {
	return t.state
}

func (t *Transaction) finish(how string) {
	mgr := t.mgr
	if mgr.active == t {
		mgr.active = nil
	}
	t.state = Done
	t.undo = nil
	t.seen = nil

	mgr.logger.WithField("tx", t.id).Debug("tx: " + how)
}

// fail leaves the undo log live, so the rollback is finished before the store is used
// again, here or after it is reopened.
func (t *Transaction) fail(how string, err error) error {
	t.mgr.pending = true
	t.finish(how + " failed")
	return &storage.Error{
		Code: storage.IOError,
		Err:  fmt.Errorf("%s of transaction %s: %w", how, t.id, err),
	}
}

// Commit makes the changes of the transaction stand; it does nothing if the transaction is
// not open. If the commit can not be recorded, the transaction is rolled back.
func (t *Transaction) Commit() error {
	if t == nil || t.mgr == nil {
		return storage.ErrTransactionMisuse
	} else if t.state != Open {
		return nil
	}

	mgr := t.mgr
	if t.logged {
		err := mgr.st.EndUndo()
		if err != nil {
			err = t.fail("commit", err)
			mgr.ready()
			return err
		}
		mgr.stale = true
		mgr.clearStale()
	}
	t.finish("commit")
	return nil
}

// Rollback undoes the changes of the transaction; it does nothing if the transaction is not
// open. The transaction is done even if undoing fails.
func (t *Transaction) Rollback() error {
	if t == nil || t.mgr == nil {
		return storage.ErrTransactionMisuse
	} else if t.state != Open {
		return nil
	}

	mgr := t.mgr
	if t.logged {
		err := mgr.replay(t.undo)
		if err == nil {
			err = mgr.st.EndUndo()
		}
		if err != nil {
			return t.fail("rollback", err)
		}
		mgr.stale = true
		mgr.clearStale()
	}
	t.finish("rollback")
	return nil
}
