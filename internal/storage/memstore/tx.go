package memstore

import (
	"mqldb/internal/errors"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

type undoKind int

const (
	undoInsert undoKind = iota
	undoDelete
	undoUpdate
	undoCreateTable
	undoDropTable
)

// undo reverts one change. before is the row image an update replaced.
type undo struct {
	kind   undoKind
	table  *table
	row    *row
	before sql.Row
}

type txFrame struct {
	name string
	log  []undo
}

// record appends u to the innermost transaction. Outside a transaction
// changes are final and nothing is recorded.
func (e *memEngine) record(u undo) {
	if len(e.txs) == 0 {
		return
	}
	top := e.txs[len(e.txs)-1]
	top.log = append(top.log, u)
}

func (e *memEngine) revert(u undo) {
	t := u.table
	switch u.kind {
	case undoInsert:
		_ = t.remove(u.row)
	case undoDelete:
		_ = t.add(u.row)
	case undoUpdate:
		if err := t.remove(u.row); err == nil {
			u.row.vals = u.before
			_ = t.add(u.row)
		} else {
			u.row.vals = u.before
		}
	case undoCreateTable:
		e.detach(t)
	case undoDropTable:
		e.attach(t)
	}
}

func (e *memEngine) frame(name string) (int, error) {
	if name == "" {
		return -1, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "empty transaction name")
	}
	for i, f := range e.txs {
		if f.name == name {
			if i != len(e.txs)-1 {
				return -1, errors.NewStorage(errors.CodeBadSlot, errors.ErrInvalidArgument,
					"transaction %s is not the innermost one", name)
			}
			return i, nil
		}
	}
	return -1, errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound, "no transaction named %s", name)
}

func (e *memEngine) BeginTransaction(name string) error {
	return e.write(func() error {
		if name == "" {
			return errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "empty transaction name")
		}
		for _, f := range e.txs {
			if f.name == name {
				return errors.NewStorage(errors.CodeExists, errors.ErrExists, "transaction %s already started", name)
			}
		}
		if len(e.txs) >= storage.MaxTxDepth {
			return errors.NewStorage(errors.CodeOverflow, errors.ErrInvalidArgument,
				"transactions nested deeper than %d", storage.MaxTxDepth)
		}

		e.txs = append(e.txs, &txFrame{name: name})
		e.raiseTransaction(sql.EventTransactionStart, len(e.txs))
		return nil
	})
}

// CommitTransaction makes the innermost transaction's changes part of
// its parent, or final when it is the outermost one.
func (e *memEngine) CommitTransaction(name string) error {
	return e.write(func() error {
		i, err := e.frame(name)
		if err != nil {
			return err
		}
		f := e.txs[i]
		e.txs = e.txs[:i]
		if i > 0 {
			parent := e.txs[i-1]
			parent.log = append(parent.log, f.log...)
		}
		e.raiseTransaction(sql.EventTransactionEnd, i+1)
		return nil
	})
}

// RollbackTransaction undoes the innermost transaction's changes,
// including those of transactions committed into it. No row or column
// events are raised for the reverted changes.
func (e *memEngine) RollbackTransaction(name string) error {
	return e.write(func() error {
		i, err := e.frame(name)
		if err != nil {
			return err
		}
		f := e.txs[i]
		e.txs = e.txs[:i]
		for j := len(f.log) - 1; j >= 0; j-- {
			e.revert(f.log[j])
		}
		e.raiseTransaction(sql.EventTransactionEnd, i+1)
		return nil
	})
}

func (e *memEngine) TransactionDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.txs)
}
