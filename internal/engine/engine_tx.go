package engine

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"mqldb/internal/errors"
	"mqldb/internal/mql"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

func txKind(k sql.TxKind) mql.Kind {
	switch k {
	case sql.TxBegin:
		return mql.KindBegin
	case sql.TxCommit:
		return mql.KindCommit
	default:
		return mql.KindRollback
	}
}

// execAnonymous runs BEGIN, COMMIT or ROLLBACK without a name. BEGIN
// opens a transaction under a generated name; COMMIT and ROLLBACK close
// the most recent one opened that way.
func (e *DBEngine) execAnonymous(kind result.Kind, tx *sql.TxStmt) result.Result {
	name := uuid.NewString()
	if tx.Kind != sql.TxBegin {
		var ok bool
		if name, ok = e.lastAnonymous(); !ok {
			err := fmt.Errorf("no open unnamed transaction: %w", errors.ErrNotFound)
			return result.FromError(err, "%s failed", tx.Kind)
		}
	}

	stmt, err := mql.MakeTransaction(txKind(tx.Kind), name)
	if err != nil {
		return result.FromError(err, "compile error")
	}
	r := e.exec.Exec(kind, stmt)
	if !result.IsSuccess(r) {
		return r
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.Kind == sql.TxBegin {
		e.anonymous = append(e.anonymous, name)
		return r
	}
	if i := slices.Index(e.anonymous, name); i >= 0 {
		e.anonymous = slices.Delete(e.anonymous, i, i+1)
	}
	if tx.Kind == sql.TxRollback {
		e.purgeCache()
	}
	return r
}

func (e *DBEngine) lastAnonymous() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.anonymous) == 0 {
		return "", false
	}
	return e.anonymous[len(e.anonymous)-1], true
}

// TransactionDepth returns the number of open transactions.
func (e *DBEngine) TransactionDepth() int {
	return e.store.TransactionDepth()
}
