package mql

import (
	"time"

	"mqldb/internal/errors"
	"mqldb/internal/logger"
	"mqldb/internal/metrics"
	"mqldb/internal/result"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

// Executor runs compiled statements against a storage backend.
type Executor struct {
	backend storage.Engine
}

func NewExecutor(backend storage.Engine) *Executor {
	return &Executor{backend: backend}
}

// Exec runs stmt once and returns its outcome rendered as kind:
// result.KindString asks for human-readable text, result.KindDontCare for
// the structured form. Failures are returned as *result.Error; the
// backend is called at most once for every mutating statement.
func (x *Executor) Exec(kind result.Kind, stmt *Statement) result.Result {
	if stmt == nil {
		return result.NewError(errors.CodeInvalid, "missing statement")
	}

	start := time.Now()
	r := x.exec(kind, stmt)
	ok := result.IsSuccess(r)
	metrics.ObserveStatement(stmt.kind.String(), ok, time.Since(start))

	if !ok {
		logger.Debug("statement failed",
			"kind", stmt.kind.String(),
			"code", result.ErrorCode(r),
			"error", result.ErrorMessage(r))
	}
	return r
}

func (x *Executor) exec(kind result.Kind, stmt *Statement) result.Result {
	switch stmt.kind {
	case KindShowTables:
		return x.showTables(kind, stmt)
	case KindDescribe:
		return x.describe(kind, stmt)
	case KindCreateTable:
		if _, err := x.backend.CreateTable(stmt.name, stmt.flags, stmt.defs); err != nil {
			return result.FromError(err, "create table failed")
		}
		return result.Success()
	case KindDropTable:
		if err := x.backend.DropTable(stmt.table); err != nil {
			return result.FromError(err, "drop table failed")
		}
		return result.Success()
	case KindBegin, KindCommit, KindRollback:
		return x.transaction(stmt)
	case KindInsert:
		return x.insert(stmt)
	case KindUpdate:
		return x.update(stmt)
	case KindDelete:
		return x.delete(stmt)
	case KindSelect:
		return x.selectRows(kind, stmt)
	default:
		return result.NewError(errors.CodeBadRQC, "invalid statement kind %d", int(stmt.kind))
	}
}

func (x *Executor) showTables(kind result.Kind, stmt *Statement) result.Result {
	names, err := x.backend.ShowTables(stmt.flags)
	if err != nil {
		return result.FromError(err, "can't show tables")
	}

	if kind == result.KindString {
		return result.NewTableListText(names)
	}
	if len(names) == 0 {
		return result.NewError(errors.CodeSuccess, "no tables")
	}
	l, err := result.NewStringList(names)
	if err != nil {
		return result.FromError(err, "can't show tables")
	}
	return l
}

func (x *Executor) describe(kind result.Kind, stmt *Statement) result.Result {
	defs, err := x.backend.Describe(stmt.table)
	if err != nil {
		return result.FromError(err, "describe failed")
	}

	switch kind {
	case result.KindColumns, result.KindDontCare:
		c, err := result.NewColumns(defs)
		if err != nil {
			return result.FromError(err, "describe failed")
		}
		return c
	case result.KindString:
		t, err := result.NewColumnListText(defs)
		if err != nil {
			return result.FromError(err, "describe failed")
		}
		return t
	default:
		return result.NewError(errors.CodeInvalid, "describe failed: invalid result type %d", int(kind))
	}
}

func (x *Executor) transaction(stmt *Statement) result.Result {
	var err error
	switch stmt.kind {
	case KindBegin:
		err = x.backend.BeginTransaction(stmt.name)
	case KindCommit:
		err = x.backend.CommitTransaction(stmt.name)
	default:
		err = x.backend.RollbackTransaction(stmt.name)
	}
	if err != nil {
		return result.FromError(err, "%s failed", stmt.kind)
	}
	return result.Success()
}

func (x *Executor) insert(stmt *Statement) result.Result {
	rows, err := stmt.rowBuffers()
	if err != nil {
		return result.FromError(err, "insert error")
	}
	n, err := x.backend.InsertInto(stmt.table, stmt.ignore, stmt.cols, rows)
	if err != nil {
		return result.FromError(err, "insert error")
	}
	return result.NewStatus("inserted", n)
}

func (x *Executor) update(stmt *Statement) result.Result {
	conds, err := stmt.conditions()
	if err != nil {
		return result.FromError(err, "update error")
	}
	rows, err := stmt.rowBuffers()
	if err != nil {
		return result.FromError(err, "update error")
	}
	n, err := x.backend.Update(stmt.table, conds, stmt.cols, rows[0])
	if err != nil {
		return result.FromError(err, "update error")
	}
	return result.NewStatus("updated", n)
}

func (x *Executor) delete(stmt *Statement) result.Result {
	conds, err := stmt.conditions()
	if err != nil {
		return result.FromError(err, "delete error")
	}
	n, err := x.backend.DeleteFrom(stmt.table, conds)
	if err != nil {
		return result.FromError(err, "delete error")
	}
	return result.NewStatus("deleted", n)
}

func (x *Executor) selectRows(kind result.Kind, stmt *Statement) result.Result {
	switch kind {
	case result.KindRows, result.KindDontCare, result.KindString:
	default:
		return result.NewError(errors.CodeInvalid, "select error: invalid result type %d", int(kind))
	}

	conds, err := stmt.conditions()
	if err != nil {
		return result.FromError(err, "select error")
	}
	size, err := x.backend.TableSize(stmt.table)
	if err != nil {
		return result.FromError(err, "select error")
	}

	descs := stmt.selectDescs()
	buf := make([]sql.Value, size*stmt.stride)
	n, err := x.backend.Select(stmt.table, conds, descs, buf, stmt.stride, size)
	if err != nil {
		return result.FromError(err, "select error")
	}

	var r result.Result
	if kind == result.KindString {
		r, err = result.NewRowListText(stmt.sel, n, stmt.stride, buf)
	} else {
		r, err = result.NewRows(stmt.sel, n, stmt.stride, buf)
	}
	if err != nil {
		return result.FromError(err, "select error")
	}
	return r
}

func (s *Statement) selectDescs() []sql.ColumnDesc {
	descs := make([]sql.ColumnDesc, len(s.sel))
	for i, c := range s.sel {
		descs[i] = sql.ColumnDesc{Index: c.Index, Offset: c.Offset}
	}
	return descs
}
