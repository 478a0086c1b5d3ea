package engine

import (
	"fmt"

	"mqldb/internal/mql"
	"mqldb/internal/sql"
)

func (e *DBEngine) compileUpdate(s *sql.UpdateStmt) (*mql.Statement, error) {
	tbl, err := e.lookup(s.TableName)
	if err != nil {
		return nil, err
	}

	conds, err := tbl.where(s.Where)
	if err != nil {
		return nil, err
	}

	descs := make([]sql.ColumnDesc, len(s.Set))
	values := make([]sql.Operand, len(s.Set))
	for j, a := range s.Set {
		idx, typ, err := tbl.column(a.Column)
		if err != nil {
			return nil, err
		}
		op, err := sql.TypedOperand(a.Value, typ)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", a.Column, err)
		}
		descs[j] = sql.ColumnDesc{Index: idx, Offset: j}
		values[j] = op
	}

	return mql.MakeUpdate(tbl.handle, conds, descs, values)
}
