package engine

import (
	"fmt"

	"mqldb/internal/errors"
	"mqldb/internal/mql"
	"mqldb/internal/sql"
)

// compileInsert lays every VALUES tuple out as a row buffer whose offsets
// follow the column list. Without a column list the tuples must cover
// every column in declaration order.
func (e *DBEngine) compileInsert(s *sql.InsertStmt) (*mql.Statement, error) {
	tbl, err := e.lookup(s.TableName)
	if err != nil {
		return nil, err
	}

	names := s.Columns
	if len(names) == 0 {
		names = make([]string, len(tbl.cols))
		for i, c := range tbl.cols {
			names[i] = c.Name
		}
	}

	descs := make([]sql.ColumnDesc, len(names))
	types := make([]sql.DataType, len(names))
	for j, name := range names {
		idx, typ, err := tbl.column(name)
		if err != nil {
			return nil, err
		}
		for _, prev := range descs[:j] {
			if prev.Index == idx {
				return nil, fmt.Errorf("column %q listed twice: %w", name, errors.ErrInvalidArgument)
			}
		}
		descs[j] = sql.ColumnDesc{Index: idx, Offset: j}
		types[j] = typ
	}

	rows := make([][]sql.Operand, len(s.Rows))
	for r, tuple := range s.Rows {
		if len(tuple) != len(names) {
			return nil, fmt.Errorf("row %d has %d values for %d columns: %w", r+1, len(tuple), len(names), errors.ErrInvalidArgument)
		}
		row := make([]sql.Operand, len(tuple))
		for j, op := range tuple {
			if row[j], err = sql.TypedOperand(op, types[j]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r+1, names[j], err)
			}
		}
		rows[r] = row
	}

	return mql.MakeInsert(tbl.handle, s.Ignore, descs, rows)
}
