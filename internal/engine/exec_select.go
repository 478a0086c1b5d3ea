package engine

import (
	"mqldb/internal/mql"
	"mqldb/internal/sql"
)

func (e *DBEngine) compileSelect(s *sql.SelectStmt) (*mql.Statement, error) {
	tbl, err := e.lookup(s.TableName)
	if err != nil {
		return nil, err
	}
	cols, err := tbl.rowColumns(s.Columns)
	if err != nil {
		return nil, err
	}
	conds, err := tbl.where(s.Where)
	if err != nil {
		return nil, err
	}
	return mql.MakeSelect(tbl.handle, conds, cols)
}
