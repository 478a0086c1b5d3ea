package engine

import (
	"mqldb/internal/mql"
	"mqldb/internal/sql"
)

func (e *DBEngine) compileDelete(s *sql.DeleteStmt) (*mql.Statement, error) {
	tbl, err := e.lookup(s.TableName)
	if err != nil {
		return nil, err
	}
	conds, err := tbl.where(s.Where)
	if err != nil {
		return nil, err
	}
	return mql.MakeDelete(tbl.handle, conds)
}
