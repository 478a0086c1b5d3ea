package engine

import (
	"mqldb/internal/mql"
	"mqldb/internal/sql"
)

func (e *DBEngine) compileDescribe(s *sql.DescribeStmt) (*mql.Statement, error) {
	h, err := e.store.TableHandle(s.TableName)
	if err != nil {
		return nil, err
	}
	return mql.MakeDescribe(h)
}

func (e *DBEngine) compileDropTable(s *sql.DropTableStmt) (*mql.Statement, error) {
	h, err := e.store.TableHandle(s.TableName)
	if err != nil {
		return nil, err
	}
	return mql.MakeDropTable(h)
}
