package sql

import (
	"fmt"
	"strings"
)

// parseShowTables accepts SHOW TABLES, SHOW TEMPORARY TABLES and
// SHOW ALL TABLES. The tokens are already upper-cased.
func parseShowTables(tokens []string) (Statement, error) {
	switch {
	case len(tokens) == 2 && tokens[1] == "TABLES":
		return &ShowTablesStmt{Flags: TablePersistent}, nil
	case len(tokens) == 3 && tokens[2] == "TABLES":
		switch tokens[1] {
		case "TEMPORARY":
			return &ShowTablesStmt{Flags: TableTemporary}, nil
		case "ALL":
			return &ShowTablesStmt{Flags: TableAny}, nil
		}
	}
	return nil, fmt.Errorf("SHOW: only 'SHOW [TEMPORARY|ALL] TABLES' is supported")
}

func parseDescribe(query string) (Statement, error) {
	toks := strings.Fields(query)
	if len(toks) != 2 {
		return nil, fmt.Errorf("DESCRIBE: expected 'DESCRIBE <table>'")
	}
	if !isIdentifier(toks[1]) {
		return nil, fmt.Errorf("DESCRIBE: invalid table name %q", toks[1])
	}
	return &DescribeStmt{TableName: toks[1]}, nil
}

func parseDropTable(query string) (Statement, error) {
	toks := strings.Fields(query)
	if len(toks) != 3 || strings.ToUpper(toks[1]) != "TABLE" {
		return nil, fmt.Errorf("DROP TABLE: expected 'DROP TABLE <table>'")
	}
	if !isIdentifier(toks[2]) {
		return nil, fmt.Errorf("DROP TABLE: invalid table name %q", toks[2])
	}
	return &DropTableStmt{TableName: toks[2]}, nil
}
