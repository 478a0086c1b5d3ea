package engine

import (
	"fmt"
	"io"
	"os"

	"mqldb/internal/logger"
	"mqldb/internal/mql"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

// compile turns a parsed statement into an executable one, resolving
// table and column names against the current schema.
func (e *DBEngine) compile(stmt sql.Statement) (*mql.Statement, error) {
	switch s := stmt.(type) {
	case *sql.ShowTablesStmt:
		return mql.MakeShowTables(s.Flags)
	case *sql.DescribeStmt:
		return e.compileDescribe(s)
	case *sql.CreateTableStmt:
		return mql.MakeCreateTable(s.TableName, s.Flags, s.Columns)
	case *sql.DropTableStmt:
		return e.compileDropTable(s)
	case *sql.TxStmt:
		return mql.MakeTransaction(txKind(s.Kind), s.Name)
	case *sql.InsertStmt:
		return e.compileInsert(s)
	case *sql.UpdateStmt:
		return e.compileUpdate(s)
	case *sql.DeleteStmt:
		return e.compileDelete(s)
	case *sql.SelectStmt:
		return e.compileSelect(s)
	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

// ExecFile runs every statement of the script at path, writing each
// outcome to out. It stops at the first failing statement.
func (e *DBEngine) ExecFile(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return e.ExecScript(string(data), out)
}

// ExecScript runs the ';'-separated statements of script in order.
func (e *DBEngine) ExecScript(script string, out io.Writer) error {
	for i, q := range sql.SplitStatements(script) {
		r := e.Exec(result.KindString, q)
		ok := result.IsSuccess(r)
		_, werr := fmt.Fprintln(out, Render(r))
		msg := result.ErrorMessage(r)
		result.Free(r)

		if werr != nil {
			return fmt.Errorf("write output: %w", werr)
		}
		if !ok {
			logger.Warn("script stopped", "statement", i+1, "error", msg)
			return fmt.Errorf("statement %d: %s", i+1, msg)
		}
	}
	return nil
}

// Render returns the text form of r. Text results come back as they are,
// every other variant as its status message.
func Render(r result.Result) string {
	switch v := r.(type) {
	case nil:
		return ""
	case *result.Text:
		return v.String()
	default:
		return result.ErrorMessage(r)
	}
}
