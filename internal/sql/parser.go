package sql

import (
	"fmt"
	"strings"
)

// Parse parses a single MQL statement string into an AST Statement.
// Schema and transaction statements are handled by small hand parsers,
// data manipulation statements are delegated to sqlparser.
func Parse(query string) (Statement, error) {
	// Trim leading & trailing whitespace
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}

	// Remove trailing semicolon if present
	if strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(q[:len(q)-1])
	}

	upper := strings.ToUpper(q)
	tokens := strings.Fields(upper)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("invalid MQL statement")
	}

	switch tokens[0] {
	case "SHOW":
		return parseShowTables(tokens)
	case "DESCRIBE", "DESC":
		return parseDescribe(q)
	case "CREATE":
		return parseCreateTable(q)
	case "DROP":
		return parseDropTable(q)
	case "BEGIN":
		return parseTx(TxBegin, q)
	case "COMMIT":
		return parseTx(TxCommit, q)
	case "ROLLBACK":
		return parseTx(TxRollback, q)
	case "INSERT", "REPLACE", "UPDATE", "DELETE", "SELECT":
		return parseDML(q)
	}

	return nil, fmt.Errorf("unsupported statement (supported: SHOW TABLES, DESCRIBE, CREATE TABLE, DROP TABLE, BEGIN, COMMIT, ROLLBACK, INSERT, REPLACE, UPDATE, DELETE, SELECT)")
}

// SplitStatements splits a script into statements on ';' outside of
// quoted strings. A backslash inside quotes escapes the next character.
// Empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
	)
	for _, r := range script {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
