package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// Default lengths for types declared without an explicit size.
const (
	defaultVarcharLength = 32
	defaultBlobLength    = 256
)

func parseCreateTable(query string) (Statement, error) {
	// At this point:
	// - query has been trimmed
	// - trailing ';' removed

	// Find the opening parenthesis for column list.
	openIdx := strings.Index(query, "(")
	if openIdx == -1 {
		return nil, fmt.Errorf("CREATE TABLE: missing '('")
	}

	// Find the closing parenthesis.
	closeIdx := strings.LastIndex(query, ")")
	if closeIdx == -1 || closeIdx <= openIdx {
		return nil, fmt.Errorf("CREATE TABLE: missing or misplaced ')'")
	}
	if strings.TrimSpace(query[closeIdx+1:]) != "" {
		return nil, fmt.Errorf("CREATE TABLE: unexpected text after ')'")
	}

	head := strings.Fields(query[:openIdx])
	colsPart := strings.TrimSpace(query[openIdx+1 : closeIdx])
	if colsPart == "" {
		return nil, fmt.Errorf("CREATE TABLE: no column definitions")
	}

	// CREATE [TEMPORARY] TABLE name
	flags := TablePersistent
	if len(head) == 4 && strings.ToUpper(head[1]) == "TEMPORARY" {
		flags = TableTemporary
		head = append(head[:1], head[2:]...)
	}
	if len(head) != 3 || strings.ToUpper(head[0]) != "CREATE" || strings.ToUpper(head[1]) != "TABLE" {
		return nil, fmt.Errorf("CREATE TABLE: invalid syntax")
	}
	tableName := head[2]
	if !isIdentifier(tableName) {
		return nil, fmt.Errorf("CREATE TABLE: invalid table name %q", tableName)
	}

	var (
		columns []Column
		keys    []string
	)
	for _, def := range splitTopLevel(colsPart) {
		upper := strings.ToUpper(def)
		if strings.HasPrefix(upper, "PRIMARY KEY") {
			names, err := parseKeyList(def[len("PRIMARY KEY"):])
			if err != nil {
				return nil, err
			}
			keys = append(keys, names...)
			continue
		}

		col, err := parseColumnDef(def)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("CREATE TABLE: no valid columns")
	}

	for _, k := range keys {
		found := false
		for i := range columns {
			if strings.EqualFold(columns[i].Name, k) {
				columns[i].Flags |= ColumnKey
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("CREATE TABLE: unknown key column %q", k)
		}
	}

	return &CreateTableStmt{
		TableName: tableName,
		Flags:     flags,
		Columns:   columns,
	}, nil
}

// parseColumnDef parses "name TYPE[(length)] [PRIMARY KEY]".
func parseColumnDef(def string) (Column, error) {
	parts := strings.Fields(def)
	if len(parts) < 2 {
		return Column{}, fmt.Errorf("invalid column definition: %q", def)
	}

	col := Column{Name: parts[0]}
	if !isIdentifier(col.Name) {
		return Column{}, fmt.Errorf("invalid column name %q", col.Name)
	}

	// The type may be written as "VARCHAR(16)" or "VARCHAR (16)".
	typeStr := strings.ToUpper(parts[1])
	rest := parts[2:]
	if !strings.Contains(typeStr, "(") && len(rest) > 0 && strings.HasPrefix(rest[0], "(") {
		typeStr += rest[0]
		rest = rest[1:]
	}

	length := 0
	if i := strings.Index(typeStr, "("); i != -1 {
		if !strings.HasSuffix(typeStr, ")") {
			return Column{}, fmt.Errorf("invalid length in %q", def)
		}
		n, err := strconv.Atoi(typeStr[i+1 : len(typeStr)-1])
		if err != nil || n <= 0 {
			return Column{}, fmt.Errorf("invalid length in %q", def)
		}
		length = n
		typeStr = typeStr[:i]
	}

	switch typeStr {
	case "VARCHAR", "CHAR", "STRING", "TEXT":
		col.Type = TypeVarchar
		if length == 0 {
			length = defaultVarcharLength
		}
	case "INT", "INTEGER":
		col.Type = TypeInteger
		length = 4
	case "UNSIGNED":
		col.Type = TypeUnsigned
		length = 4
	case "FLOATING", "FLOAT", "DOUBLE", "REAL":
		col.Type = TypeFloating
		length = 8
	case "BLOB":
		col.Type = TypeBlob
		if length == 0 {
			length = defaultBlobLength
		}
	default:
		return Column{}, fmt.Errorf("unknown column type %q in %q", typeStr, def)
	}
	col.Length = length

	switch strings.ToUpper(strings.Join(rest, " ")) {
	case "":
	case "PRIMARY KEY", "KEY":
		col.Flags |= ColumnKey
	default:
		return Column{}, fmt.Errorf("unsupported column attributes in %q", def)
	}

	return col, nil
}

// parseKeyList parses "(a, b, ...)".
func parseKeyList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("PRIMARY KEY: expected '(column, ...)'")
	}
	names := splitCommaSeparated(s[1 : len(s)-1])
	if len(names) == 0 {
		return nil, fmt.Errorf("PRIMARY KEY: empty column list")
	}
	return names, nil
}
