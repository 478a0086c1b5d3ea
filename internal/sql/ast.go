package sql

// Statement is the common interface for all parsed MQL statements.
type Statement interface {
	stmtNode()
}

// ShowTablesStmt represents SHOW [TEMPORARY] TABLES.
type ShowTablesStmt struct {
	Flags TableFlags
}

// DescribeStmt represents DESCRIBE <table>.
type DescribeStmt struct {
	TableName string
}

// TxKind selects the transaction control operation.
type TxKind int

const (
	TxBegin TxKind = iota
	TxCommit
	TxRollback
)

func (k TxKind) String() string {
	switch k {
	case TxBegin:
		return "begin"
	case TxCommit:
		return "commit"
	default:
		return "rollback"
	}
}

// TxStmt represents BEGIN/COMMIT/ROLLBACK with an optional transaction name.
type TxStmt struct {
	Kind TxKind
	Name string
}

// CreateTableStmt represents a parsed CREATE TABLE statement. Key columns
// carry the ColumnKey flag.
type CreateTableStmt struct {
	TableName string
	Flags     TableFlags
	Columns   []Column
}

// DropTableStmt represents DROP TABLE <table>.
type DropTableStmt struct {
	TableName string
}

// InsertStmt represents INSERT [IGNORE] / REPLACE. An empty Columns list
// means every table column in declaration order.
type InsertStmt struct {
	TableName string
	Ignore    bool
	Columns   []string
	Rows      [][]Operand
}

// Assignment is one "column = operand" pair of an UPDATE.
type Assignment struct {
	Column string
	Value  Operand
}

// UpdateStmt represents UPDATE <table> SET ... [WHERE ...].
type UpdateStmt struct {
	TableName string
	Set       []Assignment
	Where     WhereExpr
}

// DeleteStmt represents DELETE FROM <table> [WHERE ...].
type DeleteStmt struct {
	TableName string
	Where     WhereExpr
}

// SelectStmt represents SELECT cols FROM <table> [WHERE ...]. A nil
// Columns list selects every column.
type SelectStmt struct {
	TableName string
	Columns   []string
	Where     WhereExpr
}

func (*ShowTablesStmt) stmtNode() {}
func (*DescribeStmt) stmtNode() {}
func (*TxStmt) stmtNode() {}
func (*CreateTableStmt) stmtNode() {}
func (*DropTableStmt) stmtNode() {}
func (*InsertStmt) stmtNode() {}
func (*UpdateStmt) stmtNode() {}
func (*DeleteStmt) stmtNode() {}
func (*SelectStmt) stmtNode() {}

// WhereExpr is a node of a WHERE clause tree.
type WhereExpr interface {
	whereNode()
}

// Comparison is "column op operand". Comparisons written with the operand on
// the left are normalized by mirroring the operator.
type Comparison struct {
	Column string
	Op     Operator
	Value  Operand
}

// AndExpr represents a logical AND of two expressions.
type AndExpr struct {
	Left, Right WhereExpr
}

// OrExpr represents a logical OR of two expressions.
type OrExpr struct {
	Left, Right WhereExpr
}

// NotExpr negates an expression.
type NotExpr struct {
	Expr WhereExpr
}

func (*Comparison) whereNode() {}
func (*AndExpr) whereNode() {}
func (*OrExpr) whereNode() {}
func (*NotExpr) whereNode() {}
