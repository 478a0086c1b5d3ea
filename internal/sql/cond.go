package sql

// Operator is an element of a flat condition list.
type Operator int

const (
	OpEnd Operator = iota
	OpBegin
	OpAnd
	OpOr
	OpLess
	OpLeq
	OpEq
	OpGeq
	OpGt
	OpNe
	OpNot
)

func (op Operator) String() string {
	switch op {
	case OpEnd:
		return ")"
	case OpBegin:
		return "("
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpLess:
		return "<"
	case OpLeq:
		return "<="
	case OpEq:
		return "="
	case OpGeq:
		return ">="
	case OpGt:
		return ">"
	case OpNe:
		return "!="
	case OpNot:
		return "NOT"
	default:
		return "?"
	}
}

// IsRelational reports whether op compares two operands.
func (op Operator) IsRelational() bool {
	return op >= OpLess && op <= OpNe
}

// Operand is either a literal value or a reference to a bind slot that is
// filled in after the statement has been compiled. For bind references the
// Value carries only the declared type.
type Operand struct {
	Value Value
	Bind  bool
	Slot  int
}

// Literal wraps a value as a constant operand.
func Literal(v Value) Operand { return Operand{Value: v} }

// Param references bind slot `slot` of declared type t.
func Param(slot int, t DataType) Operand {
	return Operand{Value: Value{Type: t}, Bind: true, Slot: slot}
}

// CondKind tags the entries of a condition list.
type CondKind int

const (
	CondOperator CondKind = iota
	CondVariable
	CondColumn
)

// CondEntry is one element of an infix condition list. OpBegin/OpEnd
// bracket sub-expressions; the list itself needs no terminator.
type CondEntry struct {
	Kind    CondKind
	Op      Operator
	Column  int
	Operand Operand
}

func OpEntry(op Operator) CondEntry { return CondEntry{Kind: CondOperator, Op: op} }
func ColumnEntry(col int) CondEntry { return CondEntry{Kind: CondColumn, Column: col} }
func ValueEntry(o Operand) CondEntry { return CondEntry{Kind: CondVariable, Operand: o} }
