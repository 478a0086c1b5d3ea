package sql

import "fmt"

// ColumnResolver maps a column name to its table index and type.
type ColumnResolver func(name string) (int, DataType, error)

// TypedOperand fixes the type of an operand used with a column of type t.
// Literals are coerced, bind slots take the column's type.
func TypedOperand(op Operand, t DataType) (Operand, error) {
	if op.Bind {
		op.Value = Value{Type: t}
		return op, nil
	}
	v, err := Coerce(op.Value, t)
	if err != nil {
		return Operand{}, err
	}
	return Literal(v), nil
}

// Flatten converts a WHERE tree into an infix condition list, resolving
// column names through resolve. A nil tree gives an empty list.
func Flatten(w WhereExpr, resolve ColumnResolver) ([]CondEntry, error) {
	if w == nil {
		return nil, nil
	}
	var out []CondEntry
	if err := flatten(w, resolve, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(w WhereExpr, resolve ColumnResolver, out *[]CondEntry) error {
	switch e := w.(type) {
	case *Comparison:
		idx, typ, err := resolve(e.Column)
		if err != nil {
			return err
		}
		op, err := TypedOperand(e.Value, typ)
		if err != nil {
			return fmt.Errorf("column %q: %w", e.Column, err)
		}
		*out = append(*out, ColumnEntry(idx), OpEntry(e.Op), ValueEntry(op))
		return nil

	case *AndExpr:
		if err := flattenGrouped(e.Left, isOr(e.Left), resolve, out); err != nil {
			return err
		}
		*out = append(*out, OpEntry(OpAnd))
		return flattenGrouped(e.Right, isOr(e.Right), resolve, out)

	case *OrExpr:
		if err := flatten(e.Left, resolve, out); err != nil {
			return err
		}
		*out = append(*out, OpEntry(OpOr))
		return flatten(e.Right, resolve, out)

	case *NotExpr:
		*out = append(*out, OpEntry(OpNot))
		_, simple := e.Expr.(*Comparison)
		return flattenGrouped(e.Expr, !simple, resolve, out)

	default:
		return fmt.Errorf("unsupported condition node %T", w)
	}
}

func flattenGrouped(w WhereExpr, group bool, resolve ColumnResolver, out *[]CondEntry) error {
	if !group {
		return flatten(w, resolve, out)
	}
	*out = append(*out, OpEntry(OpBegin))
	if err := flatten(w, resolve, out); err != nil {
		return err
	}
	*out = append(*out, OpEntry(OpEnd))
	return nil
}

func isOr(w WhereExpr) bool {
	_, ok := w.(*OrExpr)
	return ok
}
