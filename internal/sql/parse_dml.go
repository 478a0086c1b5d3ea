package sql

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// parseDML parses INSERT, REPLACE, UPDATE, DELETE and SELECT.
// Positional '?' placeholders become bind slots 0, 1, 2, ... in the order
// they appear in the query text.
func parseDML(query string) (Statement, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %w", err)
	}

	switch v := stmt.(type) {
	case *sqlparser.Insert:
		return convertInsert(v)
	case *sqlparser.Update:
		return convertUpdate(v)
	case *sqlparser.Delete:
		return convertDelete(v)
	case *sqlparser.Select:
		return convertSelect(v)
	default:
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}
}

func convertInsert(ins *sqlparser.Insert) (Statement, error) {
	if len(ins.OnDup) > 0 {
		return nil, fmt.Errorf("INSERT: ON DUPLICATE KEY UPDATE is not supported")
	}
	values, ok := ins.Rows.(sqlparser.Values)
	if !ok {
		return nil, fmt.Errorf("INSERT: only VALUES lists are supported")
	}

	out := &InsertStmt{
		TableName: ins.Table.Name.String(),
		// REPLACE and INSERT IGNORE both overwrite rows with a duplicate key.
		Ignore: ins.Action == sqlparser.ReplaceStr || ins.Ignore != "",
	}
	for _, c := range ins.Columns {
		out.Columns = append(out.Columns, c.String())
	}

	for _, tuple := range values {
		row := make([]Operand, 0, len(tuple))
		for _, e := range tuple {
			op, err := convertOperand(e)
			if err != nil {
				return nil, fmt.Errorf("INSERT: %w", err)
			}
			row = append(row, op)
		}
		if len(out.Columns) > 0 && len(row) != len(out.Columns) {
			return nil, fmt.Errorf("INSERT: %d values for %d columns", len(row), len(out.Columns))
		}
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

func convertUpdate(upd *sqlparser.Update) (Statement, error) {
	if len(upd.OrderBy) > 0 || upd.Limit != nil {
		return nil, fmt.Errorf("UPDATE: ORDER BY and LIMIT are not supported")
	}
	table, err := singleTable(upd.TableExprs)
	if err != nil {
		return nil, fmt.Errorf("UPDATE: %w", err)
	}

	out := &UpdateStmt{TableName: table}
	for _, ue := range upd.Exprs {
		op, err := convertOperand(ue.Expr)
		if err != nil {
			return nil, fmt.Errorf("UPDATE: %w", err)
		}
		out.Set = append(out.Set, Assignment{Column: ue.Name.Name.String(), Value: op})
	}

	if out.Where, err = convertWhere(upd.Where); err != nil {
		return nil, fmt.Errorf("UPDATE: %w", err)
	}
	return out, nil
}

func convertDelete(del *sqlparser.Delete) (Statement, error) {
	if len(del.Targets) > 0 || len(del.OrderBy) > 0 || del.Limit != nil {
		return nil, fmt.Errorf("DELETE: only 'DELETE FROM <table> [WHERE ...]' is supported")
	}
	table, err := singleTable(del.TableExprs)
	if err != nil {
		return nil, fmt.Errorf("DELETE: %w", err)
	}

	out := &DeleteStmt{TableName: table}
	if out.Where, err = convertWhere(del.Where); err != nil {
		return nil, fmt.Errorf("DELETE: %w", err)
	}
	return out, nil
}

func convertSelect(sel *sqlparser.Select) (Statement, error) {
	if sel.Distinct != "" || len(sel.GroupBy) > 0 || sel.Having != nil ||
		len(sel.OrderBy) > 0 || sel.Limit != nil {
		return nil, fmt.Errorf("SELECT: only column lists with an optional WHERE are supported")
	}
	table, err := singleTable(sel.From)
	if err != nil {
		return nil, fmt.Errorf("SELECT: %w", err)
	}

	out := &SelectStmt{TableName: table}
	for _, se := range sel.SelectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			if len(sel.SelectExprs) != 1 {
				return nil, fmt.Errorf("SELECT: '*' cannot be combined with other columns")
			}
		case *sqlparser.AliasedExpr:
			col, ok := e.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("SELECT: only plain columns can be selected")
			}
			out.Columns = append(out.Columns, col.Name.String())
		default:
			return nil, fmt.Errorf("SELECT: unsupported select expression %T", se)
		}
	}

	if out.Where, err = convertWhere(sel.Where); err != nil {
		return nil, fmt.Errorf("SELECT: %w", err)
	}
	return out, nil
}

func singleTable(exprs sqlparser.TableExprs) (string, error) {
	if len(exprs) != 1 {
		return "", fmt.Errorf("exactly one table expected")
	}
	ate, ok := exprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("joins are not supported")
	}
	tn, ok := ate.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("subqueries are not supported")
	}
	return tn.Name.String(), nil
}

func convertWhere(w *sqlparser.Where) (WhereExpr, error) {
	if w == nil || w.Expr == nil {
		return nil, nil
	}
	return convertCondition(w.Expr)
}

func convertCondition(e sqlparser.Expr) (WhereExpr, error) {
	switch v := e.(type) {
	case *sqlparser.AndExpr:
		l, err := convertCondition(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := convertCondition(v.Right)
		if err != nil {
			return nil, err
		}
		return &AndExpr{Left: l, Right: r}, nil
	case *sqlparser.OrExpr:
		l, err := convertCondition(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := convertCondition(v.Right)
		if err != nil {
			return nil, err
		}
		return &OrExpr{Left: l, Right: r}, nil
	case *sqlparser.NotExpr:
		inner, err := convertCondition(v.Expr)
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	case *sqlparser.ParenExpr:
		return convertCondition(v.Expr)
	case *sqlparser.ComparisonExpr:
		return convertComparison(v)
	default:
		return nil, fmt.Errorf("unsupported condition %q", sqlparser.String(e))
	}
}

func convertComparison(c *sqlparser.ComparisonExpr) (WhereExpr, error) {
	var op Operator
	switch c.Operator {
	case sqlparser.EqualStr:
		op = OpEq
	case sqlparser.NotEqualStr:
		op = OpNe
	case sqlparser.LessThanStr:
		op = OpLess
	case sqlparser.LessEqualStr:
		op = OpLeq
	case sqlparser.GreaterThanStr:
		op = OpGt
	case sqlparser.GreaterEqualStr:
		op = OpGeq
	default:
		return nil, fmt.Errorf("unsupported operator %q", c.Operator)
	}

	if col, ok := c.Left.(*sqlparser.ColName); ok {
		val, err := convertOperand(c.Right)
		if err != nil {
			return nil, err
		}
		return &Comparison{Column: col.Name.String(), Op: op, Value: val}, nil
	}
	if col, ok := c.Right.(*sqlparser.ColName); ok {
		val, err := convertOperand(c.Left)
		if err != nil {
			return nil, err
		}
		return &Comparison{Column: col.Name.String(), Op: mirror(op), Value: val}, nil
	}

	return nil, fmt.Errorf("comparison %q must reference a column", sqlparser.String(c))
}

// mirror returns the operator that gives the same result with the operands
// swapped.
func mirror(op Operator) Operator {
	switch op {
	case OpLess:
		return OpGt
	case OpLeq:
		return OpGeq
	case OpGt:
		return OpLess
	case OpGeq:
		return OpLeq
	default:
		return op
	}
}

func convertOperand(e sqlparser.Expr) (Operand, error) {
	switch v := e.(type) {
	case *sqlparser.SQLVal:
		switch v.Type {
		case sqlparser.StrVal:
			return Literal(StringValue(string(v.Val))), nil
		case sqlparser.IntVal, sqlparser.FloatVal:
			val, err := parseNumber(string(v.Val))
			if err != nil {
				return Operand{}, err
			}
			return Literal(val), nil
		case sqlparser.HexVal:
			b, err := hex.DecodeString(string(v.Val))
			if err != nil {
				return Operand{}, fmt.Errorf("invalid hex literal: %w", err)
			}
			return Literal(BlobValue(b)), nil
		case sqlparser.ValArg:
			slot, err := placeholderSlot(string(v.Val))
			if err != nil {
				return Operand{}, err
			}
			return Param(slot, TypeUnknown), nil
		}
	case *sqlparser.UnaryExpr:
		if v.Operator == sqlparser.UMinusStr {
			op, err := convertOperand(v.Expr)
			if err != nil {
				return Operand{}, err
			}
			if op.Bind {
				return Operand{}, fmt.Errorf("cannot negate a parameter")
			}
			neg, err := negate(op.Value)
			if err != nil {
				return Operand{}, err
			}
			return Literal(neg), nil
		}
	case *sqlparser.ParenExpr:
		return convertOperand(v.Expr)
	}

	return Operand{}, fmt.Errorf("unsupported value %q", sqlparser.String(e))
}

// placeholderSlot maps the ":vN" names sqlparser gives '?' to slot N-1.
func placeholderSlot(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, ":v"))
	if err != nil || !strings.HasPrefix(name, ":v") || n < 1 {
		return 0, fmt.Errorf("named parameter %q is not supported, use '?'", name)
	}
	return n - 1, nil
}

func negate(v Value) (Value, error) {
	switch v.Type {
	case TypeInteger:
		if v.I32 == math.MinInt32 {
			return UnsignedValue(uint32(math.MaxInt32) + 1), nil
		}
		return IntegerValue(-v.I32), nil
	case TypeUnsigned:
		if v.U32 <= uint32(math.MaxInt32)+1 {
			return IntegerValue(int32(-int64(v.U32))), nil
		}
		return FloatingValue(-float64(v.U32)), nil
	case TypeFloating:
		return FloatingValue(-v.F64), nil
	default:
		return Value{}, fmt.Errorf("cannot negate %s value", v.Type)
	}
}
