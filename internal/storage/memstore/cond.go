package memstore

import (
	"fmt"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// predicate reports whether a stored row matches a condition list.
type predicate func(row sql.Row) bool

func matchAll(sql.Row) bool { return true }

// compileCond turns an infix condition list into a predicate.
//
// Grammar, NOT binding tighter than AND, AND tighter than OR:
//
//	expr    = term { OR term }
//	term    = factor { AND factor }
//	factor  = NOT factor | primary
//	primary = BEGIN expr END | operand relop operand
//	operand = column | variable
func compileCond(conds []sql.CondEntry, cols []sql.Column) (predicate, error) {
	if len(conds) == 0 {
		return matchAll, nil
	}

	p := &condParser{conds: conds, cols: cols}
	pred, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(conds) {
		return nil, p.errorf("unexpected %s", p.describe(p.pos))
	}
	return pred, nil
}

type condParser struct {
	conds []sql.CondEntry
	cols  []sql.Column
	pos   int
}

func (p *condParser) errorf(format string, args ...any) error {
	return errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
		"condition entry %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *condParser) describe(i int) string {
	if i >= len(p.conds) {
		return "end of condition"
	}
	c := p.conds[i]
	switch c.Kind {
	case sql.CondOperator:
		return fmt.Sprintf("operator %s", c.Op)
	case sql.CondColumn:
		return fmt.Sprintf("column %d", c.Column)
	default:
		return "value"
	}
}

func (p *condParser) peekOp(op sql.Operator) bool {
	if p.pos >= len(p.conds) {
		return false
	}
	c := p.conds[p.pos]
	return c.Kind == sql.CondOperator && c.Op == op
}

func (p *condParser) expr() (predicate, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.peekOp(sql.OpOr) {
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(row sql.Row) bool { return l(row) || r(row) }
	}
	return left, nil
}

func (p *condParser) term() (predicate, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.peekOp(sql.OpAnd) {
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(row sql.Row) bool { return l(row) && r(row) }
	}
	return left, nil
}

func (p *condParser) factor() (predicate, error) {
	if p.peekOp(sql.OpNot) {
		p.pos++
		inner, err := p.factor()
		if err != nil {
			return nil, err
		}
		return func(row sql.Row) bool { return !inner(row) }, nil
	}
	return p.primary()
}

func (p *condParser) primary() (predicate, error) {
	if p.peekOp(sql.OpBegin) {
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if !p.peekOp(sql.OpEnd) {
			return nil, p.errorf("expected ')', got %s", p.describe(p.pos))
		}
		p.pos++
		return inner, nil
	}

	left, ltype, err := p.operand()
	if err != nil {
		return nil, err
	}

	if p.pos >= len(p.conds) || p.conds[p.pos].Kind != sql.CondOperator || !p.conds[p.pos].Op.IsRelational() {
		return nil, p.errorf("expected comparison operator, got %s", p.describe(p.pos))
	}
	op := p.conds[p.pos].Op
	p.pos++

	right, rtype, err := p.operand()
	if err != nil {
		return nil, err
	}
	if ltype != rtype {
		return nil, errors.NewStorage(errors.CodeInvalid, errors.ErrTypeMismatch,
			"cannot compare %s with %s", ltype, rtype)
	}

	return func(row sql.Row) bool {
		return relop(op, sql.Compare(left(row), right(row)))
	}, nil
}

// operand returns an accessor for a column or constant and its type.
func (p *condParser) operand() (func(sql.Row) sql.Value, sql.DataType, error) {
	if p.pos >= len(p.conds) {
		return nil, sql.TypeUnknown, p.errorf("missing operand")
	}
	c := p.conds[p.pos]

	switch c.Kind {
	case sql.CondColumn:
		if c.Column < 0 || c.Column >= len(p.cols) {
			return nil, sql.TypeUnknown, errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound,
				"condition references column %d of %d", c.Column, len(p.cols))
		}
		p.pos++
		idx := c.Column
		return func(row sql.Row) sql.Value { return row[idx] }, p.cols[idx].Type, nil

	case sql.CondVariable:
		if c.Operand.Bind {
			return nil, sql.TypeUnknown, p.errorf("unresolved parameter %d", c.Operand.Slot)
		}
		p.pos++
		v := c.Operand.Value.Clone()
		return func(sql.Row) sql.Value { return v }, v.Type, nil

	default:
		return nil, sql.TypeUnknown, p.errorf("expected operand, got %s", p.describe(p.pos))
	}
}

func relop(op sql.Operator, c int) bool {
	switch op {
	case sql.OpLess:
		return c < 0
	case sql.OpLeq:
		return c <= 0
	case sql.OpEq:
		return c == 0
	case sql.OpGeq:
		return c >= 0
	case sql.OpGt:
		return c > 0
	case sql.OpNe:
		return c != 0
	default:
		return false
	}
}
