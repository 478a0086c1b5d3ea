package mql

import (
	"fmt"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

var (
	// ErrSlotRange is returned when binding a slot the statement does not
	// have.
	ErrSlotRange = fmt.Errorf("bind slot out of range: %w", errors.ErrNotFound)

	// ErrTypeMismatch is returned when a bound value's type differs from
	// the slot's declared type.
	ErrTypeMismatch = fmt.Errorf("bind value has wrong type: %w", errors.ErrTypeMismatch)

	// ErrNotBindable is returned when binding a statement without
	// parameters.
	ErrNotBindable = fmt.Errorf("statement has no parameters: %w", errors.ErrBadRequest)
)

// Bind sets bind slot i to v. The value is copied; a later Bind of the
// same slot replaces it.
func (s *Statement) Bind(i int, v sql.Value) error {
	if s.nbind == 0 {
		return fmt.Errorf("%s statement: %w", s.kind, ErrNotBindable)
	}
	if i < 0 || i >= s.nbind {
		return fmt.Errorf("slot %d of %d: %w", i, s.nbind, ErrSlotRange)
	}

	sl := &s.pool[i]
	if sl.used && v.Type != sl.typ {
		return fmt.Errorf("slot %d expects %s, got %s: %w", i, sl.typ, v.Type, ErrTypeMismatch)
	}
	if !sl.used {
		sl.typ = v.Type
	}
	sl.value = v.Clone()
	sl.bound = true
	return nil
}

// Bind sets bind slot i of stmt to v.
func Bind(stmt *Statement, i int, v sql.Value) error { return stmt.Bind(i, v) }

// Unbind forgets every bound value.
func (s *Statement) Unbind() {
	for i := 0; i < s.nbind; i++ {
		s.pool[i].bound = false
		s.pool[i].value = sql.ZeroValue(s.pool[i].typ)
	}
}

func (s *Statement) value(r Ref) (sql.Value, error) {
	switch r.Kind {
	case RefBound:
		sl := s.pool[r.Index]
		if !sl.bound {
			return sql.Value{}, fmt.Errorf("unbound parameter %d: %w", r.Index, errors.ErrInvalidArgument)
		}
		return sl.value, nil
	default:
		return s.pool[s.nbind+r.Index].value, nil
	}
}

// conditions rebuilds the condition list with every operand resolved to
// its current value.
func (s *Statement) conditions() ([]sql.CondEntry, error) {
	if len(s.conds) == 0 {
		return nil, nil
	}
	out := make([]sql.CondEntry, len(s.conds))
	for i, c := range s.conds {
		out[i] = c.entry
		if c.entry.Kind != sql.CondVariable {
			continue
		}
		v, err := s.value(c.ref)
		if err != nil {
			return nil, err
		}
		out[i].Operand = sql.Literal(v)
	}
	return out, nil
}

// rowBuffers resolves the values of an insert or update into row buffers
// laid out by the statement's column descriptors.
func (s *Statement) rowBuffers() ([][]sql.Value, error) {
	bufs := make([][]sql.Value, len(s.values))
	for r, refs := range s.values {
		buf := make([]sql.Value, s.stride)
		for j, cd := range s.cols {
			v, err := s.value(refs[j])
			if err != nil {
				return nil, err
			}
			buf[cd.Offset] = v
		}
		bufs[r] = buf
	}
	return bufs, nil
}
