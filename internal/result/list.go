package result

import (
	"fmt"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// List is a homogeneous array of scalars.
type List struct {
	base
	typ    sql.DataType
	values []sql.Value
}

// NewList copies values into a List. Every value must be of type t, which
// must be varchar, integer, unsigned or floating.
func NewList(t sql.DataType, values []sql.Value) (*List, error) {
	switch t {
	case sql.TypeVarchar, sql.TypeInteger, sql.TypeUnsigned, sql.TypeFloating:
	default:
		return nil, fmt.Errorf("list: unsupported type %s: %w", t, errors.ErrInvalidArgument)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("list: no values: %w", errors.ErrInvalidArgument)
	}

	l := &List{typ: t, values: make([]sql.Value, len(values))}
	for i, v := range values {
		if v.Type != t {
			return nil, fmt.Errorf("list: value %d is %s, want %s: %w", i, v.Type, t, errors.ErrTypeMismatch)
		}
		l.values[i] = v.Clone()
	}
	l.track()
	return l, nil
}

func NewStringList(values []string) (*List, error) {
	return newListOf(sql.TypeVarchar, values, sql.StringValue)
}

func NewIntegerList(values []int32) (*List, error) {
	return newListOf(sql.TypeInteger, values, sql.IntegerValue)
}

func NewUnsignedList(values []uint32) (*List, error) {
	return newListOf(sql.TypeUnsigned, values, sql.UnsignedValue)
}

func NewFloatingList(values []float64) (*List, error) {
	return newListOf(sql.TypeFloating, values, sql.FloatingValue)
}

func newListOf[T any](t sql.DataType, values []T, conv func(T) sql.Value) (*List, error) {
	vals := make([]sql.Value, len(values))
	for i, v := range values {
		vals[i] = conv(v)
	}
	return NewList(t, vals)
}

func (*List) Kind() Kind { return KindList }

func (l *List) Free() { l.release() }

func (l *List) Len() int { return len(l.values) }

// Type returns the element type.
func (l *List) Type() sql.DataType { return l.typ }

func (l *List) Value(i int) (sql.Value, error) {
	if err := checkIndex(i, len(l.values)); err != nil {
		return sql.Value{}, err
	}
	return l.values[i], nil
}

func (l *List) String(i int) (string, error) {
	v, err := l.Value(i)
	return asString(v), err
}

func (l *List) Integer(i int) (int32, error) {
	v, err := l.Value(i)
	return asInteger(v), err
}

func (l *List) Unsigned(i int) (uint32, error) {
	v, err := l.Value(i)
	return asUnsigned(v), err
}

func (l *List) Floating(i int) (float64, error) {
	v, err := l.Value(i)
	return asFloating(v), err
}

// Strings returns every element rendered as text.
func (l *List) Strings() []string {
	out := make([]string, len(l.values))
	for i, v := range l.values {
		out[i] = asString(v)
	}
	return out
}
