package sql

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strings"

	"mqldb/internal/errors"
)

// DataType represents the logical type of a value in a column.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeVarchar
	TypeInteger
	TypeUnsigned
	TypeFloating
	TypeBlob
)

// TypeString is the same as TypeVarchar.
const TypeString = TypeVarchar

func (t DataType) String() string {
	switch t {
	case TypeVarchar:
		return "varchar"
	case TypeInteger:
		return "integer"
	case TypeUnsigned:
		return "unsigned"
	case TypeFloating:
		return "floating"
	case TypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value represents a single cell in a table (one column in one row).
// Only the field matching Type should be read; other fields remain at their
// zero values to keep the struct compact and easy to inspect while debugging.
type Value struct {
	Type DataType

	S    string  // for TypeVarchar
	I32  int32   // for TypeInteger
	U32  uint32  // for TypeUnsigned
	F64  float64 // for TypeFloating
	Blob []byte  // for TypeBlob
}

func StringValue(s string) Value { return Value{Type: TypeVarchar, S: s} }
func IntegerValue(i int32) Value { return Value{Type: TypeInteger, I32: i} }
func UnsignedValue(u uint32) Value { return Value{Type: TypeUnsigned, U32: u} }
func FloatingValue(f float64) Value { return Value{Type: TypeFloating, F64: f} }
func BlobValue(b []byte) Value { return Value{Type: TypeBlob, Blob: bytes.Clone(b)} }
func ZeroValue(t DataType) Value { return Value{Type: t} }
func (v Value) Equal(o Value) bool { return v.Type == o.Type && Compare(v, o) == 0 }
func (v Value) String() string { return v.Format() }

// Clone returns a copy of v that shares no memory with it.
func (v Value) Clone() Value {
	switch v.Type {
	case TypeVarchar:
		v.S = strings.Clone(v.S)
	case TypeBlob:
		v.Blob = bytes.Clone(v.Blob)
	}
	return v
}

// Format renders the value the way the console prints it.
func (v Value) Format() string {
	switch v.Type {
	case TypeVarchar:
		return v.S
	case TypeInteger:
		return fmt.Sprintf("%d", v.I32)
	case TypeUnsigned:
		return fmt.Sprintf("%d", v.U32)
	case TypeFloating:
		return fmt.Sprintf("%f", v.F64)
	case TypeBlob:
		return fmt.Sprintf("%x", v.Blob)
	default:
		return "NULL"
	}
}

// Compare is a three-way comparison of two values of the same type.
// Values of different types are ordered by their type tag.
func Compare(a, b Value) int {
	if a.Type != b.Type {
		return cmp.Compare(a.Type, b.Type)
	}
	switch a.Type {
	case TypeVarchar:
		return strings.Compare(a.S, b.S)
	case TypeInteger:
		return cmp.Compare(a.I32, b.I32)
	case TypeUnsigned:
		return cmp.Compare(a.U32, b.U32)
	case TypeFloating:
		return cmp.Compare(a.F64, b.F64)
	case TypeBlob:
		return bytes.Compare(a.Blob, b.Blob)
	default:
		return 0
	}
}

// Coerce converts v to type t when the conversion loses nothing.
// Numeric literals are parsed into their narrowest type, so a literal
// compared with or assigned to a column usually needs to be widened.
func Coerce(v Value, t DataType) (Value, error) {
	if v.Type == t {
		return v, nil
	}

	switch t {
	case TypeInteger:
		switch v.Type {
		case TypeUnsigned:
			if v.U32 <= math.MaxInt32 {
				return IntegerValue(int32(v.U32)), nil
			}
		case TypeFloating:
			if v.F64 == math.Trunc(v.F64) && v.F64 >= math.MinInt32 && v.F64 <= math.MaxInt32 {
				return IntegerValue(int32(v.F64)), nil
			}
		}
	case TypeUnsigned:
		switch v.Type {
		case TypeInteger:
			if v.I32 >= 0 {
				return UnsignedValue(uint32(v.I32)), nil
			}
		case TypeFloating:
			if v.F64 == math.Trunc(v.F64) && v.F64 >= 0 && v.F64 <= math.MaxUint32 {
				return UnsignedValue(uint32(v.F64)), nil
			}
		}
	case TypeFloating:
		switch v.Type {
		case TypeInteger:
			return FloatingValue(float64(v.I32)), nil
		case TypeUnsigned:
			return FloatingValue(float64(v.U32)), nil
		}
	case TypeBlob:
		if v.Type == TypeVarchar {
			return BlobValue([]byte(v.S)), nil
		}
	}

	return Value{}, fmt.Errorf("cannot use %s %s as %s: %w", v.Type, v.Format(), t, errors.ErrTypeMismatch)
}

// Row represents one record in a table: a slice of Values, one per column.
type Row []Value

// Clone deep-copies a row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for i, v := range r {
		out[i] = v.Clone()
	}
	return out
}

// CompareRows compares two rows column by column.
func CompareRows(a, b Row) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// ColumnFlags carries per-column attributes.
type ColumnFlags uint32

const (
	ColumnKey ColumnFlags = 1 << iota
	ColumnAutoIncr
)

// Column describes metadata for a single column in a table.
type Column struct {
	Name   string
	Type   DataType
	Length int
	Flags  ColumnFlags
}

// ColumnDesc selects a table column and the slot its value is read from or
// written to within a row buffer.
type ColumnDesc struct {
	Index  int // table column index
	Offset int // slot within the row buffer
}

// Handle identifies a table in the storage backend.
type Handle uint32

// InvalidHandle never refers to a table.
const InvalidHandle Handle = 0

// TableFlags selects table lifetimes.
type TableFlags uint32

const (
	TablePersistent TableFlags = 1 << iota
	TableTemporary

	TableAny = TablePersistent | TableTemporary
)
