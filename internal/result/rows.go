package result

import (
	"fmt"
	"strings"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// RowColumn describes one selected column of a row buffer: the table
// column it came from and the slot it occupies within each row.
type RowColumn struct {
	Index  int
	Name   string
	Type   sql.DataType
	Length int
	Offset int
}

// Rows is a materialized, strongly typed table snapshot. Row r, column c
// lives at data[r*stride + cols[c].Offset].
type Rows struct {
	base
	cols   []RowColumn
	nrow   int
	stride int
	data   []sql.Value
}

func validateLayout(cols []RowColumn, nrow, stride int, data []sql.Value) error {
	if len(cols) == 0 || len(cols) > MaxColumns {
		return fmt.Errorf("rows: %d columns: %w", len(cols), errors.ErrInvalidArgument)
	}
	if nrow < 0 || stride <= 0 {
		return fmt.Errorf("rows: %d rows of stride %d: %w", nrow, stride, errors.ErrInvalidArgument)
	}
	for _, c := range cols {
		if c.Offset < 0 || c.Offset >= stride {
			return fmt.Errorf("rows: column %q offset %d outside stride %d: %w", c.Name, c.Offset, stride, errors.ErrInvalidArgument)
		}
	}
	if len(data) < nrow*stride {
		return fmt.Errorf("rows: buffer holds %d values, need %d: %w", len(data), nrow*stride, errors.ErrInvalidArgument)
	}
	return nil
}

// NewRows copies nrow rows of the buffer data into a Rows result.
func NewRows(cols []RowColumn, nrow, stride int, data []sql.Value) (*Rows, error) {
	if err := validateLayout(cols, nrow, stride, data); err != nil {
		return nil, err
	}

	r := &Rows{
		cols:   cloneRowColumns(cols),
		nrow:   nrow,
		stride: stride,
		data:   make([]sql.Value, nrow*stride),
	}
	for i := range r.data {
		r.data[i] = data[i].Clone()
	}
	r.track()
	return r, nil
}

func cloneRowColumns(cols []RowColumn) []RowColumn {
	out := make([]RowColumn, len(cols))
	for i, c := range cols {
		c.Name = strings.Clone(c.Name)
		out[i] = c
	}
	return out
}

func (*Rows) Kind() Kind { return KindRows }

func (r *Rows) Free() { r.release() }

func (r *Rows) RowCount() int { return r.nrow }

func (r *Rows) ColumnCount() int { return len(r.cols) }

// Stride returns the number of value slots per row.
func (r *Rows) Stride() int { return r.stride }

// Column returns the descriptor of selected column c.
func (r *Rows) Column(c int) (RowColumn, error) {
	if err := checkIndex(c, len(r.cols)); err != nil {
		return RowColumn{}, err
	}
	return r.cols[c], nil
}

// Value returns the cell at column c of row row.
func (r *Rows) Value(c, row int) (sql.Value, error) {
	if err := checkIndex(c, len(r.cols)); err != nil {
		return sql.Value{}, err
	}
	if err := checkIndex(row, r.nrow); err != nil {
		return sql.Value{}, err
	}
	return r.data[row*r.stride+r.cols[c].Offset], nil
}

// String returns the cell rendered as text.
func (r *Rows) String(c, row int) (string, error) {
	v, err := r.Value(c, row)
	return asString(v), err
}

// Integer returns the cell converted to a signed integer.
func (r *Rows) Integer(c, row int) (int32, error) {
	v, err := r.Value(c, row)
	return asInteger(v), err
}

// Unsigned returns the cell converted to an unsigned integer.
func (r *Rows) Unsigned(c, row int) (uint32, error) {
	v, err := r.Value(c, row)
	return asUnsigned(v), err
}

// Floating returns the cell converted to a float.
func (r *Rows) Floating(c, row int) (float64, error) {
	v, err := r.Value(c, row)
	return asFloating(v), err
}
