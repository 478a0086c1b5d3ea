package result

import (
	"fmt"
	"strings"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
)

// Columns describes a table schema.
type Columns struct {
	base
	cols []sql.Column
}

// NewColumns copies defs into a Columns result.
func NewColumns(defs []sql.Column) (*Columns, error) {
	if len(defs) == 0 || len(defs) > MaxColumns {
		return nil, fmt.Errorf("columns: %d column definitions: %w", len(defs), errors.ErrInvalidArgument)
	}

	cols := make([]sql.Column, len(defs))
	for i, d := range defs {
		d.Name = strings.Clone(d.Name)
		cols[i] = d
	}

	c := &Columns{cols: cols}
	c.track()
	return c, nil
}

func (*Columns) Kind() Kind { return KindColumns }

func (c *Columns) Free() { c.release() }

// Count returns the number of columns.
func (c *Columns) Count() int { return len(c.cols) }

// Column returns the definition of column i.
func (c *Columns) Column(i int) (sql.Column, error) {
	if err := checkIndex(i, len(c.cols)); err != nil {
		return sql.Column{}, err
	}
	return c.cols[i], nil
}

func (c *Columns) Name(i int) (string, error) {
	col, err := c.Column(i)
	return col.Name, err
}

func (c *Columns) Type(i int) (sql.DataType, error) {
	col, err := c.Column(i)
	return col.Type, err
}

func (c *Columns) Length(i int) (int, error) {
	col, err := c.Column(i)
	return col.Length, err
}

func (c *Columns) Flags(i int) (sql.ColumnFlags, error) {
	col, err := c.Column(i)
	return col.Flags, err
}
