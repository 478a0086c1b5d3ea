package engine

import (
	"fmt"

	"mqldb/internal/errors"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

// schema is the compile-time view of one table.
type schema struct {
	name   string
	handle sql.Handle
	cols   []sql.Column
}

func (e *DBEngine) lookup(name string) (*schema, error) {
	h, err := e.store.TableHandle(name)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	cols, err := e.store.Describe(h)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	return &schema{name: name, handle: h, cols: cols}, nil
}

func (s *schema) column(name string) (int, sql.DataType, error) {
	for i, c := range s.cols {
		if c.Name == name {
			return i, c.Type, nil
		}
	}
	return -1, sql.TypeUnknown, fmt.Errorf("unknown column %q in table %q: %w", name, s.name, errors.ErrNotFound)
}

// where flattens a WHERE clause into the engine's infix condition form.
func (s *schema) where(w sql.WhereExpr) ([]sql.CondEntry, error) {
	return sql.Flatten(w, s.column)
}

// rowColumns describes the selected columns of s, packed in the order
// they are listed. nil selects every column.
func (s *schema) rowColumns(names []string) ([]result.RowColumn, error) {
	if names == nil {
		names = make([]string, len(s.cols))
		for i, c := range s.cols {
			names[i] = c.Name
		}
	}
	out := make([]result.RowColumn, len(names))
	for j, name := range names {
		idx, _, err := s.column(name)
		if err != nil {
			return nil, err
		}
		c := s.cols[idx]
		out[j] = result.RowColumn{Index: idx, Name: c.Name, Type: c.Type, Length: c.Length, Offset: j}
	}
	return out, nil
}
