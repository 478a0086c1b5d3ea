package engine

import (
	"fmt"

	"mqldb/internal/mql"
	"mqldb/internal/result"
)

func (e *DBEngine) registry() (*mql.Triggers, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	return e.triggers, nil
}

// RegisterCallback makes fn available to triggers under name. kind is
// result.KindEvent or result.KindString.
func (e *DBEngine) RegisterCallback(name string, kind result.Kind, fn mql.Callback, userData any) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	return t.RegisterCallback(name, kind, fn, userData)
}

func (e *DBEngine) UnregisterCallback(name string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	return t.UnregisterCallback(name)
}

func (e *DBEngine) CreateTransactionTrigger(name, callback string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	return t.CreateTransactionTrigger(name, callback)
}

func (e *DBEngine) CreateTableTrigger(name, callback string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	return t.CreateTableTrigger(name, callback)
}

// CreateRowTrigger watches inserts into and deletes from table. Each
// event carries the selected columns of the affected row; no columns
// means no row data.
func (e *DBEngine) CreateRowTrigger(name, table, callback string, columns ...string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	tbl, sel, err := e.triggerTable(table, columns)
	if err != nil {
		return err
	}
	return t.CreateRowTrigger(name, tbl.handle, callback, sel)
}

// CreateColumnTrigger watches value changes of table.column.
func (e *DBEngine) CreateColumnTrigger(name, table, column, callback string, columns ...string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	tbl, sel, err := e.triggerTable(table, columns)
	if err != nil {
		return err
	}
	idx, _, err := tbl.column(column)
	if err != nil {
		return err
	}
	return t.CreateColumnTrigger(name, tbl.handle, idx, callback, sel)
}

func (e *DBEngine) DropTrigger(name string) error {
	t, err := e.registry()
	if err != nil {
		return err
	}
	return t.DropTrigger(name)
}

func (e *DBEngine) triggerTable(table string, columns []string) (*schema, []result.RowColumn, error) {
	tbl, err := e.lookup(table)
	if err != nil {
		return nil, nil, err
	}
	if len(columns) == 0 {
		return tbl, nil, nil
	}
	sel, err := tbl.rowColumns(columns)
	if err != nil {
		return nil, nil, fmt.Errorf("trigger selection: %w", err)
	}
	return tbl, sel, nil
}
