package result

import (
	"strings"

	"mqldb/internal/sql"
)

// Event is a change notification delivered to trigger callbacks. Column
// and row events may carry a snapshot of the trigger's selected columns;
// the snapshot is owned by the event and freed with it.
type Event struct {
	base
	typ sql.EventType

	table     sql.Handle
	tableName string

	column     int
	columnName string
	oldValue   sql.Value
	newValue   sql.Value

	rows *Rows

	depth int
}

func newEvent(e *Event) *Event {
	e.track()
	return e
}

// NewColumnChangeEvent creates a column-changed event. It takes ownership
// of rows, which may be nil.
func NewColumnChangeEvent(table sql.Handle, tableName string, column int, columnName string, oldValue, newValue sql.Value, rows *Rows) *Event {
	return newEvent(&Event{
		typ:        sql.EventColumnChanged,
		table:      table,
		tableName:  strings.Clone(tableName),
		column:     column,
		columnName: strings.Clone(columnName),
		oldValue:   oldValue.Clone(),
		newValue:   newValue.Clone(),
		rows:       rows,
	})
}

// NewRowEvent creates a row-inserted or row-deleted event. It takes
// ownership of rows, which may be nil.
func NewRowEvent(event sql.EventType, table sql.Handle, tableName string, rows *Rows) *Event {
	return newEvent(&Event{
		typ:       event,
		table:     table,
		tableName: strings.Clone(tableName),
		column:    -1,
		rows:      rows,
	})
}

// NewTableEvent creates a table-created or table-dropped event.
func NewTableEvent(event sql.EventType, table sql.Handle, tableName string) *Event {
	return newEvent(&Event{
		typ:       event,
		table:     table,
		tableName: strings.Clone(tableName),
		column:    -1,
	})
}

// NewTransactionEvent creates a transaction-start or transaction-end event.
func NewTransactionEvent(event sql.EventType, depth int) *Event {
	return newEvent(&Event{typ: event, column: -1, depth: depth})
}

func (*Event) Kind() Kind { return KindEvent }

// Free releases the event and the snapshot it carries.
func (e *Event) Free() {
	if e.release() && e.rows != nil {
		e.rows.Free()
	}
}

func (e *Event) Type() sql.EventType { return e.typ }

func (e *Event) Table() sql.Handle { return e.table }

func (e *Event) TableName() string { return e.tableName }

// Column returns the index of the changed column, -1 for other events.
func (e *Event) Column() int { return e.column }

func (e *Event) ColumnName() string { return e.columnName }

func (e *Event) OldValue() sql.Value { return e.oldValue }

func (e *Event) NewValue() sql.Value { return e.newValue }

// Rows returns the selected snapshot, or nil. It remains owned by the
// event and must not be freed by the caller.
func (e *Event) Rows() *Rows { return e.rows }

// Depth returns the transaction nesting depth of transaction events.
func (e *Event) Depth() int { return e.depth }
