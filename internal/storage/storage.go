// Package storage defines the table storage primitives the statement
// executor is built on. Implementations own tables, rows, indices,
// transactions and trigger delivery.
package storage

import "mqldb/internal/sql"

// MaxTxDepth is the maximum nesting depth of named transactions.
const MaxTxDepth = 16

// TriggerKind selects which changes a trigger observes.
type TriggerKind int

const (
	TriggerTransaction TriggerKind = iota
	TriggerTable
	TriggerRow
	TriggerColumn
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerTransaction:
		return "transaction"
	case TriggerTable:
		return "table"
	case TriggerRow:
		return "row"
	case TriggerColumn:
		return "column"
	default:
		return "unknown"
	}
}

// TriggerID identifies a registered trigger.
type TriggerID uint64

// Trigger describes a change subscription. Row and column triggers are
// bound to Table; column triggers also to Column. Select lists the columns
// copied into Event.Select, laid out in a row buffer of SelectStride
// slots.
type Trigger struct {
	Kind         TriggerKind
	Table        sql.Handle
	Column       int
	Select       []sql.ColumnDesc
	SelectStride int

	// Func is called after the change is applied and before the call
	// that caused it returns, outside of any engine lock. The event is
	// only valid for the duration of the call.
	Func func(evt *sql.Event)
}

// Engine is the storage boundary consumed by the statement executor.
//
// Failures are reported as *errors.StorageError values carrying an
// errno-compatible code; callers pass them through unchanged.
type Engine interface {
	// CreateTable creates a table; key columns carry sql.ColumnKey.
	CreateTable(name string, flags sql.TableFlags, cols []sql.Column) (sql.Handle, error)
	DropTable(h sql.Handle) error
	TableHandle(name string) (sql.Handle, error)
	TableName(h sql.Handle) (string, error)

	// ShowTables lists table names matching flags in ascending order.
	ShowTables(flags sql.TableFlags) ([]string, error)
	Describe(h sql.Handle) ([]sql.Column, error)

	BeginTransaction(name string) error
	CommitTransaction(name string) error
	RollbackTransaction(name string) error
	TransactionDepth() int

	// InsertInto stores rows. Row buffer r holds the value of table column
	// cols[j].Index at r[cols[j].Offset]; unlisted columns get their zero
	// value. With ignore set, a row with a duplicate key replaces the
	// stored one, otherwise the whole call fails and nothing is stored.
	InsertInto(h sql.Handle, ignore bool, cols []sql.ColumnDesc, rows [][]sql.Value) (int, error)

	// Update assigns values[cols[j].Offset] to column cols[j].Index of
	// every row matching conds.
	Update(h sql.Handle, conds []sql.CondEntry, cols []sql.ColumnDesc, values []sql.Value) (int, error)

	DeleteFrom(h sql.Handle, conds []sql.CondEntry) (int, error)

	TableSize(h sql.Handle) (int, error)

	// Select copies the selected columns of at most maxRows matching rows
	// into dst, row i starting at dst[i*stride]. It returns the number of
	// rows written.
	Select(h sql.Handle, conds []sql.CondEntry, cols []sql.ColumnDesc, dst []sql.Value, stride, maxRows int) (int, error)

	AddTrigger(t Trigger) (TriggerID, error)
	RemoveTrigger(id TriggerID) error
}
