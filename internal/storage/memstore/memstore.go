// Package memstore is the in-memory implementation of storage.Engine.
// Tables keep their rows in key order in a sequence; transactions are
// undo logs that are replayed backwards on rollback.
package memstore

import (
	"slices"
	"sort"
	"sync"

	"mqldb/internal/errors"
	"mqldb/internal/sequence"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

const defaultAlloc = 16

type memEngine struct {
	mu sync.RWMutex

	alloc    int
	rowLimit int

	tables     map[string]*table
	handles    map[sql.Handle]*table
	nextHandle sql.Handle

	txs []*txFrame

	triggers    []*trigger
	nextTrigger storage.TriggerID

	// events raised by the operation holding the write lock, delivered
	// once it is released
	pending []delivery
}

// Option configures the engine.
type Option func(*memEngine)

// WithSequenceAlloc sets the growth increment of the per-table row index.
func WithSequenceAlloc(n int) Option {
	return func(e *memEngine) {
		if n > 0 && n < sequence.MaxAlloc {
			e.alloc = n
		}
	}
}

// WithRowLimit caps the number of rows a single table can hold.
func WithRowLimit(n int) Option {
	return func(e *memEngine) {
		if n > 0 {
			e.rowLimit = n
		}
	}
}

// New creates a new in-memory storage engine.
func New(opts ...Option) storage.Engine {
	e := &memEngine{
		alloc:      defaultAlloc,
		rowLimit:   sequence.MaxEntries,
		tables:     make(map[string]*table),
		handles:    make(map[sql.Handle]*table),
		nextHandle: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// write runs fn under the write lock and then delivers the events it
// raised. A failed operation leaves no change behind and raises nothing.
func (e *memEngine) write(fn func() error) error {
	e.mu.Lock()
	err := fn()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	if err != nil {
		return err
	}
	for i := range pending {
		pending[i].fn(&pending[i].evt)
	}
	return nil
}

func (e *memEngine) lookup(h sql.Handle) (*table, error) {
	t, ok := e.handles[h]
	if !ok {
		return nil, errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound, "no table with handle %d", h)
	}
	return t, nil
}

// CreateTable creates a table. Columns flagged sql.ColumnKey form the
// primary key, in column order.
func (e *memEngine) CreateTable(name string, flags sql.TableFlags, cols []sql.Column) (sql.Handle, error) {
	if name == "" {
		return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "empty table name")
	}
	if flags == 0 {
		flags = sql.TablePersistent
	}
	if flags != sql.TablePersistent && flags != sql.TableTemporary {
		return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
			"table %s: invalid flags %#x", name, uint32(flags))
	}
	if len(cols) == 0 {
		return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
			"table %s has no columns", name)
	}

	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: unnamed column", name)
		}
		if _, dup := seen[c.Name]; dup {
			return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: duplicate column %s", name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Type < sql.TypeVarchar || c.Type > sql.TypeBlob {
			return sql.InvalidHandle, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: column %s has invalid type", name, c.Name)
		}
	}

	var h sql.Handle
	err := e.write(func() error {
		if _, exists := e.tables[name]; exists {
			return errors.NewStorage(errors.CodeExists, errors.ErrExists, "table %s already exists", name)
		}

		t, err := newTable(e.nextHandle, name, flags, cols, e.alloc, e.rowLimit)
		if err != nil {
			return err
		}
		e.nextHandle++

		e.attach(t)
		e.record(undo{kind: undoCreateTable, table: t})
		e.raiseTable(sql.EventTableCreated, t)
		h = t.handle
		return nil
	})
	if err != nil {
		return sql.InvalidHandle, err
	}
	return h, nil
}

func (e *memEngine) attach(t *table) {
	e.tables[t.name] = t
	e.handles[t.handle] = t
}

func (e *memEngine) detach(t *table) {
	delete(e.tables, t.name)
	delete(e.handles, t.handle)
}

// DropTable removes a table. Triggers bound to it stay registered but
// never fire again unless the drop is rolled back.
func (e *memEngine) DropTable(h sql.Handle) error {
	return e.write(func() error {
		t, err := e.lookup(h)
		if err != nil {
			return err
		}
		e.detach(t)
		e.record(undo{kind: undoDropTable, table: t})
		e.raiseTable(sql.EventTableDropped, t)
		return nil
	})
}

func (e *memEngine) TableHandle(name string) (sql.Handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, ok := e.tables[name]
	if !ok {
		return sql.InvalidHandle, errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound, "table %s does not exist", name)
	}
	return t.handle, nil
}

func (e *memEngine) TableName(h sql.Handle) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(h)
	if err != nil {
		return "", err
	}
	return t.name, nil
}

func (e *memEngine) ShowTables(flags sql.TableFlags) ([]string, error) {
	if flags&sql.TableAny == 0 {
		return nil, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "invalid table flags %#x", uint32(flags))
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tables))
	for name, t := range e.tables {
		if t.flags&flags != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *memEngine) Describe(h sql.Handle) ([]sql.Column, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.cols), nil
}

func (e *memEngine) TableSize(h sql.Handle) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(h)
	if err != nil {
		return 0, err
	}
	return t.rows.Len(), nil
}

func (e *memEngine) InsertInto(h sql.Handle, ignore bool, cols []sql.ColumnDesc, rows [][]sql.Value) (int, error) {
	var n int
	err := e.write(func() error {
		t, err := e.lookup(h)
		if err != nil {
			return err
		}
		n, err = e.insert(t, ignore, cols, rows)
		return err
	})
	return n, err
}

func (e *memEngine) Update(h sql.Handle, conds []sql.CondEntry, cols []sql.ColumnDesc, values []sql.Value) (int, error) {
	var n int
	err := e.write(func() error {
		t, err := e.lookup(h)
		if err != nil {
			return err
		}
		n, err = e.update(t, conds, cols, values)
		return err
	})
	return n, err
}

func (e *memEngine) DeleteFrom(h sql.Handle, conds []sql.CondEntry) (int, error) {
	var n int
	err := e.write(func() error {
		t, err := e.lookup(h)
		if err != nil {
			return err
		}
		n, err = e.delete(t, conds)
		return err
	})
	return n, err
}

func (e *memEngine) Select(h sql.Handle, conds []sql.CondEntry, cols []sql.ColumnDesc, dst []sql.Value, stride, maxRows int) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.lookup(h)
	if err != nil {
		return 0, err
	}
	return t.selectInto(conds, cols, dst, stride, maxRows)
}
