package memstore

import (
	"slices"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

type trigger struct {
	id storage.TriggerID
	storage.Trigger
}

type delivery struct {
	fn  func(*sql.Event)
	evt sql.Event
}

// AddTrigger registers a change subscription. Table triggers observe every
// table; transaction triggers every transaction.
func (e *memEngine) AddTrigger(tr storage.Trigger) (storage.TriggerID, error) {
	if tr.Func == nil {
		return 0, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "trigger without callback")
	}
	if len(tr.Select) > 0 && tr.SelectStride <= 0 {
		return 0, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
			"trigger selects %d columns into a zero stride buffer", len(tr.Select))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch tr.Kind {
	case storage.TriggerTransaction, storage.TriggerTable:
		tr.Table = sql.InvalidHandle
		tr.Select = nil
	case storage.TriggerRow, storage.TriggerColumn:
		t, err := e.lookup(tr.Table)
		if err != nil {
			return 0, err
		}
		if tr.Kind == storage.TriggerColumn && (tr.Column < 0 || tr.Column >= len(t.cols)) {
			return 0, errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound,
				"table %s has no column %d", t.name, tr.Column)
		}
		if err := t.checkDescs(tr.Select, tr.SelectStride); err != nil {
			return 0, err
		}
		tr.Select = slices.Clone(tr.Select)
	default:
		return 0, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument, "invalid trigger kind %d", tr.Kind)
	}

	e.nextTrigger++
	e.triggers = append(e.triggers, &trigger{id: e.nextTrigger, Trigger: tr})
	return e.nextTrigger, nil
}

func (e *memEngine) RemoveTrigger(id storage.TriggerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := slices.IndexFunc(e.triggers, func(t *trigger) bool { return t.id == id })
	if i < 0 {
		return errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound, "no trigger %d", id)
	}
	e.triggers = slices.Delete(e.triggers, i, i+1)
	return nil
}

func (e *memEngine) raise(tr *trigger, evt sql.Event) {
	e.pending = append(e.pending, delivery{fn: tr.Func, evt: evt})
}

// selection copies the trigger's selected columns out of a row image.
func (tr *trigger) selection(vals sql.Row) []sql.Value {
	if len(tr.Select) == 0 {
		return nil
	}
	out := make([]sql.Value, tr.SelectStride)
	for _, cd := range tr.Select {
		out[cd.Offset] = vals[cd.Index].Clone()
	}
	return out
}

func (e *memEngine) raiseTransaction(typ sql.EventType, depth int) {
	for _, tr := range e.triggers {
		if tr.Kind == storage.TriggerTransaction {
			e.raise(tr, sql.Event{Type: typ, Depth: depth})
		}
	}
}

func (e *memEngine) raiseTable(typ sql.EventType, t *table) {
	for _, tr := range e.triggers {
		if tr.Kind == storage.TriggerTable {
			e.raise(tr, sql.Event{Type: typ, Table: t.handle, TableName: t.name})
		}
	}
}

func (e *memEngine) raiseRow(typ sql.EventType, t *table, vals sql.Row) {
	for _, tr := range e.triggers {
		if tr.Kind != storage.TriggerRow || tr.Table != t.handle {
			continue
		}
		e.raise(tr, sql.Event{
			Type:      typ,
			Table:     t.handle,
			TableName: t.name,
			Select:    tr.selection(vals),
		})
	}
}

// raiseColumnChanges raises one event per watched column whose value
// differs between the two images.
func (e *memEngine) raiseColumnChanges(t *table, before, after sql.Row) {
	for _, tr := range e.triggers {
		if tr.Kind != storage.TriggerColumn || tr.Table != t.handle {
			continue
		}
		c := tr.Column
		if before[c].Equal(after[c]) {
			continue
		}
		e.raise(tr, sql.Event{
			Type:       sql.EventColumnChanged,
			Table:      t.handle,
			TableName:  t.name,
			Column:     c,
			ColumnName: t.cols[c].Name,
			OldValue:   before[c].Clone(),
			NewValue:   after[c].Clone(),
			Select:     tr.selection(after),
		})
	}
}
