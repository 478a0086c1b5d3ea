package memstore

import (
	"cmp"
	"strconv"
	"strings"

	"mqldb/internal/errors"
	"mqldb/internal/sequence"
	"mqldb/internal/sql"
)

// row is a stored record. vals is replaced, never mutated in place, so
// undo entries and event snapshots may keep references to old images.
type row struct {
	vals sql.Row
	seq  uint64
}

type table struct {
	handle sql.Handle
	name   string
	flags  sql.TableFlags
	cols   []sql.Column
	keys   []int

	rows    *sequence.Sequence[*row, *row]
	nextSeq uint64
}

func newTable(h sql.Handle, name string, flags sql.TableFlags, cols []sql.Column, alloc, limit int) (*table, error) {
	t := &table{
		handle: h,
		name:   name,
		flags:  flags,
		cols:   make([]sql.Column, len(cols)),
	}
	copy(t.cols, cols)
	for i, c := range t.cols {
		if c.Flags&sql.ColumnKey != 0 {
			t.keys = append(t.keys, i)
		}
	}

	rows, err := sequence.New[*row, *row](alloc, t.compare, t.printKey)
	if err != nil {
		return nil, errors.NewStorage(errors.CodeInvalid, err, "table %s: row index", name)
	}
	rows.SetLimit(limit)
	t.rows = rows
	return t, nil
}

// compare orders rows by primary key, or by insertion order when the
// table has no key.
func (t *table) compare(a, b *row) int {
	if len(t.keys) == 0 {
		return cmp.Compare(a.seq, b.seq)
	}
	for _, k := range t.keys {
		if c := sql.Compare(a.vals[k], b.vals[k]); c != 0 {
			return c
		}
	}
	return 0
}

func (t *table) printKey(r *row) string {
	if len(t.keys) == 0 {
		return "#" + strconv.FormatUint(r.seq, 10)
	}
	parts := make([]string, len(t.keys))
	for i, k := range t.keys {
		parts[i] = r.vals[k].Format()
	}
	return strings.Join(parts, ",")
}

func (t *table) isKey(col int) bool {
	for _, k := range t.keys {
		if k == col {
			return true
		}
	}
	return false
}

func (t *table) checkDescs(cols []sql.ColumnDesc, stride int) error {
	for _, cd := range cols {
		if cd.Index < 0 || cd.Index >= len(t.cols) {
			return errors.NewStorage(errors.CodeNotFound, errors.ErrNotFound,
				"table %s has no column %d", t.name, cd.Index)
		}
		if cd.Offset < 0 || (stride > 0 && cd.Offset >= stride) {
			return errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: column %s offset %d outside row buffer", t.name, t.cols[cd.Index].Name, cd.Offset)
		}
	}
	return nil
}

// checkValue verifies v can be stored in column col.
func (t *table) checkValue(col int, v sql.Value) error {
	c := t.cols[col]
	if v.Type != c.Type {
		return errors.NewStorage(errors.CodeInvalid, errors.ErrTypeMismatch,
			"table %s column %s: expected %s, got %s", t.name, c.Name, c.Type, v.Type)
	}
	if c.Length <= 0 {
		return nil
	}
	switch v.Type {
	case sql.TypeVarchar:
		if len(v.S) > c.Length {
			return errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s column %s: value longer than %d", t.name, c.Name, c.Length)
		}
	case sql.TypeBlob:
		if len(v.Blob) > c.Length {
			return errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s column %s: value longer than %d", t.name, c.Name, c.Length)
		}
	}
	return nil
}

// image builds a full row from a row buffer.
func (t *table) image(cols []sql.ColumnDesc, buf []sql.Value) (sql.Row, error) {
	vals := make(sql.Row, len(t.cols))
	for i, c := range t.cols {
		vals[i] = sql.ZeroValue(c.Type)
	}
	for _, cd := range cols {
		if cd.Offset >= len(buf) {
			return nil, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: row buffer of %d values has no slot %d", t.name, len(buf), cd.Offset)
		}
		v := buf[cd.Offset]
		if err := t.checkValue(cd.Index, v); err != nil {
			return nil, err
		}
		vals[cd.Index] = v.Clone()
	}
	return vals, nil
}

func (t *table) matching(conds []sql.CondEntry) ([]*row, error) {
	pred, err := compileCond(conds, t.cols)
	if err != nil {
		return nil, err
	}
	var out []*row
	for r := range t.rows.All() {
		if pred(r.vals) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *table) add(r *row) error {
	if err := t.rows.Add(r, r); err != nil {
		return errors.NewStorage(errors.CodeNoMemory, err, "table %s", t.name)
	}
	return nil
}

func (t *table) remove(r *row) error {
	if _, err := t.rows.Delete(r); err != nil {
		return errors.NewStorage(errors.CodeNotFound, err, "table %s", t.name)
	}
	return nil
}

func (t *table) full() error {
	return errors.NewStorage(errors.CodeNoMemory, errors.ErrNoMemory,
		"table %s cannot hold more than %d rows", t.name, t.rows.Limit())
}

func (e *memEngine) insert(t *table, ignore bool, cols []sql.ColumnDesc, bufs [][]sql.Value) (int, error) {
	if err := t.checkDescs(cols, 0); err != nil {
		return 0, err
	}

	batch, err := sequence.New[*row, *row](e.alloc, t.compare, t.printKey)
	if err != nil {
		return 0, errors.NewStorage(errors.CodeInvalid, err, "table %s", t.name)
	}

	var candidates []*row
	for _, buf := range bufs {
		vals, err := t.image(cols, buf)
		if err != nil {
			return 0, err
		}
		r := &row{vals: vals, seq: t.nextSeq + uint64(len(candidates))}

		if len(t.keys) > 0 {
			if prev, dup := batch.Lookup(r); dup {
				if !ignore {
					return 0, errors.NewStorage(errors.CodeExists, errors.ErrExists,
						"table %s: duplicate key %s", t.name, t.printKey(r))
				}
				prev.vals = vals
				continue
			}
			if err := batch.Add(r, r); err != nil {
				return 0, errors.NewStorage(errors.CodeNoMemory, err, "table %s", t.name)
			}
		}
		candidates = append(candidates, r)
	}

	type replacement struct {
		stored *row
		vals   sql.Row
	}
	var fresh []*row
	var replaced []replacement

	for _, r := range candidates {
		if len(t.keys) > 0 {
			if stored, dup := t.rows.Lookup(r); dup {
				if !ignore {
					return 0, errors.NewStorage(errors.CodeExists, errors.ErrExists,
						"table %s: duplicate key %s", t.name, t.printKey(r))
				}
				replaced = append(replaced, replacement{stored: stored, vals: r.vals})
				continue
			}
		}
		fresh = append(fresh, r)
	}

	if !t.rows.Fits(len(fresh)) {
		return 0, t.full()
	}

	for _, rp := range replaced {
		old := rp.stored.vals
		rp.stored.vals = rp.vals
		e.record(undo{kind: undoUpdate, table: t, row: rp.stored, before: old})
		e.raiseColumnChanges(t, old, rp.stored.vals)
	}

	for _, r := range fresh {
		r.seq = t.nextSeq
		t.nextSeq++
		if err := t.add(r); err != nil {
			return 0, err
		}
		e.record(undo{kind: undoInsert, table: t, row: r})
		e.raiseRow(sql.EventRowInserted, t, r.vals)
	}

	return len(candidates), nil
}

func (e *memEngine) update(t *table, conds []sql.CondEntry, cols []sql.ColumnDesc, values []sql.Value) (int, error) {
	if err := t.checkDescs(cols, 0); err != nil {
		return 0, err
	}
	keyChange := false
	for _, cd := range cols {
		if cd.Offset >= len(values) {
			return 0, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
				"table %s: %d values have no slot %d", t.name, len(values), cd.Offset)
		}
		if err := t.checkValue(cd.Index, values[cd.Offset]); err != nil {
			return 0, err
		}
		if t.isKey(cd.Index) {
			keyChange = true
		}
	}

	matches, err := t.matching(conds)
	if err != nil {
		return 0, err
	}

	olds := make([]sql.Row, len(matches))
	news := make([]sql.Row, len(matches))
	for i, r := range matches {
		olds[i] = r.vals
		news[i] = r.vals.Clone()
		for _, cd := range cols {
			news[i][cd.Index] = values[cd.Offset].Clone()
		}
	}

	if keyChange {
		if err := t.rekey(matches, olds, news); err != nil {
			return 0, err
		}
	} else {
		for i, r := range matches {
			r.vals = news[i]
		}
	}

	for i, r := range matches {
		e.record(undo{kind: undoUpdate, table: t, row: r, before: olds[i]})
		e.raiseColumnChanges(t, olds[i], news[i])
	}
	return len(matches), nil
}

// rekey moves rows whose key changes. On a key conflict every row is put
// back as it was.
func (t *table) rekey(matches []*row, olds, news []sql.Row) error {
	for _, r := range matches {
		if err := t.remove(r); err != nil {
			return err
		}
	}

	var conflict *row
	added := 0
	for i, r := range matches {
		r.vals = news[i]
		if _, dup := t.rows.Lookup(r); dup {
			conflict = r
			break
		}
		if err := t.add(r); err != nil {
			return err
		}
		added++
	}
	if conflict == nil {
		return nil
	}

	key := t.printKey(conflict)
	for _, r := range matches[:added] {
		_ = t.remove(r)
	}
	for i, r := range matches {
		r.vals = olds[i]
		_ = t.add(r)
	}
	return errors.NewStorage(errors.CodeExists, errors.ErrExists, "table %s: duplicate key %s", t.name, key)
}

func (e *memEngine) delete(t *table, conds []sql.CondEntry) (int, error) {
	matches, err := t.matching(conds)
	if err != nil {
		return 0, err
	}
	for _, r := range matches {
		if err := t.remove(r); err != nil {
			return 0, err
		}
		e.record(undo{kind: undoDelete, table: t, row: r})
		e.raiseRow(sql.EventRowDeleted, t, r.vals)
	}
	return len(matches), nil
}

func (t *table) selectInto(conds []sql.CondEntry, cols []sql.ColumnDesc, dst []sql.Value, stride, maxRows int) (int, error) {
	if stride <= 0 || maxRows < 0 || maxRows*stride > len(dst) {
		return 0, errors.NewStorage(errors.CodeInvalid, errors.ErrInvalidArgument,
			"table %s: buffer of %d values cannot hold %d rows of %d", t.name, len(dst), maxRows, stride)
	}
	if err := t.checkDescs(cols, stride); err != nil {
		return 0, err
	}
	pred, err := compileCond(conds, t.cols)
	if err != nil {
		return 0, err
	}

	n := 0
	for r := range t.rows.All() {
		if n >= maxRows {
			break
		}
		if !pred(r.vals) {
			continue
		}
		base := n * stride
		for _, cd := range cols {
			dst[base+cd.Offset] = r.vals[cd.Index].Clone()
		}
		n++
	}
	return n, nil
}
