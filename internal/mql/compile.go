package mql

import (
	"fmt"
	"slices"

	"mqldb/internal/errors"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

// MaxBindSlots bounds the bind slot index a statement may reference.
const MaxBindSlots = 256

func invalid(format string, args ...any) error {
	return fmt.Errorf("mql: %s: %w", fmt.Sprintf(format, args...), errors.ErrInvalidArgument)
}

// pool lays out the value pool of a statement in two passes: count
// collects the bind slots and the number of constants, place then rewrites
// operands into references in the same order they were counted.
type pool struct {
	nbind  int
	types  map[int]sql.DataType
	nconst int

	slots []slot
	next  int // next constant to place
}

func (p *pool) count(op sql.Operand) error {
	if !op.Bind {
		p.nconst++
		return nil
	}
	if op.Slot < 0 || op.Slot >= MaxBindSlots {
		return invalid("bind slot %d outside [0,%d)", op.Slot, MaxBindSlots)
	}
	if op.Value.Type == sql.TypeUnknown {
		return invalid("bind slot %d has no type", op.Slot)
	}
	if p.types == nil {
		p.types = make(map[int]sql.DataType)
	}
	if t, seen := p.types[op.Slot]; seen && t != op.Value.Type {
		return fmt.Errorf("mql: bind slot %d used as %s and %s: %w", op.Slot, t, op.Value.Type, errors.ErrTypeMismatch)
	}
	p.types[op.Slot] = op.Value.Type
	p.nbind = max(p.nbind, op.Slot+1)
	return nil
}

func (p *pool) alloc() {
	p.slots = make([]slot, p.nbind+p.nconst)
	for i, t := range p.types {
		p.slots[i] = slot{value: sql.ZeroValue(t), typ: t, used: true}
	}
}

func (p *pool) place(op sql.Operand) Ref {
	if op.Bind {
		return Bound(op.Slot)
	}
	i := p.next
	p.next++
	p.slots[p.nbind+i] = slot{value: op.Value.Clone(), typ: op.Value.Type, used: true, bound: true}
	return Constant(i)
}

func (p *pool) install(s *Statement) {
	s.nbind = p.nbind
	s.pool = p.slots
}

func checkTable(h sql.Handle) error {
	if h == sql.InvalidHandle {
		return invalid("invalid table handle")
	}
	return nil
}

func checkDescs(cols []sql.ColumnDesc) (int, error) {
	if len(cols) == 0 || len(cols) > result.MaxColumns {
		return 0, invalid("%d columns", len(cols))
	}
	stride := 0
	for _, cd := range cols {
		if cd.Index < 0 || cd.Offset < 0 {
			return 0, invalid("column %d at offset %d", cd.Index, cd.Offset)
		}
		stride = max(stride, cd.Offset+1)
	}
	return stride, nil
}

func countConds(p *pool, conds []sql.CondEntry) error {
	for _, c := range conds {
		if c.Kind == sql.CondVariable {
			if err := p.count(c.Operand); err != nil {
				return err
			}
		}
	}
	return nil
}

func placeConds(p *pool, conds []sql.CondEntry) []cond {
	if len(conds) == 0 {
		return nil
	}
	out := make([]cond, len(conds))
	for i, c := range conds {
		out[i].entry = c
		if c.Kind == sql.CondVariable {
			out[i].ref = p.place(c.Operand)
			out[i].entry.Operand = sql.Operand{}
		}
	}
	return out
}

// MakeShowTables compiles a table enumeration.
func MakeShowTables(flags sql.TableFlags) (*Statement, error) {
	if flags&sql.TableAny == 0 {
		return nil, invalid("invalid table flags %#x", uint32(flags))
	}
	return &Statement{kind: KindShowTables, flags: flags}, nil
}

// MakeDescribe compiles a column definition dump of table.
func MakeDescribe(table sql.Handle) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return &Statement{kind: KindDescribe, table: table}, nil
}

// MakeTransaction compiles a begin, commit or rollback of the named
// transaction.
func MakeTransaction(kind Kind, name string) (*Statement, error) {
	switch kind {
	case KindBegin, KindCommit, KindRollback:
	default:
		return nil, invalid("%s is not a transaction statement", kind)
	}
	if name == "" {
		return nil, invalid("empty transaction name")
	}
	return &Statement{kind: kind, name: name}, nil
}

// MakeCreateTable compiles a table creation. Key columns carry
// sql.ColumnKey.
func MakeCreateTable(name string, flags sql.TableFlags, defs []sql.Column) (*Statement, error) {
	if name == "" {
		return nil, invalid("empty table name")
	}
	if len(defs) == 0 || len(defs) > result.MaxColumns {
		return nil, invalid("table %s: %d columns", name, len(defs))
	}
	return &Statement{kind: KindCreateTable, name: name, flags: flags, defs: slices.Clone(defs)}, nil
}

func MakeDropTable(table sql.Handle) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return &Statement{kind: KindDropTable, table: table}, nil
}

// MakeInsert compiles an insert of len(rows) rows. Row r supplies the
// value of table column cols[j].Index as rows[r][cols[j].Offset].
func MakeInsert(table sql.Handle, ignore bool, cols []sql.ColumnDesc, rows [][]sql.Operand) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	stride, err := checkDescs(cols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, invalid("insert without rows")
	}

	var p pool
	for r, row := range rows {
		if len(row) < stride {
			return nil, invalid("row %d has %d values, need %d", r, len(row), stride)
		}
		for _, cd := range cols {
			if err := p.count(row[cd.Offset]); err != nil {
				return nil, err
			}
		}
	}
	p.alloc()

	values := make([][]Ref, len(rows))
	for r, row := range rows {
		values[r] = make([]Ref, len(cols))
		for j, cd := range cols {
			values[r][j] = p.place(row[cd.Offset])
		}
	}

	s := &Statement{
		kind:   KindInsert,
		table:  table,
		ignore: ignore,
		cols:   slices.Clone(cols),
		stride: stride,
		values: values,
	}
	p.install(s)
	return s, nil
}

// MakeUpdate compiles an update assigning values[cols[j].Offset] to table
// column cols[j].Index of every row matching conds.
func MakeUpdate(table sql.Handle, conds []sql.CondEntry, cols []sql.ColumnDesc, values []sql.Operand) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	stride, err := checkDescs(cols)
	if err != nil {
		return nil, err
	}
	if len(values) < stride {
		return nil, invalid("%d values, need %d", len(values), stride)
	}

	var p pool
	if err := countConds(&p, conds); err != nil {
		return nil, err
	}
	for _, cd := range cols {
		if err := p.count(values[cd.Offset]); err != nil {
			return nil, err
		}
	}
	p.alloc()

	s := &Statement{
		kind:   KindUpdate,
		table:  table,
		cols:   slices.Clone(cols),
		stride: stride,
		conds:  placeConds(&p, conds),
	}
	refs := make([]Ref, len(cols))
	for j, cd := range cols {
		refs[j] = p.place(values[cd.Offset])
	}
	s.values = [][]Ref{refs}
	p.install(s)
	return s, nil
}

// MakeDelete compiles a delete of every row matching conds.
func MakeDelete(table sql.Handle, conds []sql.CondEntry) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	var p pool
	if err := countConds(&p, conds); err != nil {
		return nil, err
	}
	p.alloc()

	s := &Statement{kind: KindDelete, table: table, conds: placeConds(&p, conds)}
	p.install(s)
	return s, nil
}

// MakeSelect compiles a filtered scan returning the columns in cols. The
// row layout of the result follows cols' offsets.
func MakeSelect(table sql.Handle, conds []sql.CondEntry, cols []result.RowColumn) (*Statement, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(cols) == 0 || len(cols) > result.MaxColumns {
		return nil, invalid("%d columns", len(cols))
	}
	stride := 0
	for _, c := range cols {
		if c.Index < 0 || c.Offset < 0 {
			return nil, invalid("column %q at offset %d", c.Name, c.Offset)
		}
		stride = max(stride, c.Offset+1)
	}

	var p pool
	if err := countConds(&p, conds); err != nil {
		return nil, err
	}
	p.alloc()

	s := &Statement{
		kind:   KindSelect,
		table:  table,
		sel:    slices.Clone(cols),
		stride: stride,
		conds:  placeConds(&p, conds),
	}
	p.install(s)
	return s, nil
}
