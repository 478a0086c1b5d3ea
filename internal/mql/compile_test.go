package mql

import (
	"testing"

	"mqldb/internal/errors"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

func TestMakeSelect_PoolLayout(t *testing.T) {
	conds := []sql.CondEntry{
		sql.ColumnEntry(0), sql.OpEntry(sql.OpGt), sql.ValueEntry(sql.Param(1, sql.TypeInteger)),
		sql.OpEntry(sql.OpAnd),
		sql.ColumnEntry(1), sql.OpEntry(sql.OpNe), sql.ValueEntry(sql.Literal(sql.StringValue("x"))),
		sql.OpEntry(sql.OpOr),
		sql.ColumnEntry(0), sql.OpEntry(sql.OpLess), sql.ValueEntry(sql.Param(1, sql.TypeInteger)),
	}
	stmt, err := MakeSelect(1, conds, []result.RowColumn{{Index: 0, Name: "id", Type: sql.TypeInteger, Offset: 0}})
	if err != nil {
		t.Fatalf("MakeSelect failed: %v", err)
	}
	if stmt.NumBind() != 2 || stmt.NumConst() != 1 {
		t.Fatalf("expected 2 bind slots and 1 constant, got %d and %d", stmt.NumBind(), stmt.NumConst())
	}
	if got := stmt.conds[2].ref; got != Bound(1) {
		t.Fatalf("expected first operand bound to slot 1, got %v", got)
	}
	if got := stmt.conds[6].ref; got != Constant(0) {
		t.Fatalf("expected constant 0, got %v", got)
	}
	if typ, err := stmt.SlotType(1); err != nil || typ != sql.TypeInteger {
		t.Fatalf("SlotType(1): %v %v", typ, err)
	}
}

func TestMakeInsert_CopiesConstants(t *testing.T) {
	blob := []byte{1, 2, 3}
	rows := [][]sql.Operand{{sql.Literal(sql.IntegerValue(1)), sql.Literal(sql.Value{Type: sql.TypeBlob, Blob: blob})}}
	stmt, err := MakeInsert(1, false, []sql.ColumnDesc{{Index: 0, Offset: 0}, {Index: 1, Offset: 1}}, rows)
	if err != nil {
		t.Fatalf("MakeInsert failed: %v", err)
	}
	blob[0] = 9

	bufs, err := stmt.rowBuffers()
	if err != nil {
		t.Fatalf("rowBuffers failed: %v", err)
	}
	if bufs[0][1].Blob[0] != 1 {
		t.Fatalf("constant aliases the caller's buffer")
	}
}

func TestMake_Errors(t *testing.T) {
	descs := []sql.ColumnDesc{{Index: 0, Offset: 0}}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"invalid table", second(MakeDescribe(sql.InvalidHandle)), errors.ErrInvalidArgument},
		{"show without flags", second(MakeShowTables(0)), errors.ErrInvalidArgument},
		{"transaction kind", second(MakeTransaction(KindSelect, "t")), errors.ErrInvalidArgument},
		{"transaction name", second(MakeTransaction(KindBegin, "")), errors.ErrInvalidArgument},
		{"insert without rows", second(MakeInsert(1, false, descs, nil)), errors.ErrInvalidArgument},
		{"short row", second(MakeInsert(1, false, []sql.ColumnDesc{{Index: 0, Offset: 2}}, [][]sql.Operand{{sql.Literal(sql.IntegerValue(1))}})), errors.ErrInvalidArgument},
		{"slot too large", second(MakeDelete(1, []sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Param(MaxBindSlots, sql.TypeInteger))})), errors.ErrInvalidArgument},
		{"negative slot", second(MakeDelete(1, []sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Param(-1, sql.TypeInteger))})), errors.ErrInvalidArgument},
		{"slot with two types", second(MakeUpdate(1,
			[]sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Param(0, sql.TypeInteger))},
			[]sql.ColumnDesc{{Index: 1, Offset: 0}}, []sql.Operand{sql.Param(0, sql.TypeVarchar)})), errors.ErrTypeMismatch},
		{"select without columns", second(MakeSelect(1, nil, nil)), errors.ErrInvalidArgument},
	}

	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, c.err)
		}
	}
}

func second(_ *Statement, err error) error { return err }

func TestBind_Errors(t *testing.T) {
	conds := []sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Param(0, sql.TypeInteger))}
	stmt, err := MakeDelete(1, conds)
	if err != nil {
		t.Fatalf("MakeDelete failed: %v", err)
	}

	err = stmt.Bind(1, sql.IntegerValue(1))
	if !errors.Is(err, ErrSlotRange) || !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected slot range error, got %v", err)
	}
	err = stmt.Bind(0, sql.StringValue("1"))
	if !errors.Is(err, ErrTypeMismatch) || errors.Is(err, ErrSlotRange) {
		t.Fatalf("expected type mismatch distinct from slot range, got %v", err)
	}
	if errors.Classify(err) != errors.KindTypeMismatch {
		t.Fatalf("expected type mismatch kind, got %v", errors.Classify(err))
	}
	if err := Bind(stmt, 0, sql.IntegerValue(1)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	show, _ := MakeShowTables(sql.TableAny)
	if err := show.Bind(0, sql.IntegerValue(1)); !errors.Is(err, ErrNotBindable) {
		t.Fatalf("expected not bindable, got %v", err)
	}
}

func TestConditions_Unbound(t *testing.T) {
	conds := []sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Param(0, sql.TypeInteger))}
	stmt, err := MakeDelete(1, conds)
	if err != nil {
		t.Fatalf("MakeDelete failed: %v", err)
	}
	if _, err := stmt.conditions(); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("expected unbound parameter error, got %v", err)
	}

	_ = stmt.Bind(0, sql.IntegerValue(7))
	got, err := stmt.conditions()
	if err != nil {
		t.Fatalf("conditions failed: %v", err)
	}
	if got[2].Operand.Bind || got[2].Operand.Value.I32 != 7 {
		t.Fatalf("expected resolved literal 7, got %+v", got[2].Operand)
	}

	stmt.Unbind()
	if _, err := stmt.conditions(); err == nil {
		t.Fatalf("expected error after Unbind")
	}
}
