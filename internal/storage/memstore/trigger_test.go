package memstore

import (
	"testing"

	"mqldb/internal/errors"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

type recorder struct {
	events []sql.Event
}

func (r *recorder) fn(evt *sql.Event) { r.events = append(r.events, *evt) }

func TestTriggerRowAndColumnEvents(t *testing.T) {
	store := New()
	h := newUsers(t, store)

	var rows, cols recorder
	sel := []sql.ColumnDesc{{Index: 1, Offset: 0}}
	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerRow, Table: h, Select: sel, SelectStride: 1, Func: rows.fn}); err != nil {
		t.Fatalf("AddTrigger(row) failed: %v", err)
	}
	colID, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerColumn, Table: h, Column: 1, Select: []sql.ColumnDesc{{Index: 0, Offset: 0}}, SelectStride: 1, Func: cols.fn})
	if err != nil {
		t.Fatalf("AddTrigger(column) failed: %v", err)
	}

	insertUsers(t, store, h, user(1, "a"), user(2, "b"))
	if len(rows.events) != 2 || rows.events[1].Type != sql.EventRowInserted || rows.events[1].Select[0].S != "b" {
		t.Fatalf("unexpected row events %+v", rows.events)
	}

	idIs2 := []sql.CondEntry{sql.ColumnEntry(0), sql.OpEntry(sql.OpEq), sql.ValueEntry(sql.Literal(sql.IntegerValue(2)))}
	if _, err := store.Update(h, idIs2, []sql.ColumnDesc{{Index: 1, Offset: 0}}, []sql.Value{sql.StringValue("bee")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(cols.events) != 1 {
		t.Fatalf("expected 1 column event, got %d", len(cols.events))
	}
	evt := cols.events[0]
	if evt.ColumnName != "name" || evt.OldValue.S != "b" || evt.NewValue.S != "bee" || evt.Select[0].I32 != 2 {
		t.Fatalf("unexpected column event %+v", evt)
	}

	// Assigning the same value raises nothing.
	if _, err := store.Update(h, idIs2, []sql.ColumnDesc{{Index: 1, Offset: 0}}, []sql.Value{sql.StringValue("bee")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(cols.events) != 1 {
		t.Fatalf("unchanged value raised an event")
	}

	if _, err := store.DeleteFrom(h, idIs2); err != nil {
		t.Fatalf("DeleteFrom failed: %v", err)
	}
	last := rows.events[len(rows.events)-1]
	if last.Type != sql.EventRowDeleted || last.Select[0].S != "bee" {
		t.Fatalf("unexpected delete event %+v", last)
	}

	if err := store.RemoveTrigger(colID); err != nil {
		t.Fatalf("RemoveTrigger failed: %v", err)
	}
	if err := store.RemoveTrigger(colID); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found removing twice, got %v", err)
	}
}

func TestTriggerTableAndTransactionEvents(t *testing.T) {
	store := New()

	var tables, txs recorder
	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerTable, Func: tables.fn}); err != nil {
		t.Fatalf("AddTrigger(table) failed: %v", err)
	}
	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerTransaction, Func: txs.fn}); err != nil {
		t.Fatalf("AddTrigger(transaction) failed: %v", err)
	}

	if err := store.BeginTransaction("t1"); err != nil {
		t.Fatalf("BeginTransaction failed: %v", err)
	}
	if err := store.BeginTransaction("t2"); err != nil {
		t.Fatalf("BeginTransaction failed: %v", err)
	}
	h := newUsers(t, store)
	if err := store.DropTable(h); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if err := store.CommitTransaction("t2"); err != nil {
		t.Fatalf("CommitTransaction failed: %v", err)
	}

	if len(tables.events) != 2 || tables.events[0].Type != sql.EventTableCreated || tables.events[1].TableName != "users" {
		t.Fatalf("unexpected table events %+v", tables.events)
	}
	wantDepths := []int{1, 2, 2}
	if len(txs.events) != len(wantDepths) {
		t.Fatalf("expected %d transaction events, got %d", len(wantDepths), len(txs.events))
	}
	for i, d := range wantDepths {
		if txs.events[i].Depth != d {
			t.Fatalf("event %d: expected depth %d, got %d", i, d, txs.events[i].Depth)
		}
	}
	if txs.events[2].Type != sql.EventTransactionEnd {
		t.Fatalf("expected transaction end, got %v", txs.events[2].Type)
	}
}

func TestTriggerCallbackMayUseEngine(t *testing.T) {
	store := New()
	h := newUsers(t, store)

	var sizes []int
	_, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerRow, Table: h, Func: func(*sql.Event) {
		n, err := store.TableSize(h)
		if err != nil {
			t.Errorf("TableSize from callback failed: %v", err)
		}
		sizes = append(sizes, n)
	}})
	if err != nil {
		t.Fatalf("AddTrigger failed: %v", err)
	}

	insertUsers(t, store, h, user(1, "a"))
	if len(sizes) != 1 || sizes[0] != 1 {
		t.Fatalf("expected callback to see 1 row, got %v", sizes)
	}
}

func TestTriggerValidation(t *testing.T) {
	store := New()
	h := newUsers(t, store)
	noop := func(*sql.Event) {}

	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerRow, Table: h}); storageCode(err) != errors.CodeInvalid {
		t.Fatalf("expected EINVAL without callback, got %v", err)
	}
	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerRow, Table: 99, Func: noop}); storageCode(err) != errors.CodeNotFound {
		t.Fatalf("expected ENOENT for unknown table, got %v", err)
	}
	if _, err := store.AddTrigger(storage.Trigger{Kind: storage.TriggerColumn, Table: h, Column: 5, Func: noop}); storageCode(err) != errors.CodeNotFound {
		t.Fatalf("expected ENOENT for unknown column, got %v", err)
	}
}
