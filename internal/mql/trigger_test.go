package mql

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"mqldb/internal/errors"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

func TestTriggers_RowEventCarriesSelection(t *testing.T) {
	store, x, h := newItems(t)
	trs, err := NewTriggers(store)
	if err != nil {
		t.Fatalf("NewTriggers failed: %v", err)
	}
	defer trs.Close()

	var got []*result.Event
	var freed []*result.Rows
	err = trs.RegisterCallback("watch", result.KindDontCare, func(r result.Result, data any) {
		evt := r.(*result.Event)
		if data.(string) != "ctx" {
			t.Errorf("unexpected user data %v", data)
		}
		got = append(got, evt)
		freed = append(freed, evt.Rows())
		name, _ := evt.Rows().String(0, 0)
		if name != "gadget" {
			t.Errorf("expected selected name gadget, got %q", name)
		}
	}, "ctx")
	if err != nil {
		t.Fatalf("RegisterCallback failed: %v", err)
	}

	sel := []result.RowColumn{{Index: 1, Name: "name", Type: sql.TypeVarchar, Length: 16, Offset: 0}}
	if err := trs.CreateRowTrigger("items-rows", h, "watch", sel); err != nil {
		t.Fatalf("CreateRowTrigger failed: %v", err)
	}
	if refs, _ := trs.CallbackRefs("watch"); refs != 1 {
		t.Fatalf("expected 1 reference, got %d", refs)
	}

	insert, _ := MakeInsert(h, false, []sql.ColumnDesc{{Index: 0, Offset: 0}, {Index: 1, Offset: 1}},
		[][]sql.Operand{{sql.Literal(sql.IntegerValue(1)), sql.Literal(sql.StringValue("gadget"))}})
	r := x.Exec(result.KindDontCare, insert)
	mustSucceed(t, r)
	r.Free()

	if len(got) != 1 || got[0].Type() != sql.EventRowInserted || got[0].TableName() != "items" {
		t.Fatalf("unexpected events %v", got)
	}
	if !got[0].Freed() || !freed[0].Freed() {
		t.Fatalf("event and its selection must be freed after the callback")
	}

	if err := trs.DropTrigger("items-rows"); err != nil {
		t.Fatalf("DropTrigger failed: %v", err)
	}
	if refs, _ := trs.CallbackRefs("watch"); refs != 0 {
		t.Fatalf("expected 0 references after drop, got %d", refs)
	}
	if err := trs.DropTrigger("items-rows"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTriggers_ColumnChangeText(t *testing.T) {
	store, x, h := newItems(t)
	trs, _ := NewTriggers(store)
	defer trs.Close()

	var reports []string
	_ = trs.RegisterCallback("text", result.KindString, func(r result.Result, _ any) {
		reports = append(reports, r.(*result.Text).String())
	}, nil)
	if err := trs.CreateColumnTrigger("count-changes", h, 2, "text", nil); err != nil {
		t.Fatalf("CreateColumnTrigger failed: %v", err)
	}

	insert, _ := MakeInsert(h, false, []sql.ColumnDesc{{Index: 0, Offset: 0}, {Index: 1, Offset: 1}},
		[][]sql.Operand{{sql.Literal(sql.IntegerValue(1)), sql.Literal(sql.StringValue("a"))}})
	r := x.Exec(result.KindDontCare, insert)
	r.Free()

	upd, _ := MakeUpdate(h, nil, []sql.ColumnDesc{{Index: 2, Offset: 0}}, []sql.Operand{sql.Literal(sql.UnsignedValue(5))})
	r = x.Exec(result.KindDontCare, upd)
	mustSucceed(t, r)
	r.Free()

	if len(reports) != 1 || reports[0] != "table 'items' column 'count' changed: '0' => '5'\n" {
		t.Fatalf("unexpected reports %q", reports)
	}
}

func TestTriggers_AsyncTransactionEvents(t *testing.T) {
	store, x, _ := newItems(t)
	trs, err := NewTriggers(store, WithAsyncDelivery(2))
	if err != nil {
		t.Fatalf("NewTriggers failed: %v", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		depths []int
	)
	wg.Add(2)
	_ = trs.RegisterCallback("tx", result.KindEvent, func(r result.Result, _ any) {
		defer wg.Done()
		mu.Lock()
		depths = append(depths, r.(*result.Event).Depth())
		mu.Unlock()
	}, nil)
	if err := trs.CreateTransactionTrigger("tx-watch", "tx"); err != nil {
		t.Fatalf("CreateTransactionTrigger failed: %v", err)
	}

	begin, _ := MakeTransaction(KindBegin, "outer")
	commit, _ := MakeTransaction(KindCommit, "outer")
	for _, stmt := range []*Statement{begin, commit} {
		r := x.Exec(result.KindDontCare, stmt)
		mustSucceed(t, r)
		r.Free()
	}

	wg.Wait()
	trs.Close()
	if len(depths) != 2 || depths[0] != 1 || depths[1] != 1 {
		t.Fatalf("expected two depth 1 events, got %v", depths)
	}
}

func beginCommit(x *Executor, name string) bool {
	begin, _ := MakeTransaction(KindBegin, name)
	commit, _ := MakeTransaction(KindCommit, name)
	ok := true
	for _, stmt := range []*Statement{begin, commit} {
		r := x.Exec(result.KindDontCare, stmt)
		ok = ok && result.IsSuccess(r)
		r.Free()
	}
	return ok
}

func TestTriggers_AsyncDeliveryKeepsOrder(t *testing.T) {
	store, x, _ := newItems(t)
	trs, err := NewTriggers(store, WithAsyncDelivery(4))
	if err != nil {
		t.Fatalf("NewTriggers failed: %v", err)
	}
	defer trs.Close()

	const pairs = 300
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		events []sql.EventType
	)
	wg.Add(2 * pairs)
	_ = trs.RegisterCallback("tx", result.KindEvent, func(r result.Result, _ any) {
		defer wg.Done()
		mu.Lock()
		events = append(events, r.(*result.Event).Type())
		mu.Unlock()
	}, nil)
	if err := trs.CreateTransactionTrigger("tx-watch", "tx"); err != nil {
		t.Fatalf("CreateTransactionTrigger failed: %v", err)
	}

	for i := 0; i < pairs; i++ {
		if !beginCommit(x, "work") {
			t.Fatalf("transaction %d failed", i)
		}
	}
	wg.Wait()

	for i, e := range events {
		want := sql.EventTransactionStart
		if i%2 == 1 {
			want = sql.EventTransactionEnd
		}
		if e != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, e)
		}
	}
}

func TestTriggers_CloseWhileExecuting(t *testing.T) {
	store, x, _ := newItems(t)
	trs, err := NewTriggers(store, WithAsyncDelivery(4))
	if err != nil {
		t.Fatalf("NewTriggers failed: %v", err)
	}

	var delivered atomic.Int64
	_ = trs.RegisterCallback("tx", result.KindEvent, func(result.Result, any) {
		delivered.Add(1)
	}, nil)
	if err := trs.CreateTransactionTrigger("tx-watch", "tx"); err != nil {
		t.Fatalf("CreateTransactionTrigger failed: %v", err)
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if !beginCommit(x, "work") {
				failed.Add(1)
			}
		}
	}()
	trs.Close()
	wg.Wait()

	if n := failed.Load(); n != 0 {
		t.Fatalf("%d transactions failed", n)
	}

	// Nothing is delivered once Close has returned.
	before := delivered.Load()
	if !beginCommit(x, "late") {
		t.Fatalf("transaction after Close failed")
	}
	if after := delivered.Load(); after != before {
		t.Fatalf("expected no deliveries after Close, got %d more", after-before)
	}
	trs.Close()
}

func TestTriggers_RegistryErrors(t *testing.T) {
	store, _, h := newItems(t)
	trs, _ := NewTriggers(store)
	noop := func(result.Result, any) {}

	if err := trs.RegisterCallback("cb", result.KindRows, noop, nil); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("expected invalid result type error, got %v", err)
	}
	if err := trs.RegisterCallback("cb", result.KindEvent, noop, nil); err != nil {
		t.Fatalf("RegisterCallback failed: %v", err)
	}
	if err := trs.RegisterCallback("cb", result.KindEvent, noop, nil); !errors.Is(err, errors.ErrExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	if err := trs.CreateTableTrigger("t", "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected missing callback, got %v", err)
	}
	err := trs.CreateColumnTrigger("c", h, 9, "cb", nil)
	if err == nil || !strings.Contains(err.Error(), "no column 9") {
		t.Fatalf("expected storage error for bad column, got %v", err)
	}
	if err := trs.UnregisterCallback("cb"); err != nil {
		t.Fatalf("UnregisterCallback failed: %v", err)
	}
	if err := trs.UnregisterCallback("cb"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
