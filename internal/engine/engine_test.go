package engine

import (
	"bytes"
	"strings"
	"testing"

	"mqldb/internal/errors"
	"mqldb/internal/result"
	"mqldb/internal/sql"
	"mqldb/internal/storage/memstore"
)

func startEngine(t *testing.T, opts ...Option) *DBEngine {
	t.Helper()
	eng := New(memstore.New(), opts...)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func mustExec(t *testing.T, eng *DBEngine, query string) {
	t.Helper()
	r := eng.Exec(result.KindDontCare, query)
	defer result.Free(r)
	if !result.IsSuccess(r) {
		t.Fatalf("%s: %s", query, result.ErrorMessage(r))
	}
}

func selectInts(t *testing.T, eng *DBEngine, query string) []int32 {
	t.Helper()
	r := eng.Exec(result.KindRows, query)
	defer result.Free(r)
	rows, ok := r.(*result.Rows)
	if !ok {
		t.Fatalf("%s: expected rows, got %s", query, result.ErrorMessage(r))
	}
	out := make([]int32, rows.RowCount())
	for i := range out {
		v, err := rows.Integer(0, i)
		if err != nil {
			t.Fatalf("Integer(0, %d): %v", i, err)
		}
		out[i] = v
	}
	return out
}

func equalInts(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func setupUsers(t *testing.T, eng *DBEngine) {
	t.Helper()
	mustExec(t, eng, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(16), score FLOATING)")
	mustExec(t, eng, "INSERT INTO users VALUES (3, 'Carol', 7.5), (1, 'Alice', 9), (2, 'Bob', 4.25)")
}

// TestEngineCreateInsertSelect checks the SQL front door end-to-end using
// the in-memory storage engine.
func TestEngineCreateInsertSelect(t *testing.T) {
	// 1. Set up engine and table.
	eng := startEngine(t)
	setupUsers(t, eng)

	// 2. Rows come back in key order.
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1, 2, 3}) {
		t.Fatalf("expected ids [1 2 3], got %v", got)
	}

	// 3. WHERE clauses with mixed operators.
	got := selectInts(t, eng, "SELECT id FROM users WHERE score > 5 AND NOT name = 'Carol'")
	if !equalInts(got, []int32{1}) {
		t.Fatalf("expected ids [1], got %v", got)
	}
	got = selectInts(t, eng, "SELECT id FROM users WHERE id = 1 OR id = 3")
	if !equalInts(got, []int32{1, 3}) {
		t.Fatalf("expected ids [1 3], got %v", got)
	}

	// 4. Column order follows the select list.
	r := eng.Exec(result.KindRows, "SELECT name, id FROM users WHERE id = 2")
	defer result.Free(r)
	rows, ok := r.(*result.Rows)
	if !ok {
		t.Fatalf("expected rows, got %s", result.ErrorMessage(r))
	}
	name, err := rows.String(0, 0)
	if err != nil || name != "Bob" {
		t.Fatalf("expected name Bob, got %q (%v)", name, err)
	}
	id, err := rows.Integer(1, 0)
	if err != nil || id != 2 {
		t.Fatalf("expected id 2, got %d (%v)", id, err)
	}
}

func TestEngineUpdateDelete(t *testing.T) {
	eng := startEngine(t)
	setupUsers(t, eng)

	r := eng.Exec(result.KindDontCare, "UPDATE users SET score = 0 WHERE id >= 2")
	st, ok := r.(*result.Status)
	if !ok || st.RowsAffected() != 2 {
		t.Fatalf("expected 2 updated rows, got %s", result.ErrorMessage(r))
	}
	r.Free()

	got := selectInts(t, eng, "SELECT id FROM users WHERE score = 0")
	if !equalInts(got, []int32{2, 3}) {
		t.Fatalf("expected ids [2 3], got %v", got)
	}

	r = eng.Exec(result.KindDontCare, "DELETE FROM users WHERE score = 0")
	st, ok = r.(*result.Status)
	if !ok || st.RowsAffected() != 2 {
		t.Fatalf("expected 2 deleted rows, got %s", result.ErrorMessage(r))
	}
	r.Free()

	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1}) {
		t.Fatalf("expected ids [1], got %v", got)
	}
}

func TestEngineErrors(t *testing.T) {
	eng := startEngine(t)
	setupUsers(t, eng)

	cases := []struct {
		query  string
		code   int
		prefix string
	}{
		{"SELECT id FROM nosuch", errors.CodeNotFound, "compile error"},
		{"SELECT nosuch FROM users", errors.CodeNotFound, "compile error"},
		{"INSERT INTO users VALUES (1, 'Again', 1)", errors.CodeExists, "insert error"},
		{"INSERT INTO users VALUES ('x', 'Bad', 1)", errors.CodeInvalid, "compile error"},
		{"INSERT INTO users (id, id) VALUES (8, 9)", errors.CodeInvalid, "compile error"},
		{"SELECT id FROM users WHERE id = ?", errors.CodeInvalid, "select error"},
		{"FROBNICATE users", errors.CodeInvalid, "parse error"},
		{"COMMIT", errors.CodeNotFound, "commit failed"},
	}

	for _, c := range cases {
		r := eng.Exec(result.KindDontCare, c.query)
		if code := result.ErrorCode(r); code != c.code {
			t.Fatalf("%s: expected code %d, got %d (%s)", c.query, c.code, code, result.ErrorMessage(r))
		}
		if msg := result.ErrorMessage(r); !strings.HasPrefix(msg, c.prefix) {
			t.Fatalf("%s: expected message starting with %q, got %q", c.query, c.prefix, msg)
		}
		r.Free()
	}

	// Nothing of the failed insert was stored.
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1, 2, 3}) {
		t.Fatalf("expected ids [1 2 3], got %v", got)
	}
}

func TestEnginePrecompileBind(t *testing.T) {
	eng := startEngine(t)
	setupUsers(t, eng)

	// 1. Compile once with a placeholder.
	stmt, err := eng.Precompile("SELECT id FROM users WHERE id > ?")
	if err != nil {
		t.Fatalf("Precompile failed: %v", err)
	}
	if stmt.NumBind() != 1 {
		t.Fatalf("expected 1 bind slot, got %d", stmt.NumBind())
	}

	run := func(v int32) []int32 {
		if err := eng.Bind(stmt, 0, sql.IntegerValue(v)); err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		r := eng.ExecStatement(result.KindRows, stmt)
		defer r.Free()
		rows, ok := r.(*result.Rows)
		if !ok {
			t.Fatalf("expected rows, got %s", result.ErrorMessage(r))
		}
		var ids []int32
		for i := 0; i < rows.RowCount(); i++ {
			id, _ := rows.Integer(0, i)
			ids = append(ids, id)
		}
		return ids
	}

	// 2. Rebinding changes the outcome without recompiling.
	if got := run(1); !equalInts(got, []int32{2, 3}) {
		t.Fatalf("expected ids [2 3], got %v", got)
	}
	if got := run(2); !equalInts(got, []int32{3}) {
		t.Fatalf("expected ids [3], got %v", got)
	}

	// 3. The slot took the column type.
	if err := eng.Bind(stmt, 0, sql.StringValue("x")); !errors.Is(err, errors.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	// 4. Insert through a prepared statement.
	ins, err := eng.Precompile("INSERT INTO users (id, name) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Precompile insert failed: %v", err)
	}
	if err := eng.Bind(ins, 0, sql.IntegerValue(9)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := eng.Bind(ins, 1, sql.StringValue("Zed")); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	r := eng.ExecStatement(result.KindDontCare, ins)
	if !result.IsSuccess(r) {
		t.Fatalf("prepared insert failed: %s", result.ErrorMessage(r))
	}
	r.Free()
	if got := selectInts(t, eng, "SELECT id FROM users WHERE name = 'Zed'"); !equalInts(got, []int32{9}) {
		t.Fatalf("expected ids [9], got %v", got)
	}

	// 5. Unnamed transaction statements cannot be prepared.
	if _, err := eng.Precompile("BEGIN"); !errors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestEngineStatementCache(t *testing.T) {
	eng := startEngine(t, WithStatementCache(8))
	setupUsers(t, eng)

	// The create purged the cache, the insert is in it.
	if n := eng.CachedStatements(); n != 1 {
		t.Fatalf("expected 1 cached statement, got %d", n)
	}

	selectInts(t, eng, "SELECT id FROM users")
	selectInts(t, eng, "SELECT id FROM users")
	if n := eng.CachedStatements(); n != 2 {
		t.Fatalf("expected 2 cached statements, got %d", n)
	}

	// Parameterized statements stay out of the cache.
	r := eng.Exec(result.KindDontCare, "SELECT id FROM users WHERE id = ?")
	r.Free()
	if n := eng.CachedStatements(); n != 2 {
		t.Fatalf("expected 2 cached statements, got %d", n)
	}

	// Dropping and recreating a table invalidates compiled handles.
	mustExec(t, eng, "DROP TABLE users")
	if n := eng.CachedStatements(); n != 0 {
		t.Fatalf("expected empty cache after drop, got %d", n)
	}
	mustExec(t, eng, "CREATE TABLE users (id INTEGER PRIMARY KEY)")
	mustExec(t, eng, "INSERT INTO users VALUES (42)")
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{42}) {
		t.Fatalf("expected ids [42], got %v", got)
	}

	off := startEngine(t, WithStatementCache(0))
	setupUsers(t, off)
	if n := off.CachedStatements(); n != 0 {
		t.Fatalf("expected disabled cache, got %d", n)
	}
}

func TestEngineTransactions(t *testing.T) {
	eng := startEngine(t)
	setupUsers(t, eng)

	// 1. Unnamed transactions nest.
	mustExec(t, eng, "BEGIN")
	mustExec(t, eng, "INSERT INTO users (id, name) VALUES (4, 'Dan')")
	mustExec(t, eng, "BEGIN")
	mustExec(t, eng, "DELETE FROM users WHERE id = 1")
	if d := eng.TransactionDepth(); d != 2 {
		t.Fatalf("expected depth 2, got %d", d)
	}

	// 2. Rolling back the inner one restores the deleted row only.
	mustExec(t, eng, "ROLLBACK")
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1, 2, 3, 4}) {
		t.Fatalf("expected ids [1 2 3 4], got %v", got)
	}

	// 3. Committing the outer one keeps the insert.
	mustExec(t, eng, "COMMIT")
	if d := eng.TransactionDepth(); d != 0 {
		t.Fatalf("expected depth 0, got %d", d)
	}
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1, 2, 3, 4}) {
		t.Fatalf("expected ids [1 2 3 4], got %v", got)
	}

	// 4. Named transactions roll back schema changes too.
	mustExec(t, eng, "BEGIN work")
	mustExec(t, eng, "DROP TABLE users")
	mustExec(t, eng, "ROLLBACK work")
	if got := selectInts(t, eng, "SELECT id FROM users"); !equalInts(got, []int32{1, 2, 3, 4}) {
		t.Fatalf("expected ids [1 2 3 4] after rollback, got %v", got)
	}
}

func TestEngineExecScript(t *testing.T) {
	eng := startEngine(t)

	script := `
CREATE TABLE items (id INTEGER PRIMARY KEY, label VARCHAR(8));
INSERT INTO items VALUES (1, 'one'), (2, 'two;semi');
SELECT id, label FROM items;
`
	var out bytes.Buffer
	if err := eng.ExecScript(script, &out); err != nil {
		t.Fatalf("ExecScript failed: %v\n%s", err, out.String())
	}
	text := out.String()
	for _, want := range []string{"Success", "inserted 2 rows", "two;semi", "label"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	// A failing statement stops the script.
	out.Reset()
	err := eng.ExecScript("INSERT INTO items VALUES (1, 'dup'); INSERT INTO items VALUES (3, 'three')", &out)
	if err == nil {
		t.Fatalf("expected script error")
	}
	if !strings.Contains(err.Error(), "statement 1") {
		t.Fatalf("expected failure at statement 1, got %v", err)
	}
	if got := selectInts(t, eng, "SELECT id FROM items"); !equalInts(got, []int32{1, 2}) {
		t.Fatalf("expected ids [1 2], got %v", got)
	}
}

func TestEngineTriggers(t *testing.T) {
	eng := startEngine(t)
	setupUsers(t, eng)

	type seen struct {
		event sql.EventType
		id    int32
	}
	var events []seen
	err := eng.RegisterCallback("collect", result.KindEvent, func(r result.Result, _ any) {
		evt := r.(*result.Event)
		s := seen{event: evt.Type()}
		if rows := evt.Rows(); rows != nil {
			s.id, _ = rows.Integer(0, 0)
		}
		events = append(events, s)
	}, nil)
	if err != nil {
		t.Fatalf("RegisterCallback failed: %v", err)
	}

	if err := eng.CreateRowTrigger("rows", "users", "collect", "id"); err != nil {
		t.Fatalf("CreateRowTrigger failed: %v", err)
	}
	if err := eng.CreateColumnTrigger("scores", "users", "score", "collect", "id"); err != nil {
		t.Fatalf("CreateColumnTrigger failed: %v", err)
	}

	mustExec(t, eng, "INSERT INTO users VALUES (5, 'Eve', 1)")
	mustExec(t, eng, "UPDATE users SET score = 2 WHERE id = 5")
	mustExec(t, eng, "UPDATE users SET score = 2 WHERE id = 5")
	mustExec(t, eng, "DELETE FROM users WHERE id = 5")

	want := []seen{
		{sql.EventRowInserted, 5},
		{sql.EventColumnChanged, 5},
		{sql.EventRowDeleted, 5},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], events[i])
		}
	}

	if err := eng.CreateColumnTrigger("bad", "users", "nosuch", "collect"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := eng.DropTrigger("rows"); err != nil {
		t.Fatalf("DropTrigger failed: %v", err)
	}
	if err := eng.DropTrigger("rows"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found on second drop, got %v", err)
	}
}

func TestEngineLifecycle(t *testing.T) {
	eng := New(memstore.New())

	r := eng.Exec(result.KindDontCare, "SHOW TABLES")
	if result.IsSuccess(r) {
		t.Fatalf("expected failure before Start")
	}
	r.Free()

	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := eng.Start(); err == nil {
		t.Fatalf("expected error on second Start")
	}
	eng.Close()
	eng.Close()
}
