package mql

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"mqldb/internal/errors"
	"mqldb/internal/logger"
	"mqldb/internal/metrics"
	"mqldb/internal/result"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

// Callback receives a trigger report: a *result.Event or a *result.Text,
// depending on the kind the callback was registered with. The result is
// freed when the callback returns and must not be retained.
type Callback func(r result.Result, userData any)

type callback struct {
	name     string
	kind     result.Kind
	fn       Callback
	userData any
	refs     int

	queue queue // pending asynchronous deliveries, in event order
}

type pending struct {
	call func()
	drop func(error)
}

// queue serializes the asynchronous deliveries to one callback. At most
// one pool task drains it at a time.
type queue struct {
	mu      sync.Mutex
	items   []pending
	running bool
}

func (q *queue) push(pool *ants.Pool, p pending) {
	q.mu.Lock()
	q.items = append(q.items, p)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	if err := pool.Submit(q.drain); err != nil {
		q.mu.Lock()
		items := q.items
		q.items = nil
		q.running = false
		q.mu.Unlock()
		for _, p := range items {
			p.drop(err)
		}
	}
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		p := q.items[0]
		q.items[0] = pending{}
		q.items = q.items[1:]
		q.mu.Unlock()

		safeCall(p.call)
	}
}

// safeCall keeps a panicking callback from stalling its queue.
func safeCall(call func()) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("trigger callback panic", "panic", fmt.Sprint(v))
		}
	}()
	call()
}

type trigger struct {
	name     string
	id       storage.TriggerID
	callback *callback
	sel      []result.RowColumn
	stride   int
}

// Triggers maps named triggers onto storage triggers and delivers their
// events to named callbacks.
type Triggers struct {
	mu        sync.Mutex
	backend   storage.Engine
	callbacks map[string]*callback
	triggers  map[string]*trigger

	pool   *ants.Pool // nil delivers synchronously; guarded by mu
	closed bool
}

// TriggerOption configures a Triggers registry.
type TriggerOption func(*Triggers) error

// WithAsyncDelivery hands callbacks to a pool of size goroutines instead
// of running them before the triggering statement returns.
func WithAsyncDelivery(size int) TriggerOption {
	return func(t *Triggers) error {
		pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
			logger.Error("trigger callback panic", "panic", fmt.Sprint(v))
		}))
		if err != nil {
			return fmt.Errorf("trigger pool: %w", err)
		}
		t.pool = pool
		return nil
	}
}

func NewTriggers(backend storage.Engine, opts ...TriggerOption) (*Triggers, error) {
	t := &Triggers{
		backend:   backend,
		callbacks: make(map[string]*callback),
		triggers:  make(map[string]*trigger),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Close waits for queued deliveries and stops the delivery pool. Events
// raised after Close are dropped.
func (t *Triggers) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	pool := t.pool
	t.mu.Unlock()

	if pool != nil {
		_ = pool.ReleaseTimeout(3 * time.Second)
	}
}

// RegisterCallback registers fn under name. kind selects the report
// format, result.KindEvent or result.KindString; result.KindDontCare
// means events.
func (t *Triggers) RegisterCallback(name string, kind result.Kind, fn Callback, userData any) error {
	if name == "" || fn == nil {
		return invalid("callback needs a name and a function")
	}
	switch kind {
	case result.KindDontCare:
		kind = result.KindEvent
	case result.KindEvent, result.KindString:
	default:
		return invalid("callback %s: unsupported result type %s", name, kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.callbacks[name]; exists {
		return fmt.Errorf("mql: callback %s: %w", name, errors.ErrExists)
	}
	t.callbacks[name] = &callback{name: name, kind: kind, fn: fn, userData: userData}
	return nil
}

// UnregisterCallback removes a callback from the registry. Triggers that
// already use it keep delivering to it until they are dropped.
func (t *Triggers) UnregisterCallback(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.callbacks[name]; !ok {
		return fmt.Errorf("mql: callback %s: %w", name, errors.ErrNotFound)
	}
	delete(t.callbacks, name)
	return nil
}

// CallbackRefs returns the number of triggers delivering to the named
// callback.
func (t *Triggers) CallbackRefs(name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cb, ok := t.callbacks[name]
	if !ok {
		return 0, fmt.Errorf("mql: callback %s: %w", name, errors.ErrNotFound)
	}
	return cb.refs, nil
}

func selectLayout(sel []result.RowColumn) ([]sql.ColumnDesc, int, error) {
	if len(sel) == 0 {
		return nil, 0, nil
	}
	if len(sel) > result.MaxColumns {
		return nil, 0, invalid("%d selected columns", len(sel))
	}
	descs := make([]sql.ColumnDesc, len(sel))
	stride := 0
	for i, c := range sel {
		if c.Index < 0 || c.Offset < 0 {
			return nil, 0, invalid("selected column %q at offset %d", c.Name, c.Offset)
		}
		descs[i] = sql.ColumnDesc{Index: c.Index, Offset: c.Offset}
		stride = max(stride, c.Offset+1)
	}
	return descs, stride, nil
}

func (t *Triggers) create(name, cbName string, st storage.Trigger, sel []result.RowColumn) error {
	if name == "" {
		return invalid("empty trigger name")
	}
	descs, stride, err := selectLayout(sel)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.triggers[name]; exists {
		return fmt.Errorf("mql: trigger %s: %w", name, errors.ErrExists)
	}
	cb, ok := t.callbacks[cbName]
	if !ok {
		return fmt.Errorf("mql: trigger %s: callback %s: %w", name, cbName, errors.ErrNotFound)
	}

	tr := &trigger{name: name, callback: cb, stride: stride}
	if len(sel) > 0 {
		tr.sel = append([]result.RowColumn(nil), sel...)
	}
	st.Select = descs
	st.SelectStride = stride
	st.Func = func(evt *sql.Event) { t.deliver(tr, evt) }

	id, err := t.backend.AddTrigger(st)
	if err != nil {
		return err
	}
	tr.id = id
	cb.refs++
	t.triggers[name] = tr
	return nil
}

func (t *Triggers) CreateTransactionTrigger(name, cbName string) error {
	return t.create(name, cbName, storage.Trigger{Kind: storage.TriggerTransaction}, nil)
}

func (t *Triggers) CreateTableTrigger(name, cbName string) error {
	return t.create(name, cbName, storage.Trigger{Kind: storage.TriggerTable}, nil)
}

// CreateRowTrigger reports rows inserted into or deleted from table,
// carrying the sel columns of the affected row.
func (t *Triggers) CreateRowTrigger(name string, table sql.Handle, cbName string, sel []result.RowColumn) error {
	return t.create(name, cbName, storage.Trigger{Kind: storage.TriggerRow, Table: table}, sel)
}

// CreateColumnTrigger reports value changes of one column of table,
// carrying the sel columns of the changed row.
func (t *Triggers) CreateColumnTrigger(name string, table sql.Handle, column int, cbName string, sel []result.RowColumn) error {
	return t.create(name, cbName, storage.Trigger{Kind: storage.TriggerColumn, Table: table, Column: column}, sel)
}

func (t *Triggers) DropTrigger(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.triggers[name]
	if !ok {
		return fmt.Errorf("mql: trigger %s: %w", name, errors.ErrNotFound)
	}
	if err := t.backend.RemoveTrigger(tr.id); err != nil {
		return err
	}
	delete(t.triggers, name)
	tr.callback.refs--
	return nil
}

// deliver converts a storage event to the callback's report format and
// hands it over. With a pool, deliveries to one callback keep the order
// the events were raised in.
func (t *Triggers) deliver(tr *trigger, evt *sql.Event) {
	event := evt.Type.String()

	t.mu.Lock()
	pool, closed := t.pool, t.closed
	t.mu.Unlock()
	if closed {
		logger.Debug("trigger delivery dropped", "trigger", tr.name, "event", event, "reason", "closed")
		metrics.ObserveTrigger(event, false)
		return
	}

	cb := tr.callback
	r, err := tr.report(cb.kind, evt)
	if err != nil {
		logger.Warn("trigger report failed", "trigger", tr.name, "event", event, "error", err)
		metrics.ObserveTrigger(event, false)
		return
	}

	call := func() {
		defer r.Free()
		cb.fn(r, cb.userData)
		metrics.ObserveTrigger(event, true)
	}

	if pool == nil {
		call()
		return
	}
	cb.queue.push(pool, pending{
		call: call,
		drop: func(err error) {
			r.Free()
			logger.Warn("trigger delivery dropped", "trigger", tr.name, "event", event, "error", err)
			metrics.ObserveTrigger(event, false)
		},
	})
}

func (tr *trigger) report(kind result.Kind, evt *sql.Event) (result.Result, error) {
	if kind == result.KindString {
		return tr.text(evt)
	}

	switch evt.Type {
	case sql.EventColumnChanged, sql.EventRowInserted, sql.EventRowDeleted:
		var rows *result.Rows
		if len(tr.sel) > 0 && evt.Select != nil {
			var err error
			if rows, err = result.NewRows(tr.sel, 1, tr.stride, evt.Select); err != nil {
				return nil, err
			}
		}
		if evt.Type == sql.EventColumnChanged {
			return result.NewColumnChangeEvent(evt.Table, evt.TableName, evt.Column, evt.ColumnName,
				evt.OldValue, evt.NewValue, rows), nil
		}
		return result.NewRowEvent(evt.Type, evt.Table, evt.TableName, rows), nil
	case sql.EventTableCreated, sql.EventTableDropped:
		return result.NewTableEvent(evt.Type, evt.Table, evt.TableName), nil
	case sql.EventTransactionStart, sql.EventTransactionEnd:
		return result.NewTransactionEvent(evt.Type, evt.Depth), nil
	default:
		return nil, invalid("unknown event %d", int(evt.Type))
	}
}

func (tr *trigger) text(evt *sql.Event) (result.Result, error) {
	var sel *result.Text
	if len(tr.sel) > 0 && evt.Select != nil {
		var err error
		if sel, err = result.NewRowListText(tr.sel, 1, tr.stride, evt.Select); err != nil {
			return nil, err
		}
	}

	switch evt.Type {
	case sql.EventColumnChanged:
		return result.NewColumnChangeText(evt.TableName, evt.ColumnName, evt.OldValue, evt.NewValue, sel), nil
	case sql.EventRowInserted, sql.EventRowDeleted:
		return result.NewRowChangeText(evt.Type, evt.TableName, sel), nil
	}

	if sel != nil {
		sel.Free()
	}
	switch evt.Type {
	case sql.EventTableCreated, sql.EventTableDropped:
		return result.NewTableChangeText(evt.Type, evt.TableName), nil
	case sql.EventTransactionStart, sql.EventTransactionEnd:
		return result.NewTransactionText(evt.Type, evt.Depth), nil
	default:
		return nil, invalid("unknown event %d", int(evt.Type))
	}
}
