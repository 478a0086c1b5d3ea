package engine

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"mqldb/internal/errors"
	"mqldb/internal/logger"
	"mqldb/internal/mql"
	"mqldb/internal/result"
	"mqldb/internal/sql"
	"mqldb/internal/storage"
)

const defaultStatementCache = 128

// DBEngine is the query front door: it parses statements, compiles them
// against the storage schema and runs them.
type DBEngine struct {
	mu      sync.Mutex
	started bool
	store   storage.Engine

	exec     *mql.Executor
	triggers *mql.Triggers

	cacheSize int
	cache     *lru.Cache[string, *mql.Statement]
	asyncPool int
	anonymous []string // names of open BEGIN-without-name transactions, guarded by mu
}

// Option configures a DBEngine.
type Option func(*DBEngine)

// WithStatementCache sets how many parameter-free statements are kept
// compiled. Zero disables the cache.
func WithStatementCache(n int) Option {
	return func(e *DBEngine) {
		if n >= 0 {
			e.cacheSize = n
		}
	}
}

// WithAsyncTriggers delivers trigger callbacks from a pool of n
// goroutines.
func WithAsyncTriggers(n int) Option {
	return func(e *DBEngine) { e.asyncPool = n }
}

// New creates a new DBEngine on top of store.
func New(store storage.Engine, opts ...Option) *DBEngine {
	e := &DBEngine{
		store:     store,
		exec:      mql.NewExecutor(store),
		cacheSize: defaultStatementCache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start runs initialization steps for the engine.
func (e *DBEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}

	var topts []mql.TriggerOption
	if e.asyncPool > 0 {
		topts = append(topts, mql.WithAsyncDelivery(e.asyncPool))
	}
	triggers, err := mql.NewTriggers(e.store, topts...)
	if err != nil {
		return fmt.Errorf("start triggers: %w", err)
	}
	e.triggers = triggers

	if e.cacheSize > 0 {
		cache, err := lru.New[string, *mql.Statement](e.cacheSize)
		if err != nil {
			return fmt.Errorf("statement cache: %w", err)
		}
		e.cache = cache
	}

	e.started = true
	logger.Info("engine started", "statement_cache", e.cacheSize, "async_triggers", e.asyncPool)
	return nil
}

// Close stops trigger delivery, waiting briefly for queued callbacks.
func (e *DBEngine) Close() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	triggers := e.triggers
	e.mu.Unlock()

	triggers.Close()
	logger.Info("engine stopped")
}

func (e *DBEngine) checkStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return fmt.Errorf("engine not started: %w", errors.ErrInvalidArgument)
	}
	return nil
}

// Exec parses, compiles and runs a single statement and renders the
// outcome as kind. No engine lock is held while the statement runs, so
// trigger callbacks may call back into the engine.
func (e *DBEngine) Exec(kind result.Kind, query string) result.Result {
	if err := e.checkStarted(); err != nil {
		return result.FromError(err, "exec failed")
	}

	query = strings.TrimSpace(query)
	if stmt, ok := e.cached(query); ok {
		return e.exec.Exec(kind, stmt)
	}

	parsed, err := sql.Parse(query)
	if err != nil {
		return result.FromError(err, "parse error")
	}

	if tx, ok := parsed.(*sql.TxStmt); ok && tx.Name == "" {
		return e.execAnonymous(kind, tx)
	}

	stmt, err := e.compile(parsed)
	if err != nil {
		return result.FromError(err, "compile error")
	}

	r := e.exec.Exec(kind, stmt)
	e.afterExec(query, stmt, r)
	return r
}

// Precompile parses and compiles query for repeated execution with
// ExecStatement.
func (e *DBEngine) Precompile(query string) (*mql.Statement, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	parsed, err := sql.Parse(query)
	if err != nil {
		return nil, err
	}
	if tx, ok := parsed.(*sql.TxStmt); ok && tx.Name == "" {
		return nil, fmt.Errorf("%s without a transaction name cannot be precompiled: %w", tx.Kind, errors.ErrInvalidArgument)
	}
	return e.compile(parsed)
}

// ExecStatement runs a precompiled statement.
func (e *DBEngine) ExecStatement(kind result.Kind, stmt *mql.Statement) result.Result {
	if err := e.checkStarted(); err != nil {
		return result.FromError(err, "exec failed")
	}
	r := e.exec.Exec(kind, stmt)
	if stmt != nil {
		e.afterExec("", stmt, r)
	}
	return r
}

// Bind sets parameter slot i of stmt. Slots are numbered from 0 in the
// order the '?' placeholders appear.
func (e *DBEngine) Bind(stmt *mql.Statement, i int, v sql.Value) error {
	return mql.Bind(stmt, i, v)
}

func (e *DBEngine) cached(query string) (*mql.Statement, bool) {
	if e.cache == nil {
		return nil, false
	}
	stmt, ok := e.cache.Get(query)
	if ok {
		logger.Debug("statement cache hit", "query", query)
	}
	return stmt, ok
}

// afterExec keeps the statement cache consistent with the schema.
// Compiled statements hold table handles, so anything that creates or
// removes a table invalidates them all.
func (e *DBEngine) afterExec(query string, stmt *mql.Statement, r result.Result) {
	if e.cache == nil || !result.IsSuccess(r) {
		return
	}
	switch stmt.Kind() {
	case mql.KindCreateTable, mql.KindDropTable, mql.KindRollback:
		e.purgeCache()
	default:
		if query != "" && !stmt.HasParameters() {
			e.cache.Add(query, stmt)
		}
	}
}

func (e *DBEngine) purgeCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// CachedStatements returns the number of compiled statements held by the
// statement cache.
func (e *DBEngine) CachedStatements() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
