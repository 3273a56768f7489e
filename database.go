// Package tegdb provides a SQLite-like embedded database handle: Open a
// log file, then Execute/Query SQL against it. It ties together the
// storage engine, catalog, planner, executor, and plan cache behind one
// facade with a mutex-guarded schema cache.
package tegdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/config"
	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/dblog"
	"github.com/minifish-org/tegdb-sub001/internal/executor"
	"github.com/minifish-org/tegdb-sub001/internal/extension"
	"github.com/minifish-org/tegdb-sub001/internal/keyenc"
	"github.com/minifish-org/tegdb-sub001/internal/plancache"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/storage"
)

// Value is the caller-facing alias for a bound parameter or a returned
// column value.
type Value = sqlast.Value

// Null is the SQL NULL value.
var Null = sqlast.Null

// Constructors for parameter values.
func Integer(v int64) Value    { return sqlast.Integer(v) }
func Real(v float64) Value     { return sqlast.Real(v) }
func Text(v string) Value      { return sqlast.Text(v) }
func Blob(v []byte) Value      { return sqlast.Blob(v) }
func Vector(v []float64) Value { return sqlast.Vector(v) }

// Result is the caller-facing alias for a statement's outcome.
type Result = executor.Result

// Rows is the caller-facing alias for a streaming query result.
type Rows = executor.Rows

// Config controls how Open builds a Database. Open uses config.Default();
// OpenWithConfig passes cfg.Storage to the engine as given, so zero limits
// in a zero Config are not replaced by the defaults.
type Config = config.Config

// Database is a handle on one log file: the storage engine, the live
// catalog, and the resources (extension registry, plan cache) shared by
// every statement run against it. Safe for sequential use; concurrent
// callers must serialize their own access. There is no internal
// connection pool.
type Database struct {
	mu       sync.Mutex
	engine   *storage.Engine
	catalog  *catalog.Catalog
	exec     *executor.Executor
	registry *extension.Registry
	cache    *plancache.Cache
}

// resolvePath maps a storage identifier to a filesystem path. Supported
// forms are "file://<path>" and a bare path; any other scheme is rejected.
func resolvePath(uri string) (string, error) {
	if rest, ok := strings.CutPrefix(uri, "file://"); ok {
		return rest, nil
	}
	if i := strings.Index(uri, "://"); i >= 0 {
		return "", fmt.Errorf("%w: %q", dberr.ErrUnknownScheme, uri[:i])
	}
	return uri, nil
}

// Open creates or opens the log file identified by uri with default
// configuration. uri is either a "file://" identifier or a bare path.
func Open(uri string) (*Database, error) {
	return OpenWithConfig(uri, config.Default())
}

// OpenWithConfig creates or opens the log file identified by uri using
// cfg's storage tuning, then loads every persisted table/index/extension
// entry into a fresh in-memory catalog.
func OpenWithConfig(uri string, cfg Config) (*Database, error) {
	path, err := resolvePath(uri)
	if err != nil {
		return nil, err
	}
	engine, err := storage.Open(path, cfg.Storage)
	if err != nil {
		return nil, err
	}
	db := &Database{
		engine:   engine,
		catalog:  catalog.NewCatalog(),
		registry: extension.NewRegistry(),
		cache:    plancache.New(256),
	}
	db.exec = executor.New(&extension.Resolver{Registry: db.registry})
	if err := db.loadCatalog(); err != nil {
		engine.Close()
		return nil, err
	}
	componentLog := dblog.WithComponent("database")
	componentLog.Info().Str("path", path).Msg("opened database")
	return db, nil
}

// loadCatalog scans the __schema__:/__index__:/__extension__: key ranges
// and populates db.catalog.
func (db *Database) loadCatalog() error {
	scanPrefix := func(prefix string, fn func(key, value []byte) (bool, error)) error {
		start := []byte(prefix)
		end, _ := keyenc.PrefixUpperBound(start)
		return db.engine.ScanFunc(start, end, fn)
	}

	if err := scanPrefix(catalog.SchemaPrefix, func(key, value []byte) (bool, error) {
		name := string(key)[len(catalog.SchemaPrefix):]
		schema, err := catalog.DeserializeSchema(name, value)
		if err != nil {
			return false, err
		}
		db.catalog.PutTable(schema)
		return true, nil
	}); err != nil {
		return err
	}
	if err := scanPrefix(catalog.IndexPrefix, func(key, value []byte) (bool, error) {
		name := string(key)[len(catalog.IndexPrefix):]
		ix, err := catalog.DeserializeIndex(name, value)
		if err != nil {
			return false, err
		}
		db.catalog.PutIndex(ix)
		return true, nil
	}); err != nil {
		return err
	}
	return scanPrefix(catalog.ExtensionPrefix, func(key, _ []byte) (bool, error) {
		db.catalog.PutExtension(string(key)[len(catalog.ExtensionPrefix):])
		return true, nil
	})
}

// RefreshSchemaCache reloads every table/index/extension entry from disk,
// discarding the in-memory catalog built so far.
func (db *Database) RefreshSchemaCache() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.catalog = catalog.NewCatalog()
	db.cache.Invalidate()
	return db.loadCatalog()
}

// TableSchemas returns a snapshot of every table name currently known to
// the catalog, for introspection.
func (db *Database) TableSchemas() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.catalog.TableNames()
}

// Compact rewrites the log file keeping only live entries and swaps it in
// place. No transaction may be active.
func (db *Database) Compact() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Compact()
}

// Close flushes and releases the underlying log file.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.engine.Close()
}

func checkParams(prepared *plancache.Prepared, params []Value) error {
	if len(params) < prepared.ParamCount {
		return dberr.NewTypeError("statement expects %d parameter(s), %d supplied", prepared.ParamCount, len(params))
	}
	return nil
}

// Execute runs sql as a single auto-committed transaction and returns the
// number of rows affected (DML) or an acknowledgment (DDL). It is an
// error to call Execute with a SELECT statement; use Query instead.
func (db *Database) Execute(sql string, params ...Value) (Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prepared, err := db.cache.Get(sql, db.catalog)
	if err != nil {
		return Result{}, err
	}
	switch prepared.Stmt.(type) {
	case *sqlast.SelectStmt:
		return Result{}, dberr.NewSchemaError("Execute does not support SELECT; use Query")
	case *sqlast.BeginStmt:
		return Result{}, fmt.Errorf("%w: BEGIN has no effect through Execute; use Begin", dberr.ErrTransactionState)
	case *sqlast.CommitStmt, *sqlast.RollbackStmt:
		return Result{}, fmt.Errorf("%w: no transaction is active", dberr.ErrTransactionState)
	}
	if err := checkParams(prepared, params); err != nil {
		return Result{}, err
	}

	// DDL runs against a catalog clone so a failed statement never leaves
	// phantom schema changes behind; the clone is published only after the
	// commit marker is durable.
	workCat := db.catalog
	ddl := isDDL(prepared.Stmt)
	if ddl {
		workCat = db.catalog.Clone()
	}

	tx := db.engine.Begin()
	res, err := db.exec.Execute(tx, workCat, prepared.Plan, params)
	if err != nil {
		tx.Rollback()
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	if ddl {
		db.catalog = workCat
		db.cache.Invalidate()
	}
	return res, nil
}

// Query runs a read-only SELECT and returns its row iterator. The
// returned Rows remain valid until Close is called on them; Query itself
// commits its implicit transaction immediately since no writes occur.
func (db *Database) Query(sql string, params ...Value) (*Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prepared, err := db.cache.Get(sql, db.catalog)
	if err != nil {
		return nil, err
	}
	if _, isSelect := prepared.Stmt.(*sqlast.SelectStmt); !isSelect {
		return nil, dberr.NewSchemaError("Query requires a SELECT statement")
	}
	if err := checkParams(prepared, params); err != nil {
		return nil, err
	}

	tx := db.engine.Begin()
	res, err := db.exec.Execute(tx, db.catalog, prepared.Plan, params)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func isDDL(stmt sqlast.Stmt) bool {
	switch stmt.(type) {
	case *sqlast.CreateTableStmt, *sqlast.DropTableStmt,
		*sqlast.CreateIndexStmt, *sqlast.DropIndexStmt,
		*sqlast.CreateExtensionStmt, *sqlast.DropExtensionStmt:
		return true
	default:
		return false
	}
}

// Stmt is a prepared statement: the SQL text is parsed and planned once
// (and kept warm in the plan cache), then executed repeatedly with
// different parameter bindings.
type Stmt struct {
	db         *Database
	sql        string
	paramCount int
}

// Prepare parses and plans sql without executing it. The returned Stmt is
// bound to db and stays valid across schema changes; a DDL statement after
// Prepare simply forces a re-plan on the next use.
func (db *Database) Prepare(sql string) (*Stmt, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	prepared, err := db.cache.Get(sql, db.catalog)
	if err != nil {
		return nil, err
	}
	return &Stmt{db: db, sql: sql, paramCount: prepared.ParamCount}, nil
}

// ParamCount reports how many `?N` parameters the statement binds.
func (s *Stmt) ParamCount() int { return s.paramCount }

// Execute runs the prepared statement with params bound.
func (s *Stmt) Execute(params ...Value) (Result, error) {
	return s.db.Execute(s.sql, params...)
}

// Query runs the prepared SELECT with params bound.
func (s *Stmt) Query(params ...Value) (*Rows, error) {
	return s.db.Query(s.sql, params...)
}

// Begin starts an explicit multi-statement transaction. The returned Tx
// must be committed or rolled back; it holds db's mutex for its entire
// lifetime, so exactly one transaction is in flight at a time.
func (db *Database) Begin() (*Tx, error) {
	db.mu.Lock()
	return &Tx{
		db:  db,
		tx:  db.engine.Begin(),
		cat: db.catalog.Clone(),
	}, nil
}

// Tx is a handle on one explicit transaction. DDL statements mutate a
// private catalog clone taken at Begin; Commit publishes it atomically,
// Rollback discards it.
type Tx struct {
	db   *Database
	tx   *storage.Transaction
	cat  *catalog.Catalog
	ddl  bool
	done bool
}

// Execute runs sql within the transaction. COMMIT and ROLLBACK statements
// finalize the transaction exactly as the Commit/Rollback methods do; a
// nested BEGIN is an error.
func (t *Tx) Execute(sql string, params ...Value) (Result, error) {
	if t.done {
		return Result{}, fmt.Errorf("%w: transaction is already committed or rolled back", dberr.ErrTransactionState)
	}
	prepared, err := t.db.cache.Get(sql, t.cat)
	if err != nil {
		return Result{}, err
	}
	switch prepared.Stmt.(type) {
	case *sqlast.SelectStmt:
		return Result{}, dberr.NewSchemaError("Execute does not support SELECT; use Query")
	case *sqlast.BeginStmt:
		return Result{}, fmt.Errorf("%w: nested BEGIN", dberr.ErrTransactionState)
	case *sqlast.CommitStmt:
		return Result{Message: "committed"}, t.Commit()
	case *sqlast.RollbackStmt:
		return Result{Message: "rolled back"}, t.Rollback()
	}
	if err := checkParams(prepared, params); err != nil {
		return Result{}, err
	}
	res, err := t.db.exec.Execute(t.tx, t.cat, prepared.Plan, params)
	if err != nil {
		return Result{}, err
	}
	if isDDL(prepared.Stmt) {
		t.ddl = true
	}
	return res, nil
}

// Query runs sql within the transaction and returns its rows, observing
// the transaction's own uncommitted writes.
func (t *Tx) Query(sql string, params ...Value) (*Rows, error) {
	if t.done {
		return nil, fmt.Errorf("%w: transaction is already committed or rolled back", dberr.ErrTransactionState)
	}
	prepared, err := t.db.cache.Get(sql, t.cat)
	if err != nil {
		return nil, err
	}
	if _, isSelect := prepared.Stmt.(*sqlast.SelectStmt); !isSelect {
		return nil, dberr.NewSchemaError("Query requires a SELECT statement")
	}
	if err := checkParams(prepared, params); err != nil {
		return nil, err
	}
	res, err := t.db.exec.Execute(t.tx, t.cat, prepared.Plan, params)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Commit finalizes the transaction's writes and publishes any staged
// catalog changes. On commit failure the transaction stays open so the
// caller may retry.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transaction is already committed or rolled back", dberr.ErrTransactionState)
	}
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.done = true
	if t.ddl {
		t.db.catalog = t.cat
		t.db.cache.Invalidate()
	}
	t.db.mu.Unlock()
	return nil
}

// Rollback discards the transaction's writes and its staged catalog clone.
func (t *Tx) Rollback() error {
	if t.done {
		return fmt.Errorf("%w: transaction is already committed or rolled back", dberr.ErrTransactionState)
	}
	t.done = true
	if t.ddl {
		// Plans cached against the discarded clone's bumped version must
		// not survive: a later committed DDL could reach the same version
		// number with a different schema.
		t.db.cache.Invalidate()
	}
	err := t.tx.Rollback()
	t.db.mu.Unlock()
	return err
}
