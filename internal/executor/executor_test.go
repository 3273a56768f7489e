package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/extension"
	"github.com/minifish-org/tegdb-sub001/internal/planner"
	"github.com/minifish-org/tegdb-sub001/internal/sql/parser"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/storage"
)

func openTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tegdb")
	eng, err := storage.Open(path, storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func newExecutor() *Executor {
	return New(&extension.Resolver{Registry: extension.NewRegistry()})
}

// run plans and executes sql in its own auto-committed transaction.
func run(t *testing.T, eng *storage.Engine, ex *Executor, cat *catalog.Catalog, sql string, params ...sqlast.Value) Result {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	plan, err := planner.BuildPlan(stmt, cat)
	require.NoError(t, err)
	tx := eng.Begin()
	res, err := ex.Execute(tx, cat, plan, params)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return res
}

func collectRows(t *testing.T, rows *Rows) [][]sqlast.Value {
	t.Helper()
	defer rows.Close()
	var out [][]sqlast.Value
	for {
		v, ok, err := rows.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func TestExecutorCreateInsertSelect(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()

	run(t, eng, ex, cat, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT(32), score REAL)")
	res := run(t, eng, ex, cat, "INSERT INTO users (id, name, score) VALUES (1, 'alice', 9.5)")
	assert.EqualValues(t, 1, res.RowsAffected)
	run(t, eng, ex, cat, "INSERT INTO users (id, name, score) VALUES (2, 'bob', 3.5)")

	res = run(t, eng, ex, cat, "SELECT name FROM users WHERE id = 1")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0][0].Text)

	res = run(t, eng, ex, cat, "SELECT id FROM users WHERE id = 999")
	rows = collectRows(t, res.Rows)
	assert.Len(t, rows, 0)
}

func TestExecutorPrimaryKeyUniqueness(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	run(t, eng, ex, cat, "INSERT INTO t (id) VALUES (1)")

	stmt, err := parser.Parse("INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)
	plan, err := planner.BuildPlan(stmt, cat)
	require.NoError(t, err)
	tx := eng.Begin()
	_, err = ex.Execute(tx, cat, plan, nil)
	require.Error(t, err)
	tx.Rollback()
}

func TestExecutorUniqueConstraint(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, email TEXT(32) UNIQUE)")
	run(t, eng, ex, cat, "INSERT INTO t (id, email) VALUES (1, 'a@b.com')")

	stmt, err := parser.Parse("INSERT INTO t (id, email) VALUES (2, 'a@b.com')")
	require.NoError(t, err)
	plan, err := planner.BuildPlan(stmt, cat)
	require.NoError(t, err)
	tx := eng.Begin()
	_, err = ex.Execute(tx, cat, plan, nil)
	require.Error(t, err)
	tx.Rollback()
}

func TestExecutorUpdateAndDelete(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO t (id, v) VALUES (1, 10)")
	run(t, eng, ex, cat, "INSERT INTO t (id, v) VALUES (2, 20)")

	res := run(t, eng, ex, cat, "UPDATE t SET v = 99 WHERE id = 1")
	assert.EqualValues(t, 1, res.RowsAffected)

	res = run(t, eng, ex, cat, "SELECT v FROM t WHERE id = 1")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 99, rows[0][0].Int)

	res = run(t, eng, ex, cat, "DELETE FROM t WHERE id = 2")
	assert.EqualValues(t, 1, res.RowsAffected)

	res = run(t, eng, ex, cat, "SELECT id FROM t")
	rows = collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0][0].Int)
}

func TestExecutorUpdatePrimaryKeyReKeys(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO t (id, v) VALUES (1, 10)")

	run(t, eng, ex, cat, "UPDATE t SET id = 5 WHERE id = 1")

	res := run(t, eng, ex, cat, "SELECT v FROM t WHERE id = 5")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 10, rows[0][0].Int)

	res = run(t, eng, ex, cat, "SELECT v FROM t WHERE id = 1")
	rows = collectRows(t, res.Rows)
	assert.Len(t, rows, 0)
}

func TestExecutorOrderByAndLimit(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)")
	for i, v := range []int64{30, 10, 20} {
		run(t, eng, ex, cat, "INSERT INTO t (id, v) VALUES (?1, ?2)",
			sqlast.Integer(int64(i+1)), sqlast.Integer(v))
	}

	res := run(t, eng, ex, cat, "SELECT v FROM t ORDER BY v ASC LIMIT 2")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 10, rows[0][0].Int)
	assert.EqualValues(t, 20, rows[1][0].Int)
}

func TestExecutorVectorTopK(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE docs (id INTEGER PRIMARY KEY, embedding VECTOR(2))")
	run(t, eng, ex, cat, "INSERT INTO docs (id, embedding) VALUES (1, [0.5, 0.5])")
	run(t, eng, ex, cat, "INSERT INTO docs (id, embedding) VALUES (2, [1.0, 1.0])")
	run(t, eng, ex, cat, "INSERT INTO docs (id, embedding) VALUES (3, [5.0, 5.0])")

	res := run(t, eng, ex, cat, "SELECT id FROM docs ORDER BY EUCLIDEAN_DISTANCE(embedding, [0.0, 0.0]) LIMIT 2")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0][0].Int)
	assert.EqualValues(t, 2, rows[1][0].Int)
}

func TestExecutorAggregates(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()

	run(t, eng, ex, cat, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT(32), age INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO users (id, name, age) VALUES (1, 'alice', 30), (2, 'bob', 25)")

	res := run(t, eng, ex, cat, "SELECT COUNT(*) FROM users")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"COUNT(*)"}, res.Rows.Columns)
	assert.EqualValues(t, 2, rows[0][0].Int)

	run(t, eng, ex, cat, "DELETE FROM users WHERE age < 30")

	res = run(t, eng, ex, cat, "SELECT COUNT(*) FROM users")
	rows = collectRows(t, res.Rows)
	assert.EqualValues(t, 1, rows[0][0].Int)

	res = run(t, eng, ex, cat, "SELECT SUM(age), AVG(age), MIN(age), MAX(age) FROM users")
	rows = collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 30, rows[0][0].Int)
	assert.InDelta(t, 30.0, rows[0][1].Real, 0.0001)
	assert.EqualValues(t, 30, rows[0][2].Int)
	assert.EqualValues(t, 30, rows[0][3].Int)
}

func TestExecutorFilterColumnsStayOutOfOutput(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT(16), age INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO users VALUES (1, 'alice', 30), (2, 'bob', 25)")

	res := run(t, eng, ex, cat, "SELECT name FROM users WHERE age < 30")
	assert.Equal(t, []string{"name"}, res.Rows.Columns)
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 1)
	assert.Equal(t, "bob", rows[0][0].Text)
}

func TestExecutorMultiKeyOrderWithTies(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE students (name TEXT(8) PRIMARY KEY, grade INTEGER, score INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO students VALUES ('A', 10, 95), ('B', 10, 88), ('C', 9, 92), ('D', 10, 88)")

	res := run(t, eng, ex, cat, "SELECT name, grade, score FROM students ORDER BY grade ASC, score DESC")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 4)
	var names []string
	for _, r := range rows {
		names = append(names, r[0].Text)
	}
	// Grade 9 first, then the grade-10 group by score descending; the 88
	// tie breaks by primary key ascending.
	assert.Equal(t, []string{"C", "A", "B", "D"}, names)
}

func TestExecutorInsertColumnSubsetNullsRest(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)")
	run(t, eng, ex, cat, "INSERT INTO t (id) VALUES (1)")

	res := run(t, eng, ex, cat, "SELECT v FROM t WHERE id = 1")
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 1)
	assert.True(t, rows[0][0].IsNull())
}

// countingTx wraps a transaction and counts how many rows its scans visit,
// to observe limit pushdown stopping a scan early.
type countingTx struct {
	Tx
	visited int
}

func (c *countingTx) ScanFunc(start, end []byte, fn func(key, value []byte) (bool, error)) error {
	return c.Tx.ScanFunc(start, end, func(k, v []byte) (bool, error) {
		c.visited++
		return fn(k, v)
	})
}

func TestExecutorLimitPushdownStopsScanEarly(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)")
	tx := eng.Begin()
	stmt, err := parser.Parse("INSERT INTO t (id, v) VALUES (?1, ?2)")
	require.NoError(t, err)
	plan, err := planner.BuildPlan(stmt, cat)
	require.NoError(t, err)
	for i := int64(1); i <= 100; i++ {
		_, err := ex.Execute(tx, cat, plan, []sqlast.Value{sqlast.Integer(i), sqlast.Integer(i * 2)})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	stmt, err = parser.Parse("SELECT id FROM t WHERE id > 50 LIMIT 3")
	require.NoError(t, err)
	plan, err = planner.BuildPlan(stmt, cat)
	require.NoError(t, err)

	scanTx := &countingTx{Tx: eng.Begin()}
	res, err := ex.Execute(scanTx, cat, plan, nil)
	require.NoError(t, err)
	rows := collectRows(t, res.Rows)
	require.Len(t, rows, 3)
	assert.EqualValues(t, 51, rows[0][0].Int)
	assert.EqualValues(t, 52, rows[1][0].Int)
	assert.EqualValues(t, 53, rows[2][0].Int)
	assert.Equal(t, 53, scanTx.visited, "the scan must stop after the third match")
}

func TestExecutorDropTable(t *testing.T) {
	eng := openTestEngine(t)
	ex := newExecutor()
	cat := catalog.NewCatalog()
	run(t, eng, ex, cat, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	run(t, eng, ex, cat, "INSERT INTO t (id) VALUES (1)")
	run(t, eng, ex, cat, "DROP TABLE t")
	_, ok := cat.Table("t")
	assert.False(t, ok)
}
