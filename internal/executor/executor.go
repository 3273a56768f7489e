// Package executor interprets a planner.Plan against a storage.Transaction
// and a catalog.Catalog snapshot, returning rows-affected counts for DML,
// a streaming row iterator for queries, or an acknowledgment for DDL. One
// function per plan variant; each validates before staging any mutation.
package executor

import (
	"container/heap"
	"sort"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/keyenc"
	"github.com/minifish-org/tegdb-sub001/internal/metrics"
	"github.com/minifish-org/tegdb-sub001/internal/planner"
	"github.com/minifish-org/tegdb-sub001/internal/row"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/sqleval"
	"github.com/minifish-org/tegdb-sub001/internal/storage"
	"github.com/minifish-org/tegdb-sub001/internal/vectordist"
)

// Tx is the subset of *storage.Transaction the executor depends on,
// narrowed to ease testing with a fake.
type Tx interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	ScanFunc(start, end []byte, fn func(key, value []byte) (bool, error)) error
}

var _ Tx = (*storage.Transaction)(nil)

// Result is what Execute returns for a single statement.
type Result struct {
	RowsAffected int64
	Rows         *Rows  // non-nil only for a row-producing plan
	Message      string // set for DDL acknowledgments
}

// Rows is an opaque streaming row iterator: a pull-based cursor the caller
// drives by calling Next. The scan's bookkeeping lives in a closure rather
// than a generator.
type Rows struct {
	Columns []string
	next    func() ([]sqlast.Value, bool, error)
	closed  bool
}

// Next returns the next row, or ok=false once exhausted.
func (r *Rows) Next() ([]sqlast.Value, bool, error) {
	if r.closed {
		return nil, false, nil
	}
	return r.next()
}

// Close releases any resources Rows holds. Calling it before exhausting
// the iterator is legal.
func (r *Rows) Close() { r.closed = true }

// NewRows builds a Rows iterator over an already-materialized slice of
// values, used by every plan kind whose result set is fully buffered
// before being returned, and by callers (formatters, tests) that need to
// feed Result a canned row set.
func NewRows(columns []string, values [][]sqlast.Value) *Rows {
	return sliceRows(columns, values)
}

func sliceRows(columns []string, values [][]sqlast.Value) *Rows {
	i := 0
	return &Rows{
		Columns: columns,
		next: func() ([]sqlast.Value, bool, error) {
			if i >= len(values) {
				return nil, false, nil
			}
			v := values[i]
			i++
			return v, true, nil
		},
	}
}

// Executor applies plans against a transaction and a catalog snapshot. A
// single Executor is reused across statements within one Database handle;
// it holds no per-statement state itself.
type Executor struct {
	Funcs sqleval.FunctionResolver
}

// New returns an Executor using funcs to resolve scalar function calls
// (built-in distance functions plus any registered extension functions).
func New(funcs sqleval.FunctionResolver) *Executor {
	return &Executor{Funcs: funcs}
}

// Execute runs plan against tx, mutating cat in place for DDL. cat is
// expected to be a private clone the caller (the Database facade) only
// publishes once the owning transaction commits.
func (ex *Executor) Execute(tx Tx, cat *catalog.Catalog, plan planner.Plan, params []sqlast.Value) (Result, error) {
	switch p := plan.(type) {
	case *planner.PrimaryKeyLookup:
		return ex.execPrimaryKeyLookup(tx, p, params)
	case *planner.TableScan:
		return ex.execTableScan(tx, p, params)
	case *planner.IndexScan:
		return ex.execIndexScan(tx, p, params)
	case *planner.VectorTopK:
		return ex.execVectorTopK(tx, p, params)
	case *planner.Insert:
		return ex.execInsert(tx, p, params)
	case *planner.Update:
		return ex.execUpdate(tx, p, params)
	case *planner.Delete:
		return ex.execDelete(tx, p, params)
	case *planner.CreateTable:
		return ex.execCreateTable(tx, cat, p)
	case *planner.DropTable:
		return ex.execDropTable(tx, cat, p)
	case *planner.CreateIndex:
		return ex.execCreateIndex(tx, cat, p)
	case *planner.DropIndex:
		return ex.execDropIndex(tx, cat, p)
	case *planner.CreateExtension:
		return ex.execCreateExtension(tx, cat, p)
	case *planner.DropExtension:
		return ex.execDropExtension(tx, cat, p)
	case *planner.Begin, *planner.Commit, *planner.Rollback:
		return Result{}, dberr.NewSchemaError("executor: transaction control statements are handled by the caller, not Execute")
	default:
		return Result{}, dberr.NewSchemaError("executor: unsupported plan type %T", plan)
	}
}

// --- SELECT ---

func (ex *Executor) execPrimaryKeyLookup(tx Tx, p *planner.PrimaryKeyLookup, params []sqlast.Value) (Result, error) {
	pkVal, err := sqleval.Evaluate(p.PKExpr, nil, params, ex.Funcs)
	if err != nil {
		return Result{}, err
	}
	key, err := keyenc.EncodePK(p.Table, pkVal)
	if err != nil {
		return Result{}, err
	}
	data, ok, err := tx.Get(key)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Rows: sliceRows(p.OutputColumns, nil)}, nil
	}
	if p.AdditionalFilter != nil {
		matches, err := row.MatchesCondition(data, p.Schema, p.AdditionalFilter, params, ex.Funcs)
		if err != nil {
			return Result{}, err
		}
		if !matches {
			return Result{Rows: sliceRows(p.OutputColumns, nil)}, nil
		}
	}
	values, err := row.GetColumns(data, p.Schema, p.OutputColumns)
	if err != nil {
		return Result{}, err
	}
	return Result{Rows: sliceRows(p.OutputColumns, [][]sqlast.Value{values})}, nil
}

func scanRange(table string) (start, end []byte) {
	prefix := keyenc.TablePrefix(table)
	end, ok := keyenc.PrefixUpperBound(prefix)
	if !ok {
		end = nil
	}
	return prefix, end
}

func (ex *Executor) execTableScan(tx Tx, p *planner.TableScan, params []sqlast.Value) (Result, error) {
	if len(p.Aggregates) > 0 {
		return ex.execAggregateScan(tx, p, params)
	}
	start, end := scanRange(p.Table)
	needsMaterialize := len(p.OrderBy) > 0

	var matched [][]sqlast.Value
	var emitted int64

	err := tx.ScanFunc(start, end, func(_, value []byte) (bool, error) {
		metrics.ScanRowsVisited.Inc()
		if p.Filter != nil {
			ok, err := row.MatchesCondition(value, p.Schema, p.Filter, params, ex.Funcs)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		values, err := row.GetColumns(value, p.Schema, p.ProjectedColumns)
		if err != nil {
			return false, err
		}
		matched = append(matched, values)
		emitted++
		if !needsMaterialize && p.AllowEarlyTermination && p.Limit != nil && emitted >= *p.Limit {
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	if needsMaterialize {
		sortRows(matched, p.ProjectedColumns, p.OrderBy, p.Schema)
	}
	if p.Limit != nil && int64(len(matched)) > *p.Limit {
		matched = matched[:*p.Limit]
	}
	out := projectOutput(matched, p.ProjectedColumns, p.OutputColumns)
	return Result{Rows: sliceRows(p.OutputColumns, out)}, nil
}

// projectOutput narrows rows decoded with the scan's projected column set
// down to the select list. ORDER BY or filter columns the query never asked
// for are dropped here, after sorting used them.
func projectOutput(rows [][]sqlast.Value, projected, output []string) [][]sqlast.Value {
	if len(projected) == len(output) {
		same := true
		for i := range projected {
			if projected[i] != output[i] {
				same = false
				break
			}
		}
		if same {
			return rows
		}
	}
	idx := make([]int, len(output))
	pos := make(map[string]int, len(projected))
	for i, c := range projected {
		pos[c] = i
	}
	for i, c := range output {
		idx[i] = pos[c]
	}
	out := make([][]sqlast.Value, len(rows))
	for i, r := range rows {
		nr := make([]sqlast.Value, len(idx))
		for j, k := range idx {
			nr[j] = r[k]
		}
		out[i] = nr
	}
	return out
}

// execIndexScan treats the plan as a TableScan restricted to the indexed
// column's equality predicate: no secondary-index data structure is
// persisted, so the "index" here only narrows the filter, not the scan
// range.
func (ex *Executor) execIndexScan(tx Tx, p *planner.IndexScan, params []sqlast.Value) (Result, error) {
	eqFilter := &sqlast.BinaryExpr{
		Op:    sqlast.OpEq,
		Left:  &sqlast.ColumnRef{Name: p.Index.Column},
		Right: p.EqualsExpr,
	}
	filter := eqFilter
	if p.Filter != nil {
		filter = &sqlast.BinaryExpr{Op: sqlast.OpAnd, Left: eqFilter, Right: p.Filter}
	}
	return ex.execTableScan(tx, &planner.TableScan{
		Table:                 p.Table,
		Schema:                p.Schema,
		OutputColumns:         p.OutputColumns,
		ProjectedColumns:      p.ProjectedColumns,
		Filter:                filter,
		Limit:                 p.Limit,
		AllowEarlyTermination: p.Limit != nil,
	}, params)
}

// --- aggregates ---

// aggAccumulator tracks the running state for one AggregateCall across a
// filtered table scan. COUNT(*) counts every matching row unconditionally;
// every other aggregate ignores NULL column values, matching standard SQL
// aggregate semantics.
type aggAccumulator struct {
	call    planner.AggregateCall
	count   int64
	sumInt  int64
	sumReal float64
	sawReal bool
	best    sqlast.Value
	hasBest bool
}

func (a *aggAccumulator) add(values []sqlast.Value, colIndex map[string]int) error {
	if a.call.Star {
		a.count++
		return nil
	}
	idx, ok := colIndex[a.call.Column]
	if !ok {
		return dberr.NewSchemaError("no such column: %s", a.call.Column)
	}
	v := values[idx]
	if v.IsNull() {
		return nil
	}
	switch a.call.Func {
	case "COUNT":
		a.count++
	case "SUM", "AVG":
		switch v.Kind {
		case sqlast.KindInteger:
			a.sumInt += v.Int
			a.count++
		case sqlast.KindReal:
			a.sumReal += v.Real
			a.sawReal = true
			a.count++
		default:
			return dberr.NewTypeError("%s requires a numeric column", a.call.Func)
		}
	case "MIN":
		if !a.hasBest {
			a.best, a.hasBest = v, true
			return nil
		}
		if cmp, ok := sqlast.Compare(v, a.best); ok && cmp < 0 {
			a.best = v
		}
	case "MAX":
		if !a.hasBest {
			a.best, a.hasBest = v, true
			return nil
		}
		if cmp, ok := sqlast.Compare(v, a.best); ok && cmp > 0 {
			a.best = v
		}
	}
	return nil
}

func (a *aggAccumulator) result() sqlast.Value {
	switch a.call.Func {
	case "COUNT":
		return sqlast.Integer(a.count)
	case "SUM":
		if a.count == 0 {
			return sqlast.Null
		}
		if a.sawReal {
			return sqlast.Real(float64(a.sumInt) + a.sumReal)
		}
		return sqlast.Integer(a.sumInt)
	case "AVG":
		if a.count == 0 {
			return sqlast.Null
		}
		total := float64(a.sumInt) + a.sumReal
		return sqlast.Real(total / float64(a.count))
	case "MIN", "MAX":
		if !a.hasBest {
			return sqlast.Null
		}
		return a.best
	default:
		return sqlast.Null
	}
}

// execAggregateScan computes one output row over the whole table matching
// p.Filter, one value per p.Aggregates entry. The table is still scanned
// row by row (no persisted index to probe), but unlike a normal TableScan
// nothing is buffered beyond the running accumulators themselves.
func (ex *Executor) execAggregateScan(tx Tx, p *planner.TableScan, params []sqlast.Value) (Result, error) {
	start, end := scanRange(p.Table)
	colIndex := make(map[string]int, len(p.ProjectedColumns))
	for i, c := range p.ProjectedColumns {
		colIndex[c] = i
	}
	accs := make([]*aggAccumulator, len(p.Aggregates))
	for i, call := range p.Aggregates {
		accs[i] = &aggAccumulator{call: call}
	}
	labels := make([]string, len(p.Aggregates))
	for i, call := range p.Aggregates {
		labels[i] = call.Label
	}

	err := tx.ScanFunc(start, end, func(_, value []byte) (bool, error) {
		metrics.ScanRowsVisited.Inc()
		if p.Filter != nil {
			ok, err := row.MatchesCondition(value, p.Schema, p.Filter, params, ex.Funcs)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		values, err := row.GetColumns(value, p.Schema, p.ProjectedColumns)
		if err != nil {
			return false, err
		}
		for _, acc := range accs {
			if err := acc.add(values, colIndex); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	out := make([]sqlast.Value, len(accs))
	for i, acc := range accs {
		out[i] = acc.result()
	}
	return Result{Rows: sliceRows(labels, [][]sqlast.Value{out})}, nil
}

// --- sorting (materialize + sort for ORDER BY off primary-key order) ---

func sortRows(rows [][]sqlast.Value, columns []string, orderBy []sqlast.OrderByItem, schema *catalog.Schema) {
	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		colIndex[c] = i
	}
	keys := make([]struct {
		idx  int
		desc bool
	}, 0, len(orderBy))
	for _, ob := range orderBy {
		ref, ok := ob.Expr.(*sqlast.ColumnRef)
		if !ok {
			continue
		}
		if i, found := colIndex[ref.Name]; found {
			keys = append(keys, struct {
				idx  int
				desc bool
			}{i, ob.Desc})
		}
	}
	pkIdx, hasPK := colIndex[schema.PrimaryKey]
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareNullLeast(rows[i][k.idx], rows[j][k.idx])
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		if hasPK {
			return compareNullLeast(rows[i][pkIdx], rows[j][pkIdx]) < 0
		}
		return false
	})
}

// compareNullLeast orders NULL (and NaN) before every other value, then
// delegates to sqlast.Compare.
func compareNullLeast(a, b sqlast.Value) int {
	aNull := a.IsNull() || sqlast.IsNaN(a)
	bNull := b.IsNull() || sqlast.IsNaN(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}
	cmp, ok := sqlast.Compare(a, b)
	if !ok {
		return 0
	}
	return cmp
}

// --- VectorTopK ---

type topKItem struct {
	dist int // index into a stable ordinal for tie-breaking; unused beyond sort stability
	d    float64
	row  []sqlast.Value
}

// topKHeap is a bounded min-heap (by distance) used to keep the K best
// rows while scanning the whole table once. For "ascending is better"
// (EUCLIDEAN_DISTANCE) the heap keeps the K smallest by popping the
// largest when it overflows; for "descending is better" (similarity
// measures) it keeps the K largest by popping the smallest. Both cases
// are implemented as one heap whose less-function flips based on which
// end we evict from.
type topKHeap struct {
	items []topKItem
	// better orders rows by rank; Less inverts it so items[0] is the
	// worst-ranked row (the one to evict when the heap overflows).
	better func(a, b topKItem) bool // true if a ranks better than b
}

func (h *topKHeap) Len() int { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool {
	// container/heap is a min-heap over Less; we want items[0] to be the
	// worst-ranked item so Pop evicts it on overflow.
	return !h.better(h.items[i], h.items[j])
}
func (h *topKHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x any)    { h.items = append(h.items, x.(topKItem)) }
func (h *topKHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

func (ex *Executor) execVectorTopK(tx Tx, p *planner.VectorTopK, params []sqlast.Value) (Result, error) {
	queryVal, err := sqleval.Evaluate(p.QueryExpr, nil, params, ex.Funcs)
	if err != nil {
		return Result{}, err
	}
	if queryVal.Kind != sqlast.KindVector {
		return Result{}, dberr.NewTypeError("%s requires a vector literal as its second argument", p.DistanceFn)
	}
	query := queryVal.Vector

	// Ascending=true means smaller distance ranks better (final order is
	// ascending-by-distance); Ascending=false means larger ranks better.
	better := func(a, b topKItem) bool {
		if p.Ascending {
			return a.d < b.d
		}
		return a.d > b.d
	}
	h := &topKHeap{better: better}
	heap.Init(h)

	start, end := scanRange(p.Table)
	var ordinal int
	err = tx.ScanFunc(start, end, func(_, value []byte) (bool, error) {
		metrics.ScanRowsVisited.Inc()
		if p.AdditionalFilter != nil {
			ok, err := row.MatchesCondition(value, p.Schema, p.AdditionalFilter, params, ex.Funcs)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		vecVal, err := row.GetColumn(value, p.Schema, p.VectorColumn)
		if err != nil {
			return false, err
		}
		if vecVal.IsNull() || len(vecVal.Vector) != len(query) {
			return true, nil
		}
		dist, err := vectordist.Compute(p.DistanceFn, query, vecVal.Vector)
		if err != nil {
			return false, err
		}
		values, err := row.GetColumns(value, p.Schema, p.ProjectedColumns)
		if err != nil {
			return false, err
		}
		item := topKItem{dist: ordinal, d: dist, row: values}
		ordinal++
		if int64(h.Len()) < p.K {
			heap.Push(h, item)
		} else if h.Len() > 0 && better(item, h.items[0]) {
			heap.Pop(h)
			heap.Push(h, item)
		}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	items := make([]topKItem, len(h.items))
	copy(items, h.items)
	sort.Slice(items, func(i, j int) bool {
		if items[i].d == items[j].d {
			return items[i].dist < items[j].dist
		}
		if p.Ascending {
			return items[i].d < items[j].d
		}
		return items[i].d > items[j].d
	})
	collected := make([][]sqlast.Value, len(items))
	for i, it := range items {
		collected[i] = it.row
	}
	out := projectOutput(collected, p.ProjectedColumns, p.OutputColumns)
	return Result{Rows: sliceRows(p.OutputColumns, out)}, nil
}

// --- INSERT ---

func (ex *Executor) execInsert(tx Tx, p *planner.Insert, params []sqlast.Value) (Result, error) {
	columns := p.Columns
	if len(columns) == 0 {
		columns = make([]string, len(p.Schema.Columns))
		for i, c := range p.Schema.Columns {
			columns[i] = c.Name
		}
	}
	colPos := make(map[string]int, len(columns))
	for i, c := range columns {
		if p.Schema.ColumnIndex(c) < 0 {
			return Result{}, dberr.NewSchemaError("table %q has no column %q", p.Table, c)
		}
		colPos[c] = i
	}

	var affected int64
	for _, rowExprs := range p.Rows {
		if len(rowExprs) != len(columns) {
			return Result{}, dberr.NewSchemaError("table %q: expected %d values, got %d", p.Table, len(columns), len(rowExprs))
		}
		values := make([]sqlast.Value, len(p.Schema.Columns))
		for i := range values {
			values[i] = sqlast.Null
		}
		for _, col := range p.Schema.Columns {
			pos, given := colPos[col.Name]
			if !given {
				continue
			}
			v, err := sqleval.Evaluate(rowExprs[pos], nil, params, ex.Funcs)
			if err != nil {
				return Result{}, err
			}
			values[p.Schema.ColumnIndex(col.Name)] = v
		}

		pkIdx := p.Schema.ColumnIndex(p.Schema.PrimaryKey)
		pkVal := values[pkIdx]
		if pkVal.IsNull() {
			return Result{}, &dberr.ConstraintViolationError{Table: p.Table, Column: p.Schema.PrimaryKey, Kind: dberr.ConstraintNotNull}
		}
		key, err := keyenc.EncodePK(p.Table, pkVal)
		if err != nil {
			return Result{}, err
		}
		if _, exists, err := tx.Get(key); err != nil {
			return Result{}, err
		} else if exists {
			return Result{}, &dberr.ConstraintViolationError{Table: p.Table, Column: p.Schema.PrimaryKey, Kind: dberr.ConstraintPrimaryKey}
		}
		if err := checkUniqueConstraints(tx, p.Table, p.Schema, values, ""); err != nil {
			return Result{}, err
		}

		data, err := row.SerializeRow(values, p.Schema)
		if err != nil {
			return Result{}, err
		}
		if err := tx.Set(key, data); err != nil {
			return Result{}, err
		}
		affected++
	}
	return Result{RowsAffected: affected}, nil
}

// checkUniqueConstraints scans the whole table to enforce UNIQUE columns.
// Secondary indexes are not persisted (see execIndexScan), so this is a
// linear scan rather than an index probe; acceptable for the
// single-writer embedded engine this component targets. excludeKey, if
// non-empty, skips the row currently being updated.
func checkUniqueConstraints(tx Tx, table string, schema *catalog.Schema, values []sqlast.Value, excludeKey string) error {
	var uniqueCols []catalog.Column
	for _, c := range schema.Columns {
		if c.Unique && !c.PrimaryKey {
			uniqueCols = append(uniqueCols, c)
		}
	}
	if len(uniqueCols) == 0 {
		return nil
	}
	start, end := scanRange(table)
	var violation error
	_ = tx.ScanFunc(start, end, func(key, value []byte) (bool, error) {
		if excludeKey != "" && string(key) == excludeKey {
			return true, nil
		}
		for _, c := range uniqueCols {
			existing, err := row.GetColumn(value, schema, c.Name)
			if err != nil {
				return false, err
			}
			if sqlast.Equal(existing, values[schema.ColumnIndex(c.Name)]) {
				violation = &dberr.ConstraintViolationError{Table: table, Column: c.Name, Kind: dberr.ConstraintUnique}
				return false, nil
			}
		}
		return true, nil
	})
	return violation
}

// --- UPDATE ---

func (ex *Executor) execUpdate(tx Tx, p *planner.Update, params []sqlast.Value) (Result, error) {
	start, end := scanRange(p.Table)

	type match struct {
		key  []byte
		data []byte
	}
	var matches []match
	err := tx.ScanFunc(start, end, func(key, value []byte) (bool, error) {
		if p.Filter != nil {
			ok, err := row.MatchesCondition(value, p.Schema, p.Filter, params, ex.Funcs)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		matches = append(matches, match{key: append([]byte(nil), key...), data: append([]byte(nil), value...)})
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	pkIdx := p.Schema.ColumnIndex(p.Schema.PrimaryKey)
	var affected int64
	for _, m := range matches {
		values, err := row.DeserializeFull(m.data, p.Schema)
		if err != nil {
			return Result{}, err
		}
		accessor := row.Accessor(m.data, p.Schema)
		for _, assign := range p.Assignments {
			v, err := sqleval.Evaluate(assign.Value, accessor, params, ex.Funcs)
			if err != nil {
				return Result{}, err
			}
			idx := p.Schema.ColumnIndex(assign.Column)
			if idx < 0 {
				return Result{}, dberr.NewSchemaError("table %q has no column %q", p.Table, assign.Column)
			}
			values[idx] = v
		}

		newKey, err := keyenc.EncodePK(p.Table, values[pkIdx])
		if err != nil {
			return Result{}, err
		}
		pkChanged := string(newKey) != string(m.key)
		if pkChanged {
			if _, exists, err := tx.Get(newKey); err != nil {
				return Result{}, err
			} else if exists {
				return Result{}, &dberr.ConstraintViolationError{Table: p.Table, Column: p.Schema.PrimaryKey, Kind: dberr.ConstraintPrimaryKey}
			}
		}
		if err := checkUniqueConstraints(tx, p.Table, p.Schema, values, string(m.key)); err != nil {
			return Result{}, err
		}

		newData, err := row.SerializeRow(values, p.Schema)
		if err != nil {
			return Result{}, err
		}
		if pkChanged {
			if err := tx.Delete(m.key); err != nil {
				return Result{}, err
			}
		}
		if err := tx.Set(newKey, newData); err != nil {
			return Result{}, err
		}
		affected++
	}
	return Result{RowsAffected: affected}, nil
}

// --- DELETE ---

func (ex *Executor) execDelete(tx Tx, p *planner.Delete, params []sqlast.Value) (Result, error) {
	start, end := scanRange(p.Table)
	var keys [][]byte
	err := tx.ScanFunc(start, end, func(key, value []byte) (bool, error) {
		if p.Filter != nil {
			ok, err := row.MatchesCondition(value, p.Schema, p.Filter, params, ex.Funcs)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		keys = append(keys, append([]byte(nil), key...))
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return Result{}, err
		}
	}
	return Result{RowsAffected: int64(len(keys))}, nil
}

// --- DDL ---

func (ex *Executor) execCreateTable(tx Tx, cat *catalog.Catalog, p *planner.CreateTable) (Result, error) {
	if _, exists := cat.Table(p.Schema.Name); exists {
		if p.IfNotExists {
			return Result{Message: "table already exists"}, nil
		}
		return Result{}, dberr.NewSchemaError("table %q already exists", p.Schema.Name)
	}
	if err := tx.Set(catalog.SchemaKey(p.Schema.Name), catalog.SerializeSchema(p.Schema)); err != nil {
		return Result{}, err
	}
	cat.PutTable(p.Schema)
	cat.BumpVersion()
	return Result{Message: "table created"}, nil
}

func (ex *Executor) execDropTable(tx Tx, cat *catalog.Catalog, p *planner.DropTable) (Result, error) {
	if _, exists := cat.Table(p.Table); !exists {
		if p.IfExists {
			return Result{Message: "table does not exist"}, nil
		}
		return Result{}, dberr.NewSchemaError("no such table: %s", p.Table)
	}
	start, end := scanRange(p.Table)
	var keys [][]byte
	if err := tx.ScanFunc(start, end, func(key, _ []byte) (bool, error) {
		keys = append(keys, append([]byte(nil), key...))
		return true, nil
	}); err != nil {
		return Result{}, err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return Result{}, err
		}
	}
	if err := tx.Delete(catalog.SchemaKey(p.Table)); err != nil {
		return Result{}, err
	}
	cat.DropTable(p.Table)
	cat.BumpVersion()
	return Result{Message: "table dropped"}, nil
}

func (ex *Executor) execCreateIndex(tx Tx, cat *catalog.Catalog, p *planner.CreateIndex) (Result, error) {
	if _, exists := cat.Index(p.Index.Name); exists {
		return Result{}, dberr.NewSchemaError("index %q already exists", p.Index.Name)
	}
	if err := tx.Set(catalog.IndexKey(p.Index.Name), catalog.SerializeIndex(p.Index)); err != nil {
		return Result{}, err
	}
	cat.PutIndex(p.Index)
	cat.BumpVersion()
	return Result{Message: "index created"}, nil
}

func (ex *Executor) execDropIndex(tx Tx, cat *catalog.Catalog, p *planner.DropIndex) (Result, error) {
	if _, exists := cat.Index(p.Name); !exists {
		if p.IfExists {
			return Result{Message: "index does not exist"}, nil
		}
		return Result{}, dberr.NewSchemaError("no such index: %s", p.Name)
	}
	if err := tx.Delete(catalog.IndexKey(p.Name)); err != nil {
		return Result{}, err
	}
	cat.DropIndex(p.Name)
	cat.BumpVersion()
	return Result{Message: "index dropped"}, nil
}

func (ex *Executor) execCreateExtension(tx Tx, cat *catalog.Catalog, p *planner.CreateExtension) (Result, error) {
	if err := tx.Set(catalog.ExtensionKey(p.Name), []byte("1")); err != nil {
		return Result{}, err
	}
	cat.PutExtension(p.Name)
	cat.BumpVersion()
	return Result{Message: "extension enabled"}, nil
}

func (ex *Executor) execDropExtension(tx Tx, cat *catalog.Catalog, p *planner.DropExtension) (Result, error) {
	if !cat.HasExtension(p.Name) {
		if p.IfExists {
			return Result{Message: "extension not enabled"}, nil
		}
		return Result{}, dberr.NewSchemaError("extension %q is not enabled", p.Name)
	}
	if err := tx.Delete(catalog.ExtensionKey(p.Name)); err != nil {
		return Result{}, err
	}
	cat.DropExtension(p.Name)
	cat.BumpVersion()
	return Result{Message: "extension disabled"}, nil
}
