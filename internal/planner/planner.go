package planner

import (
	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/vectordist"
)

// BuildPlan builds an execution plan for stmt against cat, applying rewrite
// rules in order: constant folding, predicate pushdown, primary-key
// detection, column projection, limit pushdown, and vector-top-k
// recognition. Planning is a pure function of (stmt, cat); it never
// touches storage.
func BuildPlan(stmt sqlast.Stmt, cat *catalog.Catalog) (Plan, error) {
	switch s := stmt.(type) {
	case *sqlast.SelectStmt:
		return planSelect(s, cat)
	case *sqlast.InsertStmt:
		return planInsert(s, cat)
	case *sqlast.UpdateStmt:
		return planUpdate(s, cat)
	case *sqlast.DeleteStmt:
		return planDelete(s, cat)
	case *sqlast.CreateTableStmt:
		return planCreateTable(s)
	case *sqlast.DropTableStmt:
		return &DropTable{Table: s.Table, IfExists: s.IfExists}, nil
	case *sqlast.CreateIndexStmt:
		return planCreateIndex(s, cat)
	case *sqlast.DropIndexStmt:
		return &DropIndex{Name: s.Name, IfExists: s.IfExists}, nil
	case *sqlast.CreateExtensionStmt:
		return &CreateExtension{Name: s.Name}, nil
	case *sqlast.DropExtensionStmt:
		return &DropExtension{Name: s.Name, IfExists: s.IfExists}, nil
	case *sqlast.BeginStmt:
		return &Begin{}, nil
	case *sqlast.CommitStmt:
		return &Commit{}, nil
	case *sqlast.RollbackStmt:
		return &Rollback{}, nil
	default:
		return nil, dberr.NewSchemaError("planner: unsupported statement type %T", stmt)
	}
}

func lookupTable(cat *catalog.Catalog, name string) (*catalog.Schema, error) {
	s, ok := cat.Table(name)
	if !ok {
		return nil, dberr.NewSchemaError("no such table: %s", name)
	}
	return s, nil
}

// --- constant folding ---

// foldConstants recursively evaluates scalar sub-expressions with no
// column reference, parameter, or star ("2 + 3" becomes the literal 5), so
// a predicate like "score > 1 + 1" reaches the scan as a plain comparison
// against a literal.
func foldConstants(e sqlast.Expr) sqlast.Expr {
	switch n := e.(type) {
	case *sqlast.BinaryExpr:
		left := foldConstants(n.Left)
		right := foldConstants(n.Right)
		folded := &sqlast.BinaryExpr{Op: n.Op, Left: left, Right: right}
		if lit, ok := asArithLiteral(folded); ok {
			return lit
		}
		return folded
	case *sqlast.UnaryExpr:
		operand := foldConstants(n.Operand)
		folded := &sqlast.UnaryExpr{Op: n.Op, Operand: operand}
		if lit, ok := asArithLiteral(folded); ok {
			return lit
		}
		return folded
	case *sqlast.BetweenExpr:
		return &sqlast.BetweenExpr{
			Operand: foldConstants(n.Operand),
			Low:     foldConstants(n.Low),
			High:    foldConstants(n.High),
			Not:     n.Not,
		}
	case *sqlast.FuncCall:
		args := make([]sqlast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = foldConstants(a)
		}
		return &sqlast.FuncCall{Name: n.Name, Args: args}
	case *sqlast.VectorLiteral:
		elems := make([]sqlast.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = foldConstants(el)
		}
		return &sqlast.VectorLiteral{Elems: elems}
	default:
		return e
	}
}

func isLiteral(e sqlast.Expr) (sqlast.Value, bool) {
	if lit, ok := e.(*sqlast.Literal); ok {
		return lit.Value, true
	}
	return sqlast.Null, false
}

// asArithLiteral evaluates an already-folded arithmetic expression or
// numeric negation whose operands are all literals, with no row/parameter
// context needed; comparisons are not folded (foldBinary rejects them). It deliberately only handles the pure-literal case;
// anything touching a column or parameter is left for execution time.
func asArithLiteral(e sqlast.Expr) (*sqlast.Literal, bool) {
	switch n := e.(type) {
	case *sqlast.BinaryExpr:
		lv, lok := isLiteral(n.Left)
		rv, rok := isLiteral(n.Right)
		if !lok || !rok {
			return nil, false
		}
		v, err := foldBinary(n.Op, lv, rv)
		if err != nil {
			return nil, false
		}
		return &sqlast.Literal{Value: v}, true
	case *sqlast.UnaryExpr:
		v, ok := isLiteral(n.Operand)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case sqlast.OpNeg:
			switch v.Kind {
			case sqlast.KindInteger:
				return &sqlast.Literal{Value: sqlast.Integer(-v.Int)}, true
			case sqlast.KindReal:
				return &sqlast.Literal{Value: sqlast.Real(-v.Real)}, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func foldBinary(op sqlast.BinaryOp, l, r sqlast.Value) (sqlast.Value, error) {
	// Only fold pure arithmetic at plan time; comparisons stay as
	// expressions so predicate pushdown still has something to attach to
	// the scan.
	if l.IsNull() || r.IsNull() {
		return sqlast.Null, dberr.NewTypeError("cannot fold an expression involving NULL at plan time")
	}
	if l.Kind == sqlast.KindInteger && r.Kind == sqlast.KindInteger {
		switch op {
		case sqlast.OpAdd:
			return sqlast.Integer(l.Int + r.Int), nil
		case sqlast.OpSub:
			return sqlast.Integer(l.Int - r.Int), nil
		case sqlast.OpMul:
			return sqlast.Integer(l.Int * r.Int), nil
		case sqlast.OpDiv:
			if r.Int == 0 {
				return sqlast.Null, dberr.NewTypeError("division by zero")
			}
			return sqlast.Integer(l.Int / r.Int), nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return sqlast.Null, dberr.NewTypeError("cannot fold non-numeric operands at plan time")
	}
	switch op {
	case sqlast.OpAdd:
		return sqlast.Real(lf + rf), nil
	case sqlast.OpSub:
		return sqlast.Real(lf - rf), nil
	case sqlast.OpMul:
		return sqlast.Real(lf * rf), nil
	case sqlast.OpDiv:
		return sqlast.Real(lf / rf), nil
	default:
		return sqlast.Null, dberr.NewTypeError("unsupported operator in constant folding")
	}
}

func asFloat(v sqlast.Value) (float64, bool) {
	switch v.Kind {
	case sqlast.KindInteger:
		return float64(v.Int), true
	case sqlast.KindReal:
		return v.Real, true
	default:
		return 0, false
	}
}

// --- predicate pushdown ---

// splitConjuncts splits e on its top-level AND operators so the scan gets
// a slice of independent conjuncts instead of one monolithic expression.
func splitConjuncts(e sqlast.Expr) []sqlast.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*sqlast.BinaryExpr); ok && b.Op == sqlast.OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []sqlast.Expr{e}
}

func combineConjuncts(exprs []sqlast.Expr) sqlast.Expr {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &sqlast.BinaryExpr{Op: sqlast.OpAnd, Left: out, Right: e}
	}
	return out
}

// findPKEquality looks among conjuncts for "pkColumn = <expr>" or
// "<expr> = pkColumn" and returns the matching conjunct's index and the
// other side's expression. The operand must be row-independent (a literal,
// a parameter, or an expression over them): an equality against another
// column cannot be resolved to a single storage key before execution.
func findPKEquality(conjuncts []sqlast.Expr, pkColumn string) (int, sqlast.Expr, bool) {
	for i, c := range conjuncts {
		b, ok := c.(*sqlast.BinaryExpr)
		if !ok || b.Op != sqlast.OpEq {
			continue
		}
		if ref, ok := b.Left.(*sqlast.ColumnRef); ok && ref.Name == pkColumn && rowIndependent(b.Right) {
			return i, b.Right, true
		}
		if ref, ok := b.Right.(*sqlast.ColumnRef); ok && ref.Name == pkColumn && rowIndependent(b.Left) {
			return i, b.Left, true
		}
	}
	return -1, nil, false
}

// rowIndependent reports whether e references no column, so it can be
// evaluated once before the scan starts.
func rowIndependent(e sqlast.Expr) bool {
	set := make(map[string]bool)
	columnsIn(e, set)
	return len(set) == 0
}

// findIndexEquality is the secondary-index analogue of findPKEquality.
func findIndexEquality(conjuncts []sqlast.Expr, column string) (int, sqlast.Expr, bool) {
	return findPKEquality(conjuncts, column)
}

// --- column reference collection ---

func columnsIn(e sqlast.Expr, set map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		set[n.Name] = true
	case *sqlast.BinaryExpr:
		columnsIn(n.Left, set)
		columnsIn(n.Right, set)
	case *sqlast.UnaryExpr:
		columnsIn(n.Operand, set)
	case *sqlast.BetweenExpr:
		columnsIn(n.Operand, set)
		columnsIn(n.Low, set)
		columnsIn(n.High, set)
	case *sqlast.FuncCall:
		for _, a := range n.Args {
			columnsIn(a, set)
		}
	case *sqlast.VectorLiteral:
		for _, el := range n.Elems {
			columnsIn(el, set)
		}
	}
}

// outputColumns resolves the select list to the column names a query
// returns, in select-list order. Select items must be bare columns or "*";
// computed select expressions are not supported.
func outputColumns(schema *catalog.Schema, items []sqlast.Expr) ([]string, error) {
	var names []string
	for _, item := range items {
		switch it := item.(type) {
		case *sqlast.StarExpr:
			for _, c := range schema.Columns {
				names = append(names, c.Name)
			}
		case *sqlast.ColumnRef:
			if _, ok := schema.Column(it.Name); !ok {
				return nil, dberr.NewSchemaError("no such column: %s", it.Name)
			}
			names = append(names, it.Name)
		default:
			return nil, dberr.NewSchemaError("select items must be column names, *, or aggregate calls")
		}
	}
	return names, nil
}

// projectedColumns computes the union of columns referenced by the select
// list, the filter, and the order-by clause: everything the scan has to
// decode per row. A bare "*" select item expands to every schema column.
func projectedColumns(schema *catalog.Schema, items []sqlast.Expr, filter sqlast.Expr, orderBy []sqlast.OrderByItem) []string {
	set := make(map[string]bool)
	star := false
	for _, item := range items {
		if _, ok := item.(*sqlast.StarExpr); ok {
			star = true
			continue
		}
		columnsIn(item, set)
	}
	columnsIn(filter, set)
	for _, ob := range orderBy {
		columnsIn(ob.Expr, set)
	}
	if star {
		names := make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			names[i] = c.Name
		}
		return names
	}
	names := make([]string, 0, len(set))
	for _, c := range schema.Columns {
		if set[c.Name] {
			names = append(names, c.Name)
		}
	}
	return names
}

// orderMatchesPKAscending reports whether orderBy is exactly "ORDER BY
// <pk> ASC" (or empty), the condition under which limit pushdown can rely
// on the scan's natural key order instead of a materialize-then-sort.
func orderMatchesPKAscending(schema *catalog.Schema, orderBy []sqlast.OrderByItem) bool {
	if len(orderBy) == 0 {
		return true
	}
	if len(orderBy) != 1 || orderBy[0].Desc {
		return false
	}
	ref, ok := orderBy[0].Expr.(*sqlast.ColumnRef)
	return ok && ref.Name == schema.PrimaryKey
}

// --- aggregate recognition ---

var aggregateFuncNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// classifyAggregates reports the aggregate calls among items and whether
// items is an aggregate-only select list. A select list mixing aggregate
// calls with plain columns has no GROUP BY to make sense of, so it is
// rejected; only "aggregate over the whole filtered table" is supported.
func classifyAggregates(schema *catalog.Schema, items []sqlast.Expr) ([]AggregateCall, bool, error) {
	var calls []AggregateCall
	var plain int
	for _, item := range items {
		fc, ok := item.(*sqlast.FuncCall)
		if !ok || !aggregateFuncNames[fc.Name] {
			plain++
			continue
		}
		if len(fc.Args) != 1 {
			return nil, false, dberr.NewSchemaError("%s takes exactly one argument", fc.Name)
		}
		call := AggregateCall{Func: fc.Name}
		switch arg := fc.Args[0].(type) {
		case *sqlast.StarExpr:
			if fc.Name != "COUNT" {
				return nil, false, dberr.NewSchemaError("%s(*) is not supported; only COUNT(*) is", fc.Name)
			}
			call.Star = true
			call.Label = fc.Name + "(*)"
		case *sqlast.ColumnRef:
			if _, found := schema.Column(arg.Name); !found {
				return nil, false, dberr.NewSchemaError("no such column: %s", arg.Name)
			}
			call.Column = arg.Name
			call.Label = fc.Name + "(" + arg.Name + ")"
		default:
			return nil, false, dberr.NewSchemaError("%s argument must be a column or *", fc.Name)
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil, false, nil
	}
	if plain != 0 {
		return nil, false, dberr.NewSchemaError("cannot mix aggregate and non-aggregate select items without GROUP BY")
	}
	return calls, true, nil
}

// --- vector top-k recognition ---

func vectorTopKCandidate(orderBy []sqlast.OrderByItem, limit *int64) (*sqlast.FuncCall, bool, bool) {
	if limit == nil || len(orderBy) != 1 {
		return nil, false, false
	}
	call, ok := orderBy[0].Expr.(*sqlast.FuncCall)
	if !ok || len(call.Args) != 2 {
		return nil, false, false
	}
	if !vectordist.IsDistanceFunction(call.Name) {
		return nil, false, false
	}
	return call, orderBy[0].Desc, true
}

// --- SELECT ---

func planSelect(s *sqlast.SelectStmt, cat *catalog.Catalog) (Plan, error) {
	schema, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}

	where := foldConstants(s.Where)
	items := make([]sqlast.Expr, len(s.Columns))
	for i, it := range s.Columns {
		items[i] = foldConstants(it)
	}
	orderBy := make([]sqlast.OrderByItem, len(s.OrderBy))
	for i, ob := range s.OrderBy {
		orderBy[i] = sqlast.OrderByItem{Expr: foldConstants(ob.Expr), Desc: ob.Desc}
	}

	// Aggregate-only select lists bypass every other rewrite rule: the
	// result is always exactly one row, computed over the whole
	// (filtered) table, so PK/index optimizations, ORDER BY, and LIMIT
	// are not meaningful here.
	if aggs, isAgg, err := classifyAggregates(schema, items); err != nil {
		return nil, err
	} else if isAgg {
		proj := projectedColumns(schema, items, where, nil)
		return &TableScan{
			Table:            s.Table,
			Schema:           schema,
			ProjectedColumns: proj,
			Filter:           where,
			Aggregates:       aggs,
		}, nil
	}

	out, err := outputColumns(schema, items)
	if err != nil {
		return nil, err
	}

	// Rule 6: vector-top-k recognition happens before limit pushdown.
	if call, desc, ok := vectorTopKCandidate(orderBy, s.Limit); ok {
		colRef, isCol := call.Args[0].(*sqlast.ColumnRef)
		if isCol && rowIndependent(call.Args[1]) {
			if col, found := schema.Column(colRef.Name); found && col.Type.Kind == sqlast.TypeVector {
				proj := projectedColumns(schema, items, where, nil)
				return &VectorTopK{
					Table:            s.Table,
					Schema:           schema,
					DistanceFn:       call.Name,
					VectorColumn:     colRef.Name,
					QueryExpr:        call.Args[1],
					K:                *s.Limit,
					Ascending:        !desc,
					OutputColumns:    out,
					ProjectedColumns: proj,
					AdditionalFilter: where,
				}, nil
			}
		}
	}

	conjuncts := splitConjuncts(where)

	// Rule 3: primary-key detection. ORDER BY is irrelevant here: the
	// lookup yields at most one row.
	if schema.PrimaryKey != "" {
		if idx, pkExpr, found := findPKEquality(conjuncts, schema.PrimaryKey); found {
			rest := append(append([]sqlast.Expr{}, conjuncts[:idx]...), conjuncts[idx+1:]...)
			proj := projectedColumns(schema, items, combineConjuncts(rest), nil)
			return &PrimaryKeyLookup{
				Table:            s.Table,
				Schema:           schema,
				PKExpr:           pkExpr,
				OutputColumns:    out,
				ProjectedColumns: proj,
				AdditionalFilter: combineConjuncts(rest),
			}, nil
		}
	}

	// Secondary index applicability: an equality predicate on an indexed
	// column with no usable PK equality, and no ORDER BY the index-driven
	// range could violate.
	if orderMatchesPKAscending(schema, orderBy) {
		for _, ix := range cat.IndexesForTable(s.Table) {
			if idx, eqExpr, found := findIndexEquality(conjuncts, ix.Column); found {
				rest := append(append([]sqlast.Expr{}, conjuncts[:idx]...), conjuncts[idx+1:]...)
				proj := projectedColumns(schema, items, combineConjuncts(rest), orderBy)
				return &IndexScan{
					IndexName:        ix.Name,
					Index:            ix,
					Table:            s.Table,
					Schema:           schema,
					EqualsExpr:       eqExpr,
					OutputColumns:    out,
					ProjectedColumns: proj,
					Filter:           combineConjuncts(rest),
					Limit:            s.Limit,
				}, nil
			}
		}
	}

	proj := projectedColumns(schema, items, where, orderBy)

	// Rule 5: limit pushdown.
	allowEarly := s.Limit != nil && orderMatchesPKAscending(schema, orderBy)
	var effectiveOrderBy []sqlast.OrderByItem
	if !orderMatchesPKAscending(schema, orderBy) {
		effectiveOrderBy = orderBy
	}

	return &TableScan{
		Table:                 s.Table,
		Schema:                schema,
		OutputColumns:         out,
		ProjectedColumns:      proj,
		Filter:                where,
		OrderBy:               effectiveOrderBy,
		Limit:                 s.Limit,
		AllowEarlyTermination: allowEarly,
	}, nil
}

// --- DML ---

func planInsert(s *sqlast.InsertStmt, cat *catalog.Catalog) (Plan, error) {
	schema, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}
	return &Insert{Table: s.Table, Schema: schema, Columns: s.Columns, Rows: s.Rows}, nil
}

func planUpdate(s *sqlast.UpdateStmt, cat *catalog.Catalog) (Plan, error) {
	schema, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}
	return &Update{Table: s.Table, Schema: schema, Assignments: s.Assignments, Filter: foldConstants(s.Where)}, nil
}

func planDelete(s *sqlast.DeleteStmt, cat *catalog.Catalog) (Plan, error) {
	schema, err := lookupTable(cat, s.Table)
	if err != nil {
		return nil, err
	}
	return &Delete{Table: s.Table, Schema: schema, Filter: foldConstants(s.Where)}, nil
}

// --- DDL ---

func planCreateTable(s *sqlast.CreateTableStmt) (Plan, error) {
	schema := &catalog.Schema{Name: s.Table}
	for _, cd := range s.Columns {
		col := catalog.Column{Name: cd.Name, Type: cd.Type}
		for _, c := range cd.Constraints {
			switch c {
			case sqlast.ConstraintPrimaryKey:
				col.PrimaryKey = true
				if schema.PrimaryKey != "" && schema.PrimaryKey != col.Name {
					return nil, dberr.NewSchemaError("composite primary keys are not supported (table %s)", s.Table)
				}
				schema.PrimaryKey = col.Name
			case sqlast.ConstraintNotNull:
				col.NotNull = true
			case sqlast.ConstraintUnique:
				col.Unique = true
			}
		}
		schema.Columns = append(schema.Columns, col)
	}
	if schema.PrimaryKey == "" {
		return nil, dberr.NewSchemaError("table %s must declare exactly one PRIMARY KEY column", s.Table)
	}
	if err := catalog.ComputeLayout(schema); err != nil {
		return nil, err
	}
	return &CreateTable{Schema: schema, IfNotExists: s.IfNotExists}, nil
}

func planCreateIndex(s *sqlast.CreateIndexStmt, cat *catalog.Catalog) (Plan, error) {
	if _, err := lookupTable(cat, s.Table); err != nil {
		return nil, err
	}
	return &CreateIndex{Index: &catalog.Index{Name: s.Name, Table: s.Table, Column: s.Column, Kind: s.Using}}, nil
}
