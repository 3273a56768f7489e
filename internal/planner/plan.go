// Package planner turns a parsed sqlast.Stmt plus a catalog snapshot into a
// Plan: a tagged structure describing what the executor must do without
// prescribing how to iterate. Each plan variant carries exactly the fields
// its algorithm needs.
package planner

import (
	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// Plan is implemented by every execution plan variant.
type Plan interface{ planNode() }

// PrimaryKeyLookup is chosen when the WHERE clause resolves to an equality
// on the table's primary-key column, optionally ANDed with further
// predicates. PKExpr is evaluated at execution time (it may reference a
// parameter), not at plan time.
type PrimaryKeyLookup struct {
	Table            string
	Schema           *catalog.Schema
	PKExpr           sqlast.Expr
	OutputColumns    []string // select-list columns, in select order
	ProjectedColumns []string // OutputColumns plus filter columns, schema order
	AdditionalFilter sqlast.Expr
}

// TableScan is a full primary-key-ordered scan of a table. OutputColumns is
// what the caller receives; ProjectedColumns is the wider set the scan must
// decode, adding any column the filter or ORDER BY touches.
type TableScan struct {
	Table                 string
	Schema                *catalog.Schema
	OutputColumns         []string
	ProjectedColumns      []string
	Filter                sqlast.Expr
	OrderBy               []sqlast.OrderByItem
	Limit                 *int64
	AllowEarlyTermination bool

	// Aggregates, when non-empty, turns this scan into a whole-table
	// aggregation: the executor emits exactly one output row holding one
	// value per AggregateCall instead of projecting per-row columns.
	// OrderBy/Limit are not meaningful alongside Aggregates and are left
	// unset by the planner in that case.
	Aggregates []AggregateCall
}

// AggregateCall is one aggregate function in an aggregate-only select
// list (e.g. COUNT(*), SUM(score)). There is no GROUP BY, so a select
// list is either all plain columns or all aggregate calls over the whole
// (filtered) table.
type AggregateCall struct {
	Func   string // COUNT, SUM, AVG, MIN, MAX
	Column string // empty when Star is true
	Star   bool
	Label  string // output column name, e.g. "COUNT(*)"
}

// IndexScan is used when a secondary index is applicable. No persistent
// secondary-index representation exists in this engine; the executor
// treats IndexScan as a TableScan restricted to the indexed column's
// equality predicate.
type IndexScan struct {
	IndexName        string
	Index            *catalog.Index
	Table            string
	Schema           *catalog.Schema
	EqualsExpr       sqlast.Expr // the indexed column's equality operand
	OutputColumns    []string
	ProjectedColumns []string
	Filter           sqlast.Expr
	Limit            *int64
}

// VectorTopK is emitted when the planner sees
// ORDER BY <dist_fn>(<vec_col>, <literal>) [ASC|DESC] LIMIT k.
type VectorTopK struct {
	Table            string
	Schema           *catalog.Schema
	DistanceFn       string
	VectorColumn     string
	QueryExpr        sqlast.Expr
	K                int64
	Ascending        bool
	OutputColumns    []string
	ProjectedColumns []string
	AdditionalFilter sqlast.Expr
}

// Insert writes one or more rows into Table.
type Insert struct {
	Table   string
	Schema  *catalog.Schema
	Columns []string // explicit column list; nil means schema order
	Rows    [][]sqlast.Expr
}

// Update evaluates Assignments against every row matching Filter.
type Update struct {
	Table       string
	Schema      *catalog.Schema
	Assignments []sqlast.Assignment
	Filter      sqlast.Expr
}

// Delete removes every row matching Filter.
type Delete struct {
	Table  string
	Schema *catalog.Schema
	Filter sqlast.Expr
}

// CreateTable registers a new table schema.
type CreateTable struct {
	Schema      *catalog.Schema
	IfNotExists bool
}

// DropTable removes a table schema.
type DropTable struct {
	Table    string
	IfExists bool
}

// CreateIndex registers a new secondary index.
type CreateIndex struct {
	Index *catalog.Index
}

// DropIndex removes a secondary index.
type DropIndex struct {
	Name     string
	IfExists bool
}

// CreateExtension enables a named extension.
type CreateExtension struct{ Name string }

// DropExtension disables a named extension.
type DropExtension struct {
	Name     string
	IfExists bool
}

// Begin/Commit/Rollback are produced so planning stays a total function
// over statements, even though the Database facade intercepts transaction
// control before a plan ever reaches the executor.
type Begin struct{}
type Commit struct{}
type Rollback struct{}

func (*PrimaryKeyLookup) planNode() {}
func (*TableScan) planNode()        {}
func (*IndexScan) planNode()        {}
func (*VectorTopK) planNode()       {}
func (*Insert) planNode()           {}
func (*Update) planNode()           {}
func (*Delete) planNode()           {}
func (*CreateTable) planNode()      {}
func (*DropTable) planNode()        {}
func (*CreateIndex) planNode()      {}
func (*DropIndex) planNode()        {}
func (*CreateExtension) planNode()  {}
func (*DropExtension) planNode()    {}
func (*Begin) planNode()            {}
func (*Commit) planNode()           {}
func (*Rollback) planNode()         {}
