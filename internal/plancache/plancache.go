// Package plancache caches a SQL text's parsed statement and plan so a
// repeatedly-executed query skips lexing, parsing, and planning on every
// call. Entries are keyed on the raw SQL text and invalidated the moment
// the catalog's schema version moves past what they were planned against,
// so a CREATE/DROP never leaves a stale plan reachable.
package plancache

import (
	"sync"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/metrics"
	"github.com/minifish-org/tegdb-sub001/internal/planner"
	"github.com/minifish-org/tegdb-sub001/internal/sql/parser"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// Prepared is a cached statement: its parsed AST plus the plan computed
// against a particular catalog version. ParamCount lets a caller validate
// the argument list it is about to bind without re-parsing the text.
type Prepared struct {
	SQL          string
	Stmt         sqlast.Stmt
	Plan         planner.Plan
	SchemaVers   uint64
	ParamCount   int
}

// Cache is a SQL-text-keyed store of Prepared statements. The zero value
// is not usable; construct with New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Prepared
	cap     int
	order   []string // insertion order, for a simple FIFO eviction once cap is exceeded
}

// New returns an empty Cache that holds at most capacity entries. A
// non-positive capacity means unbounded.
func New(capacity int) *Cache {
	return &Cache{entries: make(map[string]*Prepared), cap: capacity}
}

// Get looks up sql's prepared plan, re-planning it if absent or if cat's
// schema version has advanced since it was cached. Invalidation is
// whole-cache on any version bump rather than per-table dependency
// tracking.
func (c *Cache) Get(sql string, cat *catalog.Catalog) (*Prepared, error) {
	c.mu.Lock()
	if p, ok := c.entries[sql]; ok && p.SchemaVers == cat.Version() {
		c.mu.Unlock()
		metrics.PlanCacheHits.Inc()
		return p, nil
	}
	c.mu.Unlock()

	metrics.PlanCacheMisses.Inc()
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	plan, err := planner.BuildPlan(stmt, cat)
	if err != nil {
		return nil, err
	}
	p := &Prepared{
		SQL:        sql,
		Stmt:       stmt,
		Plan:       plan,
		SchemaVers: cat.Version(),
		ParamCount: countParams(stmt),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[sql]; !exists {
		c.order = append(c.order, sql)
	}
	c.entries[sql] = p
	c.evictLocked()
	return p, nil
}

// Invalidate drops every cached entry. Called by the facade after any
// successful DDL commit, in addition to the version check Get already
// performs, so a long-idle Cache doesn't hold stale ASTs referencing a
// dropped table's *catalog.Schema pointer.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Prepared)
	c.order = nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked() {
	if c.cap <= 0 {
		return
	}
	for len(c.order) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// countParams walks stmt's expression tree and returns the highest
// ParamExpr index, so a caller can validate `len(args)` before binding
// without re-parsing.
func countParams(stmt sqlast.Stmt) int {
	max := 0
	see := func(n int) {
		if n > max {
			max = n
		}
	}
	var walkExpr func(sqlast.Expr)
	walkExpr = func(e sqlast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *sqlast.ParamExpr:
			see(int(n.Index))
		case *sqlast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *sqlast.UnaryExpr:
			walkExpr(n.Operand)
		case *sqlast.BetweenExpr:
			walkExpr(n.Operand)
			walkExpr(n.Low)
			walkExpr(n.High)
		case *sqlast.FuncCall:
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *sqlast.VectorLiteral:
			for _, el := range n.Elems {
				walkExpr(el)
			}
		}
	}
	switch s := stmt.(type) {
	case *sqlast.SelectStmt:
		for _, c := range s.Columns {
			walkExpr(c)
		}
		walkExpr(s.Where)
		for _, ob := range s.OrderBy {
			walkExpr(ob.Expr)
		}
	case *sqlast.InsertStmt:
		for _, row := range s.Rows {
			for _, v := range row {
				walkExpr(v)
			}
		}
	case *sqlast.UpdateStmt:
		for _, a := range s.Assignments {
			walkExpr(a.Value)
		}
		walkExpr(s.Where)
	case *sqlast.DeleteStmt:
		walkExpr(s.Where)
	}
	return max
}
