package row

import (
	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/sqleval"
)

// accessor adapts a serialized row to sqleval.RowAccessor, decoding each
// column lazily and only once per distinct name referenced by a predicate.
type accessor struct {
	data   []byte
	schema *catalog.Schema
	cache  map[string]sqlast.Value
}

func (a *accessor) Column(name string) (sqlast.Value, error) {
	if v, ok := a.cache[name]; ok {
		return v, nil
	}
	v, err := GetColumn(a.data, a.schema, name)
	if err != nil {
		return sqlast.Null, err
	}
	if a.cache == nil {
		a.cache = make(map[string]sqlast.Value)
	}
	a.cache[name] = v
	return v, nil
}

// Accessor returns an sqleval.RowAccessor over a serialized row, for callers
// (the executor's projection/ORDER BY evaluation) that need to evaluate more
// than one expression against the same row.
func Accessor(data []byte, schema *catalog.Schema) sqleval.RowAccessor {
	return &accessor{data: data, schema: schema}
}

// MatchesCondition reports whether cond evaluates truthy against data,
// decoding only the columns the condition actually references.
func MatchesCondition(data []byte, schema *catalog.Schema, cond sqlast.Expr, params []sqlast.Value, funcs sqleval.FunctionResolver) (bool, error) {
	if cond == nil {
		return true, nil
	}
	v, err := sqleval.Evaluate(cond, Accessor(data, schema), params, funcs)
	if err != nil {
		return false, err
	}
	return v.Kind == sqlast.KindInteger && v.Int != 0, nil
}
