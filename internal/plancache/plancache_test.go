package plancache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/planner"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

func testCatalog() *catalog.Catalog {
	schema := &catalog.Schema{
		Name:       "t",
		PrimaryKey: "id",
		Columns: []catalog.Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
		},
	}
	_ = catalog.ComputeLayout(schema)
	cat := catalog.NewCatalog()
	cat.PutTable(schema)
	return cat
}

func TestCacheReusesEntryAcrossCalls(t *testing.T) {
	cat := testCatalog()
	cache := New(8)

	p1, err := cache.Get("SELECT id FROM t WHERE id = 1", cat)
	require.NoError(t, err)
	p2, err := cache.Get("SELECT id FROM t WHERE id = 1", cat)
	require.NoError(t, err)

	assert.Same(t, p1, p2, "identical SQL text should return the same cached *Prepared")
	assert.Equal(t, 1, cache.Len())
}

func TestCacheInvalidatesOnSchemaVersionBump(t *testing.T) {
	cat := testCatalog()
	cache := New(8)

	p1, err := cache.Get("SELECT id FROM t WHERE id = 1", cat)
	require.NoError(t, err)

	cat.BumpVersion()
	p2, err := cache.Get("SELECT id FROM t WHERE id = 1", cat)
	require.NoError(t, err)

	assert.NotSame(t, p1, p2, "a schema version bump should force re-planning")
}

func TestCacheExplicitInvalidate(t *testing.T) {
	cat := testCatalog()
	cache := New(8)
	_, err := cache.Get("SELECT id FROM t", cat)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEvictsOldestBeyondCapacity(t *testing.T) {
	cat := testCatalog()
	cache := New(2)

	_, err := cache.Get("SELECT id FROM t WHERE id = 1", cat)
	require.NoError(t, err)
	_, err = cache.Get("SELECT id FROM t WHERE id = 2", cat)
	require.NoError(t, err)
	_, err = cache.Get("SELECT id FROM t WHERE id = 3", cat)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
}

func TestCacheParamCount(t *testing.T) {
	cat := testCatalog()
	cache := New(8)
	p, err := cache.Get("SELECT id FROM t WHERE id = ?1", cat)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ParamCount)
	assert.IsType(t, &planner.PrimaryKeyLookup{}, p.Plan)
}

func TestCachePropagatesParseError(t *testing.T) {
	cat := testCatalog()
	cache := New(8)
	_, err := cache.Get("SELECT FROM", cat)
	assert.Error(t, err)
}
