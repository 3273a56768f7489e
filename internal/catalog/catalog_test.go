package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

func TestCatalogPutTableAndClone(t *testing.T) {
	cat := NewCatalog()
	schema := &Schema{Name: "t", PrimaryKey: "id", Columns: []Column{{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true}}}
	cat.PutTable(schema)

	clone := cat.Clone()
	clone.DropTable("t")

	_, ok := cat.Table("t")
	assert.True(t, ok, "dropping from the clone must not affect the original")
	_, ok = clone.Table("t")
	assert.False(t, ok)
}

func TestCatalogVersionBump(t *testing.T) {
	cat := NewCatalog()
	assert.EqualValues(t, 0, cat.Version())
	cat.BumpVersion()
	assert.EqualValues(t, 1, cat.Version())
}

func TestCatalogIndexLookups(t *testing.T) {
	cat := NewCatalog()
	ix := &Index{Name: "idx_email", Table: "users", Column: "email"}
	cat.PutIndex(ix)

	got, ok := cat.IndexForColumn("users", "email")
	require.True(t, ok)
	assert.Equal(t, "idx_email", got.Name)

	_, ok = cat.IndexForColumn("users", "name")
	assert.False(t, ok)

	cat.DropIndex("idx_email")
	_, ok = cat.Index("idx_email")
	assert.False(t, ok)
}

func TestCatalogExtensions(t *testing.T) {
	cat := NewCatalog()
	assert.False(t, cat.HasExtension("vector"))
	cat.PutExtension("vector")
	assert.True(t, cat.HasExtension("vector"))
	cat.DropExtension("vector")
	assert.False(t, cat.HasExtension("vector"))
}

func TestComputeLayoutFixedWidthColumns(t *testing.T) {
	schema := &Schema{
		Name:       "t",
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
			{Name: "name", Type: sqlast.ColumnType{Kind: sqlast.TypeText, Len: 16}},
			{Name: "embedding", Type: sqlast.ColumnType{Kind: sqlast.TypeVector, Dim: 4}, NotNull: true},
		},
	}
	require.NoError(t, ComputeLayout(schema))

	idCol, _ := schema.Column("id")
	assert.False(t, idCol.Nullable, "primary key is never nullable")
	assert.Equal(t, 8, idCol.StorageSize)

	nameCol, _ := schema.Column("name")
	assert.True(t, nameCol.Nullable)
	assert.Equal(t, 16, nameCol.StorageSize)
	assert.Equal(t, 8, nameCol.StorageOffset)

	vecCol, _ := schema.Column("embedding")
	assert.False(t, vecCol.Nullable)
	assert.Equal(t, 32, vecCol.StorageSize)
	assert.Equal(t, 24, vecCol.StorageOffset)

	// Record size is the pure sum of payload slots; no null flags.
	assert.Equal(t, 8+16+32, schema.RecordSize)
}

func TestComputeLayoutRejectsVariableLengthColumns(t *testing.T) {
	s := &Schema{
		Name:       "t",
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
			{Name: "body", Type: sqlast.ColumnType{Kind: sqlast.TypeText}},
		},
	}
	assert.Error(t, ComputeLayout(s))
}

func TestColumnIndexAndLookup(t *testing.T) {
	schema := &Schema{Columns: []Column{{Name: "a"}, {Name: "b"}}}
	assert.Equal(t, 0, schema.ColumnIndex("a"))
	assert.Equal(t, 1, schema.ColumnIndex("b"))
	assert.Equal(t, -1, schema.ColumnIndex("missing"))

	_, ok := schema.Column("missing")
	assert.False(t, ok)
}

func TestPrimaryKeyColumn(t *testing.T) {
	schema := &Schema{
		PrimaryKey: "id",
		Columns:    []Column{{Name: "id", PrimaryKey: true}, {Name: "v"}},
	}
	col, ok := schema.PrimaryKeyColumn()
	require.True(t, ok)
	assert.Equal(t, "id", col.Name)
}
