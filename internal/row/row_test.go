package row

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

func usersSchema(t *testing.T) *catalog.Schema {
	t.Helper()
	s := &catalog.Schema{
		Name:       "users",
		PrimaryKey: "id",
		Columns: []catalog.Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
			{Name: "name", Type: sqlast.ColumnType{Kind: sqlast.TypeText, Len: 16}},
			{Name: "score", Type: sqlast.ColumnType{Kind: sqlast.TypeReal}},
			{Name: "bio", Type: sqlast.ColumnType{Kind: sqlast.TypeText, Len: 8}, NotNull: true},
		},
	}
	require.NoError(t, catalog.ComputeLayout(s))
	return s
}

func TestSerializeAndDeserializeFull(t *testing.T) {
	schema := usersSchema(t)
	values := []sqlast.Value{
		sqlast.Integer(1),
		sqlast.Text("alice"),
		sqlast.Null,
		sqlast.Text("hi"),
	}
	buf, err := SerializeRow(values, schema)
	require.NoError(t, err)
	assert.Len(t, buf, schema.RecordSize)

	out, err := DeserializeFull(buf, schema)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.EqualValues(t, 1, out[0].Int)
	assert.Equal(t, "alice", out[1].Text)
	assert.True(t, out[2].IsNull())
	assert.Equal(t, "hi", out[3].Text)
}

func TestSerializeRowRejectsNullInNotNullColumn(t *testing.T) {
	schema := usersSchema(t)
	values := []sqlast.Value{sqlast.Integer(1), sqlast.Text("a"), sqlast.Null, sqlast.Null}
	_, err := SerializeRow(values, schema)
	assert.Error(t, err)
}

func TestSerializeRowRejectsWrongArity(t *testing.T) {
	schema := usersSchema(t)
	_, err := SerializeRow([]sqlast.Value{sqlast.Integer(1)}, schema)
	assert.Error(t, err)
}

func TestSerializeRowRejectsTypeMismatch(t *testing.T) {
	schema := usersSchema(t)
	values := []sqlast.Value{sqlast.Text("not-an-int"), sqlast.Text("a"), sqlast.Null, sqlast.Text("hi")}
	_, err := SerializeRow(values, schema)
	assert.Error(t, err)
}

func TestSerializeRowRejectsOverlongText(t *testing.T) {
	schema := usersSchema(t)
	values := []sqlast.Value{sqlast.Integer(1), sqlast.Text("this name is far too long"), sqlast.Null, sqlast.Text("hi")}
	_, err := SerializeRow(values, schema)
	assert.Error(t, err)
}

func TestGetColumnByName(t *testing.T) {
	schema := usersSchema(t)
	buf, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(7), sqlast.Text("bob"), sqlast.Real(2.5), sqlast.Text("hey"),
	}, schema)
	require.NoError(t, err)

	v, err := GetColumn(buf, schema, "score")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Real)

	_, err = GetColumn(buf, schema, "nope")
	assert.Error(t, err)
}

func TestGetColumnsProjection(t *testing.T) {
	schema := usersSchema(t)
	buf, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(7), sqlast.Text("bob"), sqlast.Real(2.5), sqlast.Text("hey"),
	}, schema)
	require.NoError(t, err)

	vals, err := GetColumns(buf, schema, []string{"name", "id"})
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, "bob", vals[0].Text)
	assert.EqualValues(t, 7, vals[1].Int)
}

func TestVectorColumnRoundTrip(t *testing.T) {
	schema := &catalog.Schema{
		Name:       "docs",
		PrimaryKey: "id",
		Columns: []catalog.Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
			{Name: "embedding", Type: sqlast.ColumnType{Kind: sqlast.TypeVector, Dim: 3}, NotNull: true},
		},
	}
	require.NoError(t, catalog.ComputeLayout(schema))

	buf, err := SerializeRow([]sqlast.Value{sqlast.Integer(1), sqlast.Vector([]float64{1, 2, 3})}, schema)
	require.NoError(t, err)

	v, err := GetColumn(buf, schema, "embedding")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v.Vector)
}

func TestMatchesConditionAndAccessor(t *testing.T) {
	schema := usersSchema(t)
	buf, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(7), sqlast.Text("bob"), sqlast.Real(2.5), sqlast.Text("hey"),
	}, schema)
	require.NoError(t, err)

	cond := &sqlast.BinaryExpr{
		Op:    sqlast.OpEq,
		Left:  &sqlast.ColumnRef{Name: "name"},
		Right: &sqlast.Literal{Value: sqlast.Text("bob")},
	}
	ok, err := MatchesCondition(buf, schema, cond, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	cond2 := &sqlast.BinaryExpr{
		Op:    sqlast.OpEq,
		Left:  &sqlast.ColumnRef{Name: "name"},
		Right: &sqlast.Literal{Value: sqlast.Text("nobody")},
	}
	ok, err = MatchesCondition(buf, schema, cond2, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSerializeRowExactByteLayout(t *testing.T) {
	// Plain nullable columns get no null-flag byte: the record is the pure
	// sum of payload slots, so every offset is a compile-time constant of
	// the schema.
	s := &catalog.Schema{
		Name:       "t",
		PrimaryKey: "id",
		Columns: []catalog.Column{
			{Name: "id", Type: sqlast.ColumnType{Kind: sqlast.TypeInteger}, PrimaryKey: true},
			{Name: "name", Type: sqlast.ColumnType{Kind: sqlast.TypeText, Len: 50}},
			{Name: "score", Type: sqlast.ColumnType{Kind: sqlast.TypeReal}},
		},
	}
	require.NoError(t, catalog.ComputeLayout(s))
	require.Equal(t, 66, s.RecordSize)

	data, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(7), sqlast.Text("Al"), sqlast.Real(99.5),
	}, s)
	require.NoError(t, err)
	require.Len(t, data, 66)

	assert.Equal(t, byte('A'), data[8])
	assert.Equal(t, byte('l'), data[9])
	for i := 10; i < 58; i++ {
		assert.Zero(t, data[i], "text slot must be NUL-padded at byte %d", i)
	}
	assert.Equal(t, uint64(math.Float64bits(99.5)), binary.BigEndian.Uint64(data[58:66]))
}

func TestZeroSlotReadsAsNullOnlyWhenNullable(t *testing.T) {
	schema := usersSchema(t)
	buf, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(1), sqlast.Text(""), sqlast.Real(0), sqlast.Text(""),
	}, schema)
	require.NoError(t, err)

	// Nullable columns: a zero payload is the NULL representation, so ''
	// and 0.0 read back as NULL.
	v, err := GetColumn(buf, schema, "name")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	v, err = GetColumn(buf, schema, "score")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	// NOT NULL columns decode the zero payload as the zero value.
	v, err = GetColumn(buf, schema, "bio")
	require.NoError(t, err)
	assert.Equal(t, sqlast.KindText, v.Kind)
	assert.Equal(t, "", v.Text)
}

func TestMatchesConditionNilIsAlwaysTrue(t *testing.T) {
	schema := usersSchema(t)
	buf, err := SerializeRow([]sqlast.Value{
		sqlast.Integer(7), sqlast.Text("bob"), sqlast.Real(2.5), sqlast.Text("hey"),
	}, schema)
	require.NoError(t, err)

	ok, err := MatchesCondition(buf, schema, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
