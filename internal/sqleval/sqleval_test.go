package sqleval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

type mapRow map[string]sqlast.Value

func (m mapRow) Column(name string) (sqlast.Value, error) {
	v, ok := m[name]
	if !ok {
		return sqlast.Null, assertNoSuchColumn{name}
	}
	return v, nil
}

type assertNoSuchColumn struct{ name string }

func (e assertNoSuchColumn) Error() string { return "no such column: " + e.name }

func TestEvaluateLiteralAndParam(t *testing.T) {
	v, err := Evaluate(&sqlast.Literal{Value: sqlast.Integer(5)}, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, v.Int)

	v, err = Evaluate(&sqlast.ParamExpr{Index: 1}, nil, []sqlast.Value{sqlast.Text("a")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Text)

	_, err = Evaluate(&sqlast.ParamExpr{Index: 2}, nil, []sqlast.Value{sqlast.Text("a")}, nil)
	assert.Error(t, err)
}

func TestEvaluateColumnRef(t *testing.T) {
	row := mapRow{"x": sqlast.Integer(3)}
	v, err := Evaluate(&sqlast.ColumnRef{Name: "x"}, row, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.Int)

	_, err = Evaluate(&sqlast.ColumnRef{Name: "x"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestEvaluateArithmeticIntegerAndReal(t *testing.T) {
	expr := &sqlast.BinaryExpr{Op: sqlast.OpAdd, Left: &sqlast.Literal{Value: sqlast.Integer(2)}, Right: &sqlast.Literal{Value: sqlast.Integer(3)}}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, v.Int)

	expr2 := &sqlast.BinaryExpr{Op: sqlast.OpAdd, Left: &sqlast.Literal{Value: sqlast.Integer(2)}, Right: &sqlast.Literal{Value: sqlast.Real(0.5)}}
	v, err = Evaluate(expr2, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Real)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	expr := &sqlast.BinaryExpr{Op: sqlast.OpDiv, Left: &sqlast.Literal{Value: sqlast.Integer(1)}, Right: &sqlast.Literal{Value: sqlast.Integer(0)}}
	_, err := Evaluate(expr, nil, nil, nil)
	assert.Error(t, err)
}

func TestEvaluateComparisonAndLogic(t *testing.T) {
	expr := &sqlast.BinaryExpr{
		Op:   sqlast.OpAnd,
		Left: &sqlast.BinaryExpr{Op: sqlast.OpGt, Left: &sqlast.Literal{Value: sqlast.Integer(5)}, Right: &sqlast.Literal{Value: sqlast.Integer(1)}},
		Right: &sqlast.BinaryExpr{Op: sqlast.OpEq, Left: &sqlast.Literal{Value: sqlast.Text("a")}, Right: &sqlast.Literal{Value: sqlast.Text("a")}},
	}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}

func TestEvaluateOrShortCircuits(t *testing.T) {
	expr := &sqlast.BinaryExpr{
		Op:    sqlast.OpOr,
		Left:  &sqlast.Literal{Value: sqlast.Integer(1)},
		Right: &sqlast.ColumnRef{Name: "missing"}, // would error if evaluated
	}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}

func TestEvaluateBetween(t *testing.T) {
	expr := &sqlast.BetweenExpr{
		Operand: &sqlast.Literal{Value: sqlast.Integer(5)},
		Low:     &sqlast.Literal{Value: sqlast.Integer(1)},
		High:    &sqlast.Literal{Value: sqlast.Integer(10)},
	}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)

	expr.Not = true
	v, err = Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, v.Int)
}

func TestEvaluateLike(t *testing.T) {
	expr := &sqlast.BinaryExpr{Op: sqlast.OpLike, Left: &sqlast.Literal{Value: sqlast.Text("hello")}, Right: &sqlast.Literal{Value: sqlast.Text("h%o")}}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}

func TestEvaluateVectorLiteral(t *testing.T) {
	expr := &sqlast.VectorLiteral{Elems: []sqlast.Expr{
		&sqlast.Literal{Value: sqlast.Integer(1)},
		&sqlast.Literal{Value: sqlast.Real(2.5)},
	}}
	v, err := Evaluate(expr, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, v.Vector)
}

type stubResolver struct{}

func (stubResolver) Call(name string, args []sqlast.Value) (sqlast.Value, error) {
	return sqlast.Integer(int64(len(args))), nil
}

func TestEvaluateFuncCall(t *testing.T) {
	expr := &sqlast.FuncCall{Name: "COUNT", Args: []sqlast.Expr{&sqlast.StarExpr{}}}
	v, err := Evaluate(expr, nil, nil, stubResolver{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}

func TestEvaluateFuncCallNoResolver(t *testing.T) {
	expr := &sqlast.FuncCall{Name: "COUNT", Args: []sqlast.Expr{&sqlast.StarExpr{}}}
	_, err := Evaluate(expr, nil, nil, nil)
	assert.Error(t, err)
}

func TestEvaluateUnaryNegAndNot(t *testing.T) {
	v, err := Evaluate(&sqlast.UnaryExpr{Op: sqlast.OpNeg, Operand: &sqlast.Literal{Value: sqlast.Integer(5)}}, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, -5, v.Int)

	v, err = Evaluate(&sqlast.UnaryExpr{Op: sqlast.OpNot, Operand: &sqlast.Literal{Value: sqlast.Integer(0)}}, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int)
}
