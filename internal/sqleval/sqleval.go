// Package sqleval evaluates sqlast.Expr trees against a row of values,
// independent of how that row is stored: the row codec (internal/row) and
// the executor (internal/executor) both drive it, the former for predicate
// pushdown during a scan, the latter for projections, assignments, and
// ORDER BY sort keys.
package sqleval

import (
	"fmt"
	"math"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// RowAccessor resolves a bare column name to its current value. Callers
// backed by the fixed-length row codec can implement this to decode a
// single column lazily, without deserializing the whole row.
type RowAccessor interface {
	Column(name string) (sqlast.Value, error)
}

// FunctionResolver invokes a named scalar function (built-in distance
// functions or a registered extension function). A nil resolver
// causes any FuncCall to fail with dberr.ErrUnknownFunction.
type FunctionResolver interface {
	Call(name string, args []sqlast.Value) (sqlast.Value, error)
}

// Evaluate walks expr and returns its value given a row, a parameter list
// (1-based, so params[0] is ?1), and an optional function resolver.
func Evaluate(expr sqlast.Expr, row RowAccessor, params []sqlast.Value, funcs FunctionResolver) (sqlast.Value, error) {
	switch e := expr.(type) {
	case *sqlast.Literal:
		return e.Value, nil
	case *sqlast.ParamExpr:
		if e.Index == 0 || int(e.Index) > len(params) {
			return sqlast.Null, fmt.Errorf("tegdb: parameter ?%d out of range (%d supplied)", e.Index, len(params))
		}
		return params[e.Index-1], nil
	case *sqlast.ColumnRef:
		if row == nil {
			return sqlast.Null, dberr.NewSchemaError("column %q is not available in this context", e.Name)
		}
		return row.Column(e.Name)
	case *sqlast.StarExpr:
		return sqlast.Null, nil
	case *sqlast.VectorLiteral:
		elems := make([]float64, len(e.Elems))
		for i, sub := range e.Elems {
			v, err := Evaluate(sub, row, params, funcs)
			if err != nil {
				return sqlast.Null, err
			}
			f, ok := asFloat(v)
			if !ok {
				return sqlast.Null, dberr.NewTypeError("vector literal element %d is not numeric", i)
			}
			elems[i] = f
		}
		return sqlast.Vector(elems), nil
	case *sqlast.UnaryExpr:
		return evalUnary(e, row, params, funcs)
	case *sqlast.BinaryExpr:
		return evalBinary(e, row, params, funcs)
	case *sqlast.BetweenExpr:
		return evalBetween(e, row, params, funcs)
	case *sqlast.FuncCall:
		return evalFuncCall(e, row, params, funcs)
	default:
		return sqlast.Null, fmt.Errorf("tegdb: unsupported expression %T", expr)
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

func truthy(v sqlast.Value) bool {
	switch v.Kind {
	case sqlast.KindInteger:
		return v.Int != 0
	case sqlast.KindReal:
		return v.Real != 0 && !math.IsNaN(v.Real)
	default:
		return false
	}
}

func evalUnary(e *sqlast.UnaryExpr, row RowAccessor, params []sqlast.Value, funcs FunctionResolver) (sqlast.Value, error) {
	v, err := Evaluate(e.Operand, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}
	switch e.Op {
	case sqlast.OpNeg:
		if v.IsNull() {
			return sqlast.Null, nil
		}
		switch v.Kind {
		case sqlast.KindInteger:
			return sqlast.Integer(-v.Int), nil
		case sqlast.KindReal:
			return sqlast.Real(-v.Real), nil
		default:
			return sqlast.Null, dberr.NewTypeError("cannot negate a %s value", v.Kind)
		}
	case sqlast.OpNot:
		if v.IsNull() {
			return sqlast.Null, nil
		}
		if truthy(v) {
			return sqlast.Integer(0), nil
		}
		return sqlast.Integer(1), nil
	default:
		return sqlast.Null, fmt.Errorf("tegdb: unsupported unary operator")
	}
}

func evalBetween(e *sqlast.BetweenExpr, row RowAccessor, params []sqlast.Value, funcs FunctionResolver) (sqlast.Value, error) {
	v, err := Evaluate(e.Operand, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}
	lo, err := Evaluate(e.Low, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}
	hi, err := Evaluate(e.High, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}
	cmpLo, okLo := sqlast.Compare(v, lo)
	cmpHi, okHi := sqlast.Compare(v, hi)
	result := okLo && okHi && cmpLo >= 0 && cmpHi <= 0
	if e.Not {
		result = !result
	}
	if !okLo || !okHi {
		// Null is involved somewhere: the condition is unknown/false, never true.
		return sqlast.Integer(0), nil
	}
	return boolValue(result), nil
}

func boolValue(b bool) sqlast.Value {
	if b {
		return sqlast.Integer(1)
	}
	return sqlast.Integer(0)
}

func evalBinary(e *sqlast.BinaryExpr, row RowAccessor, params []sqlast.Value, funcs FunctionResolver) (sqlast.Value, error) {
	// AND/OR short-circuit and treat Null as "unknown, never true".
	if e.Op == sqlast.OpAnd || e.Op == sqlast.OpOr {
		l, err := Evaluate(e.Left, row, params, funcs)
		if err != nil {
			return sqlast.Null, err
		}
		if e.Op == sqlast.OpAnd && !truthy(l) {
			return sqlast.Integer(0), nil
		}
		if e.Op == sqlast.OpOr && truthy(l) {
			return sqlast.Integer(1), nil
		}
		r, err := Evaluate(e.Right, row, params, funcs)
		if err != nil {
			return sqlast.Null, err
		}
		return boolValue(truthy(r)), nil
	}

	l, err := Evaluate(e.Left, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}
	r, err := Evaluate(e.Right, row, params, funcs)
	if err != nil {
		return sqlast.Null, err
	}

	switch e.Op {
	case sqlast.OpEq:
		return boolValue(sqlast.Equal(l, r)), nil
	case sqlast.OpNeq:
		cmp, ok := sqlast.Compare(l, r)
		return boolValue(ok && cmp != 0), nil
	case sqlast.OpLt, sqlast.OpLte, sqlast.OpGt, sqlast.OpGte:
		cmp, ok := sqlast.Compare(l, r)
		if !ok {
			return sqlast.Integer(0), nil
		}
		switch e.Op {
		case sqlast.OpLt:
			return boolValue(cmp < 0), nil
		case sqlast.OpLte:
			return boolValue(cmp <= 0), nil
		case sqlast.OpGt:
			return boolValue(cmp > 0), nil
		default:
			return boolValue(cmp >= 0), nil
		}
	case sqlast.OpAdd, sqlast.OpSub, sqlast.OpMul, sqlast.OpDiv:
		return evalArith(e.Op, l, r)
	case sqlast.OpLike:
		if l.IsNull() || r.IsNull() {
			return sqlast.Integer(0), nil
		}
		if l.Kind != sqlast.KindText || r.Kind != sqlast.KindText {
			return sqlast.Null, dberr.NewTypeError("LIKE requires text operands, got %s and %s", l.Kind, r.Kind)
		}
		return boolValue(likeMatch(l.Text, r.Text)), nil
	default:
		return sqlast.Null, fmt.Errorf("tegdb: unsupported binary operator %s", e.Op)
	}
}

// likeMatch implements SQL LIKE pattern matching: '%' matches any run of
// characters (including none), '_' matches exactly one character. Matching
// is case-sensitive and rune-aware.
func likeMatch(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)
	return likeMatchRunes(sr, pr)
}

func likeMatchRunes(s, p []rune) bool {
	// dp[i][j] = true if s[i:] matches p[j:]
	dp := make([][]bool, len(s)+1)
	for i := range dp {
		dp[i] = make([]bool, len(p)+1)
	}
	dp[len(s)][len(p)] = true
	for j := len(p) - 1; j >= 0; j-- {
		if p[j] == '%' {
			dp[len(s)][j] = dp[len(s)][j+1]
		}
	}
	for i := len(s) - 1; i >= 0; i-- {
		for j := len(p) - 1; j >= 0; j-- {
			switch p[j] {
			case '%':
				dp[i][j] = dp[i+1][j] || dp[i][j+1]
			case '_':
				dp[i][j] = dp[i+1][j+1]
			default:
				dp[i][j] = s[i] == p[j] && dp[i+1][j+1]
			}
		}
	}
	return dp[0][0]
}

func evalArith(op sqlast.BinaryOp, l, r sqlast.Value) (sqlast.Value, error) {
	if l.IsNull() || r.IsNull() {
		return sqlast.Null, nil
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
				return sqlast.Null, fmt.Errorf("tegdb: division by zero")
			}
			return sqlast.Integer(l.Int / r.Int), nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return sqlast.Null, dberr.NewTypeError("arithmetic requires numeric operands, got %s and %s", l.Kind, r.Kind)
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
		return sqlast.Null, fmt.Errorf("tegdb: unsupported arithmetic operator")
	}
}

func evalFuncCall(e *sqlast.FuncCall, row RowAccessor, params []sqlast.Value, funcs FunctionResolver) (sqlast.Value, error) {
	args := make([]sqlast.Value, len(e.Args))
	for i, a := range e.Args {
		if _, isStar := a.(*sqlast.StarExpr); isStar {
			args[i] = sqlast.Null
			continue
		}
		v, err := Evaluate(a, row, params, funcs)
		if err != nil {
			return sqlast.Null, err
		}
		args[i] = v
	}
	if funcs == nil {
		return sqlast.Null, &dberr.FunctionError{Name: e.Name, Kind: dberr.ErrUnknownFunction, Msg: "no function resolver configured"}
	}
	return funcs.Call(e.Name, args)
}
