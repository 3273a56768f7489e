package dberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorMatchesSentinel(t *testing.T) {
	err := &ParseError{Line: 1, Col: 3, Msg: "unexpected token"}
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), "unexpected token")

	withExpected := &ParseError{Line: 1, Col: 3, Msg: "unexpected token", Expected: "IDENT"}
	assert.Contains(t, withExpected.Error(), "expected IDENT")
}

func TestSchemaErrorMatchesSentinel(t *testing.T) {
	err := NewSchemaError("table %q not found", "users")
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), "users")
}

func TestTypeErrorMatchesSentinel(t *testing.T) {
	err := NewTypeError("column %q expects INTEGER", "id")
	assert.True(t, errors.Is(err, ErrType))
}

func TestConstraintViolationErrorMatchesSentinel(t *testing.T) {
	err := &ConstraintViolationError{Table: "users", Column: "id", Kind: ConstraintPrimaryKey}
	assert.True(t, errors.Is(err, ErrConstraintGeneric))
	assert.Contains(t, err.Error(), "users.id")

	noColumn := &ConstraintViolationError{Table: "users", Kind: ConstraintNotNull}
	assert.NotContains(t, noColumn.Error(), ".")
}

func TestFunctionErrorUnwrapsToKind(t *testing.T) {
	err := &FunctionError{Name: "COSINE_SIMILARITY", Kind: ErrFunctionArity, Msg: "expected 2 arguments"}
	assert.True(t, errors.Is(err, ErrFunctionArity))
	assert.Contains(t, err.Error(), "COSINE_SIMILARITY")
}
