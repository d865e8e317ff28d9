package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/mutation"
)

func TestRuntimeError_Error(t *testing.T) {
	testCases := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "plain",
			err:  &RuntimeError{Code: ErrCodeDialectMismatch, Message: "wrong target"},
			want: "DIALECT_MISMATCH: wrong target",
		},
		{
			name: "with cause and item",
			err:  &RuntimeError{Code: ErrCodeInvalidFormula, Message: "cannot prepare formula", Item: 3, Err: errors.New("boom")},
			want: "INVALID_FORMULA: cannot prepare formula: boom (item=3)",
		},
		{
			name: "with request",
			err:  NewQueryError("req-1", 2, errors.New("no such table")),
			want: "QUERY_FAILED: block 2 failed: no such table (request=req-1)",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError([]compiler.ValidationError{
		{Field: "table", Message: "table is required", Code: compiler.ErrDatasetNoTable},
		{Field: "fields", Message: "at least one field is required", Code: compiler.ErrDatasetNoFields},
	})

	assert.Equal(t, ErrCodeInvalidQuery, err.Code)
	assert.Contains(t, err.Error(), "2 validation errors")
	assert.Contains(t, err.Error(), "[E101] table: table is required")

	var ve compiler.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.True(t, IsValidationError(err))
}

func TestNewFormulaError_Codes(t *testing.T) {
	testCases := []struct {
		name  string
		cause error
		want  RuntimeErrorCode
	}{
		{"unknown bfb field", &mutation.UnknownBFBFieldError{Field: "Discount"}, ErrCodeInvalidFormula},
		{"unknown field", &inspect.UnknownFieldError{Name: "Discount"}, ErrCodeInvalidFormula},
		{"field cycle", &compiler.CycleError{Path: []string{"A", "A"}}, ErrCodeInvalidFormula},
		{"undefined function", &inspect.UndefinedFunctionError{Name: "frobnicate"}, ErrCodeTranslationFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewFormulaError(2, fmt.Errorf("measure: %w", tc.cause))
			assert.Equal(t, tc.want, err.Code)
			assert.Equal(t, 2, err.Item)
			assert.ErrorIs(t, err, tc.cause)
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	undefined := &inspect.UndefinedFunctionError{Name: "frobnicate"}
	assert.True(t, IsTranslationError(fmt.Errorf("wrapped: %w", undefined)))
	assert.True(t, IsTranslationError(NewFormulaError(1, undefined)))
	assert.False(t, IsValidationError(undefined))

	queryErr := NewQueryError("req-1", 0, errors.New("locked"))
	assert.True(t, IsQueryError(fmt.Errorf("stream: %w", queryErr)))
	assert.False(t, IsQueryError(undefined))
	assert.False(t, IsTranslationError(nil))
}
