package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/funcs"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/mutation"
	"github.com/roach88/formulon/internal/queryir"
	"github.com/roach88/formulon/internal/translate"
)

// RuntimeError is an error raised while preparing or executing a query.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RequestID identifies the execution, empty while preparing.
	RequestID string

	// Item is the legend id of the offending query item, 0 if none.
	Item int

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidQuery indicates the dataset or query failed validation.
	ErrCodeInvalidQuery RuntimeErrorCode = "INVALID_QUERY"

	// ErrCodeInvalidFormula indicates a formula was rejected by the
	// mutation pipeline.
	ErrCodeInvalidFormula RuntimeErrorCode = "INVALID_FORMULA"

	// ErrCodeTranslationFailed indicates planning or SQL rendering failed.
	ErrCodeTranslationFailed RuntimeErrorCode = "TRANSLATION_FAILED"

	// ErrCodeDialectMismatch indicates a plan targets another dialect
	// than the store it is executed on.
	ErrCodeDialectMismatch RuntimeErrorCode = "DIALECT_MISMATCH"

	// ErrCodeQueryFailed indicates the database rejected a block statement.
	ErrCodeQueryFailed RuntimeErrorCode = "QUERY_FAILED"
)

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	switch {
	case e.RequestID != "" && e.Item != 0:
		fmt.Fprintf(&b, " (request=%s, item=%d)", e.RequestID, e.Item)
	case e.RequestID != "":
		fmt.Fprintf(&b, " (request=%s)", e.RequestID)
	case e.Item != 0:
		fmt.Fprintf(&b, " (item=%d)", e.Item)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

// IsValidationError reports whether err rejects the query or one of its
// formulas before any SQL is produced. Uses errors.As to handle wrapped
// errors.
func IsValidationError(err error) bool {
	if hasCode(err, ErrCodeInvalidQuery) || hasCode(err, ErrCodeInvalidFormula) {
		return true
	}
	var (
		ve compiler.ValidationError
		uf *inspect.UnknownFieldError
	)
	return errors.As(err, &ve) || errors.As(err, &uf) || mutation.IsValidationError(err)
}

// IsTranslationError reports whether err comes from typing, planning or
// rendering a formula.
func IsTranslationError(err error) bool {
	if hasCode(err, ErrCodeTranslationFailed) {
		return true
	}
	var (
		te *translate.TranslationError
		ue *translate.UnknownFunctionError
		ae *funcs.ArgumentTypeError
		fe *inspect.UndefinedFunctionError
		pe *queryir.PlanError
	)
	return errors.As(err, &te) || errors.As(err, &ue) || errors.As(err, &ae) ||
		errors.As(err, &fe) || errors.As(err, &pe)
}

// IsQueryError reports whether the database rejected a statement.
func IsQueryError(err error) bool {
	return hasCode(err, ErrCodeQueryFailed)
}

// NewValidationError wraps the validation errors of a dataset or query.
func NewValidationError(errs []compiler.ValidationError) *RuntimeError {
	causes := make([]error, len(errs))
	for i, e := range errs {
		causes[i] = e
	}
	msg := fmt.Sprintf("%d validation errors", len(errs))
	if len(errs) == 1 {
		msg = "1 validation error"
	}
	return &RuntimeError{Code: ErrCodeInvalidQuery, Message: msg, Err: errors.Join(causes...)}
}

// NewFormulaError reports a formula of item rejected while preparing.
func NewFormulaError(item int, err error) *RuntimeError {
	code := ErrCodeTranslationFailed
	var (
		unknown *compiler.UnknownFieldError
		cycle   *compiler.CycleError
	)
	if IsValidationError(err) || errors.As(err, &unknown) || errors.As(err, &cycle) {
		code = ErrCodeInvalidFormula
	}
	return &RuntimeError{Code: code, Message: "cannot prepare formula", Item: item, Err: err}
}

// NewQueryError reports a failed block statement.
func NewQueryError(requestID string, block int, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQueryFailed,
		Message:   fmt.Sprintf("block %d failed", block),
		RequestID: requestID,
		Err:       err,
	}
}
