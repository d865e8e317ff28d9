package translate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
)

// ErrFrozen is returned when registering on a Builder after Freeze.
var ErrFrozen = errors.New("translation registry is frozen")

// UnknownFunctionError reports a call with no variant for the target dialect.
type UnknownFunctionError struct {
	Name     string
	Dialect  dialect.Combo
	ArgTypes []dtype.DataType
	Pos      ast.Pos
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %s(%s) for dialect %s", e.Name, typeList(e.ArgTypes), e.Dialect)
}

// TranslationError reports input that cannot be rendered for the target,
// such as a native call with a non-constant name.
type TranslationError struct {
	Name     string
	ArgTypes []dtype.DataType
	Dialect  dialect.Combo
	Message  string
	Pos      ast.Pos
}

func (e *TranslationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("translation for %s: %s", e.Dialect, e.Message)
	}
	return fmt.Sprintf("translation of %s(%s) for %s: %s", e.Name, typeList(e.ArgTypes), e.Dialect, e.Message)
}

// RegistrationError reports conflicting variants found by Freeze.
type RegistrationError struct {
	Name    string
	Point   dialect.Combo
	Message string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration of %s at %s: %s", e.Name, e.Point, e.Message)
}

// IsTranslationError reports whether err is a translation-class error,
// including argument type mismatches. Uses errors.As to handle wrapped errors.
func IsTranslationError(err error) bool {
	var ufe *UnknownFunctionError
	var te *TranslationError
	var ate *funcs.ArgumentTypeError
	return errors.As(err, &ufe) || errors.As(err, &te) || errors.As(err, &ate)
}

func typeList(types []dtype.DataType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
