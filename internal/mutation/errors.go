package mutation

import (
	"errors"
	"fmt"

	"github.com/roach88/formulon/internal/ast"
)

// Diagnostic locates a validation error in the formula.
type Diagnostic struct {
	// Token is the source text of the offending sub-expression.
	Token string

	// Pos is its source position, if the parser supplied one.
	Pos ast.Pos

	// Index addresses the offending node from the formula root.
	Index ast.Index
}

func (d Diagnostic) where() string {
	if d.Pos.IsValid() {
		return d.Pos.String()
	}
	return "at " + d.Index.String()
}

func diagnose(n ast.Node, idx ast.Index) Diagnostic {
	token := n.Meta().Token
	if token == "" {
		token = ast.Format(n)
	}
	return Diagnostic{Token: token, Pos: n.Meta().Pos, Index: idx}
}

// UnknownBFBFieldError reports a BEFORE FILTER BY reference to a field id
// the dataset does not have.
type UnknownBFBFieldError struct {
	Diagnostic
	Field string
}

func (e *UnknownBFBFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %s in BEFORE FILTER BY", e.where(), e.Token)
}

// LodError reports an LOD directive that cannot be expressed as a query fork.
type LodError struct {
	Diagnostic
	Message string
}

func (e *LodError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.where(), e.Message, e.Token)
}

// InvalidQueryStructureError reports an expression whose aggregation does
// not fit the query's dimensions.
type InvalidQueryStructureError struct {
	Diagnostic
	Message string
}

func (e *InvalidQueryStructureError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.where(), e.Message, e.Token)
}

// IsValidationError reports whether err is a user-facing validation error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var bfb *UnknownBFBFieldError
	var lod *LodError
	var iqs *InvalidQueryStructureError
	return errors.As(err, &bfb) || errors.As(err, &lod) || errors.As(err, &iqs)
}
