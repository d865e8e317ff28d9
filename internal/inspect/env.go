// Package inspect answers read-only questions about a formula tree: which
// dimensions are in scope at a node, which children open their own
// aggregation scope, and what type an expression evaluates to.
package inspect

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
)

// Env is the inspection environment for one query compilation. It memoises
// inferred types and is not safe for concurrent use.
type Env struct {
	catalog    *funcs.Catalog
	fieldTypes map[string]dtype.DataType
	globalDims []ast.Node
	types      map[ast.Node]dtype.DataType
}

// NewEnv builds an environment. globalDims are the query's grouping
// dimensions, used when no LOD directive applies.
func NewEnv(catalog *funcs.Catalog, fieldTypes map[string]dtype.DataType, globalDims []ast.Node) *Env {
	ft := make(map[string]dtype.DataType, len(fieldTypes))
	for k, v := range fieldTypes {
		ft[k] = v
	}
	return &Env{
		catalog:    catalog,
		fieldTypes: ft,
		globalDims: append([]ast.Node(nil), globalDims...),
		types:      make(map[ast.Node]dtype.DataType),
	}
}

// Catalog returns the function catalog.
func (e *Env) Catalog() *funcs.Catalog { return e.catalog }

// GlobalDimensions returns a copy of the query's grouping dimensions.
func (e *Env) GlobalDimensions() []ast.Node { return append([]ast.Node(nil), e.globalDims...) }

// FieldType returns the declared type of a dataset field.
func (e *Env) FieldType(name string) (dtype.DataType, bool) {
	t, ok := e.fieldTypes[name]
	return t, ok
}

// FieldIDs returns the set of known field names.
func (e *Env) FieldIDs() map[string]bool {
	ids := make(map[string]bool, len(e.fieldTypes))
	for k := range e.fieldTypes {
		ids[k] = true
	}
	return ids
}

// IsAggregateCall reports whether n is a call to an aggregate function.
func (e *Env) IsAggregateCall(n ast.Node) bool {
	fc, ok := n.(*ast.FuncCall)
	return ok && e.catalog.IsAggregate(fc.Name())
}

// AutonomousChildren returns the child offsets of n that form their own
// aggregation scope: the arguments of an aggregate carrying a LOD directive
// and the result expression of a query fork. Outer dimension inference must
// not walk through them.
func (e *Env) AutonomousChildren(n ast.Node) []int {
	switch v := n.(type) {
	case *ast.FuncCall:
		if v.Lod() == nil || !e.catalog.IsAggregate(v.Name()) {
			return nil
		}
		out := make([]int, v.NumArgs())
		for i := range out {
			out[i] = i
		}
		return out
	case *ast.QueryFork:
		return []int{2}
	default:
		return nil
	}
}

// EnclosingAggregate returns the position in parents of the innermost
// aggregate call, or -1.
func (e *Env) EnclosingAggregate(parents []ast.Node) int {
	for i := len(parents) - 1; i >= 0; i-- {
		if e.IsAggregateCall(parents[i]) {
			return i
		}
	}
	return -1
}

// IsAggregated reports whether n's value is computed from aggregated rows.
// Query forks count as aggregated: they carry an aggregate computed at their
// own level.
func (e *Env) IsAggregated(n ast.Node) bool {
	switch n.(type) {
	case *ast.QueryFork:
		return true
	case *ast.FuncCall:
		if e.IsAggregateCall(n) {
			return true
		}
	}
	for _, c := range expressionChildren(n) {
		if e.IsAggregated(c) {
			return true
		}
	}
	return false
}

// expressionChildren returns the children of n that are evaluated as values.
// LOD dimension lists, WITHIN partitions and BEFORE FILTER BY fields are not.
func expressionChildren(n ast.Node) []ast.Node {
	switch v := n.(type) {
	case *ast.FuncCall:
		return v.Args()
	case *ast.QueryFork:
		return []ast.Node{v.ResultExpr()}
	case *ast.LodSpecifier, *ast.JoiningCondition, *ast.SelfCondition:
		return nil
	default:
		return ast.Children(n)
	}
}

// CollectFields returns every field referenced as a value below n, in
// pre-order. BEFORE FILTER BY entries are not value references.
func CollectFields(n ast.Node) []*ast.Field {
	var out []*ast.Field
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		if f, ok := n.(*ast.Field); ok {
			out = append(out, f)
			return
		}
		switch v := n.(type) {
		case *ast.FuncCall:
			for _, a := range v.Args() {
				visit(a)
			}
			if v.Lod() != nil {
				visit(v.Lod())
			}
			for _, w := range v.Within() {
				visit(w)
			}
		default:
			for _, c := range ast.Children(n) {
				visit(c)
			}
		}
	}
	visit(n)
	return out
}

// FreeFields returns the fields below n that are not inside an aggregate or
// a query fork. In an aggregated query these must be dimensions.
func (e *Env) FreeFields(n ast.Node) []*ast.Field {
	var out []*ast.Field
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Field:
			out = append(out, v)
			return
		case *ast.QueryFork:
			return
		case *ast.FuncCall:
			if e.catalog.IsAggregate(v.Name()) {
				return
			}
		}
		for _, c := range expressionChildren(n) {
			visit(c)
		}
	}
	visit(n)
	return out
}

// UnknownFieldError reports a reference to a field the dataset lacks.
type UnknownFieldError struct {
	Name string
	Pos  ast.Pos
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field [%s]", e.Pos, e.Name)
}
