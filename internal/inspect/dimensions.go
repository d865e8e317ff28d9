package inspect

import (
	"strings"

	"github.com/roach88/formulon/internal/ast"
)

// Dimensions is an ordered set of dimension expressions, unique by ast.Key.
//
// Fixed records that a FIXED directive produced the set. A FIXED directive
// with no dimensions is a scalar aggregation and is distinct from the zero
// value, which means "no directive, no global dimensions".
type Dimensions struct {
	Fixed bool
	nodes []ast.Node
	keys  []string
}

// NewDimensions builds a set from nodes, dropping duplicates.
func NewDimensions(fixed bool, nodes ...ast.Node) Dimensions {
	d := Dimensions{Fixed: fixed}
	for _, n := range nodes {
		d = d.with(n)
	}
	return d
}

func (d Dimensions) with(n ast.Node) Dimensions {
	k := ast.Key(n)
	if d.Contains(k) {
		return d
	}
	return Dimensions{
		Fixed: d.Fixed,
		nodes: append(append([]ast.Node(nil), d.nodes...), n),
		keys:  append(append([]string(nil), d.keys...), k),
	}
}

func (d Dimensions) without(k string) Dimensions {
	out := Dimensions{Fixed: d.Fixed}
	for i, key := range d.keys {
		if key != k {
			out.nodes = append(out.nodes, d.nodes[i])
			out.keys = append(out.keys, key)
		}
	}
	return out
}

// Nodes returns the dimension expressions in order.
func (d Dimensions) Nodes() []ast.Node { return append([]ast.Node(nil), d.nodes...) }

// Keys returns the dimension keys in order.
func (d Dimensions) Keys() []string { return append([]string(nil), d.keys...) }

// Len returns the number of dimensions.
func (d Dimensions) Len() int { return len(d.nodes) }

// IsScalar reports whether the set came from FIXED with no dimensions.
func (d Dimensions) IsScalar() bool { return d.Fixed && len(d.nodes) == 0 }

// Contains reports whether key is in the set.
func (d Dimensions) Contains(key string) bool {
	for _, k := range d.keys {
		if k == key {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every dimension of d is in other.
func (d Dimensions) SubsetOf(other Dimensions) bool {
	for _, k := range d.keys {
		if !other.Contains(k) {
			return false
		}
	}
	return true
}

// Intersect returns the dimensions of d that are also in other, in d's order.
func (d Dimensions) Intersect(other Dimensions) Dimensions {
	out := Dimensions{}
	for i, k := range d.keys {
		if other.Contains(k) {
			out.nodes = append(out.nodes, d.nodes[i])
			out.keys = append(out.keys, k)
		}
	}
	return out
}

// Equal reports whether both sets hold the same keys, ignoring order.
func (d Dimensions) Equal(other Dimensions) bool {
	return d.Len() == other.Len() && d.SubsetOf(other)
}

func (d Dimensions) String() string {
	prefix := ""
	if d.Fixed {
		prefix = "FIXED "
	}
	return prefix + "{" + strings.Join(d.keys, ", ") + "}"
}

// directive returns the LOD directive n imposes on its own scope, if any.
func (e *Env) directive(n ast.Node) *ast.LodSpecifier {
	switch v := n.(type) {
	case *ast.QueryFork:
		return v.Lod()
	case *ast.FuncCall:
		if v.Lod() != nil && e.catalog.IsAggregate(v.Name()) {
			return v.Lod()
		}
	}
	return nil
}

// EffectiveDimensions returns the dimensions visible at n, where parents
// lists n's ancestors from the root down.
//
// Directives are collected walking upward from n (n's own directive
// included). The walk stops at the first FIXED. They are then applied from
// the outermost to the innermost, so for any single dimension the directive
// nearest to n wins. Global dimensions are the starting set unless a FIXED
// was found.
func (e *Env) EffectiveDimensions(n ast.Node, parents []ast.Node) Dimensions {
	stack := append(parents[:len(parents):len(parents)], n)
	var found []*ast.LodSpecifier
	for i := len(stack) - 1; i >= 0; i-- {
		lod := e.directive(stack[i])
		if lod == nil {
			continue
		}
		found = append(found, lod)
		if lod.LodKind() == ast.LodFixed {
			break
		}
	}

	dims := NewDimensions(false, e.globalDims...)
	for i := len(found) - 1; i >= 0; i-- {
		lod := found[i]
		switch lod.LodKind() {
		case ast.LodFixed:
			dims = NewDimensions(true, lod.Dimensions()...)
		case ast.LodInclude:
			for _, dim := range lod.Dimensions() {
				dims = dims.with(dim)
			}
		case ast.LodExclude:
			for _, dim := range lod.Dimensions() {
				dims = dims.without(ast.Key(dim))
			}
		}
	}
	return dims
}

// ScopeDimensions returns the dimensions of the aggregation scope enclosing
// n: the effective dimensions of the nearest ancestor that opens a scope,
// or the global dimensions at the top level.
func (e *Env) ScopeDimensions(parents []ast.Node) Dimensions {
	for i := len(parents) - 1; i >= 0; i-- {
		if e.directive(parents[i]) != nil {
			return e.EffectiveDimensions(parents[i], parents[:i])
		}
	}
	return NewDimensions(false, e.globalDims...)
}
