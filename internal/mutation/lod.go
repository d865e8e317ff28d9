package mutation

import (
	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/inspect"
)

// LodToQueryFork rewrites every aggregate carrying a LOD directive into a
// QueryFork.
//
// The fork aggregates the call (without its directive) over the call's
// effective dimensions and is joined back on the dimensions it shares with
// the enclosing scope. Nested directives resolve independently against the
// original tree, so an inner fork ends up inside the outer fork's result
// expression.
//
// A fork whose dimensions are not a subset of the enclosing scope produces
// several rows per outer group; that is only valid when an enclosing
// aggregate folds them back, otherwise LodError.
type LodToQueryFork struct {
	env *inspect.Env
}

// NewLodToQueryFork builds the rewrite over env.
func NewLodToQueryFork(env *inspect.Env) *LodToQueryFork {
	return &LodToQueryFork{env: env}
}

func (m *LodToQueryFork) Match(n ast.Node, _ ast.Index, _ []ast.Node) bool {
	fc, ok := n.(*ast.FuncCall)
	return ok && fc.Lod() != nil && m.env.IsAggregateCall(fc)
}

func (m *LodToQueryFork) Replace(n ast.Node, idx ast.Index, parents []ast.Node) (ast.Node, error) {
	fc := n.(*ast.FuncCall)

	forkDims := m.env.EffectiveDimensions(fc, parents)
	scope := m.env.ScopeDimensions(parents)
	if !forkDims.SubsetOf(scope) && m.env.EnclosingAggregate(parents) < 0 {
		return nil, &LodError{
			Diagnostic: diagnose(fc, idx),
			Message:    "aggregation with dimensions " + forkDims.String() + " outside of query dimensions " + scope.String() + " must be inside another aggregation",
		}
	}

	join := forkDims.Intersect(scope)
	conds := make([]*ast.SelfCondition, 0, join.Len())
	for _, dim := range join.Nodes() {
		conds = append(conds, ast.NewSelfCondition(dim))
	}

	var opts []ast.FuncOption
	if w := fc.Within(); len(w) > 0 {
		opts = append(opts, ast.WithWithin(w...))
	}
	if bfb := fc.BeforeFilterBy(); len(bfb) > 0 {
		opts = append(opts, ast.WithBeforeFilterBy(bfb...))
	}
	result := ast.At(ast.NewFuncCall(fc.Name(), fc.Args(), opts...), fc.Meta())

	return ast.Build(func() ast.Node {
		fork := ast.NewQueryFork(
			ast.JoinLeft,
			ast.Fixed(forkDims.Nodes()...),
			ast.NewJoiningCondition(conds...),
			result,
		)
		return ast.At(fork, fc.Meta())
	})
}
