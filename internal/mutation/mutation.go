package mutation

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
)

// Mutation is one rewrite rule. Match selects the nodes the rule applies
// to; Replace returns the rewritten node or a validation error.
//
// parents are the original ancestors of n, from the root down. n itself
// already has its children rewritten.
type Mutation interface {
	Match(n ast.Node, idx ast.Index, parents []ast.Node) bool
	Replace(n ast.Node, idx ast.Index, parents []ast.Node) (ast.Node, error)
}

// Apply rewrites root bottom-up. At each node the mutations are tried in
// order, each seeing the output of the previous one.
func Apply(root ast.Node, muts ...Mutation) (ast.Node, error) {
	return ast.Transform(root, func(n ast.Node, idx ast.Index, parents []ast.Node) (ast.Node, error) {
		for _, m := range muts {
			if !m.Match(n, idx, parents) {
				continue
			}
			out, err := m.Replace(n, idx, parents)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return nil, fmt.Errorf("mutation %T returned nil for %s at %s", m, n.Kind(), idx)
			}
			n = out
		}
		return n, nil
	})
}
