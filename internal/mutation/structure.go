package mutation

import (
	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/inspect"
)

// StructureCheck rejects aggregated expressions that reference fields
// outside their scope's dimensions. The top level is checked against the
// global dimensions; each fork result against the fork's own dimensions.
type StructureCheck struct {
	env *inspect.Env
}

// NewStructureCheck builds the check over env.
func NewStructureCheck(env *inspect.Env) *StructureCheck {
	return &StructureCheck{env: env}
}

// Check validates root, which must already be forked.
func (c *StructureCheck) Check(root ast.Node) error {
	global := inspect.NewDimensions(false, c.env.GlobalDimensions()...)
	if err := c.checkScope(root, ast.Root, global); err != nil {
		return err
	}
	var firstErr error
	ast.Walk(root, func(n ast.Node, idx ast.Index, _ []ast.Node) bool {
		if firstErr != nil {
			return false
		}
		fork, ok := n.(*ast.QueryFork)
		if !ok {
			return true
		}
		dims := inspect.NewDimensions(true, fork.Lod().Dimensions()...)
		firstErr = c.checkScope(fork.ResultExpr(), idx.Child(2), dims)
		return firstErr == nil
	})
	return firstErr
}

func (c *StructureCheck) checkScope(expr ast.Node, idx ast.Index, dims inspect.Dimensions) error {
	if !c.env.IsAggregated(expr) {
		return nil
	}
	for _, f := range c.env.FreeFields(expr) {
		if dims.Contains(ast.Key(f)) {
			continue
		}
		return &InvalidQueryStructureError{
			Diagnostic: diagnose(f, idx),
			Message:    "field is neither aggregated nor a dimension " + dims.String(),
		}
	}
	return nil
}
