package mutation

import (
	"github.com/roach88/formulon/internal/ast"
)

// BFBChecker validates that every BEFORE FILTER BY entry names a known
// field id. It never rewrites the tree.
//
// Apply visits children before parents, so an error inside a nested
// aggregation scope is reported before any error of the enclosing call.
type BFBChecker struct {
	fieldIDs map[string]bool
}

// NewBFBChecker builds a checker over the given field ids.
func NewBFBChecker(fieldIDs map[string]bool) *BFBChecker {
	return &BFBChecker{fieldIDs: fieldIDs}
}

func (c *BFBChecker) Match(n ast.Node, _ ast.Index, _ []ast.Node) bool {
	fc, ok := n.(*ast.FuncCall)
	return ok && len(fc.BeforeFilterBy()) > 0
}

func (c *BFBChecker) Replace(n ast.Node, idx ast.Index, _ []ast.Node) (ast.Node, error) {
	fc := n.(*ast.FuncCall)
	children := ast.Children(fc)
	first := len(children) - len(fc.BeforeFilterBy())
	for i, f := range fc.BeforeFilterBy() {
		if c.fieldIDs[f.Name()] {
			continue
		}
		return nil, &UnknownBFBFieldError{
			Diagnostic: diagnose(f, idx.Child(first+i)),
			Field:      f.Name(),
		}
	}
	return n, nil
}

// CheckBFB runs BFBChecker over root.
func CheckBFB(root ast.Node, fieldIDs map[string]bool) error {
	_, err := Apply(root, NewBFBChecker(fieldIDs))
	return err
}
