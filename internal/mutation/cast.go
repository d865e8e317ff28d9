package mutation

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/inspect"
)

// CastInsertion wraps operands whose inferred type differs from the
// matched signature in a call to the target type's cast function.
type CastInsertion struct {
	env *inspect.Env
}

// NewCastInsertion builds the pass over env.
func NewCastInsertion(env *inspect.Env) *CastInsertion {
	return &CastInsertion{env: env}
}

func (m *CastInsertion) Match(n ast.Node, _ ast.Index, _ []ast.Node) bool {
	switch n.(type) {
	case *ast.FuncCall, *ast.UnaryOp, *ast.BinaryOp, *ast.TernaryOp:
		return true
	default:
		return false
	}
}

func (m *CastInsertion) Replace(n ast.Node, _ ast.Index, _ []ast.Node) (ast.Node, error) {
	name, operands := callShape(n)
	res, err := m.env.Resolve(name, operands, n.Meta().Pos)
	if err != nil {
		return nil, err
	}
	if len(res.Casts) == 0 {
		return n, nil
	}

	children := ast.Children(n)
	for _, c := range res.Casts {
		wrapped, err := castTo(operands[c.Arg], c.To)
		if err != nil {
			return nil, err
		}
		// Operands are always the leading children.
		children[c.Arg] = wrapped
	}
	return ast.Build(func() ast.Node { return ast.WithChildren(n, children) })
}

// callShape returns the catalog name and value operands of a call-like node.
func callShape(n ast.Node) (string, []ast.Node) {
	switch v := n.(type) {
	case *ast.FuncCall:
		return v.Name(), v.Args()
	case *ast.UnaryOp:
		return v.Op(), []ast.Node{v.Operand()}
	case *ast.BinaryOp:
		return v.Op(), []ast.Node{v.Left(), v.Right()}
	case *ast.TernaryOp:
		a, b, c := v.Operands()
		return v.Op(), []ast.Node{a, b, c}
	default:
		panic(fmt.Sprintf("mutation: %s is not a call", n.Kind()))
	}
}

func castTo(n ast.Node, to dtype.DataType) (ast.Node, error) {
	fn, ok := dtype.CastFunction(to)
	if !ok {
		return nil, fmt.Errorf("no cast function for type %s", to)
	}
	return ast.At(ast.Call(fn, n), n.Meta()), nil
}
