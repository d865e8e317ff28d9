package inspect

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
)

// UndefinedFunctionError reports a call to a name missing from the catalog.
type UndefinedFunctionError struct {
	Name string
	Pos  ast.Pos
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("%s: unknown function %s", e.Pos, e.Name)
}

// InferType returns the data type n evaluates to.
func (e *Env) InferType(n ast.Node) (dtype.DataType, error) {
	if t, ok := e.types[n]; ok {
		return t, nil
	}
	t, err := e.inferType(n)
	if err != nil {
		return dtype.Unsupported, err
	}
	e.types[n] = t
	return t, nil
}

func (e *Env) inferType(n ast.Node) (dtype.DataType, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return v.Type(), nil
	case *ast.Null:
		return dtype.Null, nil
	case *ast.Field:
		t, ok := e.fieldTypes[v.Name()]
		if !ok {
			return dtype.Unsupported, &UnknownFieldError{Name: v.Name(), Pos: v.Meta().Pos}
		}
		return t, nil
	case *ast.FuncCall:
		res, err := e.Resolve(v.Name(), v.Args(), v.Meta().Pos)
		if err != nil {
			return dtype.Unsupported, err
		}
		return res.Return(), nil
	case *ast.UnaryOp:
		res, err := e.Resolve(v.Op(), []ast.Node{v.Operand()}, v.Meta().Pos)
		if err != nil {
			return dtype.Unsupported, err
		}
		return res.Return(), nil
	case *ast.BinaryOp:
		res, err := e.Resolve(v.Op(), []ast.Node{v.Left(), v.Right()}, v.Meta().Pos)
		if err != nil {
			return dtype.Unsupported, err
		}
		return res.Return(), nil
	case *ast.TernaryOp:
		a, b, c := v.Operands()
		res, err := e.Resolve(v.Op(), []ast.Node{a, b, c}, v.Meta().Pos)
		if err != nil {
			return dtype.Unsupported, err
		}
		return res.Return(), nil
	case *ast.QueryFork:
		return e.InferType(v.ResultExpr())
	case *ast.ErrorNode:
		return dtype.Unsupported, fmt.Errorf("%s: unparsed formula fragment: %s", v.Meta().Pos, v.Message())
	case *ast.LodSpecifier, *ast.SelfCondition, *ast.JoiningCondition:
		return dtype.Unsupported, fmt.Errorf("%s node has no value type", n.Kind())
	default:
		panic(fmt.Sprintf("inspect: unhandled node type %T", n))
	}
}

// ArgTypes infers the type of every argument.
func (e *Env) ArgTypes(args []ast.Node) ([]dtype.DataType, error) {
	types := make([]dtype.DataType, len(args))
	for i, a := range args {
		t, err := e.InferType(a)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// Resolve matches a call of name with args against the catalog.
func (e *Env) Resolve(name string, args []ast.Node, pos ast.Pos) (funcs.Resolution, error) {
	def, ok := e.catalog.Lookup(name)
	if !ok {
		return funcs.Resolution{}, &UndefinedFunctionError{Name: name, Pos: pos}
	}
	types, err := e.ArgTypes(args)
	if err != nil {
		return funcs.Resolution{}, err
	}
	return funcs.Match(def, types)
}
