package translate

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
)

// Context describes the call an Impl is rendering.
type Context struct {
	// Name is the function or operator name.
	Name string

	// Dialect is the atomic target.
	Dialect dialect.Combo

	// Family is the target's family.
	Family dialect.Family

	// Node is the call being translated.
	Node ast.Node

	// ArgNodes are the untranslated operands, for impls that need constants.
	ArgNodes []ast.Node

	// ArgTypes are the operand types.
	ArgTypes []dtype.DataType

	// Return is the call's result type.
	Return dtype.DataType

	// Within holds the translated WITHIN partition of a window call.
	Within []Expr

	reg *Registry
}

// NativeType returns the backend type name for t.
func (c *Context) NativeType(t dtype.DataType) (string, error) {
	name, ok := c.reg.NativeType(t, c.Dialect)
	if !ok {
		return "", c.Errorf("no native type for %s", t)
	}
	return name, nil
}

// ConstString returns the value of argument i when it is a string literal.
func (c *Context) ConstString(i int) (string, bool) {
	if i >= len(c.ArgNodes) {
		return "", false
	}
	lit, ok := c.ArgNodes[i].(*ast.Literal)
	if !ok || lit.Type() != dtype.String {
		return "", false
	}
	return lit.Value().(string), true
}

// Errorf builds a TranslationError for the current call.
func (c *Context) Errorf(format string, args ...any) error {
	var pos ast.Pos
	if c.Node != nil {
		pos = c.Node.Meta().Pos
	}
	return &TranslationError{
		Name:     c.Name,
		ArgTypes: c.ArgTypes,
		Dialect:  c.Dialect,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}
