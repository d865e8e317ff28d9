package translate

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Call renders name(arg, ...).
func Call(name string, args ...Expr) sq.Sqlizer {
	return sq.Expr(name+"("+placeholders(len(args))+")", Args(args)...)
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// Fn is an Impl rendering a plain function call with every argument.
func Fn(name string) Impl {
	return func(_ *Context, args []Expr) (sq.Sqlizer, error) {
		return Call(name, args...), nil
	}
}

// Template is an Impl splicing the arguments into sql in order. Every "?"
// in sql consumes one argument.
func Template(sql string) Impl {
	want := strings.Count(sql, "?")
	return func(ctx *Context, args []Expr) (sq.Sqlizer, error) {
		if len(args) != want {
			return nil, ctx.Errorf("template %q takes %d arguments, got %d", sql, want, len(args))
		}
		return sq.Expr(sql, Args(args)...), nil
	}
}

// Infix renders a parenthesized binary operator.
func Infix(op string) Impl {
	return Template("(? " + op + " ?)")
}

// Join renders the arguments separated by sep, parenthesized.
func Join(sep string) Impl {
	return func(_ *Context, args []Expr) (sq.Sqlizer, error) {
		return sq.Expr("("+strings.Repeat("?"+sep, max(len(args)-1, 0))+"?)", Args(args)...), nil
	}
}
