// Package std holds the standard translation variants: generic ANSI-style
// renderings registered for every dialect, plus overrides for families that
// have no connector package of their own (ClickHouse, MSSQL, Oracle,
// BigQuery and friends).
//
// Connector packages register the SQLite, PostgreSQL and MySQL overrides.
// Overrides for one family must be registered in exactly one place: two
// equally specific variants fail Freeze.
package std

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

type definition struct {
	name     string
	variants []translate.Variant
}

func def(name string, variants ...translate.Variant) definition {
	return definition{name: name, variants: variants}
}

// Register adds every standard variant and default native type to b.
func Register(b *translate.Builder) error {
	if err := registerTypes(b); err != nil {
		return err
	}
	groups := [][]definition{
		operatorFuncs(),
		aggregateFuncs(),
		stringFuncs(),
		dateFuncs(),
		castFuncs(),
		nativeFuncs(),
		windowFuncs(),
	}
	for _, group := range groups {
		for _, d := range group {
			if err := b.Register(d.name, d.variants...); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewRegistry returns a frozen registry with only the standard variants.
func NewRegistry() (*translate.Registry, error) {
	b := translate.NewBuilder()
	if err := Register(b); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// anywhere is every registered dialect point.
var anywhere = dialect.Any()

// except returns every dialect point outside the given families.
func except(families ...dialect.Family) dialect.Combo {
	skip := map[dialect.Family]bool{}
	for _, f := range families {
		skip[f] = true
	}
	c := dialect.Empty
	for _, f := range dialect.Families() {
		if !skip[f] {
			c = c.Union(f.All())
		}
	}
	return c
}

// reorder is a template whose placeholders consume the arguments in the
// given order instead of left to right.
func reorder(sql string, order ...int) translate.Impl {
	return func(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
		picked := make([]any, len(order))
		for i, o := range order {
			if o >= len(args) {
				return nil, ctx.Errorf("template %q needs argument %d, got %d", sql, o, len(args))
			}
			picked[i] = args[o]
		}
		return sq.Expr(sql, picked...), nil
	}
}
