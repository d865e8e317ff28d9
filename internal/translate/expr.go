package translate

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
)

// Expr is a translated SQL expression together with its formula type.
type Expr interface {
	sq.Sqlizer
	Type() dtype.DataType
}

type typedExpr struct {
	sq.Sqlizer
	typ dtype.DataType
}

func (e typedExpr) Type() dtype.DataType { return e.typ }

// NewExpr builds an expression from a template. Each "?" in sql consumes
// one arg; Sqlizer args (including other Exprs) are spliced in place.
func NewExpr(typ dtype.DataType, sql string, args ...any) Expr {
	return typedExpr{Sqlizer: sq.Expr(sql, args...), typ: typ}
}

// Typed attaches a formula type to an arbitrary Sqlizer.
func Typed(typ dtype.DataType, s sq.Sqlizer) Expr {
	if e, ok := s.(typedExpr); ok {
		e.typ = typ
		return e
	}
	return typedExpr{Sqlizer: s, typ: typ}
}

// Args converts expressions into squirrel template arguments.
func Args(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

// PlaceholderFormat returns the squirrel placeholder format of f.
func PlaceholderFormat(f dialect.Family) sq.PlaceholderFormat {
	switch f.Placeholder() {
	case dialect.PlaceholderDollar:
		return sq.Dollar
	case dialect.PlaceholderColon:
		return sq.Colon
	case dialect.PlaceholderAtP:
		return sq.AtP
	default:
		return sq.Question
	}
}

// Render serializes s for family f, numbering placeholders as f expects.
func Render(s sq.Sqlizer, f dialect.Family) (string, []any, error) {
	sql, args, err := s.ToSql()
	if err != nil {
		return "", nil, err
	}
	sql, err = PlaceholderFormat(f).ReplacePlaceholders(sql)
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}
