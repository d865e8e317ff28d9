package std

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

// windowed lists the dialect points that support OVER clauses.
var windowed = except(dialect.ClickHouse, dialect.MySQL, dialect.SQLite).
	Union(dialect.ClickHouse.AndAbove("21.8")).
	Union(dialect.MySQL.AndAbove("8.0.12")).
	Union(dialect.SQLite.AndAbove("3.25"))

// Windowed returns the dialect points that support window functions.
func Windowed() dialect.Combo { return windowed }

func windowFuncs() []definition {
	return []definition{
		def("rsum", on(windowed, window("SUM(?)", "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW", false))),
		def("rank", on(windowed, window("RANK()", "", true))),
	}
}

// window renders fn OVER (PARTITION BY within...) where the partition comes
// from the call's WITHIN clause. When orderByArg is set the first argument
// becomes a descending ORDER BY instead of an input to fn.
func window(fn, frame string, orderByArg bool) translate.Impl {
	return func(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
		parts := []any{}
		sql := fn
		if !orderByArg {
			parts = append(parts, args[0])
		}
		over := ""
		if len(ctx.Within) > 0 {
			over = "PARTITION BY " + placeholderList(len(ctx.Within))
			parts = append(parts, translate.Args(ctx.Within)...)
		}
		if orderByArg {
			over = joinClause(over, "ORDER BY ? DESC")
			parts = append(parts, args[0])
		}
		over = joinClause(over, frame)
		return sq.Expr(sql+" OVER ("+over+")", parts...), nil
	}
}

func placeholderList(n int) string {
	s := "?"
	for i := 1; i < n; i++ {
		s += ", ?"
	}
	return s
}

func joinClause(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
