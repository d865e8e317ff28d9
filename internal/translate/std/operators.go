package std

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
)

var (
	on       = translate.V
	template = translate.Template
	infix    = translate.Infix
)

func operatorFuncs() []definition {
	return []definition{
		def("+",
			on(anywhere, plus),
			on(dialect.CLICKHOUSE, clickhousePlus),
			on(dialect.MSSQLSRV, mssqlPlus),
		),
		def("-", on(anywhere, minus)),
		def("*", on(anywhere, infix("*"))),
		def("/", on(anywhere, infix("/"))),
		def("%",
			on(anywhere, template("MOD(?, ?)")),
			on(dialect.CLICKHOUSE, template("modulo(?, ?)")),
			on(dialect.MSSQLSRV, infix("%")),
		),
		def("^", on(anywhere, template("POWER(?, ?)"))),
		def("neg", on(anywhere, template("(-?)"))),

		def("==", on(anywhere, infix("="))),
		def("!=", on(anywhere, infix("<>"))),
		def("<", on(anywhere, infix("<"))),
		def("<=", on(anywhere, infix("<="))),
		def(">", on(anywhere, infix(">"))),
		def(">=", on(anywhere, infix(">="))),
		def("between", on(anywhere, template("(? BETWEEN ? AND ?)"))),
		def("notbetween", on(anywhere, template("(? NOT BETWEEN ? AND ?)"))),
		def("in", on(anywhere, template("(? IN (?))"))),
		def("notin", on(anywhere, template("(? NOT IN (?))"))),
		def("and", on(anywhere, infix("AND"))),
		def("or", on(anywhere, infix("OR"))),
		def("not", on(anywhere, template("(NOT ?)"))),
		def("like", on(anywhere, infix("LIKE"))),
		def("notlike", on(anywhere, infix("NOT LIKE"))),
		def("isnull", on(anywhere, template("(? IS NULL)"))),
		def("isnotnull", on(anywhere, template("(? IS NOT NULL)"))),

		def("if",
			on(anywhere, template("CASE WHEN ? THEN ? ELSE ? END")),
			on(dialect.CLICKHOUSE, template("if(?, ?, ?)")),
		),
		def("ifnull",
			on(anywhere, template("COALESCE(?, ?)")),
			on(dialect.CLICKHOUSE, template("ifNull(?, ?)")),
			on(dialect.MSSQLSRV, template("ISNULL(?, ?)")),
		),
	}
}

// Date arithmetic counts in days; fractional days apply to datetimes.

func plus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch ctx.Return {
	case dtype.String:
		return sq.Expr("(? || ?)", args[0], args[1]), nil
	case dtype.Datetime:
		return sq.Expr("(? + ? * INTERVAL '1' DAY)", args[0], args[1]), nil
	default:
		return sq.Expr("(? + ?)", args[0], args[1]), nil
	}
}

func minus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch {
	case ctx.Return == dtype.Datetime:
		return sq.Expr("(? - ? * INTERVAL '1' DAY)", args[0], args[1]), nil
	case ctx.Return == dtype.Float && ctx.ArgTypes[0] == dtype.Datetime:
		return sq.Expr("((EXTRACT(EPOCH FROM ?) - EXTRACT(EPOCH FROM ?)) / 86400.0)", args[0], args[1]), nil
	default:
		return sq.Expr("(? - ?)", args[0], args[1]), nil
	}
}

func clickhousePlus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch ctx.Return {
	case dtype.String:
		return sq.Expr("concat(?, ?)", args[0], args[1]), nil
	case dtype.Datetime:
		return sq.Expr("addSeconds(?, toInt64(? * 86400))", args[0], args[1]), nil
	default:
		return sq.Expr("(? + ?)", args[0], args[1]), nil
	}
}

func mssqlPlus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch ctx.Return {
	case dtype.Date, dtype.Datetime:
		return sq.Expr("DATEADD(second, CAST(? * 86400 AS BIGINT), ?)", args[1], args[0]), nil
	default:
		return sq.Expr("(? + ?)", args[0], args[1]), nil
	}
}
