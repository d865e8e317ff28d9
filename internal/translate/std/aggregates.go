package std

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

func aggregateFuncs() []definition {
	return []definition{
		def("sum", on(anywhere, translate.Fn("SUM"))),
		def("avg",
			on(anywhere, translate.Fn("AVG")),
			on(dialect.CLICKHOUSE, translate.Fn("avg")),
		),
		def("min", on(anywhere, translate.Fn("MIN"))),
		def("max", on(anywhere, translate.Fn("MAX"))),
		def("count", on(anywhere, count)),
		def("countd",
			on(anywhere, template("COUNT(DISTINCT ?)")),
			on(dialect.CLICKHOUSE, template("uniqExact(?)")),
		),
	}
}

func count(_ *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	if len(args) == 0 {
		return sq.Expr("COUNT(*)"), nil
	}
	return sq.Expr("COUNT(?)", args[0]), nil
}
