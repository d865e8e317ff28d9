package std

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

// DateUnits are the units accepted by dateadd and datetrunc.
var DateUnits = []string{"year", "quarter", "month", "week", "day", "hour", "minute", "second"}

// Unit returns the lowercased constant unit argument i of the call.
func Unit(ctx *translate.Context, i int) (string, error) {
	raw, ok := ctx.ConstString(i)
	if !ok {
		return "", ctx.Errorf("date unit must be a string constant")
	}
	unit := strings.ToLower(strings.TrimSpace(raw))
	for _, u := range DateUnits {
		if u == unit {
			return unit, nil
		}
	}
	return "", ctx.Errorf("unknown date unit %q", raw)
}

func dateFuncs() []definition {
	return []definition{
		def("year",
			on(anywhere, template("EXTRACT(YEAR FROM ?)")),
			on(dialect.CLICKHOUSE, translate.Fn("toYear")),
			on(dialect.MSSQLSRV, translate.Fn("YEAR")),
		),
		def("month",
			on(anywhere, template("EXTRACT(MONTH FROM ?)")),
			on(dialect.CLICKHOUSE, translate.Fn("toMonth")),
			on(dialect.MSSQLSRV, translate.Fn("MONTH")),
		),
		def("day",
			on(anywhere, template("EXTRACT(DAY FROM ?)")),
			on(dialect.CLICKHOUSE, translate.Fn("toDayOfMonth")),
			on(dialect.MSSQLSRV, translate.Fn("DAY")),
		),
		def("now",
			on(anywhere, template("CURRENT_TIMESTAMP")),
			on(dialect.CLICKHOUSE, template("now()")),
			on(dialect.MSSQLSRV, template("SYSUTCDATETIME()")),
		),
		def("datetrunc",
			on(anywhere, dateTrunc),
			on(dialect.CLICKHOUSE, clickhouseDateTrunc),
		),
		def("dateadd",
			on(anywhere, dateAdd),
			on(dialect.CLICKHOUSE, clickhouseDateAdd),
			on(dialect.MSSQLSRV, mssqlDateAdd),
		),
	}
}

func dateTrunc(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("DATE_TRUNC('%s', ?)", unit), args[0]), nil
}

func clickhouseDateTrunc(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	fn := map[string]string{
		"year":    "toStartOfYear",
		"quarter": "toStartOfQuarter",
		"month":   "toStartOfMonth",
		"week":    "toMonday",
		"day":     "toStartOfDay",
		"hour":    "toStartOfHour",
		"minute":  "toStartOfMinute",
		"second":  "toStartOfSecond",
	}[unit]
	return sq.Expr(fn+"(?)", args[0]), nil
}

func dateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("(? + ? * INTERVAL '1' %s)", strings.ToUpper(unit)), args[0], args[2]), nil
}

func clickhouseDateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	fn := "add" + strings.ToUpper(unit[:1]) + unit[1:] + "s"
	return sq.Expr(fn+"(?, ?)", args[0], args[2]), nil
}

func mssqlDateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("DATEADD(%s, ?, ?)", unit), args[2], args[0]), nil
}
