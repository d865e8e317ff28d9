// Package mysql is the MySQL connector.
package mysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"

	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

// Plugin is the MySQL connector.
var Plugin = connector.Plugin{
	Family:       dialect.MySQL,
	DriverName:   "mysql",
	VersionQuery: "SELECT VERSION()",
	Types: std.TypeNames{Names: map[dtype.DataType]string{
		dtype.Integer:         "SIGNED",
		dtype.Float:           "DOUBLE",
		dtype.String:          "CHAR",
		dtype.Boolean:         "SIGNED",
		dtype.Date:            "DATE",
		dtype.Datetime:        "DATETIME",
		dtype.GenericDatetime: "DATETIME",
		dtype.UUID:            "CHAR(36)",
	}},
	Register: register,
}

func register(b *translate.Builder) error {
	defs := []struct {
		name string
		impl translate.Impl
	}{
		{"+", plus},
		{"concat", translate.Fn("CONCAT")},
		{"contains", translate.Template("(LOCATE(?, ?) > 0)")},
		{"datetrunc", dateTrunc},
		{"dateadd", dateAdd},
		{"now", translate.Template("UTC_TIMESTAMP()")},
	}
	for _, d := range defs {
		if err := b.Register(d.name, translate.V(dialect.MYSQL, d.impl)); err != nil {
			return err
		}
	}
	return nil
}

func plus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch ctx.Return {
	case dtype.String:
		return sq.Expr("CONCAT(?, ?)", args[0], args[1]), nil
	case dtype.Date:
		return sq.Expr("DATE_ADD(?, INTERVAL ? DAY)", args[0], args[1]), nil
	case dtype.Datetime:
		return sq.Expr("TIMESTAMPADD(SECOND, ROUND(? * 86400), ?)", args[1], args[0]), nil
	default:
		return sq.Expr("(? + ?)", args[0], args[1]), nil
	}
}

var truncFormats = map[string]string{
	"month":  "%Y-%m-01",
	"day":    "%Y-%m-%d",
	"hour":   "%Y-%m-%d %H:00:00",
	"minute": "%Y-%m-%d %H:%i:00",
	"second": "%Y-%m-%d %H:%i:%s",
}

func dateTrunc(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	switch unit {
	case "year":
		return sq.Expr("MAKEDATE(YEAR(?), 1)", args[0]), nil
	case "quarter":
		return sq.Expr("MAKEDATE(YEAR(?), 1) + INTERVAL (QUARTER(?) - 1) QUARTER", args[0], args[0]), nil
	case "week":
		return sq.Expr("DATE_SUB(DATE(?), INTERVAL WEEKDAY(?) DAY)", args[0], args[0]), nil
	}
	fn := "DATE"
	if ctx.Return == dtype.Datetime {
		fn = "TIMESTAMP"
	}
	return sq.Expr(fmt.Sprintf("%s(DATE_FORMAT(?, '%s'))", fn, truncFormats[unit]), args[0]), nil
}

func dateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("DATE_ADD(?, INTERVAL ? %s)", strings.ToUpper(unit)), args[0], args[2]), nil
}
