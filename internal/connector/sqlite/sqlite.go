// Package sqlite is the SQLite connector.
package sqlite

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

// Plugin is the SQLite connector.
var Plugin = connector.Plugin{
	Family:       dialect.SQLite,
	DriverName:   "sqlite3",
	VersionQuery: "SELECT sqlite_version()",
	Types: std.TypeNames{Names: map[dtype.DataType]string{
		dtype.Integer:         "INTEGER",
		dtype.Float:           "REAL",
		dtype.String:          "TEXT",
		dtype.Boolean:         "INTEGER",
		dtype.Date:            "TEXT",
		dtype.Datetime:        "TEXT",
		dtype.GenericDatetime: "TEXT",
		dtype.UUID:            "TEXT",
	}},
	Register: register,
}

func register(b *translate.Builder) error {
	defs := []struct {
		name string
		impl translate.Impl
	}{
		{"+", plus},
		{"-", minus},
		{"/", translate.Template("(CAST(? AS REAL) / ?)")},
		{"%", translate.Infix("%")},
		{"len", translate.Fn("LENGTH")},
		{"contains", translate.Template("(INSTR(?, ?) > 0)")},
		{"year", translate.Template("CAST(strftime('%Y', ?) AS INTEGER)")},
		{"month", translate.Template("CAST(strftime('%m', ?) AS INTEGER)")},
		{"day", translate.Template("CAST(strftime('%d', ?) AS INTEGER)")},
		{"datetrunc", dateTrunc},
		{"dateadd", dateAdd},
		{"date", temporalCast("date")},
		{"datetime", temporalCast("datetime")},
		{"genericdatetime", temporalCast("datetime")},
	}
	for _, d := range defs {
		if err := b.Register(d.name, translate.V(dialect.SQLITE, d.impl)); err != nil {
			return err
		}
	}
	return nil
}

// Dates are stored as ISO-8601 text; day arithmetic goes through the date
// and datetime modifiers.

func plus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch ctx.Return {
	case dtype.String:
		return sq.Expr("(? || ?)", args[0], args[1]), nil
	case dtype.Date:
		return sq.Expr("date(?, ? || ' days')", args[0], args[1]), nil
	case dtype.Datetime:
		return sq.Expr("datetime(?, (? * 86400) || ' seconds')", args[0], args[1]), nil
	default:
		return sq.Expr("(? + ?)", args[0], args[1]), nil
	}
}

func minus(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	switch {
	case ctx.Return == dtype.Date:
		return sq.Expr("date(?, (-?) || ' days')", args[0], args[1]), nil
	case ctx.Return == dtype.Datetime:
		return sq.Expr("datetime(?, (-? * 86400) || ' seconds')", args[0], args[1]), nil
	case ctx.ArgTypes[0] == dtype.Date:
		return sq.Expr("CAST(julianday(?) - julianday(?) AS INTEGER)", args[0], args[1]), nil
	case ctx.ArgTypes[0] == dtype.Datetime:
		return sq.Expr("(julianday(?) - julianday(?))", args[0], args[1]), nil
	default:
		return sq.Expr("(? - ?)", args[0], args[1]), nil
	}
}

func dateTrunc(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	fn := "date"
	if ctx.Return == dtype.Datetime {
		fn = "datetime"
	}
	switch unit {
	case "year", "month", "day":
		return sq.Expr(fmt.Sprintf("%s(?, 'start of %s')", fn, unit), args[0]), nil
	case "week":
		return sq.Expr(fn+"(?, 'weekday 0', '-6 days')", args[0]), nil
	case "hour":
		return sq.Expr("strftime('%Y-%m-%d %H:00:00', ?)", args[0]), nil
	case "minute":
		return sq.Expr("strftime('%Y-%m-%d %H:%M:00', ?)", args[0]), nil
	case "second":
		return sq.Expr("strftime('%Y-%m-%d %H:%M:%S', ?)", args[0]), nil
	default:
		return nil, ctx.Errorf("date unit %q is not supported", unit)
	}
}

func dateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	fn := "date"
	if ctx.Return == dtype.Datetime {
		fn = "datetime"
	}
	switch unit {
	case "quarter":
		return sq.Expr(fn+"(?, (? * 3) || ' months')", args[0], args[2]), nil
	case "week":
		return sq.Expr(fn+"(?, (? * 7) || ' days')", args[0], args[2]), nil
	default:
		return sq.Expr(fmt.Sprintf("%s(?, ? || ' %ss')", fn, unit), args[0], args[2]), nil
	}
}

func temporalCast(fn string) translate.Impl {
	return func(_ *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
		return sq.Expr(fn+"(?)", args[0]), nil
	}
}
