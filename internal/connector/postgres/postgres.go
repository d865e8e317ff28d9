// Package postgres is the PostgreSQL connector. The database/sql driver is
// pgx in stdlib mode.
package postgres

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

// Plugin is the PostgreSQL connector.
var Plugin = connector.Plugin{
	Family:       dialect.PostgreSQL,
	DriverName:   "pgx",
	VersionQuery: "SHOW server_version",
	Types: std.TypeNames{Names: map[dtype.DataType]string{
		dtype.Integer:         "BIGINT",
		dtype.Float:           "DOUBLE PRECISION",
		dtype.String:          "TEXT",
		dtype.Boolean:         "BOOLEAN",
		dtype.Date:            "DATE",
		dtype.Datetime:        "TIMESTAMP",
		dtype.GenericDatetime: "TIMESTAMP",
		dtype.UUID:            "UUID",
	}},
	Register: register,
}

func register(b *translate.Builder) error {
	defs := []struct {
		name string
		impl translate.Impl
	}{
		{"contains", translate.Template("(STRPOS(?, ?) > 0)")},
		{"datetrunc", dateTrunc},
		{"dateadd", dateAdd},
		{"^", translate.Template("POWER(CAST(? AS DOUBLE PRECISION), ?)")},
	}
	for _, d := range defs {
		if err := b.Register(d.name, translate.V(dialect.POSTGRESQL, d.impl)); err != nil {
			return err
		}
	}
	return nil
}

// interval renders "n units" as a PostgreSQL interval multiplication.
func interval(unit string) string {
	if unit == "quarter" {
		return "? * INTERVAL '3 month'"
	}
	return fmt.Sprintf("? * INTERVAL '1 %s'", unit)
}

func dateTrunc(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("DATE_TRUNC('%s', ?)", unit)
	if ctx.Return == dtype.Date {
		sql = "CAST(" + sql + " AS DATE)"
	}
	return sq.Expr(sql, args[0]), nil
}

func dateAdd(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	unit, err := std.Unit(ctx, 1)
	if err != nil {
		return nil, err
	}
	sql := "(? + " + interval(unit) + ")"
	if ctx.Return == dtype.Date {
		sql = "CAST" + sql[:len(sql)-1] + " AS DATE)"
	}
	return sq.Expr(sql, args[0], args[2]), nil
}
