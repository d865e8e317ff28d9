package std

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
)

// castNames are the cast functions, one per target type.
var castNames = []string{"int", "float", "str", "bool", "date", "datetime", "genericdatetime"}

func castFuncs() []definition {
	out := make([]definition, 0, len(castNames))
	for _, name := range castNames {
		out = append(out, def(name,
			on(anywhere, Cast),
			on(dialect.CLICKHOUSE, clickhouseCast),
		))
	}
	return out
}

// Cast renders CAST(arg AS native) with the registered native name of the
// call's return type. Casts to the argument's own type render the argument.
func Cast(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	if len(args) == 1 && args[0].Type() == ctx.Return {
		return args[0], nil
	}
	native, err := ctx.NativeType(ctx.Return)
	if err != nil {
		return nil, err
	}
	return sq.Expr("CAST(? AS "+native+")", args[0]), nil
}

func clickhouseCast(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	if args[0].Type() == ctx.Return {
		return args[0], nil
	}
	fn := map[dtype.DataType]string{
		dtype.Integer:         "toInt64",
		dtype.Float:           "toFloat64",
		dtype.String:          "toString",
		dtype.Boolean:         "toBool",
		dtype.Date:            "toDate",
		dtype.Datetime:        "toDateTime",
		dtype.GenericDatetime: "toDateTime",
	}[ctx.Return]
	if fn == "" {
		return nil, ctx.Errorf("no cast to %s", ctx.Return)
	}
	return sq.Expr(fn+"(?)", args[0]), nil
}
