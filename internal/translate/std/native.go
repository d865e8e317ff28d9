package std

import (
	"regexp"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/translate"
)

// nativeName is the shape of a callable backend function name, optionally
// schema-qualified.
var nativeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func nativeFuncs() []definition {
	return []definition{
		def("db_call_int", on(anywhere, NativeCall)),
		def("db_call_float", on(anywhere, NativeCall)),
		def("db_call_str", on(anywhere, NativeCall)),
		def("db_call_bool", on(anywhere, NativeCall)),
	}
}

// NativeCall renders a call to a backend function named by the first
// argument, which must be a string constant holding a plain identifier.
func NativeCall(ctx *translate.Context, args []translate.Expr) (sq.Sqlizer, error) {
	name, ok := ctx.ConstString(0)
	if !ok {
		return nil, ctx.Errorf("native function name must be a string constant")
	}
	if !nativeName.MatchString(name) {
		return nil, ctx.Errorf("invalid native function name %q", name)
	}
	return translate.Call(name, args[1:]...), nil
}
