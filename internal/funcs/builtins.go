package funcs

import (
	"github.com/roach88/formulon/internal/dtype"
)

const (
	i   = dtype.Integer
	f   = dtype.Float
	s   = dtype.String
	b   = dtype.Boolean
	d   = dtype.Date
	dt  = dtype.Datetime
	gdt = dtype.GenericDatetime
	u   = dtype.UUID
)

var (
	comparable = []dtype.DataType{i, f, s, b, d, dt, gdt, u}
	orderable  = []dtype.DataType{i, f, s, d, dt, gdt}
	numeric    = []dtype.DataType{i, f}
)

func sig(ret dtype.DataType, args ...dtype.DataType) Signature {
	return Signature{Args: args, Return: ret}
}

func variadic(ret dtype.DataType, args ...dtype.DataType) Signature {
	return Signature{Args: args, Variadic: true, Return: ret}
}

// each builds one signature per type t, where build receives t.
func each(types []dtype.DataType, build func(t dtype.DataType) Signature) []Signature {
	out := make([]Signature, len(types))
	for k, t := range types {
		out[k] = build(t)
	}
	return out
}

func op(name string, sigs ...Signature) Definition {
	return Definition{Name: name, Kind: Operator, Signatures: sigs}
}

func scalar(name string, sigs ...Signature) Definition {
	return Definition{Name: name, Kind: Scalar, Signatures: sigs}
}

func aggregate(name string, sigs ...Signature) Definition {
	return Definition{Name: name, Kind: Aggregate, Signatures: sigs, SupportsLOD: true, SupportsBFB: true}
}

func window(name string, sigs ...Signature) Definition {
	return Definition{Name: name, Kind: Window, Signatures: sigs, SupportsBFB: true}
}

func comparison(name string) Definition {
	return op(name, each(comparable, func(t dtype.DataType) Signature { return sig(b, t, t) })...)
}

// BuiltinDefinitions returns the standard function set.
func BuiltinDefinitions() []Definition {
	return []Definition{
		// arithmetic
		op("+", sig(i, i, i), sig(f, f, f), sig(s, s, s), sig(d, d, i), sig(dt, dt, f)),
		op("-", sig(i, i, i), sig(f, f, f), sig(d, d, i), sig(dt, dt, f), sig(i, d, d), sig(f, dt, dt)),
		op("*", sig(i, i, i), sig(f, f, f)),
		op("/", sig(f, f, f)),
		op("%", sig(i, i, i), sig(f, f, f)),
		op("^", sig(f, f, f)),
		op("neg", sig(i, i), sig(f, f)),

		// comparison and logic
		comparison("=="),
		comparison("!="),
		op("<", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op("<=", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op(">", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op(">=", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op("between", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t, t) })...),
		op("notbetween", each(orderable, func(t dtype.DataType) Signature { return sig(b, t, t, t) })...),
		op("in", each(comparable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op("notin", each(comparable, func(t dtype.DataType) Signature { return sig(b, t, t) })...),
		op("and", sig(b, b, b)),
		op("or", sig(b, b, b)),
		op("not", sig(b, b)),
		op("like", sig(b, s, s)),
		op("notlike", sig(b, s, s)),
		op("isnull", sig(b, Any)),
		op("isnotnull", sig(b, Any)),

		// conditionals and nulls
		scalar("if", each(comparable, func(t dtype.DataType) Signature { return sig(t, b, t, t) })...),
		scalar("ifnull", each(comparable, func(t dtype.DataType) Signature { return sig(t, t, t) })...),

		// aggregates
		aggregate("sum", sig(i, i), sig(f, f)),
		aggregate("avg", sig(f, f)),
		aggregate("min", each(orderable, func(t dtype.DataType) Signature { return sig(t, t) })...),
		aggregate("max", each(orderable, func(t dtype.DataType) Signature { return sig(t, t) })...),
		aggregate("count", sig(i), sig(i, Any)),
		aggregate("countd", sig(i, Any)),

		// strings
		scalar("concat", variadic(s, s)),
		scalar("len", sig(i, s)),
		scalar("upper", sig(s, s)),
		scalar("lower", sig(s, s)),
		scalar("contains", sig(b, s, s)),

		// dates
		scalar("dateadd", sig(d, d, s, i), sig(dt, dt, s, i)),
		scalar("datetrunc", sig(d, d, s), sig(dt, dt, s)),
		scalar("year", sig(i, d), sig(i, dt)),
		scalar("month", sig(i, d), sig(i, dt)),
		scalar("day", sig(i, d), sig(i, dt)),
		scalar("now", sig(dt)),

		// casts
		scalar("int", sig(i, i), sig(i, f), sig(i, s), sig(i, b)),
		scalar("float", sig(f, f), sig(f, i), sig(f, s), sig(f, b)),
		scalar("str", sig(s, Any)),
		scalar("bool", sig(b, b), sig(b, i), sig(b, f), sig(b, s)),
		scalar("date", sig(d, d), sig(d, dt), sig(d, gdt), sig(d, s)),
		scalar("datetime", sig(dt, dt), sig(dt, d), sig(dt, gdt), sig(dt, s), sig(dt, i)),
		scalar("genericdatetime", sig(gdt, gdt), sig(gdt, dt), sig(gdt, d), sig(gdt, s)),

		// native calls
		scalar("db_call_int", variadic(i, s, Any)),
		scalar("db_call_float", variadic(f, s, Any)),
		scalar("db_call_str", variadic(s, s, Any)),
		scalar("db_call_bool", variadic(b, s, Any)),

		// windows
		window("rsum", sig(i, i), sig(f, f)),
		window("rank", each(orderable, func(t dtype.DataType) Signature { return sig(i, t) })...),
	}
}

// Builtins returns a catalog of BuiltinDefinitions.
func Builtins() *Catalog {
	return MustNewCatalog(BuiltinDefinitions()...)
}
