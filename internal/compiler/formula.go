package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"github.com/shopspring/decimal"

	"github.com/roach88/formulon/internal/ast"
)

// CompileFormula decodes a formula written as CUE data.
//
// A bare string names a field and a bare number or bool is a literal.
// Structs select the node kind by their key:
//
//	{field: "Sales"}
//	{lit: "East"}                  // string, number or bool
//	{date: "2024-01-31"}
//	{datetime: "2024-01-31T10:00:00Z"}
//	{null: true}
//	{call: "SUM", args: [...], fixed: [...], within: [...], bfb: ["Region"]}
//	{op: ">", args: [...]}         // 1, 2 or 3 args: unary, binary, ternary
//
// include and exclude replace fixed for the other LOD directives.
func CompileFormula(v cue.Value) (ast.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	var (
		out  ast.Node
		perr error
	)
	n, err := ast.Build(func() ast.Node {
		out, perr = decodeFormula(v)
		return out
	})
	if perr != nil {
		return nil, perr
	}
	if err != nil {
		return nil, &CompileError{Field: "formula", Message: err.Error(), Pos: v.Pos()}
	}
	return n, nil
}

func decodeFormula(v cue.Value) (ast.Node, error) {
	meta := ast.Meta{Pos: astPos(v.Pos())}
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		return ast.At(ast.NewField(s), meta), nil
	case cue.IntKind, cue.FloatKind, cue.BoolKind:
		lit, err := decodeLiteral(v)
		if err != nil {
			return nil, err
		}
		return ast.At(lit, meta), nil
	case cue.NullKind:
		return ast.At(ast.NewNull(), meta), nil
	case cue.StructKind:
	default:
		return nil, &CompileError{Field: "formula", Message: fmt.Sprintf("unexpected %s", v.Kind()), Pos: v.Pos()}
	}

	switch {
	case has(v, "field"):
		s, err := lookup(v, "field").String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ast.At(ast.NewField(s), meta), nil
	case has(v, "lit"):
		lit, err := decodeLiteral(lookup(v, "lit"))
		if err != nil {
			return nil, err
		}
		return ast.At(lit, meta), nil
	case has(v, "date"), has(v, "datetime"):
		return decodeTime(v, meta)
	case has(v, "null"):
		return ast.At(ast.NewNull(), meta), nil
	case has(v, "call"):
		return decodeCall(v, meta)
	case has(v, "op"):
		return decodeOp(v, meta)
	default:
		return nil, &CompileError{
			Field:   "formula",
			Message: "expected one of field, lit, date, datetime, null, call or op",
			Pos:     v.Pos(),
		}
	}
}

// lookup selects the struct field key. Keys are quoted labels so that
// keywords such as null are not parsed as values.
func lookup(v cue.Value, key string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(key)))
}

func has(v cue.Value, key string) bool {
	return lookup(v, key).Exists()
}

func decodeLiteral(v cue.Value) (*ast.Literal, error) {
	switch v.Kind() {
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ast.NewInt(i), nil
	case cue.FloatKind:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return nil, &CompileError{Field: "lit", Message: err.Error(), Pos: v.Pos()}
		}
		return ast.NewFloat(d), nil
	case cue.StringKind:
		s, _ := v.String()
		return ast.NewString(s), nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return ast.NewBool(b), nil
	default:
		return nil, &CompileError{Field: "lit", Message: fmt.Sprintf("unsupported literal kind %s", v.Kind()), Pos: v.Pos()}
	}
}

func decodeTime(v cue.Value, meta ast.Meta) (ast.Node, error) {
	key, layout := "date", time.DateOnly
	if has(v, "datetime") {
		key, layout = "datetime", time.RFC3339
	}
	sv := lookup(v, key)
	s, err := sv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, err := time.Parse(layout, s)
	if err != nil && key == "datetime" {
		t, err = time.Parse(time.DateTime, s)
	}
	if err != nil {
		return nil, &CompileError{Field: key, Message: fmt.Sprintf("invalid %s %q", key, s), Pos: sv.Pos()}
	}
	if key == "date" {
		return ast.At(ast.NewDate(t), meta), nil
	}
	return ast.At(ast.NewDatetime(t), meta), nil
}

func decodeList(v cue.Value, key string) ([]ast.Node, error) {
	lv := lookup(v, key)
	if !lv.Exists() {
		return nil, nil
	}
	it, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ast.Node
	for it.Next() {
		n, err := decodeFormula(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeCall(v cue.Value, meta ast.Meta) (ast.Node, error) {
	name, err := lookup(v, "call").String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	args, err := decodeList(v, "args")
	if err != nil {
		return nil, err
	}

	var opts []ast.FuncOption
	lods := 0
	for _, d := range []struct {
		key  string
		kind ast.LodKind
	}{{"fixed", ast.LodFixed}, {"include", ast.LodInclude}, {"exclude", ast.LodExclude}} {
		if !has(v, d.key) {
			continue
		}
		lods++
		dims, err := decodeList(v, d.key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ast.WithLod(ast.NewLod(d.kind, dims...)))
	}
	if lods > 1 {
		return nil, &CompileError{Field: "call", Message: fmt.Sprintf("%s: at most one of fixed, include or exclude", name), Pos: v.Pos()}
	}

	within, err := decodeList(v, "within")
	if err != nil {
		return nil, err
	}
	if len(within) > 0 {
		opts = append(opts, ast.WithWithin(within...))
	}

	if has(v, "bfb") {
		var names []string
		if err := lookup(v, "bfb").Decode(&names); err != nil {
			return nil, formatCUEError(err)
		}
		fields := make([]*ast.Field, len(names))
		for i, n := range names {
			fields[i] = ast.NewField(n)
		}
		opts = append(opts, ast.WithBeforeFilterBy(fields...))
	}
	return ast.At(ast.NewFuncCall(name, args, opts...), meta), nil
}

func decodeOp(v cue.Value, meta ast.Meta) (ast.Node, error) {
	op, err := lookup(v, "op").String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	args, err := decodeList(v, "args")
	if err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		return ast.At(ast.NewUnaryOp(op, args[0]), meta), nil
	case 2:
		return ast.At(ast.NewBinaryOp(op, args[0], args[1]), meta), nil
	case 3:
		return ast.At(ast.NewTernaryOp(op, args[0], args[1], args[2]), meta), nil
	default:
		return nil, &CompileError{Field: "op", Message: fmt.Sprintf("%s: expected 1 to 3 args, got %d", op, len(args)), Pos: v.Pos()}
	}
}
