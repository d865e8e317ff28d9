package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/formulon/internal/dtype"
)

// CompileDataset parses a CUE value into a Dataset.
//
// The value is the dataset struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`datasets: orders: { table: "orders", fields: { ... } }`)
//	ds, err := CompileDataset(v.LookupPath(cue.ParsePath("datasets.orders")))
//
// Fields keep their declaration order.
func CompileDataset(v cue.Value) (*Dataset, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ds := &Dataset{Name: lastLabel(v)}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{Field: "table", Message: "table is required", Pos: v.Pos()}
	}
	table, err := tableVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	ds.Table = table

	if cv := v.LookupPath(cue.ParsePath("connector")); cv.Exists() {
		if ds.Connector, err = cv.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "at least one field is required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		ds.Fields = append(ds.Fields, f)
	}
	if len(ds.Fields) == 0 {
		return nil, &CompileError{Field: "fields", Message: "at least one field is required", Pos: fieldsVal.Pos()}
	}
	return ds, nil
}

// parseField accepts a type name or {type, formula}.
func parseField(name string, v cue.Value) (Field, error) {
	f := Field{Name: name}
	typeVal := v
	if v.Kind() == cue.StructKind {
		typeVal = v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return f, &CompileError{Field: "fields." + name, Message: "type is required", Pos: v.Pos()}
		}
		if fv := v.LookupPath(cue.ParsePath("formula")); fv.Exists() {
			n, err := CompileFormula(fv)
			if err != nil {
				return f, err
			}
			f.Formula = n
		}
	}
	s, err := typeVal.String()
	if err != nil {
		return f, formatCUEError(err)
	}
	t, err := dtype.Parse(s)
	if err != nil {
		return f, &CompileError{Field: "fields." + name, Message: err.Error(), Pos: typeVal.Pos()}
	}
	f.Type = t
	return f, nil
}

func lastLabel(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1].String()
}

func lookupInt(v cue.Value, key string) (*int, error) {
	iv := v.LookupPath(cue.ParsePath(key))
	if !iv.Exists() {
		return nil, nil
	}
	i, err := iv.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	n := int(i)
	return &n, nil
}

func lookupString(v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// goValue decodes a CUE scalar into the Go value a result cell would hold.
func goValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.IntKind:
		i, err := v.Int64()
		return i, formatCUEError(err)
	case cue.FloatKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	default:
		return nil, &CompileError{Field: "value", Message: fmt.Sprintf("expected a scalar, got %s", v.Kind()), Pos: v.Pos()}
	}
}
