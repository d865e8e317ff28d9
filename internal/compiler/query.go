package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/legend"
)

// CompileQuery parses a CUE value into a Query:
//
//	queries: by_region: {
//		dataset: "orders"
//		dimensions: [{id: 1, title: "Region", formula: "Region"}]
//		measures: [{id: 2, title: "Sales", formula: {call: "sum", args: ["Sales"]}}]
//		filters: [{op: ">", args: ["Sales", 0]}]
//		limit: 10
//	}
//
// Item titles default to the formula text.
func CompileQuery(v cue.Value) (*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	q := &Query{Name: lastLabel(v)}

	dsVal := v.LookupPath(cue.ParsePath("dataset"))
	if !dsVal.Exists() {
		return nil, &CompileError{Field: "dataset", Message: "dataset is required", Pos: v.Pos()}
	}
	var err error
	if q.Dataset, err = dsVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	if q.Dimensions, err = parseItems(v, "dimensions"); err != nil {
		return nil, err
	}
	if q.Measures, err = parseItems(v, "measures"); err != nil {
		return nil, err
	}
	if len(q.Dimensions) == 0 && len(q.Measures) == 0 {
		return nil, &CompileError{Field: "query", Message: "at least one dimension or measure is required", Pos: v.Pos()}
	}
	for _, d := range q.Dimensions {
		if d.Block != 0 {
			return nil, &CompileError{Field: "dimensions", Message: fmt.Sprintf("item %d: dimensions belong to every block", d.ID), Pos: v.Pos()}
		}
	}

	if fv := v.LookupPath(cue.ParsePath("filters")); fv.Exists() {
		iter, err := fv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			f, err := CompileFormula(iter.Value())
			if err != nil {
				return nil, err
			}
			q.Filters = append(q.Filters, f)
		}
	}

	if names, err := lookupInt(v, "measure_names"); err != nil {
		return nil, err
	} else if names != nil {
		q.MeasureNamesID = *names
	}
	if q.Offset, err = lookupInt(v, "offset"); err != nil {
		return nil, err
	}
	if q.Limit, err = lookupInt(v, "limit"); err != nil {
		return nil, err
	}

	if pv := v.LookupPath(cue.ParsePath("pivot")); pv.Exists() {
		spec, err := parsePivot(pv)
		if err != nil {
			return nil, err
		}
		q.Pivot = spec
	}
	return q, nil
}

func parseItems(v cue.Value, key string) ([]QueryItem, error) {
	lv := v.LookupPath(cue.ParsePath(key))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var items []QueryItem
	for iter.Next() {
		it, err := parseItem(iter.Value(), key)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func parseItem(v cue.Value, key string) (QueryItem, error) {
	var it QueryItem
	id, err := lookupInt(v, "id")
	if err != nil {
		return it, err
	}
	if id == nil {
		return it, &CompileError{Field: key, Message: "item id is required", Pos: v.Pos()}
	}
	it.ID = *id

	fv := v.LookupPath(cue.ParsePath("formula"))
	if !fv.Exists() {
		return it, &CompileError{Field: key, Message: fmt.Sprintf("item %d: formula is required", it.ID), Pos: v.Pos()}
	}
	if it.Formula, err = CompileFormula(fv); err != nil {
		return it, err
	}

	if it.Title, err = lookupString(v, "title"); err != nil {
		return it, err
	}
	if it.Title == "" {
		it.Title = ast.Format(it.Formula)
	}

	dir, err := lookupString(v, "direction")
	if err != nil {
		return it, err
	}
	if it.Direction, err = legend.ParseDirection(dir); err != nil {
		return it, &CompileError{Field: key, Message: err.Error(), Pos: v.Pos()}
	}

	block, err := lookupInt(v, "block")
	if err != nil {
		return it, err
	}
	if block != nil {
		it.Block = *block
	}
	return it, nil
}

// parsePivot reads [{id, legend: [ids], axis, direction, sort}].
func parsePivot(v cue.Value) (*legend.PivotSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec := &legend.PivotSpec{}
	for iter.Next() {
		iv := iter.Value()
		var item legend.PivotItem

		id, err := lookupInt(iv, "id")
		if err != nil {
			return nil, err
		}
		if id == nil {
			return nil, &CompileError{Field: "pivot", Message: "pivot item id is required", Pos: iv.Pos()}
		}
		item.ID = *id

		if err := iv.LookupPath(cue.ParsePath("legend")).Decode(&item.LegendIDs); err != nil {
			return nil, formatCUEError(err)
		}

		axis, err := lookupString(iv, "axis")
		if err != nil {
			return nil, err
		}
		if item.Axis, err = legend.ParseAxis(axis); err != nil {
			return nil, &CompileError{Field: "pivot", Message: err.Error(), Pos: iv.Pos()}
		}

		dir, err := lookupString(iv, "direction")
		if err != nil {
			return nil, err
		}
		if item.Direction, err = legend.ParseDirection(dir); err != nil {
			return nil, &CompileError{Field: "pivot", Message: err.Error(), Pos: iv.Pos()}
		}

		if sv := iv.LookupPath(cue.ParsePath("sort")); sv.Exists() {
			if item.MeasureSort, err = parseMeasureSort(sv); err != nil {
				return nil, err
			}
		}
		spec.Items = append(spec.Items, item)
	}
	return spec, nil
}

func parseMeasureSort(v cue.Value) (*legend.MeasureSort, error) {
	ms := &legend.MeasureSort{}
	axis, err := lookupString(v, "axis")
	if err != nil {
		return nil, err
	}
	if ms.Axis, err = legend.ParseAxis(axis); err != nil {
		return nil, &CompileError{Field: "sort", Message: err.Error(), Pos: v.Pos()}
	}
	dir, err := lookupString(v, "direction")
	if err != nil {
		return nil, err
	}
	if ms.Direction, err = legend.ParseDirection(dir); err != nil {
		return nil, &CompileError{Field: "sort", Message: err.Error(), Pos: v.Pos()}
	}
	if hv := v.LookupPath(cue.ParsePath("header")); hv.Exists() {
		iter, err := hv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			val, err := goValue(iter.Value())
			if err != nil {
				return nil, err
			}
			ms.Header = append(ms.Header, val)
		}
	}
	return ms, nil
}
