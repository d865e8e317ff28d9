package compiler

import (
	"slices"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/ir"
	"github.com/roach88/formulon/internal/legend"
)

// Field is a dataset field. Physical fields map to a table column of the
// same name; calculated fields carry a formula over other fields.
type Field struct {
	Name    string
	Type    dtype.DataType
	Formula ast.Node
}

// IsCalculated reports whether the field is defined by a formula.
func (f Field) IsCalculated() bool { return f.Formula != nil }

// Dataset is a table and the fields formulas may reference.
type Dataset struct {
	Name      string
	Table     string
	Connector string
	Fields    []Field
}

// Field returns the field named name.
func (d *Dataset) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ColumnTypes returns the types of the physical fields.
func (d *Dataset) ColumnTypes() map[string]dtype.DataType {
	out := make(map[string]dtype.DataType)
	for _, f := range d.Fields {
		if !f.IsCalculated() {
			out[f.Name] = f.Type
		}
	}
	return out
}

// QueryItem is a requested dimension or measure. ID is its legend item id.
type QueryItem struct {
	ID        int
	Title     string
	Formula   ast.Node
	Direction legend.Direction

	// Block groups measures computed by one SQL statement. Dimensions are
	// part of every block.
	Block int
}

// Query is a request against one dataset.
type Query struct {
	Name       string
	Dataset    string
	Dimensions []QueryItem
	Measures   []QueryItem
	Filters    []ast.Node

	// MeasureNamesID is the legend id of the Measure Names item, 0 if none.
	MeasureNamesID int

	Offset *int
	Limit  *int
	Pivot  *legend.PivotSpec
}

// Blocks returns the block numbers used by the measures, ascending. A query
// without measures has the single block 0.
func (q *Query) Blocks() []int {
	seen := map[int]bool{}
	var out []int
	for _, m := range q.Measures {
		if !seen[m.Block] {
			seen[m.Block] = true
			out = append(out, m.Block)
		}
	}
	if len(out) == 0 {
		return []int{0}
	}
	slices.Sort(out)
	return out
}

// Legend builds the output legend: dimensions, then measures, then Measure
// Names. Types are filled in by the caller once formulas are typed.
func (q *Query) Legend(types map[int]dtype.DataType) (*legend.Legend, error) {
	var items []legend.LegendItem
	for _, d := range q.Dimensions {
		items = append(items, legend.LegendItem{ID: d.ID, Field: d.Title, Role: legend.Dimension, DataType: types[d.ID], Direction: d.Direction})
	}
	for _, m := range q.Measures {
		items = append(items, legend.LegendItem{ID: m.ID, Field: m.Title, Role: legend.Measure, DataType: types[m.ID], Direction: m.Direction})
	}
	if q.MeasureNamesID != 0 {
		items = append(items, legend.LegendItem{ID: q.MeasureNamesID, Field: "Measure Names", Role: legend.MeasureNames})
	}
	return legend.NewLegend(items...)
}

// Fingerprint identifies the query by content. Positions and titles do not
// take part.
func (q *Query) Fingerprint() string {
	items := func(qs []QueryItem) ir.Array {
		arr := make(ir.Array, len(qs))
		for i, it := range qs {
			arr[i] = ir.Object{
				"id":        ir.Int(it.ID),
				"formula":   ast.Encode(it.Formula),
				"direction": ir.String(it.Direction.String()),
				"block":     ir.Int(it.Block),
			}
		}
		return arr
	}
	filters := make(ir.Array, len(q.Filters))
	for i, f := range q.Filters {
		filters[i] = ast.Encode(f)
	}
	obj := ir.Object{
		"dataset":       ir.String(q.Dataset),
		"dimensions":    items(q.Dimensions),
		"measures":      items(q.Measures),
		"filters":       filters,
		"measure_names": ir.Int(q.MeasureNamesID),
		"offset":        optionalInt(q.Offset),
		"limit":         optionalInt(q.Limit),
	}
	return ir.MustHash(ir.DomainQuery, obj)
}

func optionalInt(p *int) ir.Value {
	if p == nil {
		return ir.Null{}
	}
	return ir.Int(*p)
}
