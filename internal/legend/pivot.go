package legend

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Axis is where a pivot item is placed.
type Axis int

const (
	AxisRow Axis = iota
	AxisColumn
	AxisMeasure
)

func (a Axis) String() string {
	switch a {
	case AxisRow:
		return "row"
	case AxisColumn:
		return "column"
	case AxisMeasure:
		return "measure"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis parses the String form of an axis.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "row":
		return AxisRow, nil
	case "column":
		return AxisColumn, nil
	case "measure":
		return AxisMeasure, nil
	default:
		return 0, fmt.Errorf("unknown pivot axis %q", s)
	}
}

// MeasureSort orders the headers of one axis by the values of a measure.
type MeasureSort struct {
	// Axis is the axis whose headers are reordered, AxisRow or AxisColumn.
	Axis Axis

	// Header selects the line of the opposite axis to read values from:
	// one value per dimension of that axis, Measure Names omitted.
	Header []any

	Direction Direction
}

// PivotItem places legend items on a pivot axis. Several legend ids feed
// one pivot item when the same field comes from several query blocks; the
// first non-NULL value wins.
type PivotItem struct {
	ID        int
	LegendIDs []int
	Axis      Axis

	// Direction orders a dimension when its legend item has none.
	Direction Direction

	// MeasureSort, on a measure item, sorts an axis by this measure.
	MeasureSort *MeasureSort
}

// PivotSpec is the requested pivot layout.
type PivotSpec struct {
	Items []PivotItem
}

// DefaultPivot lays out l for a query without an explicit pivot:
// dimensions on rows, Measure Names on columns and measures on the measure
// axis. Pivot item ids are the legend ids.
func DefaultPivot(l *Legend) PivotSpec {
	var spec PivotSpec
	measures := len(l.ByRole(Measure))
	for _, it := range l.items {
		axis := AxisRow
		switch it.Role {
		case Measure:
			axis = AxisMeasure
		case MeasureNames:
			if measures == 0 {
				continue
			}
			axis = AxisColumn
		}
		spec.Items = append(spec.Items, PivotItem{ID: it.ID, LegendIDs: []int{it.ID}, Axis: axis})
	}
	return spec
}

// PivotLegend is a validated pivot layout over a legend.
type PivotLegend struct {
	legend   *Legend
	items    []PivotItem
	rows     []PivotItem
	columns  []PivotItem
	measures []PivotItem
	columnOf map[int]int // legend id -> data column
}

// NewPivotLegend validates spec against l. Every legend item is placed
// exactly once; Measure Names may stay out of a pivot without measures.
func NewPivotLegend(l *Legend, spec PivotSpec) (*PivotLegend, error) {
	p := &PivotLegend{
		legend:   l,
		items:    append([]PivotItem(nil), spec.Items...),
		columnOf: make(map[int]int),
	}
	seen := make(map[int]bool)
	placed := make(map[int]int) // legend id -> pivot item id
	names := 0
	for _, it := range p.items {
		if seen[it.ID] {
			return nil, fmt.Errorf("pivot item id %d used twice", it.ID)
		}
		seen[it.ID] = true

		role, err := p.role(it)
		if err != nil {
			return nil, err
		}
		for _, id := range it.LegendIDs {
			if prev, dup := placed[id]; dup {
				return nil, fmt.Errorf("pivot item %d: legend item %d is already placed by pivot item %d", it.ID, id, prev)
			}
			placed[id] = it.ID
		}
		switch it.Axis {
		case AxisRow, AxisColumn:
			if role == Measure {
				return nil, fmt.Errorf("pivot item %d: measure cannot be placed on the %s axis", it.ID, it.Axis)
			}
			if role == MeasureNames {
				names++
				if it.Direction != Unspecified {
					return nil, fmt.Errorf("pivot item %d: measure names cannot be sorted", it.ID)
				}
			}
			if it.MeasureSort != nil {
				return nil, fmt.Errorf("pivot item %d: only measures sort by measure", it.ID)
			}
			if it.Axis == AxisRow {
				p.rows = append(p.rows, it)
			} else {
				p.columns = append(p.columns, it)
			}
		case AxisMeasure:
			if role != Measure {
				return nil, fmt.Errorf("pivot item %d: %s cannot be placed on the measure axis", it.ID, role)
			}
			p.measures = append(p.measures, it)
		default:
			return nil, fmt.Errorf("pivot item %d: unknown axis %s", it.ID, it.Axis)
		}
	}

	switch {
	case len(p.measures) > 1 && names == 0:
		return nil, fmt.Errorf("%d measures need measure names on the row or column axis", len(p.measures))
	case len(p.measures) == 0 && names > 0:
		return nil, fmt.Errorf("measure names without measures")
	}
	if err := p.validateMeasureSorts(); err != nil {
		return nil, err
	}
	for _, li := range l.items {
		if _, ok := placed[li.ID]; ok {
			continue
		}
		if li.Role == MeasureNames && len(p.measures) == 0 {
			continue
		}
		return nil, fmt.Errorf("legend item %d (%s) is not placed on the pivot", li.ID, li.Field)
	}
	for i, id := range l.DataIDs() {
		p.columnOf[id] = i
	}
	return p, nil
}

// role checks that every legend id of it exists and shares one role.
func (p *PivotLegend) role(it PivotItem) (Role, error) {
	if len(it.LegendIDs) == 0 {
		return 0, fmt.Errorf("pivot item %d has no legend items", it.ID)
	}
	var role Role
	for i, id := range it.LegendIDs {
		li, ok := p.legend.Item(id)
		if !ok {
			return 0, fmt.Errorf("pivot item %d: unknown legend item %d", it.ID, id)
		}
		if i > 0 && li.Role != role {
			return 0, fmt.Errorf("pivot item %d mixes %s and %s legend items", it.ID, role, li.Role)
		}
		role = li.Role
	}
	return role, nil
}

func (p *PivotLegend) validateMeasureSorts() error {
	sorted := make(map[Axis]int)
	for _, m := range p.measures {
		ms := m.MeasureSort
		if ms == nil {
			continue
		}
		var axis, opposite []PivotItem
		switch ms.Axis {
		case AxisRow:
			axis, opposite = p.rows, p.columns
		case AxisColumn:
			axis, opposite = p.columns, p.rows
		default:
			return fmt.Errorf("pivot item %d: cannot sort the %s axis", m.ID, ms.Axis)
		}
		if prev, dup := sorted[ms.Axis]; dup {
			return fmt.Errorf("pivot items %d and %d both sort the %s axis", prev, m.ID, ms.Axis)
		}
		sorted[ms.Axis] = m.ID
		if p.namesSlot(axis) >= 0 {
			return fmt.Errorf("pivot item %d: the %s axis holds measure names and cannot be sorted by a measure", m.ID, ms.Axis)
		}
		want := len(opposite)
		if p.namesSlot(opposite) >= 0 {
			want--
		}
		if len(ms.Header) != want {
			return fmt.Errorf("pivot item %d: sort header has %d values, the opposite axis has %d dimensions", m.ID, len(ms.Header), want)
		}
	}
	return nil
}

// Legend returns the underlying legend.
func (p *PivotLegend) Legend() *Legend { return p.legend }

// Items returns the pivot items in spec order.
func (p *PivotLegend) Items() []PivotItem { return append([]PivotItem(nil), p.items...) }

// Rows returns the row axis items.
func (p *PivotLegend) Rows() []PivotItem { return append([]PivotItem(nil), p.rows...) }

// Columns returns the column axis items.
func (p *PivotLegend) Columns() []PivotItem { return append([]PivotItem(nil), p.columns...) }

// Measures returns the measure axis items.
func (p *PivotLegend) Measures() []PivotItem { return append([]PivotItem(nil), p.measures...) }

// namesSlot returns the position of the Measure Names item in items, or -1.
func (p *PivotLegend) namesSlot(items []PivotItem) int {
	for i, it := range items {
		if li, _ := p.legend.Item(it.LegendIDs[0]); li.Role == MeasureNames {
			return i
		}
	}
	return -1
}

// title is the Measure Names header value of measure m.
func (p *PivotLegend) title(m int) string {
	li, _ := p.legend.Item(p.measures[m].LegendIDs[0])
	return li.Field
}

// value returns the first non-NULL value of it in data.
func (p *PivotLegend) value(data []any, it PivotItem) any {
	for _, id := range it.LegendIDs {
		if v := data[p.columnOf[id]]; v != nil {
			return v
		}
	}
	return nil
}

// Header is one line of a pivot axis.
type Header struct {
	// Values holds one value per axis item. The Measure Names slot holds
	// the measure's field name.
	Values []any

	measure int // measure named by the Measure Names slot, -1 without one
}

// Measure returns the index of the measure a Measure Names slot names,
// or -1.
func (h Header) Measure() int { return h.measure }

func (h Header) key() string {
	var b strings.Builder
	for _, v := range h.Values {
		fmt.Fprintf(&b, "%T:%v\x00", v, v)
	}
	return b.String()
}

// PivotTable is a materialised pivot frame. Cells[r][c] is the value at
// row header r and column header c, nil when no row produced it.
type PivotTable struct {
	RowItems    []PivotItem
	ColumnItems []PivotItem
	Rows        []Header
	Columns     []Header
	Cells       [][]any
}

// Row is one data row in legend data order. IDs lists the legend items the
// row computes; nil means every item.
type Row struct {
	Data []any
	IDs  []int
}

// DataRows wraps rows that compute every legend item.
func DataRows(rows iter.Seq[[]any]) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for data := range rows {
			if !yield(Row{Data: data}) {
				return
			}
		}
	}
}

// has reports whether r computes any of ids.
func (r Row) has(ids []int) bool {
	if r.IDs == nil {
		return true
	}
	for _, id := range ids {
		if slices.Contains(r.IDs, id) {
			return true
		}
	}
	return false
}

// BuildPivotTable reads rows, places every measure value the row computes
// in its cell and sorts both axes with a PivotSorter. Two rows that land a
// value in the same cell are an error.
func BuildPivotTable(rows iter.Seq[Row], p *PivotLegend) (*PivotTable, error) {
	t := &PivotTable{RowItems: p.Rows(), ColumnItems: p.Columns()}
	rowIndex := make(map[string]int)
	colIndex := make(map[string]int)
	cells := make(map[[2]int]any)

	measures := make([]int, len(p.measures))
	for i := range measures {
		measures[i] = i
	}
	if len(measures) == 0 {
		measures = []int{-1}
	}

	width := len(p.legend.DataIDs())
	n := 0
	for row := range rows {
		data := row.Data
		if len(data) != width {
			return nil, fmt.Errorf("row %d has %d values, the legend has %d data columns", n, len(data), width)
		}
		for _, m := range measures {
			if m >= 0 && !row.has(p.measures[m].LegendIDs) {
				continue
			}
			r := place(rowIndex, &t.Rows, p.header(data, p.rows, m))
			c := place(colIndex, &t.Columns, p.header(data, p.columns, m))
			if m < 0 {
				continue
			}
			if _, dup := cells[[2]int{r, c}]; dup {
				return nil, fmt.Errorf("pivot cell %v x %v has more than one value", t.Rows[r].Values, t.Columns[c].Values)
			}
			cells[[2]int{r, c}] = p.value(data, p.measures[m])
		}
		n++
	}

	t.Cells = make([][]any, len(t.Rows))
	for r := range t.Cells {
		t.Cells[r] = make([]any, len(t.Columns))
	}
	for rc, v := range cells {
		t.Cells[rc[0]][rc[1]] = v
	}

	NewPivotSorter(p).Sort(t)
	return t, nil
}

func (p *PivotLegend) header(data []any, items []PivotItem, m int) Header {
	h := Header{Values: make([]any, len(items)), measure: -1}
	for i, it := range items {
		if li, _ := p.legend.Item(it.LegendIDs[0]); li.Role == MeasureNames {
			h.Values[i] = p.title(m)
			h.measure = m
			continue
		}
		h.Values[i] = p.value(data, it)
	}
	return h
}

func place(index map[string]int, headers *[]Header, h Header) int {
	k := h.key()
	if i, ok := index[k]; ok {
		return i
	}
	index[k] = len(*headers)
	*headers = append(*headers, h)
	return index[k]
}
