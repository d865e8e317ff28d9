package legend

import (
	"cmp"
	"slices"
)

// SortStrategy orders the headers of one pivot axis.
type SortStrategy interface {
	Compare(a, b Header) int
}

// DimensionSortValueStrategy orders headers slot by slot on their
// dimension values. The Measure Names slot keeps the measure order of the
// pivot legend.
type DimensionSortValueStrategy struct {
	// Directions holds one resolved direction per slot.
	Directions []Direction

	// NamesSlot is the Measure Names position, or -1.
	NamesSlot int
}

func (s DimensionSortValueStrategy) Compare(a, b Header) int {
	for i := range a.Values {
		var c int
		if i == s.NamesSlot {
			c = cmp.Compare(a.measure, b.measure)
		} else {
			c = CompareValues(a.Values[i], b.Values[i])
			if s.Directions[i] == Desc {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// MeasureSortStrategy orders headers by the value of one measure in a fixed
// line of the opposite axis. Ties and missing values fall back to Then.
type MeasureSortStrategy struct {
	Values    map[string]any
	Direction Direction
	Then      SortStrategy
}

func (s MeasureSortStrategy) Compare(a, b Header) int {
	c := CompareValues(s.Values[a.key()], s.Values[b.key()])
	if s.Direction == Desc {
		c = -c
	}
	if c != 0 || s.Then == nil {
		return c
	}
	return s.Then.Compare(a, b)
}

// PivotSorter picks and applies the sort strategy of each axis.
//
// A dimension is ordered by its legend item's direction when set, else by
// its pivot item's direction, else ascending. A measure with a MeasureSort
// overrides the dimension order of the axis it sorts.
type PivotSorter struct {
	pivot *PivotLegend
}

func NewPivotSorter(p *PivotLegend) *PivotSorter {
	return &PivotSorter{pivot: p}
}

// Strategy returns the strategy for axis of t.
func (s *PivotSorter) Strategy(t *PivotTable, axis Axis) SortStrategy {
	items := t.RowItems
	if axis == AxisColumn {
		items = t.ColumnItems
	}
	dims := DimensionSortValueStrategy{
		Directions: make([]Direction, len(items)),
		NamesSlot:  s.pivot.namesSlot(items),
	}
	for i, it := range items {
		dims.Directions[i] = s.direction(it)
	}

	for m, it := range s.pivot.measures {
		if it.MeasureSort == nil || it.MeasureSort.Axis != axis {
			continue
		}
		return MeasureSortStrategy{
			Values:    s.measureValues(t, m, *it.MeasureSort),
			Direction: orAsc(it.MeasureSort.Direction),
			Then:      dims,
		}
	}
	return dims
}

func (s *PivotSorter) direction(it PivotItem) Direction {
	if li, ok := s.pivot.legend.Item(it.LegendIDs[0]); ok && li.Direction != Unspecified {
		return li.Direction
	}
	return orAsc(it.Direction)
}

func orAsc(d Direction) Direction {
	if d == Unspecified {
		return Asc
	}
	return d
}

// measureValues reads measure m along the opposite-axis line named by ms,
// keyed by the header of the sorted axis.
func (s *PivotSorter) measureValues(t *PivotTable, m int, ms MeasureSort) map[string]any {
	sorted, opposite, oppItems := t.Rows, t.Columns, t.ColumnItems
	if ms.Axis == AxisColumn {
		sorted, opposite, oppItems = t.Columns, t.Rows, t.RowItems
	}

	names := s.pivot.namesSlot(oppItems)
	line := -1
	for i, h := range opposite {
		if matchesLine(h, ms.Header, names, m) {
			line = i
			break
		}
	}

	values := make(map[string]any, len(sorted))
	if line < 0 {
		return values
	}
	for i, h := range sorted {
		if ms.Axis == AxisRow {
			values[h.key()] = t.Cells[i][line]
		} else {
			values[h.key()] = t.Cells[line][i]
		}
	}
	return values
}

func matchesLine(h Header, want []any, names, m int) bool {
	j := 0
	for i, v := range h.Values {
		if i == names {
			if h.measure != m {
				return false
			}
			continue
		}
		if CompareValues(v, want[j]) != 0 {
			return false
		}
		j++
	}
	return true
}

// Sort reorders both axes of t and the cells with them.
func (s *PivotSorter) Sort(t *PivotTable) {
	rows := s.Strategy(t, AxisRow)
	cols := s.Strategy(t, AxisColumn)

	rowPerm := permutation(t.Rows, rows)
	colPerm := permutation(t.Columns, cols)

	cells := make([][]any, len(rowPerm))
	for i, r := range rowPerm {
		cells[i] = make([]any, len(colPerm))
		for j, c := range colPerm {
			cells[i][j] = t.Cells[r][c]
		}
	}
	t.Rows = reorder(t.Rows, rowPerm)
	t.Columns = reorder(t.Columns, colPerm)
	t.Cells = cells
}

func permutation(headers []Header, s SortStrategy) []int {
	perm := make([]int, len(headers))
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return s.Compare(headers[a], headers[b])
	})
	return perm
}

func reorder(headers []Header, perm []int) []Header {
	out := make([]Header, len(perm))
	for i, p := range perm {
		out[i] = headers[p]
	}
	return out
}
