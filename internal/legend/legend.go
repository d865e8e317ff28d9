// Package legend maps requested fields to output columns and arranges
// query results as pivot tables.
//
// A Legend lists the fields of a query in output order. Dimension and
// measure items each own one data column. The Measure Names item is a
// pseudo-dimension with no data column: in a pivot table it expands into
// one header entry per measure.
package legend

import (
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/dtype"
)

// Role is what a legend item contributes to the output.
type Role int

const (
	Dimension Role = iota
	Measure
	MeasureNames
)

func (r Role) String() string {
	switch r {
	case Dimension:
		return "dimension"
	case Measure:
		return "measure"
	case MeasureNames:
		return "measure_names"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole parses the String form of a role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "dimension":
		return Dimension, nil
	case "measure":
		return Measure, nil
	case "measure_names":
		return MeasureNames, nil
	default:
		return 0, fmt.Errorf("unknown legend role %q", s)
	}
}

// Direction is an explicit sort direction. Unspecified leaves the choice to
// the consumer.
type Direction int

const (
	Unspecified Direction = iota
	Asc
	Desc
)

func (d Direction) String() string {
	switch d {
	case Unspecified:
		return ""
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "asc", "desc" or "" case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "":
		return Unspecified, nil
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	default:
		return 0, fmt.Errorf("unknown sort direction %q", s)
	}
}

// LegendItem is one requested field.
type LegendItem struct {
	ID        int
	Field     string
	Role      Role
	DataType  dtype.DataType
	Direction Direction
}

// HasData reports whether the item owns a data column.
func (it LegendItem) HasData() bool { return it.Role != MeasureNames }

// Legend is an ordered, read-only list of legend items.
type Legend struct {
	items []LegendItem
	index map[int]int
	data  []int // ids of items with data, in order
}

// NewLegend validates items: ids are unique, at most one item is Measure
// Names, and Measure Names carries no direction.
func NewLegend(items ...LegendItem) (*Legend, error) {
	l := &Legend{
		items: append([]LegendItem(nil), items...),
		index: make(map[int]int, len(items)),
	}
	names := 0
	for i, it := range l.items {
		if _, dup := l.index[it.ID]; dup {
			return nil, fmt.Errorf("legend item id %d used twice", it.ID)
		}
		l.index[it.ID] = i
		switch it.Role {
		case Dimension, Measure:
			l.data = append(l.data, it.ID)
		case MeasureNames:
			names++
			if it.Direction != Unspecified {
				return nil, fmt.Errorf("legend item %d: measure names cannot be sorted", it.ID)
			}
		default:
			return nil, fmt.Errorf("legend item %d: unknown role %s", it.ID, it.Role)
		}
	}
	if names > 1 {
		return nil, fmt.Errorf("legend has %d measure names items, at most one is allowed", names)
	}
	return l, nil
}

// Items returns a copy of the items in order.
func (l *Legend) Items() []LegendItem { return append([]LegendItem(nil), l.items...) }

// Len returns the number of items.
func (l *Legend) Len() int { return len(l.items) }

// Item returns the item with id.
func (l *Legend) Item(id int) (LegendItem, bool) {
	i, ok := l.index[id]
	if !ok {
		return LegendItem{}, false
	}
	return l.items[i], true
}

// DataIDs returns the ids of items owning a data column, in column order.
func (l *Legend) DataIDs() []int { return append([]int(nil), l.data...) }

// DataIndex returns the data column of item id, or -1 when the item has no
// column.
func (l *Legend) DataIndex(id int) int {
	for i, d := range l.data {
		if d == id {
			return i
		}
	}
	return -1
}

// ByRole returns the items with role r, in order.
func (l *Legend) ByRole(r Role) []LegendItem {
	var out []LegendItem
	for _, it := range l.items {
		if it.Role == r {
			out = append(out, it)
		}
	}
	return out
}
