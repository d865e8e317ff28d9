package queryir

import (
	"fmt"
	"strconv"

	"github.com/roach88/formulon/internal/ast"
)

// Query is a row source of a Level.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Table is the dataset's source table. Filters are row-level boolean
// formulas applied in WHERE; every level that reads the table applies them.
type Table struct {
	Name    string
	Filters []ast.Node
}

func (*Table) queryNode() {}

// Level groups its Source by Dims and computes Measures.
type Level struct {
	// Alias names Source inside this level's FROM clause.
	Alias string

	// Source is the level's row source: *Table or *Level.
	Source Query

	// SourceResult is the node that the source level's ResultColumn stands
	// for. Only set when Source is a *Level.
	SourceResult ast.Node

	Dims     []Dim
	Measures []Measure

	// Joins attach sub-levels to the rows of Source.
	Joins []Join
}

func (*Level) queryNode() {}

// Dim is a grouped dimension expression.
type Dim struct {
	Node ast.Node
	Key  string
}

// Measure is an output expression, aggregated or built from dimensions.
type Measure struct {
	Name string
	Node ast.Node
}

// Join attaches a sub-level with LEFT JOIN on dimension equality.
type Join struct {
	Alias string
	Level *Level

	// Keys pair outer dimension positions with sub-level dimension
	// positions. No keys means a single-row sub-level joined to every row.
	Keys []JoinKey

	// Ref is the node the sub-level's result replaces: a query fork or a
	// lifted aggregate. It is matched by identity.
	Ref ast.Node

	// Grouped reports that the reference appears outside any aggregate of
	// the outer level, which then groups by the joined result as well. The
	// result is constant within each outer group.
	Grouped bool
}

// JoinKey pairs Outer, an index into the outer level's Dims, with Inner,
// an index into the joined level's Dims.
type JoinKey struct {
	Outer int
	Inner int
}

// ResultColumn is the name of the single measure of a joined level.
const ResultColumn = "res"

// DimColumn is the output column of dimension i.
func DimColumn(i int) string { return "d" + strconv.Itoa(i) }

// RowDimColumn is the row-level column computing dimension i over a Table.
func RowDimColumn(i int) string { return "__d" + strconv.Itoa(i) }

// MeasureColumn is the default output name of top-level measure i.
func MeasureColumn(i int) string { return "m" + strconv.Itoa(i) }

// DimIndex returns the position of the dimension with key, or -1.
func (l *Level) DimIndex(key string) int {
	for i, d := range l.Dims {
		if d.Key == key {
			return i
		}
	}
	return -1
}

// Walk visits l and every level below it, sources before joins.
func (l *Level) Walk(fn func(*Level)) {
	fn(l)
	if src, ok := l.Source.(*Level); ok {
		src.Walk(fn)
	}
	for _, j := range l.Joins {
		j.Level.Walk(fn)
	}
}

// PlanError reports a query structure the planner cannot express.
type PlanError struct {
	Token   string
	Pos     ast.Pos
	Message string
}

func (e *PlanError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Token)
}

func planErrorf(n ast.Node, format string, args ...any) *PlanError {
	token := n.Meta().Token
	if token == "" {
		token = ast.Format(n)
	}
	return &PlanError{Token: token, Pos: n.Meta().Pos, Message: fmt.Sprintf(format, args...)}
}
