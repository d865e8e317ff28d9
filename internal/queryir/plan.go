package queryir

import (
	"strconv"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/inspect"
)

// Planner builds level trees over one dataset table.
type Planner struct {
	env     *inspect.Env
	table   string
	filters []ast.Node
	aliases map[string]int
}

// NewPlanner returns a planner reading table with the given row filters.
// Filters must not be aggregated.
func NewPlanner(env *inspect.Env, table string, filters []ast.Node) *Planner {
	return &Planner{env: env, table: table, filters: filters, aliases: make(map[string]int)}
}

// Plan groups by dims and computes measures, planning every query fork
// they contain. Measures must already be through the mutation pipeline.
func (p *Planner) Plan(dims []ast.Node, measures []Measure) (*Level, error) {
	for _, f := range p.filters {
		if p.env.IsAggregated(f) {
			return nil, planErrorf(f, "filter must not be aggregated")
		}
	}
	for _, d := range dims {
		if p.env.IsAggregated(d) {
			return nil, planErrorf(d, "dimension must not be aggregated")
		}
	}
	return p.level(inspect.NewDimensions(false, dims...), measures)
}

func (p *Planner) alias(prefix string) string {
	n := p.aliases[prefix]
	p.aliases[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

func (p *Planner) level(dims inspect.Dimensions, measures []Measure) (*Level, error) {
	l := &Level{
		Alias:  p.alias("r"),
		Source: &Table{Name: p.table, Filters: p.filters},
		Dims:   dimsOf(dims),
	}
	for _, m := range measures {
		if err := p.attach(l, dims, m.Node, false); err != nil {
			return nil, err
		}
		l.Measures = append(l.Measures, m)
	}
	return l, nil
}

func dimsOf(dims inspect.Dimensions) []Dim {
	nodes, keys := dims.Nodes(), dims.Keys()
	out := make([]Dim, len(nodes))
	for i := range nodes {
		out[i] = Dim{Node: nodes[i], Key: keys[i]}
	}
	return out
}

// attach plans the forks below n as joins of l.
func (p *Planner) attach(l *Level, dims inspect.Dimensions, n ast.Node, underAgg bool) error {
	if fork, ok := n.(*ast.QueryFork); ok {
		return p.joinFork(l, dims, fork, !underAgg)
	}
	if !underAgg && p.env.IsAggregateCall(n) {
		forks := directForks(n)
		for _, f := range forks {
			if !forkDimensions(f).SubsetOf(dims) {
				return p.lift(l, dims, n, forks)
			}
		}
		underAgg = true
	}
	for _, c := range ast.Children(n) {
		if err := p.attach(l, dims, c, underAgg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) joinFork(l *Level, dims inspect.Dimensions, fork *ast.QueryFork, grouped bool) error {
	fdims := forkDimensions(fork)
	if !fdims.SubsetOf(dims) {
		return planErrorf(fork, "query fork over %s is outside of dimensions %s", fdims, dims)
	}
	alias := p.alias("f")
	sub, err := p.level(fdims, []Measure{{Name: ResultColumn, Node: fork.ResultExpr()}})
	if err != nil {
		return err
	}

	var keys []JoinKey
	for _, cond := range fork.Joining().Conditions() {
		k := ast.Key(cond.Expr())
		outer, inner := l.DimIndex(k), sub.DimIndex(k)
		if outer < 0 || inner < 0 {
			return planErrorf(fork, "join condition %s is not a dimension of both levels", k)
		}
		keys = append(keys, JoinKey{Outer: outer, Inner: inner})
	}
	if len(keys) != len(sub.Dims) {
		return planErrorf(fork, "join on %d of %d fork dimensions would repeat its values", len(keys), len(sub.Dims))
	}
	l.Joins = append(l.Joins, Join{Alias: alias, Level: sub, Keys: keys, Ref: fork, Grouped: grouped})
	return nil
}

// lift moves agg into a nested level that aggregates the rows of a fork
// finer than dims.
func (p *Planner) lift(l *Level, dims inspect.Dimensions, agg ast.Node, forks []*ast.QueryFork) error {
	if len(forks) != 1 {
		return planErrorf(agg, "aggregation over a finer query fork must not combine %d forks", len(forks))
	}
	fork := forks[0]
	fdims := forkDimensions(fork)
	if !dims.SubsetOf(fdims) {
		return planErrorf(fork, "query fork over %s is neither coarser nor finer than %s", fdims, dims)
	}
	if bad := uncovered(agg, fdims); bad != nil {
		return planErrorf(bad, "expression aggregated over a query fork must use its dimensions %s", fdims)
	}

	alias := p.alias("n")
	sub, err := p.level(fdims, []Measure{{Name: ResultColumn, Node: fork.ResultExpr()}})
	if err != nil {
		return err
	}
	nested := &Level{
		Alias:        p.alias("s"),
		Source:       sub,
		SourceResult: fork,
		Dims:         dimsOf(dims),
		Measures:     []Measure{{Name: ResultColumn, Node: agg}},
	}
	keys := make([]JoinKey, dims.Len())
	for i := range keys {
		keys[i] = JoinKey{Outer: i, Inner: i}
	}
	l.Joins = append(l.Joins, Join{Alias: alias, Level: nested, Keys: keys, Ref: agg, Grouped: true})
	return nil
}

func forkDimensions(f *ast.QueryFork) inspect.Dimensions {
	return inspect.NewDimensions(true, f.Lod().Dimensions()...)
}

// directForks returns the forks below n that are not inside another fork.
func directForks(n ast.Node) []*ast.QueryFork {
	var out []*ast.QueryFork
	ast.Walk(n, func(c ast.Node, _ ast.Index, _ []ast.Node) bool {
		if f, ok := c.(*ast.QueryFork); ok {
			out = append(out, f)
			return false
		}
		return true
	})
	return out
}

// uncovered returns a field below n that is neither inside a fork nor
// inside an expression keyed in dims.
func uncovered(n ast.Node, dims inspect.Dimensions) ast.Node {
	if dims.Contains(ast.Key(n)) {
		return nil
	}
	switch v := n.(type) {
	case *ast.Field:
		return v
	case *ast.QueryFork:
		return nil
	case *ast.FuncCall:
		for _, c := range append(v.Args(), v.Within()...) {
			if bad := uncovered(c, dims); bad != nil {
				return bad
			}
		}
		return nil
	}
	for _, c := range ast.Children(n) {
		if bad := uncovered(c, dims); bad != nil {
			return bad
		}
	}
	return nil
}
