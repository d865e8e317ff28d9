package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/legend"
	"github.com/roach88/formulon/internal/mutation"
	"github.com/roach88/formulon/internal/queryir"
	"github.com/roach88/formulon/internal/querysql"
	"github.com/roach88/formulon/internal/translate"
)

// BlockPlan is one SQL statement of a plan. Columns holds the legend id of
// every result column: the dimensions, then the block's measures.
type BlockPlan struct {
	ID      int
	SQL     string
	Args    []any
	Columns []int
}

// Plan is a query prepared for one dialect version.
type Plan struct {
	Query       *compiler.Query
	Dataset     *compiler.Dataset
	Target      dialect.Combo
	Legend      *legend.Legend
	Blocks      []BlockPlan
	Stats       translate.TranslationStats
	Fingerprint string
}

// Prepare validates q against ds and renders one statement per query
// block for target.
//
// Dimensions appear in every block. Measures are grouped by their Block
// number; blocks are ordered by number.
func Prepare(reg *translate.Registry, target dialect.Combo, ds *compiler.Dataset, q *compiler.Query) (*Plan, error) {
	errs := compiler.Validate(ds)
	errs = append(errs, compiler.Validate(q, ds)...)
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	family, ok := target.Family()
	if !ok || !target.IsAtomic() {
		return nil, &RuntimeError{Code: ErrCodeDialectMismatch, Message: fmt.Sprintf("target %s is not a single dialect version", target)}
	}
	if ds.Connector != "" && !strings.EqualFold(ds.Connector, family.String()) {
		return nil, &RuntimeError{
			Code:    ErrCodeDialectMismatch,
			Message: fmt.Sprintf("dataset %s uses connector %s, target is %s", ds.Name, ds.Connector, target),
		}
	}

	catalog := funcs.Builtins()
	fieldTypes := ds.ColumnTypes()
	types := make(map[int]dtype.DataType)

	// Dimensions run through the pipeline first: the casted dimensions
	// are the global dimensions every measure is grouped by.
	rawDims, err := expandItems(ds, q.Dimensions)
	if err != nil {
		return nil, err
	}
	dims, err := runPipeline(inspect.NewEnv(catalog, fieldTypes, rawDims), q.Dimensions, rawDims, types)
	if err != nil {
		return nil, err
	}
	env := inspect.NewEnv(catalog, fieldTypes, dims)

	rawMeasures, err := expandItems(ds, q.Measures)
	if err != nil {
		return nil, err
	}
	measures, err := runPipeline(env, q.Measures, rawMeasures, types)
	if err != nil {
		return nil, err
	}

	filters := make([]ast.Node, len(q.Filters))
	for i, f := range q.Filters {
		expanded, err := compiler.Expand(ds, f)
		if err != nil {
			return nil, NewFormulaError(0, fmt.Errorf("filter %d: %w", i, err))
		}
		res, err := mutation.NewPipeline(env).Run(expanded)
		if err != nil {
			return nil, NewFormulaError(0, fmt.Errorf("filter %d: %w", i, err))
		}
		filters[i] = res.Root
	}

	l, err := q.Legend(types)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidQuery, Message: "cannot build legend", Err: err}
	}

	c, err := querysql.NewSQLCompiler(reg, target, env)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeTranslationFailed, Message: "cannot create SQL compiler", Err: err}
	}
	order := make([]querysql.Order, len(q.Dimensions))
	for i, d := range q.Dimensions {
		order[i] = querysql.Order{Column: queryir.DimColumn(i), Desc: d.Direction == legend.Desc}
	}

	plan := &Plan{Query: q, Dataset: ds, Target: target, Legend: l, Fingerprint: q.Fingerprint()}
	for _, b := range q.Blocks() {
		bp := BlockPlan{ID: b}
		for _, d := range q.Dimensions {
			bp.Columns = append(bp.Columns, d.ID)
		}
		var ms []queryir.Measure
		for i, m := range q.Measures {
			if m.Block != b {
				continue
			}
			ms = append(ms, queryir.Measure{Name: queryir.MeasureColumn(len(ms)), Node: measures[i]})
			bp.Columns = append(bp.Columns, m.ID)
		}

		level, err := queryir.NewPlanner(env, ds.Table, filters).Plan(dims, ms)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeTranslationFailed, Message: fmt.Sprintf("cannot plan block %d", b), Err: err}
		}
		if bp.SQL, bp.Args, err = c.Compile(level, order...); err != nil {
			return nil, &RuntimeError{Code: ErrCodeTranslationFailed, Message: fmt.Sprintf("cannot compile block %d", b), Err: err}
		}
		plan.Blocks = append(plan.Blocks, bp)
	}
	plan.Stats = c.Stats()
	return plan, nil
}

func expandItems(ds *compiler.Dataset, items []compiler.QueryItem) ([]ast.Node, error) {
	out := make([]ast.Node, len(items))
	for i, it := range items {
		n, err := compiler.Expand(ds, it.Formula)
		if err != nil {
			return nil, NewFormulaError(it.ID, err)
		}
		out[i] = n
	}
	return out, nil
}

// runPipeline takes every node to its casted form and records the item
// types.
func runPipeline(env *inspect.Env, items []compiler.QueryItem, nodes []ast.Node, types map[int]dtype.DataType) ([]ast.Node, error) {
	p := mutation.NewPipeline(env)
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		res, err := p.Run(n)
		if err != nil {
			return nil, NewFormulaError(items[i].ID, err)
		}
		out[i] = res.Root
		types[items[i].ID] = res.Type
	}
	return out, nil
}

// Explain renders the plan for humans: one section per block.
func (p *Plan) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- query %s on %s (%s)\n", p.Query.Name, p.Dataset.Name, p.Target)
	for _, blk := range p.Blocks {
		fmt.Fprintf(&b, "-- block %d: items %v\n%s;\n", blk.ID, blk.Columns, blk.SQL)
		if len(blk.Args) > 0 {
			fmt.Fprintf(&b, "-- args: %v\n", blk.Args)
		}
	}
	return b.String()
}
