package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/queryir"
	"github.com/roach88/formulon/internal/translate"
)

// rowAlias names the dataset table inside a level's row source.
const rowAlias = "t"

// Order sorts the output by one column.
type Order struct {
	Column string
	Desc   bool
}

// SQLCompiler renders level trees as parameterized SQL for one dialect.
//
// CRITICAL: formula values are always bound as parameters, never spliced
// into the SQL text.
// CRITICAL: every grouped query carries an ORDER BY so results are
// deterministic.
type SQLCompiler struct {
	reg    *translate.Registry
	target dialect.Combo
	family dialect.Family
	ids    dialect.IdentifierConfig
	env    *inspect.Env
	stats  translate.TranslationStats
}

// NewSQLCompiler creates a compiler for an atomic target.
func NewSQLCompiler(reg *translate.Registry, target dialect.Combo, env *inspect.Env) (*SQLCompiler, error) {
	if !target.IsAtomic() {
		return nil, fmt.Errorf("compile target %s is not a single dialect version", target)
	}
	f, _ := target.Family()
	return &SQLCompiler{
		reg:    reg,
		target: target,
		family: f,
		ids:    f.Identifiers(),
		env:    env,
		stats:  translate.NewTranslationStats(),
	}, nil
}

// Stats returns the translation statistics of every compilation so far.
func (c *SQLCompiler) Stats() translate.TranslationStats {
	return c.stats.Add(translate.NewTranslationStats())
}

// Compile converts a level tree to SQL and its parameters.
//
// Without explicit order the output is sorted by every dimension column.
func (c *SQLCompiler) Compile(root *queryir.Level, order ...Order) (string, []any, error) {
	if res := queryir.Validate(root); !res.IsValid {
		return "", nil, fmt.Errorf("invalid query plan: %s", strings.Join(res.Problems, "; "))
	}

	sb, err := c.compileLevel(root)
	if err != nil {
		return "", nil, err
	}

	if len(order) == 0 {
		for i := range root.Dims {
			order = append(order, Order{Column: queryir.DimColumn(i)})
		}
	}
	if len(order) > 0 {
		sb = sb.OrderBy(c.orderBy(order)...)
	}

	sql, args, err := translate.Render(sb, c.family)
	if err != nil {
		return "", nil, fmt.Errorf("render query: %w", err)
	}
	return sql, args, nil
}

func (c *SQLCompiler) orderBy(order []Order) []string {
	out := make([]string, len(order))
	for i, o := range order {
		out[i] = c.ids.Quote(o.Column)
		if o.Desc {
			out[i] += " DESC"
		}
	}
	return out
}

// compileLevel renders one level:
//
//	SELECT <grouped dims>, <measures>
//	FROM (<source>) AS alias
//	LEFT JOIN (<sub-level>) AS join ON ...
//	GROUP BY <dims>, <grouped joins>
func (c *SQLCompiler) compileLevel(l *queryir.Level) (sq.SelectBuilder, error) {
	sb := sq.Select()
	grouped := make([]string, len(l.Dims))
	// dimension key -> column of the source holding its value
	cols := make(map[string]string)

	switch src := l.Source.(type) {
	case *queryir.Table:
		rows, err := c.compileRows(src, l.Dims)
		if err != nil {
			return sb, err
		}
		sb = sb.FromSelect(rows, c.ids.Quote(l.Alias))
		for i, d := range l.Dims {
			grouped[i] = c.ids.QuotePath(l.Alias, queryir.RowDimColumn(i))
			cols[d.Key] = grouped[i]
		}
	case *queryir.Level:
		sub, err := c.compileLevel(src)
		if err != nil {
			return sb, err
		}
		sb = sb.FromSelect(sub, c.ids.Quote(l.Alias))
		for j, d := range src.Dims {
			cols[d.Key] = c.ids.QuotePath(l.Alias, queryir.DimColumn(j))
		}
		for i, d := range l.Dims {
			j := src.DimIndex(d.Key)
			if j < 0 {
				return sb, fmt.Errorf("level %s: dimension %s is not grouped by source level %s", l.Alias, d.Key, src.Alias)
			}
			grouped[i] = c.ids.QuotePath(l.Alias, queryir.DimColumn(j))
		}
	default:
		panic(fmt.Sprintf("querysql: unhandled source type %T", l.Source))
	}

	tr, err := c.levelTranslator(l, cols)
	if err != nil {
		return sb, err
	}

	for i := range l.Dims {
		sb = sb.Column(grouped[i] + " AS " + c.ids.Quote(queryir.DimColumn(i)))
	}
	for _, m := range l.Measures {
		e, err := tr.Translate(m.Node)
		if err != nil {
			return sb, fmt.Errorf("measure %s: %w", m.Name, err)
		}
		sb = sb.Column(sq.Expr("? AS "+c.ids.Quote(m.Name), e))
	}

	groupBy := append([]string(nil), grouped...)
	for _, j := range l.Joins {
		sub, err := c.compileLevel(j.Level)
		if err != nil {
			return sb, err
		}
		sb = sb.JoinClause(sq.Expr("LEFT JOIN (?) AS "+c.ids.Quote(j.Alias)+" ON "+c.joinOn(j, grouped), sub))
		if j.Grouped {
			groupBy = append(groupBy, c.ids.QuotePath(j.Alias, queryir.ResultColumn))
		}
	}
	if len(groupBy) > 0 {
		sb = sb.GroupBy(groupBy...)
	}

	c.stats = c.stats.Add(tr.Stats())
	return sb, nil
}

func (c *SQLCompiler) joinOn(j queryir.Join, grouped []string) string {
	if len(j.Keys) == 0 {
		return "1 = 1"
	}
	conds := make([]string, len(j.Keys))
	for i, k := range j.Keys {
		conds[i] = grouped[k.Outer] + " = " + c.ids.QuotePath(j.Alias, queryir.DimColumn(k.Inner))
	}
	return strings.Join(conds, " AND ")
}

// compileRows renders the filtered table with one computed column per
// dimension:
//
//	SELECT t.*, <dim> AS __d0, ... FROM table AS t WHERE <filters>
func (c *SQLCompiler) compileRows(src *queryir.Table, dims []queryir.Dim) (sq.SelectBuilder, error) {
	rows := sq.Select(c.ids.Quote(rowAlias) + ".*")
	tr, err := translate.NewTranslator(c.reg, c.target, c.env,
		translate.WithColumnRenderer(translate.TableColumns(c.family, rowAlias)))
	if err != nil {
		return rows, err
	}
	for i, d := range dims {
		e, err := tr.Translate(d.Node)
		if err != nil {
			return rows, fmt.Errorf("dimension %s: %w", d.Key, err)
		}
		rows = rows.Column(sq.Expr("? AS "+c.ids.Quote(queryir.RowDimColumn(i)), e))
	}
	rows = rows.From(c.ids.QuotePath(strings.Split(src.Name, ".")...) + " AS " + c.ids.Quote(rowAlias))
	for _, f := range src.Filters {
		e, err := tr.Translate(f)
		if err != nil {
			return rows, fmt.Errorf("filter %s: %w", ast.Format(f), err)
		}
		rows = rows.Where(e)
	}
	c.stats = c.stats.Add(tr.Stats())
	return rows, nil
}

// levelTranslator renders fields against the level's source alias and
// replaces dimensions, forks and lifted aggregates with level columns.
func (c *SQLCompiler) levelTranslator(l *queryir.Level, cols map[string]string) (*translate.Translator, error) {
	column := func(n ast.Node, sql string) (translate.Expr, bool) {
		typ, err := c.env.InferType(n)
		if err != nil {
			return nil, false
		}
		return translate.NewExpr(typ, sql), true
	}
	subst := func(n ast.Node) (translate.Expr, bool) {
		if l.SourceResult != nil && n == l.SourceResult {
			return column(n, c.ids.QuotePath(l.Alias, queryir.ResultColumn))
		}
		for _, j := range l.Joins {
			if j.Ref == n {
				return column(n, c.ids.QuotePath(j.Alias, queryir.ResultColumn))
			}
		}
		if !n.Kind().IsExpression() || len(cols) == 0 {
			return nil, false
		}
		if col, ok := cols[ast.Key(n)]; ok {
			return column(n, col)
		}
		return nil, false
	}
	forks := func(f *ast.QueryFork) (translate.Expr, error) {
		return nil, &translate.TranslationError{
			Dialect: c.target,
			Message: "query fork is not planned at level " + l.Alias,
			Pos:     f.Meta().Pos,
		}
	}
	return translate.NewTranslator(c.reg, c.target, c.env,
		translate.WithColumnRenderer(translate.TableColumns(c.family, l.Alias)),
		translate.WithSubstitution(subst),
		translate.WithForkResolver(forks),
	)
}
