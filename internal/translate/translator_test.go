package translate_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

func field(name string) *ast.Field { return ast.NewField(name) }

func testEnv() *inspect.Env {
	return inspect.NewEnv(funcs.Builtins(), map[string]dtype.DataType{
		"Sales":    dtype.Float,
		"Quantity": dtype.Integer,
		"Region":   dtype.String,
		"City":     dtype.String,
		"Date":     dtype.Date,
		"Shipped":  dtype.Datetime,
	}, []ast.Node{field("Region")})
}

func newTranslator(t *testing.T, target dialect.Combo, opts ...translate.Option) *translate.Translator {
	t.Helper()
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	tr, err := translate.NewTranslator(reg, target, testEnv(), opts...)
	require.NoError(t, err)
	return tr
}

func render(t *testing.T, tr *translate.Translator, n ast.Node) (string, []any) {
	t.Helper()
	e, err := tr.Translate(n)
	require.NoError(t, err)
	sql, args, err := tr.Render(e)
	require.NoError(t, err)
	return sql, args
}

func TestTranslate_Dialects(t *testing.T) {
	tests := []struct {
		name   string
		target dialect.Combo
		node   ast.Node
		sql    string
		args   []any
	}{
		{
			name:   "aggregate",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("sum", field("Sales")),
			sql:    `SUM("Sales")`,
		},
		{
			name:   "bound string postgres",
			target: dialect.POSTGRESQL_14,
			node:   ast.NewBinaryOp("==", ast.Call("upper", field("Region")), ast.NewString("east")),
			sql:    `(UPPER("Region") = $1)`,
			args:   []any{"east"},
		},
		{
			name:   "bound string mysql",
			target: dialect.MYSQL_8_0_12,
			node:   ast.NewBinaryOp("==", ast.Call("upper", field("Region")), ast.NewString("east")),
			sql:    "(UPPER(`Region`) = ?)",
			args:   []any{"east"},
		},
		{
			name:   "bound string mssql",
			target: dialect.MSSQLSRV,
			node:   ast.NewBinaryOp("==", ast.Call("upper", field("Region")), ast.NewString("east")),
			sql:    `(UPPER([Region]) = @p1)`,
			args:   []any{"east"},
		},
		{
			name:   "clickhouse concat",
			target: dialect.CLICKHOUSE_22_10,
			node:   ast.Call("concat", field("Region"), ast.NewString("-"), field("City")),
			sql:    "concat(`Region`, ?, `City`)",
			args:   []any{"-"},
		},
		{
			name:   "generic concat",
			target: dialect.POSTGRESQL_9_4,
			node:   ast.Call("concat", field("Region"), ast.NewString("-"), field("City")),
			sql:    `("Region" || $1 || "City")`,
			args:   []any{"-"},
		},
		{
			name:   "countd clickhouse",
			target: dialect.CLICKHOUSE_21_8,
			node:   ast.Call("countd", field("City")),
			sql:    "uniqExact(`City`)",
		},
		{
			name:   "count star",
			target: dialect.Oracle.Latest(),
			node:   ast.Call("count"),
			sql:    "COUNT(*)",
		},
		{
			name:   "date literal",
			target: dialect.POSTGRESQL_12,
			node:   ast.NewBinaryOp("<", field("Date"), ast.NewDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))),
			sql:    `("Date" < DATE '2024-01-02')`,
		},
		{
			name:   "boolean as integer",
			target: dialect.SQLITE_3_25,
			node:   ast.NewUnaryOp("not", ast.NewBool(true)),
			sql:    "(NOT 1)",
		},
		{
			name:   "decimal literal",
			target: dialect.POSTGRESQL_12,
			node:   ast.NewBinaryOp("*", field("Sales"), ast.NewFloat(decimal.NewFromInt(2))),
			sql:    `("Sales" * 2.0)`,
		},
		{
			name:   "cast",
			target: dialect.POSTGRESQL_12,
			node:   ast.Call("float", field("Quantity")),
			sql:    `CAST("Quantity" AS DOUBLE PRECISION)`,
		},
		{
			name:   "cast clickhouse",
			target: dialect.CLICKHOUSE_22_10,
			node:   ast.Call("float", field("Quantity")),
			sql:    "toFloat64(`Quantity`)",
		},
		{
			name:   "identity cast",
			target: dialect.POSTGRESQL_12,
			node:   ast.Call("float", field("Sales")),
			sql:    `"Sales"`,
		},
		{
			name:   "between",
			target: dialect.TRINO,
			node:   ast.NewTernaryOp("between", field("Quantity"), ast.NewInt(1), ast.NewInt(10)),
			sql:    `("Quantity" BETWEEN 1 AND 10)`,
		},
		{
			name:   "native call",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("db_call_int", ast.NewString("my_schema.score"), field("Quantity")),
			sql:    `my_schema.score("Quantity")`,
		},
		{
			name:   "window with partition",
			target: dialect.CLICKHOUSE_21_8,
			node:   ast.NewFuncCall("rank", []ast.Node{field("Sales")}, ast.WithWithin(field("Region"))),
			sql:    "RANK() OVER (PARTITION BY `Region` ORDER BY `Sales` DESC)",
		},
		{
			name:   "running sum",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("rsum", field("Quantity")),
			sql:    `SUM("Quantity") OVER (ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)`,
		},
		{
			name:   "datetrunc",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("datetrunc", field("Date"), ast.NewString("Month")),
			sql:    `DATE_TRUNC('month', "Date")`,
		},
		{
			name:   "dateadd mssql",
			target: dialect.MSSQLSRV,
			node:   ast.Call("dateadd", field("Date"), ast.NewString("day"), ast.NewInt(3)),
			sql:    "DATEADD(day, 3, [Date])",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTranslator(t, tt.target)
			sql, args := render(t, tr, tt.node)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestTranslate_Errors(t *testing.T) {
	lod := ast.NewFuncCall("sum", []ast.Node{field("Sales")}, ast.WithLod(ast.Include(field("City"))))
	fork := ast.NewQueryFork(ast.JoinLeft, ast.Fixed(field("Region")),
		ast.NewJoiningCondition(ast.NewSelfCondition(field("Region"))), ast.Call("sum", field("Sales")))

	tests := []struct {
		name   string
		target dialect.Combo
		node   ast.Node
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unknown function",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("nosuch", field("Sales")),
			check: func(t *testing.T, err error) {
				var ufe *translate.UnknownFunctionError
				require.ErrorAs(t, err, &ufe)
				assert.Equal(t, "nosuch", ufe.Name)
				assert.Equal(t, []dtype.DataType{dtype.Float}, ufe.ArgTypes)
				assert.Equal(t, dialect.POSTGRESQL_14, ufe.Dialect)
			},
		},
		{
			name:   "window below version gate",
			target: dialect.CLICKHOUSE_19_13,
			node:   ast.Call("rank", field("Sales")),
			check: func(t *testing.T, err error) {
				var ufe *translate.UnknownFunctionError
				require.ErrorAs(t, err, &ufe)
				assert.Equal(t, "rank", ufe.Name)
			},
		},
		{
			name:   "argument types",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("upper", field("Quantity")),
			check: func(t *testing.T, err error) {
				var ate *funcs.ArgumentTypeError
				require.ErrorAs(t, err, &ate)
				assert.Equal(t, []dtype.DataType{dtype.Integer}, ate.ArgTypes)
			},
		},
		{
			name:   "native call with computed name",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("db_call_int", field("Region"), field("Quantity")),
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "db_call_int", te.Name)
				assert.Contains(t, te.Message, "string constant")
			},
		},
		{
			name:   "native call with injected name",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("db_call_int", ast.NewString("x(); DROP TABLE t; --"), field("Quantity")),
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
				assert.Contains(t, te.Message, "invalid native function name")
			},
		},
		{
			name:   "unknown date unit",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("datetrunc", field("Date"), ast.NewString("fortnight")),
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
			},
		},
		{
			name:   "unexpanded lod",
			target: dialect.POSTGRESQL_14,
			node:   lod,
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
				assert.Contains(t, te.Message, "query fork")
			},
		},
		{
			name:   "unplanned fork",
			target: dialect.POSTGRESQL_14,
			node:   fork,
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
			},
		},
		{
			name:   "error node",
			target: dialect.POSTGRESQL_14,
			node:   ast.NewErrorNode("unexpected token"),
			check: func(t *testing.T, err error) {
				var te *translate.TranslationError
				require.ErrorAs(t, err, &te)
				assert.Contains(t, te.Message, "unexpected token")
			},
		},
		{
			name:   "unknown field",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("sum", field("Profit")),
			check: func(t *testing.T, err error) {
				var ufe *inspect.UnknownFieldError
				require.ErrorAs(t, err, &ufe)
				assert.Equal(t, "Profit", ufe.Name)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTranslator(t, tt.target)
			_, err := tr.Translate(tt.node)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTranslate_IsTranslationError(t *testing.T) {
	tr := newTranslator(t, dialect.POSTGRESQL_14)

	_, err := tr.Translate(ast.Call("nosuch"))
	assert.True(t, translate.IsTranslationError(err))
	_, err = tr.Translate(ast.Call("upper", field("Quantity")))
	assert.True(t, translate.IsTranslationError(err))
	_, err = tr.Translate(ast.Call("sum", field("Profit")))
	assert.False(t, translate.IsTranslationError(err))
}

func TestTranslate_RequiresAtomicTarget(t *testing.T) {
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	_, err = translate.NewTranslator(reg, dialect.POSTGRESQL, testEnv())
	assert.Error(t, err)
}

func TestTranslate_CacheAndStats(t *testing.T) {
	tr := newTranslator(t, dialect.POSTGRESQL_14)
	sum := ast.Call("sum", field("Sales"))
	node := ast.NewBinaryOp("+", sum, ast.Call("sum", field("Sales")))

	sql, _ := render(t, tr, node)
	assert.Equal(t, `(SUM("Sales") + SUM("Sales"))`, sql)

	stats := tr.Stats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, map[string]int{"sum": 1, "+": 1}, stats.Weights)

	// Translating the same tree again is served from the cache.
	render(t, tr, node)
	assert.Equal(t, 2, tr.Stats().CacheHits)
}

func TestTranslate_ColumnRendererAndForks(t *testing.T) {
	fork := ast.NewQueryFork(ast.JoinLeft, ast.Fixed(field("Region")),
		ast.NewJoiningCondition(ast.NewSelfCondition(field("Region"))), ast.Call("sum", field("Sales")))
	var seen []*ast.QueryFork
	tr := newTranslator(t, dialect.POSTGRESQL_14,
		translate.WithColumnRenderer(translate.TableColumns(dialect.PostgreSQL, "t0")),
		translate.WithForkResolver(func(f *ast.QueryFork) (translate.Expr, error) {
			seen = append(seen, f)
			return translate.NewExpr(dtype.Float, `"f0"."res"`), nil
		}),
	)

	sql, _ := render(t, tr, ast.NewBinaryOp("/", fork, ast.Call("sum", field("Sales"))))
	assert.Equal(t, `("f0"."res" / SUM("t0"."Sales"))`, sql)
	require.Len(t, seen, 1)
	assert.Same(t, fork, seen[0])
}

func TestTranslate_SubstitutionBypassesCache(t *testing.T) {
	calls := 0
	tr := newTranslator(t, dialect.POSTGRESQL_14,
		translate.WithSubstitution(func(n ast.Node) (translate.Expr, bool) {
			f, ok := n.(*ast.Field)
			if !ok || f.Name() != "Region" {
				return nil, false
			}
			calls++
			return translate.NewExpr(dtype.String, fmt.Sprintf(`"r0"."__d%d"`, calls-1)), true
		}),
	)
	node := ast.Call("upper", field("Region"))

	sql, _ := render(t, tr, node)
	assert.Equal(t, `UPPER("r0"."__d0")`, sql)
	sql, _ = render(t, tr, node)
	assert.Equal(t, `UPPER("r0"."__d1")`, sql)
	assert.Zero(t, tr.Stats().CacheHits)
}

func TestTranslate_DeterministicAcrossFreshRegistries(t *testing.T) {
	node := ast.NewBinaryOp("and",
		ast.NewBinaryOp(">", ast.Call("sum", field("Sales")), ast.NewFloat(decimal.RequireFromString("10.5"))),
		ast.Call("contains", field("Region"), ast.NewString("st")),
	)
	for _, target := range []dialect.Combo{dialect.POSTGRESQL_14, dialect.CLICKHOUSE_22_10, dialect.MSSQLSRV, dialect.SQLITE_3_25} {
		sql1, args1 := render(t, newTranslator(t, target), node)
		sql2, args2 := render(t, newTranslator(t, target), node)
		assert.Empty(t, cmp.Diff(sql1, sql2), target.String())
		assert.Empty(t, cmp.Diff(args1, args2), target.String())
	}
}
