package querysql_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/queryir"
	"github.com/roach88/formulon/internal/querysql"
	"github.com/roach88/formulon/internal/translate/std"
)

func field(name string) *ast.Field { return ast.NewField(name) }

func sum(n ast.Node) *ast.FuncCall { return ast.Call("sum", n) }

func fork(result ast.Node, dims []ast.Node, join ...ast.Node) *ast.QueryFork {
	conds := make([]*ast.SelfCondition, len(join))
	for i, j := range join {
		conds[i] = ast.NewSelfCondition(j)
	}
	return ast.NewQueryFork(ast.JoinLeft, ast.Fixed(dims...), ast.NewJoiningCondition(conds...), result)
}

func testEnv(dims []ast.Node) *inspect.Env {
	return inspect.NewEnv(funcs.Builtins(), map[string]dtype.DataType{
		"Sales":  dtype.Float,
		"Region": dtype.String,
		"City":   dtype.String,
	}, dims)
}

type query struct {
	dims     []ast.Node
	filters  []ast.Node
	measures []ast.Node
}

func (q query) plan(t *testing.T, env *inspect.Env) *queryir.Level {
	t.Helper()
	ms := make([]queryir.Measure, len(q.measures))
	for i, m := range q.measures {
		ms[i] = queryir.Measure{Name: queryir.MeasureColumn(i), Node: m}
	}
	l, err := queryir.NewPlanner(env, "orders", q.filters).Plan(q.dims, ms)
	require.NoError(t, err)
	return l
}

func TestCompile_PostgreSQL(t *testing.T) {
	region := field("Region")
	tests := []struct {
		name  string
		query query
		order []querysql.Order
		sql   string
		args  []any
	}{
		{
			name:  "grouped aggregate",
			query: query{dims: []ast.Node{region}, measures: []ast.Node{sum(field("Sales"))}},
			sql: `SELECT "r0"."__d0" AS "d0", SUM("r0"."Sales") AS "m0" ` +
				`FROM (SELECT "t".*, "t"."Region" AS "__d0" FROM "orders" AS "t") AS "r0" ` +
				`GROUP BY "r0"."__d0" ORDER BY "d0"`,
		},
		{
			name: "filters bind values",
			query: query{
				dims:     []ast.Node{region},
				filters:  []ast.Node{ast.NewBinaryOp("!=", field("Region"), ast.NewString("West"))},
				measures: []ast.Node{sum(field("Sales"))},
			},
			order: []querysql.Order{{Column: "m0", Desc: true}},
			sql: `SELECT "r0"."__d0" AS "d0", SUM("r0"."Sales") AS "m0" ` +
				`FROM (SELECT "t".*, "t"."Region" AS "__d0" FROM "orders" AS "t" WHERE ("t"."Region" <> $1)) AS "r0" ` +
				`GROUP BY "r0"."__d0" ORDER BY "m0" DESC`,
			args: []any{"West"},
		},
		{
			name:  "no dimensions",
			query: query{measures: []ast.Node{sum(field("Sales"))}},
			sql:   `SELECT SUM("r0"."Sales") AS "m0" FROM (SELECT "t".* FROM "orders" AS "t") AS "r0"`,
		},
		{
			name: "scalar fork",
			query: query{
				dims:     []ast.Node{region},
				measures: []ast.Node{ast.NewBinaryOp("/", sum(field("Sales")), fork(sum(field("Sales")), nil))},
			},
			sql: `SELECT "r0"."__d0" AS "d0", (SUM("r0"."Sales") / "f0"."res") AS "m0" ` +
				`FROM (SELECT "t".*, "t"."Region" AS "__d0" FROM "orders" AS "t") AS "r0" ` +
				`LEFT JOIN (SELECT SUM("r1"."Sales") AS "res" FROM (SELECT "t".* FROM "orders" AS "t") AS "r1") AS "f0" ON 1 = 1 ` +
				`GROUP BY "r0"."__d0", "f0"."res" ORDER BY "d0"`,
		},
		{
			name: "finer fork lifted",
			query: query{
				dims:     []ast.Node{region},
				measures: []ast.Node{ast.Call("avg", fork(sum(field("Sales")), []ast.Node{field("Region"), field("City")}, field("Region")))},
			},
			sql: `SELECT "r0"."__d0" AS "d0", "n0"."res" AS "m0" ` +
				`FROM (SELECT "t".*, "t"."Region" AS "__d0" FROM "orders" AS "t") AS "r0" ` +
				`LEFT JOIN (SELECT "s0"."d0" AS "d0", AVG("s0"."res") AS "res" ` +
				`FROM (SELECT "r1"."__d0" AS "d0", "r1"."__d1" AS "d1", SUM("r1"."Sales") AS "res" ` +
				`FROM (SELECT "t".*, "t"."Region" AS "__d0", "t"."City" AS "__d1" FROM "orders" AS "t") AS "r1" ` +
				`GROUP BY "r1"."__d0", "r1"."__d1") AS "s0" GROUP BY "s0"."d0") AS "n0" ON "r0"."__d0" = "n0"."d0" ` +
				`GROUP BY "r0"."__d0", "n0"."res" ORDER BY "d0"`,
		},
	}

	reg, err := std.NewRegistry()
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv(tt.query.dims)
			c, err := querysql.NewSQLCompiler(reg, dialect.POSTGRESQL_14, env)
			require.NoError(t, err)

			got, args, err := c.Compile(tt.query.plan(t, env), tt.order...)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, got)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestCompile_QuotesPerDialect(t *testing.T) {
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	dims := []ast.Node{field("Region")}
	q := query{dims: dims, measures: []ast.Node{sum(field("Sales"))}}

	tests := []struct {
		target dialect.Combo
		sql    string
	}{
		{dialect.MSSQLSRV, "SELECT [r0].[__d0] AS [d0], SUM([r0].[Sales]) AS [m0] " +
			"FROM (SELECT [t].*, [t].[Region] AS [__d0] FROM [orders] AS [t]) AS [r0] " +
			"GROUP BY [r0].[__d0] ORDER BY [d0]"},
		{dialect.CLICKHOUSE_22_10, "SELECT `r0`.`__d0` AS `d0`, SUM(`r0`.`Sales`) AS `m0` " +
			"FROM (SELECT `t`.*, `t`.`Region` AS `__d0` FROM `orders` AS `t`) AS `r0` " +
			"GROUP BY `r0`.`__d0` ORDER BY `d0`"},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			env := testEnv(dims)
			c, err := querysql.NewSQLCompiler(reg, tt.target, env)
			require.NoError(t, err)
			got, _, err := c.Compile(q.plan(t, env))
			require.NoError(t, err)
			assert.Equal(t, tt.sql, got)
		})
	}
}

func TestCompile_RejectsInvalidPlanAndTarget(t *testing.T) {
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	env := testEnv(nil)

	_, err = querysql.NewSQLCompiler(reg, dialect.POSTGRESQL, env)
	assert.Error(t, err)

	c, err := querysql.NewSQLCompiler(reg, dialect.POSTGRESQL_14, env)
	require.NoError(t, err)
	_, _, err = c.Compile(&queryir.Level{Alias: "r0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query plan")
}

func TestCompile_UnplannedForkFails(t *testing.T) {
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	env := testEnv(nil)
	c, err := querysql.NewSQLCompiler(reg, dialect.POSTGRESQL_14, env)
	require.NoError(t, err)

	// A hand-built level that never planned its fork.
	l := &queryir.Level{
		Alias:    "r0",
		Source:   &queryir.Table{Name: "orders"},
		Measures: []queryir.Measure{{Name: "m0", Node: fork(sum(field("Sales")), nil)}},
	}
	_, _, err = c.Compile(l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query fork is not planned at level r0")
}

func TestCompile_Stats(t *testing.T) {
	reg, err := std.NewRegistry()
	require.NoError(t, err)
	dims := []ast.Node{field("Region")}
	env := testEnv(dims)
	c, err := querysql.NewSQLCompiler(reg, dialect.POSTGRESQL_14, env)
	require.NoError(t, err)

	q := query{dims: dims, measures: []ast.Node{sum(field("Sales")), ast.Call("avg", field("Sales"))}}
	_, _, err = c.Compile(q.plan(t, env))
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Weights["sum"])
	assert.Equal(t, 1, stats.Weights["avg"])
}

func TestCompile_ExecutesOnSQLite(t *testing.T) {
	db, err := sql.Open(sqlite.Plugin.DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE orders (Region TEXT, City TEXT, Sales REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders VALUES
		('East', 'A', 10), ('East', 'A', 20), ('East', 'B', 30),
		('West', 'C', 5), ('West', 'D', 15), ('West', 'D', 25)`)
	require.NoError(t, err)

	reg, err := builtin.Registry()
	require.NoError(t, err)

	region, city := field("Region"), field("City")
	byRegion := []ast.Node{field("Region")}
	tests := []struct {
		name  string
		query query
		want  [][]any
	}{
		{
			name:  "sum by region",
			query: query{dims: byRegion, measures: []ast.Node{sum(field("Sales"))}},
			want:  [][]any{{"East", 60.0}, {"West", 45.0}},
		},
		{
			name: "share of total",
			query: query{dims: byRegion, measures: []ast.Node{
				ast.NewBinaryOp("/", sum(field("Sales")), fork(sum(field("Sales")), nil)),
			}},
			want: [][]any{{"East", 60.0 / 105}, {"West", 45.0 / 105}},
		},
		{
			name: "share of filtered total",
			query: query{
				dims:    byRegion,
				filters: []ast.Node{ast.NewBinaryOp("!=", field("Region"), ast.NewString("West"))},
				measures: []ast.Node{
					ast.NewBinaryOp("/", sum(field("Sales")), fork(sum(field("Sales")), nil)),
				},
			},
			want: [][]any{{"East", 1.0}},
		},
		{
			name: "average of city totals",
			query: query{dims: byRegion, measures: []ast.Node{
				ast.Call("avg", fork(sum(field("Sales")), []ast.Node{field("Region"), field("City")}, field("Region"))),
			}},
			want: [][]any{{"East", 30.0}, {"West", 22.5}},
		},
		{
			name: "region total on city rows",
			query: query{dims: []ast.Node{region, city}, measures: []ast.Node{
				ast.Call("max", fork(sum(field("Sales")), []ast.Node{field("Region")}, field("Region"))),
			}},
			want: [][]any{{"East", "A", 60.0}, {"East", "B", 60.0}, {"West", "C", 45.0}, {"West", "D", 45.0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv(tt.query.dims)
			c, err := querysql.NewSQLCompiler(reg, dialect.SQLITE_3_25, env)
			require.NoError(t, err)
			text, args, err := c.Compile(tt.query.plan(t, env))
			require.NoError(t, err)

			rows, err := db.Query(text, args...)
			require.NoError(t, err)
			defer rows.Close()

			var got [][]any
			for rows.Next() {
				row := make([]any, len(tt.want[0]))
				dest := make([]any, len(row))
				for i := range row {
					dest[i] = &row[i]
				}
				require.NoError(t, rows.Scan(dest...))
				got = append(got, row)
			}
			require.NoError(t, rows.Err())

			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				for j, v := range want {
					if f, ok := v.(float64); ok {
						assert.InDelta(t, f, got[i][j], 1e-9)
					} else {
						assert.Equal(t, v, got[i][j])
					}
				}
			}
		})
	}
}
