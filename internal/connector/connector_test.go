package connector_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
	"github.com/roach88/formulon/internal/inspect"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

func testEnv() *inspect.Env {
	return inspect.NewEnv(funcs.Builtins(), map[string]dtype.DataType{
		"Sales":  dtype.Float,
		"Region": dtype.String,
		"Date":   dtype.Date,
	}, nil)
}

func translateFor(t *testing.T, target dialect.Combo, n ast.Node) (string, []any) {
	t.Helper()
	reg, err := builtin.Registry()
	require.NoError(t, err)
	tr, err := translate.NewTranslator(reg, target, testEnv())
	require.NoError(t, err)
	e, err := tr.Translate(n)
	require.NoError(t, err)
	sqlText, args, err := tr.Render(e)
	require.NoError(t, err)
	return sqlText, args
}

func date(y int, m time.Month, d int) *ast.Literal {
	return ast.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestLoadAll_RejectsDuplicatePlugins(t *testing.T) {
	_, err := connector.LoadAll(sqlite.Plugin, sqlite.Plugin)
	assert.ErrorContains(t, err, "loaded twice")
}

func TestInstall_RejectsTypesOutsideFamily(t *testing.T) {
	p := connector.Plugin{
		Family: dialect.SQLite,
		Types:  std.TypeNames{Dialects: dialect.POSTGRESQL, Names: map[dtype.DataType]string{dtype.Integer: "INT"}},
	}
	_, err := connector.LoadAll(p)
	assert.ErrorContains(t, err, "outside the family")
}

func TestFind(t *testing.T) {
	p, ok := connector.Find(builtin.Plugins(), dialect.PostgreSQL)
	require.True(t, ok)
	assert.Equal(t, "pgx", p.DriverName)
	_, ok = connector.Find(builtin.Plugins(), dialect.ClickHouse)
	assert.False(t, ok)
}

func TestOverrides(t *testing.T) {
	tests := []struct {
		name   string
		target dialect.Combo
		node   ast.Node
		sql    string
	}{
		{
			name:   "sqlite year",
			target: dialect.SQLITE_3_25,
			node:   ast.Call("year", ast.NewField("Date")),
			sql:    `CAST(strftime('%Y', "Date") AS INTEGER)`,
		},
		{
			name:   "sqlite native types",
			target: dialect.SQLITE_3_25,
			node:   ast.Call("str", ast.NewField("Sales")),
			sql:    `CAST("Sales" AS TEXT)`,
		},
		{
			name:   "postgres contains",
			target: dialect.POSTGRESQL_9_4,
			node:   ast.Call("contains", ast.NewField("Region"), ast.NewString("st")),
			sql:    `(STRPOS("Region", $1) > 0)`,
		},
		{
			name:   "postgres dateadd keeps dates",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("dateadd", ast.NewField("Date"), ast.NewString("day"), ast.NewInt(3)),
			sql:    `CAST("Date" + 3 * INTERVAL '1 day' AS DATE)`,
		},
		{
			name:   "postgres native types",
			target: dialect.POSTGRESQL_14,
			node:   ast.Call("str", ast.NewField("Sales")),
			sql:    `CAST("Sales" AS TEXT)`,
		},
		{
			name:   "mysql concat",
			target: dialect.MYSQL_8_0_12,
			node:   ast.Call("concat", ast.NewField("Region"), ast.NewString("!")),
			sql:    "CONCAT(`Region`, ?)",
		},
		{
			name:   "mysql datetrunc",
			target: dialect.MYSQL_5_6,
			node:   ast.Call("datetrunc", ast.NewField("Date"), ast.NewString("month")),
			sql:    "DATE(DATE_FORMAT(`Date`, '%Y-%m-01'))",
		},
		{
			name:   "other families keep standard variants",
			target: dialect.Oracle.Latest(),
			node:   ast.Call("contains", ast.NewField("Region"), ast.NewString("st")),
			sql:    `(POSITION(:1 IN "Region") > 0)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := translateFor(t, tt.target, tt.node)
			assert.Equal(t, tt.sql, got)
		})
	}
}

// The SQLite overrides are executed against the real driver.
func TestSQLiteOverridesExecute(t *testing.T) {
	db, err := sql.Open(sqlite.Plugin.DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var version string
	require.NoError(t, db.QueryRow(sqlite.Plugin.VersionQuery).Scan(&version))
	target, err := dialect.Resolve(dialect.SQLite, version)
	require.NoError(t, err)
	require.Equal(t, dialect.SQLITE_3_25, target)

	textCases := []struct {
		name string
		node ast.Node
		want string
	}{
		{"dateadd", ast.Call("dateadd", date(2024, time.January, 31), ast.NewString("day"), ast.NewInt(1)), "2024-02-01"},
		{"datetrunc", ast.Call("datetrunc", date(2024, time.March, 15), ast.NewString("month")), "2024-03-01"},
		{"date minus days", ast.NewBinaryOp("-", date(2024, time.March, 1), ast.NewInt(1)), "2024-02-29"},
		{"concat", ast.Call("concat", ast.NewString("a"), ast.NewString("b"), ast.NewString("c")), "abc"},
		{"upper", ast.Call("upper", ast.NewString("east")), "EAST"},
	}
	for _, tc := range textCases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := translateFor(t, target, tc.node)
			var got string
			require.NoError(t, db.QueryRow("SELECT "+query, args...).Scan(&got))
			assert.Equal(t, tc.want, got)
		})
	}

	intCases := []struct {
		name string
		node ast.Node
		want int64
	}{
		{"year", ast.Call("year", date(2024, time.March, 15)), 2024},
		{"day diff", ast.NewBinaryOp("-", date(2024, time.March, 1), date(2024, time.February, 1)), 29},
		{"contains", ast.Call("contains", ast.NewString("hello"), ast.NewString("ell")), 1},
		{"len", ast.Call("len", ast.NewString("hello")), 5},
		{"modulo", ast.NewBinaryOp("%", ast.NewInt(7), ast.NewInt(3)), 1},
	}
	for _, tc := range intCases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := translateFor(t, target, tc.node)
			var got int64
			require.NoError(t, db.QueryRow("SELECT "+query, args...).Scan(&got))
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("division", func(t *testing.T) {
		query, args := translateFor(t, target, ast.NewBinaryOp("/", ast.NewInt(7), ast.NewInt(2)))
		var got float64
		require.NoError(t, db.QueryRow("SELECT "+query, args...).Scan(&got))
		assert.InDelta(t, 3.5, got, 1e-9)
	})
}
