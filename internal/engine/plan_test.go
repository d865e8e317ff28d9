package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
)

func testRegistry(t *testing.T) *translate.Registry {
	t.Helper()
	reg, err := builtin.Registry()
	require.NoError(t, err)
	return reg
}

func TestPrepare_Blocks(t *testing.T) {
	q := twoBlockQuery()
	plan, err := Prepare(testRegistry(t), dialect.SQLITE_3_25, ordersDataset(), q)
	require.NoError(t, err)

	require.Len(t, plan.Blocks, 2)
	assert.Equal(t, []int{1, 2}, plan.Blocks[0].Columns)
	assert.Equal(t, []int{1, 3}, plan.Blocks[1].Columns)
	assert.Equal(t, 1, plan.Blocks[1].ID)
	assert.Contains(t, plan.Blocks[0].SQL, `"Region"`)
	assert.Contains(t, plan.Blocks[1].SQL, `"Cost"`, "calculated fields are inlined")
	assert.Equal(t, q.Fingerprint(), plan.Fingerprint)

	region, _ := plan.Legend.Item(1)
	assert.Equal(t, dtype.String, region.DataType)
	profit, _ := plan.Legend.Item(3)
	assert.Equal(t, dtype.Float, profit.DataType)

	assert.Equal(t, 2, plan.Stats.Weights["sum"])
	assert.Contains(t, plan.Explain(), "-- block 1: items [1 3]")
}

func TestPrepare_OtherDialect(t *testing.T) {
	ds := ordersDataset()
	ds.Connector = ""
	q := twoBlockQuery()
	q.Filters = []ast.Node{ast.NewBinaryOp("==", ast.NewField("Region"), ast.NewString("East"))}

	plan, err := Prepare(testRegistry(t), dialect.POSTGRESQL_14, ds, q)
	require.NoError(t, err)
	assert.Contains(t, plan.Blocks[0].SQL, "$1")
	assert.Equal(t, []any{"East"}, plan.Blocks[0].Args)
}

func TestPrepare_MeasuresOnly(t *testing.T) {
	q := &compiler.Query{
		Name:     "total",
		Dataset:  "orders",
		Measures: []compiler.QueryItem{{ID: 1, Title: "Sales", Formula: sumOf("Sales")}},
	}
	plan, err := Prepare(testRegistry(t), dialect.SQLITE_3_25, ordersDataset(), q)
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 1)
	assert.Equal(t, []int{1}, plan.Blocks[0].Columns)
}

func TestPrepare_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		target dialect.Combo
		mutate func(ds *compiler.Dataset, q *compiler.Query)
		code   RuntimeErrorCode
	}{
		{
			name:   "unknown field",
			target: dialect.SQLITE_3_25,
			mutate: func(_ *compiler.Dataset, q *compiler.Query) {
				q.Measures[0].Formula = sumOf("Discount")
			},
			code: ErrCodeInvalidQuery,
		},
		{
			name:   "connector mismatch",
			target: dialect.MYSQL_8_0_12,
			mutate: func(*compiler.Dataset, *compiler.Query) {},
			code:   ErrCodeDialectMismatch,
		},
		{
			name:   "family target",
			target: dialect.SQLITE,
			mutate: func(*compiler.Dataset, *compiler.Query) {},
			code:   ErrCodeDialectMismatch,
		},
		{
			name:   "unknown function",
			target: dialect.SQLITE_3_25,
			mutate: func(_ *compiler.Dataset, q *compiler.Query) {
				q.Measures[0].Formula = ast.Call("frobnicate", ast.NewField("Sales"))
			},
			code: ErrCodeTranslationFailed,
		},
		{
			name:   "field outside the query dimensions",
			target: dialect.SQLITE_3_25,
			mutate: func(_ *compiler.Dataset, q *compiler.Query) {
				q.Measures[0].Formula = ast.Call("concat", ast.NewField("City"), ast.Call("str", sumOf("Sales")))
			},
			code: ErrCodeInvalidFormula,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds, q := ordersDataset(), twoBlockQuery()
			tc.mutate(ds, q)

			_, err := Prepare(testRegistry(t), tc.target, ds, q)
			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.code, re.Code)
		})
	}
}
