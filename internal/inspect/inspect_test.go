package inspect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/funcs"
)

func field(name string) *ast.Field { return ast.NewField(name) }

func testEnv(globals ...string) *Env {
	dims := make([]ast.Node, len(globals))
	for i, g := range globals {
		dims[i] = field(g)
	}
	return NewEnv(funcs.Builtins(), map[string]dtype.DataType{
		"Sales":    dtype.Float,
		"Quantity": dtype.Integer,
		"Region":   dtype.String,
		"City":     dtype.String,
		"Category": dtype.String,
		"Date":     dtype.Date,
	}, dims)
}

func sumWith(lod *ast.LodSpecifier, arg ast.Node) *ast.FuncCall {
	return ast.NewFuncCall("sum", []ast.Node{arg}, ast.WithLod(lod))
}

func TestEffectiveDimensions(t *testing.T) {
	env := testEnv("Region", "City")
	tests := []struct {
		name   string
		node   ast.Node
		want   string
		scalar bool
	}{
		{"no directive", ast.Call("sum", field("Sales")), "{[Region], [City]}", false},
		{"include", sumWith(ast.Include(field("Category")), field("Sales")), "{[Region], [City], [Category]}", false},
		{"include existing", sumWith(ast.Include(field("Region")), field("Sales")), "{[Region], [City]}", false},
		{"exclude", sumWith(ast.Exclude(field("City")), field("Sales")), "{[Region]}", false},
		{"fixed", sumWith(ast.Fixed(field("Category")), field("Sales")), "FIXED {[Category]}", false},
		{"fixed scalar", sumWith(ast.Fixed(), field("Sales")), "FIXED {}", true},
		{"lod on scalar function ignored", ast.NewFuncCall("upper", []ast.Node{field("City")}, ast.WithLod(ast.Fixed())), "{[Region], [City]}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims := env.EffectiveDimensions(tt.node, nil)
			assert.Equal(t, tt.want, dims.String())
			assert.Equal(t, tt.scalar, dims.IsScalar())
		})
	}
}

func TestScalarDistinctFromNoDirective(t *testing.T) {
	env := testEnv()
	none := env.EffectiveDimensions(ast.Call("sum", field("Sales")), nil)
	scalar := env.EffectiveDimensions(sumWith(ast.Fixed(), field("Sales")), nil)
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, 0, scalar.Len())
	assert.False(t, none.IsScalar())
	assert.True(t, scalar.IsScalar())
}

func TestEffectiveDimensionsNestedInnermostWins(t *testing.T) {
	env := testEnv("Region")
	inner := sumWith(ast.Exclude(field("Category")), field("Sales"))
	outer := sumWith(ast.Include(field("Category"), field("City")), inner)

	assert.Equal(t, "{[Region], [Category], [City]}", env.EffectiveDimensions(outer, nil).String())
	assert.Equal(t, "{[Region], [City]}", env.EffectiveDimensions(inner, []ast.Node{outer}).String())
}

func TestEffectiveDimensionsFixedStopsWalk(t *testing.T) {
	env := testEnv("Region")
	inner := sumWith(ast.Include(field("City")), field("Sales"))
	mid := sumWith(ast.Fixed(field("Category")), inner)
	outer := sumWith(ast.Exclude(field("Category")), mid)

	dims := env.EffectiveDimensions(inner, []ast.Node{outer, mid})
	assert.Equal(t, "FIXED {[Category], [City]}", dims.String())
	assert.Equal(t, "FIXED {[Category]}", env.ScopeDimensions([]ast.Node{outer, mid}).String())
	assert.Equal(t, "{[Region]}", env.ScopeDimensions(nil).String())
}

func TestDimensionsSetOps(t *testing.T) {
	a := NewDimensions(false, field("a"), field("b"), field("a"))
	b := NewDimensions(true, field("b"), field("c"))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []string{"[b]"}, a.Intersect(b).Keys())
	assert.False(t, a.SubsetOf(b))
	assert.True(t, NewDimensions(false, field("b")).SubsetOf(b))
	assert.True(t, a.Equal(NewDimensions(false, field("b"), field("a"))))
}

func TestAutonomousChildren(t *testing.T) {
	env := testEnv()
	assert.Equal(t, []int{0}, env.AutonomousChildren(sumWith(ast.Include(field("City")), field("Sales"))))
	assert.Nil(t, env.AutonomousChildren(ast.Call("sum", field("Sales"))))
	fork := ast.NewQueryFork(ast.JoinLeft, ast.Fixed(), ast.NewJoiningCondition(), ast.Call("sum", field("Sales")))
	assert.Equal(t, []int{2}, env.AutonomousChildren(fork))
}

func TestInferType(t *testing.T) {
	env := testEnv()
	tests := []struct {
		name string
		node ast.Node
		want dtype.DataType
	}{
		{"field", field("Quantity"), dtype.Integer},
		{"sum int", ast.Call("sum", field("Quantity")), dtype.Integer},
		{"mixed arithmetic", ast.NewBinaryOp("+", field("Quantity"), field("Sales")), dtype.Float},
		{"comparison", ast.NewBinaryOp(">", field("Sales"), ast.NewInt(1)), dtype.Boolean},
		{"null", ast.NewNull(), dtype.Null},
		{"year", ast.Call("year", field("Date")), dtype.Integer},
		{"between", ast.NewTernaryOp("between", field("Sales"), ast.NewInt(1), ast.NewInt(2)), dtype.Boolean},
		{"fork", ast.NewQueryFork(ast.JoinLeft, ast.Fixed(), ast.NewJoiningCondition(), ast.Call("countd", field("City"))), dtype.Integer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.InferType(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferTypeErrors(t *testing.T) {
	env := testEnv()

	_, err := env.InferType(field("Missing"))
	var ufe *UnknownFieldError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "Missing", ufe.Name)

	_, err = env.InferType(ast.Call("nosuch", field("Sales")))
	var udf *UndefinedFunctionError
	require.True(t, errors.As(err, &udf))

	_, err = env.InferType(ast.Call("upper", field("Sales")))
	var ate *funcs.ArgumentTypeError
	require.True(t, errors.As(err, &ate))
	assert.Equal(t, []dtype.DataType{dtype.Float}, ate.ArgTypes)

	_, err = env.InferType(ast.NewErrorNode("oops"))
	assert.Error(t, err)
}

func TestIsAggregatedAndFreeFields(t *testing.T) {
	env := testEnv()
	expr := ast.NewBinaryOp("+", field("Region"), ast.Call("sum", field("Sales")))
	assert.True(t, env.IsAggregated(expr))
	assert.False(t, env.IsAggregated(ast.Call("upper", field("City"))))

	free := env.FreeFields(expr)
	require.Len(t, free, 1)
	assert.Equal(t, "Region", free[0].Name())

	all := CollectFields(ast.NewFuncCall("sum", []ast.Node{field("Sales")},
		ast.WithLod(ast.Include(field("City"))),
		ast.WithBeforeFilterBy(field("Date"))))
	names := []string{}
	for _, f := range all {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"Sales", "City"}, names)
}

func TestEnclosingAggregate(t *testing.T) {
	env := testEnv()
	parents := []ast.Node{ast.Call("sum", field("Sales")), ast.Call("upper", field("City"))}
	assert.Equal(t, 0, env.EnclosingAggregate(parents))
	assert.Equal(t, -1, env.EnclosingAggregate(parents[1:]))
}
