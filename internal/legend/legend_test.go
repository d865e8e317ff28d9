package legend

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/formulon/internal/dtype"
)

func TestNewLegend(t *testing.T) {
	l, err := NewLegend(
		LegendItem{ID: 1, Field: "Region", Role: Dimension, DataType: dtype.String},
		LegendItem{ID: 5, Field: "Measure Names", Role: MeasureNames},
		LegendItem{ID: 3, Field: "Sales", Role: Measure, DataType: dtype.Float},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []int{1, 3}, l.DataIDs())
	assert.Equal(t, 1, l.DataIndex(3))
	assert.Equal(t, -1, l.DataIndex(5))
	assert.Equal(t, -1, l.DataIndex(42))

	it, ok := l.Item(5)
	require.True(t, ok)
	assert.False(t, it.HasData())
	_, ok = l.Item(42)
	assert.False(t, ok)

	measures := l.ByRole(Measure)
	require.Len(t, measures, 1)
	assert.Equal(t, "Sales", measures[0].Field)
}

func TestNewLegend_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		items []LegendItem
		want  string
	}{
		{
			name: "duplicate id",
			items: []LegendItem{
				{ID: 1, Field: "Region", Role: Dimension},
				{ID: 1, Field: "City", Role: Dimension},
			},
			want: "legend item id 1 used twice",
		},
		{
			name:  "sorted measure names",
			items: []LegendItem{{ID: 1, Role: MeasureNames, Direction: Desc}},
			want:  "measure names cannot be sorted",
		},
		{
			name:  "unknown role",
			items: []LegendItem{{ID: 1, Role: Role(9)}},
			want:  "unknown role Role(9)",
		},
		{
			name: "two measure names",
			items: []LegendItem{
				{ID: 1, Role: MeasureNames},
				{ID: 2, Role: MeasureNames},
			},
			want: "at most one is allowed",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLegend(tc.items...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestItemsIsACopy(t *testing.T) {
	l, err := NewLegend(LegendItem{ID: 1, Field: "Region"})
	require.NoError(t, err)

	items := l.Items()
	items[0].Field = "changed"
	it, _ := l.Item(1)
	assert.Equal(t, "Region", it.Field)
}

func TestParseEnums(t *testing.T) {
	for _, r := range []Role{Dimension, Measure, MeasureNames} {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	for _, d := range []Direction{Unspecified, Asc, Desc} {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	for _, a := range []Axis{AxisRow, AxisColumn, AxisMeasure} {
		got, err := ParseAxis(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)

	_, err = ParseRole("attribute")
	assert.Error(t, err)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
	_, err = ParseAxis("page")
	assert.Error(t, err)
}

func TestCompareValues(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name string
		a, b any
		want int
	}{
		{"nulls", nil, nil, 0},
		{"null first", nil, 1, -1},
		{"ints", 1, 2, -1},
		{"int and float", int64(2), 2.0, 0},
		{"float fraction", 1.5, 1, 1},
		{"large unsigned", uint64(math.MaxUint64), int64(math.MaxInt64), 1},
		{"decimal", decimal.RequireFromString("0.1"), 0.1, 0},
		{"nan first", math.NaN(), -1e300, -1},
		{"infinity", math.Inf(1), 1e300, 1},
		{"bools", false, true, -1},
		{"times", day, day.Add(time.Hour), -1},
		{"strings", "East", "West", -1},
		{"bytes and string", []byte("East"), "East", 0},
		{"number before bool", 10, false, -1},
		{"bool before time", true, day, -1},
		{"time before string", day, "2024", -1},
		{"string before other", "x", struct{}{}, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareValues(tc.a, tc.b))
			assert.Equal(t, -tc.want, CompareValues(tc.b, tc.a))
		})
	}
}

func valueGen() *rapid.Generator[any] {
	return rapid.OneOf(
		rapid.Just[any](nil),
		rapid.Map(rapid.Int(), func(i int) any { return i }),
		rapid.Map(rapid.Float64(), func(f float64) any { return f }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
		rapid.Map(rapid.StringN(0, 4, -1), func(s string) any { return s }),
	)
}

func TestCompareValues_TotalOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := valueGen().Draw(t, "a")
		b := valueGen().Draw(t, "b")
		c := valueGen().Draw(t, "c")

		if CompareValues(a, b) != -CompareValues(b, a) {
			t.Fatalf("not antisymmetric: %v, %v", a, b)
		}
		if CompareValues(a, b) <= 0 && CompareValues(b, c) <= 0 && CompareValues(a, c) > 0 {
			t.Fatalf("not transitive: %v, %v, %v", a, b, c)
		}
	})
}
