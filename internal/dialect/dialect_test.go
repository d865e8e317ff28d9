package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// comboGen draws an arbitrary union of atomic points.
func comboGen() *rapid.Generator[Combo] {
	points := Any().ToList()
	return rapid.Custom(func(t *rapid.T) Combo {
		picked := rapid.SliceOfN(rapid.SampledFrom(points), 0, 12).Draw(t, "points")
		var c Combo
		for _, p := range picked {
			c = c.Union(p)
		}
		return c
	})
}

func TestCombo_UnionIntersectLaws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := comboGen().Draw(t, "a")
		b := comboGen().Draw(t, "b")
		c := comboGen().Draw(t, "c")

		assert.Equal(t, a.Union(b), b.Union(a))
		assert.Equal(t, a.Intersect(b), b.Intersect(a))
		assert.Equal(t, a.Union(b).Union(c), a.Union(b.Union(c)))
		assert.True(t, a.Union(b).Contains(a))
		assert.True(t, a.Contains(a.Intersect(b)))
		assert.Equal(t, a.Count()+b.Count()-a.Intersect(b).Count(), a.Union(b).Count())
	})
}

func TestCombo_ToListRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := comboGen().Draw(t, "a")

		var rebuilt Combo
		for _, p := range a.ToList() {
			require.True(t, p.IsAtomic())
			rebuilt = rebuilt.Union(p)
		}
		assert.Equal(t, a, rebuilt)
		assert.Len(t, a.ToList(), a.Count())
	})
}

func TestCombo_StringParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := comboGen().Draw(t, "a")
		if a.IsEmpty() {
			return
		}
		parsed, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	})
}

func TestFamily_AndAbove(t *testing.T) {
	c := ClickHouse.AndAbove("21.8")

	assert.False(t, c.Contains(CLICKHOUSE_19_13))
	assert.True(t, c.Contains(CLICKHOUSE_21_8))
	assert.True(t, c.Contains(CLICKHOUSE_22_10))
	assert.True(t, c.Contains(ClickHouse.Latest()))
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, c, CLICKHOUSE_21_8.AndAbove())
	assert.Equal(t, "CLICKHOUSE_21_8|CLICKHOUSE_22_10|CLICKHOUSE_23_8", c.String())
}

func TestFamily_AndAboveUnknownVersionPanics(t *testing.T) {
	assert.Panics(t, func() { PostgreSQL.AndAbove("7.0") })
	assert.Panics(t, func() { POSTGRESQL.AndAbove() })
}

func TestCombo_Point(t *testing.T) {
	f, version, ok := POSTGRESQL_9_4.Point()
	require.True(t, ok)
	assert.Equal(t, PostgreSQL, f)
	assert.Equal(t, "9.4", version)

	_, _, ok = POSTGRESQL.Point()
	assert.False(t, ok)
}

func TestCombo_StringCollapsesFullFamily(t *testing.T) {
	assert.Equal(t, "POSTGRESQL", POSTGRESQL.String())
	assert.Equal(t, "POSTGRESQL_9_4|MYSQL", POSTGRESQL_9_4.Union(MYSQL).String())
	assert.Equal(t, "EMPTY", Empty.String())
	assert.Equal(t, "BIGQUERY", BIGQUERY.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("POSTGRESQL_7")
	assert.Error(t, err)

	_, err = Parse(" | ")
	assert.Error(t, err)
}

func TestFamilies_DoNotOverlap(t *testing.T) {
	fams := Families()
	require.Len(t, fams, 15)
	for i, a := range fams {
		for _, b := range fams[i+1:] {
			assert.False(t, a.All().Intersects(b.All()), "%s overlaps %s", a, b)
		}
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name    string
		family  Family
		version string
		want    Combo
		wantErr bool
	}{
		{name: "exact", family: ClickHouse, version: "21.8", want: CLICKHOUSE_21_8},
		{name: "patch between", family: ClickHouse, version: "22.3.5", want: CLICKHOUSE_21_8},
		{name: "newer than all", family: ClickHouse, version: "24.1", want: ClickHouse.Latest()},
		{name: "mysql patch", family: MySQL, version: "8.0.33", want: MYSQL_8_0_12},
		{name: "empty version", family: PostgreSQL, version: "", want: POSTGRESQL_9_3},
		{name: "unversioned family", family: BigQuery, version: "whatever", want: BIGQUERY},
		{name: "too old", family: PostgreSQL, version: "8.4", wantErr: true},
		{name: "garbage", family: PostgreSQL, version: "not-a-version", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.family, tc.version)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got, "got %s", got)
		})
	}
}

func TestIdentifierConfig_Quote(t *testing.T) {
	assert.Equal(t, `"my ""col"""`, PostgreSQL.Identifiers().Quote(`my "col"`))
	assert.Equal(t, "`a``b`", MySQL.Identifiers().Quote("a`b"))
	assert.Equal(t, "[x]]y]", MSSQL.Identifiers().Quote("x]y"))
	assert.Equal(t, `"t"."c"`, SQLite.Identifiers().QuotePath("t", "c"))
}
