package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
)

func TestExplain_Text(t *testing.T) {
	out, err := execute(t, "explain", specsDir, "--query", "by_region", "--dialect", "POSTGRESQL_14")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "-- query by_region on orders (POSTGRESQL_14)\n"), out)
	assert.Contains(t, out, "-- block 0: items [1 2]")
	assert.Contains(t, out, `SUM("r0"."Sales") AS "m0"`)
	assert.NotContains(t, out, "# TYPE")
}

func TestExplain_DefaultTargets(t *testing.T) {
	out, err := execute(t, "explain", specsDir, "--query", "by_region")
	require.NoError(t, err)

	for _, target := range []string{"SQLITE_3_25", "POSTGRESQL_14", "MYSQL_8_0_12"} {
		assert.Contains(t, out, "-- query by_region on orders ("+target+")")
	}
	assert.Contains(t, out, "SUM(`r0`.`Sales`)")
}

func TestExplain_Args(t *testing.T) {
	out, err := execute(t, "explain", specsDir, "--query", "top_city", "--dialect", "POSTGRESQL_14")
	require.NoError(t, err)
	assert.Contains(t, out, `("t"."Region" <> $1)`)
	assert.Contains(t, out, "-- args: [West]")
}

func TestExplain_Metrics(t *testing.T) {
	out, err := execute(t, "explain", specsDir, "--query", "two_blocks", "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "# TYPE formulon_translation_cache_hits_total counter")
	assert.Contains(t, out, "# TYPE formulon_translation_function_uses_total counter")
	assert.Contains(t, out, `formulon_translation_function_uses_total{function="sum"}`)
}

func TestExplain_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "explain", specsDir, "--query", "two_blocks", "--dialect", "SQLITE_3_25")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExplainResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "two_blocks", resp.Data.Query)
	assert.Equal(t, "orders", resp.Data.Dataset)

	require.Len(t, resp.Data.Plans, 1)
	plan := resp.Data.Plans[0]
	assert.Equal(t, "SQLITE_3_25", plan.Dialect)
	assert.NotEmpty(t, plan.Fingerprint)
	require.Len(t, plan.Blocks, 2)
	assert.Equal(t, 0, plan.Blocks[0].ID)
	assert.Equal(t, 1, plan.Blocks[1].ID)
	assert.Positive(t, plan.Functions["sum"])
}

func TestExplain_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantOut  string
	}{
		{
			name:     "unknown query",
			args:     []string{"explain", specsDir, "--query", "missing"},
			wantExit: ExitCommandError,
			wantOut:  `Error [E005]: unknown query "missing"`,
		},
		{
			name:     "family instead of version",
			args:     []string{"explain", specsDir, "--query", "by_region", "--dialect", "POSTGRESQL"},
			wantExit: ExitCommandError,
			wantOut:  "not a single dialect version",
		},
		{
			name:     "unknown field",
			args:     []string{"explain", specsDir, "--query", "bad_field", "--dialect", "SQLITE_3_25"},
			wantExit: ExitFailure,
			wantOut:  "Error [INVALID_QUERY]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestExplain_QueryRequired(t *testing.T) {
	_, err := execute(t, "explain", specsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "query" not set`)
}

func TestDefaultTargets(t *testing.T) {
	pg := defaultTargets(&compiler.Dataset{Connector: "postgresql"})
	require.Len(t, pg, 1)
	assert.Equal(t, dialect.PostgreSQL.Latest(), pg[0])

	all := defaultTargets(&compiler.Dataset{})
	assert.Len(t, all, 3)
}

func TestRenderMetrics(t *testing.T) {
	c := translate.NewStatsCollector()
	stats := translate.NewTranslationStats()
	stats.CacheHits = 2
	stats.Weights["sum"] = 3
	c.Observe(stats)

	text, err := renderMetrics(c)
	require.NoError(t, err)
	assert.Contains(t, text, "formulon_translation_cache_hits_total 2\n")
	assert.Contains(t, text, `formulon_translation_function_uses_total{function="sum"} 3`)
}
