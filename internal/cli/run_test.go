package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/engine"
	"github.com/roach88/formulon/internal/store"
	"github.com/roach88/formulon/internal/testutil"
)

// ordersDB writes the sample orders into a SQLite file and returns its
// path.
func ordersDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.db")
	ctx := context.Background()

	st, err := store.Open(ctx, sqlite.Plugin, path)
	require.NoError(t, err)
	require.NoError(t, st.Seed(ctx, testutil.OrdersTable()))
	require.NoError(t, st.Close())
	return path
}

// runWith runs a query with a fixed request id.
func runWith(t *testing.T, opts *RunOptions) (string, error) {
	t.Helper()
	if opts.RootOptions == nil {
		opts.RootOptions = &RootOptions{Format: "text"}
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = engine.DefaultMaxRows
	}
	opts.RequestIDs = engine.NewFixedGenerator("req-1")

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := runQuery(opts, specsDir, cmd)
	return out.String(), err
}

func TestRun_Text(t *testing.T) {
	out, err := runWith(t, &RunOptions{Query: "by_region", DSN: ordersDB(t)})
	require.NoError(t, err)

	assert.Contains(t, out, "Region  Sales\n")
	assert.Contains(t, out, "East    60\n")
	assert.Contains(t, out, "West    45\n")
	assert.Contains(t, out, "2 row(s), request req-1")
}

func TestRun_JSON(t *testing.T) {
	out, err := runWith(t, &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Query:       "two_blocks",
		DSN:         ordersDB(t),
	})
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data
	assert.Equal(t, "req-1", data.RequestID)
	assert.Equal(t, "SQLITE_3_25", data.Dialect)
	require.Len(t, data.Columns, 3)
	assert.Equal(t, RunColumn{ID: 1, Title: "Region", Type: "string"}, data.Columns[0])
	assert.Equal(t, [][]any{
		{"East", 60.0, nil},
		{"West", 45.0, nil},
		{"East", nil, 38.0},
		{"West", nil, 34.0},
	}, data.Rows)
	assert.Equal(t, map[int]int{0: 2, 1: 2}, data.BlockRows)
	assert.Nil(t, data.Pivot)
}

func TestRun_Pivot(t *testing.T) {
	out, err := runWith(t, &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Query:       "two_blocks",
		DSN:         ordersDB(t),
		Pivot:       true,
	})
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Pivot)
	assert.Equal(t, [][]any{{"East"}, {"West"}}, resp.Data.Pivot.Rows)
	assert.Len(t, resp.Data.Pivot.Columns, 2)
	assert.Equal(t, [][]any{{60.0, 38.0}, {45.0, 34.0}}, resp.Data.Pivot.Cells)
	assert.Empty(t, resp.Data.Rows)
}

func TestRun_PivotDefaultLayout(t *testing.T) {
	out, err := runWith(t, &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Query:       "by_region",
		DSN:         ordersDB(t),
		Pivot:       true,
	})
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Pivot)
	assert.Equal(t, [][]any{{"East"}, {"West"}}, resp.Data.Pivot.Rows)
	assert.Equal(t, [][]any{{60.0}, {45.0}}, resp.Data.Pivot.Cells)
}

func TestRun_PivotText(t *testing.T) {
	out, err := runWith(t, &RunOptions{Query: "two_blocks", DSN: ordersDB(t), Pivot: true})
	require.NoError(t, err)
	assert.Contains(t, out, "East")
	assert.Contains(t, out, "38")
	assert.NotContains(t, out, "row(s)")
}

func TestRun_Filtered(t *testing.T) {
	out, err := runWith(t, &RunOptions{Query: "top_city", DSN: ordersDB(t)})
	require.NoError(t, err)
	assert.Contains(t, out, "B     30\n")
	assert.Contains(t, out, "1 row(s)")
}

func TestRun_RowQuota(t *testing.T) {
	out, err := runWith(t, &RunOptions{Query: "by_region", DSN: ordersDB(t), MaxRows: 1})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ROW_QUOTA_EXCEEDED]: ")
	assert.Contains(t, out, "exceeded row quota")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		opts     *RunOptions
		wantExit int
		wantOut  string
	}{
		{
			name:     "unknown query",
			opts:     &RunOptions{Query: "missing", DSN: ":memory:"},
			wantExit: ExitCommandError,
			wantOut:  "Error [E005]",
		},
		{
			name:     "unknown connector",
			opts:     &RunOptions{Query: "by_region", DSN: ":memory:", Connector: "oracle"},
			wantExit: ExitCommandError,
			wantOut:  `Error [E009]: unknown connector "oracle"`,
		},
		{
			name:     "unreachable database",
			opts:     &RunOptions{Query: "by_region", DSN: "postgres://formulon@127.0.0.1:1/shop?connect_timeout=1", Connector: "postgresql"},
			wantExit: ExitCommandError,
			wantOut:  "Error [E009]: opening database",
		},
		{
			name:     "missing table",
			opts:     &RunOptions{Query: "by_region", DSN: ":memory:"},
			wantExit: ExitFailure,
			wantOut:  "Error [QUERY_FAILED]",
		},
		{
			name:     "invalid query",
			opts:     &RunOptions{Query: "bad_field", DSN: ":memory:"},
			wantExit: ExitFailure,
			wantOut:  "Error [INVALID_QUERY]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runWith(t, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestRun_RequiredFlags(t *testing.T) {
	_, err := execute(t, "run", specsDir, "--query", "by_region")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "dsn" not set`)
}

func TestPickConnector(t *testing.T) {
	tests := []struct {
		flag      string
		connector string
		want      string
	}{
		{"", "", "SQLITE"},
		{"", "postgresql", "POSTGRESQL"},
		{"mysql", "postgresql", "MYSQL"},
		{"SQLite", "", "SQLITE"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := pickConnector(tt.flag, &compiler.Dataset{Connector: tt.connector})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Family.String())
		})
	}
}

func TestJoinValues(t *testing.T) {
	assert.Equal(t, "East\tNULL\t38", joinValues([]any{"East", nil, 38.0}, "\t"))
	assert.Equal(t, "", joinValues(nil, "\t"))
}
