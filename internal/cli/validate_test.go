package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"orders.cue": validOrders})

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Equal(t, "✓ All specs valid\n", out)
}

func TestValidate_WithDialects(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"orders.cue": validOrders})

	out, err := execute(t, "validate", dir, "--dialect", "POSTGRESQL_14", "--dialect", "MYSQL_5_7")
	require.NoError(t, err)
	assert.Contains(t, out, "All specs valid")
}

func TestValidate_UnknownField(t *testing.T) {
	out, err := execute(t, "validate", specsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E106: queries.bad_field")
	assert.NotContains(t, out, "queries.by_region")
}

func TestValidate_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", specsDir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "E106", resp.Error.Code)
}

func TestValidate_CollectsCompileErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"orders.cue": validOrders,
		"broken.cue": `queries: nothing: dataset: "orders"`,
	})

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E111: load: queries.nothing: query:")
}

func TestValidate_Cycle(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"orders.cue": `
datasets: orders: {
	table: "orders"
	fields: {
		A: {type: "float", formula: {op: "+", args: ["B", {lit: 1}]}}
		B: {type: "float", formula: {op: "+", args: ["A", {lit: 1}]}}
	}
}
`})

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "datasets.orders.fields.")
}

func TestValidate_BadDialect(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"orders.cue": validOrders})

	tests := []struct {
		dialect string
		wantOut string
	}{
		{"SQLITE", "SQLITE is not a single dialect version"},
		{"ORACLE_19", `unknown dialect "ORACLE_19"`},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			out, err := execute(t, "validate", dir, "--dialect", tt.dialect)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestValidate_MissingDir(t *testing.T) {
	_, err := execute(t, "validate", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseDialects(t *testing.T) {
	targets, err := parseDialects([]string{"POSTGRESQL_14", "SQLITE_3_25"})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "POSTGRESQL_14", targets[0].String())
	assert.Equal(t, "SQLITE_3_25", targets[1].String())

	targets, err = parseDialects(nil)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestValidateSpecsDir(t *testing.T) {
	errs, err := ValidateSpecsDir(specsDir)
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	for _, e := range errs {
		assert.Contains(t, e.Field, "queries.bad_field")
	}

	_, err = ValidateSpecsDir("does-not-exist")
	assert.Error(t, err)
}
