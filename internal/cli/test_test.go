package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")

const tmpScenario = `name: tmp_region
description: "Sales per region"
specs:
  - orders.cue
query: by_region
seed:
  - table: orders
    columns:
      - {name: Region, type: string}
      - {name: Sales, type: float}
    rows:
      - [East, 10]
      - [West, 5]
      - [East, 20]
dialects: [POSTGRESQL_14]
assertions:
  - type: row_count
    count: 2
`

// writeScenarioDir writes orders.cue and one scenario into a fresh
// directory.
func writeScenarioDir(t *testing.T, scenario string) string {
	t.Helper()
	dir := writeSpecs(t, map[string]string{"orders.cue": validOrders})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp_region.yaml"), []byte(scenario), 0644))
	return dir
}

func TestTest_Scenarios(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)

	for _, name := range []string{"region_sales", "block_merge", "top_city", "unknown_field"} {
		assert.Contains(t, out, "✓ "+name)
	}
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "region_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_FilterNoMatch(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "nothing_*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_InvalidFilter(t *testing.T) {
	_, err := execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := writeScenarioDir(t, tmpScenario)

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ tmp_region")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "tmp_region.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "# tmp_region")
	assert.Contains(t, string(golden), "## POSTGRESQL_14")

	// The fresh golden file matches on the next run.
	_, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := writeScenarioDir(t, tmpScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "tmp_region.golden"), []byte("stale\n"), 0644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ tmp_region")
	assert.Contains(t, out, "output does not match golden file")
}

func TestTest_FailingAssertion(t *testing.T) {
	dir := writeScenarioDir(t, tmpScenario[:len(tmpScenario)-len("    count: 2\n")]+"    count: 3\n")

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTest_SpecsFlag(t *testing.T) {
	specs := writeSpecs(t, map[string]string{"orders.cue": validOrders})
	scenarios := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "tmp_region.yaml"), []byte(tmpScenario), 0644))

	out, err := execute(t, "test", scenarios, "--specs", specs)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed")
}

func TestTest_MissingDirs(t *testing.T) {
	_, err := execute(t, "test", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test", scenariosDir, "--specs", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "golden", "region.golden"), goldenFilePath(filepath.Join("a", "region.yaml")))
}
