package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs the repository scenarios under testdata/scenarios and
// compares each against its golden file in testdata/golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := filepath.Base(path)
		t.Run(name[:len(name)-len(filepath.Ext(name))], func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Description)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestScenarios_BlockMerge(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/block_merge.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, 2, result.BlockRows[0])
	assert.Equal(t, 2, result.BlockRows[1])
	assert.Equal(t, [][]any{{60.0, 38.0}, {45.0, 34.0}}, result.Pivot)
}

func TestScenarios_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/region_sales.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(scenario, first), Snapshot(scenario, second))
	assert.Equal(t, first.Trace, second.Trace)
}
