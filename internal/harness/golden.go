package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the parts of a result golden files compare: the plan
// of every rendered dialect, the data rows and the pivot cells. Dialects
// appear in scenario order.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", scenario.Name)
	for _, name := range scenario.Dialects {
		if explain, ok := result.Explain[name]; ok {
			fmt.Fprintf(&b, "\n## %s\n%s", name, explain)
		}
	}
	if result.ErrorCode != "" {
		fmt.Fprintf(&b, "\n## error\n%s\n", result.ErrorCode)
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "\n## rows\n")
	writeGrid(&b, result.Rows)
	if result.Pivot != nil {
		fmt.Fprintf(&b, "\n## pivot\n")
		writeGrid(&b, result.Pivot)
	}
	return []byte(b.String())
}

func writeGrid(b *strings.Builder, rows [][]any) {
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = formatValue(v)
		}
		fmt.Fprintln(b, strings.Join(parts, "\t"))
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result, or an error if the scenario could not be set up.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against its
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))
}
