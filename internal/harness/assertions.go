package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/legend"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Rows     [][]any // Result rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nResult rows:\n")
		for i, row := range e.Rows {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatRow(row))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	// Only the error assertion inspects a failed execution.
	if result.ErrorCode != "" && a.Type != AssertError {
		return &AssertionError{
			Type:     a.Type,
			Expected: "successful execution",
			Actual:   "failed with " + result.ErrorCode,
		}
	}

	switch a.Type {
	case AssertRowsEqual:
		return assertRowsEqual(result.Rows, a)
	case AssertRowContains:
		return assertRowContains(result.Rows, a)
	case AssertRowCount:
		return assertRowCount(result.Rows, a)
	case AssertBlockRows:
		return assertBlockRows(result, a)
	case AssertSQLContains:
		return assertSQLContains(result, a)
	case AssertError:
		return assertErrorCode(result, a)
	case AssertPivotCells:
		return assertPivotCells(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertRowsEqual(rows [][]any, a Assertion) error {
	if len(rows) != len(a.Rows) {
		return &AssertionError{
			Type:     AssertRowsEqual,
			Expected: fmt.Sprintf("%d rows", len(a.Rows)),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
			Rows:     rows,
		}
	}
	for i := range rows {
		if !rowEqual(rows[i], a.Rows[i]) {
			return &AssertionError{
				Type:     AssertRowsEqual,
				Expected: fmt.Sprintf("row %d = %s", i+1, formatRow(a.Rows[i])),
				Actual:   formatRow(rows[i]),
				Rows:     rows,
			}
		}
	}
	return nil
}

func assertRowContains(rows [][]any, a Assertion) error {
	for _, row := range rows {
		if rowEqual(row, a.Rows[0]) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRowContains,
		Expected: "row " + formatRow(a.Rows[0]),
		Actual:   "not found in result",
		Rows:     rows,
	}
}

func assertRowCount(rows [][]any, a Assertion) error {
	if len(rows) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", a.Count),
		Actual:   fmt.Sprintf("%d rows", len(rows)),
		Rows:     rows,
	}
}

func assertBlockRows(result *Result, a Assertion) error {
	got := result.BlockRows[a.Block]
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertBlockRows,
		Expected: fmt.Sprintf("block %d read %d rows", a.Block, a.Count),
		Actual:   fmt.Sprintf("%d rows", got),
	}
}

func assertSQLContains(result *Result, a Assertion) error {
	stmts := result.SQL[a.Dialect]
	if a.Block < 0 || a.Block >= len(stmts) {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("%s block %d", a.Dialect, a.Block),
			Actual:   fmt.Sprintf("%d statements", len(stmts)),
		}
	}
	if strings.Contains(stmts[a.Block], a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("%s block %d contains %q", a.Dialect, a.Block, a.Text),
		Actual:   stmts[a.Block],
	}
}

func assertErrorCode(result *Result, a Assertion) error {
	if result.ErrorCode == a.Code {
		return nil
	}
	actual := result.ErrorCode
	if actual == "" {
		actual = "no error"
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: a.Code,
		Actual:   actual,
		Rows:     result.Rows,
	}
}

func assertPivotCells(result *Result, a Assertion) error {
	if result.Pivot == nil {
		return &AssertionError{Type: AssertPivotCells, Expected: "a pivot table", Actual: "query has no pivot"}
	}
	if err := assertRowsEqual(result.Pivot, Assertion{Rows: a.Cells}); err != nil {
		ae := err.(*AssertionError)
		ae.Type = AssertPivotCells
		return ae
	}
	return nil
}

// rowEqual compares values the way the legend orders them, so YAML
// integers match float results.
func rowEqual(got, want []any) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if legend.CompareValues(got[i], want[i]) != 0 {
			return false
		}
	}
	return true
}

func formatRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
