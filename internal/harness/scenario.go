package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
)

// DefaultRequestID tags scenario executions that set no request_id.
const DefaultRequestID = "test-request"

// Scenario defines a conformance test scenario: a query from CUE specs run
// against seeded in-memory SQLite, plus the dialects to render it for.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files holding the datasets and queries. Paths are
	// relative to the scenario file.
	Specs []string `yaml:"specs"`

	// Query names the query to run.
	Query string `yaml:"query"`

	// Seed lists the tables created before the query runs.
	Seed []SeedTable `yaml:"seed,omitempty"`

	// Dialects lists dialect version names, e.g. POSTGRESQL_14, the query
	// is also rendered for.
	Dialects []string `yaml:"dialects,omitempty"`

	// MaxRows caps the rows read per execution. Zero keeps the default.
	MaxRows int `yaml:"max_rows,omitempty"`

	// RequestID is the request id of the execution.
	RequestID string `yaml:"request_id,omitempty"`

	// Assertions validate the rows, SQL and errors of the execution.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// SeedTable is a fixture table.
type SeedTable struct {
	Table   string       `yaml:"table"`
	Columns []SeedColumn `yaml:"columns"`
	Rows    [][]any      `yaml:"rows"`
}

// SeedColumn is a fixture column. Type is a dtype name such as "float".
type SeedColumn struct {
	Name string         `yaml:"name"`
	Type dtype.DataType `yaml:"type"`
}

// Assertion validates part of a scenario result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Rows are the expected data rows (rows_equal, row_contains uses the
	// first).
	Rows [][]any `yaml:"rows,omitempty"`

	// Count is the expected number of rows (row_count, block_rows).
	Count int `yaml:"count,omitempty"`

	// Block is the block id (block_rows, sql_contains).
	Block int `yaml:"block,omitempty"`

	// Dialect is the dialect name whose SQL is checked (sql_contains).
	Dialect string `yaml:"dialect,omitempty"`

	// Text is the expected SQL fragment (sql_contains).
	Text string `yaml:"text,omitempty"`

	// Code is the expected runtime error code (error).
	Code string `yaml:"code,omitempty"`

	// Cells are the expected pivot cells (pivot_cells).
	Cells [][]any `yaml:"cells,omitempty"`
}

// Assertion type constants.
const (
	AssertRowsEqual   = "rows_equal"
	AssertRowContains = "row_contains"
	AssertRowCount    = "row_count"
	AssertBlockRows   = "block_rows"
	AssertSQLContains = "sql_contains"
	AssertError       = "error"
	AssertPivotCells  = "pivot_cells"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so typos like "assertion:" fail loudly.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = basePath

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Dir returns the directory spec paths are resolved against.
func (s *Scenario) Dir() string { return s.dir }

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}

	for _, spec := range s.Specs {
		path := spec
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", path)
		}
	}

	for i, t := range s.Seed {
		if t.Table == "" {
			return fmt.Errorf("seed[%d]: table is required", i)
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("seed[%d]: columns are required", i)
		}
		for j, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("seed[%d].rows[%d]: %d values for %d columns", i, j, len(row), len(t.Columns))
			}
		}
	}

	for i, name := range s.Dialects {
		c, err := dialect.Parse(name)
		if err != nil {
			return fmt.Errorf("dialects[%d]: %w", i, err)
		}
		if !c.IsAtomic() {
			return fmt.Errorf("dialects[%d]: %s is not a single dialect version", i, name)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.Dialects); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, dialects []string) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowsEqual:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for rows_equal", index)
		}
	case AssertRowContains:
		if len(a.Rows) != 1 {
			return fmt.Errorf("assertions[%d]: row_contains takes exactly one row", index)
		}
	case AssertRowCount, AssertBlockRows:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
		if !slices.Contains(dialects, a.Dialect) {
			return fmt.Errorf("assertions[%d]: dialect %q is not listed in dialects", index, a.Dialect)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case AssertPivotCells:
		if a.Cells == nil {
			return fmt.Errorf("assertions[%d]: cells is required for pivot_cells", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
