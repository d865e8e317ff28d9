package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/engine"
	"github.com/roach88/formulon/internal/store"
	"github.com/roach88/formulon/internal/translate"
)

// ErrCodeRowQuota is the result error code of an execution stopped by the
// row quota.
const ErrCodeRowQuota = "ROW_QUOTA_EXCEEDED"

// Harness runs one scenario against a fresh in-memory SQLite store.
type Harness struct {
	store    *store.Store
	reg      *translate.Registry
	executor *engine.Executor
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// fixed request ids so traces are reproducible.
//
// Execution flow:
//  1. Load and compile the CUE specs
//  2. Create and seed the in-memory database
//  3. Render the query for every listed dialect
//  4. Execute it and record rows, block counts and the pivot
//  5. Evaluate assertions
//
// Errors returned by Run are setup failures. A query the engine rejects
// is recorded in Result.ErrorCode for the error assertion.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with the executor logging to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	bundle, err := loadBundle(scenario)
	if err != nil {
		return nil, err
	}
	ds, q, err := bundle.Resolve(scenario.Query)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, sqlite.Plugin, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	if err := st.Seed(ctx, seedTables(scenario.Seed)...); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	reg, err := builtin.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	requestID := scenario.RequestID
	if requestID == "" {
		requestID = DefaultRequestID
	}
	opts := []engine.ExecutorOption{
		engine.WithLogger(logger),
		engine.WithRequestIDs(engine.NewFixedGenerator(requestID, requestID+"-pivot")),
	}
	if scenario.MaxRows > 0 {
		opts = append(opts, engine.WithMaxRows(scenario.MaxRows))
	}

	h := &Harness{
		store:    st,
		reg:      reg,
		executor: engine.NewExecutor(st, reg, opts...),
		logger:   logger,
	}

	result := NewResult()
	if err := h.render(scenario.Dialects, ds, q, result); err == nil {
		h.execute(ctx, ds, q, result)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadBundle(scenario *Scenario) (*compiler.Bundle, error) {
	files := make([]string, len(scenario.Specs))
	for i, spec := range scenario.Specs {
		files[i] = spec
		if !filepath.IsAbs(spec) {
			files[i] = filepath.Join(scenario.dir, spec)
		}
	}
	v, err := compiler.Load(scenario.dir, files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	bundle, errs := compiler.CompileBundle(v, true)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile specs: %w", errs[0])
	}
	return bundle, nil
}

func seedTables(seed []SeedTable) []store.Table {
	tables := make([]store.Table, len(seed))
	for i, t := range seed {
		cols := make([]store.Column, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = store.Column{Name: c.Name, Type: c.Type}
		}
		tables[i] = store.Table{Name: t.Table, Columns: cols, Rows: t.Rows}
	}
	return tables
}

// render plans the query for every dialect. The first failure is
// recorded on result and returned.
func (h *Harness) render(dialects []string, ds *compiler.Dataset, q *compiler.Query, result *Result) error {
	for _, name := range dialects {
		target, err := dialect.Parse(name)
		if err != nil {
			return h.fail(result, err)
		}
		plan, err := engine.Prepare(h.reg, target, ds, q)
		if err != nil {
			return h.fail(result, err)
		}
		for _, b := range plan.Blocks {
			result.SQL[name] = append(result.SQL[name], b.SQL)
		}
		result.Explain[name] = plan.Explain()
	}
	return nil
}

// execute runs the query on the store and records its rows. Failures are
// recorded on result.
func (h *Harness) execute(ctx context.Context, ds *compiler.Dataset, q *compiler.Query, result *Result) {
	plan, err := h.executor.Prepare(ds, q)
	if err != nil {
		h.fail(result, err)
		return
	}
	for _, b := range plan.Blocks {
		result.addEvent(TraceEvent{Type: EventPlan, Block: b.ID, Items: b.Columns})
	}

	res, err := h.executor.Execute(ctx, plan)
	if err != nil {
		h.fail(result, err)
		return
	}
	result.Rows = [][]any{}
	for row := range res.Stream.Rows() {
		result.Rows = append(result.Rows, row.Data)
		result.addEvent(TraceEvent{Type: EventRow, Items: row.LegendItemIDs, Data: row.Data})
	}
	for _, b := range res.Stream.Meta.Blocks {
		result.BlockRows[b.BlockID] = b.Rows
		result.addEvent(TraceEvent{Type: EventBlock, Block: b.BlockID, Data: []any{b.Rows}})
	}
	if err := res.Err(); err != nil {
		h.fail(result, err)
		return
	}
	h.logger.Info("scenario query executed", "query", q.Name, "rows", len(result.Rows))

	if q.Pivot == nil {
		return
	}
	again, err := h.executor.Execute(ctx, plan)
	if err != nil {
		h.fail(result, err)
		return
	}
	table, err := again.Pivot()
	if err != nil {
		h.fail(result, err)
		return
	}
	result.Pivot = table.Cells
}

func (h *Harness) fail(result *Result, err error) error {
	result.ErrorCode = errorCode(err)
	result.addEvent(TraceEvent{Type: EventError, Code: result.ErrorCode, Message: err.Error()})
	h.logger.Info("scenario query failed", "code", result.ErrorCode, "error", err)
	return err
}

func errorCode(err error) string {
	var re *engine.RuntimeError
	switch {
	case errors.As(err, &re):
		return string(re.Code)
	case engine.IsRowsExceededError(err):
		return ErrCodeRowQuota
	default:
		return "UNKNOWN"
	}
}
