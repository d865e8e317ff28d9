package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/engine"
	"github.com/roach88/formulon/internal/legend"
	"github.com/roach88/formulon/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Query     string
	Connector string // connector family; defaults to the dataset's, then SQLITE
	DSN       string
	MaxRows   int
	Pivot     bool

	// RequestIDs allows overriding the request id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RequestIDs engine.RequestIDGenerator
}

// RunColumn describes one result column.
type RunColumn struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// RunResult holds the rows of one execution.
type RunResult struct {
	RequestID string       `json:"request_id"`
	Dialect   string       `json:"dialect"`
	Columns   []RunColumn  `json:"columns"`
	Rows      [][]any      `json:"rows"`
	BlockRows map[int]int  `json:"block_rows"`
	Pivot     *PivotResult `json:"pivot,omitempty"`
}

// PivotResult is a pivot table with its headers flattened to values.
type PivotResult struct {
	Rows    [][]any `json:"rows"`
	Columns [][]any `json:"columns"`
	Cells   [][]any `json:"cells"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Run a query against a database",
		Long: `Run a query against a database and print the merged rows.

The connector picks the database driver and dialect family; the dialect
version is resolved from the server. Every query block runs as its own
statement and the results are merged in legend order, then paginated.

Examples:
  formulon run ./specs --query by_region --dsn ./orders.db
  formulon run ./specs --query by_region --connector postgresql --dsn postgres://localhost/shop
  formulon run ./specs --query two_blocks --dsn ./orders.db --pivot --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "query to run (required)")
	_ = cmd.MarkFlagRequired("query")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database data source name (required)")
	_ = cmd.MarkFlagRequired("dsn")
	cmd.Flags().StringVar(&opts.Connector, "connector", "", "connector family (sqlite|postgresql|mysql)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", engine.DefaultMaxRows, "rows read per execution before it is stopped (0 disables)")
	cmd.Flags().BoolVar(&opts.Pivot, "pivot", false, "arrange the rows as the query's pivot table")

	return cmd
}

func runQuery(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	ds, q, err := resolveQuery(specsDir, opts.Query)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	plugin, err := pickConnector(opts.Connector, ds)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err.Error())
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("opening database", "connector", plugin.Family)
	st, err := store.Open(ctx, plugin, opts.DSN)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, fmt.Sprintf("opening database: %v", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database ready", "dialect", st.Dialect(), "server_version", st.ServerVersion())

	reg, err := builtin.Registry()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("loading translations: %v", err))
	}
	execOpts := []engine.ExecutorOption{engine.WithLogger(logger), engine.WithMaxRows(opts.MaxRows)}
	if opts.RequestIDs != nil {
		execOpts = append(execOpts, engine.WithRequestIDs(opts.RequestIDs))
	}
	executor := engine.NewExecutor(st, reg, execOpts...)

	plan, err := executor.Prepare(ds, q)
	if err != nil {
		return outputRuntimeError(formatter, err)
	}
	res, err := executor.Execute(ctx, plan)
	if err != nil {
		return outputRuntimeError(formatter, err)
	}

	result := RunResult{
		RequestID: res.RequestID,
		Dialect:   plan.Target.String(),
		Columns:   columnsOf(plan.Legend),
		Rows:      [][]any{},
		BlockRows: map[int]int{},
	}
	if opts.Pivot {
		table, err := res.Pivot()
		if err == nil {
			err = res.Err()
		}
		if err != nil {
			return outputRuntimeError(formatter, err)
		}
		result.Pivot = flattenPivot(table)
	} else {
		for row := range res.Stream.Rows() {
			result.Rows = append(result.Rows, row.Data)
		}
		if err := res.Err(); err != nil {
			return outputRuntimeError(formatter, err)
		}
	}
	for _, b := range res.Stream.Meta.Blocks {
		result.BlockRows[b.BlockID] = b.Rows
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if result.Pivot != nil {
		return writePivot(formatter.Writer, result.Pivot)
	}
	return writeRows(formatter.Writer, result)
}

// pickConnector finds the built-in connector named name, falling back to
// the dataset's connector and then to SQLite.
func pickConnector(name string, ds *compiler.Dataset) (connector.Plugin, error) {
	if name == "" {
		name = ds.Connector
	}
	if name == "" {
		name = "sqlite"
	}
	for _, p := range builtin.Plugins() {
		if strings.EqualFold(p.Family.String(), name) {
			return p, nil
		}
	}
	return connector.Plugin{}, fmt.Errorf("unknown connector %q", name)
}

func columnsOf(l *legend.Legend) []RunColumn {
	var cols []RunColumn
	for _, id := range l.DataIDs() {
		it, _ := l.Item(id)
		cols = append(cols, RunColumn{ID: it.ID, Title: it.Field, Type: it.DataType.String()})
	}
	return cols
}

func flattenPivot(t *legend.PivotTable) *PivotResult {
	p := &PivotResult{Rows: [][]any{}, Columns: [][]any{}, Cells: t.Cells}
	for _, h := range t.Rows {
		p.Rows = append(p.Rows, h.Values)
	}
	for _, h := range t.Columns {
		p.Columns = append(p.Columns, h.Values)
	}
	return p
}

func writeRows(w io.Writer, result RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	titles := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		titles[i] = c.Title
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	for _, row := range result.Rows {
		fmt.Fprintln(tw, joinValues(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d row(s), request %s\n", len(result.Rows), result.RequestID)
	return nil
}

func writePivot(w io.Writer, p *PivotResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{""}
	for _, c := range p.Columns {
		header = append(header, joinValues(c, " / "))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, r := range p.Rows {
		fmt.Fprintf(tw, "%s\t%s\n", joinValues(r, " / "), joinValues(p.Cells[i], "\t"))
	}
	return tw.Flush()
}

func joinValues(values []any, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			parts[i] = "NULL"
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, sep)
}
