package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/engine"
	"github.com/roach88/formulon/internal/translate"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Query    string
	Dialects []string
	Metrics  bool // print translation stats in Prometheus text format
}

// BlockExplain is one rendered block statement.
type BlockExplain struct {
	ID      int    `json:"id"`
	Columns []int  `json:"columns"`
	SQL     string `json:"sql"`
	Args    []any  `json:"args,omitempty"`
}

// DialectExplain is the plan of a query for one dialect version.
type DialectExplain struct {
	Dialect     string         `json:"dialect"`
	Fingerprint string         `json:"fingerprint"`
	Blocks      []BlockExplain `json:"blocks"`
	CacheHits   int            `json:"cache_hits"`
	Functions   map[string]int `json:"functions"`
}

// ExplainResult holds the plans of one query.
type ExplainResult struct {
	Query   string           `json:"query"`
	Dataset string           `json:"dataset"`
	Plans   []DialectExplain `json:"plans"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <specs-dir>",
		Short: "Render the SQL of a query",
		Long: `Render the SQL statements of a query without running them.

The query is planned for every --dialect version: one statement per
query block, with its bound arguments and the legend ids of its result
columns. Without --dialect the dataset's connector family is used, or
the latest version of every built-in connector when the dataset names
none.

Examples:
  formulon explain ./specs --query by_region
  formulon explain ./specs --query by_region --dialect POSTGRESQL_9_4
  formulon explain ./specs --query by_region --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "query to explain (required)")
	_ = cmd.MarkFlagRequired("query")
	cmd.Flags().StringSliceVar(&opts.Dialects, "dialect", nil, "dialect version to render (repeatable)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print translation metrics in Prometheus text format")

	return cmd
}

func runExplain(opts *ExplainOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ds, q, err := resolveQuery(specsDir, opts.Query)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	targets, err := parseDialects(opts.Dialects)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	if len(targets) == 0 {
		targets = defaultTargets(ds)
	}

	reg, err := builtin.Registry()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("loading translations: %v", err))
	}
	stats := translate.NewStatsCollector()

	result := ExplainResult{Query: q.Name, Dataset: ds.Name}
	var explains []string
	for _, target := range targets {
		formatter.VerboseLog("Planning query %s for %s", q.Name, target)
		plan, err := engine.Prepare(reg, target, ds, q)
		if err != nil {
			return outputRuntimeError(formatter, err)
		}
		stats.Observe(plan.Stats)
		explains = append(explains, plan.Explain())
		result.Plans = append(result.Plans, explainPlan(plan))
	}

	var metrics string
	if opts.Metrics {
		if metrics, err = renderMetrics(stats); err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	for i, e := range explains {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, e)
	}
	if metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, metrics)
	}
	return nil
}

// resolveQuery loads specsDir and returns the named query with its
// dataset. Compile errors of other queries do not matter.
func resolveQuery(specsDir, name string) (*compiler.Dataset, *compiler.Query, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		return nil, nil, loadErrors[0]
	}
	ds, q, err := loadResult.Bundle.Resolve(name)
	if err != nil {
		if len(loadErrors) > 0 {
			return nil, nil, loadErrors[0]
		}
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return ds, q, nil
}

// defaultTargets picks the latest version of the dataset's connector, or
// of every built-in connector.
func defaultTargets(ds *compiler.Dataset) []dialect.Combo {
	var targets []dialect.Combo
	for _, p := range builtin.Plugins() {
		if ds.Connector == "" || strings.EqualFold(ds.Connector, p.Family.String()) {
			targets = append(targets, p.Family.Latest())
		}
	}
	return targets
}

func explainPlan(plan *engine.Plan) DialectExplain {
	d := DialectExplain{
		Dialect:     plan.Target.String(),
		Fingerprint: plan.Fingerprint,
		CacheHits:   plan.Stats.CacheHits,
		Functions:   map[string]int{},
	}
	for _, name := range plan.Stats.Functions() {
		d.Functions[name] = plan.Stats.Weights[name]
	}
	for _, b := range plan.Blocks {
		d.Blocks = append(d.Blocks, BlockExplain{ID: b.ID, Columns: b.Columns, SQL: b.SQL, Args: b.Args})
	}
	return d
}

// renderMetrics gathers the collector through a private registry and
// renders it in the Prometheus text exposition format.
func renderMetrics(c *translate.StatsCollector) (string, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return "", fmt.Errorf("registering metrics: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}
	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", fmt.Errorf("rendering metrics: %w", err)
		}
	}
	return b.String(), nil
}
