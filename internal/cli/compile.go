package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// DatasetSummary describes one compiled dataset.
type DatasetSummary struct {
	Name       string            `json:"name"`
	Table      string            `json:"table"`
	Connector  string            `json:"connector,omitempty"`
	Fields     map[string]string `json:"fields"`
	Calculated map[string]string `json:"calculated,omitempty"`
}

// QuerySummary describes one compiled query.
type QuerySummary struct {
	Name        string `json:"name"`
	Dataset     string `json:"dataset"`
	Dimensions  int    `json:"dimensions"`
	Measures    int    `json:"measures"`
	Blocks      []int  `json:"blocks"`
	Pivot       bool   `json:"pivot"`
	Fingerprint string `json:"fingerprint"`
}

// CompilationResult holds the compiled datasets and queries.
type CompilationResult struct {
	Datasets []DatasetSummary `json:"datasets"`
	Queries  []QuerySummary   `json:"queries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE datasets and queries",
		Long: `Compile the datasets and queries of a CUE package.

Every formula is parsed into its expression tree. The output lists the
datasets with their fields and the queries with their blocks and
fingerprints; --output writes the same summary as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	for _, name := range loadResult.Bundle.DatasetNames() {
		formatter.VerboseLog("Compiled dataset: %s", name)
	}
	for _, name := range loadResult.Bundle.QueryNames() {
		formatter.VerboseLog("Compiled query: %s", name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := summarize(loadResult.Bundle)

	if opts.Output != "" {
		if err := writeSummaryToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarize lists the bundle's datasets and queries in name order.
func summarize(b *compiler.Bundle) *CompilationResult {
	result := &CompilationResult{Datasets: []DatasetSummary{}, Queries: []QuerySummary{}}
	for _, name := range b.DatasetNames() {
		ds := b.Datasets[name]
		s := DatasetSummary{Name: ds.Name, Table: ds.Table, Connector: ds.Connector, Fields: map[string]string{}}
		for _, f := range ds.Fields {
			s.Fields[f.Name] = f.Type.String()
			if f.IsCalculated() {
				if s.Calculated == nil {
					s.Calculated = map[string]string{}
				}
				s.Calculated[f.Name] = ast.Format(f.Formula)
			}
		}
		result.Datasets = append(result.Datasets, s)
	}
	for _, name := range b.QueryNames() {
		q := b.Queries[name]
		result.Queries = append(result.Queries, QuerySummary{
			Name:        q.Name,
			Dataset:     q.Dataset,
			Dimensions:  len(q.Dimensions),
			Measures:    len(q.Measures),
			Blocks:      q.Blocks(),
			Pivot:       q.Pivot != nil,
			Fingerprint: q.Fingerprint(),
		})
	}
	return result
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	formatter.Pass("Compiled %d dataset(s), %d query(ies)", len(result.Datasets), len(result.Queries))
	fmt.Fprintln(w)

	if len(result.Datasets) > 0 {
		fmt.Fprintln(w, "Datasets:")
		for _, ds := range result.Datasets {
			fmt.Fprintf(w, "  %s: table %s, %d field(s), %d calculated\n",
				ds.Name, ds.Table, len(ds.Fields), len(ds.Calculated))
		}
		fmt.Fprintln(w)
	}

	if len(result.Queries) > 0 {
		fmt.Fprintln(w, "Queries:")
		for _, q := range result.Queries {
			fmt.Fprintf(w, "  %s: %s, %d dimension(s), %d measure(s), %d block(s)\n",
				q.Name, q.Dataset, q.Dimensions, q.Measures, len(q.Blocks))
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical summary to %s\n", outputFile)
	}
	return nil
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}

		if err := formatter.encodeIndented(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSummaryToFile writes the result as canonical JSON, so equal
// bundles produce identical files.
func writeSummaryToFile(result *CompilationResult, filename string) error {
	data, err := ir.MarshalCanonical(canonicalSummary(result))
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func canonicalSummary(result *CompilationResult) ir.Object {
	datasets := make(ir.Array, len(result.Datasets))
	for i, ds := range result.Datasets {
		fields := ir.Object{}
		for name, typ := range ds.Fields {
			fields[name] = ir.String(typ)
		}
		calculated := ir.Object{}
		for name, formula := range ds.Calculated {
			calculated[name] = ir.String(formula)
		}
		datasets[i] = ir.Object{
			"name":       ir.String(ds.Name),
			"table":      ir.String(ds.Table),
			"connector":  ir.String(ds.Connector),
			"fields":     fields,
			"calculated": calculated,
		}
	}
	queries := make(ir.Array, len(result.Queries))
	for i, q := range result.Queries {
		blocks := make(ir.Array, len(q.Blocks))
		for j, b := range q.Blocks {
			blocks[j] = ir.Int(b)
		}
		queries[i] = ir.Object{
			"name":        ir.String(q.Name),
			"dataset":     ir.String(q.Dataset),
			"dimensions":  ir.Int(q.Dimensions),
			"measures":    ir.Int(q.Measures),
			"blocks":      blocks,
			"pivot":       ir.Bool(q.Pivot),
			"fingerprint": ir.String(q.Fingerprint),
		}
	}
	return ir.Object{"datasets": datasets, "queries": queries}
}
