package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/engine"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dialects []string // dialect versions every query must translate for
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate datasets and queries",
		Long: `Validate the datasets and queries of a CUE package.

Checks every dataset, then every query against its dataset: unknown
fields, calculated field cycles, legend ids, blocks and pivot layouts.
With --dialect every query is also planned for the given dialect
versions, so formulas that cannot be typed or translated are reported.

Examples:
  formulon validate ./specs
  formulon validate ./specs --dialect POSTGRESQL_14 --dialect MYSQL_8_0_12`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Dialects, "dialect", nil, "dialect version to plan every query for (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	targets, err := parseDialects(opts.Dialects)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
		}
	}
	validationErrors = append(validationErrors, loadResult.Bundle.ValidateAll()...)

	if len(validationErrors) == 0 && len(targets) > 0 {
		planErrs, err := planAll(loadResult.Bundle, targets, formatter)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		validationErrors = append(validationErrors, planErrs...)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter)
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// parseDialects parses dialect version names. Family names are rejected:
// a plan targets one version.
func parseDialects(names []string) ([]dialect.Combo, error) {
	targets := make([]dialect.Combo, 0, len(names))
	for _, name := range names {
		c, err := dialect.Parse(name)
		if err != nil {
			return nil, err
		}
		if !c.IsAtomic() {
			return nil, fmt.Errorf("%s is not a single dialect version; try one of %v", name, c.ToList())
		}
		targets = append(targets, c)
	}
	return targets, nil
}

// planAll prepares every query of b for every target and reports the
// failures as validation errors coded with the runtime error code.
func planAll(b *compiler.Bundle, targets []dialect.Combo, formatter *OutputFormatter) ([]compiler.ValidationError, error) {
	reg, err := builtin.Registry()
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}

	var errs []compiler.ValidationError
	for _, name := range b.QueryNames() {
		ds, q, err := b.Resolve(name)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			formatter.VerboseLog("Planning query %s for %s", name, target)
			if _, err := engine.Prepare(reg, target, ds, q); err != nil {
				code := engine.ErrCodeTranslationFailed
				var re *engine.RuntimeError
				if errors.As(err, &re) {
					code = re.Code
				}
				errs = append(errs, compiler.ValidationError{
					Field:   fmt.Sprintf("queries.%s@%s", name, target),
					Message: err.Error(),
					Code:    string(code),
				})
			}
		}
	}
	return errs, nil
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	formatter.Pass("All specs valid")
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := formatter.encodeIndented(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateSpecsDir validates all datasets and queries in a directory.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if loadResult == nil {
		return nil, loadErrors[0]
	}
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	return loadResult.Bundle.ValidateAll(), nil
}
