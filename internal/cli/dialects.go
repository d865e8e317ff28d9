package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/formulon/internal/connector/builtin"
	"github.com/roach88/formulon/internal/dialect"
)

// FamilyInfo describes one dialect family.
type FamilyInfo struct {
	Family      string   `json:"family"`
	Versions    []string `json:"versions"`
	Quote       string   `json:"quote"`
	Placeholder string   `json:"placeholder"`
	Connector   bool     `json:"connector"` // a built-in connector can run queries
}

var placeholderExamples = map[dialect.PlaceholderStyle]string{
	dialect.PlaceholderQuestion: "?",
	dialect.PlaceholderDollar:   "$1",
	dialect.PlaceholderColon:    ":1",
	dialect.PlaceholderAtP:      "@p1",
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List dialect families and versions",
		Long: `List every dialect family formulas translate to, with the version
names accepted by --dialect. Families marked with a connector can also run
queries.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDialects(rootOpts, cmd)
		},
	}
}

// ListFamilies describes every family except the test family DUMMY.
func ListFamilies() []FamilyInfo {
	connectors := map[dialect.Family]bool{}
	for _, p := range builtin.Plugins() {
		connectors[p.Family] = true
	}

	var out []FamilyInfo
	for _, f := range dialect.Families() {
		if f == dialect.Dummy {
			continue
		}
		info := FamilyInfo{
			Family:      f.String(),
			Quote:       f.Identifiers().Quote("name"),
			Placeholder: placeholderExamples[f.Placeholder()],
			Connector:   connectors[f],
		}
		for _, point := range f.All().ToList() {
			info.Versions = append(info.Versions, point.String())
		}
		out = append(out, info)
	}
	return out
}

func runDialects(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	families := ListFamilies()
	if opts.Format == "json" {
		return formatter.Success(families)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tQUOTE\tPARAM\tCONNECTOR\tVERSIONS")
	for _, f := range families {
		connector := "-"
		if f.Connector {
			connector = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Family, f.Quote, f.Placeholder, connector, strings.Join(f.Versions, " "))
	}
	return tw.Flush()
}
