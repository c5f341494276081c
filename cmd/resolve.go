// =============================================================================
// Bank Download Aggregator - Resolve Command
// =============================================================================
//
// This file defines the 'resolve' command, which prints the Location that
// the aggregator would assign to each given file name.
//
// COMMAND USAGE:
//   aggregator resolve <file>...
//
// OUTPUT:
//   ChaseAccount1111.csv  1111  ACC-A
//   Other9999.csv         Other9999  Other9999
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/pkg/utils"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>...",
	Short: "Show the Location assigned to file names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd.OutOrStdout(), mainConfig, args)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(out io.Writer, cfg *config.MainConfig, names []string) error {
	res, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tKEY\tLOCATION")
	for _, name := range names {
		base := utils.BaseName(name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, res.Key(base), res.Resolve(base))
	}
	return w.Flush()
}
