// =============================================================================
// Bank Download Aggregator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and reference table without touching any folder.
//
// COMMAND USAGE:
//   aggregator validate [root...]
//
// CHECKS:
//   - The config file parses and its values are valid
//   - The reference table loads and has no conflicting keys
//   - The configured input encoding is supported
//   - Every root exists and is a directory
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/csvparser"
	"github.com/ginjaninja78/bank-download-aggregator/internal/logging"
	"github.com/ginjaninja78/bank-download-aggregator/internal/refdata"
)

var validateCmd = &cobra.Command{
	Use:   "validate [root...]",
	Short: "Check the configuration and reference table",
	Long: `The validate command loads the configuration and the reference table and
reports every problem it finds. No files are read or written under the roots.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), mainConfig, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate collects every problem rather than stopping at the first.
func runValidate(out io.Writer, cfg *config.MainConfig, args []string) error {
	var problems []string

	mapping, err := refdata.Load(cfg.ReferenceFile)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		fmt.Fprintf(out, "  ✓ reference table %s (%d entries)\n", mapping.Source(), mapping.Len())
	}

	if _, err := csvparser.LookupEncoding(cfg.CSVSettings.Encoding); err != nil {
		problems = append(problems, err.Error())
	} else {
		fmt.Fprintf(out, "  ✓ encoding %s\n", cfg.CSVSettings.Encoding)
	}

	roots := cfg.RootDirs
	if len(args) > 0 {
		roots = args
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("root %s: %v", root, err))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("root %s is not a directory", root))
		default:
			fmt.Fprintf(out, "  ✓ root %s\n", root)
		}
	}

	for _, p := range problems {
		fmt.Fprintf(out, "  ✗ %s\n", p)
	}
	if len(problems) > 0 {
		logger.Error("Validation failed", zap.Int("problems", len(problems)))
		return fmt.Errorf("validation failed with %d problem(s)", len(problems))
	}

	logging.Success(logger, "Configuration is valid", zap.Int("roots", len(roots)))
	return nil
}
