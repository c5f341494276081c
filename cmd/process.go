// =============================================================================
// Bank Download Aggregator - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool. It
// wires the configuration, reference table, resolver and aggregator together
// and runs them over every configured root.
//
// COMMAND USAGE:
//   aggregator process [root...] [flags]
//
// Positional roots replace root_dirs from the config file.
//
// FLAGS:
//   --skip-existing     : Leave folders that already hold outputs untouched
//   --continue-on-error : Log a failed folder and keep walking
//   --summary           : Write a run summary into the log directory
//
// PROCESSING PIPELINE:
//   1. Load the reference table (JSON or XLSX)
//   2. Build the file name resolver
//   3. Walk each root; for every folder:
//      a. Clean or skip earlier outputs
//      b. Parse each CSV, tag it with its Location
//      c. Split drifted columns, align the rest to the baseline
//      d. Write the combined and new-columns files
//   4. Print the summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/aggregator"
	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/logging"
	"github.com/ginjaninja78/bank-download-aggregator/internal/refdata"
	"github.com/ginjaninja78/bank-download-aggregator/internal/resolver"
	"github.com/ginjaninja78/bank-download-aggregator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// skipExisting overrides existing_outputs with "skip".
var skipExisting bool

// continueOnError overrides continue_on_error.
var continueOnError bool

// writeSummary overrides write_summary.
var writeSummary bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process [root...]",
	Short: "Aggregate every folder under the given roots",
	Long: `The process command walks each root directory and aggregates the CSV files
of every folder it finds, the root included.

For each folder with at least one readable CSV:
  - "Combined Transactions Data.csv" holds every row, aligned to the
    columns of the first readable file, plus a Location column
  - "New Columns.csv" holds the columns later files added, tagged with
    the name of the file they came from

Outputs from an earlier run are deleted first, so re-running gives the
same result. Use --skip-existing to leave those folders alone instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		applyProcessFlags(cmd, mainConfig)
		return runProcess(cmd.OutOrStdout(), mainConfig, args)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&skipExisting,
		"skip-existing",
		false,
		"Skip folders that already contain output files",
	)

	processCmd.Flags().BoolVar(
		&continueOnError,
		"continue-on-error",
		false,
		"Log folder failures and keep going",
	)

	processCmd.Flags().BoolVar(
		&writeSummary,
		"summary",
		false,
		"Write a run summary file into the log directory",
	)
}

// applyProcessFlags lets explicitly set flags win over the config file.
func applyProcessFlags(cmd *cobra.Command, cfg *config.MainConfig) {
	flags := cmd.Flags()
	if flags.Changed("skip-existing") && skipExisting {
		cfg.ExistingOutputs = config.ExistingOutputsSkip
	}
	if flags.Changed("continue-on-error") {
		cfg.ContinueOnError = continueOnError
	}
	if flags.Changed("summary") {
		cfg.WriteSummary = writeSummary
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates one aggregation run.
func runProcess(out io.Writer, cfg *config.MainConfig, args []string) error {
	roots := cfg.RootDirs
	if len(args) > 0 {
		roots = args
	}
	if len(roots) == 0 {
		return fmt.Errorf("no root directories: set root_dirs in the config or pass them as arguments")
	}

	// =========================================================================
	// STEP 1: BUILD THE PIPELINE
	// =========================================================================

	proc, err := buildProcessor(cfg)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: WALK THE ROOTS
	// =========================================================================

	logger.Info("Starting run",
		zap.Strings("roots", roots),
		zap.String("existing_outputs", cfg.ExistingOutputs),
		zap.String("log_file", logPath))

	summary, runErr := proc.Run(runID, roots)

	// =========================================================================
	// STEP 3: REPORT
	// =========================================================================

	if summary != nil {
		printSummary(out, summary)

		if cfg.WriteSummary {
			path, err := utils.WriteSummaryLog(*summary, cfg.LogDir)
			if err != nil {
				logger.Warn("Failed to write run summary", zap.Error(err))
			} else {
				logger.Info("Run summary written", zap.String("path", path))
			}
		}
	}

	if runErr != nil {
		logger.Error("Run aborted", zap.Error(runErr))
		return runErr
	}

	logging.Success(logger, "Run complete",
		zap.Int("folders", summary.FoldersProcessed),
		zap.Int("files", summary.FilesAggregated),
		zap.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)))
	return nil
}

// buildProcessor loads the reference table and assembles the aggregator.
func buildProcessor(cfg *config.MainConfig) (*aggregator.Processor, error) {
	res, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}
	return aggregator.New(cfg, res, logger)
}

// buildResolver loads the reference table named in cfg.
func buildResolver(cfg *config.MainConfig) (*resolver.Resolver, error) {
	mapping, err := refdata.Load(cfg.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference file: %w", err)
	}
	logger.Info("Loaded reference table",
		zap.String("source", mapping.Source()),
		zap.Int("entries", mapping.Len()))

	return resolver.New(mapping, cfg.MarkerWord, logger)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func printSummary(out io.Writer, s *utils.ProcessingSummary) {
	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Folders visited:   %d\n", s.FoldersVisited)
	fmt.Fprintf(out, "Folders processed: %d\n", s.FoldersProcessed)
	fmt.Fprintf(out, "Folders skipped:   %d\n", s.FoldersSkipped)
	fmt.Fprintf(out, "Folders failed:    %d\n", s.FoldersFailed)
	fmt.Fprintf(out, "Files aggregated:  %d\n", s.FilesAggregated)
	fmt.Fprintf(out, "Files skipped:     %d\n", s.FilesSkipped)
	fmt.Fprintf(out, "Combined rows:     %d\n", s.CombinedRows)
	fmt.Fprintf(out, "New column rows:   %d\n", s.DriftRows)
	fmt.Fprintf(out, "Time elapsed:      %s\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))

	for _, f := range s.FailedFolders {
		fmt.Fprintf(out, "  ✗ %s: %s\n", f.Dir, f.ErrorMessage)
	}
}
