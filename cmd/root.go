// =============================================================================
// Bank Download Aggregator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (aggregator)
//   ├── processCmd  (aggregator process)
//   ├── validateCmd (aggregator validate)
//   ├── resolveCmd  (aggregator resolve)
//   └── versionCmd  (aggregator version)
//
// The root command owns the global flags and builds the single process-wide
// logger before any subcommand runs.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// mainConfig is loaded once in PersistentPreRunE.
var mainConfig *config.MainConfig

// logger is the process-wide logger.
var logger *zap.Logger

// logPath is the current run's log file, empty when file logging is off.
var logPath string

// runID identifies this invocation in log lines and the run summary.
var runID string

// closeLog flushes the logger and closes the log file.
var closeLog func() error

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aggregator",
	Short: "Bank Download Aggregator - combine folders of bank CSV exports",
	Long: `Bank Download Aggregator walks a tree of bank download folders and, for
every folder, combines its CSV exports into one file.

Each row is tagged with a Location: the canonical account id looked up from
the four digits after the marker word in the file name (ChaseAccount1111.csv
-> 1111), or the file name itself when the reference table has no entry.

The first readable file in a folder defines its columns. Columns that later
files add are split into a separate "New Columns" file.

Example Usage:
  aggregator process                         # Aggregate the configured roots
  aggregator process "G:\Bank Downloads\2023" # Aggregate one tree
  aggregator resolve ChaseAccount1111.csv    # Show the Location for a file`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initialize(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogger()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	closeLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// initialize loads the configuration and builds the logger. A missing
// config file at the default path falls back to built-in defaults.
func initialize(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return err
	}

	runID = uuid.New().String()

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	l, path, closeFn, err := logging.New(logging.Options{
		Dir:   cfg.LogDir,
		Level: level,
		Now:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mainConfig = cfg
	logger = l.With(zap.String("run_id", runID))
	logPath = path
	closeLog = closeFn
	return nil
}

// closeLogger is safe to call more than once.
func closeLogger() {
	if closeLog == nil {
		return
	}
	if err := closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	closeLog = nil
}

// loadConfig reads the config file, tolerating its absence only when the
// user did not name one explicitly.
func loadConfig(cmd *cobra.Command, path string) (*config.MainConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
