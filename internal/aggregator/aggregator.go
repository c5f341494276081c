// =============================================================================
// Bank Download Aggregator - Folder Aggregator
// =============================================================================
//
// This module contains the core reconciliation logic. Every folder is an
// independent processing unit: its CSV files are read in name order and
// merged into one combined table whose columns never change within the
// folder.
//
// PER-FILE PIPELINE:
//   1. Parse the CSV (header on row 1, else on the fallback row)
//   2. Tag every row with the resolved Location
//   3. Diff the file's columns against the folder baseline
//   4. Move drifted columns into the drift table, tagged with the file name
//   5. Align the remainder to the baseline and append it
//   6. Rewrite both output files
//
// BASELINE:
//   The first file that parses successfully defines the baseline. Later
//   files lose columns the baseline lacks (they go to the drift table) and
//   gain empty values for baseline columns they lack.
//
// =============================================================================

package aggregator

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/csvparser"
	"github.com/ginjaninja78/bank-download-aggregator/internal/csvwriter"
	"github.com/ginjaninja78/bank-download-aggregator/internal/frames"
	"github.com/ginjaninja78/bank-download-aggregator/internal/resolver"
	"github.com/ginjaninja78/bank-download-aggregator/internal/types"
	"github.com/ginjaninja78/bank-download-aggregator/pkg/utils"
)

// =============================================================================
// PROCESSOR STRUCTURE
// =============================================================================

// Processor aggregates folders of bank CSV exports.
type Processor struct {
	config   *config.MainConfig
	resolver *resolver.Resolver
	writer   *csvwriter.Writer
	logger   *zap.Logger
}

// folderState is the per-folder accumulator set. It is created fresh for
// every folder and never shared.
type folderState struct {
	baseline []string
	combined []dataframe.DataFrame
	drift    []dataframe.DataFrame
}

// New creates a Processor. The config must already have defaults applied.
func New(cfg *config.MainConfig, res *resolver.Resolver, logger *zap.Logger) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if res == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if _, err := csvparser.LookupEncoding(cfg.CSVSettings.Encoding); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		config:   cfg,
		resolver: res,
		writer:   csvwriter.New(logger),
		logger:   logger,
	}, nil
}

// =============================================================================
// FOLDER PROCESSING
// =============================================================================

// outputPatterns lists every name that must never be read as input.
func (p *Processor) outputPatterns() []string {
	patterns := append([]string{}, p.config.StaleOutputPatterns...)
	return append(patterns, p.config.CombinedFileName, p.config.DriftFileName)
}

// ProcessFolder aggregates the CSV files directly inside dir and writes the
// combined and drift outputs there. Unparseable or empty files are skipped;
// any other error aborts the folder and is returned.
func (p *Processor) ProcessFolder(dir string) (*types.FolderResult, error) {
	files, err := utils.ListCSVFiles(dir, p.outputPatterns())
	if err != nil {
		return nil, err
	}

	result := &types.FolderResult{Dir: dir}
	if len(files) == 0 {
		p.logger.Debug("No CSV files in folder", zap.String("folder", dir))
		return result, nil
	}

	state := &folderState{}
	for _, file := range files {
		outcome, err := p.addFile(state, file)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", file, err)
		}
		result.Files = append(result.Files, outcome)

		if outcome.Status != types.FileAggregated {
			continue
		}

		if err := p.writeOutputs(state, result); err != nil {
			return nil, err
		}
	}

	result.Baseline = state.baseline
	return result, nil
}

// addFile parses one file and folds it into the folder state.
func (p *Processor) addFile(state *folderState, file string) (types.FileOutcome, error) {
	baseName := utils.BaseName(file)
	outcome := types.FileOutcome{Path: file, BaseName: baseName}

	p.logger.Info("Reading file", zap.String("file", file))

	csvData, err := csvparser.ParseFile(file, p.config.CSVSettings)
	if err != nil {
		if csvparser.IsSkippable(err) {
			p.logger.Warn("Skipping file", zap.String("file", file), zap.Error(err))
			outcome.Status = types.FileSkipped
			outcome.Reason = err.Error()
			return outcome, nil
		}
		return outcome, err
	}
	if csvData.UsedFallback() {
		p.logger.Info("Header found on fallback row",
			zap.String("file", csvData.SourceFile), zap.Int("row", csvData.HeaderRow))
	}

	location := p.resolver.Resolve(baseName)
	df := frames.Tag(csvData.Frame, p.config.LocationColumn, location)

	outcome.Location = location
	outcome.HeaderRow = csvData.HeaderRow
	outcome.Rows = df.Nrow()

	if state.baseline == nil {
		state.baseline = df.Names()
		p.logger.Debug("Baseline schema set",
			zap.String("file", file), zap.Strings("columns", state.baseline))
	} else {
		drifted := frames.Difference(df, state.baseline)
		if len(drifted) > 0 {
			p.logger.Info("Found new columns in file",
				zap.String("file", file), zap.Strings("columns", drifted))

			record := frames.Tag(df.Select(drifted), p.config.LocationColumn, baseName)
			state.drift = append(state.drift, record)
			outcome.DriftColumns = drifted
		}

		outcome.MissingColumns = missingColumns(df, state.baseline)
		if len(outcome.MissingColumns) > 0 {
			p.logger.Warn("File lacks baseline columns, filling with empty values",
				zap.String("file", file), zap.Strings("columns", outcome.MissingColumns))
		}

		df = frames.Align(df, state.baseline)
	}

	state.combined = append(state.combined, df)
	outcome.Status = types.FileAggregated
	return outcome, nil
}

// writeOutputs rewrites both output files from the current state.
func (p *Processor) writeOutputs(state *folderState, result *types.FolderResult) error {
	combinedPath, err := p.writer.WriteMain(state.combined, result.Dir, p.config.CombinedFileName)
	if err != nil {
		return fmt.Errorf("failed to save combined file: %w", err)
	}
	driftPath, err := p.writer.WriteDrift(state.drift, result.Dir, p.config.DriftFileName)
	if err != nil {
		return fmt.Errorf("failed to save new columns file: %w", err)
	}

	result.CombinedPath = combinedPath
	result.DriftPath = driftPath
	result.CombinedRows = countRows(state.combined)
	result.DriftRows = countRows(state.drift)
	return nil
}

// missingColumns returns baseline columns df does not have.
func missingColumns(df dataframe.DataFrame, baseline []string) []string {
	have := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		have[name] = struct{}{}
	}

	var missing []string
	for _, name := range baseline {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func countRows(tables []dataframe.DataFrame) int {
	n := 0
	for _, df := range tables {
		n += df.Nrow()
	}
	return n
}
