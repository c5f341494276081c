// =============================================================================
// Bank Download Aggregator - Configuration Module
// =============================================================================
//
// This module loads and validates the run configuration. A single YAML file
// describes which directory trees to aggregate, where the reference table of
// bank account codes lives, how input CSVs are decoded, and what the
// aggregate output files are called.
//
// CONFIGURATION FILE:
//   config.yaml (overridable with --config)
//
// ARCHITECTURE:
//   - Defaults are applied after unmarshalling, so a minimal file only needs
//     root_dirs and reference_file.
//   - Validation runs last and reports the first problem found.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

// Existing-output policies. A directory that already holds output files from
// an earlier run is either cleaned and reprocessed, or left untouched.
const (
	ExistingOutputsReprocess = "reprocess"
	ExistingOutputsSkip      = "skip"
)

// Default output names. Fixed names keep re-runs idempotent.
const (
	DefaultCombinedFileName = "Combined Transactions Data.csv"
	DefaultDriftFileName    = "New Columns.csv"
	DefaultLocationColumn   = "Location"
	DefaultMarkerWord       = "Account"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the run configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// RootDirs are the directory trees to aggregate. Every directory under
	// each root (the root included) is one processing unit.
	RootDirs []string `yaml:"root_dirs"`

	// ReferenceFile is the bank-code reference table, either a JSON array or
	// an XLSX workbook.
	// Default: "./data/bank_codes.json"
	ReferenceFile string `yaml:"reference_file"`

	// MarkerWord precedes the four account digits in a file name, e.g. the
	// "Account" in "ChaseAccount1111.csv".
	// Default: "Account"
	MarkerWord string `yaml:"marker_word"`

	// CSVSettings controls how input CSV files are decoded.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// LocationColumn is the column that carries the resolved identifier.
	// Default: "Location"
	LocationColumn string `yaml:"location_column"`

	// CombinedFileName is the name of the schema-aligned aggregate file
	// written into every processed folder.
	// Default: "Combined Transactions Data.csv"
	CombinedFileName string `yaml:"combined_file_name"`

	// DriftFileName is the name of the side file holding columns that were
	// not part of the folder's baseline schema.
	// Default: "New Columns.csv"
	DriftFileName string `yaml:"drift_file_name"`

	// StaleOutputPatterns are glob patterns of earlier outputs. Matching
	// files are never read as input, and are deleted before a folder is
	// reprocessed.
	// Default: ["Combined Transactions Data*.csv", "New Columns*.csv"]
	StaleOutputPatterns []string `yaml:"stale_output_patterns"`

	// ExistingOutputs selects what happens to a folder that already holds
	// output files: "reprocess" (clean, then process) or "skip".
	// Default: "reprocess"
	ExistingOutputs string `yaml:"existing_outputs"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// ContinueOnError keeps the walk going when a folder fails. When false a
	// folder failure aborts the whole run.
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogDir receives one timestamped log file per run, plus the run
	// summary when WriteSummary is set.
	// Default: "./log_files"
	LogDir string `yaml:"log_dir"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// WriteSummary writes a plain-text run summary into LogDir.
	WriteSummary bool `yaml:"write_summary"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for decoding bank CSV exports.
type CSVSettings struct {
	// Delimiter is the field separator.
	// Common values: "," (comma), "|" (pipe), "\t" (tab), ";" (semicolon)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the input files.
	// Supported: "UTF-8", "Windows-1252", "ISO-8859-1", "UTF-16"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// FallbackHeaderRow is the 1-indexed row used as the header when the
	// first row does not parse as one. Several banks put two lines of
	// account metadata above the real header.
	// Default: 3
	FallbackHeaderRow int `yaml:"fallback_header_row"`

	// LazyQuotes tolerates stray quotes inside unquoted fields.
	// Default: true
	LazyQuotes *bool `yaml:"lazy_quotes"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the run configuration from a YAML file, applies
// defaults and validates the result.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a MainConfig from raw YAML.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied and no roots.
func Default() *MainConfig {
	config := &MainConfig{}
	ApplyDefaults(config)
	return config
}

// ApplyDefaults sets default values for any unset configuration options.
func ApplyDefaults(config *MainConfig) {
	if config.ReferenceFile == "" {
		config.ReferenceFile = "./data/bank_codes.json"
	}
	if config.MarkerWord == "" {
		config.MarkerWord = DefaultMarkerWord
	}
	if config.LocationColumn == "" {
		config.LocationColumn = DefaultLocationColumn
	}
	if config.CombinedFileName == "" {
		config.CombinedFileName = DefaultCombinedFileName
	}
	if config.DriftFileName == "" {
		config.DriftFileName = DefaultDriftFileName
	}
	if len(config.StaleOutputPatterns) == 0 {
		config.StaleOutputPatterns = []string{
			stem(config.CombinedFileName) + "*.csv",
			stem(config.DriftFileName) + "*.csv",
		}
	}
	if config.ExistingOutputs == "" {
		config.ExistingOutputs = ExistingOutputsReprocess
	}
	if config.LogDir == "" {
		config.LogDir = "./log_files"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.CSVSettings.FallbackHeaderRow == 0 {
		config.CSVSettings.FallbackHeaderRow = 3
	}
	if config.CSVSettings.LazyQuotes == nil {
		lazy := true
		config.CSVSettings.LazyQuotes = &lazy
	}
}

// Validate checks a configuration that already has defaults applied.
// Root directories are not required here; the process command may supply
// them on the command line.
func Validate(config *MainConfig) error {
	switch config.ExistingOutputs {
	case ExistingOutputsReprocess, ExistingOutputsSkip:
	default:
		return fmt.Errorf("existing_outputs must be %q or %q, got %q",
			ExistingOutputsReprocess, ExistingOutputsSkip, config.ExistingOutputs)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	if config.CSVSettings.FallbackHeaderRow < 2 {
		return fmt.Errorf("csv_settings.fallback_header_row must be at least 2, got %d",
			config.CSVSettings.FallbackHeaderRow)
	}

	for _, name := range []string{config.CombinedFileName, config.DriftFileName} {
		if filepath.Base(name) != name {
			return fmt.Errorf("output file name %q must not contain a directory", name)
		}
	}
	if config.CombinedFileName == config.DriftFileName {
		return fmt.Errorf("combined_file_name and drift_file_name must differ")
	}

	for _, pattern := range config.StaleOutputPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid stale output pattern %q: %w", pattern, err)
		}
	}

	if strings.TrimSpace(config.MarkerWord) == "" {
		return fmt.Errorf("marker_word must not be blank")
	}

	return nil
}

// UseLazyQuotes reports whether stray quotes are tolerated.
func (s CSVSettings) UseLazyQuotes() bool {
	return s.LazyQuotes == nil || *s.LazyQuotes
}

// stem strips the extension from a file name.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
