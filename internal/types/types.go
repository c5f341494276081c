// =============================================================================
// Bank Download Aggregator - Shared Types
// =============================================================================
//
// This package contains result types shared by the aggregator and the run
// summary in pkg/utils, kept here to avoid an import cycle.
//
// =============================================================================

package types

// =============================================================================
// FILE OUTCOMES
// =============================================================================

// FileStatus describes what happened to one input file.
type FileStatus string

const (
	// FileAggregated means the file's rows were added to the combined table.
	FileAggregated FileStatus = "aggregated"

	// FileSkipped means the file was empty or could not be parsed.
	FileSkipped FileStatus = "skipped"
)

// FileOutcome records the handling of one input CSV.
type FileOutcome struct {
	// Path is the input file.
	Path string

	// BaseName is the file name without extension.
	BaseName string

	// Location is the resolved identifier written to every row.
	Location string

	// Status is aggregated or skipped.
	Status FileStatus

	// Reason explains a skipped file.
	Reason string

	// HeaderRow is the 1-indexed row the header came from.
	HeaderRow int

	// Rows is the number of data rows read.
	Rows int

	// DriftColumns are the columns moved to the drift table.
	DriftColumns []string

	// MissingColumns are baseline columns the file lacked; they were filled
	// with empty values.
	MissingColumns []string
}

// =============================================================================
// FOLDER RESULTS
// =============================================================================

// FolderResult summarises one processed directory.
type FolderResult struct {
	// Dir is the processed directory.
	Dir string

	// Skipped is set when the directory was left untouched because it
	// already held outputs.
	Skipped bool

	// Baseline is the column set of the combined table.
	Baseline []string

	// Files lists every CSV considered, in processing order.
	Files []FileOutcome

	// CombinedRows and DriftRows count rows in the written outputs.
	CombinedRows int
	DriftRows    int

	// CombinedPath and DriftPath are the written outputs, empty if none.
	CombinedPath string
	DriftPath    string
}

// Aggregated returns the number of files added to the combined table.
func (r *FolderResult) Aggregated() int {
	return r.count(FileAggregated)
}

// SkippedFiles returns the number of files that could not be used.
func (r *FolderResult) SkippedFiles() int {
	return r.count(FileSkipped)
}

func (r *FolderResult) count(status FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}
