// =============================================================================
// Bank Download Aggregator - File Manager Utility
// =============================================================================
//
// This module provides the filesystem side of a run:
//   - Directory walking (every folder under a root, each exactly once)
//   - CSV discovery within one folder
//   - Stale output cleanup
//   - Run summary generation
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/bank-download-aggregator/internal/types"
)

// =============================================================================
// DIRECTORY WALKING
// =============================================================================

// WalkDirectories calls fn for root and every directory below it, in
// lexical pre-order. Each call completes before the walk moves on, so fn
// handles one directory as a unit. An error from fn stops the walk and is
// returned.
//
// A directory that cannot be listed has already been handed to fn, which
// reads it itself and decides whether that failure is fatal. The walk
// then skips its subtree rather than failing a second time.
func WalkDirectories(root string, fn func(dir string) error) error {
	return walkTree(filepath.WalkDir, root, fn)
}

func walkTree(walk func(string, fs.WalkDirFunc) error, root string, fn func(dir string) error) error {
	err := walk(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fn(path)
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// IsCSVFile reports whether name has a .csv extension, in any case.
func IsCSVFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ListCSVFiles returns the CSV files directly inside dir, sorted by name.
// Files matching any exclude pattern (the tool's own outputs) are left out.
func ListCSVFiles(dir string, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsCSVFile(entry.Name()) {
			continue
		}
		if MatchesAny(entry.Name(), exclude) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// MatchesAny reports whether name matches one of the glob patterns.
// Invalid patterns never match.
func MatchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// HasMatching reports whether dir directly contains a regular file matching
// one of the patterns.
func HasMatching(dir string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
				return true, nil
			}
		}
	}
	return false, nil
}

// =============================================================================
// STALE OUTPUT CLEANUP
// =============================================================================

// DeleteMatching removes regular files in dir matching pattern and returns
// how many were removed. Zero matches is not an error, and a file that
// disappears before it can be removed is ignored.
func DeleteMatching(dir, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	removed := 0
	for _, match := range matches {
		info, err := os.Lstat(match)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to stat %s: %w", match, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if err := os.Remove(match); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("failed to remove %s: %w", match, err)
		}
		removed++
	}

	return removed, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Roots     []string

	FoldersVisited   int
	FoldersProcessed int
	FoldersSkipped   int
	FoldersFailed    int

	FilesAggregated int
	FilesSkipped    int
	CombinedRows    int
	DriftRows       int
	OutputsWritten  int

	ProcessedFolders []types.FolderResult
	FailedFolders    []FailedFolderInfo
}

// FailedFolderInfo contains information about a folder that failed.
type FailedFolderInfo struct {
	Dir          string
	ErrorMessage string
}

// Add records a completed or skipped folder.
func (s *ProcessingSummary) Add(result *types.FolderResult) {
	s.FoldersVisited++
	if result.Skipped {
		s.FoldersSkipped++
		return
	}

	s.FoldersProcessed++
	s.FilesAggregated += result.Aggregated()
	s.FilesSkipped += result.SkippedFiles()
	s.CombinedRows += result.CombinedRows
	s.DriftRows += result.DriftRows
	if result.CombinedPath != "" {
		s.OutputsWritten++
	}
	if result.DriftPath != "" {
		s.OutputsWritten++
	}

	if len(result.Files) > 0 {
		s.ProcessedFolders = append(s.ProcessedFolders, *result)
	}
}

// AddFailure records a folder that could not be processed.
func (s *ProcessingSummary) AddFailure(dir string, err error) {
	s.FoldersVisited++
	s.FoldersFailed++
	s.FailedFolders = append(s.FailedFolders, FailedFolderInfo{
		Dir:          dir,
		ErrorMessage: err.Error(),
	})
}

// WriteSummaryLog writes a processing summary to a text file in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}

	timestamp := summary.StartTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("run_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Bank Download Aggregator - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Roots:          %s\n\n"+
		"Statistics:\n"+
		"  Folders Visited:    %d\n"+
		"  Folders Processed:  %d\n"+
		"  Folders Skipped:    %d\n"+
		"  Folders Failed:     %d\n"+
		"  Files Aggregated:   %d\n"+
		"  Files Skipped:      %d\n"+
		"  Combined Rows:      %d\n"+
		"  New Column Rows:    %d\n"+
		"  Outputs Written:    %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		strings.Join(summary.Roots, ", "),
		summary.FoldersVisited,
		summary.FoldersProcessed,
		summary.FoldersSkipped,
		summary.FoldersFailed,
		summary.FilesAggregated,
		summary.FilesSkipped,
		summary.CombinedRows,
		summary.DriftRows,
		summary.OutputsWritten)

	if len(summary.ProcessedFolders) > 0 {
		writer.WriteString("Processed Folders:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, folder := range summary.ProcessedFolders {
			fmt.Fprintf(writer, "  Folder:       %s\n", folder.Dir)
			fmt.Fprintf(writer, "  Columns:      %s\n", strings.Join(folder.Baseline, ", "))
			fmt.Fprintf(writer, "  Rows:         %d combined, %d new columns\n", folder.CombinedRows, folder.DriftRows)
			for _, f := range folder.Files {
				line := fmt.Sprintf("    %-9s %s", f.Status, filepath.Base(f.Path))
				switch {
				case f.Status == types.FileSkipped:
					line += " (" + f.Reason + ")"
				case len(f.DriftColumns) > 0:
					line += " new columns: " + strings.Join(f.DriftColumns, ", ")
				}
				writer.WriteString(line + "\n")
			}
			writer.WriteString("\n")
		}
	}

	if len(summary.FailedFolders) > 0 {
		writer.WriteString("Failed Folders:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFolders {
			fmt.Fprintf(writer, "  Folder: %s\n", ff.Dir)
			fmt.Fprintf(writer, "  Error:  %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}
