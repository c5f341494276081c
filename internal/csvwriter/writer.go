// =============================================================================
// Bank Download Aggregator - CSV Writer Module
// =============================================================================
//
// This module persists a folder's accumulators. It is called after every
// input file, so each write replaces the previous one.
//
// WRITERS:
//   - WriteMain  : the schema-aligned combined table
//   - WriteDrift : the side table of drifted columns
//
// DURABILITY:
//   Each file is written to a temporary sibling and renamed over the target,
//   so an interrupted run leaves the last complete output, never a partial
//   one.
//
// =============================================================================

package csvwriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/frames"
)

// Writer writes aggregate tables into a folder.
type Writer struct {
	logger *zap.Logger
}

// New creates a Writer. A nil logger discards diagnostics.
func New(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// WriteMain concatenates the main accumulator and writes it to dir/filename.
// Columns are expected to be aligned already. An empty accumulator is
// logged and skipped. The returned path is empty when nothing was written.
func (w *Writer) WriteMain(tables []dataframe.DataFrame, dir, filename string) (string, error) {
	df, err := frames.Concat(tables)
	if errors.Is(err, frames.ErrNoFrames) {
		w.logger.Info("No tables to concatenate, combined file not written",
			zap.String("folder", dir), zap.String("file", filename))
		return "", nil
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filename)
	w.logger.Info("Saving combined data frame",
		zap.String("path", path), zap.Int("rows", df.Nrow()))

	if err := writeFrame(df, path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteDrift concatenates the drift accumulator and writes it to
// dir/filename. Nothing is written when there are no tables or no rows.
func (w *Writer) WriteDrift(tables []dataframe.DataFrame, dir, filename string) (string, error) {
	df, err := frames.Concat(tables)
	if errors.Is(err, frames.ErrNoFrames) {
		w.logger.Debug("No new columns to save", zap.String("folder", dir))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if df.Nrow() == 0 {
		w.logger.Debug("New columns table is empty", zap.String("folder", dir))
		return "", nil
	}

	path := filepath.Join(dir, filename)
	w.logger.Info("Saving new columns data frame",
		zap.String("path", path), zap.Int("rows", df.Nrow()), zap.Strings("columns", df.Names()))

	if err := writeFrame(df, path); err != nil {
		return "", err
	}
	return path, nil
}

// writeFrame writes df as CSV through a temp file and an atomic rename.
func writeFrame(df dataframe.DataFrame, path string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := df.WriteCSV(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
