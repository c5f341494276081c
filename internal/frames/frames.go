// =============================================================================
// Bank Download Aggregator - Table Operations
// =============================================================================
//
// Tables are gota DataFrames whose columns are all strings. Values are kept
// exactly as read: no type detection and no NaN substitution, so a table
// written back to CSV reproduces its input cells byte for byte.
//
// OPERATIONS:
//   - New         : header + rows -> table
//   - Tag         : add or overwrite a constant column
//   - Difference  : columns of a table that a baseline does not have
//   - Align       : force a table onto an exact column list
//   - Concat      : row-wise union of tables (columns in first-seen order)
//
// =============================================================================

package frames

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrNoFrames is returned by Concat when there is nothing to concatenate.
var ErrNoFrames = errors.New("no tables to concatenate")

// loadOptions keep every cell a verbatim string.
func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	}
}

// New builds a table from a header and rows. Every row must have exactly
// len(header) cells and header names must be unique.
func New(header []string, rows [][]string) (dataframe.DataFrame, error) {
	if len(header) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("table has no columns")
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("table has no rows")
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for i, row := range rows {
		if len(row) != len(header) {
			return dataframe.DataFrame{}, fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(header))
		}
		records = append(records, row)
	}

	df := dataframe.LoadRecords(records, loadOptions()...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to build table: %w", df.Err)
	}
	return df, nil
}

// Tag sets column name to value on every row, appending the column when the
// table does not have it yet.
func Tag(df dataframe.DataFrame, name, value string) dataframe.DataFrame {
	values := make([]string, df.Nrow())
	for i := range values {
		values[i] = value
	}
	return df.Mutate(series.New(values, series.String, name))
}

// Difference returns the columns of df that are not in baseline, in df's
// column order.
func Difference(df dataframe.DataFrame, baseline []string) []string {
	known := make(map[string]struct{}, len(baseline))
	for _, name := range baseline {
		known[name] = struct{}{}
	}

	var extra []string
	for _, name := range df.Names() {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	return extra
}

// Align returns df with exactly the given columns in the given order.
// Columns df lacks are added as empty strings; columns not listed are
// dropped.
func Align(df dataframe.DataFrame, names []string) dataframe.DataFrame {
	have := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		have[name] = struct{}{}
	}

	for _, name := range names {
		if _, ok := have[name]; !ok {
			df = df.Mutate(series.New(make([]string, df.Nrow()), series.String, name))
		}
	}
	return df.Select(names)
}

// Concat stacks tables row-wise. The result has the union of all columns,
// ordered by first appearance; cells a table has no column for are empty.
func Concat(tables []dataframe.DataFrame) (dataframe.DataFrame, error) {
	if len(tables) == 0 {
		return dataframe.DataFrame{}, ErrNoFrames
	}

	var union []string
	seen := make(map[string]struct{})
	for _, df := range tables {
		for _, name := range df.Names() {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				union = append(union, name)
			}
		}
	}

	out := Align(tables[0], union)
	for _, df := range tables[1:] {
		out = out.RBind(Align(df, union))
	}
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to concatenate tables: %w", out.Err)
	}
	return out, nil
}
