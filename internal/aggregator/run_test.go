package aggregator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/resolver"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	jan := filepath.Join(root, "Daily", "Jan")
	writeCSV(t, jan, "ChaseAccount1111.csv", "Date,Amount\n01/02/2023,10.00\n")
	writeCSV(t, jan, "ChaseAccount2222.csv", "Date,Amount,Memo\n01/03/2023,-5.25,Coffee\n")

	feb := filepath.Join(root, "Daily", "Feb")
	writeCSV(t, feb, "BofAAccount3333.csv", "Posted,Payee,Debit\n02/01/2023,Rent,900\n")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "Weekly BOW"), 0o755))
	return root
}

func TestRun_ProcessesEveryFolderIndependently(t *testing.T) {
	root := buildTree(t)

	summary, err := newProcessor(t, nil, nil).Run("run-1", []string{root})
	require.NoError(t, err)

	// root, Daily, Daily/Feb, Daily/Jan, Weekly BOW
	assert.Equal(t, 5, summary.FoldersVisited)
	assert.Equal(t, 5, summary.FoldersProcessed)
	assert.Equal(t, 3, summary.FilesAggregated)
	assert.Equal(t, 3, summary.CombinedRows)
	assert.Equal(t, 1, summary.DriftRows)
	assert.Equal(t, 3, summary.OutputsWritten)
	assert.Equal(t, "run-1", summary.RunID)
	assert.False(t, summary.EndTime.Before(summary.StartTime))

	// February has its own baseline, unaffected by January's columns.
	feb := filepath.Join(root, "Daily", "Feb")
	assert.Equal(t, "Posted,Payee,Debit,Location\n02/01/2023,Rent,900,ACC-C\n", readOutput(t, feb, combinedName))
	assert.NoFileExists(t, filepath.Join(feb, driftName))

	assert.NoFileExists(t, filepath.Join(root, "Daily", combinedName))
	assert.NoFileExists(t, filepath.Join(root, "Weekly BOW", combinedName))
}

func TestRun_IdempotentReprocess(t *testing.T) {
	root := buildTree(t)
	jan := filepath.Join(root, "Daily", "Jan")
	p := newProcessor(t, nil, nil)

	_, err := p.Run("first", []string{root})
	require.NoError(t, err)
	firstCombined := readOutput(t, jan, combinedName)
	firstDrift := readOutput(t, jan, driftName)

	_, err = p.Run("second", []string{root})
	require.NoError(t, err)
	assert.Equal(t, firstCombined, readOutput(t, jan, combinedName))
	assert.Equal(t, firstDrift, readOutput(t, jan, driftName))
}

func TestRun_CleanRemovesStaleDrift(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, root, "ChaseAccount1111.csv", "Date,Amount\nd1,1\n")
	writeCSV(t, root, "New Columns 2023-01-01.csv", "Memo,Location\nold,X\n")
	writeCSV(t, root, driftName, "Memo,Location\nold,X\n")

	_, err := newProcessor(t, nil, nil).Run("r", []string{root})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, driftName))
	assert.NoFileExists(t, filepath.Join(root, "New Columns 2023-01-01.csv"))
	assert.FileExists(t, filepath.Join(root, combinedName))
}

func TestRun_SkipPolicy(t *testing.T) {
	root := buildTree(t)
	jan := filepath.Join(root, "Daily", "Jan")
	writeCSV(t, jan, combinedName, "kept\n")

	cfg := config.Default()
	cfg.ExistingOutputs = config.ExistingOutputsSkip

	summary, err := newProcessor(t, cfg, nil).Run("r", []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FoldersSkipped)
	assert.Equal(t, "kept\n", readOutput(t, jan, combinedName))
	assert.NoFileExists(t, filepath.Join(jan, driftName))
	assert.FileExists(t, filepath.Join(root, "Daily", "Feb", combinedName))
}

func TestRun_FolderFailure(t *testing.T) {
	newTree := func(t *testing.T) (string, string) {
		root := buildTree(t)
		jan := filepath.Join(root, "Daily", "Jan")
		// A directory in place of the output file makes the write fail.
		require.NoError(t, os.MkdirAll(filepath.Join(jan, combinedName), 0o755))
		return root, jan
	}

	t.Run("aborts by default", func(t *testing.T) {
		root, _ := newTree(t)
		_, err := newProcessor(t, nil, nil).Run("r", []string{root})
		assert.Error(t, err)
	})

	t.Run("continue on error", func(t *testing.T) {
		root, jan := newTree(t)
		cfg := config.Default()
		cfg.ContinueOnError = true

		summary, err := newProcessor(t, cfg, nil).Run("r", []string{root})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.FoldersFailed)
		require.Len(t, summary.FailedFolders, 1)
		assert.Equal(t, jan, summary.FailedFolders[0].Dir)
		assert.FileExists(t, filepath.Join(root, "Daily", "Feb", combinedName))
	})
}

func TestRun_UnreadableFolderIsIsolated(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	root := buildTree(t)
	jan := filepath.Join(root, "Daily", "Jan")
	require.NoError(t, os.MkdirAll(filepath.Join(jan, "Inner"), 0o755))
	require.NoError(t, os.Chmod(jan, 0o000))
	t.Cleanup(func() { _ = os.Chmod(jan, 0o755) })

	cfg := config.Default()
	cfg.ContinueOnError = true

	summary, err := newProcessor(t, cfg, nil).Run("r", []string{root})
	require.NoError(t, err)

	require.Len(t, summary.FailedFolders, 1)
	assert.Equal(t, jan, summary.FailedFolders[0].Dir)
	assert.Equal(t, 1, summary.FoldersFailed)
	assert.FileExists(t, filepath.Join(root, "Daily", "Feb", combinedName))

	_, err = newProcessor(t, nil, nil).Run("r", []string{root})
	assert.Error(t, err)
}

func TestRun_MissingRoot(t *testing.T) {
	_, err := newProcessor(t, nil, nil).Run("r", []string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestNew_RejectsBadEncoding(t *testing.T) {
	cfg := config.Default()
	cfg.CSVSettings.Encoding = "EBCDIC"

	res, err := resolver.New(nil, cfg.MarkerWord, nil)
	require.NoError(t, err)

	_, err = New(cfg, res, nil)
	assert.ErrorContains(t, err, "unsupported encoding")
}
