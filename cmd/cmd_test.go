package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
)

func setup(t *testing.T) (*config.MainConfig, string) {
	t.Helper()
	logger = zap.NewNop()
	runID = "test-run"

	work := t.TempDir()
	ref := filepath.Join(work, "bank_codes.json")
	require.NoError(t, os.WriteFile(ref,
		[]byte(`[{"account_last4":"1111","location_id":"ACC-A"}]`), 0o644))

	root := filepath.Join(work, "downloads")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ChaseAccount1111.csv"),
		[]byte("Date,Amount\n01/02/2023,10.00\n"), 0o644))

	cfg := config.Default()
	cfg.ReferenceFile = ref
	cfg.LogDir = filepath.Join(work, "logs")
	return cfg, root
}

func TestRunProcess(t *testing.T) {
	cfg, root := setup(t)
	cfg.WriteSummary = true

	var out bytes.Buffer
	require.NoError(t, runProcess(&out, cfg, []string{root}))

	data, err := os.ReadFile(filepath.Join(root, config.DefaultCombinedFileName))
	require.NoError(t, err)
	assert.Equal(t, "Date,Amount,Location\n01/02/2023,10.00,ACC-A\n", string(data))

	assert.Contains(t, out.String(), "Files aggregated:  1")

	summaries, err := filepath.Glob(filepath.Join(cfg.LogDir, "run_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestRunProcess_UsesConfiguredRoots(t *testing.T) {
	cfg, root := setup(t)
	cfg.RootDirs = []string{root}

	require.NoError(t, runProcess(&bytes.Buffer{}, cfg, nil))
	assert.FileExists(t, filepath.Join(root, config.DefaultCombinedFileName))
}

func TestRunProcess_Errors(t *testing.T) {
	t.Run("no roots", func(t *testing.T) {
		cfg, _ := setup(t)
		assert.ErrorContains(t, runProcess(&bytes.Buffer{}, cfg, nil), "no root directories")
	})

	t.Run("missing reference file", func(t *testing.T) {
		cfg, root := setup(t)
		cfg.ReferenceFile = filepath.Join(t.TempDir(), "none.json")
		assert.ErrorContains(t, runProcess(&bytes.Buffer{}, cfg, []string{root}), "reference file")
		assert.NoFileExists(t, filepath.Join(root, config.DefaultCombinedFileName))
	})
}

func TestRunValidate(t *testing.T) {
	cfg, root := setup(t)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, cfg, []string{root}))
	assert.Contains(t, out.String(), "1 entries")

	cfg.CSVSettings.Encoding = "EBCDIC"
	out.Reset()
	err := runValidate(&out, cfg, []string{root, filepath.Join(root, "missing")})
	assert.ErrorContains(t, err, "2 problem(s)")
	assert.Contains(t, out.String(), "✗")
}

func TestRunResolve(t *testing.T) {
	cfg, _ := setup(t)

	var out bytes.Buffer
	require.NoError(t, runResolve(&out, cfg, []string{"ChaseAccount1111.csv", "Other9999.csv"}))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Regexp(t, `^ChaseAccount1111\.csv\s+1111\s+ACC-A$`, string(lines[1]))
	assert.Regexp(t, `^Other9999\.csv\s+Other9999\s+Other9999$`, string(lines[2]))
}

// execute runs the real command tree with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		closeLogger()
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestExecute_ProcessWithConfigFile(t *testing.T) {
	cfg, root := setup(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(
		"root_dirs: [%q]\nreference_file: %q\nlog_dir: %q\nlog_level: error\n",
		root, cfg.ReferenceFile, cfg.LogDir)), 0o644))

	out, err := execute(t, "--config", configPath, "process")
	require.NoError(t, err)
	assert.Contains(t, out, "Files aggregated:  1")
	assert.NotEmpty(t, runID)
	assert.Nil(t, closeLog, "log file should be closed after the command")

	data, err := os.ReadFile(filepath.Join(root, config.DefaultCombinedFileName))
	require.NoError(t, err)
	assert.Equal(t, "Date,Amount,Location\n01/02/2023,10.00,ACC-A\n", string(data))

	logs, err := filepath.Glob(filepath.Join(cfg.LogDir, "main_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestExecute_ExplicitMissingConfigFails(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "validate")
	assert.ErrorContains(t, err, "failed to load config")
}

func TestLoadConfig_DefaultPathMayBeAbsent(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().String("config", "config.yaml", "")

	cfg, err := loadConfig(c, filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCombinedFileName, cfg.CombinedFileName)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Bank Download Aggregator")
}
