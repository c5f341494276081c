// Package logging builds the process-wide zap logger.
//
// A run logs to stderr in console format and to a JSON log file named after
// the run's start time, so every batch run leaves its own trail in the log
// directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileTimeLayout is the timestamp embedded in log file names.
const FileTimeLayout = "2006-01-02_15-04-05"

// Options controls logger construction.
type Options struct {
	// Dir receives the log file. Empty disables file logging.
	Dir string

	// Level is one of debug, info, warn, error.
	Level string

	// Now is the run start time. Zero means time.Now().
	Now time.Time
}

// New builds a logger and returns the path of its log file (empty when file
// logging is disabled) and a close function that syncs the logger and
// releases the file. Call it once, before exit.
func New(opts Options) (*zap.Logger, string, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, "", nil, err
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	if opts.Dir == "" {
		logger := zap.New(consoleCore)
		return logger, "", func() error {
			_ = logger.Sync()
			return nil
		}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, "", nil, fmt.Errorf("failed to create log directory %s: %w", opts.Dir, err)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	logPath := filepath.Join(opts.Dir, fmt.Sprintf("main_%s.log", now.Format(FileTimeLayout)))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		level,
	)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore))
	closeFn := func() error {
		// Syncing stderr fails on some terminals; only the file matters here.
		_ = logger.Sync()
		return file.Close()
	}
	return logger, logPath, closeFn, nil
}
