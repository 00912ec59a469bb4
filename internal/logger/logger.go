package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger with additional functionality
type Logger struct {
	*zap.Logger

	// LogFile is the path of the per-run log file, empty when logging to stdout only.
	LogFile string
}

// Config controls the level and the optional run log directory.
type Config struct {
	Level string
	// Dir receives a run_<timestamp>.log file when set.
	Dir string
}

// NewLogger creates a new logger instance with production configuration
func NewLogger() (*Logger, error) {
	return NewLoggerWithConfig(Config{Level: "info"})
}

// NewLoggerWithConfig creates a production logger writing to stdout and, when
// cfg.Dir is set, to a timestamped file inside that directory.
func NewLoggerWithConfig(cfg Config) (*Logger, error) {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(defaultLevel(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	config.Level = zap.NewAtomicLevelAt(level)

	logFile := ""

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logFile = filepath.Join(cfg.Dir, fmt.Sprintf("run_%s.log", time.Now().Format("20060102_150405")))
		config.OutputPaths = append(config.OutputPaths, logFile)
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:  zapLogger,
		LogFile: logFile,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests and library callers.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}

func defaultLevel(level string) string {
	if level == "" {
		return "info"
	}

	return level
}
