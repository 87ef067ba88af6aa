package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the logging level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}

// Logger is the interface for logging operations
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	SetLevel(level Level)
	// With returns a logger that attaches the given key/value to every entry
	With(key string, value any) Logger
}

// LogConfig holds configuration for the logger
type LogConfig struct {
	// Output destination: "file", "stderr" or "discard"
	Output string `yaml:"output"`
	// Log level: "debug", "info", "warn", "error", "fatal"
	Level string `yaml:"level"`
	// FilePath for file output (only used when Output is "file")
	FilePath string `yaml:"file_path"`
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger based on the provided configuration
func NewLogger(config LogConfig) (Logger, error) {
	var writer io.Writer

	output := config.Output
	if output == "" {
		output = os.Getenv("LOG_OUTPUT")
	}
	if output == "" {
		// Auto-detect: if running in container, use stderr; otherwise use file
		output = detectEnvironment()
	}

	switch output {
	case "stderr":
		writer = os.Stderr
	case "discard":
		writer = io.Discard
	case "file":
		filePath := config.FilePath
		if filePath == "" {
			filePath = os.Getenv("LOG_FILE_PATH")
		}
		if filePath == "" {
			// Default to ~/.pdf-transcribe/pdf-transcribe.log
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			filePath = filepath.Join(homeDir, ".pdf-transcribe", "pdf-transcribe.log")
		}
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	default:
		return nil, fmt.Errorf("invalid log output: %s (expected 'file', 'stderr' or 'discard')", output)
	}

	levelStr := config.Level
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = "info"
	}

	return newLogrusLogger(writer, ParseLevel(levelStr)), nil
}

// NewWriterLogger creates a logger writing to w, mainly used by the CLI for stderr output
func NewWriterLogger(w io.Writer, level Level) Logger {
	return newLogrusLogger(w, level)
}

// NewNoOpLogger creates a logger that discards all output (useful for tests)
func NewNoOpLogger() Logger {
	return newLogrusLogger(io.Discard, FatalLevel)
}

func newLogrusLogger(w io.Writer, level Level) *logrusLogger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	base.SetLevel(level.logrusLevel())
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

// detectEnvironment determines the appropriate output based on the environment
func detectEnvironment() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "stderr"
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "stderr"
	}
	return "file"
}

// ParseLevel converts a string to a Level, defaulting to InfoLevel
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l *logrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(level.logrusLevel())
}

func (l *logrusLogger) With(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) Debug(format string, v ...any) {
	l.entry.Debugf(format, v...)
}

func (l *logrusLogger) Info(format string, v ...any) {
	l.entry.Infof(format, v...)
}

func (l *logrusLogger) Warn(format string, v ...any) {
	l.entry.Warnf(format, v...)
}

func (l *logrusLogger) Error(format string, v ...any) {
	l.entry.Errorf(format, v...)
}

// Fatal logs a fatal message and exits
func (l *logrusLogger) Fatal(format string, v ...any) {
	l.entry.Fatalf(format, v...)
}
