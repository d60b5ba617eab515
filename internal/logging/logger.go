package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/storage"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 30
)

// Log levels - aliases for zerolog levels
const (
	ErrorLevel = zerolog.ErrorLevel
	WarnLevel  = zerolog.WarnLevel
	InfoLevel  = zerolog.InfoLevel
	DebugLevel = zerolog.DebugLevel
	TraceLevel = zerolog.TraceLevel
)

// Config defines the configuration for logger creation
type Config struct {
	Writer io.Writer
	// Path overrides the XDG log location when Writer is nil.
	Path  string
	RunID string
	Level zerolog.Level
}

// New creates a new context with a logger attached
// For production: provide fs, leave Writer nil for file logging
// For tests: provide a custom Writer (like strings.Builder) for in-memory logging
func New(ctx context.Context, fs afero.Fs, config Config) (context.Context, error) {
	writer := config.Writer

	if writer == nil {
		if fs == nil {
			return nil, errors.New("filesystem required when no writer provided")
		}

		logFile := config.Path
		if logFile == "" {
			var err error
			logFile, err = storage.New(fs).GetLogPath()
			if err != nil {
				return nil, fmt.Errorf("failed to get log path: %w", err)
			}
		} else if err := fs.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		writer = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
	}

	logger := zerolog.New(writer).With().
		Timestamp().
		Str("run_id", config.RunID).
		Logger().
		Level(config.Level)

	return logger.WithContext(ctx), nil
}

// ParseLevel converts a config level string, defaulting to info when empty
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// Get retrieves the logger from the provided context
// Returns the logger associated with the context, or a disabled logger if none exists
func Get(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
