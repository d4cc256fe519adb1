package vcardio

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vcardio-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithVersion adds a vCard version field to the logger.
func (l *Logger) WithVersion(version string) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
	}
}

// WithProperty adds a property name field to the logger.
func (l *Logger) WithProperty(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("property", name),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogParse logs a parse operation.
func (l *Logger) LogParse(version string, lines int, err error) {
	if err != nil {
		l.Error("parse failed",
			"version", version,
			"lines", lines,
			"error", err,
		)
	} else {
		l.Debug("parse completed",
			"version", version,
			"lines", lines,
		)
	}
}

// LogSerialize logs a serialize operation.
func (l *Logger) LogSerialize(version string, bytes int, err error) {
	if err != nil {
		l.Error("serialize failed",
			"version", version,
			"error", err,
		)
	} else {
		l.Debug("serialize completed",
			"version", version,
			"bytes", bytes,
		)
	}
}

// LogMalformedLine logs a skipped logical line without a colon separator.
func (l *Logger) LogMalformedLine(size int64) {
	l.Debug("skipping malformed line",
		"size", size,
	)
}

// LogSpoolPromotion logs a line buffer spilling from memory to disk.
func (l *Logger) LogSpoolPromotion(size int64) {
	l.Debug("line buffer spilled to disk",
		"size", size,
	)
}
