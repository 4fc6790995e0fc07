// Package logging provides structured logging for the TindaPOS backend.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a shorthand for structured log context.
type Fields = logrus.Fields

// Logger wraps a logrus logger with backend-wide defaults.
type Logger struct {
	l *logrus.Logger
}

var (
	global *Logger
	once   sync.Once
)

// Init initializes the global logger. Subsequent calls are no-ops.
func Init(out io.Writer, level string) {
	once.Do(func() {
		global = New(out, level)
	})
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *Logger {
	if global == nil {
		Init(os.Stdout, "info")
	}
	return global
}

// New creates a Logger writing JSON entries to out at the given level.
// An unrecognized level falls back to info.
func New(out io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{l: l}
}

// Debug logs a debug message with optional context.
func (lg *Logger) Debug(message string, fields Fields) {
	lg.l.WithFields(fields).Debug(message)
}

// Info logs an info message with optional context.
func (lg *Logger) Info(message string, fields Fields) {
	lg.l.WithFields(fields).Info(message)
}

// Warn logs a warning message with optional context.
func (lg *Logger) Warn(message string, fields Fields) {
	lg.l.WithFields(fields).Warn(message)
}

// Error logs an error message with optional context.
func (lg *Logger) Error(message string, err error, fields Fields) {
	entry := lg.l.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

// Convenience functions using the global logger.

func Debug(message string, fields Fields) {
	Get().Debug(message, fields)
}

func Info(message string, fields Fields) {
	Get().Info(message, fields)
}

func Warn(message string, fields Fields) {
	Get().Warn(message, fields)
}

func Error(message string, err error, fields Fields) {
	Get().Error(message, err, fields)
}
