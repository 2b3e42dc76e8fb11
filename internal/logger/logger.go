package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Log levels accepted in configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the level;
// later calls return the same instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(normalizeLevel(level))
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return WarnLevel
	}
	return level
}
