package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// defaultZapLevel is used for unknown level strings.
const defaultZapLevel = zapcore.InfoLevel

func toZapLevel(levelStr string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(levelStr)
	if err != nil || lvl > zapcore.ErrorLevel {
		return defaultZapLevel
	}
	return lvl
}

// newConsoleCore builds a console core on stdout. Timestamps are kept since
// tick timing matters when reading roaster logs.
func newConsoleCore(level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	ws := zapcore.Lock(os.Stdout)
	return zapcore.NewCore(encoder, zapcore.AddSync(ws), zap.NewAtomicLevelAt(level))
}

func newZapLogger(levelStr string) *Logger {
	core := newConsoleCore(toZapLevel(levelStr))
	return &Logger{
		SugaredLogger: zap.New(core, zap.AddCaller()).Sugar(),
	}
}
