// Package logger holds the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger = zap.NewNop()
)

// Init builds the global logger at the given level. With a non-empty file
// the output goes there instead of stdout, which keeps the terminal free
// for the dashboard.
func Init(level, file string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000Z07:00")
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var sink zapcore.WriteSyncer
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		sink = zapcore.AddSync(f)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, lvl)
	Set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// Set replaces the global logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

// GetLogger returns the global logger; a no-op logger until Init or Set.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Sugar returns the global logger's sugared form, without the helper caller skip.
func Sugar() *zap.SugaredLogger {
	return GetLogger().WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = GetLogger().Sync()
}
