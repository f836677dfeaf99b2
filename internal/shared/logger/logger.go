package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.Must(zap.NewProduction())

// Init configures the global logger. Safe to call again to switch level
// (e.g. when debug mode is enabled after config load).
func Init(debug bool) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	built, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Keep the previous logger rather than crash during setup.
		log.Error("Failed to build logger", zap.Error(err))
		return
	}

	if log != nil {
		_ = log.Sync()
	}
	log = built
}

// Sync flushes buffered log entries. Call via defer from main.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	log.Fatal(msg, fields...)
}
