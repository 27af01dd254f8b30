// Package logging provides the structured logger used across the
// deduplicator, replacing the timestamp-prefixed log.Printf helper the
// teacher codebase used with a leveled, structured zap logger wired the
// same way call sites already expect (enabled-gated Debug/Timing helpers).
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style console logger. When debug is true, debug
// level messages are emitted; otherwise the logger is capped at info.
func New(debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.TimeKey = "ts"
	return cfg
}

// Timing logs a debug message when a named operation starts and another
// when it completes, along with its duration. It mirrors the teacher's
// DebugTiming(enabled, operation) helper, returning the closer to call on
// completion.
func Timing(log *zap.Logger, operation string) func() {
	start := time.Now()
	log.Debug("starting", zap.String("operation", operation))
	return func() {
		log.Debug("completed", zap.String("operation", operation), zap.Duration("took", time.Since(start)))
	}
}
