// Package logging builds the zap loggers used by the server and CLI.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the logger's level and optional rotating file output.
type Config struct {
	Debug bool
	// File, when set, receives JSON logs rotated by lumberjack in addition to stderr.
	File string
}

// NewLogger returns a zap logger. Debug uses the development config
// (human-readable, debug level); otherwise production (JSON, info level).
func NewLogger(cfg Config) (*zap.Logger, error) {
	var base *zap.Logger
	var err error
	if cfg.Debug {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	if cfg.File == "" {
		return base, nil
	}

	level := zap.InfoLevel
	if cfg.Debug {
		level = zap.DebugLevel
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}),
		level,
	)

	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

// Must is NewLogger that falls back to a stderr production logger on error.
func Must(cfg Config) *zap.Logger {
	logger, err := NewLogger(cfg)
	if err != nil {
		fallback := zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zap.InfoLevel,
		))
		fallback.Warn("logger init failed, using fallback", zap.Error(err))
		return fallback
	}
	return logger
}
