// Package logging builds the zap loggers shared by every jobportal command.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and the minimum level.
type Config struct {
	Development bool
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty
	// keeps the preset's default.
	Level string
}

// New builds a logger writing to stderr. Pipeline children share stderr
// with the supervisor, which keeps their tail, so stdout stays reserved for
// command output such as the run summary.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		zc.Level = lvl
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ForCommand tags logger with the running subcommand and, for per-source
// tasks, the source.
func ForCommand(logger *zap.Logger, command, source string) *zap.Logger {
	logger = OrNop(logger).With(zap.String("cmd", command))
	if source != "" {
		logger = logger.With(zap.String("source", source))
	}
	return logger
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
