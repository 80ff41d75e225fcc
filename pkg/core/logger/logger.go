package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerName = "debugtext"

// zapConfig maps Config onto a zap.Config. Development mode targets a
// terminal next to rendered output: console encoding, no timestamps, no
// caller. Otherwise entries are JSON with ISO8601 time and caller.
func zapConfig(conf Config, level zap.AtomicLevel) zap.Config {
	var cfg zap.Config
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = zapcore.OmitKey
		cfg.EncoderConfig.CallerKey = zapcore.OmitKey
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}

	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if len(conf.OutputPaths) > 0 {
		cfg.OutputPaths = conf.OutputPaths
	}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

func newLogger(conf Config) (*zap.Logger, zap.AtomicLevel, error) {
	if err := conf.Validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logger configuration validation failed: %w", err)
	}

	level := zap.NewAtomicLevelAt(conf.Level)
	logger, err := zapConfig(conf, level).Build(zap.AddStacktrace(conf.StacktraceLevel))
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to build logger: %w", err)
	}
	logger = logger.Named(loggerName)

	zap.ReplaceGlobals(logger)
	logger.Debug("logger initialized",
		zap.Stringer("level", conf.Level),
		zap.Bool("development", conf.Development),
		zap.Strings("outputPaths", conf.OutputPaths),
	)
	return logger, level, nil
}
