package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config controls the diagnostic logger. Rendered output goes to stdout, so
// logs default to stderr and only warnings are shown.
type Config struct {
	// Level specifies the minimum logging level.
	Level zapcore.Level `mapstructure:"level"`

	// Development switches to console encoding. When false, JSON encoding is used.
	Development bool `mapstructure:"development"`

	// OutputPaths is a list of URLs or file paths to write logging output to.
	// If empty, defaults to stderr.
	OutputPaths []string `mapstructure:"output-paths"`

	// StacktraceLevel sets the minimum level at which stacktraces are captured.
	StacktraceLevel zapcore.Level `mapstructure:"stacktrace-level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Level:           zapcore.WarnLevel,
		Development:     true,
		OutputPaths:     []string{"stderr"},
		StacktraceLevel: zapcore.FatalLevel,
	}
}

func (c Config) Validate() error {
	for i, path := range c.OutputPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("output-paths[%d] cannot be empty or whitespace", i)
		}
	}
	return nil
}

// newConfig reads the "logger" section key by key so that environment
// overrides such as DEBUGTEXT_LOGGER_LEVEL apply without a config file.
func newConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if raw := v.GetString("logger.level"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid log level '%s': %w", raw, err)
		}
		cfg.Level = level
	}

	if raw := v.GetString("logger.stacktrace-level"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw, err)
		}
		cfg.StacktraceLevel = level
	}

	if v.IsSet("logger.development") {
		cfg.Development = v.GetBool("logger.development")
	}

	if paths := v.GetStringSlice("logger.output-paths"); len(paths) > 0 {
		cfg.OutputPaths = paths
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}
	return cfg, nil
}
