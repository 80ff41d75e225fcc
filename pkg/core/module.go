package core

import (
	"github.com/Sokol111/ecommerce-debugtext/pkg/core/config"
	"github.com/Sokol111/ecommerce-debugtext/pkg/core/logger"
	"go.uber.org/fx"
)

type coreOptions struct {
	loggerConfig       *logger.Config
	configPath         string
	disableDotEnv      bool
	disableViperConfig bool
}

// Option is a functional option for configuring the core module.
type Option func(*coreOptions)

// WithLoggerConfig uses cfg instead of the "logger" config section.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(opts *coreOptions) {
		opts.loggerConfig = &cfg
	}
}

// WithConfigPath reads the YAML config file at path. An empty path falls back
// to DEBUGTEXT_CONFIG_FILE.
func WithConfigPath(path string) Option {
	return func(opts *coreOptions) {
		opts.configPath = path
	}
}

// WithoutEnvFile skips the .env file.
func WithoutEnvFile() Option {
	return func(opts *coreOptions) {
		opts.disableDotEnv = true
	}
}

// WithoutConfigFile ignores both --config and DEBUGTEXT_CONFIG_FILE.
func WithoutConfigFile() Option {
	return func(opts *coreOptions) {
		opts.disableViperConfig = true
	}
}

// NewCoreModule provides the ambient pieces every debugtext command needs:
// .env loading, a *viper.Viper and a *zap.Logger. Tests usually pass
// WithLoggerConfig, WithoutEnvFile and WithoutConfigFile so nothing is read
// from disk.
func NewCoreModule(opts ...Option) fx.Option {
	o := &coreOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		dotEnvModule(o),
		viperModule(o),
		loggerModule(o),
	)
}

func dotEnvModule(cfg *coreOptions) fx.Option {
	if cfg.disableDotEnv {
		return fx.Options()
	}
	return config.NewDotEnvModule()
}

func viperModule(cfg *coreOptions) fx.Option {
	if cfg.disableViperConfig {
		return config.NewViperModule(config.WithoutConfigFile())
	}
	return config.NewViperModule(config.WithConfigPath(cfg.configPath))
}

func loggerModule(cfg *coreOptions) fx.Option {
	if cfg.loggerConfig != nil {
		return logger.NewZapLoggingModule(logger.WithLoggerConfig(*cfg.loggerConfig))
	}
	return logger.NewZapLoggingModule()
}
