package config

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotenvConfig struct {
	path string
}

// DotEnvOption is a functional option for configuring the dotenv module.
type DotEnvOption func(*dotenvConfig)

// WithDotEnvPath sets a custom path to the .env file.
func WithDotEnvPath(path string) DotEnvOption {
	return func(cfg *dotenvConfig) {
		cfg.path = path
	}
}

// NewDotEnvModule loads environment variables from a .env file when the
// module is built, before viper reads the environment. Variables already
// set in the process environment win.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	cfg := &dotenvConfig{path: ".env"}
	for _, opt := range opts {
		opt(cfg)
	}

	err := loadDotEnv(cfg.path)

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					switch {
					case err == nil:
						logger.Debug("loaded .env file", zap.String("path", cfg.path))
					case errors.Is(err, fs.ErrNotExist):
						logger.Debug("no .env file loaded", zap.String("path", cfg.path))
					default:
						logger.Warn("failed to load .env file", zap.String("path", cfg.path), zap.Error(err))
					}
					return nil
				},
			})
		}),
	)
}

func loadDotEnv(path string) error {
	return godotenv.Load(path)
}
