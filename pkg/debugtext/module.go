package debugtext

import (
	"fmt"
	"os"

	"github.com/Sokol111/ecommerce-debugtext/pkg/registry"
	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config    *Config
	overrides []func(*Config)
}

// Option configures the debugtext module.
type Option func(*moduleOptions)

// WithConfig provides a static Config instead of reading it from viper.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithOverride adjusts the loaded Config before it is validated.
// Command line flags use it to take precedence over the config file.
func WithOverride(fn func(*Config)) Option {
	return func(o *moduleOptions) {
		o.overrides = append(o.overrides, fn)
	}
}

// NewModule provides a *Formatter together with the local schema registry
// and, when a registry URL is configured, a registry.Resolver.
// It requires *viper.Viper (unless WithConfig is used) and *zap.Logger.
func NewModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("debugtext",
		fx.Provide(
			o.provideConfig,
			provideSchemaRegistry,
			provideResolver,
			provideFormatter,
		),
	)
}

func (o *moduleOptions) provideConfig(in struct {
	fx.In
	Viper *viper.Viper `optional:"true"`
}) (Config, error) {
	var cfg Config
	switch {
	case o.config != nil:
		cfg = *o.config
	case in.Viper != nil:
		loaded, err := newConfig(in.Viper)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	default:
		return Config{}, fmt.Errorf("debugtext config requires *viper.Viper or WithConfig")
	}

	for _, fn := range o.overrides {
		fn(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid debugtext config: %w", err)
	}
	return cfg, nil
}

func compileOptions(cfg Config) []schema.CompileOption {
	if cfg.SnakeCaseNames {
		return []schema.CompileOption{schema.WithSnakeCaseNames()}
	}
	return nil
}

func provideSchemaRegistry(cfg Config, log *zap.Logger) (*schema.Registry, error) {
	reg := schema.NewRegistry(compileOptions(cfg)...)
	if err := loadSchemaFiles(reg, cfg.Schemas, log); err != nil {
		return nil, err
	}
	return reg, nil
}

func loadSchemaFiles(reg *schema.Registry, paths []string, log *zap.Logger) error {
	for _, path := range lo.Uniq(paths) {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema file [%s]: %w", path, err)
		}
		binding, err := reg.RegisterJSON(data)
		if err != nil {
			return fmt.Errorf("failed to register schema file [%s]: %w", path, err)
		}
		log.Debug("registered schema",
			zap.String("path", path),
			zap.String("schemaName", binding.SchemaName),
		)
	}
	return nil
}

type telemetryParams struct {
	fx.In
	TracerProvider trace.TracerProvider `optional:"true"`
	MeterProvider  metric.MeterProvider `optional:"true"`
}

func provideFormatter(cfg Config, schemas *schema.Registry, resolver registry.Resolver, log *zap.Logger, tel telemetryParams) *Formatter {
	return NewFormatter(cfg, schemas, resolver, log,
		WithTracerProvider(tel.TracerProvider),
		WithMeterProvider(tel.MeterProvider),
	)
}

func provideResolver(cfg Config, log *zap.Logger, tel telemetryParams) (registry.Resolver, error) {
	if !cfg.SchemaRegistry.Enabled() {
		return nil, nil
	}

	client, err := registry.NewClient(cfg.SchemaRegistry)
	if err != nil {
		return nil, err
	}

	log.Debug("schema registry enabled", zap.String("url", cfg.SchemaRegistry.URL))
	return registry.NewResolver(client, log,
		registry.WithMaxRetries(cfg.SchemaRegistry.Retries()),
		registry.WithCompileOptions(compileOptions(cfg)...),
		registry.WithTracerProvider(tel.TracerProvider),
	), nil
}
