// Package observability wires OpenTelemetry tracing and metrics.
//
// Both are disabled unless enabled in the "observability" config section.
// When disabled, noop providers are supplied and the otel globals are left alone.
//
// Usage:
//
//	observability.NewObservabilityModule(observability.WithServiceInfo(observability.ServiceInfo{
//	    Name:    "debugtext",
//	    Version: version,
//	}))
package observability

import (
	"go.uber.org/fx"
)

type observabilityOptions struct {
	config *Config
	info   ServiceInfo
}

// Option is a functional option for configuring the observability module.
type Option func(*observabilityOptions)

// WithConfig provides a static Config instead of reading it from viper.
func WithConfig(cfg Config) Option {
	return func(opts *observabilityOptions) {
		opts.config = &cfg
	}
}

// WithServiceInfo sets the service name and version reported in telemetry.
func WithServiceInfo(info ServiceInfo) Option {
	return func(opts *observabilityOptions) {
		opts.info = info
	}
}

// NewObservabilityModule provides trace.TracerProvider and metric.MeterProvider.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &observabilityOptions{info: ServiceInfo{Name: "debugtext", Version: "dev"}}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		cfg := *o.config
		cfg.applyDefaults()
		configProvider = fx.Provide(func() (Config, error) {
			return cfg, cfg.Validate()
		})
	}

	return fx.Module("observability",
		configProvider,
		fx.Supply(o.info),
		newTracingModule(),
		newMetricsModule(),
	)
}
