package observability

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMetricsInterval is the default export interval for metrics.
	DefaultMetricsInterval = 10 * time.Second

	// DefaultShutdownTimeout bounds flushing telemetry on stop.
	DefaultShutdownTimeout = 5 * time.Second

	defaultRuntimeStatsInterval = time.Second
)

// Config is the "observability" configuration section.
type Config struct {
	// OtelCollectorEndpoint is the OTLP gRPC endpoint, e.g. localhost:4317.
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

// TracingConfig holds tracing-specific configuration.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig holds metrics-specific configuration.
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	// Runtime adds Go runtime metrics (GC, memory, goroutines).
	Runtime bool `mapstructure:"runtime"`
}

func (c *Config) applyDefaults() {
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
}

func (c Config) Validate() error {
	if c.Metrics.Enabled && c.OtelCollectorEndpoint == "" {
		return fmt.Errorf("metrics: otel-collector-endpoint is required")
	}
	if c.Metrics.Interval < 0 {
		return fmt.Errorf("metrics: interval cannot be negative")
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	defaults := map[string]any{
		"otel-collector-endpoint": "",
		"tracing.enabled":         false,
		"metrics.enabled":         false,
		"metrics.interval":        DefaultMetricsInterval.String(),
		"metrics.runtime":         false,
	}
	for key, value := range defaults {
		v.SetDefault("observability."+key, value)
	}

	var root struct {
		Observability Config `mapstructure:"observability"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Config{}, fmt.Errorf("failed to load observability config: %w", err)
	}

	cfg := root.Observability
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
