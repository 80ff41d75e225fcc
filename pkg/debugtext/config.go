package debugtext

import (
	"fmt"

	"github.com/Sokol111/ecommerce-debugtext/pkg/registry"
	"github.com/Sokol111/ecommerce-debugtext/pkg/render"
	"github.com/spf13/viper"
)

const (
	configKey               = "debugtext"
	defaultBatchConcurrency = 4
)

// Config is the "debugtext" configuration section.
type Config struct {
	// Render holds the layout options (compact, max-depth).
	Render render.Options `mapstructure:",squash"`

	// BatchConcurrency bounds how many payloads FormatBatch renders at once.
	BatchConcurrency int `mapstructure:"batch-concurrency"`

	// Schemas lists local .avsc files registered at startup.
	Schemas []string `mapstructure:"schemas"`

	// SnakeCaseNames renders Avro field names in snake_case.
	SnakeCaseNames bool `mapstructure:"snake-case-names"`

	SchemaRegistry registry.Config `mapstructure:"schema-registry"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = defaultBatchConcurrency
	}
	c.SchemaRegistry.ApplyDefaults()
}

func (c Config) Validate() error {
	if c.BatchConcurrency < 0 {
		return fmt.Errorf("batch-concurrency cannot be negative, got %d", c.BatchConcurrency)
	}
	if err := c.SchemaRegistry.Validate(); err != nil {
		return fmt.Errorf("schema-registry: %w", err)
	}
	return nil
}

// newConfig reads the "debugtext" section. Defaults are registered for every
// key so that environment variables override them even without a config file.
func newConfig(v *viper.Viper) (Config, error) {
	defaults := map[string]any{
		"compact":                     false,
		"max-depth":                   0,
		"batch-concurrency":           defaultBatchConcurrency,
		"schemas":                     []string{},
		"snake-case-names":            false,
		"schema-registry.url":         "",
		"schema-registry.timeout":     "5s",
		"schema-registry.max-retries": 3,
	}
	for key, value := range defaults {
		v.SetDefault(configKey+"."+key, value)
	}

	var root struct {
		Debugtext Config `mapstructure:"debugtext"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Config{}, fmt.Errorf("failed to load debugtext config: %w", err)
	}

	cfg := root.Debugtext
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid debugtext config: %w", err)
	}
	return cfg, nil
}
