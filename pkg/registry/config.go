package registry

import (
	"fmt"
	"net/url"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/samber/lo"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 3
)

// Config describes how to reach the Schema Registry.
type Config struct {
	// URL of the registry. "mock://" selects the in-memory client.
	URL string `mapstructure:"url"`

	// Timeout bounds every registry request.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries is the number of retries after a failed request. nil selects
	// the default; 0 disables retries.
	MaxRetries *uint64 `mapstructure:"max-retries"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == nil {
		c.MaxRetries = lo.ToPtr(uint64(defaultMaxRetries))
	}
}

// Retries returns MaxRetries, or the default when it is unset.
func (c Config) Retries() uint64 {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// Enabled reports whether a registry URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Validate checks the configuration. An empty URL is valid and disables the registry.
func (c Config) Validate() error {
	if c.URL == "" {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid schema registry url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "mock" {
		return fmt.Errorf("invalid schema registry url %q: scheme must be http, https or mock", c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("schema registry timeout cannot be negative")
	}
	return nil
}

// NewClient creates a Schema Registry client from the configuration.
func NewClient(c Config) (schemaregistry.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("schema registry url is not configured")
	}

	conf := schemaregistry.NewConfig(c.URL)
	conf.RequestTimeoutMs = int(c.Timeout.Milliseconds())

	client, err := schemaregistry.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry client: %w", err)
	}
	return client, nil
}
