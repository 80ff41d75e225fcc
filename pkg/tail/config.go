package tail

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	defaultGroupID         = "debugtext"
	defaultAutoOffsetReset = "latest"
)

// Config is the "kafka" configuration section used by the tailer.
type Config struct {
	Brokers         string `mapstructure:"brokers"`
	Topic           string `mapstructure:"topic"`
	GroupID         string `mapstructure:"group-id"`
	AutoOffsetReset string `mapstructure:"auto-offset-reset"`

	// MaxMessages stops the tailer after that many records. 0 means unlimited.
	MaxMessages int `mapstructure:"max-messages"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.GroupID == "" {
		c.GroupID = defaultGroupID
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = defaultAutoOffsetReset
	}
}

func (c Config) Validate() error {
	if c.Brokers == "" {
		return fmt.Errorf("brokers is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	switch c.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("auto-offset-reset must be earliest or latest, got %q", c.AutoOffsetReset)
	}
	if c.MaxMessages < 0 {
		return fmt.Errorf("max-messages cannot be negative")
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	defaults := map[string]any{
		"brokers":           "",
		"topic":             "",
		"group-id":          defaultGroupID,
		"auto-offset-reset": defaultAutoOffsetReset,
		"max-messages":      0,
	}
	for key, value := range defaults {
		v.SetDefault("kafka."+key, value)
	}

	var root struct {
		Kafka Config `mapstructure:"kafka"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Config{}, fmt.Errorf("failed to load kafka config: %w", err)
	}
	return root.Kafka, nil
}
