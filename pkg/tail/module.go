package tail

import (
	"context"
	"fmt"
	"io"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	out       io.Writer
	overrides []func(*Config)
}

// Option configures the tail module.
type Option func(*moduleOptions)

// WithOutput sets where rendered records are written.
func WithOutput(w io.Writer) Option {
	return func(o *moduleOptions) {
		o.out = w
	}
}

// WithOverride adjusts the loaded Config before it is validated.
func WithOverride(fn func(*Config)) Option {
	return func(o *moduleOptions) {
		o.overrides = append(o.overrides, fn)
	}
}

// NewTailModule provides a *Tailer reading from the configured topic.
// It requires *viper.Viper, *zap.Logger and a FramedFormatter.
func NewTailModule(opts ...Option) fx.Option {
	o := &moduleOptions{out: io.Discard}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("tail",
		fx.Provide(
			fx.Private,
			newConfig,
		),
		fx.Provide(
			o.provideTailer,
		),
	)
}

func (o *moduleOptions) provideTailer(lc fx.Lifecycle, loaded Config, formatter FramedFormatter, log *zap.Logger) (*Tailer, error) {
	cfg := loaded
	for _, fn := range o.overrides {
		fn(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"enable.auto.commit": false,
		"auto.offset.reset":  cfg.AutoOffsetReset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log = log.With(zap.String("topic", cfg.Topic))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			rebalanceCb := func(_ *kafka.Consumer, event kafka.Event) error {
				switch ev := event.(type) {
				case kafka.AssignedPartitions:
					logPartitionEvent(log, "partitions assigned", ev.Partitions)
				case kafka.RevokedPartitions:
					logPartitionEvent(log, "partitions revoked", ev.Partitions)
				}
				return nil
			}
			if err := consumer.SubscribeTopics([]string{cfg.Topic}, rebalanceCb); err != nil {
				return fmt.Errorf("failed to subscribe to topic %s: %w", cfg.Topic, err)
			}
			log.Debug("subscribed to topic")
			return nil
		},
		OnStop: func(context.Context) error {
			log.Debug("closing kafka consumer")
			return consumer.Close()
		},
	})

	return newTailer(consumer, formatter, o.out, cfg.MaxMessages, log), nil
}

func logPartitionEvent(log *zap.Logger, event string, partitions []kafka.TopicPartition) {
	partitionIDs := make([]int32, len(partitions))
	for idx, partition := range partitions {
		partitionIDs[idx] = partition.Partition
	}
	log.Debug(event, zap.Int32s("partitions", partitionIDs))
}
