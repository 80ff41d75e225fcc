package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Sokol111/ecommerce-debugtext/pkg/core"
	"github.com/Sokol111/ecommerce-debugtext/pkg/debugtext"
	"github.com/Sokol111/ecommerce-debugtext/pkg/observability"
	"github.com/Sokol111/ecommerce-debugtext/pkg/tail"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type tailOptions struct {
	brokers       string
	topic         string
	groupID       string
	fromBeginning bool
	maxMessages   int
	registryURL   string
	compact       bool
	maxDepth      int
	snakeCase     bool
}

func newTailCmd(root *options) *cobra.Command {
	opts := &tailOptions{}

	cmd := &cobra.Command{
		Use:   "tail [flags]",
		Short: "Follow a Kafka topic and print each record as debug text",
		Long: `Follow a Kafka topic and print each Confluent-framed record as debug text.
Writer schemas are fetched from the Schema Registry.

Example:
  debugtext tail --brokers localhost:9092 --topic orders --registry-url http://localhost:8081
  debugtext tail --topic orders --from-beginning --max-messages 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTail(cmd, root.configPath, opts)
		},
	}

	bindTailFlags(cmd, opts)
	return cmd
}

func bindTailFlags(cmd *cobra.Command, opts *tailOptions) {
	cmd.Flags().StringVar(&opts.brokers, "brokers", "", "Kafka bootstrap servers")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Topic to follow")
	cmd.Flags().StringVar(&opts.groupID, "group", "", "Consumer group id")
	cmd.Flags().BoolVar(&opts.fromBeginning, "from-beginning", false, "Start from the earliest offset when the group has none")
	cmd.Flags().IntVarP(&opts.maxMessages, "max-messages", "n", 0, "Stop after this many records, 0 for unlimited")
	cmd.Flags().StringVar(&opts.registryURL, "registry-url", "", "Schema Registry URL")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Render each record on a single line")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Maximum nesting depth, 0 for unlimited")
	cmd.Flags().BoolVar(&opts.snakeCase, "snake-case", false, "Render field names in snake_case")
}

func (o *tailOptions) overrideKafka(cmd *cobra.Command) func(*tail.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *tail.Config) {
		if changed("brokers") {
			cfg.Brokers = o.brokers
		}
		if changed("topic") {
			cfg.Topic = o.topic
		}
		if changed("group") {
			cfg.GroupID = o.groupID
		}
		if o.fromBeginning {
			cfg.AutoOffsetReset = "earliest"
		}
		if changed("max-messages") {
			cfg.MaxMessages = o.maxMessages
		}
	}
}

func (o *tailOptions) overrideRender(cmd *cobra.Command) func(*debugtext.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *debugtext.Config) {
		if changed("registry-url") {
			cfg.SchemaRegistry.URL = o.registryURL
		}
		if changed("compact") {
			cfg.Render.Compact = o.compact
		}
		if changed("max-depth") {
			cfg.Render.MaxDepth = o.maxDepth
		}
		if changed("snake-case") {
			cfg.SnakeCaseNames = o.snakeCase
		}
	}
}

// framedFormatter fails before the tailer, and with it the kafka consumer,
// is constructed when records could never be rendered.
func framedFormatter(f *debugtext.Formatter, cfg debugtext.Config) (tail.FramedFormatter, error) {
	if !cfg.SchemaRegistry.Enabled() {
		return nil, fmt.Errorf("tail: %w: use --registry-url", debugtext.ErrRegistryDisabled)
	}
	return f, nil
}

func runTail(cmd *cobra.Command, configPath string, opts *tailOptions) error {
	var tailer *tail.Tailer

	app := fx.New(
		core.NewCoreModule(core.WithConfigPath(configPath)),
		observability.NewObservabilityModule(observability.WithServiceInfo(observability.ServiceInfo{
			Name:    "debugtext",
			Version: version,
		})),
		debugtext.NewModule(debugtext.WithOverride(opts.overrideRender(cmd))),
		fx.Provide(framedFormatter),
		tail.NewTailModule(
			tail.WithOutput(cmd.OutOrStdout()),
			tail.WithOverride(opts.overrideKafka(cmd)),
		),
		fx.Populate(&tailer),
	)
	if err := app.Err(); err != nil {
		return err
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	return tailer.Run(ctx)
}
