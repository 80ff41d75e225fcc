// Package main provides the debugtext CLI for rendering Avro payloads as debug text.
//
// Usage:
//
//	debugtext render --schema order.avsc payload.bin
//	debugtext render --framed --registry-url http://localhost:8081 message.bin
//	debugtext measure --schema order.avsc --compact payload.bin
//	debugtext tail --brokers localhost:9092 --topic orders --registry-url http://localhost:8081
//
// Flags take precedence over the config file, which takes precedence over
// defaults. DEBUGTEXT_-prefixed environment variables override the config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sokol111/ecommerce-debugtext/pkg/core"
	"github.com/Sokol111/ecommerce-debugtext/pkg/debugtext"
	"github.com/Sokol111/ecommerce-debugtext/pkg/observability"
	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the flags shared by render and measure.
type options struct {
	configPath  string
	schemas     []string
	schemaName  string
	framed      bool
	registryURL string
	compact     bool
	maxDepth    int
	concurrency int
	snakeCase   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "debugtext",
		Short:         "Render Avro payloads as human-readable debug text",
		Long:          `debugtext decodes Avro payloads, raw or in Confluent wire format, and prints them in a deterministic text form.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	rootCmd.AddCommand(
		newRenderCmd(opts),
		newMeasureCmd(opts),
		newTailCmd(opts),
	)

	return rootCmd
}

func newRenderCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [flags] FILE...",
		Short: "Print the debug text of each payload file",
		Long: `Print the debug text of each payload file. "-" reads standard input.

Example:
  debugtext render --schema order.avsc payload.bin
  debugtext render --framed --registry-url http://localhost:8081 message.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args, printText)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func newMeasureCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "measure [flags] FILE...",
		Short: "Print the rendered length of each payload file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args, printLength)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func bindFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringSliceVarP(&opts.schemas, "schema", "s", nil, "Avro schema file (.avsc), repeatable")
	cmd.Flags().StringVarP(&opts.schemaName, "type", "t", "", "Full schema name of the payloads (default: the only registered schema)")
	cmd.Flags().BoolVarP(&opts.framed, "framed", "f", false, "Payloads are in Confluent wire format")
	cmd.Flags().StringVar(&opts.registryURL, "registry-url", "", "Schema Registry URL for framed payloads")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Render each payload on a single line")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Maximum nesting depth, 0 for unlimited")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Payloads rendered in parallel")
	cmd.Flags().BoolVar(&opts.snakeCase, "snake-case", false, "Render field names in snake_case")
}

// override applies the flags the user actually set.
func (o *options) override(cmd *cobra.Command) func(*debugtext.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *debugtext.Config) {
		cfg.Schemas = append(cfg.Schemas, o.schemas...)
		if changed("compact") {
			cfg.Render.Compact = o.compact
		}
		if changed("max-depth") {
			cfg.Render.MaxDepth = o.maxDepth
		}
		if changed("concurrency") {
			cfg.BatchConcurrency = o.concurrency
		}
		if changed("snake-case") {
			cfg.SnakeCaseNames = o.snakeCase
		}
		if changed("registry-url") {
			cfg.SchemaRegistry.URL = o.registryURL
		}
	}
}

type action func(ctx context.Context, cmd *cobra.Command, f *debugtext.Formatter, items []debugtext.Item) error

func run(cmd *cobra.Command, opts *options, args []string, act action) error {
	var (
		formatter *debugtext.Formatter
		schemas   *schema.Registry
	)

	app := fx.New(
		core.NewCoreModule(core.WithConfigPath(opts.configPath)),
		observability.NewObservabilityModule(observability.WithServiceInfo(observability.ServiceInfo{
			Name:    "debugtext",
			Version: version,
		})),
		debugtext.NewModule(debugtext.WithOverride(opts.override(cmd))),
		fx.Populate(&formatter, &schemas),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	schemaName, err := resolveSchemaName(opts, schemas)
	if err != nil {
		return err
	}

	items, err := readItems(cmd.InOrStdin(), lo.Uniq(args), schemaName, opts.framed)
	if err != nil {
		return err
	}

	return act(ctx, cmd, formatter, items)
}

func printText(ctx context.Context, cmd *cobra.Command, f *debugtext.Formatter, items []debugtext.Item) error {
	results, err := f.FormatBatch(ctx, items)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", result.Label, result.Err)
			continue
		}
		if len(items) > 1 {
			fmt.Fprintf(out, "==> %s <==\n", result.Label)
		}
		fmt.Fprintln(out, result.Text)
	}
	return failures(failed, len(items))
}

func printLength(ctx context.Context, cmd *cobra.Command, f *debugtext.Formatter, items []debugtext.Item) error {
	failed := 0
	for _, item := range items {
		n, err := f.Measure(ctx, item)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", item.Label, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", item.Label, n)
	}
	return failures(failed, len(items))
}

func failures(failed, total int) error {
	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", failed, total)
	}
	return nil
}

func resolveSchemaName(opts *options, schemas *schema.Registry) (string, error) {
	if opts.framed || opts.schemaName != "" {
		return opts.schemaName, nil
	}
	names := schemas.Names()
	switch len(names) {
	case 0:
		return "", errors.New("no schema registered: use --schema or --framed")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("--type is required when several schemas are registered: %v", names)
	}
}

func readItems(stdin io.Reader, paths []string, schemaName string, framed bool) ([]debugtext.Item, error) {
	items := make([]debugtext.Item, 0, len(paths))
	for _, path := range paths {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read payload [%s]: %w", path, err)
		}
		items = append(items, debugtext.Item{
			Label:      path,
			SchemaName: schemaName,
			Framed:     framed,
			Data:       data,
		})
	}
	return items, nil
}
