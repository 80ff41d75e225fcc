// Package debugtext turns Avro payloads, raw or framed in the Confluent wire
// format, into debug text.
package debugtext

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-debugtext/pkg/core/logger"
	"github.com/Sokol111/ecommerce-debugtext/pkg/message"
	"github.com/Sokol111/ecommerce-debugtext/pkg/observability"
	"github.com/Sokol111/ecommerce-debugtext/pkg/registry"
	"github.com/Sokol111/ecommerce-debugtext/pkg/render"
	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	hambavro "github.com/hamba/avro/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRegistryDisabled is returned for framed payloads when no schema registry is configured.
var ErrRegistryDisabled = errors.New("schema registry is not configured")

// Item is one payload of a batch.
type Item struct {
	// Label identifies the item in results and logs, e.g. a file path.
	Label string

	// SchemaName selects a locally registered schema. Ignored when Framed is set.
	SchemaName string

	// Framed marks Data as Confluent wire format.
	Framed bool

	Data []byte
}

// Result is the outcome of rendering one Item.
type Result struct {
	Label string
	Text  string
	Err   error
}

// Formatter decodes payloads and renders them with the configured options.
// It is safe for concurrent use.
type Formatter struct {
	schemas     *schema.Registry
	resolver    registry.Resolver
	decoder     message.Decoder
	wire        message.WireFormatParser
	opts        render.Options
	concurrency int
	log         *zap.Logger
	throttler   *logger.LogThrottler
	telemetry   telemetry
}

// NewFormatter creates a Formatter. resolver may be nil, in which case only
// unframed payloads of locally registered schemas can be formatted.
func NewFormatter(cfg Config, schemas *schema.Registry, resolver registry.Resolver, log *zap.Logger, opts ...FormatterOption) *Formatter {
	cfg.ApplyDefaults()

	var o formatterOptions
	for _, opt := range opts {
		opt(&o)
	}

	wire, _ := message.NewConfluentWireFormat()
	return &Formatter{
		schemas:     schemas,
		resolver:    resolver,
		decoder:     message.NewHambaDecoder(),
		wire:        wire,
		opts:        cfg.Render,
		concurrency: cfg.BatchConcurrency,
		log:         log,
		throttler:   logger.NewLogThrottler(log, 0),
		telemetry:   newTelemetry(o),
	}
}

// FormatPayload renders an unframed Avro payload written with the locally
// registered schema schemaName.
func (f *Formatter) FormatPayload(ctx context.Context, schemaName string, payload []byte) (text string, err error) {
	ctx, span := f.telemetry.start(ctx, "debugtext.FormatPayload", attribute.String("schema.name", schemaName))
	defer func() { f.telemetry.finish(ctx, span, attrKindPayload, len(text), err) }()

	msg, desc, err := f.decodePayload(schemaName, payload)
	if err != nil {
		return "", err
	}
	return f.render(ctx, msg, desc)
}

// FormatFramed renders a Confluent wire format message, resolving its
// writer schema through the schema registry.
func (f *Formatter) FormatFramed(ctx context.Context, data []byte) (text string, err error) {
	ctx, span := f.telemetry.start(ctx, "debugtext.FormatFramed")
	defer func() { f.telemetry.finish(ctx, span, attrKindFramed, len(text), err) }()

	msg, desc, err := f.decodeFramed(ctx, data)
	if err != nil {
		return "", err
	}
	return f.render(ctx, msg, desc)
}

// Format renders a single item.
func (f *Formatter) Format(ctx context.Context, item Item) (string, error) {
	if item.Framed {
		return f.FormatFramed(ctx, item.Data)
	}
	return f.FormatPayload(ctx, item.SchemaName, item.Data)
}

// Measure returns the full rendered length of an item without building the text.
func (f *Formatter) Measure(ctx context.Context, item Item) (int, error) {
	ctx, span := f.telemetry.start(ctx, "debugtext.Measure", attribute.String("item.label", item.Label))
	defer span.End()

	var (
		msg  *message.Instance
		desc *schema.Descriptor
		err  error
	)
	if item.Framed {
		msg, desc, err = f.decodeFramed(ctx, item.Data)
	} else {
		msg, desc, err = f.decodePayload(item.SchemaName, item.Data)
	}
	if err != nil {
		span.RecordError(err)
		return render.Failed, err
	}
	n, err := render.Measure(msg, desc, f.opts)
	if err != nil {
		span.RecordError(err)
		return render.Failed, err
	}
	span.SetAttributes(attribute.Int("rendered.size", n))
	return n, nil
}

// FormatBatch renders items concurrently, at most BatchConcurrency at a time.
// A failing item does not stop the batch: its error is kept in its Result.
// Items not started before ctx is done carry the context error. The returned
// error is ctx.Err().
func (f *Formatter) FormatBatch(ctx context.Context, items []Item) ([]Result, error) {
	ctx, span := f.telemetry.start(ctx, "debugtext.FormatBatch", attribute.Int("batch.size", len(items)))
	defer span.End()

	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, item := range items {
		if err := gctx.Err(); err != nil {
			results[i] = Result{Label: item.Label, Err: err}
			continue
		}
		g.Go(func() error {
			text, err := f.Format(gctx, item)
			if err != nil {
				fields := append([]zap.Field{
					zap.String("label", item.Label),
					zap.Error(err),
				}, observability.TraceFields(gctx)...)
				f.throttler.Warn(throttleKey(item), "failed to render payload", fields...)
			}
			results[i] = Result{Label: item.Label, Text: text, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

func (f *Formatter) decodePayload(schemaName string, payload []byte) (*message.Instance, *schema.Descriptor, error) {
	binding, err := f.schemas.Get(schemaName)
	if err != nil {
		return nil, nil, err
	}
	return f.decode(payload, binding.AvroSchema(), binding.Descriptor())
}

func (f *Formatter) decodeFramed(ctx context.Context, data []byte) (*message.Instance, *schema.Descriptor, error) {
	if f.resolver == nil {
		return nil, nil, ErrRegistryDisabled
	}

	schemaID, payload, err := f.wire.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse wire format: %w", err)
	}

	resolved, err := f.resolver.Resolve(ctx, schemaID)
	if err != nil {
		return nil, nil, err
	}
	return f.decode(payload, resolved.AvroSchema, resolved.Descriptor)
}

func (f *Formatter) decode(payload []byte, writerSchema hambavro.Schema, desc *schema.Descriptor) (*message.Instance, *schema.Descriptor, error) {
	msg, err := f.decoder.Decode(payload, writerSchema, desc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s payload: %w", desc.Name(), err)
	}
	return msg, desc, nil
}

func (f *Formatter) render(ctx context.Context, msg *message.Instance, desc *schema.Descriptor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := render.String(msg, desc, f.opts)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", desc.Name(), err)
	}
	f.log.Debug("rendered payload",
		zap.String("schemaName", desc.Name()),
		zap.Int("length", len(text)),
	)
	return text, nil
}

func throttleKey(item Item) string {
	if item.Framed {
		return "framed"
	}
	return item.SchemaName
}
