// Package registry resolves Confluent Schema Registry ids into compiled descriptors.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	hambavro "github.com/hamba/avro/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const avroSchemaType = "AVRO"

// Resolved is a writer schema fetched from the registry together with its descriptor.
type Resolved struct {
	ID         int
	Name       string
	AvroSchema hambavro.Schema
	Descriptor *schema.Descriptor
}

// Resolver resolves schema IDs to writer schemas.
type Resolver interface {
	// Resolve returns the parsed and compiled writer schema for a schema ID.
	// Results are cached for the lifetime of the resolver.
	Resolve(ctx context.Context, schemaID int) (*Resolved, error)
}

type resolverOptions struct {
	maxRetries      uint64
	initialInterval time.Duration
	compileOpts     []schema.CompileOption
	tracerProvider  trace.TracerProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverOptions)

// WithMaxRetries sets how many times a failed registry request is retried.
func WithMaxRetries(n uint64) ResolverOption {
	return func(o *resolverOptions) {
		o.maxRetries = n
	}
}

// WithInitialInterval sets the first retry delay; later delays grow exponentially.
func WithInitialInterval(d time.Duration) ResolverOption {
	return func(o *resolverOptions) {
		o.initialInterval = d
	}
}

// WithCompileOptions sets the options used to compile fetched schemas.
func WithCompileOptions(opts ...schema.CompileOption) ResolverOption {
	return func(o *resolverOptions) {
		o.compileOpts = opts
	}
}

// WithTracerProvider sets the provider for resolve spans. Defaults to the otel global.
func WithTracerProvider(tp trace.TracerProvider) ResolverOption {
	return func(o *resolverOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

type registryResolver struct {
	client schemaregistry.Client
	log    *zap.Logger
	tracer trace.Tracer
	opts   resolverOptions
	cache  map[int]*Resolved
	mu     sync.RWMutex
}

// NewResolver creates a Schema Registry-based resolver.
func NewResolver(client schemaregistry.Client, log *zap.Logger, opts ...ResolverOption) Resolver {
	o := resolverOptions{
		maxRetries:      3,
		initialInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	return &registryResolver{
		client: client,
		log:    log,
		tracer: o.tracerProvider.Tracer("github.com/Sokol111/ecommerce-debugtext/pkg/registry"),
		opts:   o,
		cache:  make(map[int]*Resolved),
	}
}

func (r *registryResolver) Resolve(ctx context.Context, schemaID int) (*Resolved, error) {
	ctx, span := r.tracer.Start(ctx, "registry.Resolve", trace.WithAttributes(attribute.Int("schema.id", schemaID)))
	defer span.End()

	r.mu.RLock()
	cached, exists := r.cache[schemaID]
	r.mu.RUnlock()

	span.SetAttributes(attribute.Bool("cache.hit", exists))
	if exists {
		return cached, nil
	}

	var resolved *Resolved
	err := backoff.RetryNotify(
		func() error {
			var err error
			resolved, err = r.fetch(schemaID)
			return err
		},
		r.newBackOff(ctx),
		func(err error, next time.Duration) {
			r.log.Warn("schema registry request failed, retrying",
				zap.Int("schemaID", schemaID),
				zap.Duration("retryIn", next),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema resolution failed")
		return nil, fmt.Errorf("failed to resolve schema ID %d: %w", schemaID, err)
	}

	r.mu.Lock()
	r.cache[schemaID] = resolved
	r.mu.Unlock()

	r.log.Debug("resolved writer schema",
		zap.Int("schemaID", schemaID),
		zap.String("schemaName", resolved.Name),
	)
	return resolved, nil
}

func (r *registryResolver) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.opts.initialInterval
	return backoff.WithContext(backoff.WithMaxRetries(exp, r.opts.maxRetries), ctx)
}

func (r *registryResolver) fetch(schemaID int) (*Resolved, error) {
	subjectVersions, err := r.client.GetSubjectsAndVersionsByID(schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subjects for schema ID: %w", err)
	}
	if len(subjectVersions) == 0 {
		return nil, fmt.Errorf("no subjects found for schema ID %d", schemaID)
	}

	// Use the first subject (typically there's only one for value schemas)
	subject := subjectVersions[0].Subject

	info, err := r.client.GetBySubjectAndID(subject, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema from registry: %w", err)
	}
	if info.SchemaType != "" && info.SchemaType != avroSchemaType {
		return nil, backoff.Permanent(fmt.Errorf("unsupported schema type %s for schema ID %d", info.SchemaType, schemaID))
	}

	desc, parsed, err := schema.ParseAvro(info.Schema, r.opts.compileOpts...)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	return &Resolved{
		ID:         schemaID,
		Name:       desc.Name(),
		AvroSchema: parsed,
		Descriptor: desc,
	}, nil
}
