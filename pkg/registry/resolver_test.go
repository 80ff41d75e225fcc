package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testSchema1 = `{
		"type": "record",
		"name": "ProductCreated",
		"namespace": "ecommerce.product",
		"fields": [
			{"name": "id", "type": "string"},
			{"name": "productName", "type": "string"}
		]
	}`

	testSchema2 = `{
		"type": "record",
		"name": "CategoryCreated",
		"namespace": "ecommerce.category",
		"fields": [
			{"name": "id", "type": "string"}
		]
	}`

	testEnumSchema = `{
		"type": "enum",
		"name": "Status",
		"namespace": "ecommerce.common",
		"symbols": ["ACTIVE", "INACTIVE"]
	}`
)

func TestResolver_Resolve_Success(t *testing.T) {
	// Arrange
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop())
	schemaID := registerTestSchema(t, client, "product-events-value", testSchema1)

	// Act
	resolved, err := resolver.Resolve(context.Background(), schemaID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, schemaID, resolved.ID)
	assert.Equal(t, "ecommerce.product.ProductCreated", resolved.Name)
	assert.NotNil(t, resolved.AvroSchema)
	assert.Equal(t, 2, resolved.Descriptor.NumFields())
}

func TestResolver_Resolve_CompileOptions(t *testing.T) {
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop(), WithCompileOptions(schema.WithSnakeCaseNames()))
	schemaID := registerTestSchema(t, client, "product-events-value", testSchema1)

	resolved, err := resolver.Resolve(context.Background(), schemaID)

	require.NoError(t, err)
	_, ok := resolved.Descriptor.FieldByName("product_name")
	assert.True(t, ok)
}

func TestResolver_Resolve_Cached(t *testing.T) {
	// Arrange
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop())
	schemaID := registerTestSchema(t, client, "category-events-value", testSchema2)

	// Act
	first, err := resolver.Resolve(context.Background(), schemaID)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), schemaID)
	require.NoError(t, err)

	// Assert
	assert.Same(t, first, second)
	assert.Same(t, first.Descriptor, second.Descriptor)
}

func TestResolver_Resolve_UnknownIDRetriesThenFails(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.WarnLevel)
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.New(core),
		WithMaxRetries(2),
		WithInitialInterval(time.Millisecond),
	)

	// Act
	resolved, err := resolver.Resolve(context.Background(), 999)

	// Assert
	require.Error(t, err)
	assert.Nil(t, resolved)
	assert.Contains(t, err.Error(), "failed to resolve schema ID 999")
	assert.Equal(t, 2, logs.FilterMessage("schema registry request failed, retrying").Len())
}

func TestResolver_Resolve_NotARecordIsPermanent(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.WarnLevel)
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.New(core), WithInitialInterval(time.Millisecond))
	schemaID := registerTestSchema(t, client, "status-value", testEnumSchema)

	// Act
	_, err := resolver.Resolve(context.Background(), schemaID)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected record schema")
	assert.Zero(t, logs.Len(), "permanent errors are not retried")
}

func TestResolver_Resolve_CanceledContext(t *testing.T) {
	// Arrange
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop(),
		WithMaxRetries(100),
		WithInitialInterval(time.Hour),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := resolver.Resolve(ctx, 12345)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_Resolve_Concurrent(t *testing.T) {
	// Arrange
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop())
	schemaID := registerTestSchema(t, client, "product-events-value", testSchema1)
	var wg sync.WaitGroup

	// Act
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved, err := resolver.Resolve(context.Background(), schemaID)
			assert.NoError(t, err)
			assert.Equal(t, "ecommerce.product.ProductCreated", resolved.Name)
		}()
	}
	wg.Wait()
}

func TestResolver_Resolve_Spans(t *testing.T) {
	// Arrange
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client := createMockSchemaRegistryClient(t)
	resolver := NewResolver(client, zap.NewNop(),
		WithTracerProvider(tp),
		WithMaxRetries(1),
		WithInitialInterval(time.Millisecond),
	)
	schemaID := registerTestSchema(t, client, "product-events-value", testSchema1)

	// Act
	_, err := resolver.Resolve(context.Background(), schemaID)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), schemaID)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), 999)
	require.Error(t, err)

	// Assert
	spans := recorder.Ended()
	require.Len(t, spans, 3)
	for _, span := range spans {
		assert.Equal(t, "registry.Resolve", span.Name())
	}
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("cache.hit", false))
	assert.Contains(t, spans[1].Attributes(), attribute.Bool("cache.hit", true))
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Len(t, spans[2].Events(), 2, "one retry event plus the recorded error")
}

func createMockSchemaRegistryClient(t *testing.T) schemaregistry.Client {
	client, err := NewClient(Config{URL: "mock://", Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func registerTestSchema(t *testing.T, client schemaregistry.Client, subject string, schemaJSON string) int {
	info := schemaregistry.SchemaInfo{
		Schema:     schemaJSON,
		SchemaType: "AVRO",
	}

	id, err := client.Register(subject, info, false)
	require.NoError(t, err)
	require.Greater(t, id, 0)

	return id
}
