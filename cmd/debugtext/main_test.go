package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Sokol111/ecommerce-debugtext/pkg/debugtext"
	"github.com/Sokol111/ecommerce-debugtext/pkg/registry"
	"github.com/Sokol111/ecommerce-debugtext/pkg/tail"
	hambavro "github.com/hamba/avro/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "record",
	"name": "ProductCreated",
	"namespace": "ecommerce.product",
	"fields": [
		{"name": "productId", "type": "string"},
		{"name": "price", "type": "double"},
		{"name": "attributes", "type": {"type": "array", "items": {
			"type": "record",
			"name": "Attribute",
			"fields": [
				{"name": "key", "type": "string"},
				{"name": "value", "type": "string"}
			]
		}}}
	]
}`

type testAttribute struct {
	Key   string `avro:"key"`
	Value string `avro:"value"`
}

type testProduct struct {
	ProductID  string          `avro:"productId"`
	Price      float64         `avro:"price"`
	Attributes []testAttribute `avro:"attributes"`
}

type fixture struct {
	dir     string
	schema  string
	payload string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	schemaPath := filepath.Join(dir, "product.avsc")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0o644))

	parsed, err := hambavro.Parse(testSchema)
	require.NoError(t, err)
	payload, err := hambavro.Marshal(parsed, &testProduct{
		ProductID:  "p-42",
		Price:      12.5,
		Attributes: []testAttribute{{Key: "color", Value: "red"}},
	})
	require.NoError(t, err)
	payloadPath := filepath.Join(dir, "product.bin")
	require.NoError(t, os.WriteFile(payloadPath, payload, 0o644))

	return fixture{dir: dir, schema: schemaPath, payload: payloadPath}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRender(t *testing.T) {
	// Arrange
	fix := newFixture(t)

	// Act
	stdout, _, err := execute(t, "render", "--schema", fix.schema, fix.payload)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, `productId: "p-42"
price: 12.5
attributes {
  key: "color"
  value: "red"
}
`, stdout)
}

func TestRender_CompactAndDepthFlags(t *testing.T) {
	fix := newFixture(t)

	stdout, _, err := execute(t, "render", "-s", fix.schema, "--compact", "--max-depth", "1", "--snake-case", fix.payload)

	require.NoError(t, err)
	assert.Equal(t, "product_id: \"p-42\" price: 12.5 attributes: <truncated>\n", stdout)
}

func TestRender_ConfigFileAndFlagPrecedence(t *testing.T) {
	// Arrange
	fix := newFixture(t)
	configPath := filepath.Join(fix.dir, "debugtext.yaml")
	config := "debugtext:\n  compact: true\n  schemas:\n    - " + fix.schema + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	// Act
	fromConfig, _, err := execute(t, "--config", configPath, "render", fix.payload)
	require.NoError(t, err)
	fromFlag, _, err := execute(t, "--config", configPath, "render", "--compact=false", fix.payload)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "productId: \"p-42\" price: 12.5 attributes { key: \"color\" value: \"red\" }\n", fromConfig)
	assert.Contains(t, fromFlag, "attributes {\n  key: \"color\"")
}

func TestRender_MultipleFilesAndFailures(t *testing.T) {
	// Arrange
	fix := newFixture(t)
	broken := filepath.Join(fix.dir, "broken.bin")
	require.NoError(t, os.WriteFile(broken, []byte{0x7f}, 0o644))

	// Act
	stdout, stderr, err := execute(t, "render", "--schema", fix.schema, "--compact", fix.payload, broken, fix.payload)

	// Assert
	require.Error(t, err)
	assert.Equal(t, "1 of 2 payloads failed", err.Error())
	assert.Contains(t, stdout, "==> "+fix.payload+" <==\nproductId: \"p-42\"")
	assert.Contains(t, stderr, broken+": failed to decode ecommerce.product.ProductCreated payload")
}

func TestMeasure(t *testing.T) {
	fix := newFixture(t)

	stdout, _, err := execute(t, "measure", "--schema", fix.schema, "--compact", fix.payload)

	require.NoError(t, err)
	expected := len(`productId: "p-42" price: 12.5 attributes { key: "color" value: "red" }`)
	assert.Equal(t, fix.payload+"\t"+strconv.Itoa(expected)+"\n", stdout)
}

func TestRender_Errors(t *testing.T) {
	fix := newFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no files", args: []string{"render", "--schema", fix.schema}, wantErr: "requires at least 1 arg"},
		{name: "no schema", args: []string{"render", fix.payload}, wantErr: "no schema registered"},
		{name: "missing payload", args: []string{"render", "--schema", fix.schema, "/nonexistent.bin"}, wantErr: "failed to read payload"},
		{name: "framed without registry", args: []string{"render", "--framed", fix.payload}, wantErr: "1 of 1 payloads failed"},
		{name: "bad registry url", args: []string{"render", "--framed", "--registry-url", "ftp://x", fix.payload}, wantErr: "scheme must be http, https or mock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveSchemaName_SeveralSchemas(t *testing.T) {
	fix := newFixture(t)
	other := filepath.Join(fix.dir, "other.avsc")
	require.NoError(t, os.WriteFile(other, []byte(`{"type": "record", "name": "Other", "fields": []}`), 0o644))

	_, _, err := execute(t, "render", "-s", fix.schema, "-s", other, fix.payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--type is required")

	stdout, _, err := execute(t, "render", "-s", fix.schema, "-s", other, "--type", "ecommerce.product.ProductCreated", "--compact", fix.payload)
	require.NoError(t, err)
	assert.Contains(t, stdout, `productId: "p-42"`)
}

func TestTail_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "positional args", args: []string{"tail", "orders"}, wantErr: "unknown command"},
		{name: "no brokers", args: []string{"tail", "--topic", "orders"}, wantErr: "brokers is required"},
		{name: "no topic", args: []string{"tail", "--brokers", "localhost:9092"}, wantErr: "topic is required"},
		{name: "negative max", args: []string{"tail", "--brokers", "localhost:9092", "--topic", "orders", "-n", "-1"}, wantErr: "max-messages cannot be negative"},
		{name: "no registry", args: []string{"tail", "--brokers", "localhost:9092", "--topic", "orders"}, wantErr: "schema registry is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFramedFormatter_RequiresRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     debugtext.Config
		wantErr bool
	}{
		{name: "registry disabled", cfg: debugtext.Config{}, wantErr: true},
		{name: "registry configured", cfg: debugtext.Config{SchemaRegistry: registry.Config{URL: "mock://tail"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &debugtext.Formatter{}

			got, err := framedFormatter(f, tt.cfg)

			if tt.wantErr {
				require.ErrorIs(t, err, debugtext.ErrRegistryDisabled)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Same(t, f, got)
		})
	}
}

func TestTailOptions_Overrides(t *testing.T) {
	// Arrange
	opts := &tailOptions{}
	cmd := &cobra.Command{Use: "tail"}
	bindTailFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags([]string{"--topic", "orders", "--from-beginning", "--compact"}))
	kafkaCfg := tail.Config{Brokers: "from-config:9092", Topic: "ignored", GroupID: "g"}
	renderCfg := debugtext.Config{BatchConcurrency: 2}

	// Act
	opts.overrideKafka(cmd)(&kafkaCfg)
	opts.overrideRender(cmd)(&renderCfg)

	// Assert
	assert.Equal(t, tail.Config{Brokers: "from-config:9092", Topic: "orders", GroupID: "g", AutoOffsetReset: "earliest"}, kafkaCfg)
	assert.True(t, renderCfg.Render.Compact)
	assert.Empty(t, renderCfg.SchemaRegistry.URL)
	assert.Equal(t, 2, renderCfg.BatchConcurrency)
}
