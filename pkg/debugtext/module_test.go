package debugtext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sokol111/ecommerce-debugtext/pkg/registry"
	"github.com/Sokol111/ecommerce-debugtext/pkg/schema"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func writeSchemaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.avsc")
	require.NoError(t, os.WriteFile(path, []byte(orderSchema), 0o644))
	return path
}

func TestNewModule_ProvidesFormatter(t *testing.T) {
	// Arrange
	path := writeSchemaFile(t)
	var (
		f        *Formatter
		schemas  *schema.Registry
		resolver registry.Resolver
	)

	// Act
	app := fxtest.New(t,
		fx.Supply(zap.NewNop()),
		NewModule(WithConfig(Config{Schemas: []string{path, path}})),
		fx.Populate(&f, &schemas, &resolver),
	)
	app.RequireStart()
	defer app.RequireStop()

	// Assert
	require.NotNil(t, f)
	assert.Nil(t, resolver)
	assert.Equal(t, []string{orderSchemaName}, schemas.Names())

	text, err := f.FormatPayload(context.Background(), orderSchemaName, encodeOrder(t, sampleOrder()))
	require.NoError(t, err)
	assert.Equal(t, orderText, text)
}

func TestNewModule_RegistryEnabled(t *testing.T) {
	var resolver registry.Resolver

	app := fxtest.New(t,
		fx.Supply(zap.NewNop()),
		NewModule(WithConfig(Config{SchemaRegistry: registry.Config{URL: "mock://module"}})),
		fx.Populate(&resolver),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.NotNil(t, resolver)
}

func TestNewModule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing schema file", cfg: Config{Schemas: []string{"/nonexistent/x.avsc"}}, wantErr: "failed to read schema file"},
		{name: "invalid config", cfg: Config{BatchConcurrency: -2}, wantErr: "batch-concurrency cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fx.New(
				fx.NopLogger,
				fx.Supply(zap.NewNop()),
				NewModule(WithConfig(tt.cfg)),
				fx.Invoke(func(*Formatter) {}),
			)

			require.Error(t, app.Err())
			assert.Contains(t, app.Err().Error(), tt.wantErr)
		})
	}
}

func TestLoadSchemaFiles_InvalidSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.avsc")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "record"`), 0o644))

	err := loadSchemaFiles(schema.NewRegistry(), []string{path}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register schema file")
}

func TestNewModule_OverridesApplyOverViper(t *testing.T) {
	// Arrange
	v := viper.New()
	v.Set("debugtext.compact", false)
	v.Set("debugtext.max-depth", 3)
	var cfg Config

	// Act
	app := fxtest.New(t,
		fx.Supply(zap.NewNop(), v),
		NewModule(WithOverride(func(c *Config) {
			c.Render.Compact = true
		})),
		fx.Populate(&cfg),
	)
	app.RequireStart()
	defer app.RequireStop()

	// Assert
	assert.True(t, cfg.Render.Compact)
	assert.Equal(t, 3, cfg.Render.MaxDepth)
}

func TestNewModule_OverrideValidated(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(zap.NewNop(), viper.New()),
		NewModule(WithOverride(func(c *Config) {
			c.SchemaRegistry.URL = "ftp://nope"
		})),
		fx.Invoke(func(*Formatter) {}),
	)

	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "scheme must be http, https or mock")
}

func TestNewModule_RequiresConfigSource(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(zap.NewNop()),
		NewModule(),
		fx.Invoke(func(*Formatter) {}),
	)

	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "requires *viper.Viper or WithConfig")
}
