package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DEBUGTEXT_TEST_DOTENV=from-file\nDEBUGTEXT_TEST_PRESET=from-file\n"), 0o644))
	t.Setenv("DEBUGTEXT_TEST_PRESET", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("DEBUGTEXT_TEST_DOTENV") })

	// Act
	err := loadDotEnv(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("DEBUGTEXT_TEST_DOTENV"))
	assert.Equal(t, "from-process", os.Getenv("DEBUGTEXT_TEST_PRESET"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
