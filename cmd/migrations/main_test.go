package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilePath(t *testing.T) {
	basePath := filepath.Join("..", "..", "internal", "adapters", "repository", "postgres", "migrations")

	name, err := migrationFilePath(basePath, "create_sessions.up")
	require.NoError(t, err)
	assert.Equal(t, "0001_create_sessions.up.sql", name)

	name, err = migrationFilePath(basePath, "create_sessions.down")
	require.NoError(t, err)
	assert.Equal(t, "0001_create_sessions.down.sql", name)

	_, err = migrationFilePath(basePath, "drop_everything")
	assert.Error(t, err)
}

func TestMigrationFileContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_add_index.up.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "add_index.up.sql"), 0o755))

	content, err := migrationFileContent(dir, "add_index.up")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", string(content))
}
