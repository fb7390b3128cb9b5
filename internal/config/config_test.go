package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
storage:
  local_path: `+filepath.Join(t.TempDir(), "uploads")+`
executor:
  url: http://localhost:5001/runJava
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "gateway", cfg.Executor.Mode)
	assert.Equal(t, 30*time.Second, cfg.Executor.Timeout)
	assert.Equal(t, "4", cfg.Executor.VersionIndex)
	assert.Equal(t, 10, cfg.Progress.LookupBatchSize)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.DirExists(t, cfg.Storage.LocalPath)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
storage:
  local_path: `+filepath.Join(t.TempDir(), "uploads")+`
`)
	t.Setenv("EXECUTOR_MODE", "jdoodle")
	t.Setenv("JDOODLE_CLIENT_ID", "client")
	t.Setenv("CODEGROW_PROGRESS_TIMEZONE", "UTC")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "jdoodle", cfg.Executor.Mode)
	assert.Equal(t, "client", cfg.Executor.ClientID)

	loc, err := cfg.Progress.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfigValidation(t *testing.T) {
	local := filepath.Join(t.TempDir(), "uploads")

	_, err := LoadConfig(writeConfig(t, "executor:\n  mode: judge0\nstorage:\n  local_path: "+local+"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "server:\n  mode: release\njwt:\n  secret: short\nstorage:\n  local_path: "+local+"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "progress:\n  timezone: Nowhere/City\nstorage:\n  local_path: "+local+"\n"))
	assert.Error(t, err)
}
