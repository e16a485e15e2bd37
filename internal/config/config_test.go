package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsAndFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
app:
  environment: test
contract:
  admin: ops-admin
sandbox:
  call_timeout: 500ms
database:
  in_memory: true
monitor:
  enabled: true
  port: 9100
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, "ops-admin", cfg.Contract.Admin)
	assert.Equal(t, "trading", cfg.Contract.ID)
	assert.Equal(t, 500*time.Millisecond, cfg.Sandbox.CallTimeout)
	assert.Equal(t, uint32(16), cfg.Sandbox.MemoryLimitPages)
	assert.True(t, cfg.Database.InMemory)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
	assert.Equal(t, 9100, cfg.Monitor.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.App.Environment = ""
	cfg.Sandbox.CallTimeout = 0
	cfg.Database.MaxOpenConns = 0
	cfg.Monitor.Enabled = true
	cfg.Monitor.Port = 0

	err = cfg.Validate()
	require.Error(t, err)
	for _, fragment := range []string{"app.environment", "sandbox.call_timeout", "database.max_open_conns", "monitor.port"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "trading", cfg.Contract.ID)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, "configs/scenarios/end_to_end.yaml", cfg.Scenario.Path)
}
