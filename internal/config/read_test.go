package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9999,
		"replication_port": 7001,
		"replicas": ["localhost:7002", "localhost:7003"],
		"telemetry_port": 8080,
		"data_dir": "testdata-dir",
		"backup_every_sec": 30,
		"log_level": "debug"
	}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 7001, cfg.ReplicationPort)
	assert.Equal(t, []string{"localhost:7002", "localhost:7003"}, cfg.Replicas)
	assert.Equal(t, 8080, cfg.TelemetryPort)
	assert.Equal(t, "testdata-dir", cfg.DataDir)
	assert.Equal(t, 30, cfg.BackupEverySec)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestReadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"port": 9999}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "chatdata", cfg.DataDir)
	assert.Equal(t, 60, cfg.BackupEverySec)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
