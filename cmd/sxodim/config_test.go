package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
httpServer:
  port: 9000
storage:
  storageType: postgres
  database:
    host: db
    port: 5432
    password: $env:SXODIM_TEST_PG_PASSWORD
`), 0o600))
	t.Setenv("SXODIM_TEST_PG_PASSWORD", "from-env")

	config, err := NewConfig(file)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", config.HTTPServer.Host)
	require.Equal(t, 9000, config.HTTPServer.Port)
	require.Equal(t, 10*time.Second, config.HTTPServer.ReadTimeout)
	require.Equal(t, 8001, config.GrpcServer.Port)
	require.Equal(t, "WARN", config.Logger.Level)
	require.Equal(t, "postgres", config.Storage.StorageType)
	require.Equal(t, "db", config.Storage.Database.Host)
	require.Equal(t, "from-env", config.Storage.Database.Password)
	require.False(t, config.Notifier.Enabled)
	require.Equal(t, "calendar.notify", config.Notifier.Rabbit.Queue)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
