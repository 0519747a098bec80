package storagebuilder

import (
	"context"
	"testing"

	memorystorage "github.com/lomoval/sxodim/internal/storage/memory"
	sqlstorage "github.com/lomoval/sxodim/internal/storage/sql"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := New(Config{StorageType: "memory"})
		require.NoError(t, err)
		require.IsType(t, &memorystorage.Storage{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := New(Config{StorageType: "sqlite", SQLite: sqlstorage.SQLiteConfig{Path: ":memory:"}})
		require.NoError(t, err)
		require.IsType(t, &sqlstorage.Storage{}, s)
		require.NoError(t, s.Ping(context.Background()))
		require.NoError(t, s.Close(context.Background()))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(Config{StorageType: "mongo"})
		require.Error(t, err)
	})
}
