package storagebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/lomoval/sxodim/internal/storage"
	memorystorage "github.com/lomoval/sxodim/internal/storage/memory"
	sqlstorage "github.com/lomoval/sxodim/internal/storage/sql"
)

const connectTimeout = 15 * time.Second

type Config struct {
	StorageType string
	Database    sqlstorage.Config
	SQLite      sqlstorage.SQLiteConfig
}

func New(config Config) (storage.Storage, error) {
	var s storage.Storage
	switch config.StorageType {
	case "memory":
		s = memorystorage.New()
	case "sql", "postgres":
		s = sqlstorage.NewPostgres(config.Database)
	case "sqlite":
		s = sqlstorage.NewSQLite(config.SQLite)
	default:
		return nil, fmt.Errorf("unknown storage type %s", config.StorageType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s storage: %w", config.StorageType, err)
	}
	return s, nil
}
