// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/openjunction/trafficsim/internal/config"
	"github.com/openjunction/trafficsim/internal/database"
	"github.com/openjunction/trafficsim/internal/logging"
	gormstorage "github.com/openjunction/trafficsim/internal/storage/gorm"
	"github.com/openjunction/trafficsim/internal/storage/memory"
	"github.com/openjunction/trafficsim/internal/storage/postgres"
	sqlitestorage "github.com/openjunction/trafficsim/internal/storage/sqlite"
)

// Compile-time checks that every backend satisfies the interfaces the
// factory hands out. The backend packages cannot carry these
// themselves without importing this package back.
var (
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Backend    = (*memory.Backend)(nil)
	_ Exportable = (*memory.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		db, err := database.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("postgres backend unavailable: %w", err)
		}
		return postgres.New(gormstorage.Dependencies{DB: db, LogManager: logManager}), nil
	case "sqlite":
		db, err := database.GetSqliteDB(viper.GetString("storage.sqlite.path"))
		if err != nil {
			return nil, fmt.Errorf("sqlite backend unavailable: %w", err)
		}
		return sqlitestorage.New(gormstorage.Dependencies{DB: db, LogManager: logManager}), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
