package core

import (
	"context"
	"fmt"

	"treeregistry/internal/blob"
	"treeregistry/internal/infra/persistence/blobsnap"
	"treeregistry/internal/infra/persistence/memory"
	"treeregistry/internal/infra/persistence/mysql"
	"treeregistry/internal/infra/persistence/postgres"
	"treeregistry/internal/infra/persistence/sqlite"
	"treeregistry/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMySQL    StorageDriver = "mysql"    // MySQL server
	StorageBlob     StorageDriver = "blob"     // JSON snapshots in a blob store
)

// StorageConfig selects and parameterises the snapshot backend.
type StorageConfig struct {
	Driver         StorageDriver `yaml:"driver"`
	SQLitePath     string        `yaml:"sqlite_path"`
	PostgresDSN    string        `yaml:"postgres_dsn"`
	MySQLDSN       string        `yaml:"mysql_dsn"`
	Blob           blob.Config   `yaml:"blob"`
	SnapshotRetain int           `yaml:"snapshot_retain"`
}

// OpenPersistentStore opens the backend named by cfg.Driver, defaulting to
// sqlite. The returned store implements io.Closer for the SQL backends.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageMySQL:
		store, err := mysql.NewStore(cfg.MySQLDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open snapshot blob store: %w", err)
		}
		store, err := blobsnap.NewStore(ctx, blobs, engine, blobsnap.Options{Retain: cfg.SnapshotRetain})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
