package core

import (
	"context"
	"fmt"
	"io"

	"qcatlas/internal/config"
	"qcatlas/internal/infra/persistence/memory"
	"qcatlas/internal/infra/persistence/postgres"
	"qcatlas/internal/infra/persistence/sqlite"
	"qcatlas/pkg/domain"
)

// OpenPersistentStore selects a backend from the storage configuration. Stores
// holding a database handle also implement io.Closer.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(engine), nil
	case "", config.StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// CloseStore closes the store when it holds external resources.
func CloseStore(store domain.PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
