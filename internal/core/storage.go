package core

import (
	"fmt"

	"bomgraft/internal/config"
	"bomgraft/internal/infra/persistence/memory"
	"bomgraft/internal/infra/persistence/postgres"
	"bomgraft/internal/infra/persistence/sqlite"
	"bomgraft/pkg/domain"
)

// Ledger is the revision ledger contract implemented by every storage driver.
type Ledger = domain.Ledger

// OpenLedger selects a ledger backend from the storage configuration section.
// An empty driver defaults to sqlite.
//
//	memory:   in-process only (tests / ephemeral runs)
//	sqlite:   embedded file at SQLitePath (default ./bomgraft.db)
//	postgres: server at PostgresDSN
func OpenLedger(cfg config.Storage) (Ledger, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageSQLite, "":
		return sqlite.NewStore(cfg.SQLitePath)
	case config.StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
