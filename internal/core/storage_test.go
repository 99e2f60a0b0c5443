package core

import (
	"context"
	"path/filepath"
	"testing"

	"bomgraft/internal/config"
	"bomgraft/internal/infra/persistence/memory"
	"bomgraft/internal/infra/persistence/sqlite"
	"bomgraft/pkg/domain"
)

func TestOpenLedgerMemory(t *testing.T) {
	ledger, err := OpenLedger(config.Storage{Driver: config.StorageMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := ledger.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", ledger)
	}
}

func TestOpenLedgerSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := OpenLedger(config.Storage{Driver: config.StorageSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = ledger.Close() }()
	store, ok := ledger.(*sqlite.Store)
	if !ok || store.Path() != path {
		t.Fatalf("expected sqlite store at %s, got %T", path, ledger)
	}
	if err := ledger.Record(context.Background(), domain.Revision{JobNumber: "1J100001"}); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestOpenLedgerUnknownDriver(t *testing.T) {
	if _, err := OpenLedger(config.Storage{Driver: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
