// Package postgres provides a Postgres-backed revision ledger. Reads are
// served from an in-memory ledger hydrated on open; every Record is written
// through to the revisions table before it becomes visible.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"bomgraft/internal/infra/persistence/memory"
	"bomgraft/pkg/domain"
)

var _ domain.Ledger = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/bomgraft?sslmode=disable"

	uniqueViolation = "23505"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists revisions to Postgres while reusing the memory ledger for reads.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens the ledger at dsn (falls back to defaultDSN), ensures the
// revisions table exists and hydrates the in-memory ledger from it.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureRevisionsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	if err := loadRevisions(ctx, db, mem); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: mem, db: db}, nil
}

// Record writes rev to Postgres, then to the in-memory ledger.
func (s *Store) Record(ctx context.Context, rev domain.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prepared, err := s.Prepare(rev)
	if err != nil {
		return err
	}
	payload, err := jsonMarshal(prepared)
	if err != nil {
		return fmt.Errorf("encode revision: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO revisions (id, job_number, revision, payload) VALUES ($1,$2,$3,$4)`,
		prepared.ID, prepared.JobNumber, prepared.Revision, payload)
	if isUniqueViolation(err) {
		return domain.RevisionExistsError(prepared.JobNumber, prepared.Revision)
	}
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return s.Insert(prepared)
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureRevisionsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS revisions (
		id TEXT PRIMARY KEY,
		job_number TEXT NOT NULL,
		revision INTEGER NOT NULL,
		payload JSONB NOT NULL,
		UNIQUE (job_number, revision)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure revisions table: %w", err)
	}
	return nil
}

func loadRevisions(ctx context.Context, db *sql.DB, mem *memory.Store) error {
	rows, err := db.QueryContext(ctx, `SELECT id, job_number, revision, payload FROM revisions`)
	if err != nil {
		return fmt.Errorf("select revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			id, job  string
			revision int
			payload  []byte
		)
		if err := rows.Scan(&id, &job, &revision, &payload); err != nil {
			return fmt.Errorf("scan revision: %w", err)
		}
		var rev domain.Revision
		if err := json.Unmarshal(payload, &rev); err != nil {
			return fmt.Errorf("decode %s REV%d: %w", job, revision, err)
		}
		// Columns are authoritative over the payload copy.
		rev.ID, rev.JobNumber, rev.Revision = id, job, revision
		if err := mem.Insert(rev); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate revisions: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var jsonMarshal = json.Marshal

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
