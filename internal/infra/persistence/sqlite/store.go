// Package sqlite persists the revision ledger to an embedded SQLite file.
// Each revision is one row; the full record is kept as a JSON payload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bomgraft/pkg/domain"
)

var _ domain.Ledger = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS revisions (
	id TEXT PRIMARY KEY,
	job_number TEXT NOT NULL,
	revision INTEGER NOT NULL,
	payload BLOB NOT NULL,
	UNIQUE(job_number, revision)
)`

// Store is a SQLite-backed ledger.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "bomgraft.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps the create-only check and the insert serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create revisions table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Record inserts a revision; the unique (job_number, revision) constraint
// turns a second seal of the same revision into ErrRevisionExists.
func (s *Store) Record(ctx context.Context, rev domain.Revision) error {
	rev, err := domain.NormalizeRevision(rev)
	if err != nil {
		return err
	}
	payload, err := jsonMarshal(rev)
	if err != nil {
		return fmt.Errorf("encode revision: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO revisions(id, job_number, revision, payload) VALUES(?,?,?,?)`,
		rev.ID, rev.JobNumber, rev.Revision, payload)
	if isUniqueViolation(err) {
		return domain.RevisionExistsError(rev.JobNumber, rev.Revision)
	}
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// Latest returns the highest revision recorded for a job.
func (s *Store) Latest(ctx context.Context, jobNumber string) (domain.Revision, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM revisions WHERE job_number = ? ORDER BY revision DESC LIMIT 1`,
		strings.TrimSpace(jobNumber))
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Revision{}, false, nil
		}
		return domain.Revision{}, false, fmt.Errorf("select latest revision: %w", err)
	}
	rev, err := decode(payload)
	if err != nil {
		return domain.Revision{}, false, err
	}
	return rev, true, nil
}

// List returns every revision of a job in ascending order.
func (s *Store) List(ctx context.Context, jobNumber string) ([]domain.Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM revisions WHERE job_number = ? ORDER BY revision`,
		strings.TrimSpace(jobNumber))
	if err != nil {
		return nil, fmt.Errorf("select revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Revision{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rev, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func decode(payload []byte) (domain.Revision, error) {
	var rev domain.Revision
	if err := json.Unmarshal(payload, &rev); err != nil {
		return domain.Revision{}, fmt.Errorf("decode revision: %w", err)
	}
	return rev, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

var jsonMarshal = json.Marshal
