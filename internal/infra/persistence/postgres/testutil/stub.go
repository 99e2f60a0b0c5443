// Package testutil provides a stub database/sql driver for postgres ledger
// tests. It understands just enough SQL for the ledger: DDL is recorded,
// INSERT appends a row, SELECT returns every row of a table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// StubConn is the single connection behind a stub sql.DB.
type StubConn struct {
	// Execs lists every statement passed to ExecContext.
	Execs []string
	// Tables holds rows keyed by lower-case column name.
	Tables map[string][]map[string]any
	// Unique lists column sets per table that reject duplicate inserts with
	// UniqueErr.
	Unique    map[string][]string
	UniqueErr error

	FailExec   bool
	FailTables map[string]bool
	RowsErr    error
	// InsertErr, when set, is returned by every INSERT.
	InsertErr error
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: map[string][]map[string]any{}, Unique: map[string][]string{}}
	name := fmt.Sprintf("stubpg-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

var errNoTx = errors.New("stub: transactions not supported")

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("stub: prepare not supported") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn; the ledger never opens transactions.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, errNoTx }

// Ping implements driver.Pinger and fails with FailExec.
func (c *StubConn) Ping(context.Context) error {
	if c.FailExec {
		return errors.New("stub: ping failed")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	if !hasKeyword(query, "INSERT INTO") {
		return driver.RowsAffected(0), nil
	}
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: insert into %s failed", table)
	}
	if c.InsertErr != nil {
		return nil, c.InsertErr
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if c.violatesUnique(table, row) {
		if c.UniqueErr != nil {
			return nil, c.UniqueErr
		}
		return nil, fmt.Errorf("stub: duplicate row in %s", table)
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) violatesUnique(table string, row map[string]any) bool {
	key := c.Unique[table]
	if len(key) == 0 {
		return false
	}
	for _, existing := range c.Tables[table] {
		same := true
		for _, col := range key {
			if existing[col] != row[col] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// QueryContext implements driver.QueryerContext. WHERE clauses are ignored.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	table, cols, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: select from %s failed", table)
	}
	out := &stubRows{cols: cols, err: c.RowsErr}
	for _, row := range c.Tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}

func hasKeyword(query, kw string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), kw)
}

// parseInsert reads "INSERT INTO table (a, b) VALUES (...)".
func parseInsert(query string) (string, []string, error) {
	rest := strings.TrimSpace(query)[len("INSERT INTO"):]
	before, after, ok := strings.Cut(rest, "(")
	if !ok {
		return "", nil, fmt.Errorf("stub: cannot parse insert %q", query)
	}
	cols, _, ok := strings.Cut(after, ")")
	if !ok {
		return "", nil, fmt.Errorf("stub: cannot parse insert %q", query)
	}
	return strings.ToLower(strings.TrimSpace(before)), splitColumns(cols), nil
}

// parseSelect reads "SELECT a, b FROM table ...".
func parseSelect(query string) (string, []string, error) {
	q := strings.TrimSpace(query)
	if !hasKeyword(q, "SELECT ") {
		return "", nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	idx := strings.Index(strings.ToUpper(q), " FROM ")
	if idx < 0 {
		return "", nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	fields := strings.Fields(q[idx+len(" FROM "):])
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	return strings.ToLower(fields[0]), splitColumns(q[len("SELECT "):idx]), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}
