// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect identifies the SQL engine behind a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// LockClause returns the row lock suffix for SELECT statements.
// SQLite has no row locks; writers are serialized by the single connection.
func (d Dialect) LockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// DB is a *sql.DB tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch dialect {
	case Postgres:
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	case SQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// One writer at a time; also keeps in-memory databases on a single connection.
		conn.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// sqliteDSN turns a bare path into a file: URI with the pragmas the schema relies on.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure on either supported engine.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
