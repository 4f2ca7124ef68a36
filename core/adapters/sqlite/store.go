// Package sqlite provides a network backend keeping raw network records in a
// local SQLite database, for deployments without a NOW service.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

//go:embed schema.sql
var schema string

// Store owns the database. Sessions opened from it only see the networks
// of their delegated user.
type Store struct {
	db *sql.DB
}

var _ ports.BackendFactory = (*Store)(nil)

// Open opens or creates the database at dataSource, a file path or a
// "file:" URI, and applies the schema.
func Open(ctx context.Context, dataSource string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dataSource))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer; an in-memory database lives as long as
	// its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(dataSource string) string {
	if !strings.HasPrefix(dataSource, "file:") {
		dataSource = "file:" + dataSource
	}
	sep := "?"
	if strings.Contains(dataSource, "?") {
		sep = "&"
	}
	return dataSource + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewNetworkBackend opens a session scoped to user.
func (s *Store) NewNetworkBackend(_ context.Context, user domain.DelegatedUser) (ports.NetworkBackend, error) {
	return &NetworkBackend{db: s.db, owner: user.Identity}, nil
}
