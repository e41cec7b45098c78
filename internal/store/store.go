package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	id         UUID PRIMARY KEY,
	catalog_id UUID,
	status     TEXT   NOT NULL,
	version    BIGINT NOT NULL,
	doc        JSONB  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auctions_catalog ON auctions (catalog_id);
CREATE INDEX IF NOT EXISTS idx_auctions_catalog_status ON auctions (catalog_id, status);

CREATE TABLE IF NOT EXISTS catalogs (
	id     UUID PRIMARY KEY,
	status TEXT  NOT NULL,
	doc    JSONB NOT NULL
);
`

// Migrate creates the auction and catalog tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
