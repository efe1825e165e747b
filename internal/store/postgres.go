package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/tagstorm/internal/searchsql"
)

//go:embed postgres_schema.sql
var postgresSchemaSQL string

// PostgresStore is the production image collection.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to the database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// Dialect reports the SQL flavor searches against this store must use.
func (s *PostgresStore) Dialect() searchsql.Dialect {
	return searchsql.Postgres
}

// Query executes a compiled search and returns its rows.
func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows: rows}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
