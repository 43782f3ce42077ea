package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/digestry/digestry/internal/common"
)

// PostgresBackend stores records in a PostgreSQL database, for deployments
// where several operators share one database server.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres db: %w", err)
	}
	if err := runMigrations(ctx, db, "pgx"); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresBackend{db: db}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var record string
	err := b.db.QueryRowContext(ctx,
		"SELECT record FROM digests WHERE digest = $1", key).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("selecting record %s: %w", key, err)
	}
	return []byte(record), nil
}

func (b *PostgresBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO digests (digest, record) VALUES ($1, $2) "+
			"ON CONFLICT (digest) DO UPDATE SET record = EXCLUDED.record",
		key, string(value))
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", key, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM digests WHERE digest = $1", key)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}

// ForEachKey reads the key set up front, so fn sees a stable snapshot even
// while it deletes through the backend.
func (b *PostgresBackend) ForEachKey(ctx context.Context, fn func(key string) error) error {
	keys, err := selectKeys(ctx, b.db, "SELECT digest FROM digests")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *PostgresBackend) Flush(context.Context) error { return nil }

func (b *PostgresBackend) Compact(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "VACUUM digests"); err != nil {
		return fmt.Errorf("vacuuming digests: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
