package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/digestry/digestry/internal/common"
)

// SQLiteBackend stores records in a single-file sqlite database. Suited to
// small deployments that want persistence without running a database
// server.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(ctx context.Context, dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", dsn, err)
	}
	// One connection at a time: sqlite allows a single writer, and an
	// in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var record string
	err := b.db.QueryRowContext(ctx,
		"SELECT record FROM digests WHERE digest = ?", key).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("selecting record %s: %w", key, err)
	}
	return []byte(record), nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		"INSERT INTO digests (digest, record) VALUES (?, ?) "+
			"ON CONFLICT (digest) DO UPDATE SET record = excluded.record",
		key, string(value))
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM digests WHERE digest = ?", key)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}

// ForEachKey reads the key set up front and releases the connection before
// calling fn, so fn may read and delete through the backend.
func (b *SQLiteBackend) ForEachKey(ctx context.Context, fn func(key string) error) error {
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

func (b *SQLiteBackend) Flush(context.Context) error { return nil }

func (b *SQLiteBackend) Compact(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming sqlite db: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func selectKeys(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting digests: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digests: %w", err)
	}
	return keys, nil
}
