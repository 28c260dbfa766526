package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps values in a shared PostgreSQL table, namespaced per
// device so several clients (test rigs, device farms) can share one database.
type PostgresStore struct {
	db       *pgxpool.Pool
	deviceID string
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn, deviceID string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS client_kv (
			device_id  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (device_id, key)
		)
	`
	if _, err := db.Exec(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create client_kv table: %w", err)
	}
	return &PostgresStore{db: db, deviceID: deviceID}, nil
}

// Get retrieves a value by key
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM client_kv WHERE device_id = $1 AND key = $2`
	var value string
	err := s.db.QueryRow(ctx, query, s.deviceID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a value
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_kv (device_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, s.deviceID, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes a key
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM client_kv WHERE device_id = $1 AND key = $2`
	if _, err := s.db.Exec(ctx, query, s.deviceID, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
