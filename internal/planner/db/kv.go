package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// KVStore persists JSON documents under string keys.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new KVStore.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the raw value for key. The bool is false when the key is absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying kv value: %w", err)
	}
	return []byte(value), true, nil
}

// Set writes value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting kv value: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting kv value: %w", err)
	}
	return nil
}
