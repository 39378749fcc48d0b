// Package state persists planner records as JSON documents in a key-value backend.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Keys of the persisted records.
const (
	OwnershipKey = "endfield_weapon_status_v2"
	TodoKey      = "endfield_todo_v4_unified"
)

// Backend is a raw key-value store.
type Backend interface {
	// Get returns the value under key. The bool is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes whole JSON records through a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Load decodes the record under key into a fresh T.
//
// A missing key returns def unchanged. A record that fails to decode is
// logged and def is returned with a nil error. A backend failure returns
// def together with the error.
func Load[T any](ctx context.Context, s *Store, key string, def T) (T, error) {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("loading %s: %w", key, err)
	}
	if !found {
		return def, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("discarding unreadable record", "key", key, "error", err)
		return def, nil
	}
	return v, nil
}

// Save writes v under key, replacing the whole record.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	s.logger.Debug("record saved", "key", key, "bytes", len(data))
	return nil
}

// Remove deletes the record under key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
