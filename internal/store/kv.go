package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetValue returns the raw value stored under key
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get value: %w", err)
	}
	return v, nil
}

// SetValue stores value under key, replacing any previous value
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now(),
	)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// DeleteValue removes key. Missing keys are not an error.
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

// Keys lists stored keys with the given prefix
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.SelectContext(ctx, &keys,
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
