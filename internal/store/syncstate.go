package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sync state keys.
const (
	StatePullWatermark = "pull_watermark"
	StateLastPush      = "last_push_at"
	StateLastPull      = "last_pull_at"
)

// SyncTime reads a timestamp from sync_state. A missing key yields the zero time.
func (s *Store) SyncTime(ctx context.Context, key string) (time.Time, error) {
	var v string
	err := s.q.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading sync state %s: %w", key, err)
	}
	return parseTime(v)
}

// SetSyncTime stores a timestamp in sync_state.
func (s *Store) SetSyncTime(ctx context.Context, key string, t time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO sync_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, formatTime(t),
	)
	if err != nil {
		return fmt.Errorf("writing sync state %s: %w", key, err)
	}
	return nil
}

// Watermark returns the greatest remote updated_at fully applied locally.
func (s *Store) Watermark(ctx context.Context) (time.Time, error) {
	return s.SyncTime(ctx, StatePullWatermark)
}

// AdvanceWatermark moves the watermark forward to t. An earlier t is
// ignored, so the watermark never moves backwards.
func (s *Store) AdvanceWatermark(ctx context.Context, t time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE excluded.value > sync_state.value`,
		StatePullWatermark, formatTime(t),
	)
	if err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}
	return nil
}
