package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// Dirty returns every entity with a local change not yet pushed, tombstones
// included, ordered by local_updated_at ascending.
func (s *Store) Dirty(ctx context.Context) ([]types.Entity, error) {
	var out []types.Entity
	for _, kind := range types.Kinds {
		es, err := s.list(ctx, kind, "is_synced = 0", "local_updated_at, id")
		if err != nil {
			return nil, err
		}
		out = append(out, es...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Meta(), out[j].Meta()
		if !a.LocalUpdatedAt.Equal(b.LocalUpdatedAt) {
			return a.LocalUpdatedAt.Before(b.LocalUpdatedAt)
		}
		return out[i].Kind().Rank() < out[j].Kind().Rank()
	})
	return out, nil
}

// DirtyCount returns the number of entities awaiting push.
func (s *Store) DirtyCount(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range types.Kinds {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_synced = 0", kind)
		if err := s.q.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return 0, fmt.Errorf("counting dirty %s: %w", kind, err)
		}
		total += n
	}
	return total, nil
}

// MarkSynced clears the dirty flag of an entity only if its
// local_updated_at still equals snapshot, the value read when the push
// began. It reports false when the row changed in the meantime.
func (s *Store) MarkSynced(ctx context.Context, kind types.Kind, id string, snapshot time.Time) (bool, error) {
	if _, err := tableFor(kind); err != nil {
		return false, err
	}
	query := fmt.Sprintf("UPDATE %s SET is_synced = 1 WHERE id = ? AND local_updated_at = ? AND is_synced = 0", kind)
	res, err := s.q.ExecContext(ctx, query, id, formatTime(snapshot))
	if err != nil {
		return false, fmt.Errorf("marking %s %s synced: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Lookup returns an entity by kind and id whether or not it is tombstoned.
func (s *Store) Lookup(ctx context.Context, kind types.Kind, id string) (types.Entity, error) {
	return s.get(ctx, kind, id, true)
}
