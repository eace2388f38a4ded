package store

import (
	"context"
	"errors"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// PutRemote writes an entity received from the remote, inserting it or
// replacing the local row. The row is stored as synced with the given
// local_updated_at; the entity's updated_at, created_at and tombstone are
// kept as received. Habit streaks are recomputed.
//
// A list tombstone moves the list's live tasks to the workspace's default
// list, and a live task arriving for a deleted list is moved there too.
// Those moves are local changes: the tasks become dirty and change hooks
// fire for them. No hook fires for the received entity itself.
func (s *Store) PutRemote(ctx context.Context, e types.Entity, localUpdatedAt time.Time) error {
	m := e.Meta()
	if m.ID == "" {
		return types.ErrInvalidID
	}
	m.LocalUpdatedAt = localUpdatedAt
	m.IsSynced = true
	if m.LocalUpdatedAt.Before(m.CreatedAt) {
		m.LocalUpdatedAt = m.CreatedAt
	}
	return s.write(ctx, func(tx *Store) error {
		if err := tx.upsert(ctx, e); err != nil {
			return err
		}
		tx.clock.Observe(m.UpdatedAt)
		switch v := e.(type) {
		case *types.Habit:
			_, err := tx.recomputeStreak(ctx, v.ID)
			return err
		case *types.HabitLog:
			_, err := tx.recomputeStreak(ctx, v.HabitID)
			return err
		case *types.List:
			if v.DeletedAt != nil {
				return tx.adoptTasksOf(ctx, v)
			}
		case *types.Task:
			if v.DeletedAt == nil {
				return tx.adoptTask(ctx, v)
			}
		}
		return nil
	})
}

// adoptTasksOf moves the live tasks of the deleted list l to the default
// list. When the workspace has no live default list the tasks stay put.
func (s *Store) adoptTasksOf(ctx context.Context, l *types.List) error {
	def, err := s.DefaultList(ctx, l.WorkspaceID)
	if errors.Is(err, types.ErrNoDefaultList) {
		s.logger.Warn("deleted list has no default list to move tasks to", "list", l.ID, "workspace", l.WorkspaceID)
		return nil
	}
	if err != nil {
		return err
	}
	n, err := s.moveTasks(ctx, l.ID, def)
	if n > 0 {
		s.logger.Info("moved tasks of deleted list", "list", l.ID, "to", def.ID, "tasks", n)
	}
	return err
}

// adoptTask moves t to the default list when its list is deleted locally.
func (s *Store) adoptTask(ctx context.Context, t *types.Task) error {
	parent, err := s.Lookup(ctx, types.KindList, t.ListID)
	if err != nil || !parent.Meta().Deleted() {
		// A missing parent is the foreign key's concern.
		return nil
	}
	l := parent.(*types.List)
	def, err := s.DefaultList(ctx, l.WorkspaceID)
	if errors.Is(err, types.ErrNoDefaultList) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.rehome(ctx, t, def)
}
