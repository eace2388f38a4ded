package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// DefaultListColor is used when a list is created without a color.
const DefaultListColor = "#6b7280"

func init() {
	register(&table{
		kind:    types.KindList,
		columns: []string{"workspace_id", "name", "color", "ord", "is_default"},
		values: func(e types.Entity) []any {
			l := e.(*types.List)
			return []any{l.WorkspaceID, l.Name, l.Color, l.Ord, l.IsDefault}
		},
		dest: func(e types.Entity) []any {
			l := e.(*types.List)
			return []any{&l.WorkspaceID, &l.Name, &l.Color, &l.Ord, &l.IsDefault}
		},
	})
}

// CreateList creates a list. The first list of a workspace, or one created
// with IsDefault set while no default exists, becomes the default list.
// When Ord is zero the list is appended after existing lists.
func (s *Store) CreateList(ctx context.Context, l *types.List) (*types.List, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return nil, types.ErrInvalidName
	}
	if l.WorkspaceID == "" {
		return nil, types.ErrInvalidID
	}
	if l.Color == "" {
		l.Color = DefaultListColor
	}
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetWorkspace(ctx, l.WorkspaceID); err != nil {
			return fmt.Errorf("workspace %s: %w", l.WorkspaceID, err)
		}
		def, err := tx.DefaultList(ctx, l.WorkspaceID)
		switch {
		case errors.Is(err, types.ErrNoDefaultList):
			l.IsDefault = true
		case err != nil:
			return err
		case def != nil:
			l.IsDefault = false
		}
		if l.Ord == 0 {
			var next int
			err := tx.q.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(ord) + 1, 0) FROM lists WHERE workspace_id = ? AND deleted_at IS NULL",
				l.WorkspaceID,
			).Scan(&next)
			if err != nil {
				return fmt.Errorf("computing list order: %w", err)
			}
			l.Ord = next
		}
		return tx.create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetList returns a live list.
func (s *Store) GetList(ctx context.Context, id string) (*types.List, error) {
	return fetch[*types.List](ctx, s, types.KindList, id)
}

// ListLists returns the live lists of a workspace in display order. An empty
// workspaceID lists every workspace.
func (s *Store) ListLists(ctx context.Context, workspaceID string) ([]*types.List, error) {
	if workspaceID == "" {
		return fetchAll[*types.List](ctx, s, types.KindList, "", "ord, name")
	}
	return fetchAll[*types.List](ctx, s, types.KindList,
		"deleted_at IS NULL AND workspace_id = ?", "ord, name", workspaceID)
}

// DefaultList returns the default list of a workspace, or ErrNoDefaultList.
func (s *Store) DefaultList(ctx context.Context, workspaceID string) (*types.List, error) {
	ls, err := fetchAll[*types.List](ctx, s, types.KindList,
		"deleted_at IS NULL AND workspace_id = ? AND is_default = 1", "created_at, id LIMIT 1", workspaceID)
	if err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, types.ErrNoDefaultList
	}
	return ls[0], nil
}

// UpdateList applies a partial update to a list.
func (s *Store) UpdateList(ctx context.Context, id string, p types.ListPatch) (*types.List, error) {
	e, err := s.modify(ctx, types.KindList, id, func(e types.Entity) error {
		l := e.(*types.List)
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return types.ErrInvalidName
			}
			l.Name = name
		}
		if p.Color != nil {
			l.Color = *p.Color
		}
		if p.Ord != nil {
			l.Ord = *p.Ord
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.List), nil
}

// DeleteList tombstones a list after moving its live tasks to the
// workspace's default list. Each moved task is a local change. Deleting the
// default list returns ErrDefaultList and changes nothing.
func (s *Store) DeleteList(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, types.ErrInvalidID
	}
	removed := false
	err := s.write(ctx, func(tx *Store) error {
		l, err := tx.GetList(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if l.IsDefault {
			return types.ErrDefaultList
		}
		def, err := tx.DefaultList(ctx, l.WorkspaceID)
		if err != nil {
			return err
		}
		if _, err := tx.moveTasks(ctx, id, def); err != nil {
			return err
		}
		tx.trackDelete(l)
		if err := tx.update(ctx, l); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// moveTasks moves the live tasks of list fromID into list to. Each moved
// task is a local change.
func (s *Store) moveTasks(ctx context.Context, fromID string, to *types.List) (int, error) {
	tasks, err := s.ListTasks(ctx, types.TaskFilter{ListID: fromID})
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		if err := s.rehome(ctx, t, to); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

func (s *Store) rehome(ctx context.Context, t *types.Task, to *types.List) error {
	t.ListID = to.ID
	s.trackUpdate(t)
	if err := s.update(ctx, t); err != nil {
		return fmt.Errorf("reassigning task %s: %w", t.ID, err)
	}
	return nil
}
