package store

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind:    types.KindWorkspace,
		columns: []string{"owner_id", "name"},
		values: func(e types.Entity) []any {
			w := e.(*types.Workspace)
			return []any{w.OwnerID, w.Name}
		},
		dest: func(e types.Entity) []any {
			w := e.(*types.Workspace)
			return []any{&w.OwnerID, &w.Name}
		},
	})
}

// CreateWorkspace creates a workspace owned by ownerID.
func (s *Store) CreateWorkspace(ctx context.Context, name, ownerID string) (*types.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	w := &types.Workspace{Name: name, OwnerID: ownerID}
	if err := s.create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// GetWorkspace returns a live workspace.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*types.Workspace, error) {
	return fetch[*types.Workspace](ctx, s, types.KindWorkspace, id)
}

// ListWorkspaces returns live workspaces, oldest first.
func (s *Store) ListWorkspaces(ctx context.Context) ([]*types.Workspace, error) {
	return fetchAll[*types.Workspace](ctx, s, types.KindWorkspace, "", "created_at, id")
}

// DefaultWorkspace returns the oldest live workspace.
func (s *Store) DefaultWorkspace(ctx context.Context) (*types.Workspace, error) {
	ws, err := fetchAll[*types.Workspace](ctx, s, types.KindWorkspace, "deleted_at IS NULL", "created_at, id LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, types.ErrNotFound
	}
	return ws[0], nil
}

// RenameWorkspace changes a workspace name.
func (s *Store) RenameWorkspace(ctx context.Context, id, name string) (*types.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	e, err := s.modify(ctx, types.KindWorkspace, id, func(e types.Entity) error {
		e.(*types.Workspace).Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.Workspace), nil
}

