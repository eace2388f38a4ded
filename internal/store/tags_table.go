package store

import (
	"context"
	"errors"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6b7280"

func init() {
	register(&table{
		kind:    types.KindTag,
		columns: []string{"workspace_id", "name", "color"},
		values: func(e types.Entity) []any {
			t := e.(*types.Tag)
			return []any{t.WorkspaceID, t.Name, t.Color}
		},
		dest: func(e types.Entity) []any {
			t := e.(*types.Tag)
			return []any{&t.WorkspaceID, &t.Name, &t.Color}
		},
	})
}

// CreateTag creates a tag in a workspace.
func (s *Store) CreateTag(ctx context.Context, workspaceID, name, color string) (*types.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	if workspaceID == "" {
		return nil, types.ErrInvalidID
	}
	if color == "" {
		color = DefaultTagColor
	}
	t := &types.Tag{WorkspaceID: workspaceID, Name: name, Color: color}
	if err := s.create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTag returns a live tag.
func (s *Store) GetTag(ctx context.Context, id string) (*types.Tag, error) {
	return fetch[*types.Tag](ctx, s, types.KindTag, id)
}

// TagByName returns the live tag with the given name, ignoring case.
func (s *Store) TagByName(ctx context.Context, workspaceID, name string) (*types.Tag, error) {
	ts, err := fetchAll[*types.Tag](ctx, s, types.KindTag,
		"deleted_at IS NULL AND workspace_id = ? AND lower(name) = lower(?)", "created_at, id LIMIT 1",
		workspaceID, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, types.ErrNotFound
	}
	return ts[0], nil
}

// ListTags returns the live tags of a workspace by name.
func (s *Store) ListTags(ctx context.Context, workspaceID string) ([]*types.Tag, error) {
	if workspaceID == "" {
		return fetchAll[*types.Tag](ctx, s, types.KindTag, "", "name")
	}
	return fetchAll[*types.Tag](ctx, s, types.KindTag, "deleted_at IS NULL AND workspace_id = ?", "name", workspaceID)
}

// UpsertTag returns the live tag named name, creating it if needed. An
// existing tag keeps its color.
func (s *Store) UpsertTag(ctx context.Context, workspaceID, name, color string) (*types.Tag, error) {
	var out *types.Tag
	err := s.write(ctx, func(tx *Store) error {
		t, err := tx.TagByName(ctx, workspaceID, name)
		if err == nil {
			out = t
			return nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		out, err = tx.CreateTag(ctx, workspaceID, name, color)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTag applies a partial update to a tag.
func (s *Store) UpdateTag(ctx context.Context, id string, p types.TagPatch) (*types.Tag, error) {
	e, err := s.modify(ctx, types.KindTag, id, func(e types.Entity) error {
		t := e.(*types.Tag)
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return types.ErrInvalidName
			}
			t.Name = name
		}
		if p.Color != nil {
			t.Color = *p.Color
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.Tag), nil
}

// DeleteTag tombstones a tag. Task membership rows are kept so the tasks'
// synced tag lists stay stable; listings by tag skip tombstoned tags.
func (s *Store) DeleteTag(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindTag, id)
}
