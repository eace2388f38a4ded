package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func TestCreateListDefaults(t *testing.T) {
	s := openTestStore(t)
	_, inbox, sprint := setupWorkspace(t, s)

	assert.True(t, inbox.IsDefault, "first list becomes the default")
	assert.False(t, sprint.IsDefault)
	assert.Equal(t, DefaultListColor, inbox.Color)
	assert.Equal(t, 0, inbox.Ord)
	assert.Equal(t, 1, sprint.Ord)
}

func TestCreateListSecondDefaultIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, inbox, _ := setupWorkspace(t, s)

	extra, err := s.CreateList(ctx, &types.List{WorkspaceID: ws.ID, Name: "Other", IsDefault: true})
	require.NoError(t, err)
	assert.False(t, extra.IsDefault)

	def, err := s.DefaultList(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, def.ID)
}

func TestDeleteDefaultListRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, inbox, _ := setupWorkspace(t, s)
	_, err := s.CreateTask(ctx, &types.Task{ListID: inbox.ID, Title: "Stay"})
	require.NoError(t, err)

	before, err := s.ListLists(ctx, ws.ID)
	require.NoError(t, err)

	removed, err := s.DeleteList(ctx, inbox.ID)
	assert.ErrorIs(t, err, types.ErrDefaultList)
	assert.False(t, removed)

	after, err := s.ListLists(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.True(t, before[i].LocalUpdatedAt.Equal(after[i].LocalUpdatedAt), "no row was touched")
	}
}

func TestDeleteListReassignsTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, inbox, sprint := setupWorkspace(t, s)

	a, err := s.CreateTask(ctx, &types.Task{ListID: sprint.ID, Title: "A"})
	require.NoError(t, err)
	b, err := s.CreateTask(ctx, &types.Task{ListID: sprint.ID, Title: "B"})
	require.NoError(t, err)
	for _, task := range []*types.Task{a, b} {
		ok, err := s.MarkSynced(ctx, types.KindTask, task.ID, task.LocalUpdatedAt)
		require.NoError(t, err)
		require.True(t, ok)
	}

	removed, err := s.DeleteList(ctx, sprint.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	for _, task := range []*types.Task{a, b} {
		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, inbox.ID, got.ListID)
		assert.False(t, got.IsSynced, "reassigned task is a local change")
		assert.True(t, got.LocalUpdatedAt.After(task.LocalUpdatedAt))
	}

	e, err := s.Lookup(ctx, types.KindList, sprint.ID)
	require.NoError(t, err)
	assert.True(t, e.Meta().Deleted())

	_, err = s.GetList(ctx, sprint.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateListPartial(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _, sprint := setupWorkspace(t, s)

	ord := 7
	got, err := s.UpdateList(ctx, sprint.ID, types.ListPatch{Ord: &ord})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Ord)
	assert.Equal(t, "Sprint", got.Name)
	assert.Equal(t, "#3b82f6", got.Color)

	blank := "  "
	_, err = s.UpdateList(ctx, sprint.ID, types.ListPatch{Name: &blank})
	assert.ErrorIs(t, err, types.ErrInvalidName)
}
