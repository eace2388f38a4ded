package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func TestDirtyOrderedByLocalUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, inbox, _ := setupWorkspace(t, s)
	task, err := s.CreateTask(ctx, &types.Task{Title: "first"})
	require.NoError(t, err)
	tag, err := s.CreateTag(ctx, ws.ID, "later", "")
	require.NoError(t, err)

	// Touch the workspace last so it moves to the end.
	_, err = s.RenameWorkspace(ctx, ws.ID, "Renamed")
	require.NoError(t, err)

	dirty, err := s.Dirty(ctx)
	require.NoError(t, err)
	var ids []string
	for _, e := range dirty {
		ids = append(ids, e.Meta().ID)
	}
	require.Len(t, dirty, 5)
	assert.Equal(t, inbox.ID, ids[0])
	assert.Equal(t, []string{task.ID, tag.ID, ws.ID}, ids[2:])

	n, err := s.DirtyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMarkSyncedRaceGuard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	setupWorkspace(t, s)
	task, err := s.CreateTask(ctx, &types.Task{Title: "race"})
	require.NoError(t, err)
	snapshot := task.LocalUpdatedAt

	// A local edit lands between reading the snapshot and the acknowledgement.
	title := "race, edited"
	edited, err := s.UpdateTask(ctx, task.ID, types.TaskPatch{Title: &title})
	require.NoError(t, err)

	ok, err := s.MarkSynced(ctx, types.KindTask, task.ID, snapshot)
	require.NoError(t, err)
	assert.False(t, ok, "stale snapshot must not clear the dirty flag")

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced)

	ok, err = s.MarkSynced(ctx, types.KindTask, task.ID, edited.LocalUpdatedAt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPutRemoteInsertsSynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, _, _ := setupWorkspace(t, s)

	remoteAt := time.Now().UTC().Add(time.Hour)
	rec := types.Record{
		Kind:      types.KindHabit,
		ID:        "0190a6f0-0000-7000-8000-00000000abcd",
		CreatedAt: remoteAt.Add(-time.Minute),
		UpdatedAt: remoteAt,
		Data:      json.RawMessage(`{"workspace_id":"` + ws.ID + `","title":"Practice Arabic","schedule":{"frequency":"daily","days":[1,2,3,4,5]}}`),
	}
	e, err := rec.Decode()
	require.NoError(t, err)
	require.NoError(t, s.PutRemote(ctx, e, rec.UpdatedAt))

	got, err := s.GetHabit(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
	assert.True(t, got.UpdatedAt.Equal(remoteAt))
	assert.True(t, got.LocalUpdatedAt.Equal(remoteAt))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got.Schedule.Days)

	assert.True(t, s.Now().After(remoteAt), "clock moves past observed remote time")

	logRec := types.Record{
		Kind:      types.KindHabitLog,
		ID:        "0190a6f0-0000-7000-8000-00000000abce",
		CreatedAt: remoteAt,
		UpdatedAt: remoteAt,
		Data:      json.RawMessage(`{"habit_id":"` + rec.ID + `","date":"2026-03-10","value":1}`),
	}
	le, err := logRec.Decode()
	require.NoError(t, err)
	require.NoError(t, s.PutRemote(ctx, le, time.Now()))
	got, err = s.GetHabit(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak, "pulled logs recompute the streak")
}

func TestPutRemoteTombstoneHidesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, _, _ := setupWorkspace(t, s)
	tag, err := s.CreateTag(ctx, ws.ID, "uni", "")
	require.NoError(t, err)

	del := s.Now()
	tag.DeletedAt = &del
	tag.UpdatedAt = del
	require.NoError(t, s.PutRemote(ctx, tag, s.Now()))

	_, err = s.GetTag(ctx, tag.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	e, err := s.Lookup(ctx, types.KindTag, tag.ID)
	require.NoError(t, err)
	assert.True(t, e.Meta().IsSynced)
}

func TestWatermarkNeverMovesBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	wm, err := s.Watermark(ctx)
	require.NoError(t, err)
	assert.True(t, wm.IsZero())

	t1 := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.AdvanceWatermark(ctx, t1))
	require.NoError(t, s.AdvanceWatermark(ctx, t1.Add(-time.Hour)))
	wm, err = s.Watermark(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(t1))

	require.NoError(t, s.AdvanceWatermark(ctx, t1.Add(time.Nanosecond)))
	wm, err = s.Watermark(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(t1.Add(time.Nanosecond)))
}

func TestPutRemoteListTombstoneMovesTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, inbox, sprint := setupWorkspace(t, s)
	task, err := s.CreateTask(ctx, &types.Task{ListID: sprint.ID, Title: "in sprint"})
	require.NoError(t, err)

	del := s.Now()
	sprint.DeletedAt = &del
	sprint.UpdatedAt = del
	require.NoError(t, s.PutRemote(ctx, sprint, s.Now()))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, got.ListID)
	assert.False(t, got.IsSynced)
	assert.True(t, got.LocalUpdatedAt.After(del))
}

func TestPutRemoteTaskForDeletedListMovesToDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, inbox, sprint := setupWorkspace(t, s)
	ok, err := s.DeleteList(ctx, sprint.ID)
	require.NoError(t, err)
	require.True(t, ok)

	at := s.Now()
	task := &types.Task{ListID: sprint.ID, Title: "late", Priority: 4, Status: types.StatusTodo}
	task.ID = "0190a6f0-0000-7000-8000-00000000beef"
	task.CreatedAt, task.UpdatedAt = at, at
	require.NoError(t, s.PutRemote(ctx, task, at))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, got.ListID)
	assert.False(t, got.IsSynced, "the move is pushed as a local change")
}
