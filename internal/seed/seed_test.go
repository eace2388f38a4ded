package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

var seedNow = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), types.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()
	l, err := NewLoader(append([]Option{WithClock(func() time.Time { return seedNow })}, opts...)...)
	require.NoError(t, err)
	return l
}

func TestDefaultDocument(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "My Workspace", doc.Workspace.Name)
	assert.Len(t, doc.Tags, 3)
	assert.Len(t, doc.Lists, 3)
	assert.Len(t, doc.Tasks, 11)
	assert.Len(t, doc.Habits, 3)
	assert.Len(t, doc.Focus, 4)
	require.NotNil(t, doc.Tasks[9].End)
	assert.Equal(t, -48*time.Hour, *doc.Tasks[9].End)
	assert.Equal(t, 25*time.Minute, doc.Focus[0].Duration)
}

func TestRunSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seeded, err := newLoader(t).Run(ctx, s)
	require.NoError(t, err)
	assert.True(t, seeded)

	ws, err := s.DefaultWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, "local-user", ws.OwnerID)

	tags, err := s.ListTags(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	lists, err := s.ListLists(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	def, err := s.DefaultList(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", def.Name)

	tasks, err := s.ListTasks(ctx, types.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 11)
	done, err := s.ListTasks(ctx, types.TaskFilter{Status: types.StatusDone})
	require.NoError(t, err)
	require.Len(t, done, 2)
	for _, task := range done {
		assert.NotNil(t, task.CompletedAt, task.Title)
	}

	work, err := s.TagByName(ctx, ws.ID, "work")
	require.NoError(t, err)
	tagged, err := s.ListTasks(ctx, types.TaskFilter{TagID: work.ID})
	require.NoError(t, err)
	assert.Len(t, tagged, 4)

	habits, err := s.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 3)
	streaks := map[string]int{}
	for _, h := range habits {
		streaks[h.Title] = h.Streak
	}
	assert.Equal(t, map[string]int{"Read 20 minutes": 5, "Workout": 12, "Practice Arabic": 8}, streaks)

	stats, err := s.FocusStats(ctx, seedNow)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSessions)
	assert.Equal(t, 2, stats.WorkSessions)
	assert.Equal(t, 3000, stats.TotalWorkSec)
	assert.Equal(t, 1200, stats.TotalBreakSec)
}

func TestRunSeedsAsLocalChanges(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := newLoader(t).Run(ctx, s)
	require.NoError(t, err)

	// 1 workspace, 3 tags, 3 lists, 11 tasks, 3 habits, 25 logs, 4 sessions.
	n, err := s.DirtyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	l := newLoader(t)

	seeded, err := l.Run(ctx, s)
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = l.Run(ctx, s)
	require.NoError(t, err)
	assert.False(t, seeded)

	n, err := s.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestRunSkipsStoreWithTasks(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	ws, err := s.CreateWorkspace(ctx, "Mine", "me")
	require.NoError(t, err)
	_, err = s.CreateList(ctx, &types.List{WorkspaceID: ws.ID, Name: "Inbox"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, &types.Task{Title: "only task"})
	require.NoError(t, err)

	seeded, err := newLoader(t).Run(ctx, s)
	require.NoError(t, err)
	assert.False(t, seeded)

	ws2, err := s.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, ws2, 1)
}

func TestRunRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	doc, err := Parse([]byte(`
workspace: { name: W, owner: o }
lists:
  - { name: Inbox }
tasks:
  - { title: ok, list: Inbox }
  - { title: bad, list: Missing }
`))
	require.NoError(t, err)

	_, err = newLoader(t, WithDocument(doc)).Run(ctx, s)
	require.Error(t, err)

	ws, err := s.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, ws)
	n, err := s.CountTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseRejectsMissingWorkspace(t *testing.T) {
	_, err := Parse([]byte("tags: []\n"))
	assert.ErrorIs(t, err, types.ErrInvalidName)
}
