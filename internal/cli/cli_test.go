package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cling/internal/remote"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// testEnv runs cling commands in-process against temporary directories.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

type result struct {
	Stdout string
	Stderr string
	Err    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("CLING_REMOTE_URL", "")
	t.Setenv("CLING_REMOTE_KEY", "")
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.NoError(e.t, r.Err, "cling %s\nstderr: %s", strings.Join(args, " "), r.Stderr)
	return r
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

type taskOut struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Status      string     `json:"status"`
	DurationMin *int       `json:"duration_min"`
	StartAt     *time.Time `json:"start_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Tags        []string   `json:"tags"`
}

type habitOut struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Streak int    `json:"streak"`
}

type listOut struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func TestInitCreatesStore(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("init", "--json")

	res := parseJSON[initResult](t, r.Stdout)
	assert.FileExists(t, res.Database)
	assert.Equal(t, "My Workspace", res.Workspace)
	assert.Equal(t, "disabled", res.Sync)

	// Idempotent.
	env.mustRun("init")
}

func TestTaskAddDefaults(t *testing.T) {
	env := newTestEnv(t)
	lists := parseJSON[[]listOut](t, env.mustRun("lists", "ls", "--json").Stdout)
	require.NotEmpty(t, lists)
	assert.Equal(t, "Inbox", lists[0].Name)
	assert.True(t, lists[0].IsDefault)

	task := parseJSON[taskOut](t, env.mustRun("task", "add", "Water", "the", "plants", "--json").Stdout)
	assert.Equal(t, "Water the plants", task.Title)
	assert.Equal(t, types.DefaultPriority, task.Priority)
	assert.Equal(t, types.StatusTodo, task.Status)
	assert.Equal(t, lists[0].ID, task.ListID)
	assert.Empty(t, task.Tags)
}

func TestTaskAddQuick(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("task", "add", "--quick", "--json", "Review proposal #work #Urgent P1 30min - second draft")

	task := parseJSON[taskOut](t, r.Stdout)
	assert.Equal(t, "Review proposal", task.Title)
	assert.Equal(t, "second draft", task.Description)
	assert.Equal(t, 1, task.Priority)
	require.NotNil(t, task.DurationMin)
	assert.Equal(t, 30, *task.DurationMin)
	assert.ElementsMatch(t, []string{"work", "urgent"}, task.Tags)

	shown := parseJSON[taskOut](t, env.mustRun("task", "show", task.ID, "--json").Stdout)
	assert.Equal(t, task.ID, shown.ID)
	assert.ElementsMatch(t, task.Tags, shown.Tags)
}

func TestTaskAddToNamedList(t *testing.T) {
	env := newTestEnv(t)
	task := parseJSON[taskOut](t, env.mustRun("task", "add", "Plan retro", "--list", "sprint", "--priority", "2", "--json").Stdout)

	lists := parseJSON[[]listOut](t, env.mustRun("lists", "ls", "--json").Stdout)
	var sprint string
	for _, l := range lists {
		if l.Name == "Sprint" {
			sprint = l.ID
		}
	}
	require.NotEmpty(t, sprint)
	assert.Equal(t, sprint, task.ListID)
	assert.Equal(t, 2, task.Priority)

	r := env.run("task", "add", "Orphan", "--list", "nowhere")
	assert.ErrorIs(t, r.Err, types.ErrNotFound)
}

func TestTaskListFilters(t *testing.T) {
	env := newTestEnv(t)
	all := parseJSON[[]taskOut](t, env.mustRun("task", "ls", "--json").Stdout)
	assert.Len(t, all, 11)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Priority, all[i].Priority, "most urgent first")
	}

	work := parseJSON[[]taskOut](t, env.mustRun("task", "ls", "--tag", "work", "--json").Stdout)
	assert.Len(t, work, 4)

	done := parseJSON[[]taskOut](t, env.mustRun("task", "ls", "--status", "done", "--json").Stdout)
	assert.Len(t, done, 2)

	limited := parseJSON[[]taskOut](t, env.mustRun("task", "ls", "-n", "3", "--json").Stdout)
	assert.Len(t, limited, 3)
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task := parseJSON[taskOut](t, env.mustRun("task", "add", "Draft memo", "--json").Stdout)

	updated := parseJSON[taskOut](t, env.mustRun("task", "update", task.ID,
		"--title", "Draft memo v2", "--status", "in-progress", "--tag", "home", "--json").Stdout)
	assert.Equal(t, "Draft memo v2", updated.Title)
	assert.Equal(t, types.StatusInProgress, updated.Status)
	assert.Equal(t, []string{"home"}, updated.Tags)

	done := parseJSON[taskOut](t, env.mustRun("task", "done", task.ID, "--json").Stdout)
	assert.Equal(t, types.StatusDone, done.Status)
	assert.NotNil(t, done.CompletedAt)

	env.mustRun("task", "rm", task.ID)
	r := env.run("task", "show", task.ID)
	assert.ErrorIs(t, r.Err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(r.Err))

	r = env.run("task", "rm", task.ID)
	assert.ErrorIs(t, r.Err, types.ErrNotFound)
}

func TestTaskUpdateRejectsBadPriority(t *testing.T) {
	env := newTestEnv(t)
	task := parseJSON[taskOut](t, env.mustRun("task", "add", "Tidy desk", "--json").Stdout)
	r := env.run("task", "update", task.ID, "--priority", "9")
	assert.ErrorIs(t, r.Err, types.ErrInvalidPriority)
}

func TestTaskCalendar(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().Add(time.Hour).Format("2006-01-02 15:04")
	env.mustRun("task", "add", "Dentist", "--start", start)

	events := parseJSON[[]types.CalendarEvent](t, env.mustRun("task", "cal", "--json").Stdout)
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	assert.Contains(t, titles, "Dentist")
}

func TestListsAddAndRemove(t *testing.T) {
	env := newTestEnv(t)
	l := parseJSON[listOut](t, env.mustRun("lists", "add", "Errands", "--color", "#f59e0b", "--json").Stdout)
	assert.Equal(t, "Errands", l.Name)
	assert.False(t, l.IsDefault)

	env.mustRun("lists", "rm", "errands")
	lists := parseJSON[[]listOut](t, env.mustRun("lists", "ls", "--json").Stdout)
	for _, x := range lists {
		assert.NotEqual(t, l.ID, x.ID)
	}

	r := env.run("lists", "rm", "Inbox")
	assert.ErrorIs(t, r.Err, types.ErrDefaultList)
}

func TestHabitCommands(t *testing.T) {
	env := newTestEnv(t)
	h := parseJSON[habitOut](t, env.mustRun("habit", "add", "Stretch", "--json").Stdout)
	assert.Equal(t, "Stretch", h.Title)
	assert.Zero(t, h.Streak)

	today := types.Day(time.Now())
	yesterday := types.Day(time.Now().AddDate(0, 0, -1))
	env.mustRun("habit", "log", h.ID, "--day", yesterday)
	logged := parseJSON[struct {
		Date   string `json:"date"`
		Streak int    `json:"streak"`
	}](t, env.mustRun("habit", "log", h.ID, "--json").Stdout)
	assert.Equal(t, today, logged.Date)
	assert.Equal(t, 2, logged.Streak)

	stats := parseJSON[types.HabitStats](t, env.mustRun("habit", "stats", "--json").Stdout)
	assert.Equal(t, 4, stats.TotalHabits)

	r := env.run("habit", "log", h.ID, "--day", "yesterday")
	assert.ErrorIs(t, r.Err, types.ErrInvalidDate)
}

func TestFocusCommands(t *testing.T) {
	env := newTestEnv(t)
	f := parseJSON[struct {
		ID          string `json:"id"`
		DurationSec int    `json:"duration_sec"`
		IsBreak     bool   `json:"is_break"`
	}](t, env.mustRun("focus", "start", "--break", "--json").Stdout)
	assert.Equal(t, 5*60, f.DurationSec)
	assert.True(t, f.IsBreak)

	env.mustRun("focus", "stop", f.ID)
	r := env.run("focus", "stop", f.ID)
	assert.ErrorIs(t, r.Err, types.ErrSessionEnded)

	stats := parseJSON[types.FocusStats](t, env.mustRun("focus", "stats", "--json").Stdout)
	assert.Equal(t, 5, stats.TotalSessions)
}

func TestMigrateStatus(t *testing.T) {
	env := newTestEnv(t)
	status := parseJSON[[]struct {
		Filename string `json:"filename"`
		Applied  bool   `json:"applied"`
	}](t, env.mustRun("migrate", "--status", "--json").Stdout)
	require.Len(t, status, 3)
	for _, s := range status {
		assert.True(t, s.Applied, s.Filename)
	}
	assert.Contains(t, env.mustRun("migrate").Stdout, "schema up to date")
}

func TestSyncDisabled(t *testing.T) {
	env := newTestEnv(t)
	info := parseJSON[struct {
		Status string `json:"status"`
		Dirty  int    `json:"dirty"`
	}](t, env.mustRun("sync", "status", "--json").Stdout)
	assert.Equal(t, "disabled", info.Status)
	assert.Positive(t, info.Dirty)

	for _, sub := range []string{"push", "pull", "run", "daemon"} {
		r := env.run("sync", sub)
		assert.True(t, errors.Is(r.Err, errSyncDisabled), sub)
	}
}

func TestSyncRunAgainstRemote(t *testing.T) {
	env := newTestEnv(t)
	backend := remote.NewMemory()
	srv := httptest.NewServer(remote.NewHandler(backend, "test-key", nil))
	defer srv.Close()
	t.Setenv("CLING_REMOTE_URL", srv.URL)
	t.Setenv("CLING_REMOTE_KEY", "test-key")

	before := parseJSON[struct {
		Dirty int `json:"dirty"`
	}](t, env.mustRun("sync", "status", "--json").Stdout)
	require.Positive(t, before.Dirty)

	rep := parseJSON[struct {
		Push struct {
			Pushed int `json:"pushed"`
			Failed int `json:"failed"`
		} `json:"push"`
	}](t, env.mustRun("sync", "run", "--json").Stdout)
	assert.Equal(t, before.Dirty, rep.Push.Pushed)
	assert.Zero(t, rep.Push.Failed)
	assert.Equal(t, before.Dirty, backend.Len())

	after := parseJSON[struct {
		Status string `json:"status"`
		Dirty  int    `json:"dirty"`
	}](t, env.mustRun("sync", "status", "--json").Stdout)
	assert.Equal(t, "configured", after.Status)
	assert.Zero(t, after.Dirty)
}

func TestSyncWrongKeyFails(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(remote.NewHandler(remote.NewMemory(), "right", nil))
	defer srv.Close()
	t.Setenv("CLING_REMOTE_URL", srv.URL)
	t.Setenv("CLING_REMOTE_KEY", "wrong")

	r := env.run("sync", "push")
	assert.Error(t, r.Err)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("version")
	assert.Contains(t, r.Stdout, "cling v"+Version)
	assert.Contains(t, r.Stdout, modulePath)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(errors.New("bad input")))
	assert.Equal(t, exitSysError, exitCode(&sysError{errors.New("disk full")}))
}
