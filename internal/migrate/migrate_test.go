package migrate

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// openTestDB opens a fresh file-backed database in a temp directory.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func ledgerNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT filename FROM migrations ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestApplyAllOrderAndIdempotence(t *testing.T) {
	db := openTestDB(t)
	src := fstest.MapFS{
		"0002_add_col.sql": {Data: []byte("ALTER TABLE a ADD COLUMN note TEXT;")},
		"0001_init.sql":    {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);\nCREATE TABLE b (id TEXT);")},
		"README.md":        {Data: []byte("not a migration")},
		"0003_notes.txt":   {Data: []byte("DROP TABLE a;")},
	}
	eng := New(db, FSSource(src, "."))
	ctx := context.Background()

	n, err := eng.ApplyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"0001_init.sql", "0002_add_col.sql"}, ledgerNames(t, db))
	assert.True(t, tableExists(t, db, "a"))

	n, err = eng.ApplyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second run applies nothing")
	assert.Len(t, ledgerNames(t, db), 2)

	pending, err := eng.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApplyAllFailureIsAtomic(t *testing.T) {
	db := openTestDB(t)
	src := fstest.MapFS{
		"0001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"0002_broken.sql": {Data: []byte("CREATE TABLE half (id TEXT);\nINSERT INTO missing VALUES (1);")},
		"0003_later.sql":  {Data: []byte("CREATE TABLE later (id TEXT);")},
	}
	eng := New(db, FSSource(src, "."))

	n, err := eng.ApplyAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "0002_broken.sql", merr.Script)
	assert.Equal(t, 2, merr.Statement)

	assert.Equal(t, []string{"0001_ok.sql"}, ledgerNames(t, db))
	assert.False(t, tableExists(t, db, "half"), "partial script must roll back")
	assert.False(t, tableExists(t, db, "later"), "engine stops at the failing script")

	status, err := eng.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, 3)
	assert.True(t, status[0].Applied)
	assert.False(t, status[0].ExecutedAt.IsZero())
	assert.False(t, status[1].Applied)
	assert.False(t, status[2].Applied)
}

func TestApplyAllRecordsCommentOnlyScript(t *testing.T) {
	db := openTestDB(t)
	src := fstest.MapFS{
		"0001_placeholder.sql": {Data: []byte("-- reserved\n/* nothing yet */\n")},
		"0002_empty.sql":       {Data: []byte("")},
	}
	n, err := New(db, FSSource(src, ".")).ApplyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"0001_placeholder.sql", "0002_empty.sql"}, ledgerNames(t, db))
}

func TestApplyAllMissingDirectory(t *testing.T) {
	db := openTestDB(t)
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := New(db, DirSource(missing)).ApplyAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.False(t, tableExists(t, db, LedgerTable), "nothing is created when the source is missing")
}

func TestApplyAllFromDirectory(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_init.sql"), []byte("CREATE TABLE x (id TEXT);"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0002_dir.sql"), 0o755))

	n, err := New(db, DirSource(dir)).ApplyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "directories are not scripts")
}

func TestApplyAllHonoursCancellation(t *testing.T) {
	db := openTestDB(t)
	src := fstest.MapFS{"0001_init.sql": {Data: []byte("CREATE TABLE x (id TEXT);")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := New(db, FSSource(src, ".")).ApplyAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
}

func TestStatusRejectsMalformedLedgerTime(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	eng := New(db, FSSource(fstest.MapFS{"0001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}, "."))
	_, err := eng.ApplyAll(ctx)
	require.NoError(t, err)

	_, err = db.Exec("UPDATE migrations SET executed_at = 'yesterday' WHERE filename = '0001_init.sql'")
	require.NoError(t, err)

	_, err = eng.Status(ctx)
	assert.ErrorContains(t, err, "parsing executed_at of 0001_init.sql")
	_, err = eng.ApplyAll(ctx)
	assert.Error(t, err)
}
