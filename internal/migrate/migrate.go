// Package migrate brings a SQLite schema up to date by applying versioned
// SQL scripts in lexical filename order. Each applied script is recorded in
// the migrations ledger in the same transaction that executes it, so a
// script either runs completely and is recorded or leaves no trace.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// ScriptExt is the only file extension treated as a migration script.
const ScriptExt = ".sql"

// ErrSourceMissing is returned when the migration directory does not exist.
var ErrSourceMissing = errors.New("migration directory not found")

// Error reports a failed migration step. Statement is the 1-based index of
// the failing statement within Script, or 0 when the failure is not tied to
// one statement.
type Error struct {
	Script    string
	Statement int
	Err       error
}

func (e *Error) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("migration %s: statement %d: %v", e.Script, e.Statement, e.Err)
	}
	return fmt.Sprintf("migration %s: %v", e.Script, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Source locates migration scripts inside a filesystem.
type Source struct {
	FS   fs.FS  // Filesystem holding the scripts.
	Root string // Directory within FS; "." for the FS root.
	Name string // Human-readable location used in errors and logs.
}

// DirSource returns a Source reading scripts from an on-disk directory.
func DirSource(dir string) Source {
	return Source{FS: os.DirFS(dir), Root: ".", Name: dir}
}

// FSSource returns a Source reading scripts from root inside fsys, such as an
// embedded migrations tree.
func FSSource(fsys fs.FS, root string) Source {
	return Source{FS: fsys, Root: root, Name: root}
}

// ScriptStatus describes one script and whether it has been applied.
type ScriptStatus struct {
	Filename   string    `json:"filename"`
	Applied    bool      `json:"applied"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Engine applies pending scripts from a Source to a database.
type Engine struct {
	db     *sql.DB
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report applied scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for executed_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine for db reading scripts from src.
func New(db *sql.DB, src Source, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		src:    src,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyAll applies every script not yet recorded in the ledger, in lexical
// order, and returns how many were applied. It stops at the first failure;
// scripts applied before the failure stay applied.
func (e *Engine) ApplyAll(ctx context.Context) (int, error) {
	scripts, err := e.scripts()
	if err != nil {
		return 0, err
	}
	if err := ensureLedger(ctx, e.db); err != nil {
		return 0, err
	}
	done, err := appliedScripts(ctx, e.db)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range scripts {
		if _, ok := done[name]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		ran, err := e.apply(ctx, name)
		if err != nil {
			return applied, err
		}
		if ran {
			applied++
			e.logger.Info("migration applied", "script", name)
		}
	}
	return applied, nil
}

// Pending returns the scripts not yet recorded in the ledger.
func (e *Engine) Pending(ctx context.Context) ([]string, error) {
	status, err := e.Status(ctx)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, s := range status {
		if !s.Applied {
			pending = append(pending, s.Filename)
		}
	}
	return pending, nil
}

// Status lists every script in the source with its ledger state.
func (e *Engine) Status(ctx context.Context) ([]ScriptStatus, error) {
	scripts, err := e.scripts()
	if err != nil {
		return nil, err
	}
	if err := ensureLedger(ctx, e.db); err != nil {
		return nil, err
	}
	done, err := appliedScripts(ctx, e.db)
	if err != nil {
		return nil, err
	}
	out := make([]ScriptStatus, 0, len(scripts))
	for _, name := range scripts {
		at, ok := done[name]
		out = append(out, ScriptStatus{Filename: name, Applied: ok, ExecutedAt: at})
	}
	return out, nil
}

// apply runs one script and records it in a single transaction. It reports
// false when another connection recorded the script first.
func (e *Engine) apply(ctx context.Context, name string) (bool, error) {
	body, err := fs.ReadFile(e.src.FS, path.Join(e.src.Root, name))
	if err != nil {
		return false, &Error{Script: name, Err: fmt.Errorf("reading script: %w", err)}
	}
	statements := Split(string(body))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, &Error{Script: name, Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer tx.Rollback()

	recorded, err := isRecorded(ctx, tx, name)
	if err != nil {
		return false, &Error{Script: name, Err: err}
	}
	if recorded {
		return false, nil
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, &Error{Script: name, Statement: i + 1, Err: err}
		}
	}
	if err := record(ctx, tx, name, e.now()); err != nil {
		return false, &Error{Script: name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return false, &Error{Script: name, Err: fmt.Errorf("committing: %w", err)}
	}
	return true, nil
}

// scripts returns the .sql files in the source, sorted lexically.
func (e *Engine) scripts() ([]string, error) {
	root := e.src.Root
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(e.src.FS, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, e.src.Name)
		}
		return nil, fmt.Errorf("listing migrations in %s: %w", e.src.Name, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ScriptExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
