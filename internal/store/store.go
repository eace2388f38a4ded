// Package store implements the local entity store over SQLite. Every write
// goes through the change tracker, which stamps the sync columns and makes
// the row eligible for push. Reads hide tombstoned rows; the sync surface
// (dirty.go, remote.go) sees them.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/cling/internal/migrate"
	"github.com/mesh-intelligence/cling/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// EmbeddedMigrations is the migration source compiled into the binary.
func EmbeddedMigrations() migrate.Source {
	return migrate.FSSource(migrationsFS, "migrations")
}

// pragmas are applied to every connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the local entity store. A Store returned by Open is safe for
// concurrent use; the *Store handed to an InTx callback is bound to that
// transaction and must not outlive it.
type Store struct {
	db     *sql.DB
	q      dbtx
	tx     *sql.Tx
	path   string
	clock  *Clock
	logger *slog.Logger
	hooks  *hookSet

	// pending collects changes made inside a transaction; they are
	// delivered to hooks after commit.
	pending *[]types.Change

	migrations *migrate.Source
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for store and migration messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock behind the change tracker.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = NewClock(now) }
}

// WithChangeHook registers fn to receive every committed local change.
func WithChangeHook(fn func(types.Change)) Option {
	return func(s *Store) { s.hooks.add(fn) }
}

// WithMigrations overrides the migration source.
func WithMigrations(src migrate.Source) Option {
	return func(s *Store) { s.migrations = &src }
}

// Open opens or creates the database described by cfg and applies pending
// migrations before returning. A migration failure is returned as an error
// wrapping *migrate.Error and leaves no open handle.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		path:   filepath.Join(cfg.DataDir, cfg.DBFileName()),
		clock:  NewClock(time.Now),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		hooks:  &hookSet{},
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	// SQLite allows one writer; a single connection serialises all access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db
	s.q = db

	src := EmbeddedMigrations()
	if cfg.MigrationsDir != "" {
		src = migrate.DirSource(cfg.MigrationsDir)
	}
	if s.migrations != nil {
		src = *s.migrations
	}
	s.migrations = &src
	n, err := migrate.New(db, src, migrate.WithLogger(s.logger)).ApplyAll(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", s.path, err)
	}
	if n > 0 {
		s.logger.Info("schema migrated", "path", s.path, "applied", n)
	}
	return s, nil
}

func dsn(path string) string {
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	b.WriteString("?_txlock=immediate")
	for _, p := range pragmas {
		b.WriteString("&_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// MigrationStatus lists the migration scripts with their ledger state.
func (s *Store) MigrationStatus(ctx context.Context) ([]migrate.ScriptStatus, error) {
	if s.migrations == nil {
		return nil, errors.New("store has no migration source")
	}
	return migrate.New(s.db, *s.migrations, migrate.WithLogger(s.logger)).Status(ctx)
}

// Close closes the database. It is a no-op on a transaction-bound Store.
func (s *Store) Close() error {
	if s.tx != nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB returns the underlying handle. Prefer Store methods.
func (s *Store) DB() *sql.DB { return s.db }

// Now returns the next change-tracker timestamp.
func (s *Store) Now() time.Time { return s.clock.Now() }

// OnChange registers fn to receive every committed local change.
func (s *Store) OnChange(fn func(types.Change)) { s.hooks.add(fn) }

// InTx runs fn inside one transaction. Calls nested inside fn join the
// outer transaction. Changes made by fn reach hooks only after commit.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var changes []types.Change
	bound := *s
	bound.q = tx
	bound.tx = tx
	bound.pending = &changes

	if err := fn(&bound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.hooks.emit(changes)
	return nil
}

// hookSet fans committed changes out to registered hooks.
type hookSet struct {
	mu  sync.RWMutex
	fns []func(types.Change)
}

func (h *hookSet) add(fn func(types.Change)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *hookSet) emit(changes []types.Change) {
	if len(changes) == 0 {
		return
	}
	h.mu.RLock()
	fns := h.fns
	h.mu.RUnlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}
