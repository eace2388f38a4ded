// Package app wires the configuration, local store, seed data and sync
// engine into one handle for the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mesh-intelligence/cling/internal/config"
	"github.com/mesh-intelligence/cling/internal/logging"
	"github.com/mesh-intelligence/cling/internal/paths"
	"github.com/mesh-intelligence/cling/internal/remote"
	"github.com/mesh-intelligence/cling/internal/seed"
	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/internal/syncer"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// Options selects directories and overrides for Open.
type Options struct {
	ConfigDir string // --config-dir flag
	DataDir   string // --data-dir flag
	LogOutput io.Writer
	NoSeed    bool
	// Remote replaces the authority built from the environment.
	Remote syncer.Remote
}

// App is an opened local store with its sync engine.
type App struct {
	ConfigDir string
	DataDir   string
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Sync      *syncer.Engine
	Remote    remote.Config

	closers []io.Closer
}

// Open loads configuration, opens and migrates the store, seeds an empty
// database and builds the sync engine. Sync is disabled when no remote is
// configured.
func Open(ctx context.Context, opts Options) (*App, error) {
	configDir, err := paths.ResolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(opts.DataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, logCloser, err := logging.New(out, cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &App{
		ConfigDir: configDir,
		DataDir:   dataDir,
		Config:    cfg,
		Logger:    logger,
		closers:   []io.Closer{logCloser},
	}

	a.Store, err = store.Open(ctx, types.Config{
		DataDir:       dataDir,
		MigrationsDir: cfg.MigrationsDir,
	}, store.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Store)

	if cfg.Seed && !opts.NoSeed {
		loader, err := seed.NewLoader(seed.WithLogger(logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		if _, err := loader.Run(ctx, a.Store); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Remote, err = remote.LoadConfig()
	if err != nil {
		a.Close()
		return nil, err
	}
	backend := opts.Remote
	if backend == nil && a.Remote.Configured() {
		client, err := remote.NewClient(a.Remote, remote.WithClientLogger(logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		backend = client
	}
	a.Sync = syncer.New(a.Store, backend,
		syncer.WithLogger(logger),
		syncer.WithPageSize(cfg.Sync.PageSize),
	)
	return a, nil
}

// NewRunner returns a background runner configured from the sync section
// and subscribed to local store changes.
func (a *App) NewRunner(opts ...syncer.RunnerOption) *syncer.Runner {
	base := []syncer.RunnerOption{
		syncer.WithSchedule(a.Config.Sync.Schedule),
		syncer.WithDebounce(a.Config.Sync.Debounce),
		syncer.WithRunnerLogger(a.Logger),
	}
	if a.Config.Sync.Watch {
		base = append(base, syncer.WithWatch(a.DataDir, types.DefaultDBFile))
	}
	r := syncer.NewRunner(a.Sync, append(base, opts...)...)
	a.Store.OnChange(r.Notify)
	return r
}

// Close closes the store and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
