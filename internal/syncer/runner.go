package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// Runner defaults.
const (
	DefaultSchedule = "@every 5m"
	DefaultDebounce = 2 * time.Second
)

// Runner runs sync cycles in the background: on a cron schedule, shortly
// after local changes, and when another process writes to the database.
// Cycles never overlap; a trigger arriving during a cycle is coalesced
// into one follow-up cycle.
type Runner struct {
	engine   *Engine
	schedule string
	debounce time.Duration
	watchDir string
	dbFile   string
	logger   *slog.Logger

	trigger chan struct{}
	cycleMu sync.Mutex

	dirtyMu   sync.Mutex
	lastDirty int

	// cycled, when set, receives the result of every cycle.
	cycled func(Report, error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSchedule sets the cron spec for periodic cycles. An empty spec
// disables the schedule.
func WithSchedule(spec string) RunnerOption {
	return func(r *Runner) { r.schedule = spec }
}

// WithDebounce sets how long the runner waits after a trigger before
// starting a cycle.
func WithDebounce(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithWatch makes the runner watch dir for writes to the database file
// named dbFile by other processes.
func WithWatch(dir, dbFile string) RunnerOption {
	return func(r *Runner) { r.watchDir, r.dbFile = dir, dbFile }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// OnCycle registers fn to receive every cycle's report.
func OnCycle(fn func(Report, error)) RunnerOption {
	return func(r *Runner) { r.cycled = fn }
}

// NewRunner returns a Runner for engine.
func NewRunner(engine *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:    engine,
		schedule:  DefaultSchedule,
		debounce:  DefaultDebounce,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		trigger:   make(chan struct{}, 1),
		lastDirty: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger asks for a cycle soon. It never blocks.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Notify is a store change hook that triggers a cycle.
func (r *Runner) Notify(types.Change) { r.Trigger() }

// Run blocks until ctx is done or a component fails. It returns nil on
// cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if !r.engine.Enabled() {
		return fmt.Errorf("sync runner: remote not configured")
	}
	g, ctx := errgroup.WithContext(ctx)

	if r.schedule != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(r.schedule, func() { r.cycle(ctx) }); err != nil {
			return fmt.Errorf("parsing sync schedule %q: %w", r.schedule, err)
		}
		c.Start()
		g.Go(func() error {
			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	g.Go(func() error { return r.debounceLoop(ctx) })

	if r.watchDir != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating file watcher: %w", err)
		}
		if err := w.Add(r.watchDir); err != nil {
			w.Close()
			return fmt.Errorf("watching %s: %w", r.watchDir, err)
		}
		g.Go(func() error {
			defer w.Close()
			return r.watchLoop(ctx, w)
		})
	}

	r.logger.Info("sync runner started", "schedule", r.schedule, "debounce", r.debounce, "watch", r.watchDir)
	err := g.Wait()
	r.logger.Info("sync runner stopped")
	return err
}

func (r *Runner) debounceLoop(ctx context.Context) error {
	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.trigger:
			timer.Reset(r.debounce)
		case <-timer.C:
			r.cycle(ctx)
		}
	}
}

// watchLoop triggers a cycle when the database changes on disk and the
// number of dirty rows differs from what the last cycle left behind. The
// runner's own writes leave that number unchanged, so they do not retrigger.
func (r *Runner) watchLoop(ctx context.Context, w *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !r.isDBEvent(ev) {
				continue
			}
			n, err := r.engine.store.DirtyCount(ctx)
			if err != nil {
				r.logger.Debug("counting dirty rows", "error", err)
				continue
			}
			r.dirtyMu.Lock()
			changed := n > 0 && n != r.lastDirty
			r.dirtyMu.Unlock()
			if changed {
				r.logger.Debug("database changed on disk", "path", ev.Name, "dirty", n)
				r.Trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (r *Runner) isDBEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(ev.Name)
	return r.dbFile == "" || strings.HasPrefix(name, r.dbFile)
}

// cycle runs one engine cycle unless one is already running.
func (r *Runner) cycle(ctx context.Context) {
	if !r.cycleMu.TryLock() {
		r.Trigger()
		return
	}
	defer r.cycleMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	rep, err := r.engine.Cycle(ctx)
	if err != nil && ctx.Err() == nil {
		r.logger.Warn("sync cycle failed", "error", err)
	}
	if n, derr := r.engine.store.DirtyCount(ctx); derr == nil {
		r.dirtyMu.Lock()
		r.lastDirty = n
		r.dirtyMu.Unlock()
	}
	if r.cycled != nil {
		r.cycled(rep, err)
	}
}
