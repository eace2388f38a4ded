package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// Status values reported by Engine.Status.
const (
	StatusConfigured = "configured"
	StatusDisabled   = "disabled"
)

// DefaultPageSize is the number of records requested per pull page.
const DefaultPageSize = 200

// Remote is the authority the engine exchanges records with.
type Remote interface {
	// Push offers one record. The Ack says whether the remote took it and,
	// when it did not, carries the version the remote holds.
	Push(ctx context.Context, rec types.Record) (types.Ack, error)
	// Changes returns records the remote accepted strictly after since, in
	// Record.Stamp order, at most limit per page.
	Changes(ctx context.Context, since time.Time, limit int) (types.ChangePage, error)
}

// Engine runs push and pull against one store and one remote. A nil remote
// disables sync: every operation is a no-op.
type Engine struct {
	store    *store.Store
	remote   Remote
	logger   *slog.Logger
	pageSize int
	now      func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPageSize sets the pull page size.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithClock sets the clock used for last-push and last-pull times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine for s. Pass a nil remote when sync is not configured.
func New(s *store.Store, r Remote, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		remote:   r,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether a remote is configured.
func (e *Engine) Enabled() bool { return e.remote != nil }

// Status returns StatusConfigured or StatusDisabled.
func (e *Engine) Status() string {
	if e.Enabled() {
		return StatusConfigured
	}
	return StatusDisabled
}

// Info is a snapshot of the local sync state.
type Info struct {
	Status    string    `json:"status"`
	Dirty     int       `json:"dirty"`
	Watermark time.Time `json:"watermark"`
	LastPush  time.Time `json:"last_push_at"`
	LastPull  time.Time `json:"last_pull_at"`
}

// Info reads the current sync state from the store.
func (e *Engine) Info(ctx context.Context) (Info, error) {
	info := Info{Status: e.Status()}
	var err error
	if info.Dirty, err = e.store.DirtyCount(ctx); err != nil {
		return info, err
	}
	if info.Watermark, err = e.store.Watermark(ctx); err != nil {
		return info, err
	}
	if info.LastPush, err = e.store.SyncTime(ctx, store.StateLastPush); err != nil {
		return info, err
	}
	if info.LastPull, err = e.store.SyncTime(ctx, store.StateLastPull); err != nil {
		return info, err
	}
	return info, nil
}

// PushReport counts push outcomes.
type PushReport struct {
	Attempted int `json:"attempted"`
	Pushed    int `json:"pushed"`
	// Stale counts acknowledged rows edited again during the push; they
	// stay dirty.
	Stale int `json:"stale"`
	// Rejected counts rows the remote refused because it holds a newer
	// version.
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// PullReport counts pull outcomes.
type PullReport struct {
	Received  int       `json:"received"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	KeptLocal int       `json:"kept_local"`
	Failed    int       `json:"failed"`
	Pages     int       `json:"pages"`
	Watermark time.Time `json:"watermark"`
}

// Report is the outcome of a full cycle.
type Report struct {
	Pull PullReport `json:"pull"`
	Push PushReport `json:"push"`
}

// Cycle pulls then pushes. Pull failures do not prevent the push.
func (e *Engine) Cycle(ctx context.Context) (Report, error) {
	var rep Report
	if !e.Enabled() {
		return rep, nil
	}
	var err error
	rep.Pull, err = e.Pull(ctx)
	if err != nil {
		if IsAuth(err) || ctx.Err() != nil {
			return rep, err
		}
		e.logger.Warn("pull failed", "error", err)
	}
	var perr error
	rep.Push, perr = e.Push(ctx)
	return rep, errors.Join(err, perr)
}

// Push sends every dirty entity to the remote, oldest local change first.
// Each entity is independent: a failure is counted and logged and the rest
// continue. Rejected credentials abort the push.
func (e *Engine) Push(ctx context.Context) (PushReport, error) {
	var rep PushReport
	if !e.Enabled() {
		return rep, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	dirty, err := e.store.Dirty(ctx)
	if err != nil {
		return rep, fmt.Errorf("listing dirty entities: %w", err)
	}
	for _, ent := range dirty {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Attempted++
		m := ent.Meta()
		snapshot := m.LocalUpdatedAt

		rec, err := types.RecordOf(ent)
		if err != nil {
			rep.Failed++
			e.logger.Error("encoding entity", "kind", ent.Kind(), "id", m.ID, "error", err)
			continue
		}
		ack, err := e.remote.Push(ctx, rec)
		if err != nil {
			err = wrapTransport("push", ent.Kind(), m.ID, err)
			rep.Failed++
			if IsAuth(err) || ctx.Err() != nil {
				return rep, err
			}
			e.logger.Warn("push failed", "kind", ent.Kind(), "id", m.ID, "error", err)
			continue
		}

		if !ack.Applied {
			rep.Rejected++
			e.logger.Debug("push rejected", "kind", ent.Kind(), "id", m.ID, "remote_updated_at", ack.UpdatedAt)
			if ack.Current != nil {
				if _, err := e.apply(ctx, *ack.Current); err != nil {
					e.logger.Warn("applying remote version", "kind", ent.Kind(), "id", m.ID, "error", err)
				}
			}
			continue
		}
		ok, err := e.store.MarkSynced(ctx, ent.Kind(), m.ID, snapshot)
		switch {
		case err != nil:
			rep.Failed++
			e.logger.Error("marking synced", "kind", ent.Kind(), "id", m.ID, "error", err)
		case ok:
			rep.Pushed++
		default:
			rep.Stale++
			e.logger.Debug("entity changed during push", "kind", ent.Kind(), "id", m.ID)
		}
	}

	if err := e.store.SetSyncTime(ctx, store.StateLastPush, e.now()); err != nil {
		return rep, err
	}
	if rep.Attempted > 0 {
		e.logger.Info("push complete",
			"pushed", rep.Pushed, "rejected", rep.Rejected, "stale", rep.Stale, "failed", rep.Failed)
	}
	return rep, nil
}

// Pull fetches remote changes after the watermark and applies them. The
// watermark is a position in the remote's change feed (Record.Stamp), not an
// entity timestamp, so edits other devices made offline and pushed late are
// still received. Within a page records are applied parents first. The
// stored watermark advances after every page to the greatest stamp below the
// earliest record not yet applied; records that failed are retried after
// each later page in case a parent arrives there.
func (e *Engine) Pull(ctx context.Context) (PullReport, error) {
	var rep PullReport
	if !e.Enabled() {
		return rep, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	wm, err := e.store.Watermark(ctx)
	if err != nil {
		return rep, err
	}
	rep.Watermark = wm

	pt := &pullTracker{}
	cursor := wm
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		page, err := e.remote.Changes(ctx, cursor, e.pageSize)
		if err != nil {
			return rep, wrapTransport("pull", "", "", err)
		}
		rep.Pages++
		rep.Received += len(page.Records)

		recs := orderForApply(page.Records)
		for i, rec := range recs {
			if ctx.Err() != nil {
				pt.pending = append(pt.pending, recs[i:]...)
				break
			}
			if st := rec.Stamp(); st.After(cursor) {
				cursor = st
			}
			e.applyCounted(ctx, rec, &rep, pt)
		}
		// Parents may have arrived on this page.
		e.retryFailed(ctx, &rep, pt)

		if next, ok := pt.watermark(wm); ok {
			if err := e.store.AdvanceWatermark(ctx, next); err != nil {
				return rep, err
			}
			wm = next
			rep.Watermark = next
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if !page.HasMore || len(page.Records) == 0 {
			break
		}
	}

	rep.Failed = len(pt.failed)
	for _, rec := range pt.failed {
		e.logger.Warn("pull record not applied", "kind", rec.Kind, "id", rec.ID, "updated_at", rec.UpdatedAt)
	}
	if err := e.store.SetSyncTime(ctx, store.StateLastPull, e.now()); err != nil {
		return rep, err
	}
	if rep.Received > 0 {
		e.logger.Info("pull complete",
			"received", rep.Received, "inserted", rep.Inserted, "updated", rep.Updated,
			"kept_local", rep.KeptLocal, "failed", rep.Failed, "watermark", rep.Watermark)
	}
	return rep, nil
}

func (e *Engine) applyCounted(ctx context.Context, rec types.Record, rep *PullReport, pt *pullTracker) {
	out, err := e.apply(ctx, rec)
	if err != nil {
		e.logger.Debug("applying remote record", "kind", rec.Kind, "id", rec.ID, "error", err)
		pt.failed = append(pt.failed, rec)
		return
	}
	pt.applied = append(pt.applied, rec.Stamp())
	switch out {
	case outcomeInserted:
		rep.Inserted++
	case outcomeUpdated:
		rep.Updated++
	case outcomeUnchanged:
		rep.Unchanged++
	case outcomeKeptLocal:
		rep.KeptLocal++
	}
}

func (e *Engine) retryFailed(ctx context.Context, rep *PullReport, pt *pullTracker) {
	if len(pt.failed) == 0 || ctx.Err() != nil {
		return
	}
	retry := orderForApply(pt.failed)
	pt.failed = nil
	for _, rec := range retry {
		e.applyCounted(ctx, rec, rep, pt)
	}
}

// pullTracker remembers which records of a pull were applied.
type pullTracker struct {
	applied []time.Time
	failed  []types.Record
	pending []types.Record // not attempted because of cancellation
}

// watermark returns the new watermark: the greatest applied stamp below the
// earliest record not applied, or the greatest applied one when everything
// was applied. ok is false when it would not move past current.
func (pt *pullTracker) watermark(current time.Time) (time.Time, bool) {
	var bound time.Time
	for _, set := range [][]types.Record{pt.failed, pt.pending} {
		for _, rec := range set {
			if st := rec.Stamp(); bound.IsZero() || st.Before(bound) {
				bound = st
			}
		}
	}
	next := current
	for _, t := range pt.applied {
		if !bound.IsZero() && !t.Before(bound) {
			continue
		}
		if t.After(next) {
			next = t
		}
	}
	return next, next.After(current)
}

// orderForApply sorts records parents first, then by feed position.
func orderForApply(recs []types.Record) []types.Record {
	out := append([]types.Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Kind.Rank(), out[j].Kind.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Stamp().Before(out[j].Stamp())
	})
	return out
}

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeKeptLocal
)

// apply writes one remote record in its own transaction.
func (e *Engine) apply(ctx context.Context, rec types.Record) (outcome, error) {
	ent, err := rec.Decode()
	if err != nil {
		return 0, err
	}
	if rec.UpdatedAt.IsZero() {
		return 0, fmt.Errorf("%s %s: missing updated_at: %w", rec.Kind, rec.ID, types.ErrInvalidData)
	}

	var out outcome
	err = e.store.InTx(ctx, func(tx *store.Store) error {
		local, err := tx.Lookup(ctx, rec.Kind, rec.ID)
		if errors.Is(err, types.ErrNotFound) {
			out = outcomeInserted
			return tx.PutRemote(ctx, ent, rec.UpdatedAt)
		}
		if err != nil {
			return err
		}
		lm := local.Meta()

		if lm.IsSynced {
			// A clean row takes whatever version the remote holds; only the
			// echo of the version already stored is skipped.
			if rec.UpdatedAt.Equal(lm.UpdatedAt) && (rec.DeletedAt != nil) == lm.Deleted() {
				out = outcomeUnchanged
				return nil
			}
			out = outcomeUpdated
			return tx.PutRemote(ctx, ent, tx.Now())
		}

		winner, err := Resolve(
			Version{At: lm.LocalUpdatedAt, Deleted: lm.Deleted()},
			Version{At: rec.UpdatedAt, Deleted: rec.DeletedAt != nil},
		)
		if err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) {
				ce.Kind, ce.ID = rec.Kind, rec.ID
			}
			e.logger.Warn("conflict kept local version", "error", err)
			out = outcomeKeptLocal
			return nil
		}
		if winner == KeepLocal {
			out = outcomeKeptLocal
			return nil
		}
		e.logger.Debug("conflict resolved for remote", "kind", rec.Kind, "id", rec.ID,
			"local", lm.LocalUpdatedAt, "remote", rec.UpdatedAt)
		out = outcomeUpdated
		return tx.PutRemote(ctx, ent, tx.Now())
	})
	if err != nil {
		return 0, fmt.Errorf("applying %s %s: %w", rec.Kind, rec.ID, err)
	}
	return out, nil
}
