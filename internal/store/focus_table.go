package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind:    types.KindFocusSession,
		columns: []string{"task_id", "started_at", "ended_at", "duration_sec", "is_break", "noise_type"},
		values: func(e types.Entity) []any {
			f := e.(*types.FocusSession)
			return []any{nullString(f.TaskID), formatTime(f.StartedAt), formatNullTime(f.EndedAt),
				f.DurationSec, f.IsBreak, nullString(f.NoiseType)}
		},
		dest: func(e types.Entity) []any {
			f := e.(*types.FocusSession)
			return []any{nullStringCol{&f.TaskID}, timeCol{&f.StartedAt}, nullTimeCol{&f.EndedAt},
				&f.DurationSec, &f.IsBreak, nullStringCol{&f.NoiseType}}
		},
	})
}

// StartFocus starts a focus session of the planned DurationSec. StartedAt
// defaults to now.
func (s *Store) StartFocus(ctx context.Context, f *types.FocusSession) (*types.FocusSession, error) {
	if f.DurationSec <= 0 {
		return nil, types.ErrInvalidData
	}
	err := s.write(ctx, func(tx *Store) error {
		if f.TaskID != "" {
			if _, err := tx.GetTask(ctx, f.TaskID); err != nil {
				return fmt.Errorf("task %s: %w", f.TaskID, err)
			}
		}
		if err := tx.trackCreate(f); err != nil {
			return err
		}
		if f.StartedAt.IsZero() {
			f.StartedAt = f.CreatedAt
		}
		f.StartedAt = f.StartedAt.UTC()
		f.EndedAt = nil
		return tx.insert(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// StopFocus ends a running session.
func (s *Store) StopFocus(ctx context.Context, id string) (*types.FocusSession, error) {
	e, err := s.modify(ctx, types.KindFocusSession, id, func(e types.Entity) error {
		f := e.(*types.FocusSession)
		if f.EndedAt != nil {
			return types.ErrSessionEnded
		}
		now := s.clock.Now()
		f.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.FocusSession), nil
}

// ListFocusSessions returns live sessions, most recent first. A limit of
// zero or less returns all.
func (s *Store) ListFocusSessions(ctx context.Context, limit int) ([]*types.FocusSession, error) {
	order := "started_at DESC, id"
	if limit > 0 {
		order += fmt.Sprintf(" LIMIT %d", limit)
	}
	return fetchAll[*types.FocusSession](ctx, s, types.KindFocusSession, "", order)
}

// DeleteFocusSession tombstones a session.
func (s *Store) DeleteFocusSession(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindFocusSession, id)
}

// FocusStats summarises live sessions. Today is the UTC day containing now.
func (s *Store) FocusStats(ctx context.Context, now time.Time) (types.FocusStats, error) {
	var st types.FocusStats
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_break = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_break = 0 THEN duration_sec ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_break = 1 THEN duration_sec ELSE 0 END), 0)
		FROM focus_sessions WHERE deleted_at IS NULL`,
	).Scan(&st.TotalSessions, &st.WorkSessions, &st.TotalWorkSec, &st.TotalBreakSec)
	if err != nil {
		return st, fmt.Errorf("focus totals: %w", err)
	}
	if st.WorkSessions > 0 {
		st.AvgWorkSec = float64(st.TotalWorkSec) / float64(st.WorkSessions)
	}

	dayStart := now.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)
	err = s.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_break = 0 THEN duration_sec ELSE 0 END), 0)
		FROM focus_sessions
		WHERE deleted_at IS NULL AND started_at >= ? AND started_at < ?`,
		formatTime(dayStart), formatTime(dayEnd),
	).Scan(&st.TodaySessions, &st.TodayWorkSec)
	if err != nil {
		return st, fmt.Errorf("focus today: %w", err)
	}
	return st, nil
}
