package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind:    types.KindHabit,
		columns: []string{"workspace_id", "title", "description", "schedule_json"},
		values: func(e types.Entity) []any {
			h := e.(*types.Habit)
			return []any{h.WorkspaceID, h.Title, nullString(h.Description), jsonCol{&h.Schedule}}
		},
		dest: func(e types.Entity) []any {
			h := e.(*types.Habit)
			return []any{&h.WorkspaceID, &h.Title, nullStringCol{&h.Description}, jsonCol{&h.Schedule}}
		},
		load: loadStreak,
	})
	register(&table{
		kind:    types.KindHabitLog,
		columns: []string{"habit_id", "date", "value"},
		values: func(e types.Entity) []any {
			l := e.(*types.HabitLog)
			return []any{l.HabitID, l.Date, l.Value}
		},
		dest: func(e types.Entity) []any {
			l := e.(*types.HabitLog)
			return []any{&l.HabitID, &l.Date, &l.Value}
		},
	})
}

// loadStreak reads the derived streak column, which is not part of the
// synced row.
func loadStreak(ctx context.Context, q dbtx, e types.Entity) error {
	h := e.(*types.Habit)
	return q.QueryRowContext(ctx, "SELECT streak FROM habits WHERE id = ?", h.ID).Scan(&h.Streak)
}

// recomputeStreak rewrites the derived streak of a habit from its live
// positive logs. It leaves the sync columns alone.
func (s *Store) recomputeStreak(ctx context.Context, habitID string) (int, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT date FROM habit_logs WHERE habit_id = ? AND deleted_at IS NULL AND value > 0",
		habitID,
	)
	if err != nil {
		return 0, fmt.Errorf("reading habit logs: %w", err)
	}
	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return 0, err
		}
		days = append(days, d)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	streak := Streak(days)
	if _, err := s.q.ExecContext(ctx, "UPDATE habits SET streak = ? WHERE id = ?", streak, habitID); err != nil {
		return 0, fmt.Errorf("updating streak: %w", err)
	}
	return streak, nil
}

// CreateHabit creates a habit in a workspace.
func (s *Store) CreateHabit(ctx context.Context, h *types.Habit) (*types.Habit, error) {
	h.Title = strings.TrimSpace(h.Title)
	if h.Title == "" {
		return nil, types.ErrInvalidTitle
	}
	if h.WorkspaceID == "" {
		return nil, types.ErrInvalidID
	}
	if err := h.Schedule.Validate(); err != nil {
		return nil, err
	}
	h.Streak = 0
	if err := s.create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHabit returns a live habit with its current streak.
func (s *Store) GetHabit(ctx context.Context, id string) (*types.Habit, error) {
	return fetch[*types.Habit](ctx, s, types.KindHabit, id)
}

// ListHabits returns live habits by title.
func (s *Store) ListHabits(ctx context.Context) ([]*types.Habit, error) {
	return fetchAll[*types.Habit](ctx, s, types.KindHabit, "", "title, id")
}

// UpdateHabit applies a partial update to a habit.
func (s *Store) UpdateHabit(ctx context.Context, id string, p types.HabitPatch) (*types.Habit, error) {
	e, err := s.modify(ctx, types.KindHabit, id, func(e types.Entity) error {
		h := e.(*types.Habit)
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return types.ErrInvalidTitle
			}
			h.Title = title
		}
		if p.Description != nil {
			h.Description = *p.Description
		}
		if p.Schedule != nil {
			if err := p.Schedule.Validate(); err != nil {
				return err
			}
			h.Schedule = *p.Schedule
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.Habit), nil
}

// DeleteHabit tombstones a habit.
func (s *Store) DeleteHabit(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindHabit, id)
}

// LogHabit records value for a habit on day, replacing the value of an
// existing log for that day, and recomputes the habit's streak.
func (s *Store) LogHabit(ctx context.Context, habitID, day string, value int) (*types.HabitLog, error) {
	if _, err := types.ParseDay(day); err != nil {
		return nil, err
	}
	var out *types.HabitLog
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetHabit(ctx, habitID); err != nil {
			return fmt.Errorf("habit %s: %w", habitID, err)
		}
		existing, err := tx.habitLogOn(ctx, habitID, day)
		switch {
		case errors.Is(err, types.ErrNotFound):
			out = &types.HabitLog{HabitID: habitID, Date: day, Value: value}
			if err := tx.create(ctx, out); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			existing.Value = value
			tx.trackUpdate(existing)
			if err := tx.update(ctx, existing); err != nil {
				return err
			}
			out = existing
		}
		_, err = tx.recomputeStreak(ctx, habitID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) habitLogOn(ctx context.Context, habitID, day string) (*types.HabitLog, error) {
	logs, err := fetchAll[*types.HabitLog](ctx, s, types.KindHabitLog,
		"deleted_at IS NULL AND habit_id = ? AND date = ?", "updated_at DESC, id LIMIT 1", habitID, day)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, types.ErrNotFound
	}
	return logs[0], nil
}

// ListHabitLogs returns the live logs of a habit, newest day first.
func (s *Store) ListHabitLogs(ctx context.Context, habitID string) ([]*types.HabitLog, error) {
	return fetchAll[*types.HabitLog](ctx, s, types.KindHabitLog,
		"deleted_at IS NULL AND habit_id = ?", "date DESC, id", habitID)
}

// DeleteHabitLog tombstones a log and recomputes the habit's streak.
func (s *Store) DeleteHabitLog(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.write(ctx, func(tx *Store) error {
		l, err := fetch[*types.HabitLog](ctx, tx, types.KindHabitLog, id)
		if errors.Is(err, types.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if removed, err = tx.remove(ctx, types.KindHabitLog, id); err != nil {
			return err
		}
		_, err = tx.recomputeStreak(ctx, l.HabitID)
		return err
	})
	return removed, err
}

// HabitStats summarises habits for day: how many exist, how many carry a
// streak, how many were logged positively, and that share as a percentage.
func (s *Store) HabitStats(ctx context.Context, day string) (types.HabitStats, error) {
	var st types.HabitStats
	if _, err := types.ParseDay(day); err != nil {
		return st, err
	}
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN streak > 0 THEN 1 ELSE 0 END), 0)
		FROM habits WHERE deleted_at IS NULL`,
	).Scan(&st.TotalHabits, &st.ActiveStreaks)
	if err != nil {
		return st, fmt.Errorf("habit totals: %w", err)
	}
	err = s.q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT l.habit_id)
		FROM habit_logs l JOIN habits h ON h.id = l.habit_id
		WHERE l.deleted_at IS NULL AND h.deleted_at IS NULL AND l.date = ? AND l.value > 0`,
		day,
	).Scan(&st.LogsToday)
	if err != nil {
		return st, fmt.Errorf("habit logs today: %w", err)
	}
	if st.TotalHabits > 0 {
		st.CompletionRate = float64(st.LogsToday) / float64(st.TotalHabits) * 100
	}
	return st, nil
}
