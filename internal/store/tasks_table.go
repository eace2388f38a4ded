package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind: types.KindTask,
		columns: []string{
			"list_id", "title", "description", "priority", "start_at", "end_at", "all_day",
			"duration_min", "recurrence_rrule", "status", "estimate_pomos", "completed_at",
		},
		values: func(e types.Entity) []any {
			t := e.(*types.Task)
			return []any{
				t.ListID, t.Title, nullString(t.Description), t.Priority,
				formatNullTime(t.StartAt), formatNullTime(t.EndAt), t.AllDay,
				nullInt(t.DurationMin), nullString(t.RecurrenceRule), t.Status,
				t.EstimatePomos, formatNullTime(t.CompletedAt),
			}
		},
		dest: func(e types.Entity) []any {
			t := e.(*types.Task)
			return []any{
				&t.ListID, &t.Title, nullStringCol{&t.Description}, &t.Priority,
				nullTimeCol{&t.StartAt}, nullTimeCol{&t.EndAt}, &t.AllDay,
				nullIntCol{&t.DurationMin}, nullStringCol{&t.RecurrenceRule}, &t.Status,
				&t.EstimatePomos, nullTimeCol{&t.CompletedAt},
			}
		},
		load: loadTaskTags,
		save: saveTaskTags,
	})
}

func loadTaskTags(ctx context.Context, q dbtx, e types.Entity) error {
	t := e.(*types.Task)
	rows, err := q.QueryContext(ctx, "SELECT tag_id FROM task_tags WHERE task_id = ? ORDER BY position", t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.TagIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		t.TagIDs = append(t.TagIDs, id)
	}
	return rows.Err()
}

func saveTaskTags(ctx context.Context, q dbtx, e types.Entity) error {
	t := e.(*types.Task)
	if _, err := q.ExecContext(ctx, "DELETE FROM task_tags WHERE task_id = ?", t.ID); err != nil {
		return err
	}
	for i, tagID := range t.TagIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO task_tags (task_id, tag_id, position) VALUES (?, ?, ?)",
			t.ID, tagID, i,
		); err != nil {
			return err
		}
	}
	return nil
}

// uniqueIDs drops empty and repeated ids, keeping first occurrences.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateTask creates a task. Missing fields take their defaults: priority 4,
// status todo, one pomodoro, and the default list of the default workspace.
func (s *Store) CreateTask(ctx context.Context, t *types.Task) (*types.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == 0 {
		t.Priority = types.DefaultPriority
	}
	if t.Status == "" {
		t.Status = types.StatusTodo
	}
	if t.EstimatePomos == 0 {
		t.EstimatePomos = 1
	}
	t.TagIDs = uniqueIDs(t.TagIDs)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := s.write(ctx, func(tx *Store) error {
		if t.ListID == "" {
			ws, err := tx.DefaultWorkspace(ctx)
			if err != nil {
				return fmt.Errorf("default workspace: %w", err)
			}
			def, err := tx.DefaultList(ctx, ws.ID)
			if err != nil {
				return err
			}
			t.ListID = def.ID
		} else if _, err := tx.GetList(ctx, t.ListID); err != nil {
			return fmt.Errorf("list %s: %w", t.ListID, err)
		}
		if err := tx.trackCreate(t); err != nil {
			return err
		}
		if t.Status == types.StatusDone && t.CompletedAt == nil {
			at := t.CreatedAt
			t.CompletedAt = &at
		}
		return tx.insert(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask returns a live task with its tags.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return fetch[*types.Task](ctx, s, types.KindTask, id)
}

// ListTasks returns live tasks matching f, most urgent first.
func (s *Store) ListTasks(ctx context.Context, f types.TaskFilter) ([]*types.Task, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if f.ListID != "" {
		where = append(where, "list_id = ?")
		args = append(args, f.ListID)
	}
	if f.Status != "" {
		if !types.ValidStatus(f.Status) {
			return nil, types.ErrInvalidStatus
		}
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.TagID != "" {
		where = append(where, `id IN (
			SELECT tt.task_id FROM task_tags tt JOIN tags g ON g.id = tt.tag_id
			WHERE tt.tag_id = ? AND g.deleted_at IS NULL)`)
		args = append(args, f.TagID)
	}
	if f.From != nil {
		where = append(where, "start_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "start_at < ?")
		args = append(args, formatTime(*f.To))
	}
	order := "priority, created_at, id"
	if f.Limit > 0 {
		order += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return fetchAll[*types.Task](ctx, s, types.KindTask, strings.Join(where, " AND "), order, args...)
}

// UpdateTask applies a partial update to a task.
func (s *Store) UpdateTask(ctx context.Context, id string, p types.TaskPatch) (*types.Task, error) {
	var out *types.Task
	err := s.write(ctx, func(tx *Store) error {
		if p.ListID != nil {
			if _, err := tx.GetList(ctx, *p.ListID); err != nil {
				return fmt.Errorf("list %s: %w", *p.ListID, err)
			}
		}
		e, err := tx.modify(ctx, types.KindTask, id, func(e types.Entity) error {
			return applyTaskPatch(e.(*types.Task), p, tx.clock.Now())
		})
		if err != nil {
			return err
		}
		out = e.(*types.Task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyTaskPatch(t *types.Task, p types.TaskPatch, now time.Time) error {
	if p.ListID != nil {
		t.ListID = *p.ListID
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.StartAt != nil {
		at := p.StartAt.UTC()
		t.StartAt = &at
	}
	if p.EndAt != nil {
		at := p.EndAt.UTC()
		t.EndAt = &at
	}
	if p.AllDay != nil {
		t.AllDay = *p.AllDay
	}
	if p.DurationMin != nil {
		d := *p.DurationMin
		t.DurationMin = &d
	}
	if p.RecurrenceRule != nil {
		t.RecurrenceRule = *p.RecurrenceRule
	}
	if p.EstimatePomos != nil {
		t.EstimatePomos = *p.EstimatePomos
	}
	if p.TagIDs != nil {
		t.TagIDs = uniqueIDs(*p.TagIDs)
	}
	if p.Status != nil {
		if err := t.SetStatus(*p.Status, now); err != nil {
			return err
		}
	}
	return t.Validate()
}

// DeleteTask tombstones a task.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindTask, id)
}

// AssignTag appends a tag to a task. It reports false when the task already
// carries the tag.
func (s *Store) AssignTag(ctx context.Context, taskID, tagID string) (bool, error) {
	changed := false
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetTag(ctx, tagID); err != nil {
			return fmt.Errorf("tag %s: %w", tagID, err)
		}
		t, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		for _, id := range t.TagIDs {
			if id == tagID {
				return nil
			}
		}
		t.TagIDs = append(t.TagIDs, tagID)
		tx.trackUpdate(t)
		changed = true
		return tx.update(ctx, t)
	})
	return changed, err
}

// RemoveTag removes a tag from a task. It reports false when the task did
// not carry the tag.
func (s *Store) RemoveTag(ctx context.Context, taskID, tagID string) (bool, error) {
	changed := false
	err := s.write(ctx, func(tx *Store) error {
		t, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		kept := t.TagIDs[:0]
		for _, id := range t.TagIDs {
			if id != tagID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(t.TagIDs) {
			return nil
		}
		t.TagIDs = kept
		tx.trackUpdate(t)
		changed = true
		return tx.update(ctx, t)
	})
	return changed, err
}

// CalendarEvents returns scheduled live tasks with start_at in [from, to].
func (s *Store) CalendarEvents(ctx context.Context, from, to time.Time) ([]types.CalendarEvent, error) {
	if to.Before(from) {
		return nil, types.ErrInvalidRange
	}
	tasks, err := fetchAll[*types.Task](ctx, s, types.KindTask,
		"deleted_at IS NULL AND start_at IS NOT NULL AND start_at >= ? AND start_at <= ?",
		"start_at, id", formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	events := make([]types.CalendarEvent, 0, len(tasks))
	for _, t := range tasks {
		events = append(events, types.CalendarEvent{
			TaskID: t.ID,
			Title:  t.Title,
			Start:  *t.StartAt,
			End:    t.EndAt,
			AllDay: t.AllDay,
			Color:  types.PriorityColor(t.Priority),
		})
	}
	return events, nil
}

// CountTasks counts every task row, tombstoned rows included.
func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}
