package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind:    types.KindTimeBlock,
		columns: []string{"task_id", "start_time", "end_time"},
		values: func(e types.Entity) []any {
			b := e.(*types.TimeBlock)
			return []any{b.TaskID, formatTime(b.StartTime), formatTime(b.EndTime)}
		},
		dest: func(e types.Entity) []any {
			b := e.(*types.TimeBlock)
			return []any{&b.TaskID, timeCol{&b.StartTime}, timeCol{&b.EndTime}}
		},
	})
}

// CreateTimeBlock reserves [start, end) on the calendar for a live task.
func (s *Store) CreateTimeBlock(ctx context.Context, taskID string, start, end time.Time) (*types.TimeBlock, error) {
	if !end.After(start) {
		return nil, types.ErrInvalidRange
	}
	b := &types.TimeBlock{TaskID: taskID, StartTime: start.UTC(), EndTime: end.UTC()}
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return fmt.Errorf("task %s: %w", taskID, err)
		}
		return tx.create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListTimeBlocks returns the live time blocks of a task in start order.
func (s *Store) ListTimeBlocks(ctx context.Context, taskID string) ([]*types.TimeBlock, error) {
	return fetchAll[*types.TimeBlock](ctx, s, types.KindTimeBlock,
		"deleted_at IS NULL AND task_id = ?", "start_time, id", taskID)
}

// DeleteTimeBlock tombstones a time block.
func (s *Store) DeleteTimeBlock(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindTimeBlock, id)
}
