package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskSetStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("done stamps completed_at", func(t *testing.T) {
		task := &Task{Status: StatusTodo}
		require.NoError(t, task.SetStatus(StatusDone, now))
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("reopening clears completed_at", func(t *testing.T) {
		task := &Task{Status: StatusDone, CompletedAt: &now}
		require.NoError(t, task.SetStatus(StatusInProgress, now))
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("same status is idempotent", func(t *testing.T) {
		earlier := now.Add(-time.Hour)
		task := &Task{Status: StatusDone, CompletedAt: &earlier}
		require.NoError(t, task.SetStatus(StatusDone, now))
		assert.Equal(t, earlier, *task.CompletedAt)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		task := &Task{Status: StatusTodo}
		assert.ErrorIs(t, task.SetStatus("blocked", now), ErrInvalidStatus)
		assert.Equal(t, StatusTodo, task.Status)
	})
}

func TestTaskValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Minute)

	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{"valid", Task{Title: "a", Priority: 4, Status: StatusTodo}, nil},
		{"empty title", Task{Priority: 4, Status: StatusTodo}, ErrInvalidTitle},
		{"priority zero", Task{Title: "a", Priority: 0, Status: StatusTodo}, ErrInvalidPriority},
		{"priority five", Task{Title: "a", Priority: 5, Status: StatusTodo}, ErrInvalidPriority},
		{"bad status", Task{Title: "a", Priority: 1, Status: "open"}, ErrInvalidStatus},
		{"end before start", Task{Title: "a", Priority: 1, Status: StatusTodo, StartAt: &start, EndAt: &end}, ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
