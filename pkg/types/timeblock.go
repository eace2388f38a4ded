package types

import "time"

// TimeBlock reserves a calendar interval for a task.
type TimeBlock struct {
	SyncMeta  `json:"-"`
	TaskID    string    `json:"task_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (*TimeBlock) Kind() Kind { return KindTimeBlock }

// FocusSession records one pomodoro work or break interval.
type FocusSession struct {
	SyncMeta    `json:"-"`
	TaskID      string     `json:"task_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DurationSec int        `json:"duration_sec"`
	IsBreak     bool       `json:"is_break"`
	NoiseType   string     `json:"noise_type,omitempty"`
}

func (*FocusSession) Kind() Kind { return KindFocusSession }

// FocusStats summarises focus sessions.
type FocusStats struct {
	TotalSessions int     `json:"total_sessions"`
	WorkSessions  int     `json:"work_sessions"`
	TotalWorkSec  int     `json:"total_work_sec"`
	TotalBreakSec int     `json:"total_break_sec"`
	AvgWorkSec    float64 `json:"avg_work_sec"`
	TodaySessions int     `json:"today_sessions"`
	TodayWorkSec  int     `json:"today_work_sec"`
}
