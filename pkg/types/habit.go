package types

import (
	"fmt"
	"time"
)

// Habit schedule frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// DayLayout is the calendar-day format used by habit logs.
const DayLayout = "2006-01-02"

// Schedule describes on which ISO weekdays (1 = Monday, 7 = Sunday) a habit
// is due. It is stored as a JSON column and decoded at the store boundary.
type Schedule struct {
	Frequency string `json:"frequency" yaml:"frequency"`
	Days      []int  `json:"days" yaml:"days"`
}

// Daily returns a daily schedule on the given weekdays, every day if none.
func Daily(days ...int) Schedule {
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5, 6, 7}
	}
	return Schedule{Frequency: FrequencyDaily, Days: days}
}

// Weekly returns a weekly schedule on the given weekdays.
func Weekly(days ...int) Schedule {
	return Schedule{Frequency: FrequencyWeekly, Days: days}
}

// Validate checks the frequency and weekday numbers.
func (s Schedule) Validate() error {
	switch s.Frequency {
	case FrequencyDaily, FrequencyWeekly:
	default:
		return fmt.Errorf("%w: frequency %q", ErrInvalidSchedule, s.Frequency)
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("%w: no days", ErrInvalidSchedule)
	}
	for _, d := range s.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: day %d", ErrInvalidSchedule, d)
		}
	}
	return nil
}

// Includes reports whether the schedule is due on weekday wd.
func (s Schedule) Includes(wd time.Weekday) bool {
	iso := int(wd)
	if iso == 0 {
		iso = 7
	}
	for _, d := range s.Days {
		if d == iso {
			return true
		}
	}
	return false
}

// Habit is a recurring practice whose completions are recorded as logs.
// Streak is derived from the logs on this device and never synced.
type Habit struct {
	SyncMeta    `json:"-"`
	WorkspaceID string   `json:"workspace_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Schedule    Schedule `json:"schedule"`
	Streak      int      `json:"-"`
}

func (*Habit) Kind() Kind { return KindHabit }

// HabitPatch carries the fields to change on a habit.
type HabitPatch struct {
	Title       *string
	Description *string
	Schedule    *Schedule
}

// HabitLog records the value logged for a habit on one calendar day.
// There is at most one live log per habit and day.
type HabitLog struct {
	SyncMeta `json:"-"`
	HabitID  string `json:"habit_id"`
	Date     string `json:"date"`
	Value    int    `json:"value"`
}

func (*HabitLog) Kind() Kind { return KindHabitLog }

// HabitStats summarises habit activity for one day.
type HabitStats struct {
	TotalHabits    int     `json:"total_habits"`
	ActiveStreaks  int     `json:"active_streaks"`
	LogsToday      int     `json:"total_logs_today"`
	CompletionRate float64 `json:"completion_rate"`
}

// ParseDay parses a calendar day in DayLayout.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Day formats t as a calendar day in UTC.
func Day(t time.Time) string { return t.UTC().Format(DayLayout) }
