package types

import "time"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

// validStatuses is the set of recognized task status values.
var validStatuses = map[string]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusDone:       true,
}

// Priority bounds. 1 is the most urgent.
const (
	PriorityHighest = 1
	PriorityLowest  = 4
	DefaultPriority = PriorityLowest
)

// Task is a unit of work on a list.
type Task struct {
	SyncMeta       `json:"-"`
	ListID         string     `json:"list_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Priority       int        `json:"priority"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	AllDay         bool       `json:"all_day"`
	DurationMin    *int       `json:"duration_min,omitempty"`
	RecurrenceRule string     `json:"recurrence_rrule,omitempty"`
	Status         string     `json:"status"`
	EstimatePomos  int        `json:"estimate_pomos"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TagIDs         []string   `json:"tag_ids"`
}

func (*Task) Kind() Kind { return KindTask }

// ValidStatus reports whether s is a recognized task status.
func ValidStatus(s string) bool { return validStatuses[s] }

// ValidPriority reports whether p lies within the priority bounds.
func ValidPriority(p int) bool { return p >= PriorityHighest && p <= PriorityLowest }

// SetStatus sets the task status and keeps CompletedAt consistent with it.
// Returns ErrInvalidStatus if the status is not recognized.
func (t *Task) SetStatus(status string, now time.Time) error {
	if !validStatuses[status] {
		return ErrInvalidStatus
	}
	if status == t.Status {
		return nil
	}
	t.Status = status
	if status == StatusDone {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	return nil
}

// Validate checks the fields a task must always satisfy.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrInvalidTitle
	}
	if !ValidPriority(t.Priority) {
		return ErrInvalidPriority
	}
	if !validStatuses[t.Status] {
		return ErrInvalidStatus
	}
	if t.StartAt != nil && t.EndAt != nil && t.EndAt.Before(*t.StartAt) {
		return ErrInvalidRange
	}
	return nil
}

// TaskPatch carries the fields to change on a task. Nil fields are left as is.
type TaskPatch struct {
	ListID         *string
	Title          *string
	Description    *string
	Priority       *int
	StartAt        *time.Time
	EndAt          *time.Time
	AllDay         *bool
	DurationMin    *int
	RecurrenceRule *string
	Status         *string
	EstimatePomos  *int
	TagIDs         *[]string
}

// TaskFilter narrows task listings. Zero fields do not filter.
type TaskFilter struct {
	ListID string
	Status string
	TagID  string
	From   *time.Time // start_at >= From
	To     *time.Time // start_at < To
	Limit  int
}

// CalendarEvent is a scheduled task as shown on a calendar.
type CalendarEvent struct {
	TaskID string     `json:"task_id"`
	Title  string     `json:"title"`
	Start  time.Time  `json:"start_time"`
	End    *time.Time `json:"end_time,omitempty"`
	AllDay bool       `json:"all_day"`
	Color  string     `json:"color"`
}

// PriorityColor returns the display color for a task priority.
func PriorityColor(p int) string {
	switch p {
	case 1:
		return "#ef4444"
	case 2:
		return "#f97316"
	case 3:
		return "#3b82f6"
	}
	return "#6b7280"
}
