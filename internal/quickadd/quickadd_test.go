package quickadd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func parse(t *testing.T, input string) Result {
	t.Helper()
	res, err := New().Parse(input, base)
	require.NoError(t, err)
	return res
}

func chipTypes(r Result) []ChipType {
	out := make([]ChipType, 0, len(r.Chips))
	for _, c := range r.Chips {
		out = append(out, c.Type)
	}
	return out
}

func TestPlainTitle(t *testing.T) {
	res := parse(t, "  Buy groceries  ")
	assert.Equal(t, "Buy groceries", res.Title)
	assert.Empty(t, res.Tags)
	assert.Zero(t, res.Priority)
	assert.Nil(t, res.DurationMin)
	assert.Nil(t, res.StartAt)
	assert.Empty(t, res.Chips)
}

func TestTags(t *testing.T) {
	res := parse(t, "Review project proposal #Work #urgent #work")
	assert.Equal(t, "Review project proposal", res.Title)
	assert.Equal(t, []string{"work", "urgent"}, res.Tags)
	require.Len(t, res.Chips, 3)
	assert.Equal(t, "#Work", res.Chips[0].Text)
	assert.Equal(t, "work", res.Chips[0].Value)
}

func TestPriorityLastWins(t *testing.T) {
	res := parse(t, "Fix login bug P1 p3")
	assert.Equal(t, "Fix login bug", res.Title)
	assert.Equal(t, 3, res.Priority)
}

func TestPriorityNeedsWordBoundary(t *testing.T) {
	res := parse(t, "Upgrade to MP3 player")
	assert.Zero(t, res.Priority)
	assert.Equal(t, "Upgrade to MP3 player", res.Title)
}

func TestDurations(t *testing.T) {
	tests := []struct {
		input string
		title string
		mins  int
	}{
		{"Workout for 30 minutes", "Workout", 30},
		{"Write report 2h", "Write report", 120},
		{"Deep work 1.5 hours", "Deep work", 90},
		{"Standup 15min", "Standup", 15},
		{"Read 45 mins", "Read", 45},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parse(t, tt.input)
			assert.Equal(t, tt.title, res.Title)
			require.NotNil(t, res.DurationMin)
			assert.Equal(t, tt.mins, *res.DurationMin)
		})
	}
}

func TestRecurrence(t *testing.T) {
	tests := []struct {
		input string
		title string
		rule  string
	}{
		{"Water plants every 2 weeks", "Water plants", "FREQ=WEEKLY;INTERVAL=2"},
		{"Team sync every week", "Team sync", "FREQ=WEEKLY"},
		{"Meditate daily", "Meditate", "FREQ=DAILY"},
		{"Stretch every day", "Stretch", "FREQ=DAILY"},
		{"Pay rent monthly", "Pay rent", "FREQ=MONTHLY"},
		{"Backup photos every 3 days", "Backup photos", "FREQ=DAILY;INTERVAL=3"},
		{"Weekly team meeting every Monday", "Weekly team meeting", "FREQ=WEEKLY;BYDAY=MO"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parse(t, tt.input)
			assert.Equal(t, tt.title, res.Title)
			assert.Equal(t, tt.rule, res.RecurrenceRule)
		})
	}
}

func TestDescriptionSeparator(t *testing.T) {
	res := parse(t, "Buy groceries #home - Get milk - and eggs")
	assert.Equal(t, "Buy groceries", res.Title)
	assert.Equal(t, "Get milk - and eggs", res.Description)
	assert.Equal(t, []string{"home"}, res.Tags)
}

func TestDateOnlyIsAllDay(t *testing.T) {
	res := parse(t, "Call mom tomorrow")
	assert.Equal(t, "Call mom", res.Title)
	require.NotNil(t, res.StartAt)
	assert.True(t, res.AllDay)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *res.StartAt)
	assert.Nil(t, res.EndAt)
	assert.Contains(t, chipTypes(res), ChipDate)
}

func TestDateWithTime(t *testing.T) {
	res := parse(t, "Dentist tomorrow at 3pm for 45 minutes")
	assert.Equal(t, "Dentist", res.Title)
	require.NotNil(t, res.StartAt)
	assert.False(t, res.AllDay)
	assert.Equal(t, 11, res.StartAt.Day())
	assert.Equal(t, 15, res.StartAt.Hour())
	assert.Equal(t, 0, res.StartAt.Minute())
	require.NotNil(t, res.EndAt)
	assert.Equal(t, 45*time.Minute, res.EndAt.Sub(*res.StartAt))
	assert.Contains(t, chipTypes(res), ChipTime)
}

func TestEverythingAtOnce(t *testing.T) {
	res := parse(t, "Ship release #work P2 2h tomorrow - final checks")
	assert.Equal(t, "Ship release", res.Title)
	assert.Equal(t, "final checks", res.Description)
	assert.Equal(t, []string{"work"}, res.Tags)
	assert.Equal(t, 2, res.Priority)
	require.NotNil(t, res.DurationMin)
	assert.Equal(t, 120, *res.DurationMin)
	require.NotNil(t, res.StartAt)
	assert.Equal(t, []ChipType{ChipTag, ChipPriority, ChipDuration, ChipDate}, chipTypes(res))
}

func TestOnlyChipsKeepsRawTitle(t *testing.T) {
	res := parse(t, "#work")
	assert.Equal(t, "#work", res.Title)
	assert.Equal(t, []string{"work"}, res.Tags)
}

func TestResultTask(t *testing.T) {
	res := parse(t, "Plan sprint P1 30min")
	task := res.Task()
	assert.Equal(t, "Plan sprint", task.Title)
	assert.Equal(t, 1, task.Priority)
	require.NotNil(t, task.DurationMin)
	assert.Equal(t, 30, *task.DurationMin)
	assert.Empty(t, task.ListID)
}
